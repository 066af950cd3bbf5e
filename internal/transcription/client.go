package transcription

import (
	"bytes"
	"context"
	"math"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"voice-interviewer-go/internal/httpretry"
	"voice-interviewer-go/internal/logger"
	"voice-interviewer-go/internal/upload"
)

// Client talks to an OpenAI Whisper compatible /audio/transcriptions endpoint.
type Client struct {
	BaseURL string
	APIKey  string
	Model   string
	http    *httpretry.Client
	log     *logger.Logger
}

func NewClient(baseURL, apiKey, model string, log *logger.Logger) *Client {
	if model == "" {
		model = "whisper-1"
	}
	if log == nil {
		log = logger.Discard()
	}
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		APIKey:  apiKey,
		Model:   model,
		http:    httpretry.New(30*time.Second, 45*time.Second),
		log:     log,
	}
}

type verboseResponse struct {
	Text     string  `json:"text"`
	Language string  `json:"language"`
	Duration float64 `json:"duration"`
	Segments []struct {
		AvgLogprob float64 `json:"avg_logprob"`
	} `json:"segments"`
}

// Transcribe names the uploaded file after contentType, since the API detects
// the audio format from the extension. Unknown types are sent as webm.
func (c *Client) Transcribe(ctx context.Context, audio []byte, contentType, language string) (Result, error) {
	if c.BaseURL == "" || c.APIKey == "" {
		return Result{}, unavailable("transcription service not configured")
	}
	if len(audio) == 0 {
		return Result{}, unavailable("empty audio")
	}
	ext, ok := upload.Extension(contentType)
	if !ok {
		ext = "webm"
	}
	log := c.log.WithField("module", "transcription").WithField("bytes", len(audio))

	build := func(ctx context.Context) (*http.Request, error) {
		var b bytes.Buffer
		w := multipart.NewWriter(&b)
		fw, err := w.CreateFormFile("file", "response."+ext)
		if err != nil {
			return nil, err
		}
		if _, err := fw.Write(audio); err != nil {
			return nil, err
		}
		w.WriteField("model", c.Model)
		w.WriteField("response_format", "verbose_json")
		if language != "" {
			w.WriteField("language", language)
		}
		if err := w.Close(); err != nil {
			return nil, err
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/audio/transcriptions", &b)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", w.FormDataContentType())
		req.Header.Set("Authorization", "Bearer "+c.APIKey)
		return req, nil
	}

	var resp verboseResponse
	if err := c.http.DoJSON(ctx, build, &resp); err != nil {
		log.WithError(err).Warn("transcription request failed")
		return Result{}, unavailable("%v", err)
	}
	text := clean(resp.Text)
	if text == "" {
		return Result{}, unavailable("empty transcript")
	}
	log.WithField("duration", resp.Duration).Debug("transcription complete")
	return Result{
		Transcript: text,
		Confidence: segmentConfidence(resp),
		Duration:   resp.Duration,
	}, nil
}

// segmentConfidence averages exp(avg_logprob) over segments.
func segmentConfidence(r verboseResponse) float64 {
	if len(r.Segments) == 0 {
		return 1
	}
	sum := 0.0
	for _, s := range r.Segments {
		sum += math.Exp(s.AvgLogprob)
	}
	c := sum / float64(len(r.Segments))
	return math.Max(0, math.Min(c, 1))
}
