// Package upload stores recorded answers in a public blob store so the prosody
// provider can fetch them by URL.
package upload

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"voice-interviewer-go/internal/httpretry"
	"voice-interviewer-go/internal/logger"
)

// ErrUnavailable means no public URL could be produced. Non-fatal for a turn.
var ErrUnavailable = errors.New("upload unavailable")

type Uploader interface {
	Upload(ctx context.Context, audio []byte, contentType string) (string, error)
}

var extensions = map[string]string{
	"audio/webm": "webm",
	"audio/wav":  "wav",
	"audio/mp3":  "mp3",
	"audio/mpeg": "mp3",
	"audio/ogg":  "ogg",
}

// Blob is a Vercel Blob style client: PUT {base}/{pathname} with a bearer token
// answering {"url": "..."}.
type Blob struct {
	BaseURL string
	Token   string
	Prefix  string
	http    *httpretry.Client
	log     *logger.Logger
	now     func() time.Time
}

func NewBlob(baseURL, token string, log *logger.Logger) *Blob {
	if log == nil {
		log = logger.Discard()
	}
	return &Blob{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Token:   token,
		Prefix:  "interview-audio",
		http:    httpretry.New(20*time.Second, 20*time.Second),
		log:     log,
		now:     time.Now,
	}
}

func (b *Blob) Configured() bool { return b.BaseURL != "" && b.Token != "" }

func (b *Blob) Upload(ctx context.Context, audio []byte, contentType string) (string, error) {
	if !b.Configured() {
		return "", fmt.Errorf("%w: blob token not configured", ErrUnavailable)
	}
	if len(audio) == 0 {
		return "", fmt.Errorf("%w: no audio", ErrUnavailable)
	}
	ct := normalizeType(contentType)
	ext, ok := Extension(ct)
	if !ok {
		return "", fmt.Errorf("%w: invalid audio type %q", ErrUnavailable, contentType)
	}
	pathname := fmt.Sprintf("%s/%d-%s.%s", b.Prefix, b.now().UnixMilli(), uuid.NewString()[:8], ext)
	log := b.log.WithField("module", "upload").WithField("pathname", pathname)

	build := func(ctx context.Context) (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPut, b.BaseURL+"/"+pathname, bytes.NewReader(audio))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Authorization", "Bearer "+b.Token)
		req.Header.Set("Content-Type", ct)
		req.Header.Set("x-content-type", ct)
		req.Header.Set("x-add-random-suffix", "0")
		return req, nil
	}
	var resp struct {
		URL string `json:"url"`
	}
	if err := b.http.DoJSON(ctx, build, &resp); err != nil {
		log.WithError(err).Warn("audio upload failed")
		return "", fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if resp.URL == "" {
		return "", fmt.Errorf("%w: store returned no url", ErrUnavailable)
	}
	log.WithField("url", resp.URL).Info("audio uploaded")
	return resp.URL, nil
}

// Extension maps an audio content type to its file extension.
func Extension(contentType string) (string, bool) {
	ext, ok := extensions[normalizeType(contentType)]
	return ext, ok
}

// normalizeType drops codec parameters, so "audio/webm;codecs=opus" is accepted.
func normalizeType(ct string) string {
	if i := strings.Index(ct, ";"); i >= 0 {
		ct = ct[:i]
	}
	ct = strings.ToLower(strings.TrimSpace(ct))
	if ct == "" {
		return "audio/webm"
	}
	return ct
}
