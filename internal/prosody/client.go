// Package prosody analyses recorded answers with an external speech prosody
// provider (Hume batch API) and normalises its output into an EmotionResult.
package prosody

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/sirupsen/logrus"

	"voice-interviewer-go/internal/httpretry"
	"voice-interviewer-go/internal/logger"
	"voice-interviewer-go/internal/types"
)

// Terminal job states. Anything else (QUEUED, IN_PROGRESS) keeps polling.
const (
	statusCompleted = "COMPLETED"
	statusFailed    = "FAILED"
)

// ProviderError covers every way the provider can fail to produce a result.
// Callers fall back to the heuristic classifier.
type ProviderError struct {
	Reason string
	Err    error
}

func (e *ProviderError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("prosody provider: %s: %v", e.Reason, e.Err)
	}
	return "prosody provider: " + e.Reason
}

func (e *ProviderError) Unwrap() error { return e.Err }

const (
	ReasonCredentials   = "credentials not configured"
	ReasonSubmit        = "job submission failed"
	ReasonJobFailed     = "job failed"
	ReasonTimeout       = "analysis timeout"
	ReasonStatus        = "status check failed"
	ReasonNoPredictions = "no prosody predictions"
)

var (
	errPending   = errors.New("job pending")
	errJobFailed = errors.New("job failed")
)

type Config struct {
	BaseURL      string        `mapstructure:"base_url"`
	APIKey       string        `mapstructure:"api_key"`
	SecretKey    string        `mapstructure:"secret_key"`
	PollInterval time.Duration `mapstructure:"poll_interval"`
	Timeout      time.Duration `mapstructure:"timeout"`
}

func DefaultConfig() Config {
	return Config{
		BaseURL:      "https://api.hume.ai",
		PollInterval: 2 * time.Second,
		Timeout:      60 * time.Second,
	}
}

type Client struct {
	cfg  Config
	http *httpretry.Client
	log  *logger.Logger
}

func NewClient(cfg Config, log *logger.Logger) *Client {
	def := DefaultConfig()
	if cfg.BaseURL == "" {
		cfg.BaseURL = def.BaseURL
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = def.PollInterval
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = def.Timeout
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if log == nil {
		log = logger.Discard()
	}
	return &Client{
		cfg:  cfg,
		http: httpretry.New(15*time.Second, 10*time.Second),
		log:  log,
	}
}

// Configured reports whether both provider credentials are present.
func (c *Client) Configured() bool {
	return c.cfg.APIKey != "" && c.cfg.SecretKey != ""
}

// Analyze submits audioURL, waits for the job and maps its predictions. A
// cancelled ctx is returned as-is so the caller can abort the whole turn.
func (c *Client) Analyze(ctx context.Context, audioURL string) (types.EmotionResult, error) {
	if !c.Configured() {
		return types.EmotionResult{}, &ProviderError{Reason: ReasonCredentials}
	}
	log := c.log.WithField("module", "prosody")

	jobID, err := c.submit(ctx, audioURL)
	if err != nil {
		if ctx.Err() != nil {
			return types.EmotionResult{}, ctx.Err()
		}
		return types.EmotionResult{}, &ProviderError{Reason: ReasonSubmit, Err: err}
	}
	log = log.WithField("job_id", jobID)
	log.Info("prosody job started")

	if err := c.wait(ctx, jobID, log); err != nil {
		return types.EmotionResult{}, err
	}

	utts, err := c.predictions(ctx, jobID)
	if err != nil {
		if ctx.Err() != nil {
			return types.EmotionResult{}, ctx.Err()
		}
		return types.EmotionResult{}, &ProviderError{Reason: ReasonNoPredictions, Err: err}
	}
	if len(utts) == 0 {
		return types.EmotionResult{}, &ProviderError{Reason: ReasonNoPredictions}
	}
	res := MapPredictions(utts)
	log.WithFields(logrus.Fields{
		"emotion":    res.Emotion,
		"confidence": res.Confidence,
		"utterances": len(utts),
	}).Info("prosody analysis complete")
	return res, nil
}

func (c *Client) authorize(req *http.Request) {
	req.Header.Set("X-Hume-Api-Key", c.cfg.APIKey)
	req.Header.Set("Accept", "application/json")
}

func (c *Client) submit(ctx context.Context, audioURL string) (string, error) {
	payload, _ := json.Marshal(map[string]any{
		"models": map[string]any{
			"prosody": map[string]string{"granularity": "utterance"},
		},
		"urls": []string{audioURL},
	})
	build := func(ctx context.Context) (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+"/v0/batch/jobs", bytes.NewReader(payload))
		if err != nil {
			return nil, err
		}
		c.authorize(req)
		req.Header.Set("Content-Type", "application/json")
		return req, nil
	}
	var resp struct {
		JobID string `json:"job_id"`
	}
	if err := c.http.DoJSON(ctx, build, &resp); err != nil {
		return "", err
	}
	if resp.JobID == "" {
		return "", errors.New("no job id returned")
	}
	return resp.JobID, nil
}

func (c *Client) status(ctx context.Context, jobID string) (string, error) {
	build := func(ctx context.Context) (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.BaseURL+"/v0/batch/jobs/"+jobID, nil)
		if err != nil {
			return nil, err
		}
		c.authorize(req)
		return req, nil
	}
	var resp struct {
		State struct {
			Status  string `json:"status"`
			Message string `json:"message"`
		} `json:"state"`
	}
	if err := c.http.DoJSON(ctx, build, &resp); err != nil {
		return "", err
	}
	return strings.ToUpper(resp.State.Status), nil
}

// wait polls the job at a fixed interval until it reaches a terminal state,
// the provider timeout elapses or ctx is cancelled.
func (c *Client) wait(ctx context.Context, jobID string, log *logrus.Entry) error {
	pollCtx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	start := time.Now()
	op := func() error {
		st, err := c.status(pollCtx, jobID)
		if err != nil {
			log.WithError(err).Warn("prosody status check failed")
			return err
		}
		log.WithFields(logrus.Fields{
			"status":     st,
			"elapsed_ms": time.Since(start).Milliseconds(),
		}).Debug("polling prosody job")
		switch st {
		case statusCompleted:
			return nil
		case statusFailed:
			return backoff.Permanent(errJobFailed)
		default:
			return errPending
		}
	}

	err := backoff.Retry(op, backoff.WithContext(backoff.NewConstantBackOff(c.cfg.PollInterval), pollCtx))
	switch {
	case err == nil:
		return nil
	case ctx.Err() != nil:
		return ctx.Err()
	case errors.Is(err, errJobFailed):
		return &ProviderError{Reason: ReasonJobFailed}
	case pollCtx.Err() != nil:
		return &ProviderError{Reason: ReasonTimeout, Err: pollCtx.Err()}
	default:
		return &ProviderError{Reason: ReasonStatus, Err: err}
	}
}

type predictionsResponse []struct {
	Results struct {
		Predictions []struct {
			Models struct {
				Prosody struct {
					GroupedPredictions []struct {
						Predictions []Utterance `json:"predictions"`
					} `json:"grouped_predictions"`
				} `json:"prosody"`
			} `json:"models"`
		} `json:"predictions"`
	} `json:"results"`
}

func (c *Client) predictions(ctx context.Context, jobID string) ([]Utterance, error) {
	build := func(ctx context.Context) (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.BaseURL+"/v0/batch/jobs/"+jobID+"/predictions", nil)
		if err != nil {
			return nil, err
		}
		c.authorize(req)
		return req, nil
	}
	var resp predictionsResponse
	if err := c.http.DoJSON(ctx, build, &resp); err != nil {
		return nil, err
	}
	var utts []Utterance
	for _, src := range resp {
		for _, p := range src.Results.Predictions {
			for _, g := range p.Models.Prosody.GroupedPredictions {
				for _, u := range g.Predictions {
					if len(u.Emotions) > 0 {
						utts = append(utts, u)
					}
				}
			}
		}
	}
	return utts, nil
}
