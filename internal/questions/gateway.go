package questions

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"voice-interviewer-go/internal/httpretry"
	"voice-interviewer-go/internal/logger"
)

var ErrNotConfigured = errors.New("llm gateway not configured")

type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Gateway talks to an OpenAI compatible chat completion endpoint.
type Gateway struct {
	URL    string
	APIKey string
	Model  string
	http   *httpretry.Client
	log    *logger.Logger
}

func NewGateway(url, apiKey, model string, log *logger.Logger) *Gateway {
	if model == "" {
		model = "gpt-3.5-turbo"
	}
	if log == nil {
		log = logger.Discard()
	}
	return &Gateway{
		URL:    url,
		APIKey: apiKey,
		Model:  model,
		http:   httpretry.New(25*time.Second, 45*time.Second),
		log:    log,
	}
}

func (g *Gateway) Configured() bool { return g != nil && g.URL != "" && g.APIKey != "" }

// ChatJSON sends messages and decodes the first JSON object of the answer
// into target.
func (g *Gateway) ChatJSON(ctx context.Context, messages []Message, temperature float64, maxTokens int, target any) error {
	if !g.Configured() {
		return ErrNotConfigured
	}
	log := g.log.WithField("component", "llm-gateway")

	data, _ := json.Marshal(map[string]any{
		"model":       g.Model,
		"messages":    messages,
		"temperature": temperature,
		"max_tokens":  maxTokens,
	})
	log.WithField("payload_len", len(data)).Debug("llm request")

	build := func(ctx context.Context) (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.URL, bytes.NewReader(data))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Authorization", "Bearer "+g.APIKey)
		req.Header.Set("Content-Type", "application/json")
		return req, nil
	}
	body, err := g.http.Do(ctx, build)
	if err != nil {
		log.WithError(err).Warn("llm request failed")
		return err
	}

	// Try choices[0].message.content (OpenAI-like)
	if inner := extractContentFromChoices(body); inner != "" {
		if err := json.Unmarshal([]byte(inner), target); err == nil {
			return nil
		}
		log.Warn("unmarshal from choices content failed")
	}
	// Fallback: first balanced JSON in the raw body
	if raw := extractJSON(string(body)); raw != "" {
		if err := json.Unmarshal([]byte(raw), target); err == nil {
			return nil
		}
	}
	return errors.New("no JSON found in LLM output")
}

// extractContentFromChoices reads openai-style choices[0].message.content JSON
func extractContentFromChoices(body []byte) string {
	var obj map[string]any
	if err := json.Unmarshal(body, &obj); err != nil {
		return ""
	}
	choices, ok := obj["choices"].([]any)
	if !ok || len(choices) == 0 {
		return ""
	}
	c0, _ := choices[0].(map[string]any)
	if c0 == nil {
		return ""
	}
	msg, _ := c0["message"].(map[string]any)
	if msg == nil {
		return ""
	}
	content, _ := msg["content"].(string)
	return extractJSON(content)
}

// extractJSON finds the first balanced JSON object in a string. A
// surrounding markdown fence is stripped first; backticks inside the object
// are kept.
func extractJSON(s string) string {
	s = stripFence(strings.ReplaceAll(s, "\r\n", "\n"))
	if s == "" {
		return ""
	}

	start := strings.Index(s, "{")
	if start == -1 {
		return ""
	}
	depth := 0
	inString, escaped := false, false
	for i := start; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return strings.TrimSpace(s[start : i+1])
			}
		}
	}
	return ""
}

func stripFence(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(strings.TrimPrefix(s, "```"), "json")
	}
	return strings.TrimSpace(strings.TrimSuffix(s, "```"))
}
