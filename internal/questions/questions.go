// Package questions produces interview questions and discussion guides,
// through an LLM gateway when one is configured and from canned content
// otherwise.
package questions

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"voice-interviewer-go/internal/guide"
	"voice-interviewer-go/internal/logger"
	"voice-interviewer-go/internal/types"
)

const DefaultTemplate = "product_feedback"

// Request carries what the generator knows when asked for the next question.
type Request struct {
	History  []types.ConversationTurn
	Emotion  *types.EmotionResult
	Template string
	Guide    *types.DiscussionGuide
	Section  int
}

type Generator interface {
	Next(ctx context.Context, req Request) (string, error)
}

var templates = map[string]string{
	"product_feedback": "gathering honest feedback about the respondent's experience with a product",
	"user_research":    "understanding the respondent's workflow, goals and unmet needs",
	"concept_test":     "testing the respondent's reaction to a new product concept",
}

var strategies = map[types.Emotion]string{
	types.Enthusiasm:  "The respondent sounds enthusiastic. Keep the pace up and go deeper: ask about specifics, advanced use or edge cases.",
	types.Uncertainty: "The respondent sounds uncertain. Slow down, simplify the question and invite a concrete example. Be encouraging.",
	types.Frustration: "The respondent sounds frustrated. Briefly acknowledge it, then pivot to a specific pain point they can describe.",
	types.Neutral:     "The respondent sounds neutral. Keep a neutral tone and explore the reasoning behind their opinions.",
}

// LLM asks the gateway for the next question.
type LLM struct {
	gw  *Gateway
	log *logger.Logger
}

func NewLLM(gw *Gateway, log *logger.Logger) *LLM {
	if log == nil {
		log = logger.Discard()
	}
	return &LLM{gw: gw, log: log}
}

func (l *LLM) Next(ctx context.Context, req Request) (string, error) {
	var out struct {
		Question string `json:"question"`
	}
	msgs := []Message{
		{Role: "system", Content: systemPrompt(req)},
		{Role: "user", Content: historyPrompt(req.History)},
	}
	if err := l.gw.ChatJSON(ctx, msgs, 0.7, 200, &out); err != nil {
		return "", fmt.Errorf("generate question: %w", err)
	}
	q := strings.TrimSpace(out.Question)
	if q == "" {
		return "", errors.New("generate question: empty question")
	}
	return q, nil
}

func systemPrompt(req Request) string {
	var b strings.Builder
	b.WriteString("You are a warm, professional voice interviewer. Ask exactly one open-ended question at a time, ")
	b.WriteString("short enough to be spoken aloud. Avoid yes/no questions.\n\n")

	if sec, ok := guide.CurrentSection(req.Section, req.Guide); ok {
		fmt.Fprintf(&b, "You are following the discussion guide %q.\n", req.Guide.Title)
		fmt.Fprintf(&b, "Current section (%d of %d): %s\n", req.Section+1, len(req.Guide.Sections), sec.Title)
		for _, q := range sec.Questions {
			fmt.Fprintf(&b, "- %s\n", q)
		}
		b.WriteString("Use the section questions as a starting point and adapt their wording to the conversation.\n\n")
	} else {
		tpl := req.Template
		if tpl == "" {
			tpl = DefaultTemplate
		}
		topic, ok := templates[tpl]
		if !ok {
			topic = tpl
		}
		fmt.Fprintf(&b, "Interview goal: %s.\n\n", topic)
	}

	if req.Emotion != nil {
		fmt.Fprintf(&b, "Detected emotion: %s (confidence %.2f, engagement %d/100).\n",
			req.Emotion.Emotion, req.Emotion.Confidence, req.Emotion.Engagement)
		if s, ok := strategies[req.Emotion.Emotion]; ok {
			b.WriteString(s + "\n")
		}
		b.WriteString("\n")
	} else {
		b.WriteString("This is the opening question. Make the respondent comfortable.\n\n")
	}

	b.WriteString(`Respond with JSON only: {"question": "..."}`)
	return b.String()
}

func historyPrompt(history []types.ConversationTurn) string {
	if len(history) == 0 {
		return "No conversation yet."
	}
	var b strings.Builder
	b.WriteString("Conversation so far:\n")
	for _, t := range history {
		speaker := "Interviewer"
		if t.Role == types.RoleUser {
			speaker = "Respondent"
		}
		if t.Emotion != nil {
			fmt.Fprintf(&b, "%s [%s]: %s\n", speaker, t.Emotion.Emotion, t.Content)
		} else {
			fmt.Fprintf(&b, "%s: %s\n", speaker, t.Content)
		}
	}
	return b.String()
}

var canned = map[types.Emotion]string{
	types.Enthusiasm:  "That sounds great! What specifically stood out to you the most?",
	types.Uncertainty: "No worries, take your time. Could you walk me through a recent time you used it?",
	types.Frustration: "I hear you, that sounds frustrating. What was the biggest obstacle you ran into?",
	types.Neutral:     "Could you tell me more about how that fits into your day-to-day?",
}

const openingQuestion = "Tell me about your experience with this product."

// Canned picks a question without calling out. With a guide it uses the first
// section question not yet asked; otherwise it keys on the emotion.
func Canned(req Request) string {
	if sec, ok := guide.CurrentSection(req.Section, req.Guide); ok && len(sec.Questions) > 0 {
		asked := map[string]bool{}
		for _, t := range req.History {
			if t.Role == types.RoleAI {
				asked[t.Content] = true
			}
		}
		for _, q := range sec.Questions {
			if !asked[q] {
				return q
			}
		}
		return sec.Questions[len(sec.Questions)-1]
	}
	if req.Emotion == nil {
		return openingQuestion
	}
	if q, ok := canned[req.Emotion.Emotion]; ok {
		return q
	}
	return canned[types.Neutral]
}

// Mock never calls out. Enabled with USE_MOCK_LLM=true.
type Mock struct{}

func (Mock) Next(_ context.Context, req Request) (string, error) {
	return Canned(req), nil
}

// Fallback wraps a generator and answers with a canned question when it fails.
// A cancelled context is still returned as an error.
type Fallback struct {
	Primary Generator
	Log     *logger.Logger
}

func (f Fallback) Next(ctx context.Context, req Request) (string, error) {
	q, err := f.Primary.Next(ctx, req)
	if err == nil {
		return q, nil
	}
	if ctx.Err() != nil {
		return "", ctx.Err()
	}
	if f.Log != nil {
		f.Log.WithError(err).Warn("question generation failed, using canned question")
	}
	return Canned(req), nil
}
