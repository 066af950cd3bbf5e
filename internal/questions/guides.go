package questions

import (
	"context"
	"errors"
	"strings"

	"voice-interviewer-go/internal/guide"
	"voice-interviewer-go/internal/logger"
	"voice-interviewer-go/internal/types"
)

var ErrEmptyBrief = errors.New("brief is required and must be a non-empty string")

type GuideResult struct {
	Guide     types.DiscussionGuide `json:"guide"`
	Reasoning string                `json:"reasoning"`
	Error     string                `json:"error,omitempty"`
}

const guidePrompt = `You are an expert market researcher creating a discussion guide for a voice AI interviewer.

Based on the market research brief provided, create a structured discussion guide with 4-6 sections. Each section should have 2-4 questions that build naturally on each other.

The guide should:
1. Start with warm-up/introduction questions
2. Explore current behaviors and experiences
3. Identify pain points and challenges
4. Understand preferences and requirements
5. End with closing questions

Format your response as a JSON object with this exact structure:
{
  "title": "Brief descriptive title for the discussion guide",
  "sections": [
    {
      "title": "Section title",
      "questions": ["Question 1", "Question 2", "Question 3"]
    }
  ]
}

Make questions conversational and natural for a voice interview. Avoid yes/no questions. Focus on open-ended questions that encourage detailed responses.`

// GuideGenerator turns a research brief into a discussion guide.
type GuideGenerator struct {
	gw   *Gateway
	mock bool
	log  *logger.Logger
}

func NewGuideGenerator(gw *Gateway, mock bool, log *logger.Logger) *GuideGenerator {
	if log == nil {
		log = logger.Discard()
	}
	return &GuideGenerator{gw: gw, mock: mock, log: log}
}

// Generate only fails for an empty brief. Every gateway, parse or validation
// problem yields a built-in guide with the reason attached.
func (g *GuideGenerator) Generate(ctx context.Context, brief string) (GuideResult, error) {
	if strings.TrimSpace(brief) == "" {
		return GuideResult{}, ErrEmptyBrief
	}
	log := g.log.WithField("component", "guide-generator")

	if g.mock {
		log.Info("mock LLM mode ON - returning default guide")
		return GuideResult{Guide: DefaultGuide(), Reasoning: "Using default guide (mock LLM mode)"}, nil
	}
	if !g.gw.Configured() {
		return GuideResult{Guide: DefaultGuide(), Reasoning: "Using fallback guide (LLM not configured)"}, nil
	}

	msgs := []Message{
		{Role: "system", Content: guidePrompt},
		{Role: "user", Content: "Market Research Brief:\n\n" + brief},
	}
	var out types.DiscussionGuide
	if err := g.gw.ChatJSON(ctx, msgs, 0.7, 1000, &out); err != nil {
		log.WithError(err).Warn("guide generation failed")
		return GuideResult{Guide: FallbackGuide(), Reasoning: "Used fallback guide due to error", Error: err.Error()}, nil
	}
	if err := guide.Validate(&out); err != nil {
		log.WithError(err).Warn("invalid guide structure from LLM")
		return GuideResult{Guide: FallbackGuide(), Reasoning: "Used fallback guide due to invalid structure", Error: err.Error()}, nil
	}
	log.WithField("sections", len(out.Sections)).Info("discussion guide generated")
	return GuideResult{Guide: out, Reasoning: "Generated discussion guide from brief"}, nil
}

// DefaultGuide is served when no LLM is available at all.
func DefaultGuide() types.DiscussionGuide {
	return types.DiscussionGuide{
		Title: "Market Research Discussion Guide",
		Sections: []types.GuideSection{
			{Title: "Introduction & Context", Questions: []string{
				"Can you tell me a bit about yourself and your background?",
				"How familiar are you with this type of product/service?",
			}},
			{Title: "Current Experience", Questions: []string{
				"How do you currently handle this need?",
				"What tools or solutions do you use today?",
				"What works well with your current approach?",
			}},
			{Title: "Pain Points & Challenges", Questions: []string{
				"What challenges do you face with current solutions?",
				"What frustrates you most about existing options?",
				"What would make your life easier?",
			}},
			{Title: "Preferences & Requirements", Questions: []string{
				"What features are most important to you?",
				"What would an ideal solution look like?",
				"What would convince you to switch from your current solution?",
			}},
			{Title: "Closing", Questions: []string{
				"Is there anything else you'd like to share?",
				"Do you have any questions for me?",
			}},
		},
	}
}

// FallbackGuide is served when the LLM answered but could not be used.
func FallbackGuide() types.DiscussionGuide {
	return types.DiscussionGuide{
		Title: "Market Research Discussion Guide",
		Sections: []types.GuideSection{
			{Title: "Introduction", Questions: []string{
				"Can you tell me about your experience with this topic?",
				"What brings you here today?",
			}},
			{Title: "Current Situation", Questions: []string{
				"How do you currently handle this?",
				"What challenges do you face?",
			}},
			{Title: "Preferences", Questions: []string{
				"What would you like to see improved?",
				"What would make this better for you?",
			}},
		},
	}
}
