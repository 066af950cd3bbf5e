package emotion

import (
	"regexp"
	"strings"

	"voice-interviewer-go/internal/types"
)

const (
	neutralAuthenticity = 0.7
	minAuthenticity     = 0.1
)

// Flags reported by AnalyzeAuthenticity.
const (
	FlagHighHesitation  = "high_hesitation"
	FlagStockPhrases    = "stock_phrases"
	FlagExtremeLanguage = "extreme_language"
	FlagBriefResponse   = "brief_response"
)

var (
	hesitationMarkers = []string{"um", "uh", "like", "you know", "i mean", "sort of", "kind of"}
	stockPhrases      = []string{"i guess", "probably", "maybe", "i don't know", "whatever"}
	extremeWords      = []string{"amazing", "incredible", "terrible", "horrible", "perfect", "awful"}

	hesitationPatterns = compileWordPatterns(hesitationMarkers)

	apostrophes = strings.NewReplacer("’", "'", "‘", "'")
)

type rule struct {
	flag    string
	penalty float64
	hit     func(c textCounts) bool
}

type textCounts struct {
	hesitation int
	stock      int
	extreme    int
	words      int
}

var authenticityRules = []rule{
	{FlagHighHesitation, 0.15, func(c textCounts) bool { return c.hesitation > 3 }},
	{FlagStockPhrases, 0.20, func(c textCounts) bool { return c.stock > 1 }},
	{FlagExtremeLanguage, 0.10, func(c textCounts) bool { return c.extreme > 2 }},
	{FlagBriefResponse, 0.15, func(c textCounts) bool { return c.words < 10 }},
}

// AnalyzeAuthenticity scores how genuine a transcript reads. Penalties
// accumulate independently and the score never drops below 0.1.
func AnalyzeAuthenticity(transcript string) types.Authenticity {
	c := countMarkers(transcript)
	score := 1.0
	flags := []string{}
	for _, r := range authenticityRules {
		if r.hit(c) {
			flags = append(flags, r.flag)
			score -= r.penalty
		}
	}
	if score < minAuthenticity {
		score = minAuthenticity
	}
	return types.Authenticity{Score: round2(score), Flags: flags}
}

func countMarkers(transcript string) textCounts {
	lower := apostrophes.Replace(strings.ToLower(transcript))
	var c textCounts
	for _, re := range hesitationPatterns {
		c.hesitation += len(re.FindAllStringIndex(lower, -1))
	}
	for _, p := range stockPhrases {
		c.stock += strings.Count(lower, p)
	}
	for _, w := range extremeWords {
		c.extreme += strings.Count(lower, w)
	}
	c.words = len(strings.Fields(transcript))
	return c
}

func compileWordPatterns(words []string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, len(words))
	for i, w := range words {
		out[i] = regexp.MustCompile(`\b` + regexp.QuoteMeta(w) + `\b`)
	}
	return out
}

// round2 trims float noise from repeated subtraction.
func round2(v float64) float64 {
	return float64(int(v*100+0.5)) / 100
}
