package actionable

import (
	"fmt"
	"sort"
	"strings"

	"voice-interviewer-go/internal/aggregator"
	"voice-interviewer-go/internal/types"
)

type ActionCard struct {
	Insight string `json:"insight"`
	Action  string `json:"action"`
	Impact  string `json:"impact"`
}

const (
	shareThreshold        = 0.35
	lowAuthenticity       = 0.6
	lowEngagement         = 40.0
	enthusiasticThreshold = 0.5
)

// Generate turns an interview summary into guidance for the interviewer.
// Rules are checked in order and the first match wins.
func Generate(ins aggregator.Insight) ActionCard {
	if ins.Responses == 0 {
		return ActionCard{
			Insight: "No responses recorded yet",
			Action:  "Start the interview and collect a first answer",
			Impact:  "None yet",
		}
	}
	if s := ins.Share(types.Frustration); s >= shareThreshold {
		return ActionCard{
			Insight: fmt.Sprintf("Frustration in %.0f%% of answers", s*100),
			Action:  "Acknowledge the frustration and pivot to specific pain points",
			Impact:  "Keeps the respondent talking and surfaces root causes",
		}
	}
	if s := ins.Share(types.Uncertainty); s >= shareThreshold {
		return ActionCard{
			Insight: fmt.Sprintf("Uncertainty in %.0f%% of answers", s*100),
			Action:  "Slow down, simplify questions and offer concrete examples",
			Impact:  "Builds confidence and yields more usable answers",
		}
	}
	if ins.AvgAuthenticity < lowAuthenticity {
		return ActionCard{
			Insight: fmt.Sprintf("Low answer authenticity (%.2f avg; %s)", ins.AvgAuthenticity, topFlags(ins.FlagCounts)),
			Action:  "Ask for a specific recent example instead of general opinions",
			Impact:  "Reduces stock answers and social desirability bias",
		}
	}
	if ins.AvgEngagement < lowEngagement {
		return ActionCard{
			Insight: fmt.Sprintf("Low engagement (%.0f/100 avg)", ins.AvgEngagement),
			Action:  "Shorten the remaining sections and move towards closing",
			Impact:  "Avoids drop-off before the key questions",
		}
	}
	if s := ins.Share(types.Enthusiasm); s >= enthusiasticThreshold {
		return ActionCard{
			Insight: fmt.Sprintf("Enthusiasm in %.0f%% of answers", s*100),
			Action:  "Go deeper on advanced use and edge cases",
			Impact:  "Captures detailed feedback while the respondent is engaged",
		}
	}
	return ActionCard{
		Insight: "No strong emotional pattern detected",
		Action:  "Continue with the discussion guide",
		Impact:  "Low immediate intervention",
	}
}

func topFlags(counts map[string]int) string {
	if len(counts) == 0 {
		return "no flags"
	}
	flags := make([]string, 0, len(counts))
	for f := range counts {
		flags = append(flags, f)
	}
	sort.Slice(flags, func(i, j int) bool {
		if counts[flags[i]] != counts[flags[j]] {
			return counts[flags[i]] > counts[flags[j]]
		}
		return flags[i] < flags[j]
	})
	if len(flags) > 2 {
		flags = flags[:2]
	}
	return strings.Join(flags, ", ")
}
