package aggregator

import (
	"testing"

	"voice-interviewer-go/internal/types"
)

func userTurn(e types.Emotion, engagement int, auth float64, flags ...string) types.ConversationTurn {
	return types.ConversationTurn{
		Role:    types.RoleUser,
		Content: "answer",
		Emotion: &types.EmotionResult{
			Emotion:      e,
			Confidence:   0.8,
			Engagement:   engagement,
			Authenticity: types.Authenticity{Score: auth, Flags: flags},
			Source:       types.SourceHeuristic,
		},
	}
}

func TestSummarize(t *testing.T) {
	turns := []types.ConversationTurn{
		{Role: types.RoleAI, Content: "q1"},
		userTurn(types.Frustration, 60, 0.85, "brief_response"),
		{Role: types.RoleAI, Content: "q2"},
		userTurn(types.Frustration, 40, 0.65, "brief_response", "stock_phrases"),
		{Role: types.RoleAI, Content: "q3"},
		userTurn(types.Enthusiasm, 80, 1.0),
	}
	ins := Summarize(turns)

	if ins.Turns != 6 || ins.Responses != 3 {
		t.Fatalf("unexpected counts: %+v", ins)
	}
	if ins.Dominant != types.Frustration {
		t.Fatalf("expected frustration dominant, got %s", ins.Dominant)
	}
	if ins.AvgEngagement != 60 || ins.AvgAuthenticity != 0.83 {
		t.Fatalf("unexpected averages: eng %v auth %v", ins.AvgEngagement, ins.AvgAuthenticity)
	}
	if ins.FlagCounts["brief_response"] != 2 || ins.FlagCounts["stock_phrases"] != 1 {
		t.Fatalf("unexpected flag counts %v", ins.FlagCounts)
	}
	if len(ins.Trajectory) != 3 || ins.Trajectory[2] != types.Enthusiasm {
		t.Fatalf("unexpected trajectory %v", ins.Trajectory)
	}
	if ins.SourceCounts[types.SourceHeuristic] != 3 {
		t.Fatalf("unexpected source counts %v", ins.SourceCounts)
	}
}

func TestSummarize_TieUsesPriority(t *testing.T) {
	ins := Summarize([]types.ConversationTurn{
		userTurn(types.Uncertainty, 50, 0.9),
		userTurn(types.Enthusiasm, 50, 0.9),
	})
	if ins.Dominant != types.Enthusiasm {
		t.Fatalf("expected enthusiasm to win the tie, got %s", ins.Dominant)
	}
}

func TestSummarize_Empty(t *testing.T) {
	ins := Summarize(nil)
	if ins.Responses != 0 || ins.Dominant != types.Neutral || ins.Share(types.Enthusiasm) != 0 {
		t.Fatalf("unexpected empty summary %+v", ins)
	}
}
