package main

import (
	"bytes"
	"encoding/json"
	"testing"

	"voice-interviewer-go/internal/types"
)

func TestClassifyCmd(t *testing.T) {
	configDir = t.TempDir()

	cmd := classifyCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"--volume", "80", "--variance", "0.05", "--rate", "170", "--pause", "200", "--peak", "90"})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var res types.EmotionResult
	if err := json.Unmarshal(out.Bytes(), &res); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if res.Emotion != types.Enthusiasm {
		t.Fatalf("expected enthusiasm, got %+v", res)
	}
}

func TestClassifyCmd_RequiresMetrics(t *testing.T) {
	configDir = t.TempDir()

	cmd := classifyCmd()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"--transcript", "I guess it was fine"})
	if err := cmd.Execute(); err == nil {
		t.Fatal("expected an error without metric flags")
	}
}
