package main

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"voice-interviewer-go/internal/dataset"
	"voice-interviewer-go/internal/emotion"
	"voice-interviewer-go/internal/questions"
	"voice-interviewer-go/internal/types"
)

// classifyCmd runs the heuristic classifier once, handy for tuning thresholds
// in config.yaml.
func classifyCmd() *cobra.Command {
	var (
		m          types.VoiceMetrics
		transcript string
	)
	cmd := &cobra.Command{
		Use:   "classify",
		Short: "Classify one set of voice metrics with the heuristic engine",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !hasMetricFlags(cmd) {
				return errors.New("at least one voice metric flag is required")
			}
			cfg, _, _, err := loadConfig()
			if err != nil {
				return err
			}
			h := emotion.NewHeuristic(cfg.Emotion)
			res := h.Evaluate(m, transcript)
			return printJSON(cmd, struct {
				types.EmotionResult
				Description  string               `json:"description"`
				Propensities emotion.Propensities `json:"propensities"`
			}{res, emotion.Describe(res.Emotion), h.Propensities(m)})
		},
	}
	f := cmd.Flags()
	f.Float64Var(&m.AvgVolume, "volume", 0, "average volume (0-100)")
	f.Float64Var(&m.VolumeVariance, "variance", 0, "volume variance (0-1)")
	f.Float64Var(&m.SpeechRate, "rate", 0, "speech rate in words per minute")
	f.Float64Var(&m.AvgPause, "pause", 0, "average pause in ms")
	f.Float64Var(&m.ResponseLatency, "latency", 0, "response latency in ms")
	f.Float64Var(&m.PeakVolume, "peak", 0, "peak volume (0-100)")
	f.StringVar(&transcript, "transcript", "", "answer text for authenticity scoring")
	return cmd
}

var metricFlags = []string{"volume", "variance", "rate", "pause", "latency", "peak"}

func hasMetricFlags(cmd *cobra.Command) bool {
	for _, name := range metricFlags {
		if cmd.Flags().Changed(name) {
			return true
		}
	}
	return false
}

func guideCmd() *cobra.Command {
	var brief, out string
	cmd := &cobra.Command{
		Use:   "guide",
		Short: "Generate a discussion guide from a research brief",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, log, err := loadConfig()
			if err != nil {
				return err
			}
			gw := questions.NewGateway(cfg.LLM.GatewayURL, cfg.LLM.APIKey, cfg.LLM.Model, log)
			res, err := questions.NewGuideGenerator(gw, cfg.LLM.Mock, log).Generate(cmd.Context(), brief)
			if err != nil {
				return err
			}
			if out == "" {
				return printJSON(cmd, res)
			}
			if err := dataset.SaveGuide(out, res.Guide); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s (%d sections): %s\n", out, len(res.Guide.Sections), res.Reasoning)
			return nil
		},
	}
	cmd.Flags().StringVar(&brief, "brief", "", "research brief")
	cmd.Flags().StringVarP(&out, "out", "o", "", "write the guide as YAML to this path")
	_ = cmd.MarkFlagRequired("brief")
	return cmd
}

func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
