package main

import (
	"fmt"

	"voice-interviewer-go/internal/config"
	"voice-interviewer-go/internal/dataset"
	"voice-interviewer-go/internal/emotion"
	"voice-interviewer-go/internal/logger"
	"voice-interviewer-go/internal/pipeline"
	"voice-interviewer-go/internal/processor"
	"voice-interviewer-go/internal/prosody"
	"voice-interviewer-go/internal/questions"
	"voice-interviewer-go/internal/transcription"
	"voice-interviewer-go/internal/types"
	"voice-interviewer-go/internal/upload"
	"voice-interviewer-go/internal/voice"
)

// app holds everything the HTTP handlers need.
type app struct {
	cfg          *config.Config
	log          *logger.Logger
	registry     *processor.Registry
	heuristic    *emotion.Heuristic
	aggregator   *voice.Aggregator
	guides       *questions.GuideGenerator
	defaultGuide *types.DiscussionGuide
}

func newApp(cfg *config.Config, log *logger.Logger) (*app, error) {
	var transcriber transcription.Transcriber
	if cfg.Transcription.Mock {
		log.Info("mock transcription mode ON")
		transcriber = transcription.Mock{}
	} else {
		transcriber = transcription.NewClient(cfg.Transcription.URL, cfg.Transcription.APIKey, cfg.Transcription.Model, log)
	}

	analyzer := prosody.NewClient(cfg.Prosody, log)
	blob := upload.NewBlob(cfg.Upload.URL, cfg.Upload.Token, log)
	// audio is only uploaded for the prosody provider
	var uploader upload.Uploader
	if analyzer.Configured() && blob.Configured() {
		uploader = blob
	} else {
		log.Warn("prosody provider or blob store not configured, using heuristic analysis only")
	}

	gw := questions.NewGateway(cfg.LLM.GatewayURL, cfg.LLM.APIKey, cfg.LLM.Model, log)
	var gen questions.Generator
	if cfg.LLM.Mock {
		log.Info("mock LLM mode ON")
		gen = questions.Mock{}
	} else {
		gen = questions.Fallback{Primary: questions.NewLLM(gw, log), Log: log}
	}

	heuristic := emotion.NewHeuristic(cfg.Emotion)
	a := &app{
		cfg:        cfg,
		log:        log,
		heuristic:  heuristic,
		aggregator: voice.NewAggregator(cfg.Voice),
		guides:     questions.NewGuideGenerator(gw, cfg.LLM.Mock, log),
		registry: processor.NewRegistry(pipeline.Deps{
			Transcriber: transcriber,
			Uploader:    uploader,
			Analyzer:    analyzer,
			Heuristic:   heuristic,
			Questions:   gen,
			Log:         log,
		}, log),
	}

	if p := cfg.Interview.GuidePath; p != "" {
		g, err := dataset.LoadGuide(p)
		if err != nil {
			return nil, fmt.Errorf("load guide %s: %w", p, err)
		}
		a.defaultGuide = &g
		log.WithField("guide", g.Title).WithField("sections", len(g.Sections)).Info("default discussion guide loaded")
	}
	return a, nil
}
