// Package pipeline runs one adaptive interview: every user answer is
// transcribed, classified and answered with the next question.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"voice-interviewer-go/internal/emotion"
	"voice-interviewer-go/internal/guide"
	"voice-interviewer-go/internal/logger"
	"voice-interviewer-go/internal/questions"
	"voice-interviewer-go/internal/transcription"
	"voice-interviewer-go/internal/types"
	"voice-interviewer-go/internal/upload"
)

type State string

const (
	NotStarted       State = "not_started"
	AwaitingResponse State = "awaiting_response"
	Processing       State = "processing"
	Ended            State = "ended"
)

// PlaceholderTranscript stands in for the answer when no transcript exists.
const PlaceholderTranscript = "[Transcription unavailable - please enter text manually]"

// historyWindow is how many recent turns the question generator sees.
const historyWindow = 5

var ErrInvalidState = errors.New("operation not allowed in current session state")

// OrchestrationError is returned when a turn could not be completed. The
// session is left exactly as it was before the call.
type OrchestrationError struct {
	Op  string
	Err error
}

func (e *OrchestrationError) Error() string {
	return fmt.Sprintf("failed to %s: %v", e.Op, e.Err)
}

func (e *OrchestrationError) Unwrap() error { return e.Err }

// Deps are the collaborators of a session. Only Questions is required in
// practice; a nil Transcriber, Uploader or Analyzer disables that step.
type Deps struct {
	Transcriber transcription.Transcriber
	Uploader    upload.Uploader
	Analyzer    emotion.ProsodyAnalyzer
	Heuristic   *emotion.Heuristic
	Questions   questions.Generator
	Log         *logger.Logger
	Now         func() time.Time
}

type Options struct {
	Template string
	Guide    *types.DiscussionGuide
	Language string
}

type SubmitInput struct {
	Audio            []byte
	ContentType      string
	Metrics          types.VoiceMetrics
	ManualTranscript string
}

// Exchange is what one successful Submit appended.
type Exchange struct {
	Response types.ConversationTurn `json:"response"`
	Question types.ConversationTurn `json:"question"`
}

// Session is not safe for concurrent use.
type Session struct {
	id   string
	deps Deps
	opts Options
	log  *logrus.Entry

	state        State
	conversation []types.ConversationTurn
	current      string
	section      int
}

func NewSession(id string, deps Deps, opts Options) *Session {
	if deps.Heuristic == nil {
		deps.Heuristic = emotion.NewHeuristic(emotion.DefaultThresholds())
	}
	if deps.Questions == nil {
		deps.Questions = questions.Mock{}
	}
	if deps.Log == nil {
		deps.Log = logger.Discard()
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if opts.Template == "" {
		opts.Template = questions.DefaultTemplate
	}
	if opts.Guide != nil {
		g := cloneGuide(*opts.Guide)
		opts.Guide = &g
	}
	return &Session{
		id:    id,
		deps:  deps,
		opts:  opts,
		log:   deps.Log.WithSession(id),
		state: NotStarted,
	}
}

func (s *Session) ID() string       { return s.id }
func (s *Session) State() State     { return s.state }
func (s *Session) Section() int     { return s.section }
func (s *Session) Template() string { return s.opts.Template }

func (s *Session) CurrentQuestion() string { return s.current }

func (s *Session) Guide() *types.DiscussionGuide {
	if s.opts.Guide == nil {
		return nil
	}
	g := cloneGuide(*s.opts.Guide)
	return &g
}

func (s *Session) Conversation() []types.ConversationTurn {
	out := make([]types.ConversationTurn, len(s.conversation))
	for i, t := range s.conversation {
		out[i] = cloneTurn(t)
	}
	return out
}

// Start asks for the opening question.
func (s *Session) Start(ctx context.Context) error {
	if s.state != NotStarted {
		return ErrInvalidState
	}
	s.state = Processing

	q, err := s.deps.Questions.Next(ctx, questions.Request{
		Template: s.opts.Template,
		Guide:    s.opts.Guide,
		Section:  0,
	})
	if err == nil && q == "" {
		err = errors.New("empty question")
	}
	if err != nil {
		s.state = NotStarted
		s.log.WithError(err).Error("could not start interview")
		return &OrchestrationError{Op: "start interview", Err: err}
	}

	s.conversation = []types.ConversationTurn{s.turn(types.RoleAI, q)}
	s.current = q
	s.section = 0
	s.state = AwaitingResponse
	s.log.Info("interview started")
	return nil
}

// Submit processes one recorded answer. Transcription, upload and provider
// failures degrade gracefully; a question generation failure or a cancelled
// ctx aborts the turn and nothing is committed.
func (s *Session) Submit(ctx context.Context, in SubmitInput) (Exchange, error) {
	if s.state != AwaitingResponse {
		return Exchange{}, ErrInvalidState
	}
	s.state = Processing
	start := time.Now()

	ex, section, err := s.process(ctx, in)
	if err != nil {
		s.state = AwaitingResponse
		s.log.WithError(err).Error("turn aborted")
		return Exchange{}, err
	}

	s.conversation = append(s.conversation, ex.Response, ex.Question)
	s.current = ex.Question.Content
	s.section = section
	s.state = AwaitingResponse

	s.log.WithFields(logrus.Fields{
		"emotion":     ex.Response.Emotion.Emotion,
		"source":      ex.Response.Emotion.Source,
		"section":     section,
		"turns":       len(s.conversation),
		"duration_ms": time.Since(start).Milliseconds(),
	}).Info("turn completed")
	return cloneExchange(ex), nil
}

func (s *Session) process(ctx context.Context, in SubmitInput) (Exchange, int, error) {
	transcript, err := s.transcript(ctx, in)
	if err != nil {
		return Exchange{}, 0, &OrchestrationError{Op: "transcribe response", Err: err}
	}

	audioURL, err := s.upload(ctx, in)
	if err != nil {
		return Exchange{}, 0, &OrchestrationError{Op: "upload audio", Err: err}
	}

	result, err := s.classify(ctx, in.Metrics, transcript, audioURL)
	if err != nil {
		return Exchange{}, 0, &OrchestrationError{Op: "analyze emotion", Err: err}
	}

	metrics := in.Metrics
	userTurn := s.turn(types.RoleUser, transcript)
	userTurn.Emotion = &result
	userTurn.VoiceMetrics = &metrics

	section := guide.Next(s.section, s.opts.Guide)

	history := append(append([]types.ConversationTurn{}, s.conversation...), userTurn)
	if len(history) > historyWindow {
		history = history[len(history)-historyWindow:]
	}
	q, err := s.deps.Questions.Next(ctx, questions.Request{
		History:  history,
		Emotion:  &result,
		Template: s.opts.Template,
		Guide:    s.opts.Guide,
		Section:  section,
	})
	if err == nil && q == "" {
		err = errors.New("empty question")
	}
	if err != nil {
		return Exchange{}, 0, &OrchestrationError{Op: "generate next question", Err: err}
	}
	if err := ctx.Err(); err != nil {
		return Exchange{}, 0, &OrchestrationError{Op: "generate next question", Err: err}
	}

	return Exchange{Response: userTurn, Question: s.turn(types.RoleAI, q)}, section, nil
}

// transcript only fails when ctx is done.
func (s *Session) transcript(ctx context.Context, in SubmitInput) (string, error) {
	if in.ManualTranscript != "" {
		return in.ManualTranscript, nil
	}
	if s.deps.Transcriber == nil || len(in.Audio) == 0 {
		return PlaceholderTranscript, nil
	}
	res, err := s.deps.Transcriber.Transcribe(ctx, in.Audio, in.ContentType, s.opts.Language)
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		s.log.WithError(err).Warn("transcription unavailable, using placeholder")
		return PlaceholderTranscript, nil
	}
	if res.Transcript == "" {
		return PlaceholderTranscript, nil
	}
	return res.Transcript, nil
}

// upload returns "" when no public URL is available, which disables the
// prosody provider for this turn.
func (s *Session) upload(ctx context.Context, in SubmitInput) (string, error) {
	if s.deps.Uploader == nil || len(in.Audio) == 0 {
		return "", nil
	}
	url, err := s.deps.Uploader.Upload(ctx, in.Audio, in.ContentType)
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		s.log.WithError(err).Warn("audio upload failed, using heuristic analysis")
		return "", nil
	}
	return url, nil
}

func (s *Session) classify(ctx context.Context, m types.VoiceMetrics, transcript, audioURL string) (types.EmotionResult, error) {
	input := emotion.Input{Metrics: m, AudioURL: audioURL}
	if transcript != PlaceholderTranscript {
		input.Transcript = transcript
	}

	c := emotion.Select(input, s.deps.Analyzer, s.deps.Heuristic)
	res, err := c.Classify(ctx, input)
	if err == nil {
		return res, nil
	}
	if ctx.Err() != nil {
		return types.EmotionResult{}, ctx.Err()
	}
	s.log.WithError(err).WithField("classifier", c.Source()).Warn("prosody analysis failed, falling back to heuristic")
	return s.deps.Heuristic.Classify(ctx, input)
}

// Reset discards the conversation so the session can be started again.
func (s *Session) Reset() {
	s.conversation = nil
	s.current = ""
	s.section = 0
	s.state = NotStarted
	s.log.Info("interview reset")
}

// End closes a started interview. Ended sessions only accept Reset.
func (s *Session) End() error {
	if s.state != AwaitingResponse {
		return ErrInvalidState
	}
	s.state = Ended
	s.log.WithField("turns", len(s.conversation)).Info("interview ended")
	return nil
}

func (s *Session) turn(role types.Role, content string) types.ConversationTurn {
	return types.ConversationTurn{
		ID:        uuid.NewString(),
		Role:      role,
		Content:   content,
		Timestamp: s.deps.Now().UTC(),
	}
}

func cloneTurn(t types.ConversationTurn) types.ConversationTurn {
	if t.Emotion != nil {
		e := *t.Emotion
		e.Authenticity.Flags = append([]string{}, t.Emotion.Authenticity.Flags...)
		t.Emotion = &e
	}
	if t.VoiceMetrics != nil {
		m := *t.VoiceMetrics
		t.VoiceMetrics = &m
	}
	return t
}

func cloneExchange(ex Exchange) Exchange {
	return Exchange{Response: cloneTurn(ex.Response), Question: cloneTurn(ex.Question)}
}

func cloneGuide(g types.DiscussionGuide) types.DiscussionGuide {
	out := types.DiscussionGuide{Title: g.Title, Sections: make([]types.GuideSection, len(g.Sections))}
	for i, sec := range g.Sections {
		out.Sections[i] = types.GuideSection{Title: sec.Title, Questions: append([]string{}, sec.Questions...)}
	}
	return out
}
