// Package processor keeps the live interview sessions and runs turns against
// them one at a time.
package processor

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"voice-interviewer-go/internal/actionable"
	"voice-interviewer-go/internal/aggregator"
	"voice-interviewer-go/internal/logger"
	"voice-interviewer-go/internal/pipeline"
	"voice-interviewer-go/internal/types"
)

var (
	ErrNotFound = errors.New("session not found")
	ErrBusy     = errors.New("session is processing another request")
)

// View is a point-in-time copy of a session.
type View struct {
	ID              string                   `json:"id"`
	State           pipeline.State           `json:"state"`
	Template        string                   `json:"template"`
	Guide           *types.DiscussionGuide   `json:"guide,omitempty"`
	Section         int                      `json:"section"`
	CurrentQuestion string                   `json:"current_question"`
	Conversation    []types.ConversationTurn `json:"conversation"`
	CreatedAt       time.Time                `json:"created_at"`
}

// TurnResult is returned by Respond.
type TurnResult struct {
	SessionID  string                `json:"session_id"`
	Exchange   pipeline.Exchange     `json:"exchange"`
	ActionCard actionable.ActionCard `json:"action_card"`
	Section    int                   `json:"section"`
	DurationMs int64                 `json:"duration_ms"`
}

// Summary is returned by Summarize.
type Summary struct {
	SessionID  string                `json:"session_id"`
	Insight    aggregator.Insight    `json:"insight"`
	ActionCard actionable.ActionCard `json:"action_card"`
}

type entry struct {
	mu      sync.Mutex
	session *pipeline.Session
	created time.Time
}

// Registry owns every session. Calls on different sessions run in parallel;
// overlapping calls on the same session are rejected with ErrBusy.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]*entry
	deps     pipeline.Deps
	log      *logger.Logger
}

func NewRegistry(deps pipeline.Deps, log *logger.Logger) *Registry {
	if log == nil {
		log = logger.Discard()
	}
	if deps.Log == nil {
		deps.Log = log
	}
	return &Registry{
		sessions: map[string]*entry{},
		deps:     deps,
		log:      log,
	}
}

// Create registers a new, not yet started session.
func (r *Registry) Create(opts pipeline.Options) string {
	id := uuid.NewString()
	e := &entry{session: pipeline.NewSession(id, r.deps, opts), created: time.Now().UTC()}

	r.mu.Lock()
	r.sessions[id] = e
	r.mu.Unlock()

	r.log.WithSession(id).WithField("template", opts.Template).Info("session created")
	return id
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

func (r *Registry) Delete(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.sessions[id]; !ok {
		return ErrNotFound
	}
	delete(r.sessions, id)
	return nil
}

// Do runs fn with exclusive access to the session.
func (r *Registry) Do(id string, fn func(s *pipeline.Session) error) error {
	return r.do(id, func(e *entry) error { return fn(e.session) })
}

func (r *Registry) Start(ctx context.Context, id string) (View, error) {
	var v View
	err := r.do(id, func(e *entry) error {
		if err := e.session.Start(ctx); err != nil {
			return err
		}
		v = view(e)
		return nil
	})
	return v, err
}

// Respond submits one answer and returns the new exchange with an updated
// action card for the interviewer.
func (r *Registry) Respond(ctx context.Context, id string, in pipeline.SubmitInput) (TurnResult, error) {
	start := time.Now()
	res := TurnResult{SessionID: id}
	err := r.Do(id, func(s *pipeline.Session) error {
		ex, err := s.Submit(ctx, in)
		if err != nil {
			return err
		}
		res.Exchange = ex
		res.Section = s.Section()
		res.ActionCard = actionable.Generate(aggregator.Summarize(s.Conversation()))
		return nil
	})
	res.DurationMs = time.Since(start).Milliseconds()
	return res, err
}

func (r *Registry) Reset(id string) (View, error) {
	var v View
	err := r.do(id, func(e *entry) error {
		e.session.Reset()
		v = view(e)
		return nil
	})
	return v, err
}

func (r *Registry) End(id string) (View, error) {
	var v View
	err := r.do(id, func(e *entry) error {
		if err := e.session.End(); err != nil {
			return err
		}
		v = view(e)
		return nil
	})
	return v, err
}

func (r *Registry) Get(id string) (View, error) {
	var v View
	err := r.do(id, func(e *entry) error {
		v = view(e)
		return nil
	})
	return v, err
}

func (r *Registry) Summarize(id string) (Summary, error) {
	sum := Summary{SessionID: id}
	err := r.Do(id, func(s *pipeline.Session) error {
		sum.Insight = aggregator.Summarize(s.Conversation())
		sum.ActionCard = actionable.Generate(sum.Insight)
		return nil
	})
	return sum, err
}

func (r *Registry) do(id string, fn func(e *entry) error) error {
	r.mu.RLock()
	e, ok := r.sessions[id]
	r.mu.RUnlock()
	if !ok {
		return ErrNotFound
	}
	if !e.mu.TryLock() {
		return ErrBusy
	}
	defer e.mu.Unlock()
	return fn(e)
}

func view(e *entry) View {
	s := e.session
	return View{
		ID:              s.ID(),
		State:           s.State(),
		Template:        s.Template(),
		Guide:           s.Guide(),
		Section:         s.Section(),
		CurrentQuestion: s.CurrentQuestion(),
		Conversation:    s.Conversation(),
		CreatedAt:       e.created,
	}
}
