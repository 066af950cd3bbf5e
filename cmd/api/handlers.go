package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"voice-interviewer-go/internal/dataset"
	"voice-interviewer-go/internal/emotion"
	"voice-interviewer-go/internal/guide"
	"voice-interviewer-go/internal/pipeline"
	"voice-interviewer-go/internal/processor"
	"voice-interviewer-go/internal/questions"
	"voice-interviewer-go/internal/types"
	"voice-interviewer-go/internal/voice"
)

const (
	maxBodyBytes = 25 << 20 // transcription API upload limit
	xlsxType     = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

var errBadRequest = errors.New("bad request")

func badRequest(format string, args ...any) error {
	return fmt.Errorf("%w: %s", errBadRequest, fmt.Sprintf(format, args...))
}

func (a *app) routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		a.log.WithRequest(r).Debug("health check")
		fmt.Fprint(w, "ok")
	})

	mux.HandleFunc("POST /classify", a.handleClassify)
	mux.HandleFunc("POST /guides", a.handleGuide)

	mux.HandleFunc("POST /sessions", a.handleCreateSession)
	mux.HandleFunc("GET /sessions/{id}", a.handleGetSession)
	mux.HandleFunc("DELETE /sessions/{id}", a.handleDeleteSession)
	mux.HandleFunc("POST /sessions/{id}/start", a.handleStart)
	mux.HandleFunc("POST /sessions/{id}/responses", a.handleRespond)
	mux.HandleFunc("POST /sessions/{id}/reset", a.handleReset)
	mux.HandleFunc("POST /sessions/{id}/end", a.handleEnd)
	mux.HandleFunc("GET /sessions/{id}/summary", a.handleSummary)
	mux.HandleFunc("GET /sessions/{id}/export", a.handleExport)

	return mux
}

type classifyRequest struct {
	Metrics    *types.VoiceMetrics `json:"metrics"`
	Samples    []voice.Sample      `json:"samples"`
	DurationMs int64               `json:"durationMs"`
	Transcript string              `json:"transcript"`
}

type classifyResponse struct {
	types.EmotionResult
	Color        string               `json:"color"`
	Description  string               `json:"description"`
	VoiceMetrics types.VoiceMetrics   `json:"voiceMetrics"`
	Propensities emotion.Propensities `json:"propensities"`
}

func (a *app) handleClassify(w http.ResponseWriter, r *http.Request) {
	reqLog := a.log.WithRequest(r).WithField("handler", "classify")

	var req classifyRequest
	if err := decodeJSON(w, r, &req); err != nil {
		a.fail(w, reqLog, err)
		return
	}
	m, err := a.metrics(req.Metrics, req.Samples, req.DurationMs)
	if err != nil {
		a.fail(w, reqLog, err)
		return
	}

	res := a.heuristic.Evaluate(m, req.Transcript)
	reqLog.WithField("emotion", res.Emotion).WithField("confidence", res.Confidence).Info("classified")
	writeJSON(w, reqLog, http.StatusOK, classifyResponse{
		EmotionResult: res,
		Color:         emotion.Color(res.Emotion),
		Description:   emotion.Describe(res.Emotion),
		VoiceMetrics:  m,
		Propensities:  a.heuristic.Propensities(m),
	})
}

// metrics prefers explicit metrics, then derives them from raw samples. An
// empty recording is rejected rather than classified as zero metrics.
func (a *app) metrics(m *types.VoiceMetrics, samples []voice.Sample, durationMs int64) (types.VoiceMetrics, error) {
	if m != nil {
		return *m, nil
	}
	if len(samples) == 0 {
		return types.VoiceMetrics{}, badRequest("metrics or samples required")
	}
	out, ok := a.aggregator.Compute(samples, time.Duration(durationMs)*time.Millisecond)
	if !ok {
		return types.VoiceMetrics{}, badRequest("samples need a positive durationMs")
	}
	return out, nil
}

type guideRequest struct {
	Brief string `json:"brief"`
}

func (a *app) handleGuide(w http.ResponseWriter, r *http.Request) {
	reqLog := a.log.WithRequest(r).WithField("handler", "guides")

	var req guideRequest
	if err := decodeJSON(w, r, &req); err != nil {
		a.fail(w, reqLog, err)
		return
	}
	res, err := a.guides.Generate(r.Context(), req.Brief)
	if err != nil {
		a.fail(w, reqLog, err)
		return
	}
	reqLog.WithField("sections", len(res.Guide.Sections)).Info("guide generated")
	writeJSON(w, reqLog, http.StatusOK, res)
}

type createSessionRequest struct {
	Template string                 `json:"template"`
	Guide    *types.DiscussionGuide `json:"guide"`
	Brief    string                 `json:"brief"`
	Language string                 `json:"language"`
}

func (a *app) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	reqLog := a.log.WithRequest(r).WithField("handler", "create_session")

	var req createSessionRequest
	if r.ContentLength != 0 {
		if err := decodeJSON(w, r, &req); err != nil {
			a.fail(w, reqLog, err)
			return
		}
	}

	ctx, cancel := context.WithTimeout(r.Context(), a.cfg.Server.TurnTimeout)
	defer cancel()

	opts := pipeline.Options{
		Template: req.Template,
		Guide:    req.Guide,
		Language: req.Language,
	}
	if opts.Template == "" {
		opts.Template = a.cfg.Interview.Template
	}
	if opts.Language == "" {
		opts.Language = a.cfg.Transcription.Language
	}
	switch {
	case opts.Guide != nil:
		if err := guide.Validate(opts.Guide); err != nil {
			a.fail(w, reqLog, badRequest("%v", err))
			return
		}
	case strings.TrimSpace(req.Brief) != "":
		res, err := a.guides.Generate(ctx, req.Brief)
		if err != nil {
			a.fail(w, reqLog, err)
			return
		}
		opts.Guide = &res.Guide
	default:
		opts.Guide = a.defaultGuide
	}

	id := a.registry.Create(opts)
	reqLog = reqLog.WithField("session_id", id)
	v, err := a.registry.Start(ctx, id)
	if err != nil {
		_ = a.registry.Delete(id)
		a.fail(w, reqLog, err)
		return
	}
	reqLog.Info("session started")
	writeJSON(w, reqLog, http.StatusCreated, v)
}

func (a *app) handleGetSession(w http.ResponseWriter, r *http.Request) {
	reqLog := a.log.WithRequest(r).WithField("handler", "get_session")
	v, err := a.registry.Get(r.PathValue("id"))
	if err != nil {
		a.fail(w, reqLog, err)
		return
	}
	writeJSON(w, reqLog, http.StatusOK, v)
}

func (a *app) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	reqLog := a.log.WithRequest(r).WithField("handler", "delete_session")
	if err := a.registry.Delete(r.PathValue("id")); err != nil {
		a.fail(w, reqLog, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *app) handleStart(w http.ResponseWriter, r *http.Request) {
	reqLog := a.log.WithRequest(r).WithField("handler", "start")
	ctx, cancel := context.WithTimeout(r.Context(), a.cfg.Server.TurnTimeout)
	defer cancel()

	v, err := a.registry.Start(ctx, r.PathValue("id"))
	if err != nil {
		a.fail(w, reqLog, err)
		return
	}
	writeJSON(w, reqLog, http.StatusOK, v)
}

// respondRequest is the JSON form of an answer. Audio arrives base64 encoded.
type respondRequest struct {
	Audio       []byte              `json:"audio"`
	ContentType string              `json:"contentType"`
	Metrics     *types.VoiceMetrics `json:"metrics"`
	Samples     []voice.Sample      `json:"samples"`
	DurationMs  int64               `json:"durationMs"`
	Transcript  string              `json:"transcript"`
}

func (a *app) handleRespond(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	reqLog := a.log.WithRequest(r).WithField("handler", "respond").WithField("session_id", id)

	in, err := a.submitInput(w, r)
	if err != nil {
		a.fail(w, reqLog, err)
		return
	}
	reqLog.WithField("audio_bytes", len(in.Audio)).Info("response received")

	ctx, cancel := context.WithTimeout(r.Context(), a.cfg.Server.TurnTimeout)
	defer cancel()

	res, err := a.registry.Respond(ctx, id, in)
	reqLog = reqLog.WithField("duration_ms", res.DurationMs)
	if err != nil {
		a.fail(w, reqLog, err)
		return
	}
	if e := res.Exchange.Response.Emotion; e != nil {
		reqLog = reqLog.WithField("emotion", e.Emotion).WithField("source", e.Source)
	}
	reqLog.Info("turn processed")
	writeJSON(w, reqLog, http.StatusOK, res)
}

// submitInput accepts either multipart/form-data (audio file, metrics JSON
// field, transcript field) or a JSON respondRequest.
func (a *app) submitInput(w http.ResponseWriter, r *http.Request) (pipeline.SubmitInput, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)

	var req respondRequest
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		if err := r.ParseMultipartForm(maxBodyBytes); err != nil {
			return pipeline.SubmitInput{}, badRequest("invalid form: %v", err)
		}
		req.Transcript = r.FormValue("transcript")
		if raw := r.FormValue("metrics"); raw != "" {
			req.Metrics = &types.VoiceMetrics{}
			if err := json.Unmarshal([]byte(raw), req.Metrics); err != nil {
				return pipeline.SubmitInput{}, badRequest("invalid metrics: %v", err)
			}
		}
		file, hdr, err := r.FormFile("audio")
		switch {
		case errors.Is(err, http.ErrMissingFile):
		case err != nil:
			return pipeline.SubmitInput{}, badRequest("invalid audio: %v", err)
		default:
			defer file.Close()
			if req.Audio, err = io.ReadAll(file); err != nil {
				return pipeline.SubmitInput{}, badRequest("read audio: %v", err)
			}
			req.ContentType = hdr.Header.Get("Content-Type")
		}
	} else if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return pipeline.SubmitInput{}, badRequest("invalid JSON: %v", err)
	}

	m, err := a.metrics(req.Metrics, req.Samples, req.DurationMs)
	if err != nil {
		return pipeline.SubmitInput{}, err
	}
	return pipeline.SubmitInput{
		Audio:            req.Audio,
		ContentType:      req.ContentType,
		Metrics:          m,
		ManualTranscript: req.Transcript,
	}, nil
}

func (a *app) handleReset(w http.ResponseWriter, r *http.Request) {
	reqLog := a.log.WithRequest(r).WithField("handler", "reset")
	v, err := a.registry.Reset(r.PathValue("id"))
	if err != nil {
		a.fail(w, reqLog, err)
		return
	}
	writeJSON(w, reqLog, http.StatusOK, v)
}

func (a *app) handleEnd(w http.ResponseWriter, r *http.Request) {
	reqLog := a.log.WithRequest(r).WithField("handler", "end")
	v, err := a.registry.End(r.PathValue("id"))
	if err != nil {
		a.fail(w, reqLog, err)
		return
	}
	writeJSON(w, reqLog, http.StatusOK, v)
}

func (a *app) handleSummary(w http.ResponseWriter, r *http.Request) {
	reqLog := a.log.WithRequest(r).WithField("handler", "summary")
	sum, err := a.registry.Summarize(r.PathValue("id"))
	if err != nil {
		a.fail(w, reqLog, err)
		return
	}
	writeJSON(w, reqLog, http.StatusOK, sum)
}

func (a *app) handleExport(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	reqLog := a.log.WithRequest(r).WithField("handler", "export").WithField("session_id", id)

	var turns []types.ConversationTurn
	err := a.registry.Do(id, func(s *pipeline.Session) error {
		turns = s.Conversation()
		return nil
	})
	if err != nil {
		a.fail(w, reqLog, err)
		return
	}

	var buf bytes.Buffer
	if err := dataset.WriteConversation(&buf, id, turns); err != nil {
		a.fail(w, reqLog, err)
		return
	}
	w.Header().Set("Content-Type", xlsxType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", "interview-"+id+".xlsx"))
	if _, err := buf.WriteTo(w); err != nil {
		reqLog.WithError(err).Error("failed to write export")
	}
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return badRequest("invalid JSON: %v", err)
	}
	return nil
}

func statusFor(err error) int {
	var orch *pipeline.OrchestrationError
	switch {
	case errors.Is(err, errBadRequest), errors.Is(err, questions.ErrEmptyBrief):
		return http.StatusBadRequest
	case errors.Is(err, processor.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, processor.ErrBusy), errors.Is(err, pipeline.ErrInvalidState):
		return http.StatusConflict
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.As(err, &orch):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func (a *app) fail(w http.ResponseWriter, reqLog *logrus.Entry, err error) {
	status := statusFor(err)
	entry := reqLog.WithError(err).WithField("status", status)
	if status >= http.StatusInternalServerError {
		entry.Error("request failed")
	} else {
		entry.Warn("request rejected")
	}
	writeJSON(w, reqLog, status, map[string]string{"error": err.Error()})
}

func writeJSON(w http.ResponseWriter, reqLog *logrus.Entry, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		reqLog.WithError(err).Error("failed to write response")
	}
}
