package main

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/xuri/excelize/v2"

	"voice-interviewer-go/internal/config"
	"voice-interviewer-go/internal/logger"
	"voice-interviewer-go/internal/pipeline"
	"voice-interviewer-go/internal/processor"
	"voice-interviewer-go/internal/types"
)

func testServer(t *testing.T) *httptest.Server {
	t.Helper()
	cfg := config.Default()
	cfg.LLM.Mock = true
	cfg.Transcription.Mock = true
	a, err := newApp(&cfg, logger.Discard())
	if err != nil {
		t.Fatalf("new app: %v", err)
	}
	srv := httptest.NewServer(a.routes())
	t.Cleanup(srv.Close)
	return srv
}

func post(t *testing.T, url, body string) *http.Response {
	t.Helper()
	resp, err := http.Post(url, "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatalf("post %s: %v", url, err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decode(t *testing.T, resp *http.Response, v any) {
	t.Helper()
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		t.Fatalf("decode: %v", err)
	}
}

func createSession(t *testing.T, srv *httptest.Server, body string) processor.View {
	t.Helper()
	resp := post(t, srv.URL+"/sessions", body)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201, got %d", resp.StatusCode)
	}
	var v processor.View
	decode(t, resp, &v)
	return v
}

func TestHealthz(t *testing.T) {
	srv := testServer(t)
	resp, err := http.Get(srv.URL + "/healthz")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
}

func TestClassify(t *testing.T) {
	srv := testServer(t)
	resp := post(t, srv.URL+"/classify", `{"metrics":{"avgVolume":80,"volumeVariance":0.05,"speechRate":170,"avgPause":200,"peakVolume":90},"transcript":"I love how quick checkout is now"}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	var out classifyResponse
	decode(t, resp, &out)
	if out.Emotion != types.Enthusiasm || out.Source != types.SourceHeuristic {
		t.Fatalf("unexpected result %+v", out)
	}
	if out.Color == "" || out.Propensities.Enthusiasm <= 0 {
		t.Fatalf("expected color and propensities, got %+v", out)
	}
}

func TestClassify_BadInput(t *testing.T) {
	srv := testServer(t)
	if resp := post(t, srv.URL+"/classify", `{"metrics":`); resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 for bad JSON, got %d", resp.StatusCode)
	}
	if resp := post(t, srv.URL+"/classify", `{"samples":[{"value":50,"timestampMs":0}]}`); resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 for samples without duration, got %d", resp.StatusCode)
	}
}

func TestClassify_EmptyRecordingRejected(t *testing.T) {
	srv := testServer(t)
	for _, body := range []string{`{"transcript":"I guess it was fine"}`, `{"samples":[],"durationMs":2000}`} {
		if resp := post(t, srv.URL+"/classify", body); resp.StatusCode != http.StatusBadRequest {
			t.Fatalf("%s: expected 400, got %d", body, resp.StatusCode)
		}
	}
}

func TestSession_EmptyRecordingRejected(t *testing.T) {
	srv := testServer(t)
	v := createSession(t, srv, "")

	for _, body := range []string{`{"samples":[]}`, `{"transcript":"I guess"}`} {
		if resp := post(t, srv.URL+"/sessions/"+v.ID+"/responses", body); resp.StatusCode != http.StatusBadRequest {
			t.Fatalf("%s: expected 400, got %d", body, resp.StatusCode)
		}
	}

	resp, err := http.Get(srv.URL + "/sessions/" + v.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()
	var got processor.View
	decode(t, resp, &got)
	if len(got.Conversation) != 1 || got.State != pipeline.AwaitingResponse {
		t.Fatalf("rejected answers must not touch the session: %+v", got)
	}
}

func TestGuides(t *testing.T) {
	srv := testServer(t)
	if resp := post(t, srv.URL+"/guides", `{"brief":"  "}`); resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 for empty brief, got %d", resp.StatusCode)
	}
	resp := post(t, srv.URL+"/guides", `{"brief":"Why do shoppers abandon carts?"}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	var out struct {
		Guide types.DiscussionGuide `json:"guide"`
	}
	decode(t, resp, &out)
	if len(out.Guide.Sections) == 0 {
		t.Fatalf("expected a guide, got %+v", out)
	}
}

func TestSession_Flow(t *testing.T) {
	srv := testServer(t)
	v := createSession(t, srv, `{"template":"product_feedback"}`)
	if v.State != pipeline.AwaitingResponse || v.CurrentQuestion == "" || len(v.Conversation) != 1 {
		t.Fatalf("unexpected session %+v", v)
	}

	resp := post(t, srv.URL+"/sessions/"+v.ID+"/responses", `{"metrics":{"avgVolume":80,"volumeVariance":0.05,"speechRate":170,"avgPause":200,"peakVolume":90},"transcript":"Honestly the new search is great"}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	var res processor.TurnResult
	decode(t, resp, &res)
	if res.Exchange.Response.Content != "Honestly the new search is great" {
		t.Fatalf("manual transcript not kept: %+v", res.Exchange.Response)
	}
	if e := res.Exchange.Response.Emotion; e == nil || e.Emotion != types.Enthusiasm {
		t.Fatalf("expected enthusiasm, got %+v", e)
	}
	if res.Exchange.Question.Content == "" || res.ActionCard.Action == "" {
		t.Fatalf("expected next question and action card, got %+v", res)
	}

	getResp, err := http.Get(srv.URL + "/sessions/" + v.ID + "/summary")
	if err != nil {
		t.Fatalf("summary: %v", err)
	}
	defer getResp.Body.Close()
	var sum processor.Summary
	decode(t, getResp, &sum)
	if sum.Insight.Responses != 1 || sum.Insight.Dominant != types.Enthusiasm {
		t.Fatalf("unexpected summary %+v", sum)
	}

	if resp := post(t, srv.URL+"/sessions/"+v.ID+"/end", ""); resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200 on end, got %d", resp.StatusCode)
	}
	if resp := post(t, srv.URL+"/sessions/"+v.ID+"/responses", `{"metrics":{"avgVolume":60,"speechRate":120},"transcript":"more"}`); resp.StatusCode != http.StatusConflict {
		t.Fatalf("expected 409 after end, got %d", resp.StatusCode)
	}

	resp = post(t, srv.URL+"/sessions/"+v.ID+"/reset", "")
	var reset processor.View
	decode(t, resp, &reset)
	if reset.State != pipeline.NotStarted || len(reset.Conversation) != 0 {
		t.Fatalf("unexpected reset view %+v", reset)
	}
	if resp := post(t, srv.URL+"/sessions/"+v.ID+"/start", ""); resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200 on restart, got %d", resp.StatusCode)
	}
}

func TestSession_MultipartAudio(t *testing.T) {
	srv := testServer(t)
	v := createSession(t, srv, "")

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, _ := mw.CreateFormFile("audio", "answer.webm")
	fw.Write([]byte("not really audio"))
	mw.WriteField("metrics", `{"avgVolume":40,"volumeVariance":0.3,"speechRate":100,"avgPause":900,"peakVolume":60}`)
	mw.Close()

	resp, err := http.Post(srv.URL+"/sessions/"+v.ID+"/responses", mw.FormDataContentType(), &body)
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	var res processor.TurnResult
	decode(t, resp, &res)
	if !strings.HasPrefix(res.Exchange.Response.Content, "MOCK TRANSCRIPT") {
		t.Fatalf("expected mock transcript, got %q", res.Exchange.Response.Content)
	}
	if res.Exchange.Response.VoiceMetrics == nil || res.Exchange.Response.VoiceMetrics.AvgPause != 900 {
		t.Fatalf("metrics not forwarded: %+v", res.Exchange.Response.VoiceMetrics)
	}
}

func TestSession_GuideValidation(t *testing.T) {
	srv := testServer(t)
	if resp := post(t, srv.URL+"/sessions", `{"guide":{"title":"","sections":[]}}`); resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 for invalid guide, got %d", resp.StatusCode)
	}

	v := createSession(t, srv, `{"guide":{"title":"Checkout","sections":[{"title":"Intro","questions":["How often do you shop online?"]}]}}`)
	if v.Guide == nil || v.Guide.Title != "Checkout" {
		t.Fatalf("guide not attached: %+v", v)
	}
}

func TestSession_NotFound(t *testing.T) {
	srv := testServer(t)
	resp, err := http.Get(srv.URL + "/sessions/missing")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}
	if resp := post(t, srv.URL+"/sessions/missing/responses", `{"metrics":{"avgVolume":60,"speechRate":120},"transcript":"hi"}`); resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}
}

func TestSession_Export(t *testing.T) {
	srv := testServer(t)
	v := createSession(t, srv, "")
	post(t, srv.URL+"/sessions/"+v.ID+"/responses", `{"metrics":{"avgVolume":60,"speechRate":120},"transcript":"It works, mostly"}`)

	resp, err := http.Get(srv.URL + "/sessions/" + v.ID + "/export")
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK || resp.Header.Get("Content-Type") != xlsxType {
		t.Fatalf("unexpected export response %d %s", resp.StatusCode, resp.Header.Get("Content-Type"))
	}
	f, err := excelize.OpenReader(resp.Body)
	if err != nil {
		t.Fatalf("open workbook: %v", err)
	}
	defer f.Close()
	rows, err := f.GetRows("Conversation")
	if err != nil || len(rows) != 4 {
		t.Fatalf("expected header + 3 turns, got %d rows (%v)", len(rows), err)
	}
}

func TestStatusFor(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{badRequest("x"), http.StatusBadRequest},
		{processor.ErrNotFound, http.StatusNotFound},
		{processor.ErrBusy, http.StatusConflict},
		{pipeline.ErrInvalidState, http.StatusConflict},
		{&pipeline.OrchestrationError{Op: "generate question", Err: http.ErrHandlerTimeout}, http.StatusBadGateway},
	}
	for _, c := range cases {
		if got := statusFor(c.err); got != c.want {
			t.Errorf("statusFor(%v) = %d, want %d", c.err, got, c.want)
		}
	}
}
