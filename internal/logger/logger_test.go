package logger

import (
	"errors"
	"net/http/httptest"
	"testing"

	"github.com/sirupsen/logrus"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]logrus.Level{
		"debug": logrus.DebugLevel,
		"warn":  logrus.WarnLevel,
		"error": logrus.ErrorLevel,
		"":      logrus.InfoLevel,
		"bogus": logrus.InfoLevel,
	}
	for in, want := range cases {
		if got := parseLevel(in); got != want {
			t.Fatalf("parseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestWithRequestKeepsHeaderID(t *testing.T) {
	r := httptest.NewRequest("GET", "/healthz", nil)
	r.Header.Set("X-Request-ID", "abc")
	e := Discard().WithRequest(r)
	if e.Data["req_id"] != "abc" {
		t.Fatalf("expected req_id=abc, got %v", e.Data["req_id"])
	}
	if e.Data["path"] != "/healthz" {
		t.Fatalf("expected path=/healthz, got %v", e.Data["path"])
	}
}

func TestWithRequestGeneratesID(t *testing.T) {
	r := httptest.NewRequest("GET", "/", nil)
	e := Discard().WithRequest(r)
	id, _ := e.Data["req_id"].(string)
	if len(id) != 36 {
		t.Fatalf("expected generated uuid, got %q", id)
	}
}

func TestWithErrorNil(t *testing.T) {
	l := Discard()
	if e := l.WithError(nil); e != l.Entry {
		t.Fatal("nil error should return the base entry")
	}
	e := l.WithError(errors.New("boom"))
	if e.Data["error"] != "boom" {
		t.Fatalf("expected error field, got %v", e.Data["error"])
	}
}

func TestWithSession(t *testing.T) {
	e := Discard().WithSession("s-1")
	if e.Data["session_id"] != "s-1" {
		t.Fatalf("expected session_id, got %v", e.Data["session_id"])
	}
}

func TestSetLevel(t *testing.T) {
	l := Discard()
	l.SetLevel("debug")
	if l.Logger.GetLevel() != logrus.DebugLevel {
		t.Fatalf("expected debug level, got %v", l.Logger.GetLevel())
	}
	derived := l.WithSession("s-1")
	l.SetLevel("error")
	if derived.Logger.GetLevel() != logrus.ErrorLevel {
		t.Fatalf("derived entries should follow the level change")
	}
}
