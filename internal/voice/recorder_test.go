package voice

import (
	"testing"
	"time"
)

func TestRecorder_SnapshotCadence(t *testing.T) {
	r := NewRecorder(nil)
	for i := 0; i < 20; i++ {
		r.AddSample(60, int64(i*50))
	}
	if _, ok := r.Snapshot(400 * time.Millisecond); ok {
		t.Fatal("snapshot before the minimum live elapsed time")
	}
	if _, ok := r.Snapshot(600 * time.Millisecond); !ok {
		t.Fatal("expected first snapshot")
	}
	if _, ok := r.Snapshot(800 * time.Millisecond); ok {
		t.Fatal("snapshot inside the cadence window")
	}
	if _, ok := r.Snapshot(900 * time.Millisecond); !ok {
		t.Fatal("expected snapshot after the cadence window")
	}
}

func TestRecorder_FinalMatchesCompute(t *testing.T) {
	r := NewRecorder(nil)
	for i := 0; i < 30; i++ {
		v := 55.0
		if i%10 > 6 {
			v = 3
		}
		r.AddSample(v, int64(i*50))
	}
	got, ok := r.Final(1500 * time.Millisecond)
	if !ok {
		t.Fatal("expected final metrics")
	}
	want, _ := r.agg.Compute(r.Samples(), 1500*time.Millisecond)
	if got != want {
		t.Fatalf("final %+v != compute %+v", got, want)
	}
}

func TestRecorder_EmptyFinal(t *testing.T) {
	r := NewRecorder(nil)
	if _, ok := r.Final(time.Second); ok {
		t.Fatal("expected no result without samples")
	}
	r.AddSample(40, 0)
	r.Reset()
	if len(r.Samples()) != 0 {
		t.Fatal("reset should drop samples")
	}
}

func TestRMSVolume(t *testing.T) {
	silent := make([]byte, 64)
	for i := range silent {
		silent[i] = 128
	}
	if v := RMSVolume(silent); v != 0 {
		t.Fatalf("expected 0 for silence, got %v", v)
	}
	loud := make([]byte, 64)
	for i := range loud {
		if i%2 == 0 {
			loud[i] = 0
		} else {
			loud[i] = 255
		}
	}
	if v := RMSVolume(loud); v < 99 || v > 100 {
		t.Fatalf("expected ~100 for full scale, got %v", v)
	}
	if v := RMSVolume(nil); v != 0 {
		t.Fatalf("expected 0 for empty frame, got %v", v)
	}
}

func TestRecorder_AddFrame(t *testing.T) {
	r := NewRecorder(nil)
	frame := []byte{128, 128, 128, 128}
	if v := r.AddFrame(frame, 0); v != 0 {
		t.Fatalf("expected 0, got %v", v)
	}
	if len(r.Samples()) != 1 {
		t.Fatal("frame should be recorded as a sample")
	}
}
