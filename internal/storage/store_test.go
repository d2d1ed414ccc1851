package storage

import (
	"context"
	"math"
	"path/filepath"
	"testing"
	"time"

	"github.com/phaseline/phylink/internal/csi"
	"github.com/phaseline/phylink/internal/dsp"
	"github.com/phaseline/phylink/internal/spatial"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()

	s := New(filepath.Join(t.TempDir(), "test.sqlite"))
	t.Cleanup(func() {
		if err := s.Close(); err != nil {
			t.Errorf("Closing store: %v", err)
		}
	})
	return s
}

func TestStore_Sessions(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	config := "mode: sound"
	id, err := s.CreateSession(ctx, "sound", &config)
	if err != nil {
		t.Fatalf("CreateSession failed: %v", err)
	}
	if _, err = s.CreateSession(ctx, "doa", nil); err != nil {
		t.Fatalf("CreateSession failed: %v", err)
	}

	sess, err := s.Session(ctx, id)
	if err != nil {
		t.Fatalf("Session failed: %v", err)
	}
	if sess.Mode != "sound" {
		t.Errorf("Expected mode sound, got %s", sess.Mode)
	}
	if sess.Config == nil || *sess.Config != config {
		t.Errorf("Expected stored config %q, got %v", config, sess.Config)
	}

	sessions, err := s.Sessions(ctx)
	if err != nil {
		t.Fatalf("Sessions failed: %v", err)
	}
	if len(sessions) != 2 {
		t.Errorf("Expected 2 sessions, got %d", len(sessions))
	}
}

func TestStore_DetectionRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	id, err := s.CreateSession(ctx, "sound", nil)
	if err != nil {
		t.Fatalf("CreateSession failed: %v", err)
	}

	det := &dsp.Detection{
		PeakIndex:  600,
		PeakValue:  12.5,
		SNRdB:      31.4,
		NoiseFloor: 0.01,
	}
	if err = s.StoreDetection(ctx, id, time.Now(), det); err != nil {
		t.Fatalf("StoreDetection failed: %v", err)
	}
}

func TestStore_CFRHistory(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	id, err := s.CreateSession(ctx, "csi", nil)
	if err != nil {
		t.Fatalf("CreateSession failed: %v", err)
	}

	cfr := []float64{-20.5, -18.2, -30.0, -25.1}
	metrics := &csi.Metrics{
		RMSDelaySpread:     2e-6,
		CoherenceBandwidth: 1e5,
		CFRMagDB:           cfr,
	}
	decision := &csi.Decision{
		State:    csi.Monitoring,
		Score:    1.25,
		Detected: true,
	}

	base := time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		if err = s.StoreMetrics(ctx, id, base.Add(time.Duration(i)*time.Second), metrics, decision); err != nil {
			t.Fatalf("StoreMetrics %d failed: %v", i, err)
		}
	}

	records, err := s.CFRHistory(ctx, id)
	if err != nil {
		t.Fatalf("CFRHistory failed: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("Expected 3 records, got %d", len(records))
	}

	rec := records[0]
	if rec.RMSDelaySpread != metrics.RMSDelaySpread {
		t.Errorf("Expected delay spread %g, got %g", metrics.RMSDelaySpread, rec.RMSDelaySpread)
	}
	if rec.AnomalyScore == nil || *rec.AnomalyScore != decision.Score {
		t.Errorf("Expected anomaly score %g, got %v", decision.Score, rec.AnomalyScore)
	}
	if len(rec.CFRMagDB) != len(cfr) {
		t.Fatalf("Expected %d frequency bins, got %d", len(cfr), len(rec.CFRMagDB))
	}
	for i, want := range cfr {
		if math.Abs(rec.CFRMagDB[i]-want) > 1e-12 {
			t.Errorf("Bin %d: expected %g, got %g", i, want, rec.CFRMagDB[i])
		}
	}
}

func TestStore_CalibratingDecisionNotScored(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	id, err := s.CreateSession(ctx, "detect", nil)
	if err != nil {
		t.Fatalf("CreateSession failed: %v", err)
	}

	metrics := &csi.Metrics{CFRMagDB: []float64{-10, -12}}
	decision := &csi.Decision{State: csi.Calibrating, FramesCollected: 3}
	if err = s.StoreMetrics(ctx, id, time.Now(), metrics, decision); err != nil {
		t.Fatalf("StoreMetrics failed: %v", err)
	}

	records, err := s.CFRHistory(ctx, id)
	if err != nil {
		t.Fatalf("CFRHistory failed: %v", err)
	}
	if records[0].AnomalyScore != nil {
		t.Error("Calibration-phase rows should not carry an anomaly score")
	}
}

func TestStore_AnglesAndMessages(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	id, err := s.CreateSession(ctx, "doa", nil)
	if err != nil {
		t.Fatalf("CreateSession failed: %v", err)
	}

	est := spatial.AngleEstimate{AngleDeg: 30, RawPhaseRad: 1.57, CorrectedPhaseRad: 1.55}
	if err = s.StoreAngle(ctx, id, time.Now(), est); err != nil {
		t.Fatalf("StoreAngle failed: %v", err)
	}
	if err = s.StoreMessage(ctx, id, time.Now(), "Hello World"); err != nil {
		t.Fatalf("StoreMessage failed: %v", err)
	}
}

func TestVectorCodec(t *testing.T) {
	in := []float64{0, -1.5, math.Pi, 1e-12}

	out, err := decodeVector(encodeVector(in))
	if err != nil {
		t.Fatalf("decodeVector failed: %v", err)
	}
	for i := range in {
		if out[i] != in[i] {
			t.Errorf("Value %d: expected %g, got %g", i, in[i], out[i])
		}
	}

	if _, err = decodeVector([]byte{1, 2, 3}); err == nil {
		t.Error("Truncated blob should fail to decode")
	}
}
