package types

import (
	"testing"
	"time"
)

func TestRuntimeConfig_Getters_NilReturnsDefaults(t *testing.T) {
	var r *RuntimeConfig

	if got := r.GetUserAgent(); got != DefaultUserAgent {
		t.Errorf("GetUserAgent = %q, want %q", got, DefaultUserAgent)
	}
	if got := r.GetWorkerBufferSize(); got != DefaultWorkerBufferSize {
		t.Errorf("GetWorkerBufferSize = %d, want %d", got, DefaultWorkerBufferSize)
	}
	if got := r.GetMaxTaskRetries(); got != DefaultMaxTaskRetries {
		t.Errorf("GetMaxTaskRetries = %d, want %d", got, DefaultMaxTaskRetries)
	}
	if got := r.GetRequestTimeout(); got != DefaultRequestTimeout {
		t.Errorf("GetRequestTimeout = %v, want %v", got, DefaultRequestTimeout)
	}
	if got := r.GetProbeTimeout(); got != DefaultProbeTimeout {
		t.Errorf("GetProbeTimeout = %v, want %v", got, DefaultProbeTimeout)
	}
	if got := r.GetProbeRetries(); got != DefaultProbeRetries {
		t.Errorf("GetProbeRetries = %d, want %d", got, DefaultProbeRetries)
	}
	if got := r.GetSpeedEMAAlpha(); got != DefaultSpeedEMAAlpha {
		t.Errorf("GetSpeedEMAAlpha = %f, want %f", got, DefaultSpeedEMAAlpha)
	}
}

func TestRuntimeConfig_Getters_ZeroValueReturnsDefaults(t *testing.T) {
	r := &RuntimeConfig{}

	if got := r.GetWorkerBufferSize(); got != DefaultWorkerBufferSize {
		t.Errorf("GetWorkerBufferSize = %d, want %d", got, DefaultWorkerBufferSize)
	}
	if got := r.GetMaxTaskRetries(); got != DefaultMaxTaskRetries {
		t.Errorf("GetMaxTaskRetries = %d, want %d", got, DefaultMaxTaskRetries)
	}
	if got := r.GetProbeRetries(); got != DefaultProbeRetries {
		t.Errorf("GetProbeRetries = %d, want %d", got, DefaultProbeRetries)
	}
}

func TestRuntimeConfig_Getters_CustomValuesReturned(t *testing.T) {
	r := &RuntimeConfig{
		UserAgent:        "CustomAgent/1.0",
		WorkerBufferSize: 1 * MB,
		MaxTaskRetries:   5,
		RequestTimeout:   30 * time.Second,
		ProbeTimeout:     10 * time.Second,
		ProbeRetries:     2,
		SpeedEMAAlpha:    0.5,
	}

	if got := r.GetUserAgent(); got != "CustomAgent/1.0" {
		t.Errorf("GetUserAgent = %q, want CustomAgent/1.0", got)
	}
	if got := r.GetWorkerBufferSize(); got != 1*MB {
		t.Errorf("GetWorkerBufferSize = %d, want %d", got, 1*MB)
	}
	if got := r.GetMaxTaskRetries(); got != 5 {
		t.Errorf("GetMaxTaskRetries = %d, want 5", got)
	}
	if got := r.GetRequestTimeout(); got != 30*time.Second {
		t.Errorf("GetRequestTimeout = %v, want 30s", got)
	}
	if got := r.GetProbeTimeout(); got != 10*time.Second {
		t.Errorf("GetProbeTimeout = %v, want 10s", got)
	}
	if got := r.GetProbeRetries(); got != 2 {
		t.Errorf("GetProbeRetries = %d, want 2", got)
	}
	if got := r.GetSpeedEMAAlpha(); got != 0.5 {
		t.Errorf("GetSpeedEMAAlpha = %f, want 0.5", got)
	}
}

func TestSizeConstants(t *testing.T) {
	if KB != 1024 {
		t.Errorf("KB = %d, want 1024", KB)
	}
	if MB != 1024*KB {
		t.Errorf("MB = %d, want %d", MB, 1024*KB)
	}
	if GB != 1024*MB {
		t.Errorf("GB = %d, want %d", GB, 1024*MB)
	}
}

func TestTimeoutConstants_ArePositiveAndReasonable(t *testing.T) {
	timeouts := map[string]time.Duration{
		"DefaultRequestTimeout": DefaultRequestTimeout,
		"DefaultProbeTimeout":   DefaultProbeTimeout,
	}
	for name, timeout := range timeouts {
		if timeout <= 0 {
			t.Errorf("%s = %v, should be positive", name, timeout)
		}
		if timeout > 5*time.Minute {
			t.Errorf("%s = %v, seems too long", name, timeout)
		}
	}
}
