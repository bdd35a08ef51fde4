package handlers

import (
	"errors"
	"net/http"
	"testing"
)

func TestHealth(t *testing.T) {
	t.Parallel()

	f := newHandlerFixture(t)
	w := f.do(t, http.MethodGet, "/health", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	resp := decodeJSON[map[string]any](t, w.Body.Bytes())
	if resp["status"] != "healthy" || resp["service"] != "vmshift-api" {
		t.Fatalf("unexpected body: %v", resp)
	}
}

func TestDetailedHealthDegradedOnDatabaseFailure(t *testing.T) {
	t.Parallel()

	f := newHandlerFixture(t)
	f.db.err = errors.New("connection refused")

	w := f.do(t, http.MethodGet, "/health/detailed", "")
	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusServiceUnavailable)
	}
	resp := decodeJSON[struct {
		Status       string `json:"status"`
		Dependencies struct {
			Database struct {
				Status string `json:"status"`
			} `json:"database"`
			Queue struct {
				Status string `json:"status"`
			} `json:"queue"`
		} `json:"dependencies"`
	}](t, w.Body.Bytes())
	if resp.Status != "degraded" {
		t.Fatalf("status = %q, want degraded", resp.Status)
	}
	if resp.Dependencies.Database.Status != "unhealthy" || resp.Dependencies.Queue.Status != "healthy" {
		t.Fatalf("unexpected dependency report: %+v", resp.Dependencies)
	}
}

func TestDetailedHealthHealthy(t *testing.T) {
	t.Parallel()

	f := newHandlerFixture(t)
	w := f.do(t, http.MethodGet, "/health/detailed", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d body=%s", w.Code, w.Body.String())
	}
}

func TestReadyReflectsDatabase(t *testing.T) {
	t.Parallel()

	f := newHandlerFixture(t)
	w := f.do(t, http.MethodGet, "/ready", "")
	if w.Code != http.StatusOK {
		t.Fatalf("ready status = %d", w.Code)
	}

	f.db.err = errors.New("connection refused")
	w = f.do(t, http.MethodGet, "/ready", "")
	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("ready status = %d, want %d", w.Code, http.StatusServiceUnavailable)
	}
}

func TestRootBanner(t *testing.T) {
	t.Parallel()

	f := newHandlerFixture(t)
	w := f.do(t, http.MethodGet, "/", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	resp := decodeJSON[map[string]any](t, w.Body.Bytes())
	if resp["version"] != "1.0.0" {
		t.Fatalf("version = %v", resp["version"])
	}
}
