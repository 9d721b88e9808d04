package controlapi

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/formorer/ProxLB/internal/config"
	"github.com/formorer/ProxLB/internal/domain"
	"github.com/formorer/ProxLB/internal/token"
)

type fakeReportSource struct {
	report *domain.CycleReport
	err    error
}

func (f *fakeReportSource) LatestReport(ctx context.Context) (*domain.CycleReport, error) {
	return f.report, f.err
}

func testServer(t *testing.T, reports ReportSource) (*Server, string) {
	t.Helper()
	cfg := config.ControlAPIConfig{JWTSecret: "test-secret", CORSOrigins: []string{"*"}}
	s := New(cfg, reports, nil, make(chan struct{}, 1), zap.NewNop())

	mgr := token.NewManager(cfg.JWTSecret)
	signed, err := mgr.Issue("operator", time.Hour)
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}
	return s, signed
}

func TestHandleStatus_RequiresBearerToken(t *testing.T) {
	s, _ := testServer(t, &fakeReportSource{report: &domain.CycleReport{}})

	req := httptest.NewRequest(http.MethodGet, "/status", nil)
	rec := httptest.NewRecorder()
	s.mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without a token, got %d", rec.Code)
	}
}

func TestHandleStatus_AcceptsValidToken(t *testing.T) {
	report := &domain.CycleReport{
		Plan: domain.MigrationPlan{{VMName: "web-01", VMID: 100, FromNode: "pve1", ToNode: "pve2"}},
	}
	s, signed := testServer(t, &fakeReportSource{report: report})

	req := httptest.NewRequest(http.MethodGet, "/status", nil)
	req.Header.Set("Authorization", "Bearer "+signed)
	rec := httptest.NewRecorder()
	s.mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestHandleStatus_ReportUnavailable(t *testing.T) {
	s, signed := testServer(t, &fakeReportSource{err: context.DeadlineExceeded})

	req := httptest.NewRequest(http.MethodGet, "/status", nil)
	req.Header.Set("Authorization", "Bearer "+signed)
	rec := httptest.NewRecorder()
	s.mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 when no report is available, got %d", rec.Code)
	}
}

func TestHandleTrigger_AcceptsThenConflicts(t *testing.T) {
	s, signed := testServer(t, &fakeReportSource{report: &domain.CycleReport{}})

	req := func() *http.Request {
		r := httptest.NewRequest(http.MethodPost, "/trigger", nil)
		r.Header.Set("Authorization", "Bearer "+signed)
		return r
	}

	rec := httptest.NewRecorder()
	s.mux.ServeHTTP(rec, req())
	if rec.Code != http.StatusAccepted {
		t.Fatalf("expected first trigger to be accepted, got %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	s.mux.ServeHTTP(rec, req())
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected a second queued trigger to conflict, got %d", rec.Code)
	}
}

func TestHandleHealthz_NoAuthRequired(t *testing.T) {
	s, _ := testServer(t, &fakeReportSource{report: &domain.CycleReport{}})

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	s.mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected /healthz to require no auth, got %d", rec.Code)
	}
}
