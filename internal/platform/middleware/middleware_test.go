package middleware

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/clinic/clinic/internal/platform/auth"
)

func okHandler(c echo.Context) error {
	return c.String(http.StatusOK, "ok")
}

func TestRequestID_GeneratesNew(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	handler := func(c echo.Context) error {
		if rid, _ := c.Get("request_id").(string); rid == "" {
			t.Error("expected request_id to be generated")
		}
		return c.String(http.StatusOK, "ok")
	}

	if err := RequestID()(handler)(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Header().Get(RequestIDHeader) == "" {
		t.Error("expected X-Request-ID response header")
	}
}

func TestRequestID_PreservesExisting(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, "my-custom-id")
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	_ = RequestID()(okHandler)(c)

	if got := c.Get("request_id"); got != "my-custom-id" {
		t.Errorf("expected my-custom-id, got %v", got)
	}
	if rec.Header().Get(RequestIDHeader) != "my-custom-id" {
		t.Errorf("expected my-custom-id in response header, got %s", rec.Header().Get(RequestIDHeader))
	}
}

func TestLogger_LogsRequest(t *testing.T) {
	var buf bytes.Buffer
	logger := zerolog.New(&buf)
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/patients", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.Set("request_id", "req-1")
	c.Set("role", "nurse")

	handler := func(c echo.Context) error {
		zerolog.Ctx(c.Request().Context()).Info().Msg("inside")
		return c.String(http.StatusOK, "ok")
	}

	if err := Logger(logger)(handler)(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 log lines, got %d: %s", len(lines), buf.String())
	}
	var entry map[string]interface{}
	if err := json.Unmarshal([]byte(lines[1]), &entry); err != nil {
		t.Fatal(err)
	}
	if entry["role"] != "nurse" || entry["path"] != "/api/v1/patients" || entry["request_id"] != "req-1" {
		t.Errorf("unexpected log entry %v", entry)
	}
	if !strings.Contains(lines[0], `"request_id":"req-1"`) {
		t.Errorf("expected request scoped logger to carry request_id: %s", lines[0])
	}
}

func TestLogger_UsesHTTPErrorStatus(t *testing.T) {
	var buf bytes.Buffer
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	c := e.NewContext(req, httptest.NewRecorder())

	_ = Logger(zerolog.New(&buf))(func(echo.Context) error {
		return echo.NewHTTPError(http.StatusNotFound, "patient not found")
	})(c)

	if !strings.Contains(buf.String(), `"status":404`) {
		t.Errorf("expected status 404 in log, got %s", buf.String())
	}
}

func TestRecovery_CatchesPanic(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/panic", nil)
	c := e.NewContext(req, httptest.NewRecorder())

	err := Recovery(zerolog.Nop())(func(echo.Context) error {
		panic("test panic")
	})(c)

	var httpErr *echo.HTTPError
	if !errors.As(err, &httpErr) {
		t.Fatalf("expected echo.HTTPError, got %T", err)
	}
	if httpErr.Code != http.StatusInternalServerError {
		t.Errorf("expected 500, got %d", httpErr.Code)
	}
}

func TestRecovery_PassesThrough(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/ok", nil)
	c := e.NewContext(req, httptest.NewRecorder())

	if err := Recovery(zerolog.Nop())(okHandler)(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestAudit_RecordsPatientAccess(t *testing.T) {
	patientID := uuid.New()
	staffID := uuid.New()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/patients/"+patientID.String()+"/history", nil)
	s := &auth.Session{ID: "s1", StaffID: staffID, Role: auth.RoleDoctor, ExpiresAt: time.Now().Add(time.Hour)}
	req = req.WithContext(auth.WithSession(req.Context(), s))
	c := e.NewContext(req, httptest.NewRecorder())
	c.Set("request_id", "req-123")

	var got AuditEntry
	rec := AuditRecorderFunc(func(entry AuditEntry) error {
		got = entry
		return nil
	})

	if err := Audit(zerolog.Nop(), rec)(okHandler)(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.PatientID != patientID.String() {
		t.Errorf("expected patient id %s, got %q", patientID, got.PatientID)
	}
	if got.StaffID != staffID.String() || got.Role != "doctor" {
		t.Errorf("unexpected actor %q/%q", got.StaffID, got.Role)
	}
	if got.Resource != "patients" || got.Action != "read" || got.RequestID != "req-123" {
		t.Errorf("unexpected entry %+v", got)
	}
}

func TestAudit_QueryPatientAndSkipsNonAPI(t *testing.T) {
	e := echo.New()
	var calls int
	rec := AuditRecorderFunc(func(entry AuditEntry) error {
		calls++
		if entry.PatientID != "p-1" || entry.Action != "create" {
			t.Errorf("unexpected entry %+v", entry)
		}
		return nil
	})
	mw := Audit(zerolog.Nop(), rec)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/diagnoses?patient_id=p-1", nil)
	_ = mw(okHandler)(e.NewContext(req, httptest.NewRecorder()))

	req = httptest.NewRequest(http.MethodGet, "/health", nil)
	_ = mw(okHandler)(e.NewContext(req, httptest.NewRecorder()))

	if calls != 1 {
		t.Errorf("expected 1 audit entry, got %d", calls)
	}
}

func TestHTTPMethodToAction(t *testing.T) {
	tests := map[string]string{
		http.MethodGet:    "read",
		http.MethodPost:   "create",
		http.MethodPut:    "update",
		http.MethodPatch:  "update",
		http.MethodDelete: "delete",
	}
	for method, want := range tests {
		if got := httpMethodToAction(method); got != want {
			t.Errorf("%s: expected %s, got %s", method, want, got)
		}
	}
}
