package pharmacy

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
)

func expectStatus(t *testing.T, err error, want int) {
	t.Helper()
	var he *echo.HTTPError
	if !errors.As(err, &he) {
		t.Fatalf("expected HTTP error %d, got %v", want, err)
	}
	if he.Code != want {
		t.Errorf("expected %d, got %d", want, he.Code)
	}
}

func patchQuantity(h *Handler, id, body string) (*httptest.ResponseRecorder, error) {
	req := httptest.NewRequest(http.MethodPatch, "/", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := echo.New().NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues(id)
	return rec, h.UpdateQuantity(c)
}

func TestHandler_UpdateQuantity(t *testing.T) {
	svc := NewService(newMockRepo())
	h := NewHandler(svc)
	m := newStocked(t, svc, 3)

	rec, err := patchQuantity(h, m.ID.String(), `{"delta":-1}`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var got Medicine
	_ = json.Unmarshal(rec.Body.Bytes(), &got)
	if got.Quantity != 2 {
		t.Errorf("expected 2, got %d", got.Quantity)
	}

	rec, err = patchQuantity(h, m.ID.String(), `{"quantity":10}`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	_ = json.Unmarshal(rec.Body.Bytes(), &got)
	if got.Quantity != 10 {
		t.Errorf("expected 10, got %d", got.Quantity)
	}
}

func TestHandler_UpdateQuantity_Errors(t *testing.T) {
	svc := NewService(newMockRepo())
	h := NewHandler(svc)
	m := newStocked(t, svc, 0)

	_, err := patchQuantity(h, m.ID.String(), `{"delta":-1}`)
	expectStatus(t, err, http.StatusBadRequest)

	_, err = patchQuantity(h, m.ID.String(), `{}`)
	expectStatus(t, err, http.StatusBadRequest)

	_, err = patchQuantity(h, m.ID.String(), `{"delta":1,"quantity":4}`)
	expectStatus(t, err, http.StatusBadRequest)

	_, err = patchQuantity(h, "not-a-uuid", `{"delta":1}`)
	expectStatus(t, err, http.StatusBadRequest)
}

func TestHandler_CreateMedicine(t *testing.T) {
	h := NewHandler(NewService(newMockRepo()))
	body := `{"name":"Paracetamol","diagnosis":"Fever","patient_safety":"Max 4g/day","quantity":12}`
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()

	if err := h.CreateMedicine(echo.New().NewContext(req, rec)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Errorf("expected 201, got %d", rec.Code)
	}
}
