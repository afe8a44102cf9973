package httpx

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/vietddude/tema/internal/apperr"
)

func TestDo_DecodesJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer secret" {
			t.Errorf("expected bearer header, got %q", r.Header.Get("Authorization"))
		}
		if r.URL.Query().Get("cpf") != "123" {
			t.Errorf("expected cpf query, got %q", r.URL.RawQuery)
		}
		_, _ = w.Write([]byte(`{"success":true,"name":"Maria"}`))
	}))
	defer srv.Close()

	c := New("rapidoc", srv.URL, time.Second, WithBearer("secret"))
	var out struct {
		Success bool   `json:"success"`
		Name    string `json:"name"`
	}
	err := c.Do(context.Background(), Request{Method: http.MethodGet, Path: "/x", Query: map[string][]string{"cpf": {"123"}}}, &out)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !out.Success || out.Name != "Maria" {
		t.Errorf("unexpected body %+v", out)
	}
	if st := c.Monitor.Stats(); st.Requests != 1 || st.Failures != 0 {
		t.Errorf("unexpected stats %+v", st)
	}
}

func TestDo_StatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		w.Header().Set("Retry-After", "5")
		_, _ = w.Write([]byte(`{"errors":[{"code":"rate_limit","description":"slow down"}]}`))
	}))
	defer srv.Close()

	c := New("asaas", srv.URL, time.Second)
	err := c.Do(context.Background(), Request{Method: http.MethodPost, Path: "/payments", Body: map[string]string{"a": "b"}}, nil)

	var se *apperr.StatusError
	if !errors.As(err, &se) {
		t.Fatalf("expected StatusError, got %v", err)
	}
	if se.Status != 429 || se.Code != "rate_limit" || se.Service != "asaas" {
		t.Errorf("unexpected status error %+v", se)
	}
	if st := c.Monitor.Stats(); st.Throttles != 1 || st.Failures != 1 {
		t.Errorf("unexpected stats %+v", st)
	}
}

func TestDo_TransportErrorIsNetwork(t *testing.T) {
	c := New("resend", "http://127.0.0.1:1", time.Second)
	err := c.Do(context.Background(), Request{Method: http.MethodGet, Path: "/"}, nil)
	if err == nil {
		t.Fatal("expected error")
	}
	if k := apperr.Classify(err); k != apperr.KindNetwork {
		t.Errorf("expected NETWORK, got %s (%v)", k, err)
	}
}
