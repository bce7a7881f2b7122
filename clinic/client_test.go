package clinic

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

type staticSession struct{ token string }

func (s *staticSession) Credential() (string, bool) {
	if s.token == "" {
		return "", false
	}
	return s.token, true
}

func newTestClient(t *testing.T, h http.Handler, src SessionSource, hook func(context.Context)) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	c, err := New(src, Config{BaseURL: srv.URL, OnUnauthorized: hook})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return c
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func TestNoSessionFailsWithoutNetwork(t *testing.T) {
	var hits atomic.Int32
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
	}), &staticSession{}, nil)

	if _, err := c.ListPatients(context.Background()); !errors.Is(err, ErrNotAuthenticated) {
		t.Fatalf("expected ErrNotAuthenticated, got %v", err)
	}
	if hits.Load() != 0 {
		t.Fatalf("expected no request, got %d", hits.Load())
	}
}

func TestListPatientsSendsBearer(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer tok-123" {
			t.Errorf("authorization header = %q", got)
		}
		if r.Header.Get("X-Request-ID") == "" {
			t.Error("missing request id")
		}
		if r.URL.Path != "/pacientes" {
			t.Errorf("path = %q", r.URL.Path)
		}
		writeJSON(w, http.StatusOK, []Patient{{ID: 1, FullName: "Maria Souza"}})
	}), &staticSession{token: "tok-123"}, nil)

	got, err := c.ListPatients(context.Background())
	if err != nil {
		t.Fatalf("ListPatients: %v", err)
	}
	if len(got) != 1 || got[0].FullName != "Maria Souza" {
		t.Fatalf("unexpected patients %+v", got)
	}
}

func TestUnauthorizedInvokesHook(t *testing.T) {
	var called atomic.Int32
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"message": "expired"})
	}), &staticSession{token: "tok-123"}, func(context.Context) { called.Add(1) })

	_, err := c.GetPatient(context.Background(), 7)
	if !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
	if called.Load() != 1 {
		t.Fatalf("expected hook once, got %d", called.Load())
	}
}

func TestAPIErrorCarriesMessage(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"message": "cpf duplicado"})
	}), &staticSession{token: "tok"}, nil)

	_, err := c.CreatePatient(context.Background(), Patient{FullName: "Jo"})
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %v", err)
	}
	if apiErr.Status != http.StatusUnprocessableEntity || apiErr.Message != "cpf duplicado" {
		t.Fatalf("unexpected api error %+v", apiErr)
	}
}

func TestNotFound(t *testing.T) {
	c := newTestClient(t, http.NotFoundHandler(), &staticSession{token: "tok"}, nil)
	if _, err := c.GetPatient(context.Background(), 99); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestFindRecordTakesFirst(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Query().Get("paciente_id") {
		case "1":
			writeJSON(w, http.StatusOK, []Record{{ID: 10, PatientID: 1}, {ID: 11, PatientID: 1}})
		default:
			writeJSON(w, http.StatusOK, []Record{})
		}
	}), &staticSession{token: "tok"}, nil)

	rec, err := c.FindRecord(context.Background(), 1)
	if err != nil || rec.ID != 10 {
		t.Fatalf("FindRecord = %+v, %v", rec, err)
	}
	if _, err := c.FindRecord(context.Background(), 2); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for patient without record, got %v", err)
	}
}

func TestSaveRecordChoosesMethod(t *testing.T) {
	var methods []string
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		methods = append(methods, r.Method+" "+r.URL.Path)
		var rec Record
		_ = json.NewDecoder(r.Body).Decode(&rec)
		if rec.ID == 0 {
			rec.ID = 5
		}
		writeJSON(w, http.StatusOK, rec)
	}), &staticSession{token: "tok"}, nil)

	rec := Record{PatientID: 1, AssessedAt: time.Now(), ChiefComplaint: "dor lombar", Diagnosis: "lombalgia", TreatmentPlan: "cinesioterapia"}
	saved, err := c.SaveRecord(context.Background(), rec)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := c.SaveRecord(context.Background(), saved); err != nil {
		t.Fatalf("update: %v", err)
	}
	if len(methods) != 2 || methods[0] != "POST /fichas-pacientes" || methods[1] != "PUT /fichas-pacientes/5" {
		t.Fatalf("unexpected calls %v", methods)
	}
}

func TestValidationBeforeNetwork(t *testing.T) {
	var hits atomic.Int32
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
	}), &staticSession{token: "tok"}, nil)

	ctx := context.Background()
	if _, err := c.CreatePatient(ctx, Patient{FullName: "  "}); !errors.Is(err, ErrInvalid) {
		t.Fatalf("patient: expected ErrInvalid, got %v", err)
	}
	if _, err := c.SaveRecord(ctx, Record{PatientID: 1, ChiefComplaint: "x"}); !errors.Is(err, ErrInvalid) {
		t.Fatalf("record: expected ErrInvalid, got %v", err)
	}
	if _, err := c.AddNote(ctx, Note{RecordID: 1, Kind: 9, Content: "x"}); !errors.Is(err, ErrInvalid) {
		t.Fatalf("note: expected ErrInvalid, got %v", err)
	}
	if hits.Load() != 0 {
		t.Fatalf("expected no request, got %d", hits.Load())
	}
}

func TestNotesRoundTrip(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodPost:
			var n Note
			_ = json.NewDecoder(r.Body).Decode(&n)
			n.ID = 3
			writeJSON(w, http.StatusCreated, n)
		default:
			if r.URL.Query().Get("ficha_paciente_id") != "10" {
				t.Errorf("query = %q", r.URL.RawQuery)
			}
			writeJSON(w, http.StatusOK, []Note{{ID: 3, RecordID: 10, Kind: NoteText, Content: "evolução"}})
		}
	}), &staticSession{token: "tok"}, nil)

	n, err := c.AddNote(context.Background(), Note{RecordID: 10, Kind: NoteText, Content: "evolução"})
	if err != nil || n.ID != 3 {
		t.Fatalf("AddNote = %+v, %v", n, err)
	}
	notes, err := c.ListNotes(context.Background(), 10)
	if err != nil || len(notes) != 1 || notes[0].Kind.String() != "text" {
		t.Fatalf("ListNotes = %+v, %v", notes, err)
	}
}

func TestNewRejectsBadConfig(t *testing.T) {
	if _, err := New(nil, Config{BaseURL: "http://x"}); err == nil {
		t.Fatal("expected error for nil session source")
	}
	if _, err := New(&staticSession{}, Config{BaseURL: "ftp://x"}); err == nil {
		t.Fatal("expected error for unsupported scheme")
	}
}
