package clinic

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/google/uuid"
)

var (
	// ErrNotAuthenticated is returned when no session is available locally.
	ErrNotAuthenticated = errors.New("not authenticated")
	// ErrUnauthorized is returned when the server rejects the session token.
	ErrUnauthorized = errors.New("session rejected by server")
	// ErrNotFound is returned for unknown patients, records and notes.
	ErrNotFound = errors.New("not found")
	// ErrInvalid is returned for requests failing local validation.
	ErrInvalid = errors.New("invalid request")
)

func invalid(msg string) error {
	return fmt.Errorf("%w: %s", ErrInvalid, msg)
}

// APIError is a non-success response other than 401 and 404.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("clinic api: status %d", e.Status)
	}
	return fmt.Sprintf("clinic api: status %d: %s", e.Status, e.Message)
}

// SessionSource yields the current bearer token. *goSession.Manager
// satisfies it.
type SessionSource interface {
	Credential() (string, bool)
}

// Config configures a [Client].
type Config struct {
	BaseURL    string
	HTTPClient *http.Client
	UserAgent  string
	// OnUnauthorized runs after the server answers 401, before the call
	// returns. The CLI signs out here.
	OnUnauthorized func(ctx context.Context)
	Logger         *slog.Logger
}

// Client calls the patient API on behalf of the current session.
type Client struct {
	base    string
	http    *http.Client
	session SessionSource
	cfg     Config
	logger  *slog.Logger
}

// New returns a Client that reads tokens from src.
func New(src SessionSource, cfg Config) (*Client, error) {
	if src == nil {
		return nil, errors.New("session source is required")
	}
	u, err := url.Parse(strings.TrimRight(cfg.BaseURL, "/"))
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		return nil, fmt.Errorf("invalid clinic base URL %q", cfg.BaseURL)
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{base: u.String(), http: httpClient, session: src, cfg: cfg, logger: logger}, nil
}

// ListPatients returns the practitioner's patients.
func (c *Client) ListPatients(ctx context.Context) ([]Patient, error) {
	var out []Patient
	if err := c.do(ctx, http.MethodGet, "/pacientes", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// GetPatient returns one patient.
func (c *Client) GetPatient(ctx context.Context, id int64) (Patient, error) {
	var out Patient
	err := c.do(ctx, http.MethodGet, "/pacientes/"+strconv.FormatInt(id, 10), nil, &out)
	return out, err
}

// CreatePatient registers p and returns it with its server-assigned id.
func (c *Client) CreatePatient(ctx context.Context, p Patient) (Patient, error) {
	if err := p.Validate(); err != nil {
		return Patient{}, err
	}
	p.ID = 0
	var out Patient
	err := c.do(ctx, http.MethodPost, "/pacientes", p, &out)
	return out, err
}

// FindRecord returns the assessment record of a patient, or ErrNotFound
// when none was created yet.
func (c *Client) FindRecord(ctx context.Context, patientID int64) (Record, error) {
	var out []Record
	q := url.Values{"paciente_id": {strconv.FormatInt(patientID, 10)}}
	if err := c.do(ctx, http.MethodGet, "/fichas-pacientes?"+q.Encode(), nil, &out); err != nil {
		return Record{}, err
	}
	if len(out) == 0 {
		return Record{}, fmt.Errorf("%w: no record for patient %d", ErrNotFound, patientID)
	}
	return out[0], nil
}

// SaveRecord creates r when it has no id and updates it otherwise.
func (c *Client) SaveRecord(ctx context.Context, r Record) (Record, error) {
	if err := r.Validate(); err != nil {
		return Record{}, err
	}
	method, path := http.MethodPost, "/fichas-pacientes"
	if r.ID > 0 {
		method, path = http.MethodPut, "/fichas-pacientes/"+strconv.FormatInt(r.ID, 10)
	}
	var out Record
	err := c.do(ctx, method, path, r, &out)
	return out, err
}

// ListNotes returns the notes of a record, oldest first.
func (c *Client) ListNotes(ctx context.Context, recordID int64) ([]Note, error) {
	var out []Note
	q := url.Values{"ficha_paciente_id": {strconv.FormatInt(recordID, 10)}}
	if err := c.do(ctx, http.MethodGet, "/anotacoes-fichas-pacientes?"+q.Encode(), nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// AddNote attaches n to its record.
func (c *Client) AddNote(ctx context.Context, n Note) (Note, error) {
	if err := n.Validate(); err != nil {
		return Note{}, err
	}
	n.ID = 0
	var out Note
	err := c.do(ctx, http.MethodPost, "/anotacoes-fichas-pacientes", n, &out)
	return out, err
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	if ctx == nil {
		ctx = context.Background()
	}
	token, ok := c.session.Credential()
	if !ok {
		return ErrNotAuthenticated
	}

	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.base+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", uuid.NewString())
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.cfg.UserAgent != "" {
		req.Header.Set("User-Agent", c.cfg.UserAgent)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("clinic api %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		c.logger.Warn("clinic.unauthorized", "method", method, "path", path)
		if c.cfg.OnUnauthorized != nil {
			c.cfg.OnUnauthorized(ctx)
		}
		return ErrUnauthorized
	case resp.StatusCode == http.StatusNotFound:
		return fmt.Errorf("%w: %s", ErrNotFound, path)
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return apiError(resp)
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s %s: %w", method, path, err)
	}
	return nil
}

func apiError(resp *http.Response) error {
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
	var payload struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	_ = json.Unmarshal(data, &payload)
	msg := payload.Message
	if msg == "" {
		msg = payload.Error
	}
	return &APIError{Status: resp.StatusCode, Message: msg}
}
