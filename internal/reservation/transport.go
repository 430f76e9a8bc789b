package reservation

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
)

const apiBasePath = "/api/v1"

// ClaimRequest is the body of POST /bookings. SeatNumber is 1-based.
type ClaimRequest struct {
	RunID         uuid.UUID `json:"run_id"`
	SeatNumber    int       `json:"seat_number"`
	RiderIdentity string    `json:"rider_identity,omitempty"`
}

// Transport is how the client reaches the seat store
type Transport interface {
	GetSeats(ctx context.Context, runID uuid.UUID) (SeatVector, error)
	ClaimSeat(ctx context.Context, req ClaimRequest, cred Credential) (*Booking, error)
}

// HTTPTransport speaks the server's JSON API
type HTTPTransport struct {
	baseURL string
	client  *http.Client
}

func NewHTTPTransport(baseURL string, timeout time.Duration) *HTTPTransport {
	return &HTTPTransport{
		baseURL: strings.TrimRight(baseURL, "/") + apiBasePath,
		client:  &http.Client{Timeout: timeout},
	}
}

type envelope struct {
	Status     string          `json:"status"`
	StatusCode int             `json:"status_code"`
	Message    string          `json:"message"`
	Data       json.RawMessage `json:"data"`
	Errors     interface{}     `json:"errors"`
}

func statusError(code int) error {
	switch {
	case code == http.StatusNotFound:
		return ErrNotFound
	case code == http.StatusConflict:
		return ErrSeatConflict
	case code == http.StatusUnauthorized, code == http.StatusForbidden:
		return ErrUnauthorized
	case code == http.StatusTooManyRequests:
		return ErrRateLimited
	case code >= 500:
		return ErrTransport
	default:
		return ErrBadRequest
	}
}

func (t *HTTPTransport) do(ctx context.Context, method, path, token string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, t.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := t.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %s %s: %v", ErrTransport, method, path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%w: reading response: %v", ErrTransport, err)
	}

	var env envelope
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &env); err != nil && resp.StatusCode < 300 {
			return fmt.Errorf("%w: decoding response: %v", ErrTransport, err)
		}
	}

	if resp.StatusCode >= 300 {
		return &APIError{StatusCode: resp.StatusCode, Message: env.Message, Err: statusError(resp.StatusCode)}
	}

	if out != nil && len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return fmt.Errorf("%w: decoding payload: %v", ErrTransport, err)
		}
	}
	return nil
}

func (t *HTTPTransport) GetSeats(ctx context.Context, runID uuid.UUID) (SeatVector, error) {
	var seats SeatVector
	if err := t.do(ctx, http.MethodGet, "/seats/"+runID.String(), "", nil, &seats); err != nil {
		return nil, err
	}
	return seats, nil
}

func (t *HTTPTransport) ClaimSeat(ctx context.Context, req ClaimRequest, cred Credential) (*Booking, error) {
	var booking Booking
	if err := t.do(ctx, http.MethodPost, "/bookings", cred.Token, req, &booking); err != nil {
		return nil, err
	}
	return &booking, nil
}

// ListRuns fetches the catalog of scheduled runs
func (t *HTTPTransport) ListRuns(ctx context.Context) ([]Run, error) {
	var runs []Run
	if err := t.do(ctx, http.MethodGet, "/schedules", "", nil, &runs); err != nil {
		return nil, err
	}
	return runs, nil
}

type authPayload struct {
	User struct {
		Username string `json:"username"`
	} `json:"user"`
	AccessToken string `json:"access_token"`
	Role        string `json:"role"`
}

// Login exchanges a username and password for a credential
func (t *HTTPTransport) Login(ctx context.Context, username, password string) (Credential, error) {
	var auth authPayload
	body := map[string]string{"username": username, "password": password}
	if err := t.do(ctx, http.MethodPost, "/auth/login", "", body, &auth); err != nil {
		return Credential{}, err
	}
	return Credential{Token: auth.AccessToken, Username: auth.User.Username, Role: auth.Role}, nil
}

// Register creates an account. role is "user" for riders or "operator".
func (t *HTTPTransport) Register(ctx context.Context, username, password, role string) (Credential, error) {
	var auth authPayload
	body := map[string]string{"username": username, "password": password, "role": role}
	if err := t.do(ctx, http.MethodPost, "/auth/register", "", body, &auth); err != nil {
		return Credential{}, err
	}
	return Credential{Token: auth.AccessToken, Username: auth.User.Username, Role: auth.Role}, nil
}
