package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"setoran-pa/internal/core/domain"
	"setoran-pa/internal/pkg/logger"
	"setoran-pa/internal/pkg/requestid"
)

const (
	rosterPath  = "dosen/pa-saya"
	depositPath = "mahasiswa/setoran/"

	maxBodyBytes = 4 << 20
)

// Client calls the deposit tracking backend on behalf of the lecturer
type Client struct {
	baseURL    *url.URL
	httpClient *http.Client
}

// New creates a backend client rooted at baseURL. httpClient may be nil.
func New(baseURL string, timeout time.Duration, httpClient *http.Client) (*Client, error) {
	if !strings.HasSuffix(baseURL, "/") {
		baseURL += "/"
	}
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse backend url: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("backend url %q must be absolute", baseURL)
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: timeout}
	}
	return &Client{baseURL: u, httpClient: httpClient}, nil
}

// Roster fetches the students supervised by the token's owner
func (c *Client) Roster(ctx context.Context, accessToken string) (domain.Roster, error) {
	var wire rosterWire
	if _, err := c.do(ctx, "roster", http.MethodGet, rosterPath, nil, accessToken, nil, &wire); err != nil {
		return domain.Roster{}, err
	}
	roster, err := wire.toDomain()
	if err != nil {
		return domain.Roster{}, malformed(ctx, "roster", err)
	}
	return roster, nil
}

// Detail fetches one student's deposit components
func (c *Client) Detail(ctx context.Context, accessToken, nim string) (domain.StudentDetail, error) {
	if err := domain.ValidateNIM(nim); err != nil {
		return domain.StudentDetail{}, err
	}
	var wire detailWire
	if _, err := c.do(ctx, "detail", http.MethodGet, depositPath+nim, nil, accessToken, nil, &wire); err != nil {
		return domain.StudentDetail{}, err
	}
	detail, err := wire.toDomain()
	if err != nil {
		return domain.StudentDetail{}, malformed(ctx, "detail", err)
	}
	return detail, nil
}

// Submit records the given components as validated
func (c *Client) Submit(ctx context.Context, accessToken, nim string, items []domain.SubmitItem) (domain.Ack, error) {
	if err := domain.ValidateNIM(nim); err != nil {
		return domain.Ack{}, err
	}
	if len(items) == 0 {
		return domain.Ack{}, domain.Validationf("no components selected")
	}
	for _, item := range items {
		if item.ComponentID == "" {
			return domain.Ack{}, domain.Validationf("component id is required")
		}
	}
	msg, err := c.do(ctx, "submit", http.MethodPost, depositPath+nim, nil, accessToken, submitRequest(items), nil)
	if err != nil {
		return domain.Ack{}, err
	}
	return domain.Ack{Message: msg}, nil
}

// Cancel deletes one prior validation
func (c *Client) Cancel(ctx context.Context, accessToken, nim string, item domain.CancelItem) (domain.Ack, error) {
	if err := domain.ValidateNIM(nim); err != nil {
		return domain.Ack{}, err
	}
	if strings.TrimSpace(item.DepositID) == "" {
		return domain.Ack{}, domain.Validationf("deposit id is required")
	}
	query := url.Values{}
	query.Set("id", item.DepositID)
	msg, err := c.do(ctx, "cancel", http.MethodDelete, depositPath+nim, query, accessToken, cancelRequest(item), nil)
	if err != nil {
		return domain.Ack{}, err
	}
	return domain.Ack{Message: msg}, nil
}

// do performs one call and decodes the envelope. out receives data when
// non-nil; the envelope message is returned.
func (c *Client) do(ctx context.Context, op, method, path string, query url.Values, accessToken string, in, out any) (string, error) {
	target := c.baseURL.ResolveReference(&url.URL{Path: path})
	if len(query) > 0 {
		target.RawQuery = query.Encode()
	}

	var body io.Reader
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return "", fmt.Errorf("encode %s request: %w", op, err)
		}
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, target.String(), body)
	if err != nil {
		return "", fmt.Errorf("create %s request: %w", op, err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if id := requestid.From(ctx); id != "" {
		req.Header.Set(requestid.Header, id)
	}

	log := logger.For(ctx, op).WithField("method", method).WithField("path", target.Path)
	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		log.WithError(err).Warn("❌ Backend unreachable")
		return "", domain.NewError(domain.KindTransport, 0, "", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		log.WithError(err).Warn("❌ Backend response could not be read")
		return "", domain.NewError(domain.KindTransport, resp.StatusCode, "", err)
	}
	log = log.WithField("status", resp.StatusCode).WithField("duration", time.Since(start))

	var env envelope
	decodeErr := json.Unmarshal(raw, &env)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		log.Warn("❌ Backend returned an error status")
		return "", statusError(resp.StatusCode, env.Message)
	}
	if decodeErr != nil {
		return "", malformed(ctx, op, decodeErr)
	}
	if env.Response == nil {
		return "", malformed(ctx, op, errors.New("envelope has no response flag"))
	}
	if !*env.Response {
		log.WithField("message", env.Message).Warn("❌ Backend rejected request")
		message := env.Message
		if message == "" {
			message = domain.ErrServerRejected.Error()
		}
		return "", domain.NewError(domain.KindServerRejected, resp.StatusCode, message, nil)
	}
	if out != nil {
		if len(env.Data) == 0 || string(env.Data) == "null" {
			return "", malformed(ctx, op, errors.New("envelope has no data"))
		}
		if err := json.Unmarshal(env.Data, out); err != nil {
			return "", malformed(ctx, op, err)
		}
	}
	log.Debug("✅ Backend call succeeded")
	return env.Message, nil
}

// statusError maps a non-2xx reply onto the error taxonomy
func statusError(status int, message string) error {
	switch status {
	case http.StatusUnauthorized:
		return domain.NewError(domain.KindUnauthorized, status, "", nil)
	case http.StatusForbidden:
		return domain.NewError(domain.KindForbidden, status, message, nil)
	case http.StatusNotFound:
		return domain.NewError(domain.KindNotFound, status, message, nil)
	}
	if message == "" {
		message = fmt.Sprintf("server error (%d)", status)
	}
	return domain.NewError(domain.KindServerRejected, status, message, nil)
}

func malformed(ctx context.Context, op string, cause error) error {
	logger.For(ctx, op).WithError(cause).Warn("❌ Malformed backend response")
	return domain.NewError(domain.KindTransport, 0, "invalid response from server", cause)
}
