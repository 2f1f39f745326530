// Package notify places voice calls and text messages through a
// Twilio-style REST endpoint.
package notify

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
)

// Notifier reaches the owner.
type Notifier interface {
	Call(ctx context.Context, to, callbackURL string) (CallResult, error)
	SendMessage(ctx context.Context, to, body string) (MessageResult, error)
}

type CallResult struct {
	SID    string `json:"sid"`
	Status string `json:"status"`
}

type MessageResult struct {
	SID    string `json:"sid"`
	Status string `json:"status"`
}

var ErrUnauthorized = errors.New("notify: authentication failed, check account SID and auth token")

// StatusError is a non-201 reply from the provider.
type StatusError struct {
	Op      string
	Code    int
	Message string
}

func (e *StatusError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("notify: %s: status %d: %s", e.Op, e.Code, e.Message)
	}
	return fmt.Sprintf("notify: %s: status %d", e.Op, e.Code)
}

type ClientConfig struct {
	AccountSID string
	AuthToken  string
	From       string // caller ID / sender number
	CallURL    string // endpoint creating calls
	MessageURL string // endpoint creating messages
	APIBase    string // e.g. https://api.twilio.com/2010-04-01
	Timeout    time.Duration
}

// Client is the HTTP Notifier. The basic-auth header is computed once.
type Client struct {
	cfg  ClientConfig
	auth string
	http *http.Client
	log  *zap.Logger
}

func NewClient(cfg ClientConfig, log *zap.Logger) *Client {
	if log == nil {
		log = zap.NewNop()
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	creds := base64.StdEncoding.EncodeToString([]byte(cfg.AccountSID + ":" + cfg.AuthToken))
	return &Client{
		cfg:  cfg,
		auth: "Basic " + creds,
		http: &http.Client{Timeout: cfg.Timeout},
		log:  log,
	}
}

// Call asks the provider to ring to and play the instructions at callbackURL.
func (c *Client) Call(ctx context.Context, to, callbackURL string) (CallResult, error) {
	form := url.Values{}
	form.Set("To", to)
	form.Set("From", c.cfg.From)
	form.Set("Url", callbackURL)

	var res CallResult
	if err := c.post(ctx, "call", c.cfg.CallURL, form, &res); err != nil {
		return CallResult{}, err
	}
	c.log.Info("notify: call initiated", zap.String("sid", res.SID), zap.String("status", res.Status))
	return res, nil
}

// SendMessage sends body as a text message to to.
func (c *Client) SendMessage(ctx context.Context, to, body string) (MessageResult, error) {
	form := url.Values{}
	form.Set("To", to)
	form.Set("From", c.cfg.From)
	form.Set("Body", body)

	var res MessageResult
	if err := c.post(ctx, "message", c.cfg.MessageURL, form, &res); err != nil {
		return MessageResult{}, err
	}
	c.log.Info("notify: message sent", zap.String("sid", res.SID))
	return res, nil
}

// TestConnection fetches the account resource; only 200 counts as reachable.
func (c *Client) TestConnection(ctx context.Context) error {
	u := strings.TrimRight(c.cfg.APIBase, "/") + "/Accounts/" + url.PathEscape(c.cfg.AccountSID) + ".json"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("notify: build request: %w", err)
	}
	req.Header.Set("Authorization", c.auth)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("notify: connection test: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	switch resp.StatusCode {
	case http.StatusOK:
		return nil
	case http.StatusUnauthorized:
		return ErrUnauthorized
	default:
		return &StatusError{Op: "connection test", Code: resp.StatusCode}
	}
}

func (c *Client) post(ctx context.Context, op, endpoint string, form url.Values, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("notify: %s: build request: %w", op, err)
	}
	req.Header.Set("Authorization", c.auth)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("notify: %s: %w", op, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err != nil {
		return fmt.Errorf("notify: %s: read response: %w", op, err)
	}

	switch resp.StatusCode {
	case http.StatusCreated:
		if err := json.Unmarshal(body, out); err != nil {
			return fmt.Errorf("notify: %s: decode response: %w", op, err)
		}
		return nil
	case http.StatusUnauthorized:
		return ErrUnauthorized
	case http.StatusBadRequest:
		var apiErr struct {
			Message string `json:"message"`
		}
		if json.Unmarshal(body, &apiErr) != nil || apiErr.Message == "" {
			apiErr.Message = "Unknown error"
		}
		return &StatusError{Op: op, Code: resp.StatusCode, Message: apiErr.Message}
	default:
		return &StatusError{Op: op, Code: resp.StatusCode, Message: strings.TrimSpace(string(body))}
	}
}
