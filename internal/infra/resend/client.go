// Package resend sends transactional email.
package resend

import (
	"context"
	"encoding/base64"
	"errors"
	"net/http"
	"time"

	"github.com/vietddude/tema/internal/apperr"
	"github.com/vietddude/tema/internal/core/domain"
	"github.com/vietddude/tema/internal/infra/httpx"
)

// Config holds email provider settings.
type Config struct {
	BaseURL string        `yaml:"base_url"`
	APIKey  string        `yaml:"api_key"`
	From    string        `yaml:"from"`
	Timeout time.Duration `yaml:"timeout"`
}

// Sender delivers one email and returns the provider message id.
type Sender interface {
	Send(ctx context.Context, email domain.Email) (string, error)
}

// ErrNoAPIKey is returned when the client has no credentials.
var ErrNoAPIKey = apperr.Validation("api_key", "email provider API key not configured")

// Client calls the email provider REST API.
type Client struct {
	http   *httpx.Client
	from   string
	hasKey bool
}

// New creates an email provider client.
func New(cfg Config, opts ...httpx.Option) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.resend.com"
	}
	opts = append([]httpx.Option{httpx.WithBearer(cfg.APIKey)}, opts...)
	return &Client{
		http:   httpx.New(string(domain.ServiceResend), cfg.BaseURL, cfg.Timeout, opts...),
		from:   cfg.From,
		hasKey: cfg.APIKey != "",
	}
}

type attachment struct {
	Filename string `json:"filename"`
	Content  string `json:"content"`
}

type sendRequest struct {
	From        string       `json:"from"`
	To          []string     `json:"to"`
	Subject     string       `json:"subject"`
	HTML        string       `json:"html,omitempty"`
	Text        string       `json:"text,omitempty"`
	Attachments []attachment `json:"attachments,omitempty"`
}

// Send posts email to /emails.
func (c *Client) Send(ctx context.Context, email domain.Email) (string, error) {
	if !c.hasKey {
		return "", ErrNoAPIKey
	}
	if len(email.To) == 0 {
		return "", apperr.Validation("to", "at least one recipient is required")
	}
	req := sendRequest{
		From:    email.From,
		To:      email.To,
		Subject: email.Subject,
		HTML:    email.HTML,
		Text:    email.Text,
	}
	if req.From == "" {
		req.From = c.from
	}
	for _, a := range email.Attachments {
		req.Attachments = append(req.Attachments, attachment{
			Filename: a.Filename,
			Content:  base64.StdEncoding.EncodeToString(a.Content),
		})
	}

	var resp struct {
		ID string `json:"id"`
	}
	if err := c.http.Do(ctx, httpx.Request{Method: http.MethodPost, Path: "/emails", Body: req}, &resp); err != nil {
		return "", err
	}
	if resp.ID == "" {
		return "", errors.New("resend: response without message id")
	}
	return resp.ID, nil
}

// Ping always succeeds: the provider has no cheap unauthenticated probe, so the email
// service is reported healthy without a remote call.
func (c *Client) Ping(context.Context) error { return nil }

// Monitor exposes call statistics.
func (c *Client) Monitor() *httpx.Monitor { return c.http.Monitor }
