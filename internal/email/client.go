package email

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
)

const defaultBaseURL = "https://api.resend.com"

// Client sends transactional email through the provider's JSON API.
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	from       string
}

type Option func(*Client)

func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = strings.TrimRight(u, "/") }
}

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

func NewClient(apiKey, from string, opts ...Option) *Client {
	c := &Client{
		httpClient: &http.Client{Timeout: 10 * time.Second},
		baseURL:    defaultBaseURL,
		apiKey:     apiKey,
		from:       from,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type Message struct {
	To      []string `json:"to"`
	Subject string   `json:"subject"`
	HTML    string   `json:"html"`
}

// Send delivers a message and returns the provider's message id.
func (c *Client) Send(ctx context.Context, m Message) (string, error) {
	body, err := json.Marshal(struct {
		From string `json:"from"`
		Message
	}{From: c.from, Message: m})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/emails", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", errors.Newf("email provider returned status %d", resp.StatusCode)
	}

	var out struct {
		ID string `json:"id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", err
	}
	return out.ID, nil
}

// ConfirmationMessage renders the booking confirmation email.
func ConfirmationMessage(guestEmail, guestName, experienceTitle, hostName string, guestCount int, totalCents int64, bookingDate time.Time) Message {
	return Message{
		To:      []string{guestEmail},
		Subject: fmt.Sprintf("Your booking for %s is confirmed", experienceTitle),
		HTML: fmt.Sprintf(
			"<p>Hi %s,</p><p>Your booking for <strong>%s</strong> hosted by %s on %s is confirmed.</p><p>Guests: %d<br>Total paid: $%.2f</p>",
			guestName, experienceTitle, hostName, bookingDate.Format("January 2, 2006"), guestCount, float64(totalCents)/100,
		),
	}
}
