package mailer

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/nordtolk/nordtolk-backend/pkg/config"
	pkgerrors "github.com/nordtolk/nordtolk-backend/pkg/errors"
	"github.com/nordtolk/nordtolk-backend/pkg/logger"
)

// Message is one outbound email.
type Message struct {
	To      string
	ToName  string
	From    string
	Subject string
	Body    string
}

// Sender is the outbound email surface the dispatcher depends on.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

var (
	errAPIKeyRequired = errors.New("mail api key is required")
	errLoggerRequired = errors.New("mail logger is required")
)

// Client talks to the transactional mail gateway.
type Client struct {
	baseURL     string
	apiKey      string
	defaultFrom string
	fromName    string
	httpClient  *http.Client
	logger      *logger.Logger
}

// NewClient validates the mail configuration and returns a gateway client.
func NewClient(cfg config.MailConfig, logg *logger.Logger) (*Client, error) {
	if logg == nil {
		return nil, errLoggerRequired
	}
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, errAPIKeyRequired
	}
	return &Client{
		baseURL:     strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:      cfg.APIKey,
		defaultFrom: cfg.DefaultFrom,
		fromName:    cfg.FromName,
		httpClient:  &http.Client{Timeout: 10 * time.Second},
		logger:      logg,
	}, nil
}

type sendRequest struct {
	To       string `json:"to"`
	ToName   string `json:"toName,omitempty"`
	From     string `json:"from"`
	FromName string `json:"fromName,omitempty"`
	Subject  string `json:"subject"`
	Body     string `json:"body"`
}

// Send delivers one email synchronously.
func (c *Client) Send(ctx context.Context, msg Message) error {
	if strings.TrimSpace(msg.To) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "email recipient is required")
	}
	from := msg.From
	if from == "" {
		from = c.defaultFrom
	}

	body, err := json.Marshal(sendRequest{
		To:       msg.To,
		ToName:   msg.ToName,
		From:     from,
		FromName: c.fromName,
		Subject:  msg.Subject,
		Body:     msg.Body,
	})
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encoding mail request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/send", bytes.NewReader(body))
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "building mail request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDelivery, err, "sending email")
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return pkgerrors.New(pkgerrors.CodeDelivery, fmt.Sprintf("mail gateway returned %d", resp.StatusCode))
	}

	logCtx := c.logger.WithFields(ctx, map[string]any{
		"to":      msg.To,
		"subject": msg.Subject,
	})
	c.logger.Info(logCtx, "email sent")
	return nil
}
