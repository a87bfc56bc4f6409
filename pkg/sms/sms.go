package sms

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/nordtolk/nordtolk-backend/pkg/config"
	pkgerrors "github.com/nordtolk/nordtolk-backend/pkg/errors"
	"github.com/nordtolk/nordtolk-backend/pkg/logger"
)

// Message is one outbound text message.
type Message struct {
	To   string
	Text string
}

// Sender is the SMS surface the dispatcher depends on.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

var (
	errCredentialsRequired = errors.New("sms credentials are required")
	errLoggerRequired      = errors.New("sms logger is required")
)

// Client talks to the SMS gateway (46elks-compatible form API).
type Client struct {
	baseURL    string
	username   string
	password   string
	from       string
	httpClient *http.Client
	logger     *logger.Logger
}

// NewClient validates the SMS configuration and returns a gateway client.
func NewClient(cfg config.SMSConfig, logg *logger.Logger) (*Client, error) {
	if logg == nil {
		return nil, errLoggerRequired
	}
	if strings.TrimSpace(cfg.Username) == "" || strings.TrimSpace(cfg.Password) == "" {
		return nil, errCredentialsRequired
	}
	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		username:   cfg.Username,
		password:   cfg.Password,
		from:       cfg.From,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		logger:     logg,
	}, nil
}

// Send delivers one SMS synchronously.
func (c *Client) Send(ctx context.Context, msg Message) error {
	if strings.TrimSpace(msg.To) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "sms recipient is required")
	}
	if strings.TrimSpace(msg.Text) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "sms text is required")
	}

	form := url.Values{}
	form.Set("from", c.from)
	form.Set("to", msg.To)
	form.Set("message", msg.Text)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/sms", strings.NewReader(form.Encode()))
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "building sms request")
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.SetBasicAuth(c.username, c.password)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDelivery, err, "sending sms")
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return pkgerrors.New(pkgerrors.CodeDelivery, fmt.Sprintf("sms gateway returned %d", resp.StatusCode))
	}

	logCtx := c.logger.WithField(ctx, "to", msg.To)
	c.logger.Info(logCtx, "sms sent")
	return nil
}
