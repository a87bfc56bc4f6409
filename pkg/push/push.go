package push

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

// Notification is one push message addressed by external user IDs.
// EmergencySound picks the louder alert tone used for immediate jobs.
type Notification struct {
	UserIDs        []string
	Heading        string
	Message        string
	Data           map[string]string
	EmergencySound bool
	SendAfter      *time.Time
}

// Sender is the push surface the dispatcher depends on.
type Sender interface {
	Send(ctx context.Context, note Notification) error
}

const (
	normalSound    = "default"
	emergencySound = "emergency_alert"
)

var (
	errAppIDRequired  = errors.New("push app id is required")
	errAPIKeyRequired = errors.New("push rest api key is required")
	errLoggerRequired = errors.New("push logger is required")
)

// Client talks to the OneSignal REST API.
type Client struct {
	baseURL    string
	appID      string
	apiKey     string
	httpClient *http.Client
	logger     *logger.Logger
}

// NewClient validates the push configuration and returns a gateway client.
func NewClient(cfg config.PushConfig, logg *logger.Logger) (*Client, error) {
	if logg == nil {
		return nil, errLoggerRequired
	}
	if strings.TrimSpace(cfg.AppID) == "" {
		return nil, errAppIDRequired
	}
	if strings.TrimSpace(cfg.RESTAPIKey) == "" {
		return nil, errAPIKeyRequired
	}
	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		appID:      cfg.AppID,
		apiKey:     cfg.RESTAPIKey,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		logger:     logg,
	}, nil
}

type createNotificationRequest struct {
	AppID                  string            `json:"app_id"`
	IncludeExternalUserIDs []string          `json:"include_external_user_ids"`
	Headings               map[string]string `json:"headings"`
	Contents               map[string]string `json:"contents"`
	Data                   map[string]string `json:"data,omitempty"`
	IOSSound               string            `json:"ios_sound"`
	AndroidSound           string            `json:"android_sound"`
	SendAfter              string            `json:"send_after,omitempty"`
}

// Send queues one push notification, honoring any deferred send time.
func (c *Client) Send(ctx context.Context, note Notification) error {
	if len(note.UserIDs) == 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "push recipients are required")
	}

	sound := normalSound
	if note.EmergencySound {
		sound = emergencySound
	}
	reqBody := createNotificationRequest{
		AppID:                  c.appID,
		IncludeExternalUserIDs: note.UserIDs,
		Headings:               map[string]string{"en": note.Heading},
		Contents:               map[string]string{"en": note.Message},
		Data:                   note.Data,
		IOSSound:               sound + ".wav",
		AndroidSound:           sound,
	}
	if note.SendAfter != nil {
		reqBody.SendAfter = note.SendAfter.UTC().Format(time.RFC3339)
	}

	body, err := json.Marshal(reqBody)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encoding push request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/notifications", bytes.NewReader(body))
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "building push request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Basic "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDelivery, err, "sending push notification")
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return pkgerrors.New(pkgerrors.CodeDelivery, fmt.Sprintf("push gateway returned %d", resp.StatusCode))
	}

	logCtx := c.logger.WithFields(ctx, map[string]any{
		"recipients": len(note.UserIDs),
		"deferred":   note.SendAfter != nil,
	})
	c.logger.Info(logCtx, "push notification queued")
	return nil
}
