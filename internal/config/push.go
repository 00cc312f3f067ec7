package config

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"time"

	"go.uber.org/fx"
	"go.uber.org/zap"
)

type PushConfig struct {
	APIURL string
	APIKey string
}

// NewPushConfig reads the push gateway settings. Both values empty means push
// delivery is disabled; the sweep will not be started without them.
func NewPushConfig() *PushConfig {
	return &PushConfig{
		APIURL: os.Getenv("EXPO_PUSH_URL"),
		APIKey: os.Getenv("EXPO_PUSH_KEY"),
	}
}

type pushRequest struct {
	To    []string       `json:"to"`
	Title string         `json:"title"`
	Body  string         `json:"body"`
	Data  map[string]any `json:"data,omitempty"`
}

// PushService delivers a notification to device push tokens through the Expo
// push gateway. Treated as a black box: one HTTP round trip, ok or error.
type PushService struct {
	config *PushConfig
	client *http.Client
	logger *zap.Logger
}

func NewPushService(lc fx.Lifecycle, config *PushConfig, logger *zap.Logger) *PushService {
	service := &PushService{
		config: config,
		client: &http.Client{Timeout: 10 * time.Second},
		logger: logger,
	}
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			if config.APIURL == "" {
				logger.Info("Push gateway not configured, delivery disabled")
			} else {
				logger.Info("Push service initialized")
			}
			return nil
		},
	})
	return service
}

func (p *PushService) Enabled() bool {
	return p.config.APIURL != ""
}

func (p *PushService) Deliver(ctx context.Context, to []string, title, body string, data map[string]any) error {
	if !p.Enabled() {
		return fmt.Errorf("push gateway not configured")
	}

	payload := pushRequest{To: to, Title: title, Body: body, Data: data}
	jsonData, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal push payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.config.APIURL, bytes.NewBuffer(jsonData))
	if err != nil {
		return fmt.Errorf("failed to create push request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if p.config.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+p.config.APIKey)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to reach push gateway: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var errorResponse map[string]interface{}
		json.NewDecoder(resp.Body).Decode(&errorResponse)
		return fmt.Errorf("push gateway returned status %d: %v", resp.StatusCode, errorResponse)
	}

	p.logger.Debug("Push delivered", zap.Int("recipients", len(to)), zap.String("title", title))
	return nil
}
