// Package notify delivers anomaly notifications to configured webhook
// channels. Delivery is fire-and-forget: failures are logged and never
// affect the update cycle.
package notify

import (
	"bytes"
	"encoding/json"
	"net/http"
	"time"

	"github.com/Adamant-im/currencyinfo/pkg/logging"
)

// Level is the severity of a notification.
type Level string

const (
	LevelLog   Level = "log"
	LevelInfo  Level = "info"
	LevelWarn  Level = "warn"
	LevelError Level = "error"
)

// Notifier sends a message to the configured notification channels.
type Notifier interface {
	Notify(level Level, message string)
}

var slackColors = map[Level]string{
	LevelError: "#FF0000",
	LevelWarn:  "#FFFF00",
	LevelInfo:  "#00FF00",
	LevelLog:   "#FFFFFF",
}

var discordColors = map[Level]int{
	LevelError: 16711680,
	LevelWarn:  16776960,
	LevelInfo:  65280,
	LevelLog:   16777215,
}

// Service posts notifications to Slack and Discord webhooks and mirrors
// every message to the local log.
type Service struct {
	slack   []string
	discord []string
	client  *http.Client
	logger  *logging.Logger
}

// NewService creates a webhook notifier.
func NewService(slack, discord []string, logger *logging.Logger) *Service {
	return &Service{
		slack:   slack,
		discord: discord,
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
		logger: logger,
	}
}

// Notify sends the message to every configured webhook. Each delivery runs
// in its own goroutine so a slow channel never blocks the caller.
func (s *Service) Notify(level Level, message string) {
	s.logLocal(level, message)

	for _, hook := range s.slack {
		go s.post(hook, slackPayload(level, message))
	}

	for _, hook := range s.discord {
		go s.post(hook, discordPayload(level, message))
	}
}

func (s *Service) logLocal(level Level, message string) {
	switch level {
	case LevelError:
		s.logger.Error(message)
	case LevelWarn:
		s.logger.Warn(message)
	default:
		s.logger.Info(message)
	}
}

func (s *Service) post(url string, payload interface{}) {
	body, err := json.Marshal(payload)
	if err != nil {
		s.logger.Warn("Failed to encode notification payload", "error", err.Error())
		return
	}

	resp, err := s.client.Post(url, "application/json", bytes.NewReader(body))
	if err != nil {
		s.logger.Warn("Failed to deliver notification", "url", url, "error", err.Error())
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		s.logger.Warn("Notification webhook returned unexpected status",
			"url", url, "status", resp.StatusCode)
	}
}

func slackPayload(level Level, message string) interface{} {
	return map[string]interface{}{
		"attachments": []map[string]interface{}{
			{
				"fallback":  message,
				"color":     slackColors[level],
				"text":      message,
				"mrkdwn_in": []string{"text"},
			},
		},
	}
}

func discordPayload(level Level, message string) interface{} {
	return map[string]interface{}{
		"embeds": []map[string]interface{}{
			{
				"color":       discordColors[level],
				"description": message,
			},
		},
	}
}

// Nop is a Notifier that drops every message. Useful in tests.
type Nop struct{}

// Notify implements Notifier.
func (Nop) Notify(Level, string) {}
