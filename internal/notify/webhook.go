// internal/notify/webhook.go

// Package notify posts match notifications to a Discord-compatible webhook.
// The notifier is optional; with no URL configured every call is a no-op.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"
)

type embedField struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

type embed struct {
	Title     string       `json:"title"`
	Color     int          `json:"color"`
	Timestamp string       `json:"timestamp"`
	Fields    []embedField `json:"fields,omitempty"`
}

type webhookPayload struct {
	Embeds []embed `json:"embeds"`
}

const (
	colorBlue   = 0x3498db
	colorOrange = 0xe67e22
)

// Webhook sends room notifications. targetVersion, when set, restricts
// notifications to rooms of that game version.
type Webhook struct {
	url           string
	targetVersion string
	http          *http.Client
	logger        *logrus.Logger
}

// NewWebhook builds a notifier. An empty url disables it.
func NewWebhook(url, targetVersion string, logger *logrus.Logger) *Webhook {
	if logger == nil {
		logger = logrus.New()
	}
	if url == "" {
		logger.Warn("webhook URL is not set; match notifications are disabled")
	}
	return &Webhook{
		url:           url,
		targetVersion: targetVersion,
		http:          &http.Client{Timeout: 10 * time.Second},
		logger:        logger,
	}
}

// RoomCreated announces a newly created room.
func (w *Webhook) RoomCreated(ctx context.Context, userName, gameVersion, shortCode string) {
	w.send(ctx, gameVersion, embed{
		Title: fmt.Sprintf("%s created a new room", userName),
		Color: colorBlue,
		Fields: []embedField{
			{Name: "Game version", Value: gameVersion},
			{Name: "Room code", Value: shortCode},
		},
	})
}

// RoomEntered announces a player joining a room.
func (w *Webhook) RoomEntered(ctx context.Context, userName, gameVersion, roomName, shortCode string) {
	w.send(ctx, gameVersion, embed{
		Title: fmt.Sprintf("%s entered a room", userName),
		Color: colorOrange,
		Fields: []embedField{
			{Name: "Game version", Value: gameVersion},
			{Name: "Room code", Value: shortCode},
			{Name: "Room name", Value: roomName},
		},
	})
}

func (w *Webhook) send(ctx context.Context, gameVersion string, e embed) {
	if w == nil || w.url == "" {
		return
	}
	if w.targetVersion != "" && gameVersion != w.targetVersion {
		w.logger.WithFields(logrus.Fields{
			"target_version": w.targetVersion,
			"game_version":   gameVersion,
		}).Debug("webhook notification skipped for non-target version")
		return
	}

	e.Timestamp = time.Now().UTC().Format(time.RFC3339)
	payload, err := json.Marshal(webhookPayload{Embeds: []embed{e}})
	if err != nil {
		w.logger.WithError(err).Warn("failed to marshal webhook payload")
		return
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(payload))
	if err != nil {
		w.logger.WithError(err).Warn("failed to build webhook request")
		return
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.http.Do(req)
	if err != nil {
		w.logger.WithError(err).Warn("failed to send webhook notification")
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		w.logger.WithField("status", resp.StatusCode).Warn("webhook notification rejected")
	}
}
