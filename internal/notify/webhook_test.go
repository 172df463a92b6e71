// internal/notify/webhook_test.go
package notify

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/sirupsen/logrus"
)

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func TestRoomCreatedPostsEmbed(t *testing.T) {
	var got webhookPayload
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Content-Type") != "application/json" {
			t.Errorf("content type = %q", r.Header.Get("Content-Type"))
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode payload: %v", err)
		}
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	hook := NewWebhook(srv.URL, "", testLogger())
	hook.RoomCreated(context.Background(), "PlayerOne", "1.0.0", "QX42ZA")

	if len(got.Embeds) != 1 {
		t.Fatalf("embeds = %d, want 1", len(got.Embeds))
	}
	e := got.Embeds[0]
	if e.Title != "PlayerOne created a new room" {
		t.Fatalf("title = %q", e.Title)
	}
	if e.Timestamp == "" {
		t.Fatal("embed has no timestamp")
	}
	foundCode := false
	for _, f := range e.Fields {
		if f.Name == "Room code" && f.Value == "QX42ZA" {
			foundCode = true
		}
	}
	if !foundCode {
		t.Fatalf("room code field missing: %+v", e.Fields)
	}
}

func TestTargetVersionFilter(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	hook := NewWebhook(srv.URL, "2.0.0", testLogger())
	hook.RoomCreated(context.Background(), "PlayerOne", "1.0.0", "QX42ZA")
	if calls.Load() != 0 {
		t.Fatal("non-target version was notified")
	}

	hook.RoomEntered(context.Background(), "PlayerTwo", "2.0.0", "Friday Night", "QX42ZA")
	if calls.Load() != 1 {
		t.Fatalf("calls = %d, want 1", calls.Load())
	}
}

func TestDisabledWebhookIsNoOp(t *testing.T) {
	hook := NewWebhook("", "", testLogger())
	// Must not panic or block without a URL.
	hook.RoomCreated(context.Background(), "PlayerOne", "1.0.0", "QX42ZA")
	hook.RoomEntered(context.Background(), "PlayerOne", "1.0.0", "Room", "QX42ZA")
}
