package notify

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestWebhookNotifierPayload(t *testing.T) {
	payloadCh := make(chan webhookPayload, 1)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(r.Body)
		if err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		var payload webhookPayload
		if err := json.Unmarshal(body, &payload); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		payloadCh <- payload
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	notifier, err := NewWebhookNotifier(server.URL, 0)
	if err != nil {
		t.Fatalf("new notifier: %v", err)
	}
	err = notifier.NotifyMonthClosed(context.Background(), MonthClosedMessage{
		Month:          "2025-03",
		Days:           10,
		DailyRate:      "50",
		ComputedAmount: "500",
		PaidAmount:     "450",
		Discrepancy:    "-50",
	})
	if err != nil {
		t.Fatalf("notify: %v", err)
	}

	payload := <-payloadCh
	if payload.MsgType != "text" {
		t.Fatalf("expected text msgtype, got %q", payload.MsgType)
	}
	for _, want := range []string{"Month: 2025-03", "Days: 10", "Estimated: 500", "Paid: 450", "Difference: -50"} {
		if !strings.Contains(payload.Text.Content, want) {
			t.Fatalf("content %q missing %q", payload.Text.Content, want)
		}
	}
}

func TestWebhookNotifierNon2xx(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	notifier, err := NewWebhookNotifier(server.URL, 0)
	if err != nil {
		t.Fatalf("new notifier: %v", err)
	}
	if err := notifier.NotifyMonthClosed(context.Background(), MonthClosedMessage{Month: "2025-03"}); err == nil {
		t.Fatalf("expected error on 502")
	}
}

func TestNewWebhookNotifierRequiresURL(t *testing.T) {
	if _, err := NewWebhookNotifier("  ", 0); err == nil {
		t.Fatalf("expected error for empty url")
	}
}
