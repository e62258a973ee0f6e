package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
)

const defaultWebhookTimeout = 10 * time.Second

// WebhookNotifier posts text messages to a chat webhook.
type WebhookNotifier struct {
	url    string
	client *http.Client
}

type webhookPayload struct {
	MsgType string      `json:"msgtype"`
	Text    webhookText `json:"text"`
}

type webhookText struct {
	Content string `json:"content"`
}

// NewWebhookNotifier constructs a notifier. A zero timeout uses 10s.
func NewWebhookNotifier(url string, timeout time.Duration) (*WebhookNotifier, error) {
	if strings.TrimSpace(url) == "" {
		return nil, errors.New("webhook notifier: empty url")
	}
	if timeout <= 0 {
		timeout = defaultWebhookTimeout
	}
	return &WebhookNotifier{
		url:    url,
		client: &http.Client{Timeout: timeout},
	}, nil
}

// NotifyMonthClosed sends the close summary to the webhook.
func (n *WebhookNotifier) NotifyMonthClosed(ctx context.Context, msg MonthClosedMessage) error {
	if n == nil || n.url == "" {
		return errors.New("webhook notifier: empty url")
	}
	payload := webhookPayload{
		MsgType: "text",
		Text:    webhookText{Content: formatMonthClosed(msg)},
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := n.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("webhook notifier: status %d", resp.StatusCode)
	}
	return nil
}

func formatMonthClosed(msg MonthClosedMessage) string {
	var b strings.Builder
	b.WriteString("[Lodging] Month closed\n")
	fmt.Fprintf(&b, "Month: %s\n", msg.Month)
	if msg.Location != "" {
		fmt.Fprintf(&b, "Location: %s\n", msg.Location)
	}
	fmt.Fprintf(&b, "Days: %d\n", msg.Days)
	if msg.DailyRate != "" {
		fmt.Fprintf(&b, "Daily rate: %s\n", msg.DailyRate)
	}
	fmt.Fprintf(&b, "Estimated: %s\n", msg.ComputedAmount)
	fmt.Fprintf(&b, "Paid: %s\n", msg.PaidAmount)
	if msg.Discrepancy != "" {
		fmt.Fprintf(&b, "Difference: %s\n", msg.Discrepancy)
	}
	return strings.TrimSpace(b.String())
}
