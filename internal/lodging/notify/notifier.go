package notify

import "context"

// MonthClosedMessage describes a month that was just closed.
type MonthClosedMessage struct {
	Month          string `json:"month"`
	Days           int    `json:"days"`
	DailyRate      string `json:"daily_rate"`
	ComputedAmount string `json:"computed_amount"`
	PaidAmount     string `json:"paid_amount"`
	Discrepancy    string `json:"discrepancy,omitempty"`
	Location       string `json:"location,omitempty"`
}

// Notifier sends notifications.
type Notifier interface {
	NotifyMonthClosed(ctx context.Context, msg MonthClosedMessage) error
}
