package application

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	lodging "lodging-ledger/internal/lodging/domain"
	"lodging-ledger/internal/lodging/infrastructure/memory"
	"lodging-ledger/internal/lodging/notify"
)

type fixedClock struct{ now time.Time }

func (c fixedClock) Now() time.Time { return c.now }

type stubNotifier struct {
	messages []notify.MonthClosedMessage
	err      error
}

func (s *stubNotifier) NotifyMonthClosed(_ context.Context, msg notify.MonthClosedMessage) error {
	s.messages = append(s.messages, msg)
	return s.err
}

type failingSaveGateway struct {
	lodging.Gateway
}

func (failingSaveGateway) Save(context.Context, *lodging.Document) error {
	return errors.New("write failed")
}

func newService(t *testing.T, gw lodging.Gateway, opts ...Option) *LedgerService {
	t.Helper()
	clock := fixedClock{now: time.Date(2025, time.March, 1, 8, 30, 0, 0, time.UTC)}
	svc, err := NewLedgerService(gw, clock, opts...)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return svc
}

func TestNewLedgerServiceRequiresDependencies(t *testing.T) {
	if _, err := NewLedgerService(nil, fixedClock{}); err == nil {
		t.Fatalf("expected error for nil gateway")
	}
	if _, err := NewLedgerService(memory.NewGateway(nil), nil); err == nil {
		t.Fatalf("expected error for nil clock")
	}
}

func TestLogPreviousDayCrossesMonthBoundary(t *testing.T) {
	ctx := context.Background()
	gw := memory.NewGateway(nil)
	svc := newService(t, gw)

	logged, err := svc.LogPreviousDay(ctx, &lodging.Location{Latitude: 1, Longitude: 2})
	if err != nil {
		t.Fatalf("log previous day: %v", err)
	}
	if logged.Month != "2025-02" || logged.Day != 28 {
		t.Fatalf("unexpected day: %+v", logged)
	}

	doc, _ := gw.Load(ctx)
	entry := doc.Months["2025-02"].Days[28]
	if entry.Timestamp == nil || !entry.Timestamp.Equal(time.Date(2025, time.March, 1, 8, 30, 0, 0, time.UTC)) {
		t.Fatalf("unexpected timestamp: %v", entry.Timestamp)
	}
	if entry.Latitude == nil || *entry.Latitude != 1 {
		t.Fatalf("missing location: %+v", entry)
	}

	if _, err := svc.LogPreviousDay(ctx, nil); !errors.Is(err, lodging.ErrDuplicateDay) {
		t.Fatalf("expected duplicate day, got %v", err)
	}
	if gw.Saves() != 1 {
		t.Fatalf("expected one save, got %d", gw.Saves())
	}
}

func TestToggleDayUsesClockLocation(t *testing.T) {
	ctx := context.Background()
	gw := memory.NewGateway(nil)
	svc := newService(t, gw)

	res, err := svc.ToggleDay(ctx, "2025-01-31", nil)
	if err != nil {
		t.Fatalf("toggle: %v", err)
	}
	if res.Month != "2025-01" || res.Day != 31 || res.Outcome != lodging.ToggleAdded {
		t.Fatalf("unexpected result: %+v", res)
	}
	res, err = svc.ToggleDay(ctx, "2025-01-31", nil)
	if err != nil {
		t.Fatalf("toggle: %v", err)
	}
	if res.Outcome != lodging.ToggleRemoved {
		t.Fatalf("expected removal, got %+v", res)
	}

	if _, err := svc.ToggleDay(ctx, "2025-02-29", nil); !errors.Is(err, lodging.ErrInvalid) {
		t.Fatalf("expected invalid date, got %v", err)
	}
	if gw.Saves() != 2 {
		t.Fatalf("expected two saves, got %d", gw.Saves())
	}
}

func TestCloseMonthNotifiesAndComputes(t *testing.T) {
	ctx := context.Background()
	gw := memory.NewGateway(nil)
	notifier := &stubNotifier{}
	svc := newService(t, gw, WithNotifier(notifier))

	if _, err := svc.SaveProfile(ctx, lodging.Profile{Name: "Ana", DefaultLocation: "Centro", DailyRate: decimal.RequireFromString("85.50")}); err != nil {
		t.Fatalf("save profile: %v", err)
	}
	for _, date := range []string{"2025-02-10", "2025-02-11", "2025-02-12"} {
		if _, err := svc.ToggleDay(ctx, date, nil); err != nil {
			t.Fatalf("toggle %s: %v", date, err)
		}
	}

	view, err := svc.CloseMonth(ctx, "2025-02", "256.50")
	if err != nil {
		t.Fatalf("close: %v", err)
	}
	if !view.Closed || view.ComputedAmount == nil || view.ComputedAmount.StringFixed(2) != "256.50" {
		t.Fatalf("unexpected view: %+v", view)
	}
	if view.HasDiscrepancy {
		t.Fatalf("equal amounts must not report a discrepancy")
	}
	if len(notifier.messages) != 1 {
		t.Fatalf("expected one notification, got %d", len(notifier.messages))
	}
	msg := notifier.messages[0]
	if msg.Month != "2025-02" || msg.Days != 3 || msg.PaidAmount != "256.50" || msg.Location != "Centro" || msg.Discrepancy != "" {
		t.Fatalf("unexpected message: %+v", msg)
	}

	if _, err := svc.ToggleDay(ctx, "2025-02-13", nil); !errors.Is(err, lodging.ErrMonthClosed) {
		t.Fatalf("expected month closed, got %v", err)
	}
	if _, err := svc.CloseMonth(ctx, "2025-02", "1"); !errors.Is(err, lodging.ErrMonthClosed) {
		t.Fatalf("expected month closed on re-close, got %v", err)
	}

	view, err = svc.ReopenMonth(ctx, "2025-02")
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	if view.Closed || view.ComputedAmount != nil || view.PaidAmount != nil || view.DayCount != 3 {
		t.Fatalf("unexpected reopened view: %+v", view)
	}
}

func TestCloseMonthNotifierFailureKeepsClose(t *testing.T) {
	ctx := context.Background()
	gw := memory.NewGateway(nil)
	svc := newService(t, gw, WithNotifier(&stubNotifier{err: errors.New("webhook down")}))

	if _, err := svc.ToggleDay(ctx, "2025-02-10", nil); err != nil {
		t.Fatalf("toggle: %v", err)
	}
	if _, err := svc.CloseMonth(ctx, "2025-02", "0"); err != nil {
		t.Fatalf("close: %v", err)
	}
	doc, _ := gw.Load(ctx)
	if !doc.Months["2025-02"].Closed {
		t.Fatalf("month should stay closed")
	}
}

func TestCloseMonthValidation(t *testing.T) {
	ctx := context.Background()
	gw := memory.NewGateway(nil)
	svc := newService(t, gw)

	cases := []struct {
		name string
		key  string
		paid string
		want error
	}{
		{name: "bad key", key: "2025-2", paid: "10", want: lodging.ErrInvalid},
		{name: "empty amount", key: "2025-02", paid: " ", want: lodging.ErrInvalid},
		{name: "negative", key: "2025-02", paid: "-1", want: lodging.ErrInvalid},
		{name: "missing month", key: "2025-02", paid: "10", want: lodging.ErrMonthNotFound},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := svc.CloseMonth(ctx, tc.key, tc.paid); !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
		})
	}
	if gw.Saves() != 0 {
		t.Fatalf("rejected operations must not save")
	}
}

func TestMutationFailureIsNotHidden(t *testing.T) {
	ctx := context.Background()
	svc := newService(t, failingSaveGateway{Gateway: memory.NewGateway(nil)})

	if _, err := svc.ToggleDay(ctx, "2025-02-10", nil); err == nil {
		t.Fatalf("expected save failure")
	}
	if _, err := svc.SaveProfile(ctx, lodging.Profile{}); err == nil {
		t.Fatalf("expected save failure")
	}
}

func TestReplaceDocumentValidates(t *testing.T) {
	ctx := context.Background()
	gw := memory.NewGateway(nil)
	svc := newService(t, gw)

	bad := lodging.NewDocument()
	bad.Months["2025-04"] = &lodging.MonthRecord{Days: lodging.Days{31: {}}}
	if err := svc.ReplaceDocument(ctx, bad); !errors.Is(err, lodging.ErrInvalid) {
		t.Fatalf("expected invalid, got %v", err)
	}
	if err := svc.ReplaceDocument(ctx, nil); !errors.Is(err, lodging.ErrNilDocument) {
		t.Fatalf("expected nil document, got %v", err)
	}

	good := lodging.NewDocument()
	good.User.DailyRate = decimal.NewFromInt(90)
	good.Months["2025-04"] = &lodging.MonthRecord{Days: lodging.Days{1: {}, 2: {}}}
	if err := svc.ReplaceDocument(ctx, good); err != nil {
		t.Fatalf("replace: %v", err)
	}
	summary, err := svc.Summary(ctx)
	if err != nil {
		t.Fatalf("summary: %v", err)
	}
	if summary.TotalDays != 2 || !summary.OpenEstimatedCost.Equal(decimal.NewFromInt(180)) {
		t.Fatalf("unexpected summary: %+v", summary)
	}
}
