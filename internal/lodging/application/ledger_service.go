package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	lodging "lodging-ledger/internal/lodging/domain"
	"lodging-ledger/internal/lodging/notify"
	"lodging-ledger/internal/observability/metrics"
)

const (
	OperationToggleDay      = "toggle_day"
	OperationLogPreviousDay = "log_previous_day"
	OperationCloseMonth     = "close_month"
	OperationReopenMonth    = "reopen_month"
	OperationReplace        = "replace_document"
	OperationSaveProfile    = "save_profile"
	OperationRecords        = "records"
)

// ToggleResult is the outcome of a toggle.
type ToggleResult struct {
	Month   lodging.MonthKey      `json:"month"`
	Day     int                   `json:"day"`
	Outcome lodging.ToggleOutcome `json:"outcome"`
}

// LedgerService runs one ledger operation per load/save pass.
type LedgerService struct {
	gateway  lodging.Gateway
	clock    lodging.Clock
	notifier notify.Notifier
	logger   *slog.Logger

	// mu serializes read-modify-write passes inside this process. It is
	// shared with the records service through Locker.
	mu sync.Locker
}

// Option configures the service.
type Option func(*LedgerService)

// WithNotifier sets the month-closed notifier.
func WithNotifier(notifier notify.Notifier) Option {
	return func(s *LedgerService) {
		if notifier != nil {
			s.notifier = notifier
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *LedgerService) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewLedgerService constructs a service.
func NewLedgerService(gateway lodging.Gateway, clock lodging.Clock, opts ...Option) (*LedgerService, error) {
	if gateway == nil {
		return nil, errors.New("ledger service: nil gateway")
	}
	if clock == nil {
		return nil, errors.New("ledger service: nil clock")
	}
	s := &LedgerService{gateway: gateway, clock: clock, logger: slog.Default(), mu: &sync.Mutex{}}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Locker returns the lock guarding document writes. Other writers of the
// same gateway take it to avoid lost updates.
func (s *LedgerService) Locker() sync.Locker {
	return s.mu
}

// Document returns the whole persisted document.
func (s *LedgerService) Document(ctx context.Context) (*lodging.Document, error) {
	doc, err := s.gateway.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("ledger service: load: %w", err)
	}
	return doc, nil
}

// ReplaceDocument validates doc and overwrites the persisted document.
func (s *LedgerService) ReplaceDocument(ctx context.Context, doc *lodging.Document) error {
	start := time.Now()
	result := metrics.ResultSuccess
	defer func() {
		metrics.ObserveLedgerOperation(OperationReplace, result, time.Since(start))
	}()

	if err := doc.Validate(); err != nil {
		result = metrics.ResultRejected
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.gateway.Save(ctx, doc); err != nil {
		result = metrics.ResultError
		return fmt.Errorf("ledger service: save: %w", err)
	}
	return nil
}

// ToggleDay adds or removes the YYYY-MM-DD date.
func (s *LedgerService) ToggleDay(ctx context.Context, rawDate string, loc *lodging.Location) (ToggleResult, error) {
	var res ToggleResult
	date, err := lodging.ParseDate(rawDate, s.location())
	if err != nil {
		metrics.ObserveLedgerOperation(OperationToggleDay, metrics.ResultRejected, 0)
		return res, err
	}
	_, err = s.mutate(ctx, OperationToggleDay, func(doc *lodging.Document) error {
		outcome, err := doc.Months.ToggleDay(date, loc, s.clock.Now())
		if err != nil {
			return err
		}
		res = ToggleResult{Month: lodging.MonthKeyOf(date), Day: date.Day(), Outcome: outcome}
		return nil
	})
	if err != nil {
		return ToggleResult{}, err
	}
	s.logger.Info("day toggled", "month", res.Month, "day", res.Day, "outcome", res.Outcome)
	return res, nil
}

// LogPreviousDay logs yesterday relative to the service clock.
func (s *LedgerService) LogPreviousDay(ctx context.Context, loc *lodging.Location) (lodging.LoggedDay, error) {
	var logged lodging.LoggedDay
	_, err := s.mutate(ctx, OperationLogPreviousDay, func(doc *lodging.Document) error {
		now := s.clock.Now()
		var err error
		logged, err = doc.Months.LogPreviousDay(now, loc, now)
		return err
	})
	if err != nil {
		return lodging.LoggedDay{}, err
	}
	s.logger.Info("previous day logged", "month", logged.Month, "day", logged.Day)
	return logged, nil
}

// CloseMonth closes the month with a user-entered paid amount. The daily
// rate in effect is the one on the stored profile.
func (s *LedgerService) CloseMonth(ctx context.Context, rawKey, rawPaid string) (lodging.MonthView, error) {
	key, err := lodging.ParseMonthKey(rawKey)
	if err != nil {
		metrics.ObserveLedgerOperation(OperationCloseMonth, metrics.ResultRejected, 0)
		return lodging.MonthView{}, err
	}
	paid, err := lodging.ParseAmount(rawPaid)
	if err != nil {
		metrics.ObserveLedgerOperation(OperationCloseMonth, metrics.ResultRejected, 0)
		return lodging.MonthView{}, err
	}
	doc, err := s.mutate(ctx, OperationCloseMonth, func(doc *lodging.Document) error {
		_, err := doc.Months.CloseMonth(key, paid, doc.User.DailyRate)
		return err
	})
	if err != nil {
		return lodging.MonthView{}, err
	}
	view := lodging.ViewMonth(doc, key)
	s.logger.Info("month closed", "month", key, "days", view.DayCount, "computed", view.ComputedAmount, "paid", view.PaidAmount)
	s.notifyClosed(ctx, doc, view)
	return view, nil
}

// ReopenMonth reopens a month and clears its amounts.
func (s *LedgerService) ReopenMonth(ctx context.Context, rawKey string) (lodging.MonthView, error) {
	key, err := lodging.ParseMonthKey(rawKey)
	if err != nil {
		metrics.ObserveLedgerOperation(OperationReopenMonth, metrics.ResultRejected, 0)
		return lodging.MonthView{}, err
	}
	doc, err := s.mutate(ctx, OperationReopenMonth, func(doc *lodging.Document) error {
		_, err := doc.Months.ReopenMonth(key)
		return err
	})
	if err != nil {
		return lodging.MonthView{}, err
	}
	s.logger.Info("month reopened", "month", key)
	return lodging.ViewMonth(doc, key), nil
}

// SaveProfile replaces the user profile.
func (s *LedgerService) SaveProfile(ctx context.Context, profile lodging.Profile) (lodging.Profile, error) {
	if err := profile.Validate(); err != nil {
		metrics.ObserveLedgerOperation(OperationSaveProfile, metrics.ResultRejected, 0)
		return lodging.Profile{}, err
	}
	doc, err := s.mutate(ctx, OperationSaveProfile, func(doc *lodging.Document) error {
		doc.User = profile
		return nil
	})
	if err != nil {
		return lodging.Profile{}, err
	}
	return doc.User, nil
}

// Summary returns the general statistics.
func (s *LedgerService) Summary(ctx context.Context) (lodging.Summary, error) {
	doc, err := s.Document(ctx)
	if err != nil {
		return lodging.Summary{}, err
	}
	return lodging.Summarize(doc), nil
}

// Month returns the view of one month.
func (s *LedgerService) Month(ctx context.Context, rawKey string) (lodging.MonthView, error) {
	key, err := lodging.ParseMonthKey(rawKey)
	if err != nil {
		return lodging.MonthView{}, err
	}
	doc, err := s.Document(ctx)
	if err != nil {
		return lodging.MonthView{}, err
	}
	return lodging.ViewMonth(doc, key), nil
}

// Profile returns the stored profile.
func (s *LedgerService) Profile(ctx context.Context) (lodging.Profile, error) {
	doc, err := s.Document(ctx)
	if err != nil {
		return lodging.Profile{}, err
	}
	return doc.User, nil
}

// mutate loads, applies fn and saves. Nothing is saved when fn fails or
// leaves the document invalid.
func (s *LedgerService) mutate(ctx context.Context, operation string, fn func(doc *lodging.Document) error) (*lodging.Document, error) {
	start := time.Now()
	result := metrics.ResultSuccess
	defer func() {
		metrics.ObserveLedgerOperation(operation, result, time.Since(start))
	}()

	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.gateway.Load(ctx)
	if err != nil {
		result = metrics.ResultError
		return nil, fmt.Errorf("ledger service: load: %w", err)
	}
	if doc.Months == nil {
		doc.Months = lodging.Ledger{}
	}
	if err := fn(doc); err != nil {
		result = classify(err)
		return nil, err
	}
	if err := doc.Validate(); err != nil {
		result = metrics.ResultRejected
		return nil, err
	}
	if err := s.gateway.Save(ctx, doc); err != nil {
		result = metrics.ResultError
		return nil, fmt.Errorf("ledger service: save: %w", err)
	}
	return doc, nil
}

func (s *LedgerService) notifyClosed(ctx context.Context, doc *lodging.Document, view lodging.MonthView) {
	if s.notifier == nil {
		return
	}
	msg := notify.MonthClosedMessage{
		Month:     view.Month.String(),
		Days:      view.DayCount,
		DailyRate: view.DailyRate.StringFixed(2),
		Location:  doc.User.DefaultLocation,
	}
	if view.ComputedAmount != nil {
		msg.ComputedAmount = view.ComputedAmount.StringFixed(2)
	}
	if view.PaidAmount != nil {
		msg.PaidAmount = view.PaidAmount.StringFixed(2)
	}
	if view.HasDiscrepancy && view.Discrepancy != nil {
		msg.Discrepancy = view.Discrepancy.StringFixed(2)
	}
	result := metrics.ResultSuccess
	if err := s.notifier.NotifyMonthClosed(ctx, msg); err != nil {
		result = metrics.ResultError
		s.logger.Warn("month closed notification failed", "month", view.Month, "error", err)
	}
	metrics.IncNotification(result)
}

func (s *LedgerService) location() *time.Location {
	return s.clock.Now().Location()
}

func classify(err error) string {
	switch {
	case errors.Is(err, lodging.ErrMonthClosed),
		errors.Is(err, lodging.ErrDuplicateDay),
		errors.Is(err, lodging.ErrMonthNotFound),
		errors.Is(err, lodging.ErrInvalid):
		return metrics.ResultRejected
	default:
		return metrics.ResultError
	}
}
