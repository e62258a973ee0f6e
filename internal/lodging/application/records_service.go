package application

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	lodging "lodging-ledger/internal/lodging/domain"
	"lodging-ledger/internal/observability/metrics"
)

const (
	TableProfile = "profile"
	TableMonths  = "months"

	legacyTableProfile = "usuario"
	legacyTableMonths  = "hospedagem"

	profileRowID = "1"
)

// Record is one raw table row.
type Record struct {
	Table string          `json:"table"`
	ID    string          `json:"id"`
	Data  json.RawMessage `json:"data"`
}

// RecordsService edits the document table by table. Writes are checked
// for shape but bypass the month open/closed rules.
type RecordsService struct {
	gateway lodging.Gateway
	mu      sync.Locker
}

// NewRecordsService constructs a service. Pass the ledger service's Locker
// when both write the same gateway; nil gives the service its own lock.
func NewRecordsService(gateway lodging.Gateway, lock sync.Locker) (*RecordsService, error) {
	if gateway == nil {
		return nil, errors.New("records service: nil gateway")
	}
	if lock == nil {
		lock = &sync.Mutex{}
	}
	return &RecordsService{gateway: gateway, mu: lock}, nil
}

// Tables lists the editable tables.
func (s *RecordsService) Tables() []string {
	return []string{TableProfile, TableMonths}
}

// List returns every row of table. Month rows are in key order.
func (s *RecordsService) List(ctx context.Context, table string) ([]Record, error) {
	table, err := canonicalTable(table)
	if err != nil {
		return nil, err
	}
	doc, err := s.gateway.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("records service: load: %w", err)
	}
	if table == TableProfile {
		row, err := profileRecord(doc.User)
		if err != nil {
			return nil, err
		}
		return []Record{row}, nil
	}
	rows := make([]Record, 0, len(doc.Months))
	for _, key := range doc.Months.Keys() {
		row, err := monthRecord(key, doc.Months[key])
		if err != nil {
			return nil, err
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// Get returns one row.
func (s *RecordsService) Get(ctx context.Context, table, id string) (Record, error) {
	table, err := canonicalTable(table)
	if err != nil {
		return Record{}, err
	}
	doc, err := s.gateway.Load(ctx)
	if err != nil {
		return Record{}, fmt.Errorf("records service: load: %w", err)
	}
	if table == TableProfile {
		if id != profileRowID {
			return Record{}, lodging.ErrRecordNotFound
		}
		return profileRecord(doc.User)
	}
	record := doc.Months[lodging.MonthKey(id)]
	if record == nil {
		return Record{}, lodging.ErrRecordNotFound
	}
	return monthRecord(lodging.MonthKey(id), record)
}

// Create inserts a row. The profile row always exists, so creating it
// overwrites it. A month row needs an "id", "month" or "mesAno" field.
func (s *RecordsService) Create(ctx context.Context, table string, body json.RawMessage) (Record, error) {
	table, err := canonicalTable(table)
	if err != nil {
		return Record{}, err
	}
	if table == TableProfile {
		return s.writeProfile(ctx, body)
	}
	var ident struct {
		ID     string `json:"id"`
		Month  string `json:"month"`
		MesAno string `json:"mesAno"`
	}
	if err := json.Unmarshal(body, &ident); err != nil {
		return Record{}, &lodging.ValidationError{Field: "body", Message: "invalid json"}
	}
	rawKey := ident.ID
	if rawKey == "" {
		rawKey = ident.Month
	}
	if rawKey == "" {
		rawKey = ident.MesAno
	}
	key, err := lodging.ParseMonthKey(rawKey)
	if err != nil {
		return Record{}, err
	}
	return s.writeMonth(ctx, key, body, false)
}

// Update replaces an existing row.
func (s *RecordsService) Update(ctx context.Context, table, id string, body json.RawMessage) (Record, error) {
	table, err := canonicalTable(table)
	if err != nil {
		return Record{}, err
	}
	if table == TableProfile {
		if id != profileRowID {
			return Record{}, lodging.ErrRecordNotFound
		}
		return s.writeProfile(ctx, body)
	}
	key, err := lodging.ParseMonthKey(id)
	if err != nil {
		return Record{}, err
	}
	return s.writeMonth(ctx, key, body, true)
}

// Delete removes a month row, or resets the profile row.
func (s *RecordsService) Delete(ctx context.Context, table, id string) error {
	table, err := canonicalTable(table)
	if err != nil {
		return err
	}
	return s.write(ctx, func(doc *lodging.Document) error {
		if table == TableProfile {
			if id != profileRowID {
				return lodging.ErrRecordNotFound
			}
			doc.User = lodging.Profile{}
			return nil
		}
		key := lodging.MonthKey(id)
		if doc.Months[key] == nil {
			return lodging.ErrRecordNotFound
		}
		delete(doc.Months, key)
		return nil
	})
}

func (s *RecordsService) writeProfile(ctx context.Context, body json.RawMessage) (Record, error) {
	var profile lodging.Profile
	if err := json.Unmarshal(body, &profile); err != nil {
		return Record{}, &lodging.ValidationError{Field: "body", Message: err.Error()}
	}
	if err := profile.Validate(); err != nil {
		return Record{}, err
	}
	if err := s.write(ctx, func(doc *lodging.Document) error {
		doc.User = profile
		return nil
	}); err != nil {
		return Record{}, err
	}
	return profileRecord(profile)
}

func (s *RecordsService) writeMonth(ctx context.Context, key lodging.MonthKey, body json.RawMessage, mustExist bool) (Record, error) {
	var record lodging.MonthRecord
	if err := json.Unmarshal(body, &record); err != nil {
		return Record{}, &lodging.ValidationError{Field: "body", Message: err.Error()}
	}
	if err := record.Validate(key); err != nil {
		return Record{}, err
	}
	if err := s.write(ctx, func(doc *lodging.Document) error {
		existing := doc.Months[key]
		if mustExist && existing == nil {
			return lodging.ErrRecordNotFound
		}
		if !mustExist && existing != nil {
			return lodging.ErrRecordExists
		}
		doc.Months[key] = &record
		return nil
	}); err != nil {
		return Record{}, err
	}
	return monthRecord(key, &record)
}

func (s *RecordsService) write(ctx context.Context, fn func(doc *lodging.Document) error) error {
	start := time.Now()
	result := metrics.ResultSuccess
	defer func() {
		metrics.ObserveLedgerOperation(OperationRecords, result, time.Since(start))
	}()

	s.mu.Lock()
	defer s.mu.Unlock()
	doc, err := s.gateway.Load(ctx)
	if err != nil {
		result = metrics.ResultError
		return fmt.Errorf("records service: load: %w", err)
	}
	if doc.Months == nil {
		doc.Months = lodging.Ledger{}
	}
	if err := fn(doc); err != nil {
		result = metrics.ResultRejected
		return err
	}
	if err := s.gateway.Save(ctx, doc); err != nil {
		result = metrics.ResultError
		return fmt.Errorf("records service: save: %w", err)
	}
	return nil
}

// canonicalTable also accepts the table names of the original database.
func canonicalTable(table string) (string, error) {
	switch table {
	case TableProfile, legacyTableProfile:
		return TableProfile, nil
	case TableMonths, legacyTableMonths:
		return TableMonths, nil
	default:
		return "", fmt.Errorf("%w: %q", lodging.ErrUnknownTable, table)
	}
}

func profileRecord(profile lodging.Profile) (Record, error) {
	data, err := json.Marshal(profile)
	if err != nil {
		return Record{}, err
	}
	return Record{Table: TableProfile, ID: profileRowID, Data: data}, nil
}

func monthRecord(key lodging.MonthKey, record *lodging.MonthRecord) (Record, error) {
	data, err := json.Marshal(record)
	if err != nil {
		return Record{}, err
	}
	return Record{Table: TableMonths, ID: key.String(), Data: data}, nil
}
