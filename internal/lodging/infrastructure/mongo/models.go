package mongo

import (
	"fmt"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	lodging "lodging-ledger/internal/lodging/domain"
)

type documentModel struct {
	ID        string                `bson:"_id"`
	User      profileModel          `bson:"user"`
	Months    map[string]monthModel `bson:"months"`
	UpdatedAt time.Time             `bson:"updated_at"`
}

type profileModel struct {
	Name            string `bson:"name"`
	DefaultLocation string `bson:"default_location"`
	DailyRate       string `bson:"daily_rate"`
}

type monthModel struct {
	Days           map[string]dayModel `bson:"days"`
	Closed         bool                `bson:"closed"`
	ComputedAmount *string             `bson:"computed_amount,omitempty"`
	PaidAmount     *string             `bson:"paid_amount,omitempty"`
}

type dayModel struct {
	Timestamp *time.Time `bson:"timestamp,omitempty"`
	Latitude  *float64   `bson:"latitude,omitempty"`
	Longitude *float64   `bson:"longitude,omitempty"`
}

func toDocumentModel(id string, doc *lodging.Document, now time.Time) documentModel {
	m := documentModel{
		ID: id,
		User: profileModel{
			Name:            doc.User.Name,
			DefaultLocation: doc.User.DefaultLocation,
			DailyRate:       doc.User.DailyRate.String(),
		},
		Months:    make(map[string]monthModel, len(doc.Months)),
		UpdatedAt: now.UTC(),
	}
	for key, record := range doc.Months {
		if record == nil {
			continue
		}
		month := monthModel{
			Days:           make(map[string]dayModel, len(record.Days)),
			Closed:         record.Closed,
			ComputedAmount: amountString(record.ComputedAmount),
			PaidAmount:     amountString(record.PaidAmount),
		}
		for day, entry := range record.Days {
			month.Days[strconv.Itoa(day)] = dayModel{
				Timestamp: entry.Timestamp,
				Latitude:  entry.Latitude,
				Longitude: entry.Longitude,
			}
		}
		m.Months[key.String()] = month
	}
	return m
}

func fromDocumentModel(m *documentModel) (*lodging.Document, error) {
	doc := lodging.NewDocument()
	doc.User.Name = m.User.Name
	doc.User.DefaultLocation = m.User.DefaultLocation
	if m.User.DailyRate != "" {
		rate, err := decimal.NewFromString(m.User.DailyRate)
		if err != nil {
			return nil, fmt.Errorf("daily rate %q: %w", m.User.DailyRate, err)
		}
		doc.User.DailyRate = rate
	}
	for rawKey, month := range m.Months {
		key, err := lodging.ParseMonthKey(rawKey)
		if err != nil {
			return nil, err
		}
		record := lodging.NewMonthRecord()
		record.Closed = month.Closed
		for rawDay, entry := range month.Days {
			day, err := strconv.Atoi(rawDay)
			if err != nil {
				return nil, fmt.Errorf("month %s: day %q: %w", key, rawDay, err)
			}
			var ts *time.Time
			if entry.Timestamp != nil {
				t := entry.Timestamp.UTC()
				ts = &t
			}
			record.Days[day] = lodging.DayEntry{Timestamp: ts, Latitude: entry.Latitude, Longitude: entry.Longitude}
		}
		if record.ComputedAmount, err = parseAmount(month.ComputedAmount); err != nil {
			return nil, fmt.Errorf("month %s: %w", key, err)
		}
		if record.PaidAmount, err = parseAmount(month.PaidAmount); err != nil {
			return nil, fmt.Errorf("month %s: %w", key, err)
		}
		doc.Months[key] = record
	}
	return doc, nil
}

func amountString(d *decimal.Decimal) *string {
	if d == nil {
		return nil
	}
	s := d.String()
	return &s
}

func parseAmount(s *string) (*decimal.Decimal, error) {
	if s == nil || *s == "" {
		return nil, nil
	}
	d, err := decimal.NewFromString(*s)
	if err != nil {
		return nil, fmt.Errorf("amount %q: %w", *s, err)
	}
	return &d, nil
}
