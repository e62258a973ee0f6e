package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	lodging "lodging-ledger/internal/lodging/domain"
)

func openTestGateway(t *testing.T) *Gateway {
	t.Helper()
	gw, err := Open(context.Background(), filepath.Join(t.TempDir(), "lodging.db"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { _ = gw.Close() })
	return gw
}

func TestLoadEmptyDatabase(t *testing.T) {
	gw := openTestGateway(t)
	doc, err := gw.Load(context.Background())
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(doc.Months) != 0 || !doc.User.DailyRate.IsZero() {
		t.Fatalf("expected empty document, got %+v", doc)
	}
}

func TestSaveReplacesDocument(t *testing.T) {
	gw := openTestGateway(t)
	ctx := context.Background()

	ts := time.Date(2025, 3, 4, 21, 15, 0, 0, time.UTC)
	lat, lng := -23.5, -46.6
	paid := decimal.RequireFromString("140.50")
	computed := decimal.NewFromInt(150)
	doc := lodging.NewDocument()
	doc.User = lodging.Profile{Name: "Ana", DefaultLocation: "Centro", DailyRate: decimal.NewFromInt(50)}
	doc.Months["2025-02"] = &lodging.MonthRecord{Days: lodging.Days{1: {}, 2: {}, 3: {}}, Closed: true, ComputedAmount: &computed, PaidAmount: &paid}
	doc.Months["2025-03"] = &lodging.MonthRecord{Days: lodging.Days{4: {Timestamp: &ts, Latitude: &lat, Longitude: &lng}}}
	if err := gw.Save(ctx, doc); err != nil {
		t.Fatalf("save: %v", err)
	}

	loaded, err := gw.Load(ctx)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if loaded.User.Name != "Ana" || !loaded.User.DailyRate.Equal(decimal.NewFromInt(50)) {
		t.Fatalf("unexpected profile %+v", loaded.User)
	}
	feb := loaded.Months["2025-02"]
	if feb == nil || !feb.Closed || feb.Days.Count() != 3 || !feb.PaidAmount.Equal(paid) || !feb.ComputedAmount.Equal(computed) {
		t.Fatalf("unexpected february %+v", feb)
	}
	entry := loaded.Months["2025-03"].Days[4]
	if entry.Timestamp == nil || !entry.Timestamp.Equal(ts) || entry.Latitude == nil || *entry.Latitude != lat {
		t.Fatalf("unexpected entry %+v", entry)
	}
	if loaded.Months["2025-03"].PaidAmount != nil {
		t.Fatalf("open month must not carry a paid amount")
	}

	delete(loaded.Months, "2025-02")
	if err := gw.Save(ctx, loaded); err != nil {
		t.Fatalf("second save: %v", err)
	}
	again, err := gw.Load(ctx)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if _, ok := again.Months["2025-02"]; ok {
		t.Fatalf("removed month still stored")
	}
	if len(again.Months) != 1 {
		t.Fatalf("expected 1 month, got %d", len(again.Months))
	}
}
