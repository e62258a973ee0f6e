package postgres

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	lodging "lodging-ledger/internal/lodging/domain"
)

func TestGateway_Postgres(t *testing.T) {
	dsn := os.Getenv("PG_DSN")
	if dsn == "" {
		t.Skip("PG_DSN not set")
	}

	ctx := context.Background()
	prefix := fmt.Sprintf("lodging_it_%d_", time.Now().UnixNano())
	gw, err := Open(ctx, dsn, WithTablePrefix(prefix))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer func() {
		_, _ = gw.DB().ExecContext(ctx, "DROP TABLE IF EXISTS "+prefix+"profile")
		_, _ = gw.DB().ExecContext(ctx, "DROP TABLE IF EXISTS "+prefix+"months")
		_ = gw.Close()
	}()

	empty, err := gw.Load(ctx)
	if err != nil {
		t.Fatalf("load empty: %v", err)
	}
	if len(empty.Months) != 0 || empty.User.Name != "" {
		t.Fatalf("expected default document, got %+v", empty)
	}

	at := time.Date(2025, time.March, 4, 8, 30, 0, 0, time.UTC)
	lat := -23.55
	computed := decimal.RequireFromString("300")
	paid := decimal.RequireFromString("310.5")

	doc := lodging.NewDocument()
	doc.User = lodging.Profile{Name: "Ana", DefaultLocation: "Centro", DailyRate: decimal.RequireFromString("150")}
	doc.Months["2025-03"] = &lodging.MonthRecord{
		Days:           lodging.Days{4: {Timestamp: &at, Latitude: &lat}, 5: {}},
		Closed:         true,
		ComputedAmount: &computed,
		PaidAmount:     &paid,
	}
	doc.Months["2025-04"] = &lodging.MonthRecord{Days: lodging.Days{1: {}}}
	if err := gw.Save(ctx, doc); err != nil {
		t.Fatalf("save: %v", err)
	}

	got, err := gw.Load(ctx)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got.User.Name != "Ana" || !got.User.DailyRate.Equal(decimal.NewFromInt(150)) {
		t.Fatalf("profile mismatch: %+v", got.User)
	}
	march := got.Months["2025-03"]
	if march == nil || !march.Closed || march.Days.Count() != 2 {
		t.Fatalf("march mismatch: %+v", march)
	}
	if march.PaidAmount == nil || !march.PaidAmount.Equal(paid) {
		t.Fatalf("paid mismatch: %v", march.PaidAmount)
	}
	entry := march.Days[4]
	if entry.Timestamp == nil || !entry.Timestamp.Equal(at) || entry.Latitude == nil || *entry.Latitude != lat {
		t.Fatalf("entry mismatch: %+v", entry)
	}

	delete(doc.Months, "2025-04")
	if err := gw.Save(ctx, doc); err != nil {
		t.Fatalf("save pruned: %v", err)
	}
	got, err = gw.Load(ctx)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if _, ok := got.Months["2025-04"]; ok {
		t.Fatalf("expected 2025-04 to be removed")
	}
}

func TestGateway_NilDB(t *testing.T) {
	var gw *Gateway
	if _, err := gw.Load(context.Background()); err == nil {
		t.Fatalf("expected nil db error")
	}
	if err := NewGateway(nil).Save(context.Background(), lodging.NewDocument()); err == nil {
		t.Fatalf("expected nil db error")
	}
}
