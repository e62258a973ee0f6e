package mongo

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	lodging "lodging-ledger/internal/lodging/domain"
)

func sampleDocument() *lodging.Document {
	at := time.Date(2025, time.May, 2, 22, 15, 0, 0, time.UTC)
	lat, lng := -22.9, -43.2
	computed := decimal.RequireFromString("240")
	paid := decimal.RequireFromString("250")

	doc := lodging.NewDocument()
	doc.User = lodging.Profile{Name: "Bruno", DefaultLocation: "Copacabana", DailyRate: decimal.RequireFromString("120")}
	doc.Months["2025-05"] = &lodging.MonthRecord{
		Days:           lodging.Days{2: {Timestamp: &at, Latitude: &lat, Longitude: &lng}, 3: {}},
		Closed:         true,
		ComputedAmount: &computed,
		PaidAmount:     &paid,
	}
	doc.Months["2025-06"] = &lodging.MonthRecord{Days: lodging.Days{10: {}}}
	return doc
}

func TestDocumentModelRoundTrip(t *testing.T) {
	doc := sampleDocument()
	m := toDocumentModel(documentID, doc, time.Now())
	if m.Months["2025-05"].PaidAmount == nil || *m.Months["2025-05"].PaidAmount != "250" {
		t.Fatalf("paid amount not encoded: %+v", m.Months["2025-05"])
	}
	if m.Months["2025-06"].ComputedAmount != nil {
		t.Fatalf("open month should have no computed amount")
	}

	got, err := fromDocumentModel(&m)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.User.Name != "Bruno" || !got.User.DailyRate.Equal(decimal.NewFromInt(120)) {
		t.Fatalf("profile mismatch: %+v", got.User)
	}
	may := got.Months["2025-05"]
	if may == nil || !may.Closed || may.Days.Count() != 2 {
		t.Fatalf("may mismatch: %+v", may)
	}
	if may.ComputedAmount == nil || !may.ComputedAmount.Equal(decimal.NewFromInt(240)) {
		t.Fatalf("computed mismatch: %v", may.ComputedAmount)
	}
	entry := may.Days[2]
	if entry.Latitude == nil || *entry.Latitude != -22.9 || entry.Timestamp == nil {
		t.Fatalf("entry mismatch: %+v", entry)
	}
	if june := got.Months["2025-06"]; june == nil || june.PaidAmount != nil || !june.Days.Has(10) {
		t.Fatalf("june mismatch: %+v", june)
	}
}

func TestFromDocumentModelRejectsBadValues(t *testing.T) {
	bad := "abc"
	cases := []struct {
		name  string
		model documentModel
	}{
		{
			name:  "daily rate",
			model: documentModel{User: profileModel{DailyRate: "x"}},
		},
		{
			name:  "month key",
			model: documentModel{Months: map[string]monthModel{"2025-13": {}}},
		},
		{
			name:  "day",
			model: documentModel{Months: map[string]monthModel{"2025-01": {Days: map[string]dayModel{"first": {}}}}},
		},
		{
			name:  "amount",
			model: documentModel{Months: map[string]monthModel{"2025-01": {PaidAmount: &bad}}},
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := fromDocumentModel(&tc.model); err == nil {
				t.Fatalf("expected error")
			}
		})
	}
}

func TestGateway_Mongo(t *testing.T) {
	uri := os.Getenv("MONGO_URI")
	if uri == "" {
		t.Skip("MONGO_URI not set")
	}

	ctx := context.Background()
	collection := fmt.Sprintf("lodging_it_%d", time.Now().UnixNano())
	gw, err := Open(ctx, uri, "lodging_test", WithCollection(collection))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer func() {
		_ = gw.collection.Drop(ctx)
		_ = gw.Close(ctx)
	}()

	empty, err := gw.Load(ctx)
	if err != nil {
		t.Fatalf("load empty: %v", err)
	}
	if len(empty.Months) != 0 {
		t.Fatalf("expected default document")
	}

	doc := sampleDocument()
	if err := gw.Save(ctx, doc); err != nil {
		t.Fatalf("save: %v", err)
	}
	delete(doc.Months, "2025-06")
	if err := gw.Save(ctx, doc); err != nil {
		t.Fatalf("save again: %v", err)
	}
	got, err := gw.Load(ctx)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(got.Months) != 1 || got.Months["2025-05"] == nil {
		t.Fatalf("months mismatch: %+v", got.Months)
	}
}

func TestGateway_NilCollection(t *testing.T) {
	gw := NewGateway(nil, "lodging")
	if _, err := gw.Load(context.Background()); err == nil {
		t.Fatalf("expected error")
	}
	if err := gw.Save(context.Background(), lodging.NewDocument()); err == nil {
		t.Fatalf("expected error")
	}
}
