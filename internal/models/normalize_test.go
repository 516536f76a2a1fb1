package models

import (
	"encoding/json"
	"strings"
	"testing"
)

func sampleTransaction() Transaction {
	return Transaction{
		TransactionID: "t1",
		UserID:        "u1",
		Amount:        1499.5,
		Currency:      "INR",
		Category:      "groceries",
		MerchantName:  "BigBasket",
		Tags:          []string{"recurring", "personal"},
		Details: TransactionDetails{
			ItemizedBreakdown: []LineItem{
				{Product: "Item A", Quantity: 1, Price: 499},
				{Product: "Item B", Quantity: 2, Price: 250},
			},
		},
	}
}

func TestTransactionEmbeddingText(t *testing.T) {
	txn := sampleTransaction()

	got := txn.EmbeddingText()
	want := "Transaction ID: t1 • Category: groceries • Merchant: BigBasket • " +
		"Amount: 1499.5 INR • Tags: recurring, personal • User ID: u1 • " +
		"Items: Item A (qty 1, ₹499), Item B (qty 2, ₹250)"
	if got != want {
		t.Errorf("EmbeddingText mismatch:\n got  %q\n want %q", got, want)
	}

	// Same input must always produce the same projection.
	if again := txn.EmbeddingText(); again != got {
		t.Errorf("projection is not deterministic: %q vs %q", again, got)
	}
}

func TestEmbeddingTextHandlesMissingFields(t *testing.T) {
	txn := &Transaction{}
	got := txn.EmbeddingText()
	if got == "" {
		t.Fatal("empty transaction must still project to non-empty text")
	}
	if !strings.Contains(got, "Category: ") {
		t.Errorf("missing fields should project as empty, got %q", got)
	}
}

func TestEmbeddingTextOfUnknownValue(t *testing.T) {
	got := EmbeddingTextOf(map[string]string{"k": "v"})
	if got != `{"k":"v"}` {
		t.Errorf("unknown values should fall back to JSON, got %q", got)
	}
}

func TestIndexIDPrefixes(t *testing.T) {
	cases := []struct {
		record Record
		want   string
	}{
		{&Transaction{TransactionID: "1"}, "txn_1"},
		{&Offer{OfferID: "2"}, "off_2"},
		{&FinancialAsset{AssetID: "3"}, "asset_3"},
		{&InvestmentStrategy{StrategyID: "4"}, "strat_4"},
	}
	for _, tc := range cases {
		if got := tc.record.IndexID(); got != tc.want {
			t.Errorf("IndexID() = %q, want %q", got, tc.want)
		}
	}
}

func TestOfferMetadataIsScalar(t *testing.T) {
	offer := Offer{
		OfferID:                  "o1",
		Name:                     "Super Saver Offer",
		OfferType:                "cashback",
		ApplicableCategories:     []string{"dining", "electronics"},
		MinimumTransactionAmount: 500,
		DiscountValue:            DiscountValue{Type: "percent", Value: 10},
	}

	metadata := offer.IndexMetadata()
	for key, value := range metadata {
		switch value.(type) {
		case string, bool, int, float64:
		default:
			t.Errorf("metadata key %q has non-scalar value %T", key, value)
		}
	}

	if got := metadata["applicable_categories"]; got != "dining, electronics" {
		t.Errorf("applicable_categories = %v, want joined string", got)
	}

	var discount DiscountValue
	if err := json.Unmarshal([]byte(metadata["discount_value"].(string)), &discount); err != nil {
		t.Fatalf("discount_value does not parse back: %v", err)
	}
	if discount != (DiscountValue{Type: "percent", Value: 10}) {
		t.Errorf("discount round-trip = %+v", discount)
	}
}

func TestStrategyEmbeddingTextAllocationOrder(t *testing.T) {
	strategy := InvestmentStrategy{
		StrategyID:          "s1",
		Name:                "Balanced Income Portfolio",
		RiskProfile:         "moderate",
		TimeHorizon:         "medium-term",
		AllocationBlueprint: map[string]float64{"mutual_funds": 50, "FD": 30, "equities": 20},
	}

	first := strategy.EmbeddingText()
	for i := 0; i < 10; i++ {
		if got := strategy.EmbeddingText(); got != first {
			t.Fatalf("allocation projection not deterministic: %q vs %q", got, first)
		}
	}
	if !strings.Contains(first, "Allocation: FD:30%, equities:20%, mutual_funds:50%") {
		t.Errorf("allocation should be sorted by asset class, got %q", first)
	}
}

func TestFlattenJSONUnserializable(t *testing.T) {
	if got := FlattenJSON(func() {}); got != "{}" {
		t.Errorf("unserializable value should flatten to empty object, got %q", got)
	}
}

func TestDatasetRecordsOrder(t *testing.T) {
	ds := &Dataset{
		Transactions:         []Transaction{{TransactionID: "t"}},
		Offers:               []Offer{{OfferID: "o"}},
		FinancialAssets:      []FinancialAsset{{AssetID: "a"}},
		InvestmentStrategies: []InvestmentStrategy{{StrategyID: "s"}},
	}
	records := ds.Records()
	if len(records) != 4 {
		t.Fatalf("Records() returned %d records, want 4", len(records))
	}
	wantIDs := []string{"txn_t", "off_o", "asset_a", "strat_s"}
	for i, want := range wantIDs {
		if got := records[i].IndexID(); got != want {
			t.Errorf("records[%d] = %q, want %q", i, got, want)
		}
	}
}

func TestGeneratorDeterminism(t *testing.T) {
	a := NewGenerator(42).Dataset(5, 3, 3, 3)
	b := NewGenerator(42).Dataset(5, 3, 3, 3)

	if len(a.Transactions) != 5 || len(a.Offers) != 3 {
		t.Fatalf("unexpected dataset shape: %d transactions, %d offers",
			len(a.Transactions), len(a.Offers))
	}
	for i := range a.Transactions {
		if a.Transactions[i].TransactionID != b.Transactions[i].TransactionID {
			t.Errorf("seeded generation differs at transaction %d", i)
		}
	}
	for i := range a.Offers {
		if a.Offers[i].Description != b.Offers[i].Description {
			t.Errorf("seeded generation differs at offer %d", i)
		}
	}
}
