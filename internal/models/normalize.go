package models

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// fieldSeparator joins the projected fields of a record into one embedding
// input string. It is part of the index contract: changing it changes every
// stored embedding.
const fieldSeparator = " • "

// EmbeddingTextOf normalizes an arbitrary value for embedding. Known record
// variants use their own projection; anything else degrades to a full JSON
// serialization so that normalization never fails.
func EmbeddingTextOf(v interface{}) string {
	if r, ok := v.(Record); ok {
		return r.EmbeddingText()
	}
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(data)
}

// FlattenJSON serializes a nested structure into a scalar string so it can be
// stored as index metadata. A value that cannot be serialized flattens to an
// empty JSON object rather than failing.
func FlattenJSON(v interface{}) string {
	data, err := json.Marshal(v)
	if err != nil {
		return "{}"
	}
	return string(data)
}

func (t *Transaction) IndexID() string { return TransactionIDPrefix + t.TransactionID }

func (t *Transaction) Type() RecordType { return RecordTypeTransaction }

// EmbeddingText projects the transaction's identifying fields into one line.
func (t *Transaction) EmbeddingText() string {
	fields := []string{
		fmt.Sprintf("Transaction ID: %s", t.TransactionID),
		fmt.Sprintf("Category: %s", t.Category),
		fmt.Sprintf("Merchant: %s", t.MerchantName),
		fmt.Sprintf("Amount: %g %s", t.Amount, t.Currency),
		fmt.Sprintf("Tags: %s", strings.Join(t.Tags, ", ")),
		fmt.Sprintf("User ID: %s", t.UserID),
	}
	if len(t.Details.ItemizedBreakdown) > 0 {
		items := make([]string, len(t.Details.ItemizedBreakdown))
		for i, item := range t.Details.ItemizedBreakdown {
			items[i] = fmt.Sprintf("%s (qty %d, ₹%g)", item.Product, item.Quantity, item.Price)
		}
		fields = append(fields, fmt.Sprintf("Items: %s", strings.Join(items, ", ")))
	}
	return strings.Join(fields, fieldSeparator)
}

func (t *Transaction) IndexMetadata() map[string]interface{} {
	return map[string]interface{}{
		MetadataKeyRecordType: string(RecordTypeTransaction),
		MetadataKeyUserID:     t.UserID,
		MetadataKeyCategory:   t.Category,
		"currency":            t.Currency,
		"amount":              t.Amount,
	}
}

func (o *Offer) IndexID() string { return OfferIDPrefix + o.OfferID }

func (o *Offer) Type() RecordType { return RecordTypeOffer }

func (o *Offer) EmbeddingText() string {
	fields := []string{
		fmt.Sprintf("Offer ID: %s", o.OfferID),
		fmt.Sprintf("Name: %s", o.Name),
		fmt.Sprintf("Description: %s", o.Description),
		fmt.Sprintf("Type: %s", o.OfferType),
		fmt.Sprintf("Categories: %s", strings.Join(o.ApplicableCategories, ", ")),
		fmt.Sprintf("Min Amount: %g", o.MinimumTransactionAmount),
		fmt.Sprintf("Discount: %g%s", o.DiscountValue.Value, o.DiscountValue.Type),
	}
	return strings.Join(fields, fieldSeparator)
}

func (o *Offer) IndexMetadata() map[string]interface{} {
	return map[string]interface{}{
		MetadataKeyRecordType:        string(RecordTypeOffer),
		"name":                       o.Name,
		"description":                o.Description,
		"type":                       o.OfferType,
		"applicable_categories":      strings.Join(o.ApplicableCategories, ", "),
		"minimum_transaction_amount": o.MinimumTransactionAmount,
		// Nested structures flatten to JSON strings to keep metadata scalar.
		"discount_value": FlattenJSON(o.DiscountValue),
	}
}

func (a *FinancialAsset) IndexID() string { return AssetIDPrefix + a.AssetID }

func (a *FinancialAsset) Type() RecordType { return RecordTypeFinancialAsset }

func (a *FinancialAsset) EmbeddingText() string {
	fields := []string{
		fmt.Sprintf("Asset ID: %s", a.AssetID),
		fmt.Sprintf("Name: %s", a.Name),
		fmt.Sprintf("Type: %s", a.AssetType),
		fmt.Sprintf("Issuer: %s", a.Issuer),
		fmt.Sprintf("Risk Rating: %d", a.RiskRating),
		fmt.Sprintf("Expected Return: %g%%", a.ExpectedReturn),
	}
	return strings.Join(fields, fieldSeparator)
}

func (a *FinancialAsset) IndexMetadata() map[string]interface{} {
	return map[string]interface{}{
		MetadataKeyRecordType: string(RecordTypeFinancialAsset),
		"name":                a.Name,
		"type":                a.AssetType,
		"issuer":              a.Issuer,
		"risk_rating":         a.RiskRating,
		"expected_return":     a.ExpectedReturn,
	}
}

func (s *InvestmentStrategy) IndexID() string { return StrategyIDPrefix + s.StrategyID }

func (s *InvestmentStrategy) Type() RecordType { return RecordTypeInvestmentStrategy }

func (s *InvestmentStrategy) EmbeddingText() string {
	allocations := make([]string, 0, len(s.AllocationBlueprint))
	for _, class := range sortedKeys(s.AllocationBlueprint) {
		allocations = append(allocations, fmt.Sprintf("%s:%g%%", class, s.AllocationBlueprint[class]))
	}
	fields := []string{
		fmt.Sprintf("Strategy ID: %s", s.StrategyID),
		fmt.Sprintf("Name: %s", s.Name),
		fmt.Sprintf("Risk Profile: %s", s.RiskProfile),
		fmt.Sprintf("Time Horizon: %s", s.TimeHorizon),
		fmt.Sprintf("Allocation: %s", strings.Join(allocations, ", ")),
	}
	return strings.Join(fields, fieldSeparator)
}

func (s *InvestmentStrategy) IndexMetadata() map[string]interface{} {
	return map[string]interface{}{
		MetadataKeyRecordType:  string(RecordTypeInvestmentStrategy),
		"name":                 s.Name,
		"risk_profile":         s.RiskProfile,
		"time_horizon":         s.TimeHorizon,
		"target_annual_return": s.TargetAnnualReturn,
		"allocation_blueprint": FlattenJSON(s.AllocationBlueprint),
		"performance_metrics":  FlattenJSON(s.PerformanceMetrics),
	}
}

// sortedKeys keeps map-derived projections deterministic.
func sortedKeys(m map[string]float64) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// compile-time checks that every variant implements Record
var (
	_ Record = (*Transaction)(nil)
	_ Record = (*Offer)(nil)
	_ Record = (*FinancialAsset)(nil)
	_ Record = (*InvestmentStrategy)(nil)
)
