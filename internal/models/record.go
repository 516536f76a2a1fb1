package models

import (
	"encoding/json"
	"fmt"
)

// RecordType discriminates the four indexable record variants.
type RecordType string

const (
	RecordTypeTransaction        RecordType = "transaction"
	RecordTypeOffer              RecordType = "offer"
	RecordTypeFinancialAsset     RecordType = "financial_asset"
	RecordTypeInvestmentStrategy RecordType = "investment_strategy"
)

// Index id prefixes keep ids from different record types from colliding
// inside a single collection.
const (
	TransactionIDPrefix = "txn_"
	OfferIDPrefix       = "off_"
	AssetIDPrefix       = "asset_"
	StrategyIDPrefix    = "strat_"
)

// Record is implemented by every indexable record variant. Each variant owns
// its canonical text projection and its scalar metadata mapping, so the
// projection logic stays isolated and independently testable instead of
// living in one large type switch.
type Record interface {
	// IndexID returns the type-namespaced id stored in the vector index.
	IndexID() string
	// Type returns the record's type tag.
	Type() RecordType
	// EmbeddingText returns the deterministic text projection used as
	// embedding input. It never fails; missing fields project as empty.
	EmbeddingText() string
	// IndexMetadata returns the scalar-only metadata stored alongside the
	// vector. Nested structures are flattened to JSON strings.
	IndexMetadata() map[string]interface{}
}

// SharedFields carries the bookkeeping fields common to every record variant.
// Records are immutable once created except for UpdatedAt.
type SharedFields struct {
	Keywords               []string `json:"keywords"`
	CreatedAt              string   `json:"created_at"`
	UpdatedAt              string   `json:"updated_at"`
	ExpiryDate             string   `json:"expiry_date"`
	CompatibleUserProfiles []string `json:"compatible_user_profiles"`
	Prerequisites          []string `json:"prerequisites"`
}

// Location is the geographic context of a transaction.
type Location struct {
	Geocoordinates []float64 `json:"geocoordinates"`
	City           string    `json:"city"`
	Country        string    `json:"country"`
}

// Recurrence marks a transaction as part of a repeating series.
type Recurrence struct {
	IsRecurring bool   `json:"is_recurring"`
	Frequency   string `json:"frequency"`
}

// LineItem is one entry in an itemized transaction breakdown.
type LineItem struct {
	Product  string  `json:"product"`
	Quantity int     `json:"quantity"`
	Price    float64 `json:"price"`
}

// TransactionDetails holds supplementary transaction data.
type TransactionDetails struct {
	InvoiceDetails      string     `json:"invoice_details"`
	ItemizedBreakdown   []LineItem `json:"itemized_breakdown"`
	LoyaltyPointsEarned int        `json:"loyalty_points_earned"`
}

// Transaction is a single payment made by a user.
type Transaction struct {
	TransactionID string             `json:"transaction_id"`
	UserID        string             `json:"user_id"`
	Timestamp     string             `json:"timestamp"`
	Amount        float64            `json:"amount"`
	Currency      string             `json:"currency"`
	Category      string             `json:"category"`
	MerchantName  string             `json:"merchant_name"`
	PaymentMethod string             `json:"payment_method"`
	Location      Location           `json:"location"`
	Tags          []string           `json:"tags"`
	Recurrence    Recurrence         `json:"recurrence"`
	Details       TransactionDetails `json:"metadata"`
	SharedFields
}

// DiscountValue describes an offer's discount, e.g. {type: "percent", value: 10}.
type DiscountValue struct {
	Type  string  `json:"type"`
	Value float64 `json:"value"`
}

// ValidityPeriod bounds the window in which an offer can be redeemed.
type ValidityPeriod struct {
	StartDate string `json:"start_date"`
	EndDate   string `json:"end_date"`
}

// TargetingRules narrows the audience an offer is shown to.
type TargetingRules struct {
	UserSpendingThreshold float64  `json:"user_spending_threshold"`
	PreferredCategories   []string `json:"preferred_categories"`
	RiskProfile           string   `json:"risk_profile"`
}

// Redemption holds the conditions under which an offer pays out.
type Redemption struct {
	Conditions string `json:"conditions"`
	TermsLink  string `json:"terms_link"`
}

// Offer is a promotional offer applicable to certain spending categories.
type Offer struct {
	OfferID                  string         `json:"offer_id"`
	Name                     string         `json:"name"`
	Description              string         `json:"description"`
	OfferType                string         `json:"type"`
	ApplicableCategories     []string       `json:"applicable_categories"`
	MinimumTransactionAmount float64        `json:"minimum_transaction_amount"`
	DiscountValue            DiscountValue  `json:"discount_value"`
	ValidityPeriod           ValidityPeriod `json:"validity_period"`
	PartnerMerchants         []string       `json:"partner_merchants"`
	TargetingRules           TargetingRules `json:"targeting_rules"`
	Redemption               Redemption     `json:"redemption"`
	SharedFields
}

// FinancialDetails holds the asset data sheets not used for retrieval.
type FinancialDetails struct {
	HistoricalPerformance map[string]string `json:"historical_performance"`
	TaxImplications       map[string]string `json:"tax_implications"`
	KeyFeatures           []string          `json:"key_features"`
}

// AssetMetadata carries free-form asset annotations.
type AssetMetadata struct {
	RegulatoryDocuments []string `json:"regulatory_documents"`
	Tags                []string `json:"tags"`
}

// FinancialAsset is an investable instrument such as a fund or deposit.
type FinancialAsset struct {
	AssetID                 string           `json:"asset_id"`
	AssetType               string           `json:"type"`
	Name                    string           `json:"name"`
	Issuer                  string           `json:"issuer"`
	RiskRating              int              `json:"risk_rating"`
	ExpectedReturn          float64          `json:"expected_return"`
	Liquidity               string           `json:"liquidity"`
	MinimumInvestmentAmount float64          `json:"minimum_investment_amount"`
	Tenure                  string           `json:"tenure"`
	FinancialDetails        FinancialDetails `json:"financial_details"`
	Metadata                AssetMetadata    `json:"metadata"`
	SharedFields
}

// PerformanceMetrics summarizes a strategy's historical behavior.
type PerformanceMetrics struct {
	BacktestedResults   string  `json:"backtested_results"`
	VolatilityScore     float64 `json:"volatility_score"`
	TaxEfficiencyRating string  `json:"tax_efficiency_rating"`
}

// UserRequirements lists what an investor needs before adopting a strategy.
type UserRequirements struct {
	MinimumCapital          float64  `json:"minimum_capital"`
	RecommendedAccountTypes []string `json:"recommended_account_types"`
}

// InvestmentStrategy is a named portfolio allocation plan.
type InvestmentStrategy struct {
	StrategyID          string             `json:"strategy_id"`
	Name                string             `json:"name"`
	RiskProfile         string             `json:"risk_profile"`
	TimeHorizon         string             `json:"time_horizon"`
	TargetAnnualReturn  float64            `json:"target_annual_return"`
	AllocationBlueprint map[string]float64 `json:"allocation_blueprint"`
	PerformanceMetrics  PerformanceMetrics `json:"performance_metrics"`
	UserRequirements    UserRequirements   `json:"user_requirements"`
	SharedFields
}

// Dataset is the ingestion input envelope: four top-level arrays, one per
// record variant.
type Dataset struct {
	Transactions         []Transaction        `json:"transactions"`
	Offers               []Offer              `json:"offers"`
	FinancialAssets      []FinancialAsset     `json:"financial_assets"`
	InvestmentStrategies []InvestmentStrategy `json:"investment_strategies"`
}

// Records returns all records in the dataset in declaration order.
func (d *Dataset) Records() []Record {
	records := make([]Record, 0,
		len(d.Transactions)+len(d.Offers)+len(d.FinancialAssets)+len(d.InvestmentStrategies))
	for i := range d.Transactions {
		records = append(records, &d.Transactions[i])
	}
	for i := range d.Offers {
		records = append(records, &d.Offers[i])
	}
	for i := range d.FinancialAssets {
		records = append(records, &d.FinancialAssets[i])
	}
	for i := range d.InvestmentStrategies {
		records = append(records, &d.InvestmentStrategies[i])
	}
	return records
}

// ParseDataset decodes the ingestion JSON envelope.
func ParseDataset(data []byte) (*Dataset, error) {
	var ds Dataset
	if err := json.Unmarshal(data, &ds); err != nil {
		return nil, fmt.Errorf("failed to parse dataset: %w", err)
	}
	return &ds, nil
}
