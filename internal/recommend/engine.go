package recommend

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"finassist/internal/embedding"
	"finassist/internal/models"
	"finassist/internal/vectorstore"
	"finassist/pkg/logger"
)

const (
	maxUserTransactions = 5
	topOffers           = 3
	topStrategies       = 2
)

// OfferRecommendation is a retrieved offer with its flattened metadata parsed
// back into structured form.
type OfferRecommendation struct {
	Name                     string               `json:"name"`
	Description              string               `json:"description"`
	Type                     string               `json:"type"`
	DiscountValue            models.DiscountValue `json:"discount_value"`
	ApplicableCategories     []string             `json:"applicable_categories"`
	MinimumTransactionAmount float64              `json:"minimum_transaction_amount"`
}

// StrategyRecommendation is a retrieved investment strategy with its
// flattened metadata parsed back into structured form.
type StrategyRecommendation struct {
	Name                string                    `json:"name"`
	RiskProfile         string                    `json:"risk_profile"`
	TimeHorizon         string                    `json:"time_horizon"`
	TargetAnnualReturn  float64                   `json:"target_annual_return"`
	AllocationBlueprint map[string]float64        `json:"allocation_blueprint"`
	PerformanceMetrics  models.PerformanceMetrics `json:"performance_metrics"`
}

// Recommendations pairs ranked offer and strategy lists for one user. Both
// lists preserve retrieval rank.
type Recommendations struct {
	Offers     []OfferRecommendation    `json:"offers"`
	Strategies []StrategyRecommendation `json:"strategies"`
}

// Engine derives a user's category signal from indexed transactions and
// retrieves matching offers and strategies.
type Engine struct {
	embedder embedding.Model
	store    vectorstore.Store
	log      *logger.Logger
}

// NewEngine creates a recommendation engine.
func NewEngine(embedder embedding.Model, store vectorstore.Store, log *logger.Logger) *Engine {
	return &Engine{embedder: embedder, store: store, log: log}
}

// Recommend builds personalized offer and strategy recommendations for the
// user. Transactions are selected by an exact metadata match on user_id, not
// by similarity search, so one user's signal can never leak into another's.
func (e *Engine) Recommend(ctx context.Context, userID string) (*Recommendations, error) {
	transactions, err := e.store.QueryByMetadata(ctx, map[string]interface{}{
		models.MetadataKeyRecordType: string(models.RecordTypeTransaction),
		models.MetadataKeyUserID:     userID,
	}, maxUserTransactions)
	if err != nil {
		return nil, fmt.Errorf("failed to look up transactions for user '%s': %w", userID, err)
	}

	categories := distinctCategories(transactions)
	e.log.Debug(fmt.Sprintf("User '%s': %d transactions, categories [%s]",
		userID, len(transactions), strings.Join(categories, ", ")))

	offerMatches, err := e.queryByText(ctx,
		fmt.Sprintf("categories: %s", strings.Join(categories, ", ")),
		topOffers, string(models.RecordTypeOffer))
	if err != nil {
		return nil, err
	}
	strategyMatches, err := e.queryByText(ctx,
		fmt.Sprintf("spending patterns: %s", strings.Join(categories, ", ")),
		topStrategies, string(models.RecordTypeInvestmentStrategy))
	if err != nil {
		return nil, err
	}

	// No transactions means no category signal: the retrieval calls above
	// still run, but their results carry no personalization and are dropped.
	if len(categories) == 0 {
		return &Recommendations{
			Offers:     []OfferRecommendation{},
			Strategies: []StrategyRecommendation{},
		}, nil
	}

	recs := &Recommendations{
		Offers:     make([]OfferRecommendation, 0, len(offerMatches)),
		Strategies: make([]StrategyRecommendation, 0, len(strategyMatches)),
	}
	for _, match := range offerMatches {
		recs.Offers = append(recs.Offers, offerFromMetadata(match.Metadata))
	}
	for _, match := range strategyMatches {
		recs.Strategies = append(recs.Strategies, strategyFromMetadata(match.Metadata))
	}
	return recs, nil
}

// queryByText embeds the query text and runs a type-restricted vector query.
func (e *Engine) queryByText(ctx context.Context, text string, topK int, recordType string) ([]vectorstore.Match, error) {
	vector, err := e.embedder.Embed(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("failed to embed recommendation query: %w", err)
	}
	matches, err := e.store.QueryByVector(ctx, vector, topK, map[string]interface{}{
		models.MetadataKeyRecordType: recordType,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to query %s records: %w", recordType, err)
	}
	return matches, nil
}

// distinctCategories extracts the set of distinct transaction categories,
// preserving first-seen order.
func distinctCategories(entries []vectorstore.Entry) []string {
	seen := make(map[string]bool)
	var categories []string
	for _, entry := range entries {
		category := metadataString(entry.Metadata, models.MetadataKeyCategory)
		if category == "" || seen[category] {
			continue
		}
		seen[category] = true
		categories = append(categories, category)
	}
	return categories
}

// offerFromMetadata rebuilds a structured offer from flattened index metadata.
func offerFromMetadata(metadata map[string]interface{}) OfferRecommendation {
	offer := OfferRecommendation{
		Name:                     metadataStringOr(metadata, "name", "Unnamed Offer"),
		Description:              metadataStringOr(metadata, "description", "No description available"),
		Type:                     metadataStringOr(metadata, "type", "Unknown type"),
		MinimumTransactionAmount: metadataFloat(metadata, "minimum_transaction_amount"),
	}
	if cats := metadataString(metadata, "applicable_categories"); cats != "" {
		offer.ApplicableCategories = strings.Split(cats, ", ")
	}
	parseFlattened(metadata, "discount_value", &offer.DiscountValue)
	return offer
}

// strategyFromMetadata rebuilds a structured strategy from flattened index
// metadata.
func strategyFromMetadata(metadata map[string]interface{}) StrategyRecommendation {
	strategy := StrategyRecommendation{
		Name:                metadataStringOr(metadata, "name", "Unnamed Strategy"),
		RiskProfile:         metadataStringOr(metadata, "risk_profile", "Not specified"),
		TimeHorizon:         metadataStringOr(metadata, "time_horizon", "Not specified"),
		TargetAnnualReturn:  metadataFloat(metadata, "target_annual_return"),
		AllocationBlueprint: map[string]float64{},
	}
	parseFlattened(metadata, "allocation_blueprint", &strategy.AllocationBlueprint)
	parseFlattened(metadata, "performance_metrics", &strategy.PerformanceMetrics)
	return strategy
}

// parseFlattened decodes a JSON-flattened metadata field into out. A missing
// or malformed value leaves out at its zero (empty) value; parse failures
// never propagate.
func parseFlattened(metadata map[string]interface{}, key string, out interface{}) {
	raw, ok := metadata[key].(string)
	if !ok || raw == "" {
		return
	}
	_ = json.Unmarshal([]byte(raw), out)
}

func metadataString(metadata map[string]interface{}, key string) string {
	if v, ok := metadata[key].(string); ok {
		return v
	}
	return ""
}

func metadataStringOr(metadata map[string]interface{}, key, fallback string) string {
	if v := metadataString(metadata, key); v != "" {
		return v
	}
	return fallback
}

func metadataFloat(metadata map[string]interface{}, key string) float64 {
	if v, ok := metadata[key].(float64); ok {
		return v
	}
	return 0
}
