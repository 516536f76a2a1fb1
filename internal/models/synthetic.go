package models

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/google/uuid"
)

// Generator produces synthetic financial records for seeding demo
// deployments and tests. All randomness flows through a single seeded source,
// so a fixed seed yields a fixed dataset.
type Generator struct {
	rng *rand.Rand
}

// NewGenerator creates a generator with the given seed.
func NewGenerator(seed int64) *Generator {
	return &Generator{rng: rand.New(rand.NewSource(seed))}
}

var (
	categories     = []string{"dining", "electronics", "travel", "groceries"}
	merchants      = []string{"Amazon", "Flipkart", "Swiggy", "Uber", "IRCTC"}
	paymentMethods = []string{"credit card", "debit card", "UPI", "net banking"}
	cities         = []string{"Delhi", "Mumbai", "Bangalore", "Chennai", "Hyderabad"}
	tagPool        = []string{"business", "urgent", "personal", "gift", "recurring", "travel"}
)

type offerTemplate struct {
	name           string
	description    string
	offerType      string
	categories     []string
	minAmountRange [2]int
	discountRange  [2]int
	merchants      []string
}

var offerTemplates = []offerTemplate{
	{
		name:           "Super Saver Offer",
		description:    "Get %d%% cashback on %s with a minimum spend of ₹%d at %s.",
		offerType:      "cashback",
		categories:     []string{"dining", "electronics"},
		minAmountRange: [2]int{500, 2000},
		discountRange:  [2]int{5, 20},
		merchants:      []string{"Zomato", "Flipkart", "Amazon", "Swiggy"},
	},
	{
		name:           "Weekend Special",
		description:    "Enjoy %d%% off on %s purchases this weekend at %s with a minimum spend of ₹%d.",
		offerType:      "discount",
		categories:     []string{"dining", "groceries"},
		minAmountRange: [2]int{300, 1000},
		discountRange:  [2]int{10, 30},
		merchants:      []string{"Swiggy", "BigBasket", "Grofers"},
	},
	{
		name:           "First Purchase Bonus",
		description:    "Get %d%% extra cashback on your first %s purchase at %s with a minimum spend of ₹%d.",
		offerType:      "cashback",
		categories:     []string{"electronics", "travel"},
		minAmountRange: [2]int{1000, 5000},
		discountRange:  [2]int{15, 25},
		merchants:      []string{"Amazon", "Flipkart", "MakeMyTrip"},
	},
}

type assetTemplate struct {
	name               string
	assetType          string
	issuer             string
	riskRatingRange    [2]int
	returnRange        [2]float64
	liquidity          string
	minInvestmentRange [2]int
}

var assetTemplates = []assetTemplate{
	{"HDFC Balanced Advantage Fund", "mutual fund", "HDFC", [2]int{3, 5}, [2]float64{8, 12}, "medium", [2]int{5000, 10000}},
	{"ICICI Prudential Technology Fund", "mutual fund", "ICICI", [2]int{4, 5}, [2]float64{12, 18}, "medium", [2]int{5000, 15000}},
	{"SBI Fixed Deposit", "FD", "SBI", [2]int{1, 2}, [2]float64{5, 7}, "low", [2]int{10000, 50000}},
}

type strategyTemplate struct {
	name        string
	riskProfile string
	timeHorizon string
	returnRange [2]float64
	allocation  map[string]float64
}

var strategyTemplates = []strategyTemplate{
	{
		name:        "Conservative Retirement Plan",
		riskProfile: "conservative",
		timeHorizon: "long-term",
		returnRange: [2]float64{7, 9},
		allocation:  map[string]float64{"FD": 40, "mutual_funds": 40, "bonds": 20},
	},
	{
		name:        "Aggressive Growth Strategy",
		riskProfile: "aggressive",
		timeHorizon: "medium-term",
		returnRange: [2]float64{12, 15},
		allocation:  map[string]float64{"equities": 60, "mutual_funds": 30, "crypto": 10},
	},
	{
		name:        "Balanced Income Portfolio",
		riskProfile: "moderate",
		timeHorizon: "medium-term",
		returnRange: [2]float64{9, 11},
		allocation:  map[string]float64{"mutual_funds": 50, "FD": 30, "equities": 20},
	},
}

// Dataset generates a full synthetic dataset.
func (g *Generator) Dataset(transactions, offers, assets, strategies int) *Dataset {
	ds := &Dataset{}
	for i := 0; i < transactions; i++ {
		ds.Transactions = append(ds.Transactions, g.Transaction())
	}
	for i := 0; i < offers; i++ {
		ds.Offers = append(ds.Offers, g.Offer())
	}
	for i := 0; i < assets; i++ {
		ds.FinancialAssets = append(ds.FinancialAssets, g.FinancialAsset())
	}
	for i := 0; i < strategies; i++ {
		ds.InvestmentStrategies = append(ds.InvestmentStrategies, g.InvestmentStrategy())
	}
	return ds
}

// Transaction generates one synthetic transaction.
func (g *Generator) Transaction() Transaction {
	return Transaction{
		TransactionID: g.uuid(),
		UserID:        g.uuid(),
		Timestamp:     isoNow(),
		Amount:        round2(100 + g.rng.Float64()*9900),
		Currency:      "INR",
		Category:      g.pick(categories),
		MerchantName:  g.pick(merchants),
		PaymentMethod: g.pick(paymentMethods),
		Location: Location{
			Geocoordinates: []float64{
				round6(-90 + g.rng.Float64()*180),
				round6(-180 + g.rng.Float64()*360),
			},
			City:    g.pick(cities),
			Country: "India",
		},
		Tags: g.tags(),
		Recurrence: Recurrence{
			IsRecurring: g.rng.Intn(2) == 0,
			Frequency:   g.frequency(),
		},
		Details: TransactionDetails{
			InvoiceDetails: fmt.Sprintf("INV-%d", 1000+g.rng.Intn(9000)),
			ItemizedBreakdown: []LineItem{
				{Product: "Item A", Quantity: 1, Price: 499.0},
				{Product: "Item B", Quantity: 2, Price: 250.0},
			},
			LoyaltyPointsEarned: g.rng.Intn(101),
		},
		SharedFields: SharedFields{
			Keywords:               []string{"transaction", "finance", "payment"},
			CreatedAt:              isoNow(),
			UpdatedAt:              isoNow(),
			CompatibleUserProfiles: []string{"frequent_shopper", "tech_savvy"},
			Prerequisites:          []string{},
		},
	}
}

// Offer generates one synthetic offer from a template.
func (g *Generator) Offer() Offer {
	t := offerTemplates[g.rng.Intn(len(offerTemplates))]
	minAmount := g.intIn(t.minAmountRange)
	discount := g.intIn(t.discountRange)
	category := g.pick(t.categories)
	merchant := g.pick(t.merchants)

	return Offer{
		OfferID:                  g.uuid(),
		Name:                     t.name,
		Description:              fmt.Sprintf(t.description, discount, category, minAmount, merchant),
		OfferType:                t.offerType,
		ApplicableCategories:     []string{category},
		MinimumTransactionAmount: float64(minAmount),
		DiscountValue:            DiscountValue{Type: "percent", Value: float64(discount)},
		ValidityPeriod:           ValidityPeriod{StartDate: isoNow(), EndDate: isoFuture(30)},
		PartnerMerchants:         []string{merchant},
		TargetingRules: TargetingRules{
			UserSpendingThreshold: float64(minAmount * 2),
			PreferredCategories:   []string{category},
			RiskProfile:           "low",
		},
		Redemption: Redemption{
			Conditions: "Minimum 3 eligible transactions",
			TermsLink:  "https://example.com/terms",
		},
		SharedFields: SharedFields{
			Keywords:               []string{"offer", "cashback", "discount"},
			CreatedAt:              isoNow(),
			UpdatedAt:              isoNow(),
			ExpiryDate:             isoFuture(30),
			CompatibleUserProfiles: []string{"young_professionals"},
			Prerequisites:          []string{},
		},
	}
}

// FinancialAsset generates one synthetic asset from a template.
func (g *Generator) FinancialAsset() FinancialAsset {
	t := assetTemplates[g.rng.Intn(len(assetTemplates))]
	expectedReturn := round2(t.returnRange[0] + g.rng.Float64()*(t.returnRange[1]-t.returnRange[0]))

	return FinancialAsset{
		AssetID:                 g.uuid(),
		AssetType:               t.assetType,
		Name:                    t.name,
		Issuer:                  t.issuer,
		RiskRating:              g.intIn(t.riskRatingRange),
		ExpectedReturn:          expectedReturn,
		Liquidity:               t.liquidity,
		MinimumInvestmentAmount: float64(g.intIn(t.minInvestmentRange)),
		Tenure:                  "5 years",
		FinancialDetails: FinancialDetails{
			HistoricalPerformance: map[string]string{
				"2022": fmt.Sprintf("%.1f%%", expectedReturn-2),
				"2023": fmt.Sprintf("%.1f%%", expectedReturn-1),
			},
			TaxImplications: map[string]string{
				"short_term": "15%",
				"long_term":  "10% after 1 year",
			},
			KeyFeatures: []string{"dividend-paying", "tax-saving"},
		},
		Metadata: AssetMetadata{
			RegulatoryDocuments: []string{"https://example.com/prospectus.pdf"},
			Tags:                []string{"ESG", "high-growth"},
		},
		SharedFields: SharedFields{
			Keywords:               []string{"investment", t.assetType, t.issuer},
			CreatedAt:              isoNow(),
			UpdatedAt:              isoNow(),
			CompatibleUserProfiles: []string{"investors", "retirees"},
			Prerequisites:          []string{"Demat account"},
		},
	}
}

// InvestmentStrategy generates one synthetic strategy from a template.
func (g *Generator) InvestmentStrategy() InvestmentStrategy {
	t := strategyTemplates[g.rng.Intn(len(strategyTemplates))]
	targetReturn := round1(t.returnRange[0] + g.rng.Float64()*(t.returnRange[1]-t.returnRange[0]))

	allocation := make(map[string]float64, len(t.allocation))
	for k, v := range t.allocation {
		allocation[k] = v
	}

	return InvestmentStrategy{
		StrategyID:          g.uuid(),
		Name:                t.name,
		RiskProfile:         t.riskProfile,
		TimeHorizon:         t.timeHorizon,
		TargetAnnualReturn:  targetReturn,
		AllocationBlueprint: allocation,
		PerformanceMetrics: PerformanceMetrics{
			BacktestedResults:   fmt.Sprintf("%.1f%% CAGR over 10 years", targetReturn-0.2),
			VolatilityScore:     round1(1.5 + g.rng.Float64()),
			TaxEfficiencyRating: "high",
		},
		UserRequirements: UserRequirements{
			MinimumCapital:          100000,
			RecommendedAccountTypes: []string{"Demat", "Savings"},
		},
		SharedFields: SharedFields{
			Keywords:               []string{"investment", t.riskProfile, "strategy"},
			CreatedAt:              isoNow(),
			UpdatedAt:              isoNow(),
			CompatibleUserProfiles: []string{"investors", "retirees"},
			Prerequisites:          []string{"KYC", "Demat account"},
		},
	}
}

func (g *Generator) uuid() string {
	var b [16]byte
	g.rng.Read(b[:])
	id, err := uuid.FromBytes(b[:])
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}

func (g *Generator) pick(options []string) string {
	return options[g.rng.Intn(len(options))]
}

func (g *Generator) intIn(r [2]int) int {
	return r[0] + g.rng.Intn(r[1]-r[0]+1)
}

func (g *Generator) tags() []string {
	n := g.rng.Intn(4)
	picked := make([]string, 0, n)
	for _, i := range g.rng.Perm(len(tagPool))[:n] {
		picked = append(picked, tagPool[i])
	}
	return picked
}

func (g *Generator) frequency() string {
	if g.rng.Intn(2) == 0 {
		return ""
	}
	return g.pick([]string{"monthly", "weekly", "yearly", ""})
}

func isoNow() string {
	return time.Now().Format(time.RFC3339)
}

func isoFuture(days int) string {
	return time.Now().AddDate(0, 0, days).Format(time.RFC3339)
}

func round1(v float64) float64 { return float64(int(v*10+0.5)) / 10 }
func round2(v float64) float64 { return float64(int(v*100+0.5)) / 100 }
func round6(v float64) float64 { return float64(int64(v*1e6)) / 1e6 }
