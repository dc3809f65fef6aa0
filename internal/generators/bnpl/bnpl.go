// Package bnpl generates buy-now-pay-later transaction records with
// realistic risk patterns: customer risk attributes, product catalog,
// scenario-driven amounts, and default labels for ML training sets.
package bnpl

import (
	"fmt"
	"hash/fnv"
	"math/rand"
	"time"

	"github.com/brianvoe/gofakeit/v7"

	"simtom/internal/models"
)

const baseDefaultRate = 0.03

var (
	incomeBrackets     = []string{"<25k", "25k-50k", "50k-75k", "75k-100k", "100k+"}
	employmentStatuses = []string{"employed", "self_employed", "unemployed", "student", "retired"}
	creditScoreRanges  = []string{"excellent", "good", "fair", "poor"}
	creditScoreWeights = []float64{15, 35, 35, 15}
	signupChannels     = []string{"organic", "paid_search", "social", "referral", "email"}
	verificationLevels = []string{"verified", "partial", "unverified"}
	verificationWeight = []float64{60, 30, 10}
	stabilityLevels    = []string{"new", "stable", "frequent_mover"}
	stabilityWeights   = []float64{20, 60, 20}

	scenarios       = []string{"low_risk_purchase", "impulse_purchase", "credit_stretched", "high_risk_behavior"}
	scenarioWeights = []float64{0.60, 0.20, 0.15, 0.05}

	brands = []string{"Apple", "Samsung", "Nike", "Adidas", "IKEA", "Sephora", "Zara", "H&M"}

	categories = map[string][]string{
		"electronics": {"smartphones", "laptops", "tablets", "headphones", "cameras"},
		"clothing":    {"shoes", "dresses", "jeans", "jackets", "accessories"},
		"home":        {"furniture", "appliances", "decor", "bedding", "kitchen"},
		"beauty":      {"skincare", "makeup", "haircare", "fragrances", "tools"},
		"sports":      {"fitness", "outdoor", "team_sports", "athletic_wear"},
	}
	categoryNames  = []string{"electronics", "clothing", "home", "beauty", "sports"}
	categoryPrices = map[string][2]float64{
		"electronics": {50, 3000},
		"clothing":    {25, 500},
		"home":        {100, 2000},
		"beauty":      {15, 300},
		"sports":      {30, 800},
	}
)

// Generator is the bnpl record factory for one stream.
type Generator struct {
	cfg    models.StreamConfig
	seed   int64
	faker  *gofakeit.Faker
	rng    *rand.Rand
	anchor time.Time
}

func New(cfg models.StreamConfig) (*Generator, error) {
	seed := time.Now().UnixNano()
	if cfg.Seed != nil {
		seed = *cfg.Seed
	}
	anchor := time.Now().UTC()
	if cfg.StartTime != nil {
		anchor = *cfg.StartTime
	}
	return &Generator{
		cfg:    cfg,
		seed:   seed,
		faker:  gofakeit.New(uint64(seed)),
		rng:    rand.New(rand.NewSource(seed)),
		anchor: anchor,
	}, nil
}

func (g *Generator) Name() string {
	return "bnpl"
}

// Entity materializes a customer's risk attributes on first reference.
func (g *Generator) Entity(key string) (map[string]any, error) {
	signup := g.anchor.AddDate(0, 0, -g.rng.Intn(730))

	return map[string]any{
		"customer_id": key,
		"email":       g.faker.Email(),
		"dob":         g.faker.DateRange(g.anchor.AddDate(-70, 0, 0), g.anchor.AddDate(-18, 0, 0)).Format("2006-01-02"),
		"state":       g.faker.StateAbr(),
		"zipcode":     g.faker.Zip(),
		"signup_date": signup.Format("2006-01-02"),

		"income_bracket":       pick(g.rng, incomeBrackets),
		"employment_status":    pick(g.rng, employmentStatuses),
		"credit_score_range":   weightedPick(g.rng, creditScoreRanges, creditScoreWeights),
		"signup_channel":       pick(g.rng, signupChannels),
		"verification_level":   weightedPick(g.rng, verificationLevels, verificationWeight),
		"address_stability":    weightedPick(g.rng, stabilityLevels, stabilityWeights),
		"customer_tenure_days": int(g.anchor.Sub(signup).Hours() / 24),
	}, nil
}

// Record builds one denormalized BNPL transaction from an arrival event and
// the customer profile resolved for it.
func (g *Generator) Record(event models.ArrivalEvent, entity *models.EntityProfile) (models.Record, error) {
	if entity == nil {
		return nil, fmt.Errorf("bnpl: nil entity for event %d", event.SequenceIndex)
	}

	scenario := weightedPick(g.rng, scenarios, scenarioWeights)
	product := g.productFor(g.rng.Intn(5000) + 1)
	device := g.deviceFor(entity.Key)

	amount := product.price
	record := models.Record{
		"transaction_id": fmt.Sprintf("txn_%08d", event.SequenceIndex),
		"sequence_index": event.SequenceIndex,
		"timestamp":      event.Timestamp,
		"customer_id":    entity.Key,
		"currency":       "USD",
		"status":         "completed",
		"risk_scenario":  scenario,
	}

	switch scenario {
	case "impulse_purchase":
		if product.category == "electronics" || product.category == "clothing" {
			amount = round2(product.price * (1.2 + g.rng.Float64()*0.3))
			record["purchase_context"] = "impulse"
		}
	case "credit_stretched":
		limit := []float64{500, 1000, 1500}[g.rng.Intn(3)]
		amount = round2(limit * (0.8 + g.rng.Float64()*0.15))
		record["credit_utilization"] = round2(amount / limit)
	case "high_risk_behavior":
		amount = round2(product.price * (1.3 + g.rng.Float64()*0.7))
		record["purchase_context"] = "rushed"
		record["time_on_site_seconds"] = 30 + g.rng.Intn(91)
	}
	record["amount"] = amount

	riskScore := g.riskScore(entity.Attributes, product, device, scenario)
	record["risk_score"] = round2(riskScore)
	record["risk_level"] = riskLevel(riskScore)

	record["installment_count"] = g.installments(amount)
	record["first_payment_amount"] = round2(amount * 0.25)
	record["payment_frequency"] = "bi_weekly"
	record["checkout_speed"] = g.checkoutSpeed(scenario)

	willDefault := g.rng.Float64() < baseDefaultRate*(1+riskScore*3)
	record["will_default"] = willDefault
	if willDefault {
		days := 45 - int(riskScore*30) + g.rng.Intn(21) - 10
		if days < 7 {
			days = 7
		}
		record["days_to_first_missed_payment"] = days
	}

	for _, field := range []string{
		"income_bracket", "credit_score_range", "verification_level",
		"address_stability", "state", "signup_date",
	} {
		if v, ok := entity.Attributes[field]; ok {
			record["customer_"+field] = v
		}
	}

	record["product_id"] = product.id
	record["product_category"] = product.category
	record["product_subcategory"] = product.subcategory
	record["product_brand"] = product.brand
	record["product_price"] = product.price
	record["product_bnpl_eligible"] = product.bnplEligible
	record["device_type"] = device.kind
	record["device_os"] = device.os
	record["device_is_trusted"] = device.trusted

	return record, nil
}

type product struct {
	id           string
	category     string
	subcategory  string
	brand        string
	price        float64
	bnplEligible bool
}

// productFor derives a stable product from its numeric id: the same id always
// yields the same catalog entry without storing a catalog.
func (g *Generator) productFor(id int) product {
	r := rand.New(rand.NewSource(g.seed ^ hashString(fmt.Sprintf("prod_%06d", id))))

	category := categoryNames[r.Intn(len(categoryNames))]
	bounds := categoryPrices[category]
	price := round2(bounds[0] + r.Float64()*(bounds[1]-bounds[0]))

	eligible := price >= 50 &&
		(category == "electronics" || category == "clothing" || category == "home")

	return product{
		id:           fmt.Sprintf("prod_%06d", id),
		category:     category,
		subcategory:  pick(r, categories[category]),
		brand:        pick(r, brands),
		price:        price,
		bnplEligible: eligible,
	}
}

type device struct {
	kind    string
	os      string
	trusted bool
}

// deviceFor derives the customer's device deterministically from the key, so
// repeat customers keep their device fingerprint.
func (g *Generator) deviceFor(customerKey string) device {
	r := rand.New(rand.NewSource(g.seed ^ hashString(customerKey+"/device")))

	kinds := []string{"mobile", "desktop", "tablet"}
	oses := map[string][]string{
		"mobile":  {"iOS", "Android"},
		"desktop": {"Windows", "macOS", "Linux"},
		"tablet":  {"iOS", "Android", "Windows"},
	}
	kind := pick(r, kinds)
	return device{
		kind:    kind,
		os:      pick(r, oses[kind]),
		trusted: r.Float64() < 0.8,
	}
}

func (g *Generator) riskScore(attrs map[string]any, p product, d device, scenario string) float64 {
	score := 0.0
	score += map[string]float64{"excellent": 0.1, "good": 0.3, "fair": 0.6, "poor": 0.9}[str(attrs["credit_score_range"])]
	score += map[string]float64{"verified": 0.1, "partial": 0.4, "unverified": 0.8}[str(attrs["verification_level"])]
	score += map[string]float64{"100k+": 0.1, "75k-100k": 0.2, "50k-75k": 0.3, "25k-50k": 0.6, "<25k": 0.8}[str(attrs["income_bracket"])]
	if !d.trusted {
		score += 0.3
	}
	if p.price > 1000 {
		score += 0.2
	}
	score += map[string]float64{
		"low_risk_purchase":  0.0,
		"impulse_purchase":   0.3,
		"credit_stretched":   0.6,
		"high_risk_behavior": 0.9,
	}[scenario]

	if score > 1.0 {
		score = 1.0
	}
	return score
}

func riskLevel(score float64) string {
	switch {
	case score < 0.3:
		return "low"
	case score < 0.6:
		return "medium"
	case score < 0.8:
		return "high"
	default:
		return "very_high"
	}
}

func (g *Generator) installments(amount float64) int {
	switch {
	case amount < 100:
		return 4
	case amount < 500:
		return []int{4, 6}[g.rng.Intn(2)]
	case amount < 1000:
		return []int{6, 12}[g.rng.Intn(2)]
	default:
		return []int{12, 24}[g.rng.Intn(2)]
	}
}

func (g *Generator) checkoutSpeed(scenario string) string {
	switch scenario {
	case "impulse_purchase":
		return "fast"
	case "high_risk_behavior":
		return "very_fast"
	case "credit_stretched":
		return "normal"
	default:
		return pick(g.rng, []string{"normal", "slow"})
	}
}

func pick(r *rand.Rand, options []string) string {
	return options[r.Intn(len(options))]
}

func weightedPick(r *rand.Rand, options []string, weights []float64) string {
	total := 0.0
	for _, w := range weights {
		total += w
	}
	u := r.Float64() * total
	for i, w := range weights {
		u -= w
		if u < 0 {
			return options[i]
		}
	}
	return options[len(options)-1]
}

func hashString(s string) int64 {
	h := fnv.New64a()
	h.Write([]byte(s))
	return int64(h.Sum64())
}

func round2(v float64) float64 {
	return float64(int64(v*100+0.5)) / 100
}

func str(v any) string {
	s, _ := v.(string)
	return s
}
