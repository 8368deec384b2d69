package domain

import (
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/pendergraft/decentradns/internal/validation"
)

// MistPerSUI is the number of MIST in one SUI.
const MistPerSUI int64 = 1_000_000_000

// Plan is a registration tier. Prices are per year, in MIST.
type Plan struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	PricePerYr  int64  `json:"pricePerYear"`
	Description string `json:"description"`
}

// AddOn is an optional yearly extra.
type AddOn struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	PricePerYr int64  `json:"pricePerYear"`
}

// Plans offered for registration.
var Plans = []Plan{
	{ID: "basic", Name: "Basic", PricePerYr: 500_000_000, Description: "Perfect for personal use"},
	{ID: "standard", Name: "Standard", PricePerYr: 1_200_000_000, Description: "Great for businesses and projects"},
	{ID: "premium", Name: "Premium", PricePerYr: 2_500_000_000, Description: "For high-traffic applications"},
}

// AddOns offered for registration.
var AddOns = []AddOn{
	{ID: "privacy", Name: "Domain Privacy Protection", PricePerYr: 100_000_000},
	{ID: "ssl", Name: "SSL Certificate", PricePerYr: 50_000_000},
	{ID: "backup", Name: "DNS Backup Service", PricePerYr: 30_000_000},
	{ID: "analytics", Name: "Advanced Analytics", PricePerYr: 80_000_000},
}

// Multi-year discounts, in percent
var durationDiscounts = map[int]int64{1: 0, 2: 10, 3: 15, 5: 20}

// One-off fees, in MIST
const (
	RegistrationFee int64 = 100_000_000
	GasFee          int64 = 50_000_000
	PlatformFee     int64 = 20_000_000
)

// DefaultPlan is used when a registration names no plan.
const DefaultPlan = "Standard"

// QuoteRequest asks for the price of a registration.
type QuoteRequest struct {
	Plan          string   `json:"plan"`
	DurationYears int      `json:"durationYears"`
	AddOns        []string `json:"addOns,omitempty"`
}

// Quote is a price breakdown in MIST.
type Quote struct {
	Plan            string   `json:"plan"`
	DurationYears   int      `json:"durationYears"`
	AddOns          []string `json:"addOns"`
	PlanTotal       int64    `json:"planTotal"`
	Discount        int64    `json:"discount"`
	AddOnTotal      int64    `json:"addOnTotal"`
	RegistrationFee int64    `json:"registrationFee"`
	GasFee          int64    `json:"gasFee"`
	PlatformFee     int64    `json:"platformFee"`
	Total           int64    `json:"total"`
	TotalSUI        string   `json:"totalSui"`
}

// FindPlan looks a plan up by id or display name, case-insensitively.
func FindPlan(name string) (Plan, bool) {
	for _, p := range Plans {
		if strings.EqualFold(p.ID, name) || strings.EqualFold(p.Name, name) {
			return p, true
		}
	}
	return Plan{}, false
}

// PriceQuote computes the cost of a registration.
func PriceQuote(req QuoteRequest) (*Quote, error) {
	if req.Plan == "" {
		req.Plan = DefaultPlan
	}
	if req.DurationYears == 0 {
		req.DurationYears = 1
	}

	plan, ok := FindPlan(req.Plan)
	if !ok {
		return nil, fmt.Errorf("%w: unknown plan %q", ErrInvalidRequest, req.Plan)
	}
	if err := validation.ValidateDuration(req.DurationYears); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	discountPct := durationDiscounts[req.DurationYears]

	years := int64(req.DurationYears)
	base := plan.PricePerYr * years
	discount := base * discountPct / 100

	var addOnTotal int64
	selected := make([]string, 0, len(req.AddOns))
	for _, id := range req.AddOns {
		i := slices.IndexFunc(AddOns, func(a AddOn) bool { return a.ID == id })
		if i < 0 {
			return nil, fmt.Errorf("%w: unknown add-on %q", ErrInvalidRequest, id)
		}
		if slices.Contains(selected, id) {
			continue
		}
		selected = append(selected, id)
		addOnTotal += AddOns[i].PricePerYr * years
	}

	q := &Quote{
		Plan:            plan.Name,
		DurationYears:   req.DurationYears,
		AddOns:          selected,
		PlanTotal:       base - discount,
		Discount:        discount,
		AddOnTotal:      addOnTotal,
		RegistrationFee: RegistrationFee,
		GasFee:          GasFee,
		PlatformFee:     PlatformFee,
	}
	q.Total = q.PlanTotal + q.AddOnTotal + q.RegistrationFee + q.GasFee + q.PlatformFee
	q.TotalSUI = FormatSUI(q.Total)
	return q, nil
}

// FormatSUI renders an amount of MIST as a decimal SUI string.
func FormatSUI(mist int64) string {
	whole := mist / MistPerSUI
	frac := mist % MistPerSUI
	if frac == 0 {
		return strconv.FormatInt(whole, 10)
	}
	s := fmt.Sprintf("%d.%09d", whole, frac)
	return strings.TrimRight(s, "0")
}
