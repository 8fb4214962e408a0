package models

// FloatCategory buckets a float by size.
type FloatCategory string

const (
	FloatNano    FloatCategory = "nano"
	FloatMicro   FloatCategory = "micro"
	FloatLow     FloatCategory = "low"
	FloatMedium  FloatCategory = "medium"
	FloatHigh    FloatCategory = "high"
	FloatUnknown FloatCategory = "unknown"
)

// Rank orders categories from smallest float to largest. Unknown ranks last.
func (c FloatCategory) Rank() int {
	switch c {
	case FloatNano:
		return 0
	case FloatMicro:
		return 1
	case FloatLow:
		return 2
	case FloatMedium:
		return 3
	case FloatHigh:
		return 4
	default:
		return 5
	}
}

// SqueezeLevel is the short-interest squeeze bucket.
type SqueezeLevel string

const (
	SqueezeExtreme  SqueezeLevel = "extreme"
	SqueezeHigh     SqueezeLevel = "high"
	SqueezeModerate SqueezeLevel = "moderate"
	SqueezeLow      SqueezeLevel = "low"
	SqueezeMinimal  SqueezeLevel = "minimal"
	SqueezeUnknown  SqueezeLevel = "unknown"
)

// FloatProfile describes share structure at a point in time.
type FloatProfile struct {
	Symbol              string        `json:"symbol"`
	SharesOutstanding   float64       `json:"shares_outstanding"`
	FloatShares         float64       `json:"float_shares"`
	Category            FloatCategory `json:"float_category"`
	ShortInterestPct    *float64      `json:"short_interest_pct,omitempty"`
	InsiderOwnershipPct *float64      `json:"insider_ownership_pct,omitempty"`
	Squeeze             SqueezeLevel  `json:"squeeze"`
	SqueezePotential    int           `json:"squeeze_potential"`
	FloatScore          int           `json:"float_score"`
	SqueezeSetup        bool          `json:"squeeze_setup"`
	RiskFactors         []string      `json:"risk_factors,omitempty"`
	MarketCap           float64       `json:"market_cap,omitempty"`
	Source              string        `json:"source,omitempty"`
}

// IsNano reports a nano float. Safe on nil.
func (f *FloatProfile) IsNano() bool { return f != nil && f.Category == FloatNano }

// IsMicro reports a micro float. Safe on nil.
func (f *FloatProfile) IsMicro() bool { return f != nil && f.Category == FloatMicro }

// HasFloat reports whether a positive float count is known.
func (f *FloatProfile) HasFloat() bool { return f != nil && f.FloatShares > 0 }

// FloatMillions returns the float in millions of shares.
func (f *FloatProfile) FloatMillions() float64 {
	if f == nil {
		return 0
	}
	return f.FloatShares / 1_000_000
}

// ShareStructure is raw share data from a fundamentals provider, before classification.
type ShareStructure struct {
	Symbol              string   `json:"symbol"`
	SharesOutstanding   float64  `json:"shares_outstanding"`
	FloatShares         float64  `json:"float_shares"`
	SharesShort         float64  `json:"shares_short"`
	ShortRatio          float64  `json:"short_ratio,omitempty"`
	ShortInterestPct    *float64 `json:"short_interest_pct,omitempty"`
	InsiderOwnershipPct *float64 `json:"insider_ownership_pct,omitempty"`
	MarketCap           float64  `json:"market_cap"`
	Source              string   `json:"source"`
}
