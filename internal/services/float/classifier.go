package float

import (
	"strings"

	"GapScout/internal/domain/models"
)

const (
	nanoMax   = 5_000_000
	microMax  = 10_000_000
	lowMax    = 50_000_000
	mediumMax = 200_000_000
)

// Classifier derives a FloatProfile from raw share counts.
type Classifier struct{}

func NewClassifier() *Classifier { return &Classifier{} }

// Category buckets a float size. Non-positive floats are unknown.
func Category(floatShares float64) models.FloatCategory {
	switch {
	case floatShares <= 0:
		return models.FloatUnknown
	case floatShares < nanoMax:
		return models.FloatNano
	case floatShares < microMax:
		return models.FloatMicro
	case floatShares < lowMax:
		return models.FloatLow
	case floatShares < mediumMax:
		return models.FloatMedium
	default:
		return models.FloatHigh
	}
}

// Squeeze buckets a short interest percentage. A reported 0% is minimal;
// only a missing or negative value is unknown.
func Squeeze(shortInterestPct *float64) models.SqueezeLevel {
	if shortInterestPct == nil || *shortInterestPct < 0 {
		return models.SqueezeUnknown
	}
	si := *shortInterestPct
	switch {
	case si > 40:
		return models.SqueezeExtreme
	case si > 25:
		return models.SqueezeHigh
	case si > 15:
		return models.SqueezeModerate
	case si > 5:
		return models.SqueezeLow
	default:
		return models.SqueezeMinimal
	}
}

// SqueezePotential maps float size to a 0-100 squeeze score.
func SqueezePotential(floatShares float64) int {
	switch cat := Category(floatShares); {
	case cat == models.FloatNano:
		return 95
	case cat == models.FloatMicro:
		return 80
	case cat == models.FloatUnknown:
		return 0
	case floatShares < 25_000_000:
		return 60
	case cat == models.FloatLow:
		return 40
	default:
		return 20
	}
}

// Classify builds the profile. It never divides by zero; missing inputs
// yield unknown category and squeeze.
func (c *Classifier) Classify(in models.ShareStructure) *models.FloatProfile {
	p := &models.FloatProfile{
		Symbol:              strings.ToUpper(in.Symbol),
		SharesOutstanding:   in.SharesOutstanding,
		FloatShares:         in.FloatShares,
		Category:            Category(in.FloatShares),
		ShortInterestPct:    in.ShortInterestPct,
		InsiderOwnershipPct: in.InsiderOwnershipPct,
		MarketCap:           in.MarketCap,
		Source:              in.Source,
	}

	if p.InsiderOwnershipPct == nil && in.SharesOutstanding > 0 && in.FloatShares > 0 {
		v := (in.SharesOutstanding - in.FloatShares) / in.SharesOutstanding * 100
		if v < 0 {
			v = 0
		}
		p.InsiderOwnershipPct = &v
	}
	if p.ShortInterestPct == nil && in.SharesShort > 0 && in.FloatShares > 0 {
		v := in.SharesShort / in.FloatShares * 100
		p.ShortInterestPct = &v
	}

	p.Squeeze = Squeeze(p.ShortInterestPct)
	if p.Category == models.FloatUnknown {
		// squeeze is relative to the float; without one it means nothing
		p.Squeeze = models.SqueezeUnknown
	}
	p.SqueezePotential = SqueezePotential(in.FloatShares)
	p.FloatScore, p.SqueezeSetup = score(p)
	p.RiskFactors = riskFactors(p)
	return p
}

func score(p *models.FloatProfile) (int, bool) {
	si, insider := pct(p.ShortInterestPct), pct(p.InsiderOwnershipPct)
	s := 0

	switch p.Category {
	case models.FloatNano:
		s += 40
	case models.FloatMicro:
		s += 30
	case models.FloatLow:
		s += 15
	}

	switch {
	case si > 40:
		s += 25
	case si > 25:
		s += 15
	}

	switch {
	case insider > 70:
		s += 20
	case insider > 50:
		s += 10
	}

	setup := p.HasFloat() && p.FloatShares < microMax && si > 15 && insider > 30
	if setup {
		s += 15
	}
	if s > 100 {
		s = 100
	}
	return s, setup
}

func riskFactors(p *models.FloatProfile) []string {
	var out []string
	if p.HasFloat() && p.FloatShares < 1_000_000 {
		out = append(out, "extremely_illiquid")
	}
	if pct(p.ShortInterestPct) > 50 {
		out = append(out, "excessive_short_interest")
	}
	if pct(p.InsiderOwnershipPct) > 90 {
		out = append(out, "very_low_public_float")
	}
	return out
}

func pct(v *float64) float64 {
	if v == nil {
		return 0
	}
	return *v
}
