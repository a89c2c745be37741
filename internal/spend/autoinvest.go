package spend

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// MaxRulePercent is the largest share of a merchant's spend a rule may route.
const MaxRulePercent = 50

var hundred = decimal.NewFromInt(100)

// Rule routes a percentage of the spend at one merchant into one ticker.
// Rules are previews only; nothing is ever traded.
type Rule struct {
	Merchant string          `json:"merchant"`
	Ticker   string          `json:"ticker"`
	Percent  decimal.Decimal `json:"percent"`
}

// Validate checks that the rule names a merchant and ticker and that Percent is in (0, MaxRulePercent].
func (r Rule) Validate() error {
	if strings.TrimSpace(r.Merchant) == "" {
		return errors.New("merchant is required")
	}
	if strings.TrimSpace(r.Ticker) == "" {
		return errors.New("ticker is required")
	}
	if !r.Percent.IsPositive() || r.Percent.GreaterThan(decimal.NewFromInt(MaxRulePercent)) {
		return fmt.Errorf("percent must be in (0, %d], got %s", MaxRulePercent, r.Percent)
	}
	return nil
}

// Estimate is the projected contribution of one rule.
type Estimate struct {
	Merchant  string          `json:"merchant"`
	Ticker    string          `json:"ticker"`
	Percent   decimal.Decimal `json:"percent"`
	Spend     decimal.Decimal `json:"spend"`
	Estimated decimal.Decimal `json:"estimated"`
}

// Preview is the auto-invest projection over a spend summary.
type Preview struct {
	Enabled bool            `json:"enabled"`
	Rules   []Estimate      `json:"rules"`
	Total   decimal.Decimal `json:"total"`
}

// PreviewRules estimates spend*percent/100 per rule from the summary's merchant totals.
// Merchants match case-insensitively; an unknown merchant has zero spend. When enabled
// is false every estimate is zero. The first invalid rule fails the whole preview.
func PreviewRules(summary Summary, rules []Rule, enabled bool) (Preview, error) {
	totals := make(map[string]decimal.Decimal, len(summary.Merchants))
	for _, m := range summary.Merchants {
		totals[NormalizeMerchant(m.Merchant)] = m.Total
	}

	p := Preview{
		Enabled: enabled,
		Rules:   make([]Estimate, 0, len(rules)),
		Total:   decimal.Zero,
	}
	for i, r := range rules {
		if err := r.Validate(); err != nil {
			return Preview{}, fmt.Errorf("rule %d: %w", i, err)
		}

		spend, ok := totals[NormalizeMerchant(r.Merchant)]
		if !ok {
			spend = decimal.Zero
		}
		est := decimal.Zero
		if enabled {
			est = spend.Mul(r.Percent).Div(hundred)
		}

		p.Rules = append(p.Rules, Estimate{
			Merchant:  strings.TrimSpace(r.Merchant),
			Ticker:    strings.ToUpper(strings.TrimSpace(r.Ticker)),
			Percent:   r.Percent,
			Spend:     spend,
			Estimated: est,
		})
		p.Total = p.Total.Add(est)
	}
	return p, nil
}
