package hedge

import (
	"sort"

	"github.com/aristath/sentinel/internal/broker"
	"github.com/aristath/sentinel/internal/domain"
)

// Candidate is one option-chain strike considered for a hedge buy,
// scored by margin-benefit-per-rupee (MBPR). Grounded on spec.md
// §4.N's selection step and hedge_calculator.py's hedge-benefit
// estimate; there is no hedge_selector.py source body to port (only an
// empty test stub), so the ranking/filtering logic here is this
// system's own reading of the spec's prose.
type Candidate struct {
	Quote       broker.OptionQuote
	MBPR        float64 // estimated margin reduction / (LTP * quantity)
}

// Selection is the chosen hedge leg(s) for one buy decision.
type Selection struct {
	CE *Candidate
	PE *Candidate
}

// Cost returns the total premium outlay for the selection.
func (s Selection) Cost(quantity int) domain.Decimal {
	total := domain.ZeroMoney()
	if s.CE != nil {
		total = total.Add(s.CE.Quote.LastPrice.MulFloat(float64(quantity)))
	}
	if s.PE != nil {
		total = total.Add(s.PE.Quote.LastPrice.MulFloat(float64(quantity)))
	}
	return total
}

// filterCandidates narrows chain to quotes within the configured
// premium and OTM-distance bands for index, per spec.md §4.N step 5:
// "Candidate set: strikes whose LTP is within [min_premium,
// max_premium] ... and whose OTM distance is within [min_otm, max_otm]
// per index."
func filterCandidates(chain []broker.OptionQuote, index Index, cfg Config) []broker.OptionQuote {
	minOTM := float64(cfg.MinOTMDistance[index])
	maxOTM := float64(cfg.MaxOTMDistance[index])

	out := make([]broker.OptionQuote, 0, len(chain))
	for _, q := range chain {
		if q.LastPrice.LessThan(cfg.MinPremium) || q.LastPrice.GreaterThan(cfg.MaxPremium) {
			continue
		}
		if q.OTMDistance < minOTM || q.OTMDistance > maxOTM {
			continue
		}
		out = append(out, q)
	}
	return out
}

// rank scores each candidate quote by MBPR (estimated margin benefit
// divided by premium outlay) and sorts descending, so index 0 is the
// best candidate.
func rank(quotes []broker.OptionQuote, quantity int, marginBenefitTotal float64) []Candidate {
	out := make([]Candidate, 0, len(quotes))
	for _, q := range quotes {
		outlay := q.LastPrice.Float64() * float64(quantity)
		mbpr := 0.0
		if outlay > 0 {
			mbpr = marginBenefitTotal / outlay
		}
		out = append(out, Candidate{Quote: q, MBPR: mbpr})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].MBPR > out[j].MBPR })
	return out
}

// SelectPair picks the single top-ranked CE and top-ranked PE candidate
// from chain for a full-pair hedge (spec.md §4.N step 5: "For full-pair
// hedging, select one CE and one PE"). marginBenefitTotal is the
// estimated margin reduction the calculator attributes to adding one
// hedge pair (Calculator.EstimateHedgeMarginBenefit), split evenly
// between the two legs for MBPR scoring since the source constants
// table only estimates the combined pair's benefit, never a per-leg
// figure.
func SelectPair(chain []broker.OptionQuote, index Index, cfg Config, quantity int, marginBenefitTotal float64) (Selection, bool) {
	filtered := filterCandidates(chain, index, cfg)
	if len(filtered) == 0 {
		return Selection{}, false
	}

	var calls, puts []broker.OptionQuote
	for _, q := range filtered {
		switch q.OptionType {
		case broker.CallOption:
			calls = append(calls, q)
		case broker.PutOption:
			puts = append(puts, q)
		}
	}

	perLegBenefit := marginBenefitTotal / 2

	var sel Selection
	if ranked := rank(calls, quantity, perLegBenefit); len(ranked) > 0 {
		c := ranked[0]
		sel.CE = &c
	}
	if ranked := rank(puts, quantity, perLegBenefit); len(ranked) > 0 {
		p := ranked[0]
		sel.PE = &p
	}

	if sel.CE == nil && sel.PE == nil {
		return Selection{}, false
	}
	return sel, true
}
