package pricing

import "math"

const (
	StandardMultiplier = 1.00
	// LimitedMultiplier applies when any booked night has limited availability.
	LimitedMultiplier = 1.10
	TaxRate           = 0.075
)

// Quote holds unrounded amounts; round only when rendering.
type Quote struct {
	BaseTotal  float64 `json:"base_total"`
	Subtotal   float64 `json:"subtotal"`
	Tax        float64 `json:"tax"`
	Total      float64 `json:"total"`
	Multiplier float64 `json:"multiplier"`
}

// RoundedQuote is a Quote in whole minor currency units.
type RoundedQuote struct {
	BaseTotal int64 `json:"base_total"`
	Subtotal  int64 `json:"subtotal"`
	Tax       int64 `json:"tax"`
	Total     int64 `json:"total"`
}

func (q Quote) Rounded() RoundedQuote {
	return RoundedQuote{
		BaseTotal: Round(q.BaseTotal),
		Subtotal:  Round(q.Subtotal),
		Tax:       Round(q.Tax),
		Total:     Round(q.Total),
	}
}

// Round converts an amount to whole minor units, halves away from zero.
func Round(amount float64) int64 {
	return int64(math.Round(amount))
}

type Calculator struct {
	basePricePerNight int64
}

func NewCalculator(basePricePerNight int64) Calculator {
	return Calculator{basePricePerNight: basePricePerNight}
}

func (c Calculator) BasePricePerNight() int64 {
	return c.basePricePerNight
}

func (c Calculator) Quote(nights int, limited bool) Quote {
	baseTotal := float64(c.basePricePerNight) * float64(nights)
	multiplier := StandardMultiplier
	if limited {
		multiplier = LimitedMultiplier
	}
	subtotal := baseTotal * multiplier
	tax := subtotal * TaxRate
	return Quote{
		BaseTotal:  baseTotal,
		Subtotal:   subtotal,
		Tax:        tax,
		Total:      subtotal + tax,
		Multiplier: multiplier,
	}
}
