package verify

import (
	"log/slog"

	"github.com/shopspring/decimal"

	"github.com/aupus-smart/invoice-engine/internal/invoice"
)

// Verifier decides whether a compensated record's declared generation fully
// offsets its cycle consumption, and reconciles per-source surplus figures.
// Verify is a pure function of the record: no I/O, and running it twice
// yields the same record.
type Verifier struct {
	logger *slog.Logger
}

func New(logger *slog.Logger) *Verifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &Verifier{logger: logger}
}

// Verify sets CompensationFull and NonCompensatedRemainder, and apportions
// the declared total surplus across sources pro-rata by generation when the
// raw text did not state per-source surplus. Non-compensated shapes pass
// through with the remainder equal to full consumption.
func (v *Verifier) Verify(rec *invoice.Record) {
	if !rec.Shape.Compensated() {
		rec.CompensationFull = false
		rec.NonCompensatedRemainder = rec.Total.Consumption
		return
	}

	generation := decimal.Zero
	surplus := decimal.Zero
	for _, s := range rec.Sources {
		generation = generation.Add(s.Generation)
		surplus = surplus.Add(s.Surplus)
	}

	// Surplus apportionment: the summary section sometimes states only the
	// cycle total. Each source's share is proportional to its generation.
	if surplus.IsZero() && rec.SurplusReceived.IsPositive() && generation.IsPositive() {
		for i := range rec.Sources {
			rec.Sources[i].Surplus = rec.SurplusReceived.
				Mul(rec.Sources[i].Generation).
				Div(generation)
		}
	}

	remainder := rec.Total.Consumption.Sub(generation)
	if remainder.IsNegative() {
		remainder = decimal.Zero
	}
	rec.NonCompensatedRemainder = remainder
	rec.CompensationFull = remainder.IsZero()

	v.logger.Debug("verify.compensation",
		"uc", rec.UC,
		"generation", generation,
		"consumption", rec.Total.Consumption,
		"remainder", remainder,
		"full", rec.CompensationFull)
}
