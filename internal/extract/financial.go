package extract

import (
	"regexp"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/aupus-smart/invoice-engine/internal/document"
	"github.com/aupus-smart/invoice-engine/internal/invoice"
)

var (
	interestLine = regexp.MustCompile(`(?i)JUROS(?:\s*MORAT[ÓO]RIA)?\.?[^\d\n]*([\d.,]+)`)
	fineLine     = regexp.MustCompile(`(?i)MULTA\s*(?:-\s*\d{2}/\d{4})?\.?[^\d\n]*([\d.,]+)`)

	lightingMarkers = []string{"ILUMINAÇÃO PÚBLICA", "ILUMINACAO PUBLICA", "CONTRIB. ILUM", "ILUM"}
)

// extractFinancial accumulates interest (juros), fine (multa) and public
// lighting contribution lines. Invoices can carry several of each, one per
// overdue reference month; they are summed.
func extractFinancial(loc *document.Locator, rec *invoice.Record) error {
	for _, m := range loc.FindAll("valor_juros", interestLine) {
		v, err := m.GroupAsDecimal(1)
		if err != nil {
			return err
		}
		if v.IsPositive() {
			rec.InterestAmount = rec.InterestAmount.Add(v)
		}
	}
	for _, m := range loc.FindAll("valor_multa", fineLine) {
		v, err := m.GroupAsDecimal(1)
		if err != nil {
			return err
		}
		if v.IsPositive() {
			rec.FineAmount = rec.FineAmount.Add(v)
		}
	}

	// Lighting lines have no stable shape beyond the marker; take the last
	// numeric token on the line, which is the billed amount.
	loc.EachLine(func(_ int, line string) bool {
		upper := strings.ToUpper(line)
		matched := false
		for _, m := range lightingMarkers {
			if strings.Contains(upper, m) {
				matched = true
				break
			}
		}
		if !matched {
			return true
		}
		if v, ok := lastAmountToken(line); ok {
			if v.IsPositive() {
				rec.LightingAmount = rec.LightingAmount.Add(v)
			}
		}
		return true
	})
	return nil
}

var amountToken = regexp.MustCompile(`^-?[\d.,]+$`)

// lastAmountToken returns the rightmost token on the line that parses as a
// monetary amount.
func lastAmountToken(line string) (decimal.Decimal, bool) {
	parts := strings.Fields(line)
	for i := len(parts) - 1; i >= 0; i-- {
		tok := parts[i]
		if !amountToken.MatchString(tok) {
			continue
		}
		v, err := document.RawValue{Field: "valor_iluminacao", Text: tok}.AsDecimal()
		if err != nil {
			continue
		}
		return v, true
	}
	return decimal.Zero, false
}
