package extract

import (
	"regexp"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/aupus-smart/invoice-engine/internal/common"
	"github.com/aupus-smart/invoice-engine/internal/document"
	"github.com/aupus-smart/invoice-engine/internal/invoice"
)

// SCEE block patterns. The utility prints the compensation summary as a run
// of "label: UC n : value" sentences, with a per-post variant under white
// modality and an allocation table (rateio) listing each generator's share.
var (
	generationCyclePattern = regexp.MustCompile(`(?i)GERA[ÇC][ÃA]O CICLO[^:]*KWH:\s*UC\s*(\d+)\s*:\s*([\d.,]+)`)
	generationWhitePattern = regexp.MustCompile(`(?i)UC\s*(\d+)\s*:\s*P=([\d.,]+),\s*FP=([\d.,]+),\s*HR=([\d.,]+),\s*HI=([\d.,]+)`)
	surplusPattern         = regexp.MustCompile(`(?i)EXCEDENTE RECEBIDO KWH:\s*UC\s*(\d+)\s*:\s*([\d.,]+)`)
	creditPattern          = regexp.MustCompile(`(?i)CR[ÉE]DITO RECEBIDO[^\d]*([\d.,]+)`)
	balancePattern         = regexp.MustCompile(`(?i)SALDO KWH:?\s*([\d.,]+)`)
	expiringPattern        = regexp.MustCompile(`(?i)SALDO A EXPIRAR EM\s*(\d+)\s*DIAS[^\d]*([\d.,]+)`)
	sharePattern           = regexp.MustCompile(`(?i)UC\s*(\d+)\s*=\s*([\d.,]+\s*%)`)
)

// extractSCEE fills the compensation block: generation sources, received
// surplus and credit, energy balances and the injected-energy figures. A
// compensated shape with no parseable generation source is an inconsistency
// and aborts the document.
func extractSCEE(loc *document.Locator, rec *invoice.Record) error {
	bySource := map[string]*invoice.GenerationSource{}
	order := []string{}
	source := func(uc string) *invoice.GenerationSource {
		if s, ok := bySource[uc]; ok {
			return s
		}
		s := &invoice.GenerationSource{UC: uc}
		bySource[uc] = s
		order = append(order, uc)
		return s
	}

	for _, m := range loc.FindAll("geracao_ciclo", generationCyclePattern) {
		total, err := m.GroupAsDecimal(2)
		if err != nil {
			return err
		}
		s := source(m.Group(1))
		s.Generation = s.Generation.Add(total)
		if rec.GenerationCycle.IsZero() {
			rec.GenerationCycle = total
		}
	}

	// White-modality generation prints one value per post; the source's
	// cycle total is their sum.
	for _, m := range loc.FindAll("geracao_ciclo", generationWhitePattern) {
		total := decimal.Zero
		for g := 2; g <= 5; g++ {
			v, err := m.GroupAsDecimal(g)
			if err != nil {
				return err
			}
			total = total.Add(v)
		}
		s := source(m.Group(1))
		s.Generation = s.Generation.Add(total)
		if rec.GenerationCycle.IsZero() {
			rec.GenerationCycle = total
		}
	}

	for _, m := range loc.FindAll("excedente_recebido", surplusPattern) {
		v, err := m.GroupAsDecimal(2)
		if err != nil {
			return err
		}
		s := source(m.Group(1))
		s.Surplus = s.Surplus.Add(v)
		rec.SurplusReceived = rec.SurplusReceived.Add(v)
	}

	if m, ok := loc.Find("credito_recebido", creditPattern); ok {
		v, err := m.GroupAsDecimal(1)
		if err != nil {
			return err
		}
		rec.CreditReceived = v
	}
	if m, ok := loc.Find("saldo", balancePattern); ok {
		v, err := m.GroupAsDecimal(1)
		if err != nil {
			return err
		}
		rec.Total.Balance = v
	}
	for _, m := range loc.FindAll("saldo_expirar", expiringPattern) {
		v, err := m.GroupAsDecimal(2)
		if err != nil {
			return err
		}
		switch m.Group(1) {
		case "30":
			rec.Balance30 = v
		case "60":
			rec.Balance60 = v
		}
	}

	// Allocation table: CADASTRO RATEIO GERAÇÃO: UC n = p%.
	for _, m := range loc.FindAll("rateio", sharePattern) {
		v, err := m.GroupAsDecimal(2)
		if err != nil {
			return err
		}
		source(m.Group(1)).Share = v
	}

	if err := extractInjection(loc, rec); err != nil {
		return err
	}

	if len(order) == 0 {
		return &common.ExtractionError{Kind: common.KindInconsistentSCEE, Field: "ugs"}
	}
	rec.Sources = make([]invoice.GenerationSource, 0, len(order))
	generationTotal := decimal.Zero
	for _, uc := range order {
		rec.Sources = append(rec.Sources, *bySource[uc])
		generationTotal = generationTotal.Add(bySource[uc].Generation)
	}

	// Injected-energy resolution ladder: received surplus is authoritative
	// when stated, then the cycle generation figures, then received credit.
	switch {
	case rec.SurplusReceived.IsPositive():
		rec.InjectedEnergy = rec.SurplusReceived
	case rec.GenerationCycle.IsPositive():
		rec.InjectedEnergy = rec.GenerationCycle
	case generationTotal.IsPositive():
		rec.InjectedEnergy = generationTotal
	case rec.InjectedEnergy.IsZero():
		rec.InjectedEnergy = rec.CreditReceived
	}
	return nil
}

// extractInjection parses the billed INJEÇÃO SCEE lines of the main table,
// which carry the injected quantity and its (negative) billed amount.
func extractInjection(loc *document.Locator, rec *invoice.Record) error {
	var firstErr error
	loc.EachLine(func(_ int, line string) bool {
		upper := strings.ToUpper(line)
		if !strings.Contains(upper, "INJEÇÃO SCEE") && !strings.Contains(upper, "INJECAO SCEE") {
			return true
		}
		parts := strings.Fields(line)
		kwh := kwhIndex(parts)
		if kwh == -1 || kwh+amountOffset >= len(parts) {
			return true
		}
		qty, err := document.RawValue{
			Field: "energia_injetada",
			Text:  strings.ReplaceAll(parts[kwh+quantityOffset], ".", ""),
		}.AsDecimal()
		if err != nil {
			if firstErr == nil {
				firstErr = err
			}
			return true
		}
		amount, err := document.RawValue{Field: "valor_energia_injetada", Text: parts[kwh+amountOffset]}.AsDecimal()
		if err != nil {
			if firstErr == nil {
				firstErr = err
			}
			return true
		}
		if rec.InjectedEnergy.IsZero() {
			rec.InjectedEnergy = qty
		}
		rec.InjectedAmount = rec.InjectedAmount.Add(amount.Abs())
		return true
	})
	return firstErr
}
