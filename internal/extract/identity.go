package extract

import (
	"regexp"

	"github.com/aupus-smart/invoice-engine/constants"
	"github.com/aupus-smart/invoice-engine/internal/common"
	"github.com/aupus-smart/invoice-engine/internal/document"
	"github.com/aupus-smart/invoice-engine/internal/invoice"
)

// Identity patterns. Layouts drift between utility revisions, so most fields
// carry a ladder of patterns tried in order.
var (
	ucPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)UNIDADE CONSUMIDORA[:\s]*(\d{10,12})`),
		regexp.MustCompile(`(?i)\bUC[:\s]*(\d{10,12})`),
		regexp.MustCompile(`(?i)C[ÓO]DIGO[:\s]*(\d{10,12})`),
		regexp.MustCompile(`\b(\d{11})\b`),
	}
	referencePatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)REFER[ÊE]NCIA[:\s]*(\d{2}/\d{4})`),
		regexp.MustCompile(`(?i)\bREF[.:\s]*(\d{2}/\d{4})`),
		regexp.MustCompile(`\b(\d{2}/\d{4})\b`),
	}
	dueDatePatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)VENCIMENTO[:\s]*(\d{2}/\d{2}/\d{4})`),
		regexp.MustCompile(`(?i)DATA.{0,20}VENCIMENTO[:\s]*(\d{2}/\d{2}/\d{4})`),
		regexp.MustCompile(`(?i)VENCE[:\s]*(\d{2}/\d{2}/\d{4})`),
	}
	readingDatePatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)DATA.{0,20}LEITURA[:\s]*(\d{2}/\d{2}/\d{2,4})`),
		regexp.MustCompile(`(?i)LEITURA[:\s]*(\d{2}/\d{2}/\d{2,4})`),
	}
	meterPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)N[ºO°]?\s*DO\s*MEDIDOR[:\s]*(\d+)`),
		regexp.MustCompile(`(?i)MEDIDOR[:\s]*(\d+)`),
	}
	addressPattern = regexp.MustCompile(`(?i)ENDERE[ÇC]O[:\s]*([^\n]+)`)
	cnpjPattern    = regexp.MustCompile(`\d{2}\.\d{3}\.\d{3}/\d{4}-\d{2}`)
	cpfPattern     = regexp.MustCompile(`\d{3}\.\d{3}\.\d{3}-\d{2}`)

	utilityTotalPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)TOTAL A PAGAR\D*?R?\$?\s*([\d.,]+)`),
		regexp.MustCompile(`(?i)VALOR TOTAL\D*?R?\$?\s*([\d.,]+)`),
		regexp.MustCompile(`(?i)\bTOTAL\b\D*?R\$\s*([\d.,]+)`),
	}

	supplyMarkers = []struct {
		marker string
		value  constants.SupplyType
	}{
		{"TRIFÁSICO", constants.SupplyThreePhase},
		{"TRIFASICO", constants.SupplyThreePhase},
		{"BIFÁSICO", constants.SupplyTwoPhase},
		{"BIFASICO", constants.SupplyTwoPhase},
		{"MONOFÁSICO", constants.SupplySinglePhase},
		{"MONOFASICO", constants.SupplySinglePhase},
	}
)

// extractIdentity fills the identity block of the record. UC, reference month
// and due date are required; their absence aborts the document.
func extractIdentity(loc *document.Locator, rec *invoice.Record) error {
	uc, ok := loc.FindFirst("uc", ucPatterns...)
	if !ok {
		return &common.ExtractionError{Kind: common.KindMissingRequiredField, Field: "uc"}
	}
	rec.UC = uc.Group(1)

	ref, ok := loc.FindFirst("mes_referencia", referencePatterns...)
	if !ok {
		return &common.ExtractionError{Kind: common.KindMissingRequiredField, Field: "mes_referencia"}
	}
	rec.ReferenceMonth = ref.Group(1)

	due, ok := loc.FindFirst("vencimento", dueDatePatterns...)
	if !ok {
		return &common.ExtractionError{Kind: common.KindMissingRequiredField, Field: "vencimento"}
	}
	if _, err := due.GroupAsDate(1); err != nil {
		return &common.ExtractionError{Kind: common.KindMissingRequiredField, Field: "vencimento", Cause: err}
	}
	rec.DueDate = due.Group(1)

	if v, ok := loc.FindFirst("data_leitura", readingDatePatterns...); ok {
		if _, err := v.GroupAsDate(1); err == nil {
			rec.ReadingDate = v.Group(1)
		}
	}
	if v, ok := loc.FindFirst("medidor", meterPatterns...); ok {
		rec.MeterNumber = v.Group(1)
	}
	if v, ok := loc.Find("endereco", addressPattern); ok {
		rec.Address = document.RawValue{Field: "endereco", Text: v.Group(1)}.AsText()
	}
	if v, ok := loc.Find("cnpj_cpf", cnpjPattern); ok {
		rec.TaxpayerID = v.Text
	} else if v, ok := loc.Find("cnpj_cpf", cpfPattern); ok {
		rec.TaxpayerID = v.Text
	}

	for _, s := range supplyMarkers {
		if loc.Contains(s.marker) {
			rec.SupplyType = s.value
			break
		}
	}

	if v, ok := loc.FindFirst("valor_concessionaria", utilityTotalPatterns...); ok {
		total, err := v.GroupAsDecimal(1)
		if err != nil {
			return err
		}
		rec.UtilityTotal = total
	}
	return nil
}
