package invoice

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/aupus-smart/invoice-engine/constants"
	"github.com/aupus-smart/invoice-engine/internal/common"
)

// Energy groups the consumption, rate, amount and flag-surcharge figures of a
// single tariff post. Conventional invoices only fill Total; white invoices
// fill Peak, OffPeak and Intermediate, with Total derived as their sum.
//
// decimal.Decimal zero-values are exact zero, so every field is always present
// with a decimal value. Fields whose source section does not apply stay zero.
type Energy struct {
	Consumption        decimal.Decimal `json:"consumo"`
	ConsumptionComp    decimal.Decimal `json:"consumo_comp"`
	ConsumptionNonComp decimal.Decimal `json:"consumo_n_comp"`

	Rate             decimal.Decimal `json:"rs_consumo"`
	RateComp         decimal.Decimal `json:"rs_consumo_comp"`
	RateNonComp      decimal.Decimal `json:"rs_consumo_n_comp"`
	RateNonCompNoTax decimal.Decimal `json:"rs_consumo_n_comp_si"`

	Amount        decimal.Decimal `json:"valor_consumo"`
	AmountComp    decimal.Decimal `json:"valor_consumo_comp"`
	AmountNonComp decimal.Decimal `json:"valor_consumo_n_comp"`

	FlagYellowRate decimal.Decimal `json:"rs_adc_bandeira_amarela"`
	FlagRedRate    decimal.Decimal `json:"rs_adc_bandeira_vermelha"`
	FlagAmount     decimal.Decimal `json:"valor_adc_bandeira"`

	Balance decimal.Decimal `json:"saldo"`
}

// Add accumulates o into e field by field. Used to derive white-modality
// totals from the three posts, which guarantees the sum invariant by
// construction.
func (e *Energy) Add(o Energy) {
	e.Consumption = e.Consumption.Add(o.Consumption)
	e.ConsumptionComp = e.ConsumptionComp.Add(o.ConsumptionComp)
	e.ConsumptionNonComp = e.ConsumptionNonComp.Add(o.ConsumptionNonComp)
	e.Amount = e.Amount.Add(o.Amount)
	e.AmountComp = e.AmountComp.Add(o.AmountComp)
	e.AmountNonComp = e.AmountNonComp.Add(o.AmountNonComp)
	e.FlagAmount = e.FlagAmount.Add(o.FlagAmount)
	e.Balance = e.Balance.Add(o.Balance)
}

// Tax holds one tax line: base, aliquot (as a fraction, 0.19 for 19%) and
// billed amount. Always present, zero when the invoice shows none.
type Tax struct {
	Base    decimal.Decimal `json:"base"`
	Aliquot decimal.Decimal `json:"aliquota"`
	Amount  decimal.Decimal `json:"valor"`
}

// GenerationSource is one generating unit (UG) allocating compensation credit
// to this consumer unit in the billing cycle.
type GenerationSource struct {
	UC         string          `json:"uc"`
	Generation decimal.Decimal `json:"geracao"`
	Surplus    decimal.Decimal `json:"excedente"`
	Share      decimal.Decimal `json:"rateio"`
}

// Record is the canonical extraction output: one per document, fully populated
// by exactly one shape extractor, optionally refined by the compensation
// verifier, optionally extended by the calculation engine, then handed off to
// the export sink. Never reused after hand-off.
type Record struct {
	DocumentID uuid.UUID              `json:"document_id"`
	SourcePath string                 `json:"source_path,omitempty"`
	Shape      constants.InvoiceShape `json:"shape"`

	// Identity (required, never empty on a valid record).
	UC             string `json:"uc"`
	TariffGroup    string `json:"grupo"`
	Modality       string `json:"modalidade_tarifaria"`
	ReferenceMonth string `json:"mes_referencia"`
	DueDate        string `json:"vencimento"`

	// Identity (optional).
	SupplyType  constants.SupplyType `json:"tipo_fornecimento,omitempty"`
	Address     string               `json:"endereco,omitempty"`
	TaxpayerID  string               `json:"cnpj_cpf,omitempty"`
	MeterNumber string               `json:"medidor,omitempty"`
	ReadingDate string               `json:"data_leitura,omitempty"`

	Total        Energy `json:"total"`
	Peak         Energy `json:"ponta"`
	OffPeak      Energy `json:"fora_ponta"`
	Intermediate Energy `json:"intermediario"`

	ICMS   Tax `json:"icms"`
	PIS    Tax `json:"pis"`
	COFINS Tax `json:"cofins"`

	// Financial lines.
	UtilityTotal   decimal.Decimal      `json:"valor_concessionaria"`
	InterestAmount decimal.Decimal      `json:"valor_juros"`
	FineAmount     decimal.Decimal      `json:"valor_multa"`
	LightingAmount decimal.Decimal      `json:"valor_iluminacao"`
	FlagTotal      decimal.Decimal      `json:"valor_bandeira"`
	Flag           constants.TariffFlag `json:"bandeira"`

	// SCEE compensation block. Zero (not absent) for simple shapes.
	Balance30       decimal.Decimal    `json:"saldo_30"`
	Balance60       decimal.Decimal    `json:"saldo_60"`
	SurplusReceived decimal.Decimal    `json:"excedente_recebido"`
	CreditReceived  decimal.Decimal    `json:"credito_recebido"`
	InjectedEnergy  decimal.Decimal    `json:"energia_injetada"`
	InjectedAmount  decimal.Decimal    `json:"valor_energia_injetada"`
	GenerationCycle decimal.Decimal    `json:"geracao_ciclo"`
	Sources         []GenerationSource `json:"ugs"`

	// Set by the compensation verifier.
	CompensationFull        bool            `json:"compensacao_integral"`
	NonCompensatedRemainder decimal.Decimal `json:"consumo_remanescente"`

	// Present only for eligible (CLA) customers; nil otherwise.
	Calculation *CalculationResult `json:"calculo,omitempty"`

	// Registry enrichment, filled before export when the lookup succeeds.
	CustomerName string `json:"nome,omitempty"`
	TypeCode     string `json:"sigla,omitempty"`
}

// New returns a Record for the given shape with every monetary and energy
// field initialized to exact zero.
func New(shape constants.InvoiceShape) *Record {
	return &Record{
		DocumentID: uuid.New(),
		Shape:      shape,
		Sources:    []GenerationSource{},
	}
}

// Post returns the Energy bucket for the given tariff post.
func (r *Record) Post(p constants.TariffPost) *Energy {
	switch p {
	case constants.PostPeak:
		return &r.Peak
	case constants.PostOffPeak:
		return &r.OffPeak
	case constants.PostIntermediate:
		return &r.Intermediate
	default:
		return &r.Total
	}
}

// RecomputeTotal rebuilds the Total bucket as the sum of the three white
// posts. Rates are not summed; the non-compensated rate of the first post
// carrying one is promoted so the calculation engine always finds a rate on
// Total.
func (r *Record) RecomputeTotal() {
	var t Energy
	t.Add(r.Peak)
	t.Add(r.OffPeak)
	t.Add(r.Intermediate)
	for _, e := range []*Energy{&r.OffPeak, &r.Peak, &r.Intermediate} {
		if t.RateNonComp.IsZero() && e.RateNonComp.IsPositive() {
			t.RateNonComp = e.RateNonComp
		}
		if t.RateNonCompNoTax.IsZero() && e.RateNonCompNoTax.IsPositive() {
			t.RateNonCompNoTax = e.RateNonCompNoTax
		}
		if t.Rate.IsZero() && e.Rate.IsPositive() {
			t.Rate = e.Rate
		}
		if t.RateComp.IsZero() && e.RateComp.IsPositive() {
			t.RateComp = e.RateComp
		}
		if t.FlagYellowRate.IsZero() && e.FlagYellowRate.IsPositive() {
			t.FlagYellowRate = e.FlagYellowRate
		}
		if t.FlagRedRate.IsZero() && e.FlagRedRate.IsPositive() {
			t.FlagRedRate = e.FlagRedRate
		}
	}
	r.Total = t
}

// Validate enforces the construction contract: required identity fields must
// be present and non-empty.
func (r *Record) Validate() error {
	required := map[string]string{
		"uc":                   r.UC,
		"grupo":                r.TariffGroup,
		"modalidade_tarifaria": r.Modality,
		"mes_referencia":       r.ReferenceMonth,
		"vencimento":           r.DueDate,
	}
	for field, val := range required {
		if val == "" {
			return &common.ExtractionError{Kind: common.KindMissingRequiredField, Field: field}
		}
	}
	return nil
}

// SplitConsistent reports whether consumption equals the compensated plus
// non-compensated split within one unit of the last decimal digit, for the
// given post bucket.
func (e *Energy) SplitConsistent() bool {
	diff := e.Consumption.Sub(e.ConsumptionComp.Add(e.ConsumptionNonComp)).Abs()
	tol := lastDigitUnit(e.Consumption)
	return diff.LessThanOrEqual(tol)
}

// lastDigitUnit returns one unit at the last decimal digit of d
// (1234.56 -> 0.01, 709 -> 1).
func lastDigitUnit(d decimal.Decimal) decimal.Decimal {
	exp := d.Exponent()
	if exp > 0 {
		exp = 0
	}
	return decimal.New(1, exp)
}
