package extract

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aupus-smart/invoice-engine/constants"
	"github.com/aupus-smart/invoice-engine/internal/common"
	"github.com/aupus-smart/invoice-engine/internal/document"
	"github.com/aupus-smart/invoice-engine/internal/invoice"
)

const conventionalSimpleText = `CEMIG DISTRIBUIÇÃO S.A. GRUPO B
TARIFA CONVENCIONAL TRIFÁSICO
Unidade Consumidora: 10012345678
CNPJ: 12.345.678/0001-90
Referência: 06/2025
Vencimento: 15/07/2025
Data Leitura: 28/06/2025
Medidor: 456789
CONSUMO KWH 0,89 350 350 311,50 1,65 7,60 0,75
ADC BANDEIRA AMARELA KWH 0,03 350 350 10,50
CONTRIB. ILUM PUBLICA MUNICIPAL 25,40
ICMS 286,10 19% 54,36
PIS/PASEP 286,10 1,65% 4,72
COFINS 286,10 7,60% 21,74
JUROS MORATÓRIA. 0,21
MULTA - 05/2025. 2,06
TOTAL A PAGAR R$ 425,53`

const conventionalCompensatedText = `GRUPO B CONVENCIONAL TRIFÁSICO
UC: 10012345678
Referência: 06/2025
Vencimento: 15/07/2025
CONSUMO NÃO COMPENSADO KWH 0,95 200 200 190,00 1,65 7,60 0,75
CONSUMO COMPENSADO KWH 0,75 800 800 600,00
INJEÇÃO SCEE - GD I KWH 0,65 800 800 -520,00
INFORMAÇÕES DO SCEE
GERAÇÃO CICLO (6/2025) KWH: UC 10037114075 : 1.000,00
EXCEDENTE RECEBIDO KWH: UC 10037114075 : 800,00
SALDO KWH: 1.204,00
SALDO A EXPIRAR EM 30 DIAS: 50,00
CADASTRO RATEIO GERAÇÃO: UC 10037114075 = 35,50%
TOTAL A PAGAR R$ 310,00`

const whiteCompensatedText = `GRUPO B TARIFA BRANCA TRIFÁSICO
Unidade Consumidora: 10098765432
Referência: 07/2025
Vencimento: 15/08/2025
CONSUMO PONTA NÃO COMPENSADO KWH 1,20 30 30 36,00
CONSUMO FORA PONTA COMPENSADO KWH 0,70 400 400 280,00
CONSUMO FORA PONTA NÃO COMPENSADO KWH 0,70 100 100 70,00
CONSUMO INTERMEDIÁRIO NÃO COMPENSADO KWH 0,90 20 20 18,00
ADC BANDEIRA VERMELHA FORA PONTA KWH 0,05 400 400 20,00
INFORMAÇÕES DO SCEE
GERAÇÃO CICLO (7/2025) KWH: UC 10037114024 : P=0,40, FP=18.781,95, HR=0,00, HI=0,00
TOTAL A PAGAR R$ 150,00`

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func extract(t *testing.T, shape constants.InvoiceShape, text string) *invoice.Record {
	t.Helper()
	x, err := ForShape(shape, nil)
	require.NoError(t, err)
	rec, err := x.Extract(document.NewRawText(text))
	require.NoError(t, err)
	return rec
}

func TestConventionalSimple(t *testing.T) {
	rec := extract(t, constants.ShapeConventionalSimple, conventionalSimpleText)

	assert.Equal(t, "10012345678", rec.UC)
	assert.Equal(t, "B", rec.TariffGroup)
	assert.Equal(t, "CONVENCIONAL", rec.Modality)
	assert.Equal(t, "06/2025", rec.ReferenceMonth)
	assert.Equal(t, "15/07/2025", rec.DueDate)
	assert.Equal(t, "28/06/2025", rec.ReadingDate)
	assert.Equal(t, "456789", rec.MeterNumber)
	assert.Equal(t, "12.345.678/0001-90", rec.TaxpayerID)
	assert.Equal(t, constants.SupplyThreePhase, rec.SupplyType)

	assert.True(t, rec.Total.Consumption.Equal(dec("350")), "consumption %s", rec.Total.Consumption)
	assert.True(t, rec.Total.Rate.Equal(dec("0.89")))
	assert.True(t, rec.Total.Amount.Equal(dec("311.50")))

	assert.True(t, rec.ICMS.Base.Equal(dec("286.10")))
	assert.True(t, rec.ICMS.Aliquot.Equal(dec("0.19")))
	assert.True(t, rec.ICMS.Amount.Equal(dec("54.36")))
	assert.True(t, rec.PIS.Aliquot.Equal(dec("0.0165")))
	assert.True(t, rec.COFINS.Amount.Equal(dec("21.74")))

	assert.Equal(t, constants.FlagYellow, rec.Flag)
	assert.True(t, rec.Total.FlagYellowRate.Equal(dec("0.03")))
	assert.True(t, rec.FlagTotal.Equal(dec("10.50")))

	assert.True(t, rec.InterestAmount.Equal(dec("0.21")))
	assert.True(t, rec.FineAmount.Equal(dec("2.06")))
	assert.True(t, rec.LightingAmount.Equal(dec("25.40")))
	assert.True(t, rec.UtilityTotal.Equal(dec("425.53")))
}

// Simple shapes must report every compensation figure as exact zero, never
// leave one unset.
func TestConventionalSimpleZeroesCompensation(t *testing.T) {
	rec := extract(t, constants.ShapeConventionalSimple, conventionalSimpleText)

	assert.True(t, rec.Total.Balance.IsZero())
	assert.True(t, rec.SurplusReceived.IsZero())
	assert.True(t, rec.CreditReceived.IsZero())
	assert.True(t, rec.InjectedEnergy.IsZero())
	assert.True(t, rec.GenerationCycle.IsZero())
	assert.True(t, rec.Total.ConsumptionComp.IsZero())
	assert.True(t, rec.Total.ConsumptionNonComp.IsZero())
	assert.Empty(t, rec.Sources)
}

func TestConventionalFlagRedThenYellow(t *testing.T) {
	const text = `GRUPO B TARIFA CONVENCIONAL TRIFÁSICO
Unidade Consumidora: 10012345678
Referência: 06/2025
Vencimento: 15/07/2025
CONSUMO KWH 0,89 350 350 311,50
ADC BANDEIRA VERMELHA KWH 0,05 350 350 17,50
ADC BANDEIRA AMARELA KWH 0,03 350 350 10,50
TOTAL A PAGAR R$ 420,00`

	rec := extract(t, constants.ShapeConventionalSimple, text)

	assert.Equal(t, constants.FlagYellowRed, rec.Flag)
	assert.True(t, rec.Total.FlagRedRate.Equal(dec("0.05")))
	assert.True(t, rec.Total.FlagYellowRate.Equal(dec("0.03")))
	assert.True(t, rec.FlagTotal.Equal(dec("28.00")))
}

func TestConventionalCompensated(t *testing.T) {
	rec := extract(t, constants.ShapeConventionalCompensated, conventionalCompensatedText)

	assert.True(t, rec.Total.ConsumptionComp.Equal(dec("800")))
	assert.True(t, rec.Total.ConsumptionNonComp.Equal(dec("200")))
	assert.True(t, rec.Total.Consumption.Equal(dec("1000")), "derived from split")
	assert.True(t, rec.Total.RateComp.Equal(dec("0.75")))
	assert.True(t, rec.Total.RateNonComp.Equal(dec("0.95")))
	assert.True(t, rec.Total.RateNonCompNoTax.Equal(dec("0.75")))
	assert.True(t, rec.Total.AmountComp.Equal(dec("600.00")))
	assert.True(t, rec.Total.Amount.Equal(dec("790.00")))

	require.Len(t, rec.Sources, 1)
	src := rec.Sources[0]
	assert.Equal(t, "10037114075", src.UC)
	assert.True(t, src.Generation.Equal(dec("1000.00")))
	assert.True(t, src.Surplus.Equal(dec("800.00")))
	assert.True(t, src.Share.Equal(dec("0.355")))

	assert.True(t, rec.GenerationCycle.Equal(dec("1000.00")))
	assert.True(t, rec.SurplusReceived.Equal(dec("800.00")))
	assert.True(t, rec.InjectedEnergy.Equal(dec("800.00")))
	assert.True(t, rec.InjectedAmount.Equal(dec("520.00")))
	assert.True(t, rec.Total.Balance.Equal(dec("1204.00")))
	assert.True(t, rec.Balance30.Equal(dec("50.00")))
	assert.True(t, rec.Balance60.IsZero())

	assert.True(t, rec.Total.SplitConsistent())
}

func TestWhiteCompensated(t *testing.T) {
	rec := extract(t, constants.ShapeWhiteCompensated, whiteCompensatedText)

	assert.Equal(t, "BRANCA", rec.Modality)
	assert.True(t, rec.Peak.ConsumptionNonComp.Equal(dec("30")))
	assert.True(t, rec.OffPeak.ConsumptionComp.Equal(dec("400")))
	assert.True(t, rec.OffPeak.ConsumptionNonComp.Equal(dec("100")))
	assert.True(t, rec.Intermediate.ConsumptionNonComp.Equal(dec("20")))

	// Totals are derived as post sums, never independently extracted.
	assert.True(t, rec.Total.Consumption.Equal(dec("550")))
	assert.True(t, rec.Total.ConsumptionComp.Equal(dec("400")))
	assert.True(t, rec.Total.ConsumptionNonComp.Equal(dec("150")))
	sum := rec.Peak.Consumption.Add(rec.OffPeak.Consumption).Add(rec.Intermediate.Consumption)
	assert.True(t, rec.Total.Consumption.Equal(sum))

	assert.Equal(t, constants.FlagRed, rec.Flag)
	assert.True(t, rec.OffPeak.FlagRedRate.Equal(dec("0.05")))
	assert.True(t, rec.FlagTotal.Equal(dec("20.00")))

	require.Len(t, rec.Sources, 1)
	assert.Equal(t, "10037114024", rec.Sources[0].UC)
	assert.True(t, rec.Sources[0].Generation.Equal(dec("18782.35")))
	assert.True(t, rec.InjectedEnergy.Equal(dec("18782.35")))
}

func TestMissingRequiredIdentityField(t *testing.T) {
	x, err := ForShape(constants.ShapeConventionalSimple, nil)
	require.NoError(t, err)

	rec, err := x.Extract(document.NewRawText("GRUPO B CONVENCIONAL\nReferência: 06/2025\nVencimento: 15/07/2025"))
	require.Error(t, err)
	assert.Nil(t, rec, "no partial record on failure")
	assert.Equal(t, common.KindMissingRequiredField, common.ErrorKind(err))
}

func TestSCEEMarkerWithoutSources(t *testing.T) {
	x, err := ForShape(constants.ShapeConventionalCompensated, nil)
	require.NoError(t, err)

	text := `GRUPO B CONVENCIONAL
UC: 10012345678
Referência: 06/2025
Vencimento: 15/07/2025
CONSUMO KWH 0,89 350 350 311,50
INFORMAÇÕES DO SCEE`
	rec, err := x.Extract(document.NewRawText(text))
	require.Error(t, err)
	assert.Nil(t, rec)
	assert.Equal(t, common.KindInconsistentSCEE, common.ErrorKind(err))
}

func TestGroupAHasNoExtractor(t *testing.T) {
	_, err := ForShape(constants.ShapeGroupAUnsupported, nil)
	require.Error(t, err)
	assert.Equal(t, common.KindUnrecognizedLayout, common.ErrorKind(err))
}
