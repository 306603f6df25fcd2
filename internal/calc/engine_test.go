package calc

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aupus-smart/invoice-engine/constants"
	"github.com/aupus-smart/invoice-engine/internal/common"
	"github.com/aupus-smart/invoice-engine/internal/invoice"
	"github.com/aupus-smart/invoice-engine/internal/registry"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func claEntry() *registry.Entry {
	return &registry.Entry{
		UC:              "10012345678",
		Name:            "Fazenda Boa Vista",
		TypeCode:        "CLA",
		InvoiceDiscount: dec("0.20"),
	}
}

func compensatedRecord() *invoice.Record {
	rec := invoice.New(constants.ShapeConventionalCompensated)
	rec.UC = "10012345678"
	rec.Total.Consumption = dec("1000")
	rec.Total.ConsumptionComp = dec("800")
	rec.Total.ConsumptionNonComp = dec("200")
	rec.Total.RateNonComp = dec("0.75")
	return rec
}

func TestCalculateKnownValues(t *testing.T) {
	res, err := New(nil).Calculate(compensatedRecord(), claEntry())
	require.NoError(t, err)

	// 800 kWh at 0.75 with a 20% discount.
	assert.True(t, res.CompensatedAmount.Equal(dec("600.00")), "got %s", res.CompensatedAmount)
	assert.True(t, res.ConsortiumValue.Equal(dec("480.00")), "got %s", res.ConsortiumValue)
	assert.True(t, res.Economy.Equal(dec("120.00")), "got %s", res.Economy)
	assert.True(t, res.FlagCompAmount.IsZero())
}

func TestCalculateIneligible(t *testing.T) {
	entry := claEntry()
	entry.TypeCode = "GER"

	res, err := New(nil).Calculate(compensatedRecord(), entry)
	require.Error(t, err)
	assert.Nil(t, res)
	assert.Equal(t, common.KindIneligibleCustomer, common.ErrorKind(err))
}

func TestCalculateMissingEntry(t *testing.T) {
	res, err := New(nil).Calculate(compensatedRecord(), nil)
	require.Error(t, err)
	assert.Nil(t, res)
	assert.Equal(t, common.KindMissingRegistryData, common.ErrorKind(err))
}

func TestCalculateNoCompensatedEnergy(t *testing.T) {
	rec := invoice.New(constants.ShapeConventionalCompensated)
	rec.Total.Consumption = dec("350")
	rec.Total.RateNonComp = dec("0.75")

	_, err := New(nil).Calculate(rec, claEntry())
	require.Error(t, err)
	assert.Equal(t, common.KindInconsistentSCEE, common.ErrorKind(err))
}

func TestCalculateDefaultDiscounts(t *testing.T) {
	entry := claEntry()
	entry.InvoiceDiscount = decimal.Zero

	res, err := New(nil).Calculate(compensatedRecord(), entry)
	require.NoError(t, err)

	// Blank registry discounts fall back to 5%.
	assert.True(t, res.ConsortiumValue.Equal(dec("570.00")), "got %s", res.ConsortiumValue)
	assert.True(t, res.Economy.Equal(dec("30.00")), "got %s", res.Economy)
}

func TestCalculateFlagSurcharge(t *testing.T) {
	rec := compensatedRecord()
	rec.Total.FlagYellowRate = dec("0.02")
	rec.Total.FlagRedRate = dec("0.03")
	entry := claEntry()
	entry.FlagDiscount = dec("0.10")

	res, err := New(nil).Calculate(rec, entry)
	require.NoError(t, err)

	// (0.02 + 0.03) * 800 = 40 surcharge, discounted 10%.
	assert.True(t, res.FlagCompAmount.Equal(dec("40.00")), "got %s", res.FlagCompAmount)
	assert.True(t, res.DiscountedFlagAmount.Equal(dec("36.00")), "got %s", res.DiscountedFlagAmount)
	assert.True(t, res.ConsortiumValue.Equal(dec("516.00")), "got %s", res.ConsortiumValue)
	assert.True(t, res.Economy.Equal(dec("124.00")), "got %s", res.Economy)
}

func TestCalculateDegenerateTaxFactorVoidsFlags(t *testing.T) {
	rec := compensatedRecord()
	rec.Total.FlagYellowRate = dec("0.02")
	rec.ICMS.Aliquot = dec("1")

	res, err := New(nil).Calculate(rec, claEntry())
	require.NoError(t, err)
	assert.True(t, res.FlagCompAmount.IsZero())
}

func TestCalculateNoTaxRateMode(t *testing.T) {
	rec := compensatedRecord()
	rec.Total.RateNonCompNoTax = dec("0.60")
	entry := claEntry()
	entry.CalcMode = 1

	res, err := New(nil).Calculate(rec, entry)
	require.NoError(t, err)
	assert.True(t, res.CompensatedAmount.Equal(dec("480.00")), "800 * 0.60, got %s", res.CompensatedAmount)
}

func TestCalculateWholeBillTotals(t *testing.T) {
	rec := compensatedRecord()
	rec.UtilityTotal = dec("310.00")
	rec.InterestAmount = dec("0.21")
	rec.FineAmount = dec("2.06")

	res, err := New(nil).Calculate(rec, claEntry())
	require.NoError(t, err)

	// consortium 480 + utility 310 - charges 2.27 = 787.73
	assert.True(t, res.TotalPayable.Equal(dec("787.73")), "got %s", res.TotalPayable)
	// undiscounted 600 + 310 - 2.27 = 907.73
	assert.True(t, res.UndiscountedTotal.Equal(dec("907.73")), "got %s", res.UndiscountedTotal)
	assert.True(t, res.UndiscountedTotal.Sub(res.TotalPayable).Equal(res.Economy))
}

func TestFullCompensationRebalance(t *testing.T) {
	rec := compensatedRecord()
	rec.SupplyType = constants.SupplyThreePhase
	rec.UtilityTotal = dec("500.00")

	engine := New(nil, WithFullCompensation(true))
	res, err := engine.Calculate(rec, claEntry())
	require.NoError(t, err)

	// Non-compensated share drops from 200 to the 100 kWh three-phase
	// minimum; the moved 100 kWh joins the compensated share.
	assert.True(t, res.CompensatedAmount.Equal(dec("675.00")), "900 * 0.75, got %s", res.CompensatedAmount)

	// Input record is never mutated.
	assert.True(t, rec.Total.ConsumptionComp.Equal(dec("800")))
	assert.True(t, rec.UtilityTotal.Equal(dec("500.00")))
}

func TestRebalanceRespectsMinimum(t *testing.T) {
	rec := compensatedRecord()
	rec.SupplyType = constants.SupplyThreePhase
	rec.Total.ConsumptionNonComp = dec("100")
	rec.Total.ConsumptionComp = dec("900")

	engine := New(nil, WithFullCompensation(true))
	res, err := engine.Calculate(rec, claEntry())
	require.NoError(t, err)
	assert.True(t, res.CompensatedAmount.Equal(dec("675.00")), "split already at minimum stays put, got %s", res.CompensatedAmount)
}
