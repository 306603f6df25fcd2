package invoice

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aupus-smart/invoice-engine/constants"
	"github.com/aupus-smart/invoice-engine/internal/common"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func validRecord() *Record {
	rec := New(constants.ShapeConventionalSimple)
	rec.UC = "10012345678"
	rec.TariffGroup = "B"
	rec.Modality = "CONVENCIONAL"
	rec.ReferenceMonth = "06/2025"
	rec.DueDate = "15/07/2025"
	return rec
}

func TestNewRecordZeroesEverything(t *testing.T) {
	rec := New(constants.ShapeConventionalSimple)

	assert.NotEqual(t, "", rec.DocumentID.String())
	assert.True(t, rec.Total.Consumption.IsZero())
	assert.True(t, rec.InjectedEnergy.IsZero())
	assert.True(t, rec.SurplusReceived.IsZero())
	assert.NotNil(t, rec.Sources)
	assert.Empty(t, rec.Sources)
	assert.Nil(t, rec.Calculation)
}

func TestValidateRequiredFields(t *testing.T) {
	require.NoError(t, validRecord().Validate())

	rec := validRecord()
	rec.DueDate = ""
	err := rec.Validate()
	require.Error(t, err)

	var ex *common.ExtractionError
	require.True(t, errors.As(err, &ex))
	assert.Equal(t, common.KindMissingRequiredField, ex.Kind)
	assert.Equal(t, "vencimento", ex.Field)
}

func TestRecomputeTotalSumsPosts(t *testing.T) {
	rec := New(constants.ShapeWhiteCompensated)
	rec.Peak.Consumption = dec("30")
	rec.Peak.Amount = dec("36.00")
	rec.Peak.RateNonComp = dec("1.20")
	rec.OffPeak.Consumption = dec("500")
	rec.OffPeak.ConsumptionComp = dec("400")
	rec.OffPeak.ConsumptionNonComp = dec("100")
	rec.OffPeak.Amount = dec("350.00")
	rec.OffPeak.RateNonComp = dec("0.70")
	rec.OffPeak.FlagRedRate = dec("0.05")
	rec.OffPeak.FlagAmount = dec("20.00")
	rec.Intermediate.Consumption = dec("20")
	rec.Intermediate.Amount = dec("18.00")

	rec.RecomputeTotal()

	assert.True(t, rec.Total.Consumption.Equal(dec("550")))
	assert.True(t, rec.Total.ConsumptionComp.Equal(dec("400")))
	assert.True(t, rec.Total.Amount.Equal(dec("404.00")))
	assert.True(t, rec.Total.FlagAmount.Equal(dec("20.00")))
	// Off-peak rate wins: it is tried before peak and intermediate.
	assert.True(t, rec.Total.RateNonComp.Equal(dec("0.70")))
	assert.True(t, rec.Total.FlagRedRate.Equal(dec("0.05")))
}

func TestSplitConsistentTolerance(t *testing.T) {
	e := Energy{
		Consumption:        dec("1000"),
		ConsumptionComp:    dec("800"),
		ConsumptionNonComp: dec("200"),
	}
	assert.True(t, e.SplitConsistent())

	// One unit at the last digit is still consistent (rounding in print).
	e.Consumption = dec("1001")
	assert.True(t, e.SplitConsistent())

	e.Consumption = dec("1002")
	assert.False(t, e.SplitConsistent())

	e = Energy{
		Consumption:        dec("100.05"),
		ConsumptionComp:    dec("100.03"),
		ConsumptionNonComp: dec("0.01"),
	}
	assert.True(t, e.SplitConsistent())
}

func TestSchemaAcceptsValidRecord(t *testing.T) {
	schema, err := CompileRecordSchema()
	require.NoError(t, err)

	rec := validRecord()
	require.NoError(t, rec.ValidateAgainstSchema(schema))

	rec.Total.ConsumptionComp = dec("800")
	rec.Sources = append(rec.Sources, GenerationSource{
		UC:         "10037114075",
		Generation: dec("1000"),
		Surplus:    dec("800"),
	})
	require.NoError(t, rec.ValidateAgainstSchema(schema))
}

func TestSchemaRejectsMissingIdentity(t *testing.T) {
	schema, err := CompileRecordSchema()
	require.NoError(t, err)

	rec := validRecord()
	rec.UC = ""
	assert.Error(t, rec.ValidateAgainstSchema(schema))

	rec = validRecord()
	rec.Sources = append(rec.Sources, GenerationSource{Generation: dec("10")})
	assert.Error(t, rec.ValidateAgainstSchema(schema))
}
