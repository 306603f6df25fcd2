package export

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/aupus-smart/invoice-engine/constants"
	"github.com/aupus-smart/invoice-engine/internal/invoice"
	"github.com/aupus-smart/invoice-engine/internal/pipeline"
)

func sampleRecord() *invoice.Record {
	rec := invoice.New(constants.ShapeConventionalCompensated)
	rec.SourcePath = "faturas/junho.txt"
	rec.UC = "10012345678"
	rec.TariffGroup = "B"
	rec.Modality = "CONVENCIONAL"
	rec.ReferenceMonth = "06/2025"
	rec.DueDate = "15/07/2025"
	rec.CustomerName = "FAZENDA BOA VISTA"
	rec.TypeCode = "CLA"
	rec.Flag = constants.FlagGreen
	rec.Total.Consumption = decimal.RequireFromString("1000")
	rec.Total.ConsumptionComp = decimal.RequireFromString("800")
	rec.Total.ConsumptionNonComp = decimal.RequireFromString("200")
	rec.UtilityTotal = decimal.RequireFromString("310.00")
	rec.InjectedEnergy = decimal.RequireFromString("800")
	rec.CompensationFull = true
	return rec
}

func TestWriterAccumulatesAndSaves(t *testing.T) {
	w, err := NewWriter(nil)
	require.NoError(t, err)

	rec := sampleRecord()
	rec.Calculation = &invoice.CalculationResult{
		CompensatedAmount: decimal.RequireFromString("600.00"),
		DiscountedAmount:  decimal.RequireFromString("480.00"),
		ConsortiumValue:   decimal.RequireFromString("480.00"),
		Economy:           decimal.RequireFromString("120.00"),
	}
	w.Consume(pipeline.Result{
		SourcePath: rec.SourcePath,
		Status:     constants.StatusCalculated,
		Record:     rec,
	})
	w.Consume(pipeline.Result{
		SourcePath: "faturas/simples.txt",
		Status:     constants.StatusProcessed,
		Record:     sampleRecord(),
	})
	w.Consume(pipeline.Result{SourcePath: "faturas/grupo_a.txt", Status: constants.StatusSkipped})
	w.Consume(pipeline.Result{
		SourcePath: "faturas/ruim.txt",
		Status:     constants.StatusFailed,
		Failure: &pipeline.FailureNotice{
			DocumentID: uuid.New(),
			SourcePath: "faturas/ruim.txt",
			Stage:      constants.StageClassify,
			Kind:       "unrecognized-layout",
			Err:        errors.New("no tariff group marker found"),
		},
	})

	sum := w.Summary()
	assert.Equal(t, 1, sum.Calculated)
	assert.Equal(t, 1, sum.Processed)
	assert.Equal(t, 1, sum.Skipped)
	assert.Equal(t, 1, sum.Failed)
	assert.Equal(t, 4, sum.Total())

	path := filepath.Join(t.TempDir(), "saida.xlsx")
	require.NoError(t, w.SaveAs(path))

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()

	uc, err := f.GetCellValue(dataSheet, "A2")
	require.NoError(t, err)
	assert.Equal(t, "10012345678", uc)
	consorcio, err := f.GetCellValue(dataSheet, "Y2")
	require.NoError(t, err)
	assert.Equal(t, "480", consorcio)

	kind, err := f.GetCellValue(failureSheet, "D2")
	require.NoError(t, err)
	assert.Equal(t, "unrecognized-layout", kind)
	stage, err := f.GetCellValue(failureSheet, "C2")
	require.NoError(t, err)
	assert.Equal(t, constants.StageClassify, stage)
}

func TestWriterDivertsContractViolations(t *testing.T) {
	w, err := NewWriter(nil)
	require.NoError(t, err)

	rec := sampleRecord()
	rec.UC = "" // breaks the field-presence contract
	w.Consume(pipeline.Result{SourcePath: rec.SourcePath, Status: constants.StatusProcessed, Record: rec})

	sum := w.Summary()
	assert.Equal(t, 0, sum.Processed)
	assert.Equal(t, 1, sum.Failed)

	path := filepath.Join(t.TempDir(), "saida.xlsx")
	require.NoError(t, w.SaveAs(path))
	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()

	stage, err := f.GetCellValue(failureSheet, "C2")
	require.NoError(t, err)
	assert.Equal(t, constants.StageExport, stage)
	empty, err := f.GetCellValue(dataSheet, "A2")
	require.NoError(t, err)
	assert.Empty(t, empty)
}
