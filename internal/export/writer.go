// Package export serializes batch results into an XLSX workbook: one sheet
// of extracted records, one sheet of failure notices. The writer is the
// single sink for a batch run; the pipeline serializes calls into it.
package export

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"github.com/aupus-smart/invoice-engine/constants"
	"github.com/aupus-smart/invoice-engine/internal/invoice"
	"github.com/aupus-smart/invoice-engine/internal/pipeline"
)

const (
	dataSheet    = "Dados"
	failureSheet = "Falhas"
)

var dataHeaders = []string{
	"UC",
	"Nome",
	"Sigla",
	"Tipo Fatura",
	"Mês Referência",
	"Vencimento",
	"Consumo (kWh)",
	"Consumo Compensado (kWh)",
	"Consumo Não Compensado (kWh)",
	"Bandeira",
	"Valor Bandeira (R$)",
	"Valor Concessionária (R$)",
	"Juros (R$)",
	"Multa (R$)",
	"Iluminação Pública (R$)",
	"Energia Injetada (kWh)",
	"Excedente Recebido (kWh)",
	"Saldo (kWh)",
	"Compensação Integral",
	"Consumo Remanescente (kWh)",
	"Valor Compensado (R$)",
	"Valor Compensado c/ Desconto (R$)",
	"Valor Bandeira Compensada (R$)",
	"Valor Bandeira c/ Desconto (R$)",
	"Valor Consórcio (R$)",
	"Economia (R$)",
	"Valor Total (R$)",
	"Valor sem Desconto (R$)",
	"Arquivo",
}

var failureHeaders = []string{
	"Documento",
	"Arquivo",
	"Etapa",
	"Motivo",
	"Detalhe",
}

// Summary counts batch outcomes by status.
type Summary struct {
	Calculated int
	Processed  int
	Skipped    int
	Failed     int
}

// Total is the number of documents that reached the sink.
func (s Summary) Total() int { return s.Calculated + s.Processed + s.Skipped + s.Failed }

// Writer accumulates results into an in-memory workbook. It implements
// pipeline.Sink; Consume is safe for concurrent callers, though the queue
// already serializes delivery.
type Writer struct {
	logger *slog.Logger
	schema *jsonschema.Schema

	mu      sync.Mutex
	file    *excelize.File
	dataRow int
	failRow int
	summary Summary
	started time.Time
}

// NewWriter builds an empty workbook with both sheets and their headers, and
// compiles the record contract the rows are validated against.
func NewWriter(logger *slog.Logger) (*Writer, error) {
	if logger == nil {
		logger = slog.Default()
	}
	schema, err := invoice.CompileRecordSchema()
	if err != nil {
		return nil, err
	}

	f := excelize.NewFile()
	if _, err := f.NewSheet(dataSheet); err != nil {
		return nil, err
	}
	if _, err := f.NewSheet(failureSheet); err != nil {
		return nil, err
	}
	_ = f.DeleteSheet("Sheet1")
	if index, err := f.GetSheetIndex(dataSheet); err == nil {
		f.SetActiveSheet(index)
	}

	for i, h := range dataHeaders {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(dataSheet, cell, h)
	}
	for i, h := range failureHeaders {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(failureSheet, cell, h)
	}
	_ = f.SetColWidth(dataSheet, "A", "B", 24)
	_ = f.SetColWidth(failureSheet, "A", "A", 38)
	_ = f.SetColWidth(failureSheet, "B", "B", 48)
	_ = f.SetColWidth(failureSheet, "E", "E", 64)

	return &Writer{
		logger:  logger,
		schema:  schema,
		file:    f,
		dataRow: 2,
		failRow: 2,
		started: time.Now(),
	}, nil
}

// Consume appends one result to the workbook. Records that fail the schema
// contract are diverted to the failure sheet instead of shipping bad rows.
func (w *Writer) Consume(res pipeline.Result) {
	w.mu.Lock()
	defer w.mu.Unlock()

	switch res.Status {
	case constants.StatusSkipped:
		w.summary.Skipped++
		return
	case constants.StatusFailed:
		w.summary.Failed++
		w.writeFailure(res.Failure)
		return
	}

	rec := res.Record
	if err := rec.ValidateAgainstSchema(w.schema); err != nil {
		w.summary.Failed++
		w.logger.Error("export.contract.violated",
			slog.String("uc", rec.UC),
			slog.Any("error", err))
		w.writeFailureRow(rec.DocumentID.String(), rec.SourcePath, constants.StageExport, "contract-violation", err.Error())
		return
	}

	if res.Status == constants.StatusCalculated {
		w.summary.Calculated++
	} else {
		w.summary.Processed++
	}
	w.writeRecord(rec)
}

func (w *Writer) writeRecord(rec *invoice.Record) {
	set := func(col int, v any) {
		cell, _ := excelize.CoordinatesToCellName(col, w.dataRow)
		_ = w.file.SetCellValue(dataSheet, cell, v)
	}
	num := func(col int, d decimal.Decimal) { set(col, d.InexactFloat64()) }

	set(1, rec.UC)
	set(2, rec.CustomerName)
	set(3, rec.TypeCode)
	set(4, string(rec.Shape))
	set(5, rec.ReferenceMonth)
	set(6, rec.DueDate)
	num(7, rec.Total.Consumption)
	num(8, rec.Total.ConsumptionComp)
	num(9, rec.Total.ConsumptionNonComp)
	set(10, string(rec.Flag))
	num(11, rec.FlagTotal)
	num(12, rec.UtilityTotal)
	num(13, rec.InterestAmount)
	num(14, rec.FineAmount)
	num(15, rec.LightingAmount)
	num(16, rec.InjectedEnergy)
	num(17, rec.SurplusReceived)
	num(18, rec.Total.Balance)
	set(19, rec.CompensationFull)
	num(20, rec.NonCompensatedRemainder)
	if c := rec.Calculation; c != nil {
		num(21, c.CompensatedAmount)
		num(22, c.DiscountedAmount)
		num(23, c.FlagCompAmount)
		num(24, c.DiscountedFlagAmount)
		num(25, c.ConsortiumValue)
		num(26, c.Economy)
		num(27, c.TotalPayable)
		num(28, c.UndiscountedTotal)
	}
	set(29, rec.SourcePath)
	w.dataRow++
}

func (w *Writer) writeFailure(n *pipeline.FailureNotice) {
	if n == nil {
		return
	}
	detail := ""
	if n.Err != nil {
		detail = n.Err.Error()
	}
	w.writeFailureRow(n.DocumentID.String(), n.SourcePath, n.Stage, n.Kind, detail)
}

func (w *Writer) writeFailureRow(id, source, stage, kind, detail string) {
	set := func(col int, v any) {
		cell, _ := excelize.CoordinatesToCellName(col, w.failRow)
		_ = w.file.SetCellValue(failureSheet, cell, v)
	}
	set(1, id)
	set(2, source)
	set(3, stage)
	set(4, kind)
	set(5, detail)
	w.failRow++
}

// Summary returns the outcome counts accumulated so far.
func (w *Writer) Summary() Summary {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.summary
}

// SaveAs writes the workbook to disk. Call once, after the queue drains.
func (w *Writer) SaveAs(path string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.file.SaveAs(path); err != nil {
		return fmt.Errorf("save workbook: %w", err)
	}
	w.logger.Info("export.xlsx.ok",
		slog.String("path", path),
		slog.Int("records", w.dataRow-2),
		slog.Int("failures", w.failRow-2),
		slog.Int64("elapsed_ms", time.Since(w.started).Milliseconds()),
	)
	return nil
}
