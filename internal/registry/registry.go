package registry

import (
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"github.com/aupus-smart/invoice-engine/constants"
	"github.com/aupus-smart/invoice-engine/internal/document"
)

// Entry is one customer row of the control workbook.
type Entry struct {
	ID       string
	UC       string
	Name     string
	TypeCode string

	// Negotiated discounts as fractions (0.05 for 5%). Zero means "not
	// filled in"; the calculation engine applies its defaults.
	InvoiceDiscount decimal.Decimal
	FlagDiscount    decimal.Decimal

	// Day of month the consortium invoice falls due, as written in the
	// workbook.
	ConsortiumDueDay string

	// CalcMode selects the rate basis: 0 bills the compensated energy at
	// the tax-inclusive rate, 1 at the no-tax rate.
	CalcMode int
}

// Eligible reports whether this customer participates in the consortium
// discount calculation.
func (e *Entry) Eligible() bool { return e.TypeCode == constants.EligibleTypeCode }

// Lookup resolves a consumer unit to its registry entry. Implementations must
// be safe for concurrent readers; the registry is immutable once loaded.
type Lookup interface {
	Lookup(uc string) (*Entry, bool)
}

// Registry is the in-memory customer registry, loaded once per batch run.
type Registry struct {
	byUC map[string]*Entry
}

// New builds a registry from prepared entries. Later duplicates of a UC win,
// matching workbook reading order.
func New(entries []Entry) *Registry {
	r := &Registry{byUC: make(map[string]*Entry, len(entries))}
	for i := range entries {
		e := entries[i]
		r.byUC[e.UC] = &e
	}
	return r
}

func (r *Registry) Lookup(uc string) (*Entry, bool) {
	e, ok := r.byUC[uc]
	return e, ok
}

func (r *Registry) Len() int { return len(r.byUC) }

// Workbook column layout of the control sheet, zero-based. The first row is
// the header.
const (
	colID = iota
	colName
	colTypeCode
	_
	colUC
	colInvoiceDiscount
	colFlagDiscount
	colDueDay
	colCalcMode
)

// LoadWorkbook reads the control sheet of the given XLSX workbook. Reading
// stops at the first row with an empty UC, matching how the sheet is
// maintained (a contiguous block of customers above scratch content).
func LoadWorkbook(path, sheet string, logger *slog.Logger) (*Registry, error) {
	if logger == nil {
		logger = slog.Default()
	}
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open registry workbook: %w", err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil {
			logger.Warn("registry.close_failed", "error", cerr)
		}
	}()

	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheet, err)
	}

	var entries []Entry
	for i, row := range rows {
		if i == 0 {
			continue
		}
		uc := cell(row, colUC)
		if uc == "" {
			break
		}
		e := Entry{
			ID:               cell(row, colID),
			UC:               uc,
			Name:             cell(row, colName),
			TypeCode:         strings.ToUpper(cell(row, colTypeCode)),
			ConsortiumDueDay: cell(row, colDueDay),
		}
		if e.InvoiceDiscount, err = parsePercent(cell(row, colInvoiceDiscount)); err != nil {
			return nil, fmt.Errorf("row %d desconto_fatura: %w", i+1, err)
		}
		if e.FlagDiscount, err = parsePercent(cell(row, colFlagDiscount)); err != nil {
			return nil, fmt.Errorf("row %d desconto_bandeira: %w", i+1, err)
		}
		if mode := cell(row, colCalcMode); mode != "" {
			if e.CalcMode, err = strconv.Atoi(mode); err != nil {
				return nil, fmt.Errorf("row %d modo_calc: %w", i+1, err)
			}
		}
		entries = append(entries, e)
	}

	logger.Info("registry.loaded", "path", path, "sheet", sheet, "customers", len(entries))
	return New(entries), nil
}

func cell(row []string, i int) string {
	if i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

var one = decimal.NewFromInt(1)

// parsePercent accepts the three notations seen in the workbook: "5%", "5"
// and "0,05", all meaning five percent.
func parsePercent(token string) (decimal.Decimal, error) {
	v, err := document.RawValue{Field: "percentual", Text: token}.AsDecimal()
	if err != nil {
		return decimal.Zero, err
	}
	if v.GreaterThan(one) {
		v = v.Div(decimal.NewFromInt(100))
	}
	return v, nil
}
