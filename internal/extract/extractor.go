package extract

import (
	"log/slog"

	"github.com/aupus-smart/invoice-engine/constants"
	"github.com/aupus-smart/invoice-engine/internal/common"
	"github.com/aupus-smart/invoice-engine/internal/document"
	"github.com/aupus-smart/invoice-engine/internal/invoice"
)

// ShapeExtractor turns the raw text of one classified document into a fully
// populated Record. Exactly one implementation exists per supported shape;
// none emits a partial record on failure.
type ShapeExtractor interface {
	Extract(text *document.RawText) (*invoice.Record, error)
}

// ForShape returns the extractor for the given shape, or a ClassificationError
// when the shape has no extractor (Group A, or an unknown value).
func ForShape(shape constants.InvoiceShape, logger *slog.Logger) (ShapeExtractor, error) {
	if logger == nil {
		logger = slog.Default()
	}
	switch shape {
	case constants.ShapeConventionalSimple:
		return &conventionalExtractor{logger: logger, shape: shape}, nil
	case constants.ShapeConventionalCompensated:
		return &conventionalExtractor{logger: logger, shape: shape, compensated: true}, nil
	case constants.ShapeWhiteSimple:
		return &whiteExtractor{logger: logger, shape: shape}, nil
	case constants.ShapeWhiteCompensated:
		return &whiteExtractor{logger: logger, shape: shape, compensated: true}, nil
	default:
		return nil, &common.ClassificationError{
			Kind:   common.KindUnrecognizedLayout,
			Detail: "no extractor for shape " + string(shape),
		}
	}
}

// conventionalExtractor handles CONVENCIONAL-modality Group B invoices, with
// or without SCEE compensation.
type conventionalExtractor struct {
	logger      *slog.Logger
	shape       constants.InvoiceShape
	compensated bool
}

func (x *conventionalExtractor) Extract(text *document.RawText) (*invoice.Record, error) {
	loc := document.NewLocator(text)
	rec := invoice.New(x.shape)
	rec.TariffGroup = "B"
	rec.Modality = "CONVENCIONAL"

	if err := extractIdentity(loc, rec); err != nil {
		return nil, err
	}
	if err := extractTaxes(loc, rec); err != nil {
		return nil, err
	}
	if err := extractFinancial(loc, rec); err != nil {
		return nil, err
	}
	if err := extractConsumption(loc, rec, x.compensated); err != nil {
		return nil, err
	}
	if err := extractFlags(loc, rec); err != nil {
		return nil, err
	}
	if x.compensated {
		if err := extractSCEE(loc, rec); err != nil {
			return nil, err
		}
	}

	finalizeConventional(rec)
	if err := rec.Validate(); err != nil {
		return nil, err
	}
	x.logger.Debug("extract.ok",
		"shape", rec.Shape,
		"uc", rec.UC,
		"consumption", rec.Total.Consumption,
		"sources", len(rec.Sources))
	return rec, nil
}

// finalizeConventional derives the consumption total from the compensated /
// non-compensated split when the invoice itemizes them instead of printing a
// single consumption line.
func finalizeConventional(rec *invoice.Record) {
	t := &rec.Total
	split := t.ConsumptionComp.Add(t.ConsumptionNonComp)
	if t.Consumption.IsZero() && split.IsPositive() {
		t.Consumption = split
	}
	if t.Amount.IsZero() {
		t.Amount = t.AmountComp.Add(t.AmountNonComp)
	}
}

// whiteExtractor handles BRANCA-modality Group B invoices. Every consumption
// figure is extracted per tariff post; the Total bucket is always the sum of
// the three posts.
type whiteExtractor struct {
	logger      *slog.Logger
	shape       constants.InvoiceShape
	compensated bool
}

func (x *whiteExtractor) Extract(text *document.RawText) (*invoice.Record, error) {
	loc := document.NewLocator(text)
	rec := invoice.New(x.shape)
	rec.TariffGroup = "B"
	rec.Modality = "BRANCA"

	if err := extractIdentity(loc, rec); err != nil {
		return nil, err
	}
	if err := extractTaxes(loc, rec); err != nil {
		return nil, err
	}
	if err := extractFinancial(loc, rec); err != nil {
		return nil, err
	}
	if err := extractConsumption(loc, rec, x.compensated); err != nil {
		return nil, err
	}
	if err := extractFlags(loc, rec); err != nil {
		return nil, err
	}
	if x.compensated {
		if err := extractSCEE(loc, rec); err != nil {
			return nil, err
		}
	}

	for _, p := range constants.WhitePosts {
		e := rec.Post(p)
		split := e.ConsumptionComp.Add(e.ConsumptionNonComp)
		if e.Consumption.IsZero() && split.IsPositive() {
			e.Consumption = split
		}
		if e.Amount.IsZero() {
			e.Amount = e.AmountComp.Add(e.AmountNonComp)
		}
	}
	rec.RecomputeTotal()
	if err := rec.Validate(); err != nil {
		return nil, err
	}
	x.logger.Debug("extract.ok",
		"shape", rec.Shape,
		"uc", rec.UC,
		"consumption", rec.Total.Consumption,
		"sources", len(rec.Sources))
	return rec, nil
}
