// Package pipeline runs one invoice document through the full processing
// chain: classification, shape extraction, compensation verification,
// registry enrichment and, for eligible customers, the consortium
// calculation. A bounded worker queue fans documents out and funnels every
// outcome into a single serialized sink.
package pipeline

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"github.com/aupus-smart/invoice-engine/constants"
	"github.com/aupus-smart/invoice-engine/internal/calc"
	"github.com/aupus-smart/invoice-engine/internal/classify"
	"github.com/aupus-smart/invoice-engine/internal/common"
	"github.com/aupus-smart/invoice-engine/internal/document"
	"github.com/aupus-smart/invoice-engine/internal/extract"
	"github.com/aupus-smart/invoice-engine/internal/invoice"
	"github.com/aupus-smart/invoice-engine/internal/registry"
	"github.com/aupus-smart/invoice-engine/internal/verify"
)

// Document is one unit of work: the raw text of an invoice plus where it
// came from.
type Document struct {
	SourcePath string
	Text       string
}

// FailureNotice describes a terminal per-document failure. One notice per
// failed document, reported exactly once through the sink.
type FailureNotice struct {
	DocumentID uuid.UUID
	SourcePath string
	Stage      string
	Kind       string
	Err        error
}

// Result is the outcome of processing a single document. Exactly one of
// Record and Failure is set, except for skipped documents where both may be
// nil and Status alone tells the story.
type Result struct {
	SourcePath string
	Status     constants.DocumentStatus
	Record     *invoice.Record
	Failure    *FailureNotice
}

// Processor runs the per-document stages. It is stateless between calls and
// safe for concurrent use.
type Processor struct {
	logger     *slog.Logger
	classifier *classify.Classifier
	verifier   *verify.Verifier
	lookup     registry.Lookup
	engine     *calc.Engine
}

// NewProcessor wires the stages together. The lookup must already be loaded;
// a registry that cannot be loaded is a batch-fatal condition handled by the
// caller, never per document.
func NewProcessor(logger *slog.Logger, lookup registry.Lookup, engine *calc.Engine) *Processor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Processor{
		logger:     logger,
		classifier: classify.New(logger),
		verifier:   verify.New(logger),
		lookup:     lookup,
		engine:     engine,
	}
}

// Process runs one document through every stage. Classification and
// extraction failures are terminal for the document; a calculation failure is
// not: the record is still delivered, without a calculation, alongside a
// warning.
func (p *Processor) Process(ctx context.Context, doc Document) Result {
	if err := ctx.Err(); err != nil {
		return p.fail(doc, constants.StageClassify, err)
	}

	text := document.NewRawText(doc.Text)

	shape, err := p.classifier.Classify(text)
	if err != nil {
		return p.fail(doc, constants.StageClassify, err)
	}
	if !shape.Supported() {
		p.logger.Info("pipeline.skipped",
			slog.String("source", doc.SourcePath),
			slog.String("shape", string(shape)))
		return Result{SourcePath: doc.SourcePath, Status: constants.StatusSkipped}
	}

	extractor, err := extract.ForShape(shape, p.logger)
	if err != nil {
		return p.fail(doc, constants.StageClassify, err)
	}
	rec, err := extractor.Extract(text)
	if err != nil {
		return p.fail(doc, constants.StageExtract, err)
	}
	rec.SourcePath = doc.SourcePath

	p.verifier.Verify(rec)

	status := constants.StatusProcessed
	entry, found := p.lookup.Lookup(rec.UC)
	if found {
		rec.CustomerName = entry.Name
		rec.TypeCode = entry.TypeCode
	}
	if found && entry.Eligible() {
		result, calcErr := p.engine.Calculate(rec, entry)
		if calcErr != nil {
			// Non-fatal: the extraction still ships, just without numbers.
			p.logger.Warn("pipeline.calc.failed",
				slog.String("uc", rec.UC),
				slog.String("kind", common.ErrorKind(calcErr)),
				slog.Any("error", calcErr))
		} else {
			rec.Calculation = result
			status = constants.StatusCalculated
		}
	}

	p.logger.Info("pipeline.done",
		slog.String("uc", rec.UC),
		slog.String("shape", string(rec.Shape)),
		slog.String("status", string(status)))
	return Result{SourcePath: doc.SourcePath, Status: status, Record: rec}
}

func (p *Processor) fail(doc Document, stage string, err error) Result {
	kind := common.ErrorKind(err)
	p.logger.Error("pipeline.failed",
		slog.String("source", doc.SourcePath),
		slog.String("stage", stage),
		slog.String("kind", kind),
		slog.Any("error", err))
	return Result{
		SourcePath: doc.SourcePath,
		Status:     constants.StatusFailed,
		Failure: &FailureNotice{
			DocumentID: uuid.New(),
			SourcePath: doc.SourcePath,
			Stage:      stage,
			Kind:       kind,
			Err:        err,
		},
	}
}
