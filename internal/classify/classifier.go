package classify

import (
	"log/slog"
	"regexp"

	"github.com/aupus-smart/invoice-engine/constants"
	"github.com/aupus-smart/invoice-engine/internal/common"
	"github.com/aupus-smart/invoice-engine/internal/document"
)

// Marker tables. Signals are not mutually exclusive in raw invoice text, so
// classification order matters: group first (A short-circuits), then modality,
// then compensation.
var (
	groupAMarkers = []string{
		"GRUPO A",
		"TARIFA AZUL",
		"TARIFA VERDE",
		"DEMANDA CONTRATADA",
		"DEMANDA REGISTRADA",
		"KW CONTRATADA",
	}
	groupBMarkers = []string{
		"GRUPO B",
		"TARIFA CONVENCIONAL",
		"TARIFA BRANCA",
		"MONOFÁSICO", "MONOFASICO",
		"BIFÁSICO", "BIFASICO",
		"TRIFÁSICO", "TRIFASICO",
	}
	whiteMarkers = []string{
		"BRANCA",
		"POSTO TARIFÁRIO", "POSTO TARIFARIO",
		"HORÁRIO PONTA", "HORARIO PONTA",
		"FORA PONTA",
		"INTERMEDIÁRIO", "INTERMEDIARIO",
	}
	sceeMarkers = []string{
		"INFORMAÇÕES DO SCEE", "INFORMACOES DO SCEE",
		"SCEE:",
		"SISTEMA DE COMPENSAÇÃO", "SISTEMA DE COMPENSACAO",
		"ENERGIA INJETADA",
		"INJEÇÃO SCEE", "INJECAO SCEE",
		"EXCEDENTE RECEBIDO",
		"CRÉDITO RECEBIDO", "CREDITO RECEBIDO",
		"GERAÇÃO CICLO", "GERACAO CICLO",
		"SALDO KWH",
	}
)

// Group A invoices split every line item into TUSD and TE components; the two
// labels on one line is as reliable a signal as the explicit group header.
var tusdTELine = regexp.MustCompile(`(?i)TUSD\b.*\bTE\b`)

// Classifier decides which invoice shape a document represents.
type Classifier struct {
	logger *slog.Logger
}

func New(logger *slog.Logger) *Classifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &Classifier{logger: logger}
}

// Classify inspects the raw text and returns the invoice shape. Ambiguous or
// missing tariff-group markers fail with a ClassificationError; the caller
// skips and reports the document, never defaults.
func (c *Classifier) Classify(text *document.RawText) (constants.InvoiceShape, error) {
	// Group A invoices are structurally different and out of scope; detect
	// and short-circuit before any further analysis.
	if text.Contains(groupAMarkers...) || tusdTELine.MatchString(text.Full()) {
		c.logger.Debug("classify.group_a", "markers", "tariff group A")
		return constants.ShapeGroupAUnsupported, nil
	}
	if !text.Contains(groupBMarkers...) {
		return "", &common.ClassificationError{
			Kind:   common.KindUnrecognizedLayout,
			Detail: "no tariff group marker found",
		}
	}

	white := text.Contains(whiteMarkers...)
	compensated := text.Contains(sceeMarkers...)

	var shape constants.InvoiceShape
	switch {
	case white && compensated:
		shape = constants.ShapeWhiteCompensated
	case white:
		shape = constants.ShapeWhiteSimple
	case compensated:
		shape = constants.ShapeConventionalCompensated
	default:
		shape = constants.ShapeConventionalSimple
	}
	c.logger.Debug("classify.ok", "shape", shape, "white", white, "compensated", compensated)
	return shape, nil
}
