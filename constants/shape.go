package constants

// InvoiceShape identifies which extraction strategy applies to a document.
// The set is closed: a document is exactly one of these, decided once by the
// classifier.
type InvoiceShape string

// Stable values (store these exact strings in DB and exports).
const (
	ShapeConventionalSimple      InvoiceShape = "B_CONVENTIONAL_SIMPLE"
	ShapeConventionalCompensated InvoiceShape = "B_CONVENTIONAL_COMPENSATED"
	ShapeWhiteSimple             InvoiceShape = "B_WHITE_SIMPLE"
	ShapeWhiteCompensated        InvoiceShape = "B_WHITE_COMPENSATED"
	ShapeGroupAUnsupported       InvoiceShape = "A_UNSUPPORTED"
)

// Supported reports whether the shape has an extraction strategy. Group A
// documents are detected and skipped, never extracted.
func (s InvoiceShape) Supported() bool {
	return s != ShapeGroupAUnsupported && s != ""
}

// Compensated reports whether the shape carries an SCEE compensation block.
func (s InvoiceShape) Compensated() bool {
	return s == ShapeConventionalCompensated || s == ShapeWhiteCompensated
}

// White reports whether the shape bills under time-of-use (white) modality.
func (s InvoiceShape) White() bool {
	return s == ShapeWhiteSimple || s == ShapeWhiteCompensated
}
