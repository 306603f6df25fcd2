package common

import (
	"errors"
	"fmt"
)

// Error kinds. These are stable values: failure notices and the history store
// persist them verbatim.
const (
	KindMalformedNumeric     = "malformed-numeric"
	KindMalformedDate        = "malformed-date"
	KindUnrecognizedLayout   = "unrecognized-layout"
	KindInconsistentSCEE     = "inconsistent-scee"
	KindMissingRequiredField = "missing-required-field"
	KindIneligibleCustomer   = "ineligible-customer"
	KindMissingRegistryData  = "missing-registry-data"
)

// FieldCoercionError reports a token that could not be coerced to its target
// type. Callers decide whether to default the field or escalate.
type FieldCoercionError struct {
	Kind  string // malformed-numeric | malformed-date
	Field string
	Token string
	Cause error
}

func (e *FieldCoercionError) Error() string {
	return fmt.Sprintf("%s: field %q token %q", e.Kind, e.Field, e.Token)
}

func (e *FieldCoercionError) Unwrap() error { return e.Cause }

// ClassificationError reports an unrecognized or internally inconsistent
// invoice layout. The document is skipped and reported, never defaulted.
type ClassificationError struct {
	Kind   string
	Detail string
}

func (e *ClassificationError) Error() string {
	return fmt.Sprintf("classification failed (%s): %s", e.Kind, e.Detail)
}

// ExtractionError reports a document whose required content could not be
// extracted. No partial record is emitted.
type ExtractionError struct {
	Kind  string
	Field string
	Cause error
}

func (e *ExtractionError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("extraction failed (%s): field %q", e.Kind, e.Field)
	}
	return fmt.Sprintf("extraction failed (%s)", e.Kind)
}

func (e *ExtractionError) Unwrap() error { return e.Cause }

// CalculationError reports a precondition violation of the consortium
// calculation engine. The extraction result is still exported without a
// calculation result.
type CalculationError struct {
	Kind   string
	Detail string
}

func (e *CalculationError) Error() string {
	return fmt.Sprintf("calculation failed (%s): %s", e.Kind, e.Detail)
}

// ErrorKind returns the stable kind string of any pipeline error, or "" when
// the error carries none.
func ErrorKind(err error) string {
	var fc *FieldCoercionError
	if errors.As(err, &fc) {
		return fc.Kind
	}
	var cl *ClassificationError
	if errors.As(err, &cl) {
		return cl.Kind
	}
	var ex *ExtractionError
	if errors.As(err, &ex) {
		return ex.Kind
	}
	var ca *CalculationError
	if errors.As(err, &ca) {
		return ca.Kind
	}
	return ""
}

// WrapError annotates err with a message, preserving the chain.
func WrapError(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}
