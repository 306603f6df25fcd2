package document

import (
	"regexp"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/aupus-smart/invoice-engine/internal/common"
)

var (
	nonNumericRE = regexp.MustCompile(`[^\d.,-]`)
	numericRE    = regexp.MustCompile(`^-?\d*\.?\d*$`)
)

// AsDecimal coerces a Brazilian-locale numeric token to a decimal.
// "5.128,26" -> 5128.26, "959,50" -> 959.50, "19%" -> 0.19. An empty token is
// zero; a token that cannot be parsed yields a FieldCoercionError.
func (v RawValue) AsDecimal() (decimal.Decimal, error) {
	return coerceDecimal(v.Field, v.Text)
}

// GroupAsDecimal coerces capture group i with the same rules as AsDecimal.
func (v RawValue) GroupAsDecimal(i int) (decimal.Decimal, error) {
	return coerceDecimal(v.Field, v.Group(i))
}

func coerceDecimal(field, token string) (decimal.Decimal, error) {
	cleaned := strings.TrimSpace(token)
	if cleaned == "" {
		return decimal.Zero, nil
	}

	percent := strings.Contains(cleaned, "%")
	cleaned = nonNumericRE.ReplaceAllString(cleaned, "")
	// An absent value coerces to zero; a present value with nothing numeric
	// in it does not.
	if cleaned == "" || cleaned == "-" {
		return decimal.Zero, &common.FieldCoercionError{
			Kind:  common.KindMalformedNumeric,
			Field: field,
			Token: token,
		}
	}

	// Locale normalization: comma is the decimal mark, dot the thousands
	// separator. A lone comma-less token keeps its dot only when it looks
	// like a plain decimal already.
	switch {
	case strings.Contains(cleaned, ",") && strings.Contains(cleaned, "."):
		cleaned = strings.ReplaceAll(cleaned, ".", "")
		cleaned = strings.ReplaceAll(cleaned, ",", ".")
	case strings.Contains(cleaned, ","):
		cleaned = strings.ReplaceAll(cleaned, ",", ".")
	}
	cleaned = strings.TrimRight(cleaned, ".,")
	if cleaned == "" || !numericRE.MatchString(cleaned) {
		return decimal.Zero, &common.FieldCoercionError{
			Kind:  common.KindMalformedNumeric,
			Field: field,
			Token: token,
		}
	}

	d, err := decimal.NewFromString(cleaned)
	if err != nil {
		return decimal.Zero, &common.FieldCoercionError{
			Kind:  common.KindMalformedNumeric,
			Field: field,
			Token: token,
			Cause: err,
		}
	}
	if percent {
		d = d.Div(decimal.NewFromInt(100))
	}
	return d, nil
}

var dateLayouts = []string{"02/01/2006", "02/01/06"}

// AsDate coerces a DD/MM/YYYY or DD/MM/YY token.
func (v RawValue) AsDate() (time.Time, error) {
	return coerceDate(v.Field, v.Text)
}

// GroupAsDate coerces capture group i with the same rules as AsDate.
func (v RawValue) GroupAsDate(i int) (time.Time, error) {
	return coerceDate(v.Field, v.Group(i))
}

func coerceDate(field, token string) (time.Time, error) {
	cleaned := strings.TrimSpace(token)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, cleaned); err == nil {
			return t, nil
		}
	}
	return time.Time{}, &common.FieldCoercionError{
		Kind:  common.KindMalformedDate,
		Field: field,
		Token: token,
	}
}

// AsText returns the matched text with runs of whitespace collapsed.
func (v RawValue) AsText() string {
	return strings.Join(strings.Fields(v.Text), " ")
}
