package invoice

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// BuildRecordJSONSchema returns a JSON-Schema (draft 2020-12 subset) for the
// canonical record as a generic map. The export sink validates every record
// against it before writing, enforcing the field-presence contract.
func BuildRecordJSONSchema() map[string]any {
	energyProps := map[string]any{}
	for _, f := range []string{
		"consumo", "consumo_comp", "consumo_n_comp",
		"rs_consumo", "rs_consumo_comp", "rs_consumo_n_comp", "rs_consumo_n_comp_si",
		"valor_consumo", "valor_consumo_comp", "valor_consumo_n_comp",
		"rs_adc_bandeira_amarela", "rs_adc_bandeira_vermelha", "valor_adc_bandeira",
		"saldo",
	} {
		energyProps[f] = decimalProp()
	}
	energy := map[string]any{
		"type":       "object",
		"properties": energyProps,
		"required": []string{
			"consumo", "consumo_comp", "consumo_n_comp", "saldo",
		},
	}
	tax := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"base":     decimalProp(),
			"aliquota": decimalProp(),
			"valor":    decimalProp(),
		},
		"required": []string{"base", "aliquota", "valor"},
	}
	source := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"uc":        map[string]any{"type": "string", "minLength": 1},
			"geracao":   decimalProp(),
			"excedente": decimalProp(),
			"rateio":    decimalProp(),
		},
		"required": []string{"uc", "geracao", "excedente"},
	}

	props := map[string]any{
		"document_id":          map[string]any{"type": "string"},
		"shape":                map[string]any{"type": "string", "minLength": 1},
		"uc":                   map[string]any{"type": "string", "minLength": 1},
		"grupo":                map[string]any{"type": "string", "minLength": 1},
		"modalidade_tarifaria": map[string]any{"type": "string", "minLength": 1},
		"mes_referencia":       map[string]any{"type": "string", "minLength": 1},
		"vencimento":           map[string]any{"type": "string", "minLength": 1},
		"total":                energy,
		"ponta":                energy,
		"fora_ponta":           energy,
		"intermediario":        energy,
		"icms":                 tax,
		"pis":                  tax,
		"cofins":               tax,
		"valor_concessionaria": decimalProp(),
		"valor_juros":          decimalProp(),
		"valor_multa":          decimalProp(),
		"valor_iluminacao":     decimalProp(),
		"valor_bandeira":       decimalProp(),
		"saldo_30":             decimalProp(),
		"saldo_60":             decimalProp(),
		"excedente_recebido":   decimalProp(),
		"credito_recebido":     decimalProp(),
		"energia_injetada":     decimalProp(),
		"geracao_ciclo":        decimalProp(),
		"ugs":                  map[string]any{"type": "array", "items": source},
	}
	required := []string{
		"uc", "grupo", "modalidade_tarifaria", "mes_referencia", "vencimento",
		"total", "icms", "pis", "cofins",
		"valor_concessionaria", "saldo_30", "saldo_60",
		"excedente_recebido", "credito_recebido", "energia_injetada", "ugs",
	}

	return map[string]any{
		"type":       "object",
		"properties": props,
		"required":   required,
	}
}

func decimalProp() map[string]any {
	return map[string]any{
		"type":    "string",
		"pattern": `^-?\d+(\.\d+)?$`,
	}
}

// CompileRecordSchema compiles the canonical record schema once for reuse
// across a batch.
func CompileRecordSchema() (*jsonschema.Schema, error) {
	b, err := json.Marshal(BuildRecordJSONSchema())
	if err != nil {
		return nil, fmt.Errorf("marshal schema: %w", err)
	}
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("record.json", bytes.NewReader(b)); err != nil {
		return nil, fmt.Errorf("add schema: %w", err)
	}
	schema, err := compiler.Compile("record.json")
	if err != nil {
		return nil, fmt.Errorf("compile schema: %w", err)
	}
	return schema, nil
}

// ValidateAgainstSchema marshals the record and validates it against the
// compiled schema.
func (r *Record) ValidateAgainstSchema(schema *jsonschema.Schema) error {
	data, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("marshal record: %w", err)
	}
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("unmarshal record: %w", err)
	}
	if err := schema.Validate(v); err != nil {
		return fmt.Errorf("record does not match contract: %w", err)
	}
	return nil
}
