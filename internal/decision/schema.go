package decision

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// allocationSchema is the wire contract for external allocators:
// percent values in 0..100, allocations plus usdt_percent summing to 100.
const allocationSchema = `{
	"type": "object",
	"properties": {
		"allocations": {
			"type": "array",
			"items": {
				"type": "object",
				"properties": {
					"symbol": {"type": "string", "minLength": 1},
					"percent": {"type": "number", "minimum": 0, "maximum": 100},
					"reasoning": {"type": "string"}
				},
				"required": ["symbol", "percent"]
			}
		},
		"usdt_percent": {"type": "number", "minimum": 0, "maximum": 100},
		"market_outlook": {"type": "string", "enum": ["bullish", "neutral", "bearish"]},
		"conviction": {"type": "string", "enum": ["low", "medium", "high", "maximum"]}
	},
	"required": ["allocations", "usdt_percent"]
}`

var compiledSchema = mustCompileSchema()

func mustCompileSchema() *jsonschema.Schema {
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("allocation.json", strings.NewReader(allocationSchema)); err != nil {
		panic(fmt.Sprintf("decision: schema resource: %v", err))
	}
	schema, err := compiler.Compile("allocation.json")
	if err != nil {
		panic(fmt.Sprintf("decision: schema compile: %v", err))
	}
	return schema
}

// ValidateAllocationJSON checks raw against the wire schema. Structural
// validation only; the sum-to-100 check happens during conversion where
// the tolerance is applied.
func ValidateAllocationJSON(raw string) error {
	var doc interface{}
	if err := json.Unmarshal([]byte(raw), &doc); err != nil {
		return fmt.Errorf("invalid json: %w", err)
	}
	if err := compiledSchema.Validate(doc); err != nil {
		return fmt.Errorf("allocation schema violation: %w", err)
	}
	return nil
}
