package analysis

import (
	_ "embed"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// contractSchemaJSON is the output contract, sent to the model in the prompt
// and checked against every recovered object.
//
//go:embed analysis_result.schema.json
var contractSchemaJSON string

var contractSchema = jsonschema.MustCompileString("analysis_result.schema.json", contractSchemaJSON)

// conforms reports whether a decoded JSON value satisfies the output contract.
func conforms(v any) bool {
	return contractSchema.Validate(v) == nil
}
