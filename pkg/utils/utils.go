package utils

import (
	"encoding/json"

	"github.com/invopop/jsonschema"
)

// GetSchemaFromConfig returns the JSON schema of a strategy config struct with every
// definition inlined, so clients can render a parameter form from one object.
func GetSchemaFromConfig(config any) (string, error) {
	reflector := jsonschema.Reflector{
		DoNotReference:            true,
		AllowAdditionalProperties: false,
	}

	schema := reflector.Reflect(config)

	out, err := json.Marshal(schema)
	if err != nil {
		return "", err
	}

	return string(out), nil
}
