package llm

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// CompileSchema turns a schema document into a reusable validator.
func CompileSchema(schemaMap map[string]any) (*jsonschema.Schema, error) {
	b, err := json.Marshal(schemaMap)
	if err != nil {
		return nil, fmt.Errorf("marshal schema: %w", err)
	}
	compiler := jsonschema.NewCompiler()
	compiler.Draft = jsonschema.Draft7
	if err := compiler.AddResource("pass.schema.json", bytes.NewReader(b)); err != nil {
		return nil, fmt.Errorf("add schema: %w", err)
	}
	return compiler.Compile("pass.schema.json")
}

var passSchema = sync.OnceValues(func() (*jsonschema.Schema, error) {
	return CompileSchema(BuildPassJSONSchema())
})

// ValidatePassJSON checks a model reply against the pass field schema,
// compiled once per process.
func ValidatePassJSON(data []byte) error {
	s, err := passSchema()
	if err != nil {
		return err
	}
	return validate(s, data)
}

// ValidateJSONAgainstSchema compiles schemaMap and validates data against it.
func ValidateJSONAgainstSchema(schemaMap map[string]any, data []byte) error {
	s, err := CompileSchema(schemaMap)
	if err != nil {
		return err
	}
	return validate(s, data)
}

func validate(s *jsonschema.Schema, data []byte) error {
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("unmarshal data: %w", err)
	}
	if err := s.Validate(v); err != nil {
		var ve *jsonschema.ValidationError
		if errors.As(err, &ve) {
			return fmt.Errorf("reply does not match pass schema: %s", summarize(ve))
		}
		return fmt.Errorf("reply does not match pass schema: %w", err)
	}
	return nil
}

// summarize flattens the leaf causes into "location: message" pairs.
func summarize(ve *jsonschema.ValidationError) string {
	var parts []string
	var walk func(e *jsonschema.ValidationError)
	walk = func(e *jsonschema.ValidationError) {
		if len(e.Causes) == 0 {
			loc := e.InstanceLocation
			if loc == "" {
				loc = "/"
			}
			parts = append(parts, loc+": "+e.Message)
			return
		}
		for _, c := range e.Causes {
			walk(c)
		}
	}
	walk(ve)
	return strings.Join(parts, "; ")
}
