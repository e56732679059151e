package match

import (
	"fmt"
	"strings"
	"sync"

	"github.com/xeipuuv/gojsonschema"

	"github.com/c360/represent/errors"
)

// documentSchema describes the nesting the engine relies on. Location contents are
// deliberately unconstrained: bad coordinates are recovered per location.
const documentSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "additionalProperties": {
    "type": "object",
    "additionalProperties": {
      "type": "object",
      "required": ["member_db", "locations"],
      "properties": {
        "member_db": {"type": "string"},
        "locations": {
          "type": "array",
          "items": {"type": "object"}
        }
      }
    }
  }
}`

var (
	schemaOnce sync.Once
	schema     *gojsonschema.Schema
	schemaErr  error
)

func compiledSchema() (*gojsonschema.Schema, error) {
	schemaOnce.Do(func() {
		schema, schemaErr = gojsonschema.NewSchema(gojsonschema.NewStringLoader(documentSchema))
	})
	return schema, schemaErr
}

// maxReportedViolations caps how many schema violations end up in the error message
const maxReportedViolations = 5

// Validate checks the structure of a raw match document
func Validate(data []byte) error {
	compiled, err := compiledSchema()
	if err != nil {
		return errors.WrapFatal(err, "Decoder", "Validate", "compile document schema")
	}

	result, err := compiled.Validate(gojsonschema.NewBytesLoader(data))
	if err != nil {
		return errors.WrapFatal(fmt.Errorf("%w: %v", errors.ErrMalformedInput, err),
			"Decoder", "Validate", "parse document")
	}
	if result.Valid() {
		return nil
	}

	violations := result.Errors()
	msgs := make([]string, 0, maxReportedViolations)
	for i, desc := range violations {
		if i == maxReportedViolations {
			msgs = append(msgs, fmt.Sprintf("and %d more", len(violations)-i))
			break
		}
		msgs = append(msgs, fmt.Sprintf("%s: %s", desc.Field(), desc.Description()))
	}
	return errors.WrapFatal(fmt.Errorf("%w: %s", errors.ErrMalformedInput, strings.Join(msgs, "; ")),
		"Decoder", "Validate", "check document structure")
}
