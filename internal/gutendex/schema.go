package gutendex

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

//go:embed schema.json
var schemaDefinitions []byte

// validator checks upstream payloads against the embedded schema definitions
type validator struct {
	page *gojsonschema.Schema
	book *gojsonschema.Schema
}

func newValidator() (*validator, error) {
	page, err := compileDefinition("page")
	if err != nil {
		return nil, err
	}
	b, err := compileDefinition("book")
	if err != nil {
		return nil, err
	}
	return &validator{page: page, book: b}, nil
}

// compileDefinition builds a schema whose root is one of the shared definitions
func compileDefinition(name string) (*gojsonschema.Schema, error) {
	var doc map[string]any
	if err := json.Unmarshal(schemaDefinitions, &doc); err != nil {
		return nil, fmt.Errorf("failed to read schema definitions: %w", err)
	}
	doc["allOf"] = []any{map[string]any{"$ref": "#/definitions/" + name}}

	schema, err := gojsonschema.NewSchema(gojsonschema.NewGoLoader(doc))
	if err != nil {
		return nil, fmt.Errorf("failed to compile %s schema: %w", name, err)
	}
	return schema, nil
}

func (v *validator) validatePage(body []byte) error {
	return validate(v.page, body)
}

func (v *validator) validateBook(body []byte) error {
	return validate(v.book, body)
}

func validate(schema *gojsonschema.Schema, body []byte) error {
	result, err := schema.Validate(gojsonschema.NewBytesLoader(body))
	if err != nil {
		return fmt.Errorf("%w: payload is not JSON: %v", ErrBadResponse, err)
	}
	if result.Valid() {
		return nil
	}

	problems := make([]string, 0, len(result.Errors()))
	for _, e := range result.Errors() {
		problems = append(problems, e.String())
		if len(problems) == 3 {
			break
		}
	}
	return fmt.Errorf("%w: %s", ErrBadResponse, strings.Join(problems, "; "))
}
