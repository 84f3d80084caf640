package adapter

import (
	"bytes"
	"embed"
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

//go:embed schemas/*.json
var schemaFS embed.FS

// mustCompileSchema loads an embedded payload schema at startup. Schemas
// ship with the binary, so a failure here is a build defect.
func mustCompileSchema(name string) *jsonschema.Schema {
	raw, err := schemaFS.ReadFile("schemas/" + name)
	if err != nil {
		panic(fmt.Sprintf("read schema %s: %v", name, err))
	}

	doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(raw))
	if err != nil {
		panic(fmt.Sprintf("parse schema %s: %v", name, err))
	}

	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(name, doc); err != nil {
		panic(fmt.Sprintf("add schema %s: %v", name, err))
	}
	return compiler.MustCompile(name)
}

// validatePayload checks the raw payload against the source schema before
// any typed decoding happens.
func validatePayload(schema *jsonschema.Schema, properties json.RawMessage) error {
	if len(properties) == 0 {
		return fmt.Errorf("%w: empty payload", ErrSchemaValidation)
	}

	instance, err := jsonschema.UnmarshalJSON(bytes.NewReader(properties))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrSchemaValidation, err)
	}
	if err := schema.Validate(instance); err != nil {
		return fmt.Errorf("%w: %v", ErrSchemaValidation, err)
	}
	return nil
}
