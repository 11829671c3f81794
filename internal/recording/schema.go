package recording

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

const schemaURL = "recording.schema.json"

//go:embed schema/recording.schema.json
var schemaJSON []byte

var (
	schemaOnce     sync.Once
	compiledSchema *jsonschema.Schema
	schemaErr      error
)

func loadSchema() (*jsonschema.Schema, error) {
	schemaOnce.Do(func() {
		compiler := jsonschema.NewCompiler()
		compiler.Draft = jsonschema.Draft2020
		if err := compiler.AddResource(schemaURL, bytes.NewReader(schemaJSON)); err != nil {
			schemaErr = fmt.Errorf("add schema resource: %w", err)
			return
		}
		compiledSchema, schemaErr = compiler.Compile(schemaURL)
	})
	return compiledSchema, schemaErr
}

// Validate checks data strictly against the recording schema. Unlike
// Deserialize it rejects any malformed element.
func Validate(data []byte) error {
	schema, err := loadSchema()
	if err != nil {
		return fmt.Errorf("recording: schema: %w", err)
	}
	var instance any
	if err := json.Unmarshal(data, &instance); err != nil {
		return &FormatError{Err: err}
	}
	if err := schema.Validate(instance); err != nil {
		return fmt.Errorf("recording: schema validation: %w", err)
	}
	return nil
}
