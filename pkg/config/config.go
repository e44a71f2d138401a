// Package config loads the static journey configuration documents: the
// diff mapping that suppresses no-op proposal updates and the error-code
// table that drives arbitration. Documents are validated on load and
// exposed through an immutable snapshot.
package config

import (
	"encoding/json"
	"fmt"

	"github.com/xeipuuv/gojsonschema"
)

// DiffConfig maps an outgoing field name to the dotted path of the same
// value inside the resolved proposal.
type DiffConfig map[string]string

// ErrorDetails describes how one upstream error code is surfaced.
type ErrorDetails struct {
	Priority int    `json:"priority"`
	Action   string `json:"action"`
	Message  string `json:"message,omitempty"`
	Method   string `json:"method,omitempty"`
}

// ActionSameNode keeps the user on the current step instead of routing.
const ActionSameNode = "same_node"

// ErrorConfig maps upstream error codes to their surfacing rules.
type ErrorConfig map[string]ErrorDetails

// Lookup implements ErrorLookup.
func (c ErrorConfig) Lookup(code string) (ErrorDetails, bool) {
	details, ok := c[code]

	return details, ok
}

// ErrorLookup resolves an error code to its configured details. The
// arbitrator depends on this capability, not on the document shape.
type ErrorLookup interface {
	Lookup(code string) (ErrorDetails, bool)
}

const diffSchema = `{
	"type": "object",
	"additionalProperties": {"type": "string", "minLength": 1}
}`

const errorSchema = `{
	"type": "object",
	"additionalProperties": {
		"type": "object",
		"properties": {
			"priority": {"type": "integer"},
			"action": {"type": "string", "minLength": 1},
			"message": {"type": "string"},
			"method": {"type": "string"}
		},
		"required": ["priority", "action"]
	}
}`

// ParseDiffConfig validates and decodes a diff mapping document.
func ParseDiffConfig(doc []byte) (DiffConfig, error) {
	if err := validateDocument(doc, diffSchema); err != nil {
		return nil, fmt.Errorf("diff mapping document invalid: %w", err)
	}

	var cfg DiffConfig
	if err := json.Unmarshal(doc, &cfg); err != nil {
		return nil, fmt.Errorf("failed to decode diff mapping document: %w", err)
	}

	return cfg, nil
}

// ParseErrorConfig validates and decodes an error-code document.
func ParseErrorConfig(doc []byte) (ErrorConfig, error) {
	if err := validateDocument(doc, errorSchema); err != nil {
		return nil, fmt.Errorf("error-code document invalid: %w", err)
	}

	var cfg ErrorConfig
	if err := json.Unmarshal(doc, &cfg); err != nil {
		return nil, fmt.Errorf("failed to decode error-code document: %w", err)
	}

	return cfg, nil
}

func validateDocument(doc []byte, schema string) error {
	result, err := gojsonschema.Validate(
		gojsonschema.NewStringLoader(schema),
		gojsonschema.NewBytesLoader(doc),
	)
	if err != nil {
		return fmt.Errorf("schema validation failed: %w", err)
	}

	if !result.Valid() {
		errs := result.Errors()
		if len(errs) > 0 {
			return fmt.Errorf("document does not match schema: %s", errs[0])
		}

		return fmt.Errorf("document does not match schema")
	}

	return nil
}
