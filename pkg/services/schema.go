package services

import (
	"fmt"
	"strings"

	"github.com/dukex/opsflow/pkg/models"
	"github.com/xeipuuv/gojsonschema"
)

// nodeDataSchema constrains the free-form data bag of a node.
var nodeDataSchema = gojsonschema.NewStringLoader(`{
	"type": "object",
	"required": ["position"],
	"properties": {
		"position": {
			"type": "object",
			"required": ["x", "y"],
			"properties": {
				"x": {"type": "number"},
				"y": {"type": "number"}
			}
		},
		"properties": {
			"type": "object",
			"propertyNames": {"minLength": 1, "maxLength": 64},
			"additionalProperties": {"type": "string", "maxLength": 1024}
		},
		"attributes": {"type": "object"}
	}
}`)

// validateNodeData checks a node data bag against nodeDataSchema.
func validateNodeData(op string, data models.NodeData) error {
	result, err := gojsonschema.Validate(nodeDataSchema, gojsonschema.NewGoLoader(data))
	if err != nil {
		return invalid(op, ErrInvalidNodeData, err)
	}

	if !result.Valid() {
		var problems []string
		for _, desc := range result.Errors() {
			problems = append(problems, desc.String())
		}

		return NewValidationError(op, "INVALID_NODE_DATA",
			fmt.Sprintf("node data failed schema validation: %s", strings.Join(problems, "; ")),
			ErrInvalidNodeData)
	}

	return nil
}
