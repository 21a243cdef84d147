package transport

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"

	"github.com/nadzzz/agrisaarthi/internal/dispatch"
	"github.com/nadzzz/agrisaarthi/internal/message"
)

const advisorySchemaJSON = `{
	"type": "object",
	"required": ["crop"],
	"properties": {
		"crop":     {"type": "string", "minLength": 1},
		"city":     {"type": "string"},
		"question": {"type": "string"},
		"lang":     {"type": "string"}
	}
}`

// Binary fields travel as base64 strings in JSON payloads.
const farmerSchemaJSON = `{
	"type": "object",
	"properties": {
		"id":                 {"type": "string"},
		"text":               {"type": "string"},
		"city":               {"type": "string"},
		"lang":               {"type": "string"},
		"audio":              {"type": "string"},
		"audio_content_type": {"type": "string"},
		"image":              {"type": "string"},
		"image_content_type": {"type": "string"},
		"response_mode":      {"enum": ["", "text", "audio", "text+audio"]},
		"reply_to":           {"type": "string"}
	}
}`

var (
	advisorySchema = mustSchema(advisorySchemaJSON)
	farmerSchema   = mustSchema(farmerSchemaJSON)
)

func mustSchema(s string) *gojsonschema.Schema {
	schema, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(s))
	if err != nil {
		panic(fmt.Sprintf("compiling request schema: %v", err))
	}
	return schema
}

func validate(schema *gojsonschema.Schema, body []byte) error {
	result, err := schema.Validate(gojsonschema.NewBytesLoader(body))
	if err != nil {
		return fmt.Errorf("%w: invalid json: %v", dispatch.ErrInvalidRequest, err)
	}
	if !result.Valid() {
		errs := make([]string, len(result.Errors()))
		for i, desc := range result.Errors() {
			errs[i] = desc.String()
		}
		return fmt.Errorf("%w: %s", dispatch.ErrInvalidRequest, strings.Join(errs, "; "))
	}
	return nil
}

// DecodeAdvisory validates and decodes an advisory request body.
// Failures wrap dispatch.ErrInvalidRequest.
func DecodeAdvisory(body []byte) (message.AdvisoryRequest, error) {
	var req message.AdvisoryRequest
	if err := validate(advisorySchema, body); err != nil {
		return req, err
	}
	if err := json.Unmarshal(body, &req); err != nil {
		return req, fmt.Errorf("%w: %v", dispatch.ErrInvalidRequest, err)
	}
	return req, nil
}

// DecodeFarmerRequest validates and decodes a JSON farmer request into v,
// which must embed or be a message.Request. Failures wrap
// dispatch.ErrInvalidRequest.
func DecodeFarmerRequest(body []byte, v any) error {
	if err := validate(farmerSchema, body); err != nil {
		return err
	}
	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("%w: %v", dispatch.ErrInvalidRequest, err)
	}
	return nil
}
