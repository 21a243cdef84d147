// Package docs registers the OpenAPI document served at /swagger/doc.json.
// Regenerate with `swag init -g cmd/agrisaarthi/main.go` after changing
// handler annotations.
package docs

import "github.com/swaggo/swag"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "contact": {},
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "paths": {
        "/advisory/": {
            "post": {
                "description": "Rule-based advice for a crop under the current weather, plus a climate tip.\nWhen \"question\" is set the advisor also answers it in the farmer's language.",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["advisory"],
                "summary": "Crop advisory",
                "parameters": [
                    {
                        "description": "Crop, city and optional question",
                        "name": "request",
                        "in": "body",
                        "required": true,
                        "schema": {"$ref": "#/definitions/message.AdvisoryRequest"}
                    }
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/message.AdvisoryResult"}},
                    "400": {"description": "Missing crop or malformed body", "schema": {"$ref": "#/definitions/message.ErrorResponse"}},
                    "500": {"description": "Weather fetch failed", "schema": {"$ref": "#/definitions/message.ErrorResponse"}}
                }
            }
        },
        "/farmer-agent": {
            "post": {
                "description": "Accepts any combination of typed text, a voice note and a crop photo. Speech is transcribed,\nthe photo is diagnosed and the current weather is fetched; the advisor then answers in the\nfarmer's language. Extractor failures are listed under \"degraded\" instead of failing the request.\nA JSON body with base64 \"audio\" and \"image\" fields is accepted as well.",
                "consumes": ["multipart/form-data", "application/json"],
                "produces": ["application/json"],
                "tags": ["advisory"],
                "summary": "Ask the farmer agent",
                "parameters": [
                    {"type": "string", "description": "Typed question", "name": "text", "in": "formData"},
                    {"type": "string", "description": "City for the weather lookup (default Coimbatore)", "name": "city", "in": "formData"},
                    {"type": "string", "description": "Response language: ta, hi, te or ml", "name": "lang", "in": "formData"},
                    {"type": "string", "description": "text, audio or text+audio", "name": "response_mode", "in": "formData"},
                    {"type": "file", "description": "Voice note", "name": "audio", "in": "formData"},
                    {"type": "file", "description": "Crop photo", "name": "image", "in": "formData"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/message.AgentResult"}},
                    "400": {"description": "No input or malformed request", "schema": {"$ref": "#/definitions/message.ErrorResponse"}},
                    "500": {"description": "Internal processing error", "schema": {"$ref": "#/definitions/message.ErrorResponse"}}
                }
            }
        },
        "/weather/": {
            "get": {
                "description": "Returns temperature (°C), humidity (%) and condition for a city. Unavailable values are \"NA\".",
                "produces": ["application/json"],
                "tags": ["weather"],
                "summary": "Current weather",
                "parameters": [
                    {"type": "string", "description": "City name (default Coimbatore)", "name": "city", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/weather.Snapshot"}}
                }
            }
        }
    },
    "definitions": {
        "message.AdvisoryError": {
            "type": "object",
            "properties": {
                "backend": {"type": "string"},
                "kind": {"type": "string"},
                "message": {"type": "string"},
                "status": {"type": "integer"}
            }
        },
        "message.AdvisoryRequest": {
            "type": "object",
            "properties": {
                "city": {"type": "string"},
                "crop": {"type": "string"},
                "lang": {"type": "string"},
                "question": {"type": "string", "description": "Question, when set, also gets an LLM answer."}
            }
        },
        "message.AdvisoryResult": {
            "type": "object",
            "properties": {
                "advisory": {"type": "string"},
                "advisory_error": {"$ref": "#/definitions/message.AdvisoryError"},
                "advisory_status": {"type": "string"},
                "ai_response": {"type": "string", "description": "Populated only when a question was asked."},
                "backend": {"type": "string"},
                "city": {"type": "string"},
                "climate_tip": {"type": "string"},
                "crop": {"type": "string"},
                "language": {"type": "string"},
                "weather": {"$ref": "#/definitions/weather.Snapshot"}
            }
        },
        "message.AgentResult": {
            "type": "object",
            "properties": {
                "advisory_error": {"$ref": "#/definitions/message.AdvisoryError"},
                "advisory_status": {"type": "string"},
                "ai_response": {"type": "string", "description": "AIResponse is the advisory text. Empty when generation failed or\nwhen only audio was requested."},
                "backend": {"type": "string", "description": "Backend is the advisor that served the request (\"openai\" or \"local\")."},
                "city": {"type": "string"},
                "degraded": {"type": "array", "items": {"$ref": "#/definitions/message.Degradation"}},
                "input_used": {"$ref": "#/definitions/message.InputUsed"},
                "language": {"type": "string", "description": "Language is the resolved response language."},
                "request_id": {"type": "string"},
                "response_audio": {"type": "string", "description": "ResponseAudio is the TTS-synthesized advisory as a base64-encoded string."},
                "response_content_type": {"type": "string"},
                "weather": {"$ref": "#/definitions/weather.Snapshot"}
            }
        },
        "message.Degradation": {
            "type": "object",
            "properties": {
                "error": {"type": "string"},
                "stage": {"type": "string"}
            }
        },
        "message.ErrorResponse": {
            "type": "object",
            "properties": {
                "error": {"type": "string"}
            }
        },
        "message.InputUsed": {
            "type": "object",
            "properties": {
                "audio_text": {"type": "string"},
                "image_description": {"type": "string"},
                "text": {"type": "string"}
            }
        },
        "weather.Snapshot": {
            "type": "object",
            "properties": {
                "condition": {"type": "string"},
                "humidity": {"description": "percent, or \"NA\""},
                "temp": {"description": "°C, or \"NA\""}
            }
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it.
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/",
	Schemes:          []string{},
	Title:            "AgriSaarthi API",
	Description:      "Multilingual farmer advisory: text, voice and crop photos in, weather-aware advice out.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
