// Package docs holds the Swagger document served at /swagger/index.html.
// Regenerate with `swag init -g cmd/server/main.go` after changing handler annotations.
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
        "/upload-pdf": {
            "post": {
                "description": "Validates a PDF lab report, extracts its text and returns a structured interpretation",
                "consumes": ["multipart/form-data"],
                "produces": ["application/json"],
                "tags": ["analysis"],
                "summary": "Interpret a lab report",
                "parameters": [
                    {"type": "file", "description": "PDF lab report", "name": "file", "in": "formData", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/handler.UploadResponse"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/handler.ErrorResponse"}},
                    "413": {"description": "Request Entity Too Large", "schema": {"$ref": "#/definitions/handler.ErrorResponse"}},
                    "422": {"description": "Unprocessable Entity", "schema": {"$ref": "#/definitions/handler.ErrorResponse"}},
                    "429": {"description": "Too Many Requests", "schema": {"$ref": "#/definitions/handler.ErrorResponse"}},
                    "500": {"description": "Internal Server Error", "schema": {"$ref": "#/definitions/handler.ErrorResponse"}},
                    "502": {"description": "Bad Gateway", "schema": {"$ref": "#/definitions/handler.ErrorResponse"}},
                    "503": {"description": "Service Unavailable", "schema": {"$ref": "#/definitions/handler.ErrorResponse"}},
                    "504": {"description": "Gateway Timeout", "schema": {"$ref": "#/definitions/handler.ErrorResponse"}}
                }
            }
        },
        "/api/v1/analyses": {
            "get": {
                "produces": ["application/json"],
                "tags": ["archive"],
                "summary": "List archived analyses",
                "parameters": [
                    {"type": "integer", "default": 0, "description": "Pagination offset", "name": "offset", "in": "query"},
                    {"type": "integer", "default": 20, "description": "Pagination limit", "name": "limit", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/handler.APIResponse"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/handler.ErrorResponse"}}
                }
            }
        },
        "/api/v1/analyses/export": {
            "get": {
                "produces": ["application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", "text/csv"],
                "tags": ["archive"],
                "summary": "Export archived analyses",
                "parameters": [
                    {"enum": ["xlsx", "csv"], "type": "string", "default": "xlsx", "description": "Export format", "name": "format", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "file"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/handler.ErrorResponse"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/handler.ErrorResponse"}}
                }
            }
        },
        "/api/v1/analyses/{id}": {
            "get": {
                "produces": ["application/json"],
                "tags": ["archive"],
                "summary": "Get an archived analysis",
                "parameters": [
                    {"type": "string", "description": "Analysis UUID", "name": "id", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/handler.APIResponse"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/handler.ErrorResponse"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/handler.ErrorResponse"}}
                }
            }
        }
    },
    "definitions": {
        "domain.AnalysisResult": {
            "type": "object",
            "properties": {
                "isValid": {"type": "boolean"},
                "errorMessage": {"type": "string"},
                "interpretacionConceptos": {"type": "string"},
                "resultadosSimplificados": {"type": "string"},
                "resumenEjecutivo": {"type": "string"}
            }
        },
        "domain.TokenUsage": {
            "type": "object",
            "properties": {
                "input": {"type": "integer"},
                "output": {"type": "integer"},
                "total": {"type": "integer"}
            }
        },
        "handler.UploadResponse": {
            "type": "object",
            "properties": {
                "message": {"type": "string"},
                "analysis_id": {"type": "string"},
                "filename": {"type": "string"},
                "pages": {"type": "integer"},
                "processing_time": {"type": "number"},
                "analysis_result": {"$ref": "#/definitions/domain.AnalysisResult"},
                "model": {"type": "string"},
                "tokens": {"$ref": "#/definitions/domain.TokenUsage"}
            }
        },
        "handler.ErrorResponse": {
            "type": "object",
            "properties": {
                "detail": {"type": "string"},
                "code": {"type": "string"}
            }
        },
        "handler.PagMeta": {
            "type": "object",
            "properties": {
                "total": {"type": "integer"},
                "offset": {"type": "integer"},
                "limit": {"type": "integer"}
            }
        },
        "handler.APIResponse": {
            "type": "object",
            "properties": {
                "success": {"type": "boolean"},
                "data": {},
                "meta": {"$ref": "#/definitions/handler.PagMeta"}
            }
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/",
	Schemes:          []string{},
	Title:            "Lab Insight API",
	Description:      "Lab report PDF interpretation service.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
