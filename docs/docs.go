// Package docs holds the OpenAPI description of the libris HTTP API, served
// by the router under /swagger. Keep it in step with the handler annotations.
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
        "/documents/{id}/ingest": {
            "post": {
                "security": [{"BearerAuth": []}],
                "description": "Upload a PDF and queue it to be rendered into page images",
                "consumes": ["multipart/form-data"],
                "produces": ["application/json"],
                "tags": ["ingestion"],
                "summary": "Queue a document for ingestion",
                "parameters": [
                    {"type": "string", "description": "Document ID (UUID)", "name": "id", "in": "path", "required": true},
                    {"type": "file", "description": "PDF file", "name": "file", "in": "formData", "required": true}
                ],
                "responses": {
                    "202": {
                        "description": "Ingestion queued",
                        "schema": {
                            "allOf": [
                                {"$ref": "#/definitions/handler.Response"},
                                {"type": "object", "properties": {"data": {"$ref": "#/definitions/domain.IngestionJob"}}}
                            ]
                        }
                    },
                    "400": {"description": "Invalid ID, missing file or unsupported type", "schema": {"$ref": "#/definitions/handler.ErrorResponseBody"}},
                    "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/handler.ErrorResponseBody"}},
                    "409": {"description": "Ingestion already in progress", "schema": {"$ref": "#/definitions/handler.ErrorResponseBody"}},
                    "413": {"description": "File too large", "schema": {"$ref": "#/definitions/handler.ErrorResponseBody"}},
                    "422": {"description": "Document could not be read", "schema": {"$ref": "#/definitions/handler.ErrorResponseBody"}},
                    "503": {"description": "Ingestion queue is full", "schema": {"$ref": "#/definitions/handler.ErrorResponseBody"}}
                }
            },
            "delete": {
                "security": [{"BearerAuth": []}],
                "description": "Stop a running ingestion at the next batch boundary, or drop a queued one",
                "produces": ["application/json"],
                "tags": ["ingestion"],
                "summary": "Cancel an ingestion",
                "parameters": [
                    {"type": "string", "description": "Document ID (UUID)", "name": "id", "in": "path", "required": true}
                ],
                "responses": {
                    "202": {
                        "description": "Cancellation requested",
                        "schema": {
                            "allOf": [
                                {"$ref": "#/definitions/handler.Response"},
                                {"type": "object", "properties": {"data": {"$ref": "#/definitions/handler.MessageData"}}}
                            ]
                        }
                    },
                    "400": {"description": "Invalid ID", "schema": {"$ref": "#/definitions/handler.ErrorResponseBody"}},
                    "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/handler.ErrorResponseBody"}},
                    "404": {"description": "No ingestion pending", "schema": {"$ref": "#/definitions/handler.ErrorResponseBody"}}
                }
            }
        },
        "/documents/{id}/ingest/progress": {
            "get": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["ingestion"],
                "summary": "Get ingestion progress",
                "parameters": [
                    {"type": "string", "description": "Document ID (UUID)", "name": "id", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {
                        "description": "Current progress",
                        "schema": {
                            "allOf": [
                                {"$ref": "#/definitions/handler.Response"},
                                {"type": "object", "properties": {"data": {"$ref": "#/definitions/domain.IngestionProgress"}}}
                            ]
                        }
                    },
                    "400": {"description": "Invalid ID", "schema": {"$ref": "#/definitions/handler.ErrorResponseBody"}},
                    "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/handler.ErrorResponseBody"}},
                    "404": {"description": "No ingestion known for document", "schema": {"$ref": "#/definitions/handler.ErrorResponseBody"}}
                }
            }
        },
        "/documents/{id}/ingest/reset": {
            "post": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["ingestion"],
                "summary": "Reset ingestion progress",
                "parameters": [
                    {"type": "string", "description": "Document ID (UUID)", "name": "id", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {
                        "description": "Progress reset",
                        "schema": {
                            "allOf": [
                                {"$ref": "#/definitions/handler.Response"},
                                {"type": "object", "properties": {"data": {"$ref": "#/definitions/handler.MessageData"}}}
                            ]
                        }
                    },
                    "400": {"description": "Invalid ID", "schema": {"$ref": "#/definitions/handler.ErrorResponseBody"}},
                    "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/handler.ErrorResponseBody"}},
                    "409": {"description": "Ingestion in progress", "schema": {"$ref": "#/definitions/handler.ErrorResponseBody"}}
                }
            }
        },
        "/documents/{id}/pages": {
            "get": {
                "security": [{"BearerAuth": []}],
                "description": "List the rendered pages of a document in page order",
                "produces": ["application/json"],
                "tags": ["pages"],
                "summary": "List page assets",
                "parameters": [
                    {"type": "string", "description": "Document ID (UUID)", "name": "id", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {
                        "description": "Page assets",
                        "schema": {
                            "allOf": [
                                {"$ref": "#/definitions/handler.Response"},
                                {"type": "object", "properties": {"data": {"type": "array", "items": {"$ref": "#/definitions/domain.PageAsset"}}}}
                            ]
                        }
                    },
                    "400": {"description": "Invalid ID", "schema": {"$ref": "#/definitions/handler.ErrorResponseBody"}},
                    "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/handler.ErrorResponseBody"}}
                }
            }
        },
        "/documents/{id}/pages/export": {
            "get": {
                "security": [{"BearerAuth": []}],
                "produces": ["text/csv", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"],
                "tags": ["pages"],
                "summary": "Export page manifest",
                "parameters": [
                    {"type": "string", "description": "Document ID (UUID)", "name": "id", "in": "path", "required": true},
                    {"enum": ["csv", "xlsx"], "type": "string", "default": "csv", "description": "Export format", "name": "format", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "Page manifest", "schema": {"type": "file"}},
                    "400": {"description": "Invalid ID or format", "schema": {"$ref": "#/definitions/handler.ErrorResponseBody"}},
                    "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/handler.ErrorResponseBody"}}
                }
            }
        }
    },
    "definitions": {
        "domain.IngestionJob": {
            "type": "object",
            "properties": {
                "document_id": {"type": "string"},
                "file_name": {"type": "string"},
                "page_count": {"type": "integer"},
                "progress": {"$ref": "#/definitions/domain.IngestionProgress"},
                "queued_at": {"type": "string"},
                "size_bytes": {"type": "integer"}
            }
        },
        "domain.IngestionProgress": {
            "type": "object",
            "properties": {
                "done": {"type": "integer"},
                "error": {"type": "string"},
                "status": {"type": "string", "enum": ["idle", "rendering", "uploading", "done", "error"]},
                "total": {"type": "integer"}
            }
        },
        "domain.PageAsset": {
            "type": "object",
            "properties": {
                "created_at": {"type": "string"},
                "document_id": {"type": "string"},
                "id": {"type": "string"},
                "image_url": {"type": "string"},
                "page_number": {"type": "integer"},
                "thumbnail_url": {"type": "string"}
            }
        },
        "handler.APIError": {
            "type": "object",
            "properties": {
                "code": {"type": "string"},
                "message": {"type": "string"}
            }
        },
        "handler.ErrorResponseBody": {
            "type": "object",
            "properties": {
                "error": {"$ref": "#/definitions/handler.APIError"},
                "success": {"type": "boolean", "example": false}
            }
        },
        "handler.MessageData": {
            "type": "object",
            "properties": {
                "message": {"type": "string", "example": "cancellation requested"}
            }
        },
        "handler.Response": {
            "type": "object",
            "properties": {
                "data": {},
                "success": {"type": "boolean", "example": true}
            }
        }
    },
    "securityDefinitions": {
        "BearerAuth": {
            "description": "Type \"Bearer\" followed by a space and the JWT.",
            "type": "apiKey",
            "name": "Authorization",
            "in": "header"
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it.
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/api/v1",
	Schemes:          []string{},
	Title:            "Libris API",
	Description:      "Renders uploaded PDF documents into page images and serves their manifests.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
