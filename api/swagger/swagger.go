package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "Tutoring Payments API",
        "description": "Overdue payments, subscription renewals and account balances for tutoring schools.",
        "version": "1.0.0"
    },
    "basePath": "/",
    "schemes": ["http", "https"],
    "securityDefinitions": {
        "BearerAuth": {"type": "apiKey", "name": "Authorization", "in": "header"}
    },
    "tags": [
        {"name": "Payments", "description": "Read-only payment views of a school"},
        {"name": "Exports", "description": "CSV/PDF report exports with signed downloads"},
        {"name": "Reminders", "description": "Overdue payment reminders written to the outbox"},
        {"name": "Ops", "description": "Health, readiness and metrics"}
    ],
    "paths": {
        "/health": {
            "get": {"tags": ["Ops"], "summary": "Liveness probe", "responses": {"200": {"description": "OK"}}}
        },
        "/ready": {
            "get": {
                "tags": ["Ops"],
                "summary": "Readiness probe pinging Postgres, MongoDB and Redis",
                "responses": {"200": {"description": "Ready"}, "503": {"description": "A backing store is down"}}
            }
        },
        "/metrics": {
            "get": {"tags": ["Ops"], "summary": "Prometheus metrics", "produces": ["text/plain"], "responses": {"200": {"description": "OK"}}}
        },
        "/api/v1/metrics/summary": {
            "get": {
                "tags": ["Ops"],
                "summary": "Aggregated metrics snapshot (superadmin)",
                "security": [{"BearerAuth": []}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        },
        "/api/v1/schools/{schoolId}/overdue-payments": {
            "get": {
                "tags": ["Payments"],
                "summary": "Overdue payments ranked by priority",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "schoolId", "in": "path", "required": true, "type": "string"},
                    {"name": "priority", "in": "query", "required": false, "type": "string", "description": "Comma separated: urgent,high,normal"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "403": {"description": "School outside session", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "502": {"description": "Student store unavailable", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/api/v1/schools/{schoolId}/subscription-renewals": {
            "get": {
                "tags": ["Payments"],
                "summary": "Subscriptions that expired or expire within the renewal window",
                "security": [{"BearerAuth": []}],
                "parameters": [{"name": "schoolId", "in": "path", "required": true, "type": "string"}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        },
        "/api/v1/schools/{schoolId}/account-balances": {
            "get": {
                "tags": ["Payments"],
                "summary": "Account balances replayed from transactions",
                "security": [{"BearerAuth": []}],
                "parameters": [{"name": "schoolId", "in": "path", "required": true, "type": "string"}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        },
        "/api/v1/schools/{schoolId}/exports": {
            "post": {
                "tags": ["Exports"],
                "summary": "Export a payment report",
                "security": [{"BearerAuth": []}],
                "consumes": ["application/json"],
                "parameters": [
                    {"name": "schoolId", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/ExportRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Invalid request", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/api/v1/exports/download": {
            "get": {
                "tags": ["Exports"],
                "summary": "Download an export via its signed token",
                "produces": ["text/csv", "application/pdf"],
                "parameters": [{"name": "token", "in": "query", "required": true, "type": "string"}],
                "responses": {
                    "200": {"description": "File"},
                    "403": {"description": "Invalid token"},
                    "410": {"description": "Link expired"}
                }
            }
        },
        "/api/v1/schools/{schoolId}/reminders": {
            "post": {
                "tags": ["Reminders"],
                "summary": "Queue reminders for overdue students",
                "security": [{"BearerAuth": []}],
                "consumes": ["application/json"],
                "parameters": [
                    {"name": "schoolId", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/ReminderRequest"}}
                ],
                "responses": {
                    "202": {"description": "Accepted", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "503": {"description": "Reminders disabled", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        }
    },
    "definitions": {
        "ExportRequest": {
            "type": "object",
            "required": ["report", "format"],
            "properties": {
                "report": {"type": "string", "enum": ["overdue", "renewals", "balances"]},
                "format": {"type": "string", "enum": ["csv", "pdf"]}
            }
        },
        "ReminderRequest": {
            "type": "object",
            "required": ["channel"],
            "properties": {
                "channel": {"type": "string", "enum": ["sms", "email", "whatsapp"]},
                "priorities": {"type": "array", "items": {"type": "string", "enum": ["urgent", "high", "normal"]}},
                "templateKey": {"type": "string"}
            }
        },
        "APIError": {
            "type": "object",
            "properties": {
                "code": {"type": "string"},
                "message": {"type": "string"},
                "status": {"type": "integer"}
            }
        },
        "ResponseEnvelope": {
            "type": "object",
            "properties": {
                "data": {"type": "object"},
                "error": {"$ref": "#/definitions/APIError"},
                "meta": {"type": "object"}
            }
        }
    }
}`

type swaggerDoc struct{}

// ReadDoc returns the Swagger document.
func (s *swaggerDoc) ReadDoc() string {
	return docTemplate
}

func init() {
	swag.Register(swag.Name, &swaggerDoc{})
}
