package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "Pointage API",
        "description": "Multi-establishment attendance reconciliation and tracking",
        "version": "1.0.0"
    },
    "basePath": "/api/v1",
    "schemes": [
        "http"
    ],
    "tags": [
        {"name": "Tracker", "description": "On-demand attendance recomputation"},
        {"name": "Absences", "description": "Materialized attendance ledger"},
        {"name": "QR", "description": "QR fallback scan channel"}
    ],
    "paths": {
        "/tracker/students/{matricule}": {
            "get": {
                "tags": ["Tracker"],
                "summary": "Live attendance for one student",
                "parameters": [
                    {"name": "X-Tenant-ID", "in": "header", "type": "string", "required": true},
                    {"name": "matricule", "in": "path", "type": "string", "required": true},
                    {"name": "from", "in": "query", "type": "string", "format": "date"},
                    {"name": "to", "in": "query", "type": "string", "format": "date"},
                    {"name": "status", "in": "query", "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/tracker/export": {
            "get": {
                "tags": ["Tracker"],
                "summary": "Export a student's attendance as CSV or PDF",
                "parameters": [
                    {"name": "X-Tenant-ID", "in": "header", "type": "string", "required": true},
                    {"name": "matricule", "in": "query", "type": "string", "required": true},
                    {"name": "from", "in": "query", "type": "string", "format": "date"},
                    {"name": "to", "in": "query", "type": "string", "format": "date"},
                    {"name": "format", "in": "query", "type": "string", "enum": ["csv", "pdf"]}
                ],
                "responses": {
                    "200": {"description": "File attachment"}
                }
            }
        },
        "/absences": {
            "get": {
                "tags": ["Absences"],
                "summary": "List materialized attendance records",
                "parameters": [
                    {"name": "X-Tenant-ID", "in": "header", "type": "string", "required": true},
                    {"name": "matricule", "in": "query", "type": "string"},
                    {"name": "type", "in": "query", "type": "string", "enum": ["course", "exam", "makeup"]},
                    {"name": "dateFrom", "in": "query", "type": "string", "format": "date"},
                    {"name": "dateTo", "in": "query", "type": "string", "format": "date"},
                    {"name": "justified", "in": "query", "type": "boolean"},
                    {"name": "page", "in": "query", "type": "integer"},
                    {"name": "limit", "in": "query", "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/absences/summary": {
            "get": {
                "tags": ["Absences"],
                "summary": "Aggregate counts per status for one student",
                "parameters": [
                    {"name": "X-Tenant-ID", "in": "header", "type": "string", "required": true},
                    {"name": "matricule", "in": "query", "type": "string", "required": true},
                    {"name": "dateFrom", "in": "query", "type": "string", "format": "date"},
                    {"name": "dateTo", "in": "query", "type": "string", "format": "date"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/absences/{id}/justification": {
            "patch": {
                "tags": ["Absences"],
                "summary": "Attach or clear a justification on a record",
                "parameters": [
                    {"name": "X-Tenant-ID", "in": "header", "type": "string", "required": true},
                    {"name": "id", "in": "path", "type": "string", "required": true},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/JustifyRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Record not found"}
                }
            }
        },
        "/qr/sessions": {
            "post": {
                "tags": ["QR"],
                "summary": "Open a QR scan window for a session",
                "parameters": [
                    {"name": "X-Tenant-ID", "in": "header", "type": "string", "required": true},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/IssueRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/qr/scan": {
            "post": {
                "tags": ["QR"],
                "summary": "Record a student scan",
                "parameters": [
                    {"name": "X-Tenant-ID", "in": "header", "type": "string", "required": true},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/ScanRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Duplicate scan"},
                    "410": {"description": "Window expired"}
                }
            }
        }
    },
    "definitions": {
        "IssueRequest": {
            "type": "object",
            "properties": {
                "session_id": {"type": "string"}
            },
            "required": ["session_id"]
        },
        "ScanRequest": {
            "type": "object",
            "properties": {
                "token": {"type": "string"},
                "matricule": {"type": "string"}
            },
            "required": ["token", "matricule"]
        },
        "JustifyRequest": {
            "type": "object",
            "properties": {
                "justified": {"type": "boolean"},
                "motif": {"type": "string"},
                "justificatif": {"type": "string"}
            },
            "required": ["justified"]
        },
        "Pagination": {
            "type": "object",
            "properties": {
                "page": {"type": "integer"},
                "page_size": {"type": "integer"},
                "total_count": {"type": "integer"}
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
                "pagination": {"$ref": "#/definitions/Pagination"},
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
