package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "SMA Timetable API",
        "description": "Generates fixed timetables and timetable plans from term lesson requirements.",
        "version": "1.0.0"
    },
    "basePath": "/api/v1",
    "schemes": [
        "http"
    ],
    "securityDefinitions": {
        "BearerAuth": {"type": "apiKey", "name": "Authorization", "in": "header"}
    },
    "tags": [
        {"name": "Timetable", "description": "Generation, coverage and export of fixed timetables and plans"},
        {"name": "Observability", "description": "Health and metrics"}
    ],
    "paths": {
        "/health": {
            "get": {
                "tags": ["Observability"],
                "summary": "Health check",
                "responses": {
                    "200": {"description": "OK"}
                }
            }
        },
        "/ready": {
            "get": {
                "tags": ["Observability"],
                "summary": "Readiness check",
                "responses": {
                    "200": {"description": "Ready"},
                    "503": {"description": "Database unreachable"}
                }
            }
        },
        "/terms/{termId}/fixed-timetable/generate": {
            "post": {
                "tags": ["Timetable"],
                "summary": "Generate fixed timetable",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "termId", "in": "path", "required": true, "type": "string"},
                    {"name": "async", "in": "query", "type": "boolean"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/GenerationEnvelope"}},
                    "202": {"description": "Queued", "schema": {"$ref": "#/definitions/GenerationJobEnvelope"}},
                    "404": {"description": "Term not found", "schema": {"$ref": "#/definitions/OutcomeEnvelope"}},
                    "409": {"description": "Generation already in progress", "schema": {"$ref": "#/definitions/OutcomeEnvelope"}},
                    "412": {"description": "Requirements or weekly rules missing", "schema": {"$ref": "#/definitions/OutcomeEnvelope"}},
                    "500": {"description": "Generation failed", "schema": {"$ref": "#/definitions/OutcomeEnvelope"}}
                }
            }
        },
        "/terms/{termId}/timetables/{planId}/generate": {
            "post": {
                "tags": ["Timetable"],
                "summary": "Generate timetable plan",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "termId", "in": "path", "required": true, "type": "string"},
                    {"name": "planId", "in": "path", "required": true, "type": "string"},
                    {"name": "async", "in": "query", "type": "boolean"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/GenerationEnvelope"}},
                    "202": {"description": "Queued", "schema": {"$ref": "#/definitions/GenerationJobEnvelope"}},
                    "404": {"description": "Term or plan not found", "schema": {"$ref": "#/definitions/OutcomeEnvelope"}},
                    "409": {"description": "Generation already in progress", "schema": {"$ref": "#/definitions/OutcomeEnvelope"}},
                    "412": {"description": "Requirements or weekly rules missing", "schema": {"$ref": "#/definitions/OutcomeEnvelope"}},
                    "500": {"description": "Generation failed", "schema": {"$ref": "#/definitions/OutcomeEnvelope"}}
                }
            }
        },
        "/terms/{termId}/timetables/{planId}/reset": {
            "post": {
                "tags": ["Timetable"],
                "summary": "Reset plan from fixed timetable",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "termId", "in": "path", "required": true, "type": "string"},
                    {"name": "planId", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/GenerationEnvelope"}},
                    "404": {"description": "Term or plan not found", "schema": {"$ref": "#/definitions/OutcomeEnvelope"}},
                    "412": {"description": "Weekly rules missing", "schema": {"$ref": "#/definitions/OutcomeEnvelope"}}
                }
            }
        },
        "/generation-jobs/{jobId}": {
            "get": {
                "tags": ["Timetable"],
                "summary": "Get generation job",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "jobId", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/GenerationJobEnvelope"}},
                    "404": {"description": "Job not found", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/terms/{termId}/fixed-timetable/coverage": {
            "get": {
                "tags": ["Timetable"],
                "summary": "Fixed timetable coverage",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "termId", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/CoverageEnvelope"}},
                    "404": {"description": "Term not found", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/terms/{termId}/timetables/{planId}/coverage": {
            "get": {
                "tags": ["Timetable"],
                "summary": "Timetable plan coverage",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "termId", "in": "path", "required": true, "type": "string"},
                    {"name": "planId", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/CoverageEnvelope"}},
                    "404": {"description": "Plan not found", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/terms/{termId}/fixed-timetable/export": {
            "get": {
                "tags": ["Timetable"],
                "summary": "Export fixed timetable",
                "security": [{"BearerAuth": []}],
                "produces": ["text/csv", "application/pdf", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"],
                "parameters": [
                    {"name": "termId", "in": "path", "required": true, "type": "string"},
                    {"name": "format", "in": "query", "type": "string", "enum": ["csv", "pdf", "xlsx"]}
                ],
                "responses": {
                    "200": {"description": "File", "schema": {"type": "file"}},
                    "400": {"description": "Unsupported format", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/terms/{termId}/timetables/{planId}/export": {
            "get": {
                "tags": ["Timetable"],
                "summary": "Export timetable plan",
                "security": [{"BearerAuth": []}],
                "produces": ["text/csv", "application/pdf", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"],
                "parameters": [
                    {"name": "termId", "in": "path", "required": true, "type": "string"},
                    {"name": "planId", "in": "path", "required": true, "type": "string"},
                    {"name": "format", "in": "query", "type": "string", "enum": ["csv", "pdf", "xlsx"]}
                ],
                "responses": {
                    "200": {"description": "File", "schema": {"type": "file"}},
                    "404": {"description": "Plan not found", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        }
    },
    "definitions": {
        "APIError": {
            "type": "object",
            "properties": {
                "code": {"type": "string"},
                "message": {"type": "string"},
                "status": {"type": "integer"}
            }
        },
        "GenerationOutcome": {
            "type": "object",
            "properties": {
                "success": {"type": "boolean"},
                "message": {"type": "string"}
            }
        },
        "GenerationResult": {
            "type": "object",
            "properties": {
                "success": {"type": "boolean"},
                "message": {"type": "string"},
                "termId": {"type": "string"},
                "planId": {"type": "string"},
                "target": {"type": "string", "enum": ["FIXED_TIMETABLE", "PLAN"]},
                "policy": {"type": "string", "enum": ["PROPORTIONAL", "EQUAL_SPLIT"]},
                "slotsCreated": {"type": "integer"},
                "emptySlots": {"type": "integer"},
                "weekdays": {"type": "array", "items": {"type": "object"}},
                "subjects": {"type": "array", "items": {"type": "object"}},
                "generatedAt": {"type": "string", "format": "date-time"}
            }
        },
        "GenerationJob": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "termId": {"type": "string"},
                "planId": {"type": "string"},
                "target": {"type": "string"},
                "status": {"type": "string", "enum": ["QUEUED", "RUNNING", "SUCCEEDED", "FAILED"]},
                "outcome": {"$ref": "#/definitions/GenerationOutcome"},
                "result": {"$ref": "#/definitions/GenerationResult"},
                "enqueuedAt": {"type": "string", "format": "date-time"},
                "finishedAt": {"type": "string", "format": "date-time"}
            }
        },
        "SubjectCoverage": {
            "type": "object",
            "properties": {
                "subjectId": {"type": "string"},
                "subjectName": {"type": "string"},
                "required": {"type": "integer"},
                "delivered": {"type": "integer"},
                "difference": {"type": "integer"},
                "status": {"type": "string", "enum": ["MET", "UNDER", "OVER"]}
            }
        },
        "CoverageReport": {
            "type": "object",
            "properties": {
                "termId": {"type": "string"},
                "planId": {"type": "string"},
                "target": {"type": "string"},
                "occurrences": {"type": "object", "additionalProperties": {"type": "integer"}},
                "subjects": {"type": "array", "items": {"$ref": "#/definitions/SubjectCoverage"}},
                "totalRequired": {"type": "integer"},
                "totalDelivered": {"type": "integer"},
                "generatedAt": {"type": "string", "format": "date-time"}
            }
        },
        "GenerationEnvelope": {
            "type": "object",
            "properties": {
                "data": {"$ref": "#/definitions/GenerationResult"},
                "error": {"$ref": "#/definitions/APIError"}
            }
        },
        "OutcomeEnvelope": {
            "type": "object",
            "properties": {
                "data": {"$ref": "#/definitions/GenerationOutcome"},
                "error": {"$ref": "#/definitions/APIError"}
            }
        },
        "GenerationJobEnvelope": {
            "type": "object",
            "properties": {
                "data": {"$ref": "#/definitions/GenerationJob"},
                "error": {"$ref": "#/definitions/APIError"}
            }
        },
        "CoverageEnvelope": {
            "type": "object",
            "properties": {
                "data": {"$ref": "#/definitions/CoverageReport"},
                "error": {"$ref": "#/definitions/APIError"}
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
