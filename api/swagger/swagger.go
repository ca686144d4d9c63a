package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "Study Planner API",
        "description": "Deadline-aware study schedule generation",
        "version": "0.1.0"
    },
    "basePath": "/",
    "schemes": [
        "http"
    ],
    "securityDefinitions": {
        "BearerAuth": {"type": "apiKey", "name": "Authorization", "in": "header"}
    },
    "tags": [
        {"name": "StudySchedule", "description": "Schedule generation, repair and export"},
        {"name": "System", "description": "Health and metrics"}
    ],
    "paths": {
        "/health": {
            "get": {
                "tags": ["System"],
                "summary": "Liveness check",
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/ready": {
            "get": {
                "tags": ["System"],
                "summary": "Readiness check against postgres and redis",
                "responses": {
                    "200": {"description": "Ready"},
                    "503": {"description": "A dependency is unavailable"}
                }
            }
        },
        "/metrics": {
            "get": {
                "tags": ["System"],
                "summary": "Prometheus metrics",
                "produces": ["text/plain"],
                "responses": {"200": {"description": "Metrics in text exposition format"}}
            }
        },
        "/api/v1/metrics/summary": {
            "get": {
                "tags": ["System"],
                "summary": "Planner counters snapshot (admin)",
                "security": [{"BearerAuth": []}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "403": {"description": "Forbidden", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/api/v1/study-schedule/generate": {
            "post": {
                "tags": ["StudySchedule"],
                "summary": "Generate a study schedule",
                "security": [{"BearerAuth": []}],
                "consumes": ["application/json"],
                "parameters": [
                    {"in": "body", "name": "payload", "required": true, "schema": {"$ref": "#/definitions/GenerateStudyScheduleRequest"}},
                    {"in": "query", "name": "studentId", "type": "string", "description": "Student acted on (admins only)"}
                ],
                "responses": {
                    "200": {"description": "Generated", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "201": {"description": "Generated and persisted", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Validation error", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/api/v1/study-schedule/validate": {
            "post": {
                "tags": ["StudySchedule"],
                "summary": "Repair a candidate study schedule",
                "security": [{"BearerAuth": []}],
                "consumes": ["application/json"],
                "parameters": [
                    {"in": "body", "name": "payload", "required": true, "schema": {"$ref": "#/definitions/ValidateStudyScheduleRequest"}}
                ],
                "responses": {
                    "200": {"description": "Repaired schedule", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Validation error", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/api/v1/study-schedule": {
            "get": {
                "tags": ["StudySchedule"],
                "summary": "List persisted study sessions grouped by week",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"in": "query", "name": "from", "type": "string", "format": "date"},
                    {"in": "query", "name": "to", "type": "string", "format": "date"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/api/v1/study-schedule/export": {
            "get": {
                "tags": ["StudySchedule"],
                "summary": "Download persisted study sessions",
                "security": [{"BearerAuth": []}],
                "produces": ["text/csv", "application/pdf"],
                "parameters": [
                    {"in": "query", "name": "from", "type": "string", "format": "date"},
                    {"in": "query", "name": "to", "type": "string", "format": "date"},
                    {"in": "query", "name": "format", "type": "string", "enum": ["csv", "pdf"]}
                ],
                "responses": {
                    "200": {"description": "File download", "schema": {"type": "file"}},
                    "400": {"description": "Unsupported format", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        }
    },
    "definitions": {
        "Deadline": {
            "type": "object",
            "required": ["id", "title", "dueDate"],
            "properties": {
                "id": {"type": "string"},
                "title": {"type": "string"},
                "dueDate": {"type": "string", "format": "date"},
                "requiredHours": {"type": "number"},
                "notes": {"type": "string"},
                "kind": {"type": "string", "enum": ["flexible", "fixed"]},
                "examStart": {"type": "string", "example": "08:00"},
                "examEnd": {"type": "string", "example": "10:00"}
            }
        },
        "TimetableEntry": {
            "type": "object",
            "required": ["day", "start", "end", "label"],
            "properties": {
                "day": {"type": "string", "example": "MONDAY"},
                "start": {"type": "string", "example": "07:30"},
                "end": {"type": "string", "example": "09:30"},
                "label": {"type": "string"}
            }
        },
        "SessionBlock": {
            "type": "object",
            "properties": {
                "date": {"type": "string", "format": "date"},
                "start": {"type": "string", "example": "19:00"},
                "end": {"type": "string", "example": "21:00"},
                "category": {"type": "string", "enum": ["study", "meal", "sleep", "break", "class"]},
                "deadlineId": {"type": "string"},
                "label": {"type": "string"},
                "locked": {"type": "boolean"}
            }
        },
        "WeekPlan": {
            "type": "object",
            "properties": {
                "week": {"type": "integer"},
                "startDate": {"type": "string", "format": "date"},
                "endDate": {"type": "string", "format": "date"},
                "days": {
                    "type": "object",
                    "additionalProperties": {"type": "array", "items": {"$ref": "#/definitions/SessionBlock"}}
                }
            }
        },
        "GenerateStudyScheduleRequest": {
            "type": "object",
            "properties": {
                "mode": {"type": "string", "enum": ["relaxed", "normal", "sprint"]},
                "horizonWeeks": {"type": "integer"},
                "horizonStart": {"type": "string", "format": "date"},
                "deadlines": {"type": "array", "items": {"$ref": "#/definitions/Deadline"}},
                "timetable": {"type": "array", "items": {"$ref": "#/definitions/TimetableEntry"}},
                "lifestyle": {
                    "type": "object",
                    "properties": {
                        "sleepHours": {"type": "number"},
                        "lunchMinutes": {"type": "integer"},
                        "dinnerMinutes": {"type": "integer"}
                    }
                },
                "hardLimits": {
                    "type": "object",
                    "properties": {
                        "noStudyAfter23": {"type": "boolean"},
                        "noStudyOnSunday": {"type": "boolean"}
                    }
                },
                "dailyCapHours": {"type": "number"},
                "minSessionMinutes": {"type": "integer"},
                "maxSessionMinutes": {"type": "integer"},
                "useProposer": {"type": "boolean"},
                "persist": {"type": "boolean"}
            }
        },
        "ValidateStudyScheduleRequest": {
            "type": "object",
            "required": ["weeks"],
            "properties": {
                "weeks": {"type": "array", "items": {"$ref": "#/definitions/WeekPlan"}},
                "deadlines": {"type": "array", "items": {"$ref": "#/definitions/Deadline"}},
                "horizonStart": {"type": "string", "format": "date"},
                "mode": {"type": "string", "enum": ["relaxed", "normal", "sprint"]}
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
