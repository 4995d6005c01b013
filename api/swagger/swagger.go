package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "Timetable Engine API",
        "description": "Timetable generation, conflict detection and versioned persistence.",
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
        {"name": "Timetables", "description": "Generation, auditing and the draft/publish lifecycle"},
        {"name": "Runs", "description": "Asynchronous generation runs"}
    ],
    "paths": {
        "/timetables/generate": {
            "post": {
                "tags": ["Timetables"],
                "summary": "Generate a timetable proposal",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/GenerateTimetableRequest"}}
                ],
                "responses": {
                    "200": {"description": "Proposal", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Invalid payload", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "401": {"description": "Missing or invalid token", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "403": {"description": "Role not allowed", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "408": {"description": "Generation cancelled", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "422": {"description": "Timetable infeasible", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/timetables/generate/batch": {
            "post": {
                "tags": ["Timetables"],
                "summary": "Generate proposals for several snapshots",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/BatchGenerateRequest"}}
                ],
                "responses": {
                    "200": {"description": "Per item outcomes", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Invalid payload", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "401": {"description": "Missing or invalid token", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "403": {"description": "Role not allowed", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/timetables/audit": {
            "post": {
                "tags": ["Timetables"],
                "summary": "Audit a timetable for conflicts",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/AuditTimetableRequest"}}
                ],
                "responses": {
                    "200": {"description": "Conflicts", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Invalid payload", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "401": {"description": "Missing or invalid token", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "403": {"description": "Role not allowed", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/timetables/runs": {
            "post": {
                "tags": ["Runs"],
                "summary": "Queue an asynchronous generation run",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/GenerateTimetableRequest"}}
                ],
                "responses": {
                    "202": {"description": "Run accepted", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Invalid payload", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "401": {"description": "Missing or invalid token", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "403": {"description": "Role not allowed", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "503": {"description": "Queue disabled or full", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/timetables/runs/{id}": {
            "get": {
                "tags": ["Runs"],
                "summary": "Get an asynchronous run",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "Run status", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Run not found or expired", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/timetables": {
            "get": {
                "tags": ["Timetables"],
                "summary": "List persisted timetables",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "department", "in": "query", "type": "string"},
                    {"name": "semester", "in": "query", "type": "integer"},
                    {"name": "year", "in": "query", "type": "integer"},
                    {"name": "shift", "in": "query", "type": "string"},
                    {"name": "status", "in": "query", "type": "string"},
                    {"name": "page", "in": "query", "type": "integer"},
                    {"name": "page_size", "in": "query", "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "Timetables", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "post": {
                "tags": ["Timetables"],
                "summary": "Save a proposal as a draft timetable",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/SaveTimetableRequest"}}
                ],
                "responses": {
                    "201": {"description": "Saved", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Proposal not found or expired", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Proposal has high severity conflicts", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "412": {"description": "Proposal is partial", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Invalid payload", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "401": {"description": "Missing or invalid token", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "403": {"description": "Role not allowed", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/timetables/{id}": {
            "get": {
                "tags": ["Timetables"],
                "summary": "Get a persisted timetable",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "Timetable with slots", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Not found", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "delete": {
                "tags": ["Timetables"],
                "summary": "Delete a draft timetable",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "204": {"description": "Deleted"},
                    "404": {"description": "Not found", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Timetable is not a draft", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/timetables/{id}/publish": {
            "post": {
                "tags": ["Timetables"],
                "summary": "Publish a draft timetable",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "Published", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Not found", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Timetable is archived", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/timetables/{id}/audit": {
            "post": {
                "tags": ["Timetables"],
                "summary": "Audit a persisted timetable",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/AuditStoredRequest"}}
                ],
                "responses": {
                    "200": {"description": "Conflicts", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Not found", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/timetables/{id}/export": {
            "get": {
                "tags": ["Timetables"],
                "summary": "Export a persisted timetable",
                "security": [{"BearerAuth": []}],
                "produces": ["text/csv", "application/pdf"],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "format", "in": "query", "type": "string"}
                ],
                "responses": {
                    "200": {"description": "CSV or PDF attachment", "schema": {"type": "file"}},
                    "404": {"description": "Not found", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "503": {"description": "Exports disabled", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        }
    },
    "definitions": {
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
        },
        "DayAvailability": {
            "type": "object",
            "properties": {
                "start": {"type": "string", "example": "09:00"},
                "end": {"type": "string", "example": "17:00"},
                "breaks": {"type": "array", "items": {"type": "object", "properties": {"start": {"type": "string"}, "end": {"type": "string"}}}}
            }
        },
        "WeeklyAvailability": {
            "type": "object",
            "description": "Keyed by MONDAY..SATURDAY. An empty object means unrestricted.",
            "additionalProperties": {"$ref": "#/definitions/DayAvailability"}
        },
        "Class": {
            "type": "object",
            "required": ["id", "name"],
            "properties": {
                "id": {"type": "string"},
                "name": {"type": "string"},
                "batch": {"type": "string"},
                "semester": {"type": "integer"},
                "department": {"type": "string"},
                "studentCount": {"type": "integer"},
                "subjects": {"type": "array", "items": {"type": "string"}}
            }
        },
        "Subject": {
            "type": "object",
            "required": ["id", "name", "credits", "type", "facultyId", "maxClassesPerWeek", "maxClassesPerDay"],
            "properties": {
                "id": {"type": "string"},
                "name": {"type": "string"},
                "code": {"type": "string"},
                "credits": {"type": "integer"},
                "type": {"type": "string", "enum": ["lecture", "lab", "tutorial"]},
                "facultyId": {"type": "string"},
                "maxClassesPerWeek": {"type": "integer"},
                "maxClassesPerDay": {"type": "integer"},
                "sessionsPerWeek": {"type": "integer"},
                "sessionUnits": {"type": "integer"}
            }
        },
        "Faculty": {
            "type": "object",
            "required": ["id", "name"],
            "properties": {
                "id": {"type": "string"},
                "name": {"type": "string"},
                "email": {"type": "string"},
                "department": {"type": "string"},
                "subjects": {"type": "array", "items": {"type": "string"}},
                "availability": {"$ref": "#/definitions/WeeklyAvailability"},
                "leaveDays": {"type": "array", "items": {"type": "string"}}
            }
        },
        "Room": {
            "type": "object",
            "required": ["id", "name", "type", "capacity"],
            "properties": {
                "id": {"type": "string"},
                "name": {"type": "string"},
                "type": {"type": "string", "enum": ["classroom", "lab", "auditorium"]},
                "capacity": {"type": "integer"},
                "equipment": {"type": "array", "items": {"type": "string"}},
                "availability": {"$ref": "#/definitions/WeeklyAvailability"}
            }
        },
        "TimetableState": {
            "type": "object",
            "properties": {
                "classes": {"type": "array", "items": {"$ref": "#/definitions/Class"}},
                "subjects": {"type": "array", "items": {"$ref": "#/definitions/Subject"}},
                "faculty": {"type": "array", "items": {"$ref": "#/definitions/Faculty"}},
                "rooms": {"type": "array", "items": {"$ref": "#/definitions/Room"}}
            }
        },
        "TimetableMeta": {
            "type": "object",
            "properties": {
                "title": {"type": "string"},
                "description": {"type": "string"},
                "department": {"type": "string"},
                "semester": {"type": "integer"},
                "year": {"type": "integer"},
                "shift": {"type": "string", "enum": ["MORNING", "EVENING"]}
            }
        },
        "TimetableSlot": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "day": {"type": "string", "example": "MONDAY"},
                "time": {"type": "string", "example": "09:00"},
                "duration": {"type": "integer"},
                "subjectId": {"type": "string"},
                "facultyId": {"type": "string"},
                "roomId": {"type": "string"},
                "classId": {"type": "string"},
                "type": {"type": "string"}
            }
        },
        "Timetable": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "title": {"type": "string"},
                "department": {"type": "string"},
                "semester": {"type": "integer"},
                "year": {"type": "integer"},
                "shift": {"type": "string"},
                "slots": {"type": "array", "items": {"$ref": "#/definitions/TimetableSlot"}}
            }
        },
        "GenerationConfig": {
            "type": "object",
            "properties": {
                "maxBacktrackSteps": {"type": "integer"},
                "timeBudgetMs": {"type": "integer"},
                "randomSeed": {"type": "integer"},
                "softWeightOverrides": {"type": "object", "additionalProperties": {"type": "number"}}
            }
        },
        "GenerateTimetableRequest": {
            "type": "object",
            "properties": {
                "state": {"$ref": "#/definitions/TimetableState"},
                "meta": {"$ref": "#/definitions/TimetableMeta"},
                "config": {"$ref": "#/definitions/GenerationConfig"}
            }
        },
        "BatchGenerateRequest": {
            "type": "object",
            "properties": {
                "items": {"type": "array", "maxItems": 16, "items": {"$ref": "#/definitions/GenerateTimetableRequest"}}
            }
        },
        "AuditTimetableRequest": {
            "type": "object",
            "properties": {
                "timetable": {"$ref": "#/definitions/Timetable"},
                "state": {"$ref": "#/definitions/TimetableState"}
            }
        },
        "AuditStoredRequest": {
            "type": "object",
            "properties": {
                "state": {"$ref": "#/definitions/TimetableState"}
            }
        },
        "SaveTimetableRequest": {
            "type": "object",
            "required": ["proposalId"],
            "properties": {
                "proposalId": {"type": "string"},
                "allowPartial": {"type": "boolean"}
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
