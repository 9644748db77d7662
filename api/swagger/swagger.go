package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "TutorCRM Availability API",
        "description": "Teacher availability, slot search and session booking",
        "version": "1.0.0"
    },
    "basePath": "/api/v1",
    "schemes": [
        "http"
    ],
    "tags": [
        {"name": "Availability", "description": "Weekly templates, blocks and slot search"},
        {"name": "Sessions", "description": "Booking and rescheduling against live availability"}
    ],
    "parameters": {
        "teacherId": {"name": "id", "in": "path", "required": true, "type": "string", "format": "uuid"},
        "startDate": {"name": "start_date", "in": "query", "required": true, "type": "string", "format": "date"},
        "endDate": {"name": "end_date", "in": "query", "required": true, "type": "string", "format": "date"},
        "duration": {"name": "duration", "in": "query", "required": true, "type": "integer", "minimum": 1},
        "displayTimezone": {"name": "display_timezone", "in": "query", "required": false, "type": "string", "description": "IANA zone for display labels"}
    },
    "paths": {
        "/teachers/{id}/availability/slots": {
            "get": {
                "tags": ["Availability"],
                "summary": "List candidate slots with availability flags",
                "parameters": [
                    {"$ref": "#/parameters/teacherId"},
                    {"$ref": "#/parameters/startDate"},
                    {"$ref": "#/parameters/endDate"},
                    {"$ref": "#/parameters/duration"},
                    {"$ref": "#/parameters/displayTimezone"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Invalid query", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "500": {"description": "Template could not be loaded", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/teachers/{id}/availability/check": {
            "post": {
                "tags": ["Availability"],
                "summary": "Check one proposed slot",
                "parameters": [
                    {"$ref": "#/parameters/teacherId"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/SlotCheck"}}
                ],
                "responses": {
                    "200": {"description": "Verdict", "schema": {"$ref": "#/definitions/SlotCheckResult"}},
                    "400": {"description": "Invalid payload", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/teachers/{id}/availability/export": {
            "get": {
                "tags": ["Availability"],
                "summary": "Export slots as CSV or PDF",
                "produces": ["text/csv", "application/pdf"],
                "parameters": [
                    {"$ref": "#/parameters/teacherId"},
                    {"name": "format", "in": "query", "type": "string", "enum": ["csv", "pdf"], "default": "csv"},
                    {"$ref": "#/parameters/startDate"},
                    {"$ref": "#/parameters/endDate"},
                    {"$ref": "#/parameters/duration"},
                    {"$ref": "#/parameters/displayTimezone"}
                ],
                "responses": {
                    "200": {"description": "File download"},
                    "400": {"description": "Invalid query", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "503": {"description": "Exports disabled", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/teachers/{id}/availability/template": {
            "get": {
                "tags": ["Availability"],
                "summary": "Get the weekly template",
                "parameters": [{"$ref": "#/parameters/teacherId"}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/WeeklyAvailabilityTemplate"}},
                    "404": {"description": "Teacher not found", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "put": {
                "tags": ["Availability"],
                "summary": "Replace the weekly template",
                "parameters": [
                    {"$ref": "#/parameters/teacherId"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/WeeklyAvailabilityTemplate"}}
                ],
                "responses": {
                    "200": {"description": "Saved", "schema": {"$ref": "#/definitions/WeeklyAvailabilityTemplate"}},
                    "400": {"description": "Invalid template", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/teachers/{id}/availability/blocks": {
            "get": {
                "tags": ["Availability"],
                "summary": "List blocks, with recurring series expanded",
                "parameters": [
                    {"$ref": "#/parameters/teacherId"},
                    {"$ref": "#/parameters/startDate"},
                    {"$ref": "#/parameters/endDate"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "post": {
                "tags": ["Availability"],
                "summary": "Create a block",
                "parameters": [
                    {"$ref": "#/parameters/teacherId"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/AvailabilityBlock"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/AvailabilityBlock"}},
                    "400": {"description": "Invalid block", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/teachers/{id}/availability/blocks/{blockId}": {
            "delete": {
                "tags": ["Availability"],
                "summary": "Delete a block or a whole recurring series",
                "parameters": [
                    {"$ref": "#/parameters/teacherId"},
                    {"name": "blockId", "in": "path", "required": true, "type": "string", "format": "uuid"}
                ],
                "responses": {
                    "204": {"description": "Deleted"},
                    "404": {"description": "Block not found", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/teachers/{id}/sessions": {
            "post": {
                "tags": ["Sessions"],
                "summary": "Book a session",
                "parameters": [
                    {"$ref": "#/parameters/teacherId"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/BookSessionRequest"}}
                ],
                "responses": {
                    "201": {"description": "Booked", "schema": {"$ref": "#/definitions/TutoringSession"}},
                    "409": {"description": "Slot not available", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/teachers/{id}/sessions/{sessionId}": {
            "put": {
                "tags": ["Sessions"],
                "summary": "Reschedule a session",
                "parameters": [
                    {"$ref": "#/parameters/teacherId"},
                    {"name": "sessionId", "in": "path", "required": true, "type": "string", "format": "uuid"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/RescheduleSessionRequest"}}
                ],
                "responses": {
                    "200": {"description": "Moved", "schema": {"$ref": "#/definitions/TutoringSession"}},
                    "409": {"description": "Slot not available", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        }
    },
    "definitions": {
        "BreakWindow": {
            "type": "object",
            "properties": {
                "start": {"type": "string", "example": "12:00"},
                "end": {"type": "string", "example": "13:00"}
            }
        },
        "DaySchedule": {
            "type": "object",
            "properties": {
                "enabled": {"type": "boolean"},
                "start": {"type": "string", "example": "09:00"},
                "end": {"type": "string", "example": "17:00"},
                "breaks": {"type": "array", "items": {"$ref": "#/definitions/BreakWindow"}}
            }
        },
        "WeeklyAvailabilityTemplate": {
            "type": "object",
            "properties": {
                "working_hours": {"type": "object", "additionalProperties": {"$ref": "#/definitions/DaySchedule"}},
                "timezone": {"type": "string", "example": "Asia/Jakarta"},
                "buffer_time": {"type": "integer"},
                "min_booking_notice": {"type": "integer", "description": "Hours"},
                "max_booking_advance": {"type": "integer", "description": "Days"}
            }
        },
        "AvailabilityBlock": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "type": {"type": "string", "enum": ["blocked", "available"]},
                "date": {"type": "string", "format": "date"},
                "start_time": {"type": "string"},
                "end_time": {"type": "string"},
                "reason": {"type": "string"},
                "recurring": {"type": "boolean"},
                "recurrence_pattern": {"type": "string", "enum": ["weekly", "monthly"]},
                "recurrence_until": {"type": "string", "format": "date"},
                "occurrence_of": {"type": "string"}
            }
        },
        "SlotCheck": {
            "type": "object",
            "properties": {
                "date": {"type": "string", "format": "date"},
                "start_time": {"type": "string"},
                "duration": {"type": "integer"},
                "exclude_session_id": {"type": "string"}
            }
        },
        "SlotCheckResult": {
            "type": "object",
            "properties": {
                "available": {"type": "boolean"},
                "reason": {"type": "string"}
            }
        },
        "BookSessionRequest": {
            "type": "object",
            "properties": {
                "student_id": {"type": "string"},
                "date": {"type": "string", "format": "date"},
                "start_time": {"type": "string"},
                "duration": {"type": "integer"},
                "notes": {"type": "string"}
            }
        },
        "RescheduleSessionRequest": {
            "type": "object",
            "properties": {
                "date": {"type": "string", "format": "date"},
                "start_time": {"type": "string"},
                "duration": {"type": "integer"}
            }
        },
        "TutoringSession": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "teacher_id": {"type": "string"},
                "student_id": {"type": "string"},
                "date": {"type": "string", "format": "date"},
                "start_time": {"type": "string"},
                "duration": {"type": "integer"},
                "status": {"type": "string"}
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
