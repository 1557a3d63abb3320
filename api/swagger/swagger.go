package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "Grader API",
        "description": "Grading pane backend: grade normalization, gradebook sync and exports",
        "version": "1.0.0"
    },
    "basePath": "/api/v1",
    "schemes": [
        "http"
    ],
    "tags": [
        {"name": "Activities", "description": "Gradable activities and grading reports"},
        {"name": "Grading", "description": "Grading pane session and grade submission"},
        {"name": "Exports", "description": "Asynchronous grading exports"}
    ],
    "paths": {
        "/health": {
            "get": {
                "summary": "Health check",
                "responses": {
                    "200": {"description": "OK"}
                }
            }
        },
        "/ready": {
            "get": {
                "summary": "Readiness check",
                "responses": {
                    "200": {"description": "Ready"}
                }
            }
        },
        "/courses/{courseId}/activities": {
            "get": {
                "tags": ["Activities"],
                "summary": "List gradable activities in a course",
                "parameters": [
                    {"name": "courseId", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/courses/{courseId}/activities/{activityId}/report": {
            "get": {
                "tags": ["Activities"],
                "summary": "Per-user grading report for an activity",
                "parameters": [
                    {"name": "courseId", "in": "path", "required": true, "type": "string"},
                    {"name": "activityId", "in": "path", "required": true, "type": "string"},
                    {"name": "needsGrading", "in": "query", "type": "boolean"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/courses/{courseId}/activities/{activityId}/users/{userId}/grading": {
            "get": {
                "tags": ["Grading"],
                "summary": "Load the grading pane for one user",
                "parameters": [
                    {"name": "courseId", "in": "path", "required": true, "type": "string"},
                    {"name": "activityId", "in": "path", "required": true, "type": "string"},
                    {"name": "userId", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "post": {
                "tags": ["Grading"],
                "summary": "Submit a grade for one user",
                "parameters": [
                    {"name": "courseId", "in": "path", "required": true, "type": "string"},
                    {"name": "activityId", "in": "path", "required": true, "type": "string"},
                    {"name": "userId", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/SubmitGradeRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "207": {"description": "Partially applied", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/courses/{courseId}/activities/{activityId}/exports": {
            "post": {
                "tags": ["Exports"],
                "summary": "Queue a grading export for an activity",
                "parameters": [
                    {"name": "courseId", "in": "path", "required": true, "type": "string"},
                    {"name": "activityId", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/ExportJobParams"}}
                ],
                "responses": {
                    "202": {"description": "Accepted", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/exports/{id}": {
            "get": {
                "tags": ["Exports"],
                "summary": "Check export job status",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/export/{token}": {
            "get": {
                "tags": ["Exports"],
                "summary": "Download a finished export via its signed token",
                "produces": ["application/octet-stream"],
                "parameters": [
                    {"name": "token", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "File"}
                }
            }
        },
        "/system/metrics": {
            "get": {
                "tags": ["System"],
                "summary": "Aggregated runtime metrics",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/SystemMetrics"}}
                }
            }
        }
    },
    "definitions": {
        "Activity": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "course_id": {"type": "string"},
                "activity_type": {"type": "string", "enum": ["ASSIGNMENT", "FORUM"]},
                "name": {"type": "string"},
                "grade_field": {"type": "integer"},
                "team_submission": {"type": "boolean"},
                "blind_marking": {"type": "boolean"},
                "grading_method": {"type": "string", "enum": ["rubric", "guide", "checklist"]},
                "created_at": {"type": "string"},
                "updated_at": {"type": "string"}
            }
        },
        "SubmitGradeRequest": {
            "type": "object",
            "properties": {
                "grade": {"type": "string"},
                "advanced_instance_id": {"type": "string"},
                "advanced_filling": {"type": "object"},
                "apply_to_group": {"type": "boolean"},
                "override": {"type": "boolean"},
                "save_and_next": {"type": "boolean"},
                "needs_grading": {"type": "boolean"}
            }
        },
        "SubmitGradeResult": {
            "type": "object",
            "properties": {
                "applied": {"type": "integer"},
                "failures": {
                    "type": "array",
                    "items": {"$ref": "#/definitions/GradeTargetFailure"}
                },
                "redirect": {"$ref": "#/definitions/RedirectInstruction"}
            }
        },
        "GradeTargetFailure": {
            "type": "object",
            "properties": {
                "user_id": {"type": "string"},
                "code": {"type": "string"},
                "reason": {"type": "string"}
            }
        },
        "RedirectInstruction": {
            "type": "object",
            "properties": {
                "course_id": {"type": "string"},
                "activity_id": {"type": "string"},
                "user_id": {"type": "string"},
                "needs_grading": {"type": "boolean"}
            }
        },
        "ExportJobParams": {
            "type": "object",
            "properties": {
                "format": {"type": "string", "enum": ["csv", "pdf"]},
                "needsGrading": {"type": "boolean"}
            },
            "required": ["format"]
        },
        "ExportJob": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "activity_id": {"type": "string"},
                "params": {"$ref": "#/definitions/ExportJobParams"},
                "status": {"type": "string", "enum": ["QUEUED", "PROCESSING", "FINISHED", "FAILED", "EXPIRED"]},
                "result_url": {"type": "string"},
                "created_by": {"type": "string"},
                "created_at": {"type": "string"},
                "finished_at": {"type": "string"},
                "error_message": {"type": "string"}
            }
        },
        "SystemMetrics": {
            "type": "object",
            "properties": {
                "cache_hit_ratio": {"type": "number"},
                "cache_hits": {"type": "integer"},
                "cache_misses": {"type": "integer"},
                "requests_total": {"type": "integer"},
                "average_request_duration_ms": {"type": "number"},
                "db_query_count": {"type": "integer"},
                "average_db_query_duration_ms": {"type": "number"},
                "goroutines": {"type": "integer"},
                "generated_at": {"type": "string"}
            }
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
