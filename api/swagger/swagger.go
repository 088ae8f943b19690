package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "Admission API",
        "description": "Application submission lifecycle for the admissions wizard",
        "version": "1.0.0"
    },
    "basePath": "/api/v1",
    "schemes": [
        "http",
        "https"
    ],
    "securityDefinitions": {
        "BearerAuth": {"type": "apiKey", "name": "Authorization", "in": "header"}
    },
    "tags": [
        {"name": "Application", "description": "Draft editing, review and submission"},
        {"name": "Documents", "description": "Supporting document uploads"},
        {"name": "Onboarding", "description": "One-time profile capture"}
    ],
    "paths": {
        "/application": {
            "get": {
                "tags": ["Application"],
                "summary": "Current application",
                "security": [{"BearerAuth": []}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "401": {"description": "Not authenticated", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "503": {"description": "Store unavailable", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/application/refresh": {
            "post": {
                "tags": ["Application"],
                "summary": "Reload the application from the store",
                "security": [{"BearerAuth": []}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/application/personal-details": {
            "put": {
                "tags": ["Application"],
                "summary": "Save the personal step",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "final", "in": "query", "type": "boolean"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/PersonalDetailsRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Application locked", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "422": {"description": "Validation failed", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/application/academic-details": {
            "put": {
                "tags": ["Application"],
                "summary": "Save the academic step",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "final", "in": "query", "type": "boolean"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/AcademicDetailsRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Application locked", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "422": {"description": "Validation failed", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/application/draft": {
            "post": {
                "tags": ["Application"],
                "summary": "Persist the current record unchanged",
                "security": [{"BearerAuth": []}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "No record", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/application/review": {
            "get": {
                "tags": ["Application"],
                "summary": "Submission readiness",
                "security": [{"BearerAuth": []}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/application/submit": {
            "post": {
                "tags": ["Application"],
                "summary": "Submit the application",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "payload", "in": "body", "schema": {"$ref": "#/definitions/SubmitRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Unacknowledged warnings", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "422": {"description": "Validation failed", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/application/receipt": {
            "get": {
                "tags": ["Application"],
                "summary": "Download the submission acknowledgement",
                "produces": ["application/pdf"],
                "security": [{"BearerAuth": []}],
                "responses": {
                    "200": {"description": "PDF receipt"},
                    "404": {"description": "Not submitted", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/application/documents/{kind}": {
            "post": {
                "tags": ["Documents"],
                "summary": "Upload a supporting document",
                "consumes": ["multipart/form-data"],
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "kind", "in": "path", "required": true, "type": "string", "enum": ["classXMarksheet", "classXIIMarksheet"]},
                    {"name": "file", "in": "formData", "required": true, "type": "file"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Invalid upload", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Application locked", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/documents/blob": {
            "get": {
                "tags": ["Documents"],
                "summary": "Download a stored document",
                "parameters": [
                    {"name": "token", "in": "query", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "Document"},
                    "403": {"description": "Invalid token", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/onboarding": {
            "get": {
                "tags": ["Onboarding"],
                "summary": "Onboarding state",
                "security": [{"BearerAuth": []}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "post": {
                "tags": ["Onboarding"],
                "summary": "Complete onboarding",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/OnboardingRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "422": {"description": "Validation failed", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        }
    },
    "definitions": {
        "PersonalDetailsRequest": {
            "type": "object",
            "properties": {
                "fullName": {"type": "string"},
                "fatherName": {"type": "string"},
                "motherName": {"type": "string"},
                "dateOfBirth": {"type": "string", "format": "date"},
                "address": {"type": "string"},
                "category": {"type": "string"},
                "gender": {"type": "string", "enum": ["Male", "Female", "Other"]}
            }
        },
        "ClassDetailsRequest": {
            "type": "object",
            "properties": {
                "board": {"type": "string"},
                "yearOfPassing": {"type": "string"},
                "rollNumber": {"type": "string"},
                "stream": {"type": "string"},
                "totalMarks": {"type": "string"},
                "marksObtained": {"type": "string"}
            }
        },
        "AcademicDetailsRequest": {
            "type": "object",
            "properties": {
                "classX": {"$ref": "#/definitions/ClassDetailsRequest"},
                "classXII": {"$ref": "#/definitions/ClassDetailsRequest"}
            }
        },
        "SubmitRequest": {
            "type": "object",
            "properties": {
                "acknowledgeWarnings": {"type": "boolean"}
            }
        },
        "OnboardingRequest": {
            "type": "object",
            "properties": {
                "gender": {"type": "string", "enum": ["Male", "Female", "Other"]},
                "fullName": {"type": "string"}
            }
        },
        "APIError": {
            "type": "object",
            "properties": {
                "code": {"type": "string"},
                "message": {"type": "string"},
                "status": {"type": "integer"},
                "fields": {"type": "object", "additionalProperties": {"type": "string"}}
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
