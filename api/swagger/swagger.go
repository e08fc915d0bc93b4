package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "Smart Village Portal API",
        "description": "Villager registration with OTP-authorized edits, and the grievance lifecycle.",
        "version": "1.0.0"
    },
    "basePath": "/api/v1",
    "schemes": ["http", "https"],
    "securityDefinitions": {
        "BearerAuth": {"type": "apiKey", "in": "header", "name": "Authorization"}
    },
    "tags": [
        {"name": "Villagers", "description": "Registration and OTP-authorized edits"},
        {"name": "Admin Villagers", "description": "Review queue and direct record management"},
        {"name": "Grievances", "description": "Citizen complaints"},
        {"name": "Admin Grievances", "description": "Review, assignment and resolution"},
        {"name": "Workers", "description": "Field workers grievances are assigned to"},
        {"name": "Uploads", "description": "Compressed photo storage"}
    ],
    "paths": {
        "/villagers": {
            "post": {
                "tags": ["Villagers"],
                "summary": "Submit a new registration",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/VillagerRequest"}}
                ],
                "responses": {
                    "201": {"description": "Pending registration", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Validation error", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Mobile number already registered", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/villagers/edit/otp": {
            "post": {
                "tags": ["Villagers"],
                "summary": "Send an edit verification code",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/RequestOTPRequest"}}
                ],
                "responses": {
                    "200": {"description": "Code sent", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Unknown mobile number", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "429": {"description": "Resend cooldown", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/villagers/edit/verify": {
            "post": {
                "tags": ["Villagers"],
                "summary": "Verify a code and open an edit session",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/VerifyOTPRequest"}}
                ],
                "responses": {
                    "200": {"description": "Record and edit token", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Code is not six digits", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "401": {"description": "Wrong code", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "410": {"description": "Code expired", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/villagers/edit/{id}": {
            "put": {
                "tags": ["Villagers"],
                "summary": "Submit an edit under an edit session",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "X-Edit-Token", "in": "header", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/VillagerRequest"}}
                ],
                "responses": {
                    "200": {"description": "Record awaiting review", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "401": {"description": "Edit session invalid or used", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/admin/villagers": {
            "get": {
                "tags": ["Admin Villagers"],
                "summary": "List villagers",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "status", "in": "query", "type": "string", "description": "Comma separated: Pending,Approved,Rejected"},
                    {"name": "requestType", "in": "query", "type": "string"},
                    {"name": "search", "in": "query", "type": "string"},
                    {"name": "page", "in": "query", "type": "integer"},
                    {"name": "limit", "in": "query", "type": "integer"}
                ],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            },
            "post": {
                "tags": ["Admin Villagers"],
                "summary": "Create an approved villager",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/VillagerRequest"}}
                ],
                "responses": {"201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        },
        "/admin/villagers/{id}": {
            "get": {
                "tags": ["Admin Villagers"],
                "summary": "Get a villager",
                "security": [{"BearerAuth": []}],
                "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            },
            "put": {
                "tags": ["Admin Villagers"],
                "summary": "Override villager fields",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/VillagerRequest"}}
                ],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        },
        "/admin/villagers/{id}/review": {
            "post": {
                "tags": ["Admin Villagers"],
                "summary": "Approve or reject a pending villager",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/StatusNoteRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Not pending", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/grievances": {
            "post": {
                "tags": ["Grievances"],
                "summary": "Submit a grievance",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/CreateGrievanceRequest"}}
                ],
                "responses": {"201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        },
        "/grievances/mine": {
            "get": {
                "tags": ["Grievances"],
                "summary": "List the caller's grievances",
                "security": [{"BearerAuth": []}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        },
        "/admin/grievances": {
            "get": {
                "tags": ["Admin Grievances"],
                "summary": "List grievances",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "adminStatus", "in": "query", "type": "string"},
                    {"name": "progressStatus", "in": "query", "type": "string"},
                    {"name": "priority", "in": "query", "type": "string"},
                    {"name": "category", "in": "query", "type": "string"},
                    {"name": "workerId", "in": "query", "type": "string"},
                    {"name": "search", "in": "query", "type": "string"},
                    {"name": "page", "in": "query", "type": "integer"},
                    {"name": "limit", "in": "query", "type": "integer"}
                ],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        },
        "/admin/grievances/{id}/admin-status": {
            "patch": {
                "tags": ["Admin Grievances"],
                "summary": "Approve or reject an unapproved grievance",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/StatusNoteRequest"}}
                ],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        },
        "/admin/grievances/{id}/assign": {
            "patch": {
                "tags": ["Admin Grievances"],
                "summary": "Assign or unassign a worker",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/AssignWorkerRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "412": {"description": "Grievance not approved", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/admin/grievances/{id}/progress": {
            "patch": {
                "tags": ["Admin Grievances"],
                "summary": "Move the progress status",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/SetProgressRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "412": {"description": "Grievance not approved", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/admin/grievances/{id}/resolve": {
            "post": {
                "tags": ["Admin Grievances"],
                "summary": "Resolve with photographic proof",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/ResolveGrievanceRequest"}}
                ],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        },
        "/admin/workers": {
            "get": {
                "tags": ["Workers"],
                "summary": "List workers",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "status", "in": "query", "type": "string"},
                    {"name": "department", "in": "query", "type": "string"},
                    {"name": "search", "in": "query", "type": "string"}
                ],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        },
        "/uploads": {
            "post": {
                "tags": ["Uploads"],
                "summary": "Upload an image",
                "consumes": ["multipart/form-data"],
                "parameters": [
                    {"name": "file", "in": "formData", "required": true, "type": "file"},
                    {"name": "purpose", "in": "formData", "required": true, "type": "string", "enum": ["id-proof", "grievance", "resolution"]}
                ],
                "responses": {
                    "201": {"description": "Stored", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "413": {"description": "Too large", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "415": {"description": "Not an image", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        }
    },
    "definitions": {
        "VillagerRequest": {
            "type": "object",
            "properties": {
                "fullName": {"type": "string"},
                "mobileNumber": {"type": "string"},
                "gender": {"type": "string", "enum": ["Male", "Female", "Other"]},
                "dateOfBirth": {"type": "string", "format": "date"},
                "aadharNumber": {"type": "string"},
                "idProofUrl": {"type": "string"},
                "address": {"type": "string"},
                "email": {"type": "string"},
                "occupation": {"type": "string"},
                "wardNumber": {"type": "string"}
            },
            "required": ["fullName", "mobileNumber", "gender", "aadharNumber", "address"]
        },
        "RequestOTPRequest": {
            "type": "object",
            "properties": {"mobileNumber": {"type": "string"}},
            "required": ["mobileNumber"]
        },
        "VerifyOTPRequest": {
            "type": "object",
            "properties": {
                "mobileNumber": {"type": "string"},
                "otp": {"type": "string", "pattern": "^[0-9]{6}$"}
            },
            "required": ["mobileNumber", "otp"]
        },
        "StatusNoteRequest": {
            "type": "object",
            "properties": {
                "status": {"type": "string", "enum": ["Approved", "Rejected"]},
                "note": {"type": "string"}
            },
            "required": ["status"]
        },
        "CreateGrievanceRequest": {
            "type": "object",
            "properties": {
                "title": {"type": "string"},
                "description": {"type": "string"},
                "category": {"type": "string"},
                "priority": {"type": "string", "enum": ["Low", "Normal", "High", "Urgent"]},
                "location": {"type": "string"},
                "photos": {"type": "array", "items": {"type": "string"}}
            },
            "required": ["title", "description", "category"]
        },
        "AssignWorkerRequest": {
            "type": "object",
            "properties": {"workerId": {"type": "string", "x-nullable": true}}
        },
        "SetProgressRequest": {
            "type": "object",
            "properties": {
                "status": {"type": "string", "enum": ["Pending", "In-progress", "Resolved"]},
                "photos": {"type": "array", "items": {"type": "string"}}
            },
            "required": ["status"]
        },
        "ResolveGrievanceRequest": {
            "type": "object",
            "properties": {"photos": {"type": "array", "items": {"type": "string"}, "minItems": 1}},
            "required": ["photos"]
        },
        "Pagination": {
            "type": "object",
            "properties": {
                "page": {"type": "integer"},
                "pageSize": {"type": "integer"},
                "totalCount": {"type": "integer"}
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
                "success": {"type": "boolean"},
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
