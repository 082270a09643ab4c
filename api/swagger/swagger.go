package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "Fleet Maintenance API",
        "description": "Vehicle fleet failure reporting and repair workflow",
        "version": "1.0.0"
    },
    "basePath": "/api/v1",
    "schemes": [
        "http"
    ],
    "securityDefinitions": {
        "BearerAuth": {
            "type": "apiKey",
            "name": "Authorization",
            "in": "header"
        }
    },
    "tags": [
        {"name": "Auth", "description": "Authentication and session management"},
        {"name": "Vehicles", "description": "Fleet vehicle registry"},
        {"name": "Locations", "description": "Branches and workshops"},
        {"name": "Manufacturers", "description": "Vehicle manufacturer reference data"},
        {"name": "FailureReports", "description": "Failure report workflow"},
        {"name": "RepairReports", "description": "Workshop repair reports and rejections"}
    ],
    "paths": {
        "/auth/login": {
            "post": {
                "tags": ["Auth"],
                "summary": "Authenticate with username and password",
                "responses": {
                    "200": {"description": "Tokens issued"},
                    "401": {"description": "Invalid credentials"}
                }
            }
        },
        "/auth/refresh": {
            "post": {
                "tags": ["Auth"],
                "summary": "Rotate a refresh token",
                "responses": {
                    "200": {"description": "Tokens issued"},
                    "401": {"description": "Invalid refresh token"}
                }
            }
        },
        "/auth/password": {
            "put": {
                "tags": ["Auth"],
                "summary": "Change password",
                "responses": {
                    "204": {"description": "Password changed"}
                }
            }
        },
        "/failure-reports": {
            "get": {
                "tags": ["FailureReports"],
                "summary": "List failure reports",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "post": {
                "tags": ["FailureReports"],
                "summary": "Report a vehicle failure",
                "responses": {
                    "201": {"description": "Created"},
                    "404": {"description": "Vehicle not visible to the caller"},
                    "409": {"description": "Vehicle already reported"}
                }
            }
        },
        "/failure-reports/{id}/claim": {
            "post": {
                "tags": ["FailureReports"],
                "summary": "Take exclusive management",
                "responses": {
                    "200": {"description": "Claimed"},
                    "409": {"description": "Already managed"}
                }
            }
        },
        "/failure-reports/{id}/assign": {
            "post": {
                "tags": ["FailureReports"],
                "summary": "Assign a workshop",
                "responses": {
                    "200": {"description": "Assigned"},
                    "409": {"description": "Not in PENDING status"}
                }
            }
        },
        "/failure-reports/{id}/resolve": {
            "post": {
                "tags": ["FailureReports"],
                "summary": "Resolve with a ready repair",
                "responses": {
                    "200": {"description": "Resolved"},
                    "409": {"description": "Repair not READY"}
                }
            }
        },
        "/repair-reports": {
            "get": {
                "tags": ["RepairReports"],
                "summary": "List repair reports visible to the caller",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/repair-reports/{id}/reject": {
            "post": {
                "tags": ["RepairReports"],
                "summary": "Reject a ready repair report",
                "responses": {
                    "201": {"description": "Rejection recorded"},
                    "409": {"description": "Repair not READY"}
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
