// Package docs Urban Indicators API.
//
// Status API of the urban indicators pipeline. Reports which derived tables
// are materialized, the configured areas of interest and the published flow
// sheets, and queues pipeline runs for the worker.
package docs

import "github.com/swaggo/swag"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "contact": {},
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "paths": {
        "/api/v1/status": {
            "get": {
                "description": "Row counts of every derived table. Served from cache unless refresh is set.",
                "produces": ["application/json"],
                "tags": ["Status"],
                "summary": "Get pipeline status",
                "parameters": [
                    {
                        "type": "boolean",
                        "description": "Bypass the status cache",
                        "name": "refresh",
                        "in": "query"
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "allOf": [
                                {"$ref": "#/definitions/utils.SuccessResponse"},
                                {"type": "object", "properties": {"data": {"$ref": "#/definitions/domain.Statistics"}}}
                            ]
                        }
                    },
                    "500": {
                        "description": "Internal Server Error",
                        "schema": {"$ref": "#/definitions/utils.ErrorResponse"}
                    }
                }
            }
        },
        "/api/v1/areas": {
            "get": {
                "produces": ["application/json"],
                "tags": ["Status"],
                "summary": "List areas of interest",
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "allOf": [
                                {"$ref": "#/definitions/utils.SuccessResponse"},
                                {"type": "object", "properties": {"data": {"type": "array", "items": {"$ref": "#/definitions/domain.AreaOfInterest"}}}}
                            ]
                        }
                    }
                }
            }
        },
        "/api/v1/flow-sheets": {
            "get": {
                "produces": ["application/json"],
                "tags": ["Status"],
                "summary": "List published flow sheets",
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "allOf": [
                                {"$ref": "#/definitions/utils.SuccessResponse"},
                                {"type": "object", "properties": {"data": {"type": "array", "items": {"$ref": "#/definitions/domain.FlowPublicationRecord"}}}}
                            ]
                        }
                    },
                    "500": {
                        "description": "Internal Server Error",
                        "schema": {"$ref": "#/definitions/utils.ErrorResponse"}
                    }
                }
            }
        },
        "/api/v1/materialize": {
            "post": {
                "description": "Publishes a materialize request on the worker stream.",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["Pipeline"],
                "summary": "Queue a pipeline run",
                "parameters": [
                    {
                        "description": "Optional requester and reason",
                        "name": "request",
                        "in": "body",
                        "schema": {"$ref": "#/definitions/handler.MaterializeRequestBody"}
                    }
                ],
                "responses": {
                    "202": {
                        "description": "Accepted",
                        "schema": {
                            "allOf": [
                                {"$ref": "#/definitions/utils.SuccessResponse"},
                                {"type": "object", "properties": {"data": {"$ref": "#/definitions/domain.MaterializeRequest"}}}
                            ]
                        }
                    },
                    "400": {
                        "description": "Bad Request",
                        "schema": {"$ref": "#/definitions/utils.ErrorResponse"}
                    },
                    "500": {
                        "description": "Internal Server Error",
                        "schema": {"$ref": "#/definitions/utils.ErrorResponse"}
                    }
                }
            }
        }
    },
    "definitions": {
        "domain.AreaOfInterest": {
            "type": "object",
            "properties": {
                "canonical_name": {"type": "string"},
                "display_name": {"type": "string"},
                "bounding_box": {"$ref": "#/definitions/domain.BoundingBox"}
            }
        },
        "domain.BoundingBox": {
            "type": "object",
            "properties": {
                "lat1": {"type": "number"},
                "lng1": {"type": "number"},
                "lat2": {"type": "number"},
                "lng2": {"type": "number"},
                "crs": {"type": "integer"}
            }
        },
        "domain.FlowPublicationRecord": {
            "type": "object",
            "properties": {
                "urban_area_name": {"type": "string"},
                "external_sheet_url": {"type": "string"}
            }
        },
        "domain.MaterializeRequest": {
            "type": "object",
            "properties": {
                "request_id": {"type": "string"},
                "requested_by": {"type": "string"},
                "reason": {"type": "string"}
            }
        },
        "domain.Statistics": {
            "type": "object",
            "properties": {
                "tables": {"type": "array", "items": {"$ref": "#/definitions/domain.TableStatus"}},
                "published": {"type": "boolean"},
                "last_updated": {"type": "string"}
            }
        },
        "domain.TableStatus": {
            "type": "object",
            "properties": {
                "table": {"type": "string"},
                "exists": {"type": "boolean"},
                "rows": {"type": "integer"}
            }
        },
        "errors.AppError": {
            "type": "object",
            "properties": {
                "code": {"type": "string"},
                "message": {"type": "string"},
                "details": {"type": "object", "additionalProperties": true}
            }
        },
        "handler.MaterializeRequestBody": {
            "type": "object",
            "properties": {
                "requested_by": {"type": "string", "maxLength": 100},
                "reason": {"type": "string", "maxLength": 500}
            }
        },
        "utils.ErrorResponse": {
            "type": "object",
            "properties": {
                "error": {"$ref": "#/definitions/errors.AppError"}
            }
        },
        "utils.Meta": {
            "type": "object",
            "properties": {
                "total": {"type": "integer"},
                "cached": {"type": "boolean"}
            }
        },
        "utils.SuccessResponse": {
            "type": "object",
            "properties": {
                "data": {},
                "meta": {"$ref": "#/definitions/utils.Meta"}
            }
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0.0",
	Host:             "",
	BasePath:         "/",
	Schemes:          []string{"http", "https"},
	Title:            "Urban Indicators API",
	Description:      "Status and trigger API of the urban indicators pipeline.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
