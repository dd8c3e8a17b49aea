// Package docs registers the dev backend's OpenAPI document with swag.
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
        "/auth/login": {
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["auth"],
                "summary": "Login user",
                "parameters": [
                    {"description": "Login credentials", "name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/handler.LoginRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/handler.LoginResponse"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/errors.ErrorResponse"}},
                    "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/errors.ErrorResponse"}}
                }
            }
        },
        "/auth/validate": {
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["auth"],
                "summary": "Validate a bearer token",
                "parameters": [
                    {"description": "Token to validate", "name": "request", "in": "body", "schema": {"$ref": "#/definitions/handler.ValidateRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/handler.ValidateResponse"}},
                    "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/errors.ErrorResponse"}}
                }
            }
        },
        "/cars": {
            "get": {
                "produces": ["application/json"],
                "tags": ["cars"],
                "summary": "List cars",
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "array", "items": {"$ref": "#/definitions/model.Car"}}}
                }
            },
            "post": {
                "security": [{"BearerAuth": []}],
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["cars"],
                "summary": "Create car",
                "parameters": [
                    {"description": "Car payload", "name": "car", "in": "body", "required": true, "schema": {"$ref": "#/definitions/service.CarInput"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/model.Car"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/errors.ErrorResponse"}},
                    "403": {"description": "Forbidden", "schema": {"$ref": "#/definitions/errors.ErrorResponse"}}
                }
            }
        },
        "/cars/{id}": {
            "get": {
                "produces": ["application/json"],
                "tags": ["cars"],
                "summary": "Get car by id",
                "parameters": [{"type": "integer", "description": "Car ID", "name": "id", "in": "path", "required": true}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/model.Car"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/errors.ErrorResponse"}}
                }
            },
            "put": {
                "security": [{"BearerAuth": []}],
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["cars"],
                "summary": "Update car",
                "parameters": [
                    {"type": "integer", "description": "Car ID", "name": "id", "in": "path", "required": true},
                    {"description": "Car payload", "name": "car", "in": "body", "required": true, "schema": {"$ref": "#/definitions/service.CarInput"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/model.Car"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/errors.ErrorResponse"}}
                }
            },
            "delete": {
                "security": [{"BearerAuth": []}],
                "tags": ["cars"],
                "summary": "Delete car",
                "parameters": [{"type": "integer", "description": "Car ID", "name": "id", "in": "path", "required": true}],
                "responses": {
                    "204": {"description": "No Content"},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/errors.ErrorResponse"}}
                }
            }
        },
        "/cart": {
            "get": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["cart"],
                "summary": "Get cart",
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/model.Cart"}}}
            },
            "delete": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["cart"],
                "summary": "Clear cart",
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/model.Cart"}}}
            }
        },
        "/cart/items": {
            "post": {
                "security": [{"BearerAuth": []}],
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["cart"],
                "summary": "Add car to cart",
                "parameters": [
                    {"description": "Car and days", "name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/handler.AddCartItemRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/model.Cart"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/errors.ErrorResponse"}}
                }
            }
        },
        "/cart/items/{carId}": {
            "put": {
                "security": [{"BearerAuth": []}],
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["cart"],
                "summary": "Change rental days of a cart item",
                "parameters": [
                    {"type": "integer", "description": "Car ID", "name": "carId", "in": "path", "required": true},
                    {"description": "Days", "name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/handler.UpdateCartItemRequest"}}
                ],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/model.Cart"}}}
            },
            "delete": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["cart"],
                "summary": "Remove car from cart",
                "parameters": [{"type": "integer", "description": "Car ID", "name": "carId", "in": "path", "required": true}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/model.Cart"}}}
            }
        },
        "/users": {
            "get": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["users"],
                "summary": "List users",
                "responses": {"200": {"description": "OK", "schema": {"type": "array", "items": {"$ref": "#/definitions/model.User"}}}}
            },
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["users"],
                "summary": "Create user",
                "parameters": [
                    {"description": "User payload", "name": "user", "in": "body", "required": true, "schema": {"$ref": "#/definitions/service.CreateUserInput"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/model.User"}},
                    "409": {"description": "Conflict", "schema": {"$ref": "#/definitions/errors.ErrorResponse"}}
                }
            }
        },
        "/users/me": {
            "get": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["users"],
                "summary": "Current user profile",
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/model.User"}}}
            },
            "put": {
                "security": [{"BearerAuth": []}],
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["users"],
                "summary": "Update current user profile",
                "parameters": [
                    {"description": "Profile", "name": "user", "in": "body", "required": true, "schema": {"$ref": "#/definitions/service.UpdateProfileInput"}}
                ],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/model.User"}}}
            },
            "delete": {
                "security": [{"BearerAuth": []}],
                "tags": ["users"],
                "summary": "Delete current user account",
                "responses": {"204": {"description": "No Content"}}
            }
        },
        "/users/{id}": {
            "delete": {
                "security": [{"BearerAuth": []}],
                "tags": ["users"],
                "summary": "Delete user",
                "parameters": [{"type": "integer", "description": "User ID", "name": "id", "in": "path", "required": true}],
                "responses": {"204": {"description": "No Content"}}
            }
        },
        "/seed/cars": {
            "post": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["seed"],
                "summary": "Seed the demo fleet into an empty catalog",
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/handler.SeedResponse"}}}
            }
        }
    },
    "definitions": {
        "errors.ErrorResponse": {
            "type": "object",
            "properties": {
                "error": {"type": "string"},
                "code": {"type": "string"},
                "message": {"type": "string"},
                "errors": {"type": "object", "additionalProperties": {"type": "string"}}
            }
        },
        "handler.LoginRequest": {
            "type": "object",
            "required": ["username", "password"],
            "properties": {"username": {"type": "string"}, "password": {"type": "string"}}
        },
        "handler.LoginResponse": {
            "type": "object",
            "properties": {
                "token": {"type": "string"},
                "username": {"type": "string"},
                "userId": {"type": "integer"},
                "role": {"type": "string", "enum": ["USER", "ADMIN"]}
            }
        },
        "handler.ValidateRequest": {
            "type": "object",
            "properties": {"token": {"type": "string"}}
        },
        "handler.ValidateResponse": {
            "type": "object",
            "properties": {
                "valid": {"type": "boolean"},
                "userId": {"type": "integer"},
                "username": {"type": "string"},
                "role": {"type": "string"}
            }
        },
        "handler.AddCartItemRequest": {
            "type": "object",
            "required": ["carId"],
            "properties": {"carId": {"type": "integer"}, "days": {"type": "integer", "minimum": 1}}
        },
        "handler.UpdateCartItemRequest": {
            "type": "object",
            "properties": {"days": {"type": "integer", "minimum": 1}}
        },
        "handler.SeedResponse": {
            "type": "object",
            "properties": {"message": {"type": "string"}, "count": {"type": "integer"}}
        },
        "model.Car": {
            "type": "object",
            "properties": {
                "id": {"type": "integer"},
                "make": {"type": "string"},
                "model": {"type": "string"},
                "year": {"type": "integer"},
                "price_per_day": {"type": "number"},
                "type": {"type": "string"},
                "imageUrl": {"type": "string"}
            }
        },
        "model.CartItem": {
            "type": "object",
            "properties": {
                "cartItemId": {"type": "integer"},
                "car": {"$ref": "#/definitions/model.Car"},
                "days": {"type": "integer"},
                "dailyRate": {"type": "number"},
                "subtotal": {"type": "number"}
            }
        },
        "model.Cart": {
            "type": "object",
            "properties": {
                "items": {"type": "array", "items": {"$ref": "#/definitions/model.CartItem"}},
                "totalAmount": {"type": "number"}
            }
        },
        "model.User": {
            "type": "object",
            "properties": {
                "userId": {"type": "integer"},
                "first_name": {"type": "string"},
                "last_name": {"type": "string"},
                "user_name": {"type": "string"},
                "email": {"type": "string"},
                "role": {"type": "string", "enum": ["USER", "ADMIN"]},
                "created_at": {"type": "string", "example": "2024-01-31T09:15:00"}
            }
        },
        "service.CarInput": {
            "type": "object",
            "required": ["make", "model", "year"],
            "properties": {
                "make": {"type": "string"},
                "model": {"type": "string"},
                "year": {"type": "integer"},
                "price_per_day": {"type": "number"},
                "type": {"type": "string"},
                "imageUrl": {"type": "string"}
            }
        },
        "service.CreateUserInput": {
            "type": "object",
            "required": ["first_name", "last_name", "user_name", "email", "password"],
            "properties": {
                "first_name": {"type": "string"},
                "last_name": {"type": "string"},
                "user_name": {"type": "string"},
                "email": {"type": "string"},
                "password": {"type": "string"},
                "role": {"type": "string", "enum": ["USER", "ADMIN"]},
                "created_at": {"type": "string"}
            }
        },
        "service.UpdateProfileInput": {
            "type": "object",
            "required": ["first_name", "last_name", "user_name", "email"],
            "properties": {
                "first_name": {"type": "string"},
                "last_name": {"type": "string"},
                "user_name": {"type": "string"},
                "email": {"type": "string"},
                "password": {"type": "string"}
            }
        }
    },
    "securityDefinitions": {
        "BearerAuth": {
            "description": "Type \"Bearer\" followed by a space and JWT token.",
            "type": "apiKey",
            "name": "Authorization",
            "in": "header"
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "localhost:8080",
	BasePath:         "/api",
	Schemes:          []string{"http"},
	Title:            "Car Rental API",
	Description:      "Development backend for the car-rental storefront: cars, carts, users and JWT authentication.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
