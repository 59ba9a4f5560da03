// Package docs holds the OpenAPI description served at /swagger.
package docs

import "github.com/swaggo/swag"

// @title           TaskPro API
// @version         1.0
// @description     Multi-tenant task management with invite-based onboarding.
// @BasePath        /

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and the JWT.

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "securityDefinitions": {
        "BearerAuth": {"type": "apiKey", "name": "Authorization", "in": "header"}
    },
    "paths": {
        "/register": {"post": {"tags": ["Auth"], "summary": "Register by creating an organization or redeeming an invite",
            "parameters": [{"in": "body", "name": "body", "required": true, "schema": {"$ref": "#/definitions/RegisterRequest"}}],
            "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/Session"}},
                "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/ErrorBody"}},
                "409": {"description": "Conflict", "schema": {"$ref": "#/definitions/ErrorBody"}}}}},
        "/register/admin": {"post": {"tags": ["Auth"], "summary": "Register an Admin, creating the organization if needed",
            "parameters": [{"in": "body", "name": "body", "required": true, "schema": {"$ref": "#/definitions/RegisterRequest"}}],
            "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/Session"}}}}},
        "/register/manager": {"post": {"tags": ["Auth"], "summary": "Register a Manager with a Manager invite",
            "parameters": [{"in": "body", "name": "body", "required": true, "schema": {"$ref": "#/definitions/RegisterRequest"}}],
            "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/Session"}},
                "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/ErrorBody"}}}}},
        "/register/member": {"post": {"tags": ["Auth"], "summary": "Register a Member into an existing organization",
            "parameters": [{"in": "body", "name": "body", "required": true, "schema": {"$ref": "#/definitions/RegisterRequest"}}],
            "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/Session"}}}}},
        "/login": {"post": {"tags": ["Auth"], "summary": "Log in with email and password",
            "parameters": [{"in": "body", "name": "body", "required": true, "schema": {"$ref": "#/definitions/LoginRequest"}}],
            "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/Session"}},
                "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/ErrorBody"}}}}},
        "/org": {
            "get": {"tags": ["Organization"], "summary": "Get the caller's organization", "security": [{"BearerAuth": []}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/Organization"}}}},
            "post": {"tags": ["Organization"], "summary": "Create an organization and move the caller into it", "security": [{"BearerAuth": []}],
                "responses": {"201": {"description": "Created", "schema": {"$ref": "#/definitions/Organization"}}}},
            "put": {"tags": ["Organization"], "summary": "Rename or retheme the caller's organization", "security": [{"BearerAuth": []}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/Organization"}}}},
            "delete": {"tags": ["Organization"], "summary": "Delete the caller's organization and everything in it", "security": [{"BearerAuth": []}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ErrorBody"}}}}},
        "/invite": {"post": {"tags": ["Invites"], "summary": "Invite a user into the caller's organization", "security": [{"BearerAuth": []}],
            "responses": {"201": {"description": "Created", "schema": {"$ref": "#/definitions/CreateInviteResponse"}},
                "403": {"description": "Forbidden", "schema": {"$ref": "#/definitions/ErrorBody"}}}}},
        "/invites": {"get": {"tags": ["Invites"], "summary": "List open invites", "security": [{"BearerAuth": []}],
            "responses": {"200": {"description": "OK"}}}},
        "/members": {"get": {"tags": ["Members"], "summary": "List organization members", "security": [{"BearerAuth": []}],
            "responses": {"200": {"description": "OK", "schema": {"type": "array", "items": {"$ref": "#/definitions/User"}}}}}},
        "/tasks": {
            "get": {"tags": ["Tasks"], "summary": "List the caller's organization tasks", "security": [{"BearerAuth": []}],
                "parameters": [{"in": "query", "name": "status", "type": "string"}, {"in": "query", "name": "category", "type": "string"},
                    {"in": "query", "name": "priority", "type": "string"}, {"in": "query", "name": "assignedTo", "type": "string"}],
                "responses": {"200": {"description": "OK", "schema": {"type": "array", "items": {"$ref": "#/definitions/Task"}}}}},
            "post": {"tags": ["Tasks"], "summary": "Create a task", "security": [{"BearerAuth": []}],
                "responses": {"201": {"description": "Created", "schema": {"$ref": "#/definitions/Task"}}}}},
        "/tasks/{id}": {
            "get": {"tags": ["Tasks"], "summary": "Get a task", "security": [{"BearerAuth": []}],
                "parameters": [{"in": "path", "name": "id", "required": true, "type": "string"}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/Task"}}, "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/ErrorBody"}}}},
            "put": {"tags": ["Tasks"], "summary": "Partially update a task", "security": [{"BearerAuth": []}],
                "parameters": [{"in": "path", "name": "id", "required": true, "type": "string"}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/Task"}}, "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/ErrorBody"}}}},
            "delete": {"tags": ["Tasks"], "summary": "Delete a task", "security": [{"BearerAuth": []}],
                "parameters": [{"in": "path", "name": "id", "required": true, "type": "string"}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ErrorBody"}}}}},
        "/tasks/{id}/status": {"patch": {"tags": ["Tasks"], "summary": "Move a task through its lifecycle", "security": [{"BearerAuth": []}],
            "parameters": [{"in": "path", "name": "id", "required": true, "type": "string"}],
            "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/Task"}},
                "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/ErrorBody"}},
                "403": {"description": "Forbidden", "schema": {"$ref": "#/definitions/ErrorBody"}}}}},
        "/dashboard/stats": {"get": {"tags": ["Dashboard"], "summary": "Task counts for the caller's organization", "security": [{"BearerAuth": []}],
            "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/Stats"}}}}},
        "/emails": {"get": {"tags": ["Emails"], "summary": "Invite email delivery log", "security": [{"BearerAuth": []}],
            "responses": {"200": {"description": "OK"}}}}
    },
    "definitions": {
        "ErrorBody": {"type": "object", "properties": {"message": {"type": "string"}}},
        "RegisterRequest": {"type": "object", "required": ["name", "email", "password"], "properties": {
            "name": {"type": "string"}, "email": {"type": "string"}, "password": {"type": "string", "minLength": 6},
            "organizationName": {"type": "string"}, "inviteToken": {"type": "string"}}},
        "LoginRequest": {"type": "object", "required": ["email", "password"], "properties": {
            "email": {"type": "string"}, "password": {"type": "string"}}},
        "User": {"type": "object", "properties": {"id": {"type": "string"}, "name": {"type": "string"}, "email": {"type": "string"},
            "role": {"type": "string", "enum": ["Admin", "Manager", "Member"]}, "organizationId": {"type": "string"},
            "invitedBy": {"type": "string"}, "createdAt": {"type": "string"}}},
        "Session": {"type": "object", "properties": {"token": {"type": "string"}, "user": {"$ref": "#/definitions/User"}}},
        "Organization": {"type": "object", "properties": {"id": {"type": "string"}, "name": {"type": "string"},
            "theme": {"type": "string"}, "createdAt": {"type": "string"}}},
        "CreateInviteResponse": {"type": "object", "properties": {"inviteLink": {"type": "string"},
            "expiresAt": {"type": "string"}, "inviteId": {"type": "string"}}},
        "Task": {"type": "object", "properties": {"id": {"type": "string"}, "title": {"type": "string"},
            "description": {"type": "string"}, "organizationId": {"type": "string"}, "assignedTo": {"type": "string"},
            "category": {"type": "string", "enum": ["Bug", "Feature", "Improvement"]},
            "priority": {"type": "string", "enum": ["Low", "Medium", "High"]},
            "dueDate": {"type": "string"}, "status": {"type": "string", "enum": ["Todo", "In Progress", "Completed", "Expired"]},
            "createdBy": {"type": "string"}, "createdAt": {"type": "string"}, "updatedAt": {"type": "string"}}},
        "Stats": {"type": "object", "properties": {"total": {"type": "integer"}, "overdue": {"type": "integer"},
            "completed": {"type": "integer"},
            "byCategory": {"type": "object", "additionalProperties": {"type": "integer"}},
            "byPriority": {"type": "object", "additionalProperties": {"type": "integer"}}}}
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it.
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/",
	Schemes:          []string{},
	Title:            "TaskPro API",
	Description:      "Multi-tenant task management with invite-based onboarding.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
