// Package docs registers the OpenAPI description served at /api/swagger.
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
        "/auth/signup": {"post": {"tags": ["auth"], "summary": "User signup", "responses": {"201": {"description": "Created"}}}},
        "/auth/login": {"post": {"tags": ["auth"], "summary": "User login", "responses": {"200": {"description": "OK"}}}},
        "/auth/logout": {"post": {"tags": ["auth"], "summary": "Logout", "responses": {"200": {"description": "OK"}}}},
        "/posts": {
            "get": {"tags": ["posts"], "summary": "List posts", "responses": {"200": {"description": "OK"}}},
            "post": {"tags": ["posts"], "summary": "Create a post", "responses": {"201": {"description": "Created"}}}
        },
        "/posts/mine": {"get": {"tags": ["posts"], "summary": "List the caller's posts", "responses": {"200": {"description": "OK"}}}},
        "/posts/{id}": {
            "get": {"tags": ["posts"], "summary": "Get a post", "parameters": [{"type": "string", "name": "id", "in": "path", "required": true}], "responses": {"200": {"description": "OK"}}},
            "put": {"tags": ["posts"], "summary": "Update a post", "parameters": [{"type": "string", "name": "id", "in": "path", "required": true}], "responses": {"200": {"description": "OK"}}},
            "delete": {"tags": ["posts"], "summary": "Delete a post", "parameters": [{"type": "string", "name": "id", "in": "path", "required": true}], "responses": {"200": {"description": "OK"}}}
        },
        "/posts/{id}/like": {"put": {"tags": ["posts"], "summary": "Like a post", "parameters": [{"type": "string", "name": "id", "in": "path", "required": true}], "responses": {"200": {"description": "OK"}}}},
        "/posts/{id}/unlike": {"put": {"tags": ["posts"], "summary": "Unlike a post", "parameters": [{"type": "string", "name": "id", "in": "path", "required": true}], "responses": {"200": {"description": "OK"}}}},
        "/comments": {"post": {"tags": ["comments"], "summary": "Comment on a post", "responses": {"201": {"description": "Created"}}}},
        "/comments/{postId}": {"get": {"tags": ["comments"], "summary": "List a post's comments, newest first", "parameters": [{"type": "string", "name": "postId", "in": "path", "required": true}], "responses": {"200": {"description": "OK"}}}},
        "/comments/{id}": {
            "put": {"tags": ["comments"], "summary": "Edit a comment", "parameters": [{"type": "string", "name": "id", "in": "path", "required": true}], "responses": {"200": {"description": "OK"}}},
            "delete": {"tags": ["comments"], "summary": "Delete a comment", "parameters": [{"type": "string", "name": "id", "in": "path", "required": true}], "responses": {"200": {"description": "OK"}}}
        },
        "/comments/{id}/like": {"put": {"tags": ["comments"], "summary": "Like or unlike a comment", "parameters": [{"type": "string", "name": "id", "in": "path", "required": true}], "responses": {"200": {"description": "OK"}}}},
        "/users/me": {"get": {"tags": ["users"], "summary": "Current user", "responses": {"200": {"description": "OK"}}}},
        "/users/update": {"put": {"tags": ["users"], "summary": "Update profile", "consumes": ["multipart/form-data"], "responses": {"200": {"description": "OK"}}}},
        "/users/stats": {"get": {"tags": ["users"], "summary": "Authored content counters", "responses": {"200": {"description": "OK"}}}},
        "/upload": {"post": {"tags": ["images"], "summary": "Upload a cover image", "consumes": ["multipart/form-data"], "responses": {"200": {"description": "OK"}}}},
        "/ws/ticket": {"post": {"tags": ["realtime"], "summary": "Issue websocket ticket", "responses": {"200": {"description": "OK"}}}},
        "/features": {"get": {"tags": ["features"], "summary": "Feature flags evaluated for the caller", "responses": {"200": {"description": "OK"}}}}
    },
    "securityDefinitions": {
        "BearerAuth": {"type": "apiKey", "name": "Authorization", "in": "header"}
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/api",
	Schemes:          []string{},
	Title:            "Blogify API",
	Description:      "Posts, threaded comments and live comment updates.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
