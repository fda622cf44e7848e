// Package http provides HTTP server and handler implementations.
//
// This file implements a small builder for the plain-text, JSON and redirect
// responses the handlers send.

package http

import (
	"encoding/json"
	"net/http"
)

const (
	msgUnauthorized       = "Unauthorized"
	msgInvalidCredentials = "Invalid Credentials"
	msgMissingFields      = "Missing required fields"
	msgInvalidAmount      = "Invalid amount"
	msgInvalidDate        = "Invalid date"
	msgInvalidBody        = "Invalid request body"
	msgBodyTooLarge       = "Request body too large"
	msgInternal           = "Internal Server Error"
	msgCostAdded          = "Cost added successfully"
)

// messageBody is the minimal JSON failure/success body.
type messageBody struct {
	Message string `json:"message"`
}

// ResponseBuilder provides a fluent API for building responses.
type ResponseBuilder struct {
	statusCode int
	body       []byte
	headers    map[string]string
	cookies    []*http.Cookie
	location   string
}

// NewResponse creates a new response builder with default 200 status.
func NewResponse() *ResponseBuilder {
	return &ResponseBuilder{
		statusCode: http.StatusOK,
		headers:    make(map[string]string),
	}
}

// Status sets the HTTP status code for the response.
func (b *ResponseBuilder) Status(code int) *ResponseBuilder {
	b.statusCode = code
	return b
}

// Header adds a custom header to the response.
func (b *ResponseBuilder) Header(name, value string) *ResponseBuilder {
	b.headers[name] = value
	return b
}

// Cookie queues a Set-Cookie header.
func (b *ResponseBuilder) Cookie(c *http.Cookie) *ResponseBuilder {
	b.cookies = append(b.cookies, c)
	return b
}

// Text sets a plain-text body.
func (b *ResponseBuilder) Text(s string) *ResponseBuilder {
	b.headers["Content-Type"] = "text/plain; charset=utf-8"
	b.body = []byte(s)
	return b
}

// Body sets the raw response body.
func (b *ResponseBuilder) Body(content []byte) *ResponseBuilder {
	b.body = content
	return b
}

// JSON sets v, encoded, as the body. An encoding failure turns the response
// into a 500.
func (b *ResponseBuilder) JSON(v any) *ResponseBuilder {
	data, err := json.Marshal(v)
	if err != nil {
		b.statusCode = http.StatusInternalServerError
		data, _ = json.Marshal(messageBody{Message: msgInternal})
	}
	b.headers["Content-Type"] = "application/json; charset=utf-8"
	b.body = data
	return b
}

// Redirect makes the response a 302 to location.
func (b *ResponseBuilder) Redirect(location string) *ResponseBuilder {
	b.statusCode = http.StatusFound
	b.location = location
	return b
}

// Write sends the built response to the http.ResponseWriter.
func (b *ResponseBuilder) Write(w http.ResponseWriter) {
	for name, value := range b.headers {
		w.Header().Set(name, value)
	}
	for _, c := range b.cookies {
		http.SetCookie(w, c)
	}
	if b.location != "" {
		w.Header().Set("Location", b.location)
	}

	w.WriteHeader(b.statusCode)
	if len(b.body) > 0 {
		_, _ = w.Write(b.body)
	}
}

// PlainError creates a plain-text error response.
func PlainError(statusCode int, message string) *ResponseBuilder {
	return NewResponse().Status(statusCode).Text(message)
}

// JSONMessage creates a `{"message": ...}` response.
func JSONMessage(statusCode int, message string) *ResponseBuilder {
	return NewResponse().Status(statusCode).JSON(messageBody{Message: message})
}
