package service

import "errors"

// Sentinel errors returned by the trigger service. The API layer maps them to
// HTTP status codes.
var (
	// ErrTaskNotFound indicates the task does not exist or has expired.
	// API layer should map this to HTTP 404 Not Found.
	ErrTaskNotFound = errors.New("task not found")

	// ErrBannedPrompt indicates the prompt contains a banned word.
	// API layer should map this to HTTP 400 Bad Request.
	ErrBannedPrompt = errors.New("prompt contains banned words")

	// ErrInvalidRequest indicates the request failed validation.
	// API layer should map this to HTTP 400 Bad Request.
	ErrInvalidRequest = errors.New("invalid request")
)
