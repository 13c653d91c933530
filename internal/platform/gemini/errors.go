package gemini

import "errors"

// Error definitions for the gemini package.
var (
	// ErrInvalidConfig is returned when the translator is constructed with
	// missing or invalid settings.
	ErrInvalidConfig = errors.New("invalid gemini configuration")

	// ErrTranslationFailed is returned when the API call fails or returns no text.
	ErrTranslationFailed = errors.New("prompt translation failed")
)
