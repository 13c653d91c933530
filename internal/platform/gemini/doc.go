// Package gemini translates non-English generation prompts to English using
// Google's Gemini API before they are sent to the image bot.
//
// Prompts without CJK characters are returned unchanged without an API call.
// Transient API failures are retried with exponential backoff; a prompt that
// still cannot be translated fails the request rather than being submitted
// untranslated.
package gemini
