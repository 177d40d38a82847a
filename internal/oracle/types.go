// Package oracle provides a client for the Gemini generateContent API, used
// as the speech analysis oracle.
package oracle

import "time"

// Config holds configuration for the oracle client
type Config struct {
	APIKey  string        `json:"api_key"`
	Model   string        `json:"model"`
	BaseURL string        `json:"base_url"`
	Timeout time.Duration `json:"timeout"`
}

// DefaultConfig returns a Config with sensible defaults
func DefaultConfig() Config {
	return Config{
		Model:   "gemini-2.0-flash",
		BaseURL: "https://generativelanguage.googleapis.com/v1beta",
		Timeout: 120 * time.Second, // audio transcription is slow
	}
}

// Wire types for the generateContent endpoint. Only the fields this client
// uses are modeled.

type generateContentRequest struct {
	Contents         []content         `json:"contents"`
	GenerationConfig *generationConfig `json:"generationConfig,omitempty"`
}

type content struct {
	Role  string `json:"role,omitempty"`
	Parts []part `json:"parts"`
}

type part struct {
	Text       string      `json:"text,omitempty"`
	InlineData *inlineData `json:"inlineData,omitempty"`
}

// inlineData carries the audio bytes, base64-encoded, inline in the request.
type inlineData struct {
	MimeType string `json:"mimeType"`
	Data     string `json:"data"`
}

type generationConfig struct {
	ResponseMimeType   string `json:"responseMimeType,omitempty"`
	ResponseJsonSchema any    `json:"responseJsonSchema,omitempty"`
}

type generateContentResponse struct {
	Candidates []candidate `json:"candidates"`
}

type candidate struct {
	Content      content `json:"content"`
	FinishReason string  `json:"finishReason,omitempty"`
}

// apiError is the error envelope returned by the API on non-2xx responses.
type apiError struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error"`
}
