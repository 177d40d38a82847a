package oracle

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/jarcoal/httpmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/speechcoach/speechcoach-go/internal/errors"
)

const testEndpoint = "https://oracle.test/v1beta/models/gemini-2.0-flash:generateContent"

func newTestClient(t *testing.T) *Client {
	t.Helper()
	client, err := NewClient(Config{
		APIKey:  "test-key",
		Model:   "gemini-2.0-flash",
		BaseURL: "https://oracle.test/v1beta",
	}, nil)
	require.NoError(t, err)

	httpmock.ActivateNonDefault(client.httpClient)
	t.Cleanup(httpmock.DeactivateAndReset)
	return client
}

func generateContentBody(text string) map[string]any {
	return map[string]any{
		"candidates": []any{
			map[string]any{
				"content": map[string]any{
					"role":  "model",
					"parts": []any{map[string]any{"text": text}},
				},
				"finishReason": "STOP",
			},
		},
	}
}

func TestNewClientRequiresAPIKey(t *testing.T) {
	client, err := NewClient(Config{}, nil)
	require.Error(t, err)
	assert.Nil(t, client)
	assert.True(t, errors.IsCategory(err, errors.CategoryConfiguration))
}

func TestNewClientAppliesDefaults(t *testing.T) {
	client, err := NewClient(Config{APIKey: "k"}, nil)
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig().Model, client.config.Model)
	assert.Equal(t, DefaultConfig().BaseURL, client.config.BaseURL)
	assert.Equal(t, DefaultConfig().Timeout, client.config.Timeout)
}

func TestAnalyzeSendsPromptAndInlineAudio(t *testing.T) {
	client := newTestClient(t)
	audio := []byte{0x1a, 0x45, 0xdf, 0xa3, 0x01}

	var captured generateContentRequest
	httpmock.RegisterResponder(http.MethodPost, testEndpoint,
		func(req *http.Request) (*http.Response, error) {
			assert.Equal(t, "test-key", req.Header.Get("x-goog-api-key"))
			assert.Equal(t, "application/json", req.Header.Get("Content-Type"))
			require.NoError(t, json.NewDecoder(req.Body).Decode(&captured))
			return httpmock.NewJsonResponse(http.StatusOK, generateContentBody(`{"transcript":"hi"}`))
		})

	payload, err := client.Analyze(context.Background(), audio, "audio/webm")
	require.NoError(t, err)
	assert.JSONEq(t, `{"transcript":"hi"}`, string(payload))

	require.Len(t, captured.Contents, 1)
	require.Len(t, captured.Contents[0].Parts, 2)
	assert.Equal(t, analysisPrompt, captured.Contents[0].Parts[0].Text)

	inline := captured.Contents[0].Parts[1].InlineData
	require.NotNil(t, inline)
	assert.Equal(t, "audio/webm", inline.MimeType)
	assert.Equal(t, base64.StdEncoding.EncodeToString(audio), inline.Data)

	require.NotNil(t, captured.GenerationConfig)
	assert.Equal(t, "application/json", captured.GenerationConfig.ResponseMimeType)
	assert.NotNil(t, captured.GenerationConfig.ResponseJsonSchema)
}

func TestAnalyzeRejectsEmptyAudio(t *testing.T) {
	client := newTestClient(t)

	_, err := client.Analyze(context.Background(), nil, "audio/webm")
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryValidation))
	assert.Zero(t, httpmock.GetTotalCallCount())
}

func TestAnalyzeStripsCodeFence(t *testing.T) {
	client := newTestClient(t)

	httpmock.RegisterResponder(http.MethodPost, testEndpoint,
		httpmock.NewJsonResponderOrPanic(http.StatusOK,
			generateContentBody("```json\n{\"transcript\":\"fenced\"}\n```")))

	payload, err := client.Analyze(context.Background(), []byte{1}, "audio/mp4")
	require.NoError(t, err)
	assert.JSONEq(t, `{"transcript":"fenced"}`, string(payload))
}

func TestAnalyzeAPIErrorStatus(t *testing.T) {
	client := newTestClient(t)

	httpmock.RegisterResponder(http.MethodPost, testEndpoint,
		httpmock.NewJsonResponderOrPanic(http.StatusTooManyRequests, map[string]any{
			"error": map[string]any{
				"code":    429,
				"message": "Resource has been exhausted",
				"status":  "RESOURCE_EXHAUSTED",
			},
		}))

	_, err := client.Analyze(context.Background(), []byte{1}, "audio/webm")
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryOracle))
	assert.Contains(t, err.Error(), "Resource has been exhausted")
	assert.Contains(t, err.Error(), "429")
}

func TestAnalyzeTransportError(t *testing.T) {
	client := newTestClient(t)

	httpmock.RegisterResponder(http.MethodPost, testEndpoint,
		httpmock.NewErrorResponder(assert.AnError))

	_, err := client.Analyze(context.Background(), []byte{1}, "audio/webm")
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryOracle))
}

func TestAnalyzeEmptyCandidates(t *testing.T) {
	client := newTestClient(t)

	httpmock.RegisterResponder(http.MethodPost, testEndpoint,
		httpmock.NewJsonResponderOrPanic(http.StatusOK, map[string]any{"candidates": []any{}}))

	_, err := client.Analyze(context.Background(), []byte{1}, "audio/webm")
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryOracle))
}

func TestExtractJSON(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{"plain", `{"a":1}`, `{"a":1}`},
		{"fenced with language", "```json\n{\"a\":1}\n```", `{"a":1}`},
		{"fenced bare", "```\n{\"a\":1}\n```", `{"a":1}`},
		{"surrounding whitespace", "  {\"a\":1}\n", `{"a":1}`},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, extractJSON(tc.in))
		})
	}
}
