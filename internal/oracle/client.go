package oracle

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"log/slog"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/speechcoach/speechcoach-go/internal/conf"
	"github.com/speechcoach/speechcoach-go/internal/errors"
	"github.com/speechcoach/speechcoach-go/internal/logging"
	"github.com/speechcoach/speechcoach-go/internal/observability/metrics"
)

// Package-level logger specific to the oracle service
var (
	logger          *slog.Logger
	serviceLevelVar = new(slog.LevelVar) // Dynamic level control
	closeLogger     func() error
)

func init() {
	var err error
	logFilePath := filepath.Join("logs", "oracle.log")
	initialLevel := slog.LevelDebug
	serviceLevelVar.Set(initialLevel)

	logger, closeLogger, err = logging.NewFileLogger(logFilePath, "oracle", serviceLevelVar)
	if err != nil {
		log.Printf("FATAL: Failed to initialize oracle file logger at %s: %v. Service logging disabled.", logFilePath, err)
		fbHandler := slog.NewJSONHandler(io.Discard, &slog.HandlerOptions{Level: serviceLevelVar})
		logger = slog.New(fbHandler).With("service", "oracle")
		closeLogger = func() error { return nil }
	}
}

// Client calls the Gemini generateContent endpoint with inline audio and
// returns the model's raw JSON analysis. One request per call, no retries:
// retrying a two-minute transcription on top of user-driven retry semantics
// only multiplies cost.
type Client struct {
	config     Config
	httpClient *http.Client
	metrics    *metrics.OracleMetrics
	debug      bool
}

// NewClient creates a new oracle client. om may be nil in tests.
func NewClient(config Config, om *metrics.OracleMetrics) (*Client, error) {
	if config.APIKey == "" {
		return nil, errors.Newf("oracle API key is required").
			Category(errors.CategoryConfiguration).
			Component("oracle").
			Build()
	}

	if config.Model == "" {
		config.Model = DefaultConfig().Model
	}
	if config.BaseURL == "" {
		config.BaseURL = DefaultConfig().BaseURL
	}
	if config.Timeout == 0 {
		config.Timeout = DefaultConfig().Timeout
	}

	settings := conf.GetSettings()
	debug := settings != nil && (settings.Debug || settings.Oracle.Debug)

	client := &Client{
		config: config,
		httpClient: &http.Client{
			Timeout: config.Timeout,
		},
		metrics: om,
		debug:   debug,
	}

	logger.Info("oracle client initialized",
		"model", config.Model,
		"base_url", config.BaseURL,
		"timeout", config.Timeout,
		"api_key_configured", config.APIKey != "")

	return client, nil
}

// FromSettings builds a client from the application configuration.
func FromSettings(settings *conf.Settings, om *metrics.OracleMetrics) (*Client, error) {
	return NewClient(Config{
		APIKey:  settings.Oracle.APIKey,
		Model:   settings.Oracle.Model,
		BaseURL: settings.Oracle.BaseURL,
		Timeout: time.Duration(settings.Oracle.TimeoutSeconds) * time.Second,
	}, om)
}

// Close cleans up client resources
func (c *Client) Close() {
	logger.Info("closing oracle client")
	if closeLogger != nil {
		if err := closeLogger(); err != nil {
			log.Printf("Error closing oracle logger: %v", err)
		}
	}
}

// Analyze sends the audio to the model and returns the raw analysis document.
// The caller is responsible for validating the payload; nothing here inspects
// it beyond stripping a markdown code fence.
func (c *Client) Analyze(ctx context.Context, audio []byte, mimeType string) ([]byte, error) {
	if len(audio) == 0 {
		return nil, errors.Newf("no audio data to analyze").
			Category(errors.CategoryValidation).
			Component("oracle").
			Build()
	}

	reqCtx, cancel := context.WithTimeout(ctx, c.config.Timeout)
	defer cancel()

	reqBody := &generateContentRequest{
		Contents: []content{{
			Role: "user",
			Parts: []part{
				{Text: analysisPrompt},
				{InlineData: &inlineData{
					MimeType: mimeType,
					Data:     base64.StdEncoding.EncodeToString(audio),
				}},
			},
		}},
		GenerationConfig: &generationConfig{
			ResponseMimeType:   "application/json",
			ResponseJsonSchema: responseSchema,
		},
	}

	if c.debug {
		logger.Debug("oracle request",
			"model", c.config.Model,
			"mime_type", mimeType,
			"audio_bytes", len(audio))
	}

	start := time.Now()
	resp, err := c.doRequest(reqCtx, reqBody)
	elapsed := time.Since(start)
	if err != nil {
		return nil, err
	}
	if c.metrics != nil {
		c.metrics.RecordRequest(elapsed.Seconds())
	}

	text := extractText(resp)
	if text == "" {
		c.recordError("empty_response")
		logger.Error("oracle returned no text candidate",
			"model", c.config.Model,
			"candidates", len(resp.Candidates))
		return nil, errors.Newf("oracle returned no analysis text").
			Category(errors.CategoryOracle).
			Context("model", c.config.Model).
			Component("oracle").
			Build()
	}

	payload := []byte(extractJSON(text))
	if c.metrics != nil {
		c.metrics.ResponseSize.Observe(float64(len(payload)))
	}
	logger.Info("oracle analysis received",
		"model", c.config.Model,
		"duration_ms", elapsed.Milliseconds(),
		"payload_bytes", len(payload))

	return payload, nil
}

func (c *Client) doRequest(ctx context.Context, reqBody *generateContentRequest) (*generateContentResponse, error) {
	encoded, err := json.Marshal(reqBody)
	if err != nil {
		c.recordError("encode")
		return nil, errors.Newf("failed to encode oracle request: %w", err).
			Category(errors.CategoryOracle).
			Component("oracle").
			Build()
	}

	url := fmt.Sprintf("%s/models/%s:generateContent", c.config.BaseURL, c.config.Model)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(encoded))
	if err != nil {
		c.recordError("request")
		return nil, errors.Newf("failed to create HTTP request: %w", err).
			Category(errors.CategoryNetwork).
			Context("url", url).
			Component("oracle").
			Build()
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", c.config.APIKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.recordError("transport")
		logger.Error("oracle request failed",
			"error", err,
			"model", c.config.Model)
		return nil, errors.Newf("oracle request failed: %w", err).
			Category(errors.CategoryOracle).
			Context("model", c.config.Model).
			Component("oracle").
			Build()
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		c.recordError("read")
		return nil, errors.Newf("failed to read oracle response: %w", err).
			Category(errors.CategoryNetwork).
			Context("status_code", resp.StatusCode).
			Component("oracle").
			Build()
	}

	if resp.StatusCode != http.StatusOK {
		c.recordError(fmt.Sprintf("http_%d", resp.StatusCode))

		var ae apiError
		message := strings.TrimSpace(string(bodyBytes))
		if jsonErr := json.Unmarshal(bodyBytes, &ae); jsonErr == nil && ae.Error.Message != "" {
			message = ae.Error.Message
		}
		if len(message) > 500 {
			message = message[:500] + "..."
		}

		logger.Error("oracle returned error status",
			"status_code", resp.StatusCode,
			"model", c.config.Model,
			"message", message)
		return nil, errors.Newf("oracle returned status %d: %s", resp.StatusCode, message).
			Category(errors.CategoryOracle).
			Context("status_code", resp.StatusCode).
			Context("model", c.config.Model).
			Component("oracle").
			Build()
	}

	var decoded generateContentResponse
	if err := json.Unmarshal(bodyBytes, &decoded); err != nil {
		c.recordError("decode")
		return nil, errors.Newf("failed to decode oracle response: %w", err).
			Category(errors.CategoryOracle).
			Context("model", c.config.Model).
			Component("oracle").
			Build()
	}

	return &decoded, nil
}

func (c *Client) recordError(kind string) {
	if c.metrics != nil {
		c.metrics.RecordError(kind)
	}
}

// extractText returns the first non-empty text part across candidates.
func extractText(resp *generateContentResponse) string {
	if resp == nil {
		return ""
	}
	for i := range resp.Candidates {
		for _, p := range resp.Candidates[i].Content.Parts {
			if strings.TrimSpace(p.Text) != "" {
				return p.Text
			}
		}
	}
	return ""
}

// extractJSON strips a surrounding markdown code fence if the model added one
// despite the JSON response mime type.
func extractJSON(text string) string {
	s := strings.TrimSpace(text)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	if idx := strings.Index(s, "\n"); idx != -1 {
		s = s[idx+1:]
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
