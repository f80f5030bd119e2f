// Package fallback implements the vision-language fallback classifier
// consulted once the primary classifier's retry budget is exhausted.
package fallback

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"log/slog"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/tphakala/speciesnet-go/internal/errors"
	"github.com/tphakala/speciesnet-go/internal/logging"
	"github.com/tphakala/speciesnet-go/internal/prediction"
)

// Package-level logger specific to the fallback service
var (
	logger          *slog.Logger
	serviceLevelVar = new(slog.LevelVar) // Dynamic level control
	closeLogger     func() error
)

func init() {
	var err error
	logFilePath := filepath.Join("logs", "fallback.log")
	serviceLevelVar.Set(slog.LevelDebug)

	logger, closeLogger, err = logging.NewFileLogger(logFilePath, "fallback", serviceLevelVar)
	if err != nil {
		// Fallback: log error to standard log and disable service logging
		log.Printf("FATAL: Failed to initialize fallback file logger at %s: %v. Service logging disabled.", logFilePath, err)
		fbHandler := slog.NewJSONHandler(io.Discard, &slog.HandlerOptions{Level: serviceLevelVar})
		logger = slog.New(fbHandler).With("service", "fallback")
		closeLogger = func() error { return nil }
	}
}

// Config holds settings for the fallback classifier client.
type Config struct {
	APIKey     string        // API key; an empty key disables the client
	Model      string        // vision model name
	Endpoint   string        // chat completions endpoint
	MaxResults int           // maximum species guesses requested per image
	RegionName string        // region used to scope the prompt
	Threshold  float64       // minimum confidence for returned guesses
	Timeout    time.Duration // per-request timeout
	CacheTTL   time.Duration // how long per-URL results are cached
}

// DefaultConfig returns a Config with production defaults.
func DefaultConfig() Config {
	return Config{
		Model:      "gpt-4o",
		Endpoint:   "https://api.openai.com/v1/chat/completions",
		MaxResults: 3,
		RegionName: "Long Island, New York",
		Threshold:  0.30,
		Timeout:    60 * time.Second,
		CacheTTL:   24 * time.Hour,
	}
}

// Client calls the vision-language service for species identification.
type Client struct {
	config     Config
	httpClient *http.Client
	cache      *cache.Cache
}

// NewClient creates a new fallback classifier client. A client without an
// API key is valid but disabled; Identify on a disabled client is an error.
func NewClient(config Config) *Client {
	defaults := DefaultConfig()
	if config.Model == "" {
		config.Model = defaults.Model
	}
	if config.Endpoint == "" {
		config.Endpoint = defaults.Endpoint
	}
	if config.MaxResults <= 0 {
		config.MaxResults = defaults.MaxResults
	}
	if config.Timeout <= 0 {
		config.Timeout = defaults.Timeout
	}
	if config.CacheTTL <= 0 {
		config.CacheTTL = defaults.CacheTTL
	}

	client := &Client{
		config: config,
		httpClient: &http.Client{
			Timeout: config.Timeout,
		},
		cache: cache.New(config.CacheTTL, config.CacheTTL*2),
	}

	logger.Info("Fallback classifier client initialized",
		"model", config.Model,
		"max_results", config.MaxResults,
		"region", config.RegionName,
		"api_key_configured", config.APIKey != "")

	return client
}

// Close cleans up client resources.
func (c *Client) Close() {
	logger.Info("Closing fallback classifier client")
	if closeLogger != nil {
		if err := closeLogger(); err != nil {
			log.Printf("Error closing fallback logger: %v", err)
		}
	}
}

// Enabled reports whether the client has an API key configured.
func (c *Client) Enabled() bool {
	return c.config.APIKey != ""
}

// chat completions request/response wire types

type chatRequest struct {
	Model     string        `json:"model"`
	Messages  []chatMessage `json:"messages"`
	MaxTokens int           `json:"max_tokens"`
}

type chatMessage struct {
	Role    string        `json:"role"`
	Content []contentPart `json:"content"`
}

type contentPart struct {
	Type     string        `json:"type"`
	Text     string        `json:"text,omitempty"`
	ImageURL *imageURLPart `json:"image_url,omitempty"`
}

type imageURLPart struct {
	URL string `json:"url"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// Identify requests up to MaxResults species guesses for the image at
// imageURL, scoped to the configured region and filtered by the confidence
// threshold. Results are cached per URL for the configured TTL.
func (c *Client) Identify(ctx context.Context, imageURL string) ([]prediction.Prediction, error) {
	if !c.Enabled() {
		return nil, errors.Newf("fallback classifier API key not configured").
			Category(errors.CategoryConfiguration).
			Component("fallback").
			Build()
	}

	if cached, found := c.cache.Get(imageURL); found {
		if preds, ok := cached.([]prediction.Prediction); ok {
			logger.Debug("Fallback result cache hit", "image_url", imageURL)
			return preds, nil
		}
	}

	reqCtx, cancel := context.WithTimeout(ctx, c.config.Timeout)
	defer cancel()

	payload := chatRequest{
		Model: c.config.Model,
		Messages: []chatMessage{
			{
				Role: "user",
				Content: []contentPart{
					{Type: "text", Text: c.prompt()},
					{Type: "image_url", ImageURL: &imageURLPart{URL: imageURL}},
				},
			},
		},
		MaxTokens: 500,
	}

	content, err := c.doRequest(reqCtx, payload)
	if err != nil {
		return nil, err
	}

	preds := c.parseContent(content)
	c.cache.Set(imageURL, preds, cache.DefaultExpiration)

	if len(preds) > 0 {
		logger.Info("Fallback predictions", "image_url", imageURL, "count", len(preds))
	} else {
		logger.Info("Fallback returned no usable predictions", "image_url", imageURL)
	}

	return preds, nil
}

// prompt builds the instruction for the vision model, framing the request to
// the configured geographic region.
func (c *Client) prompt() string {
	return fmt.Sprintf("Identify the bird species in this image. These images are taken in %s. "+
		"Please only suggest species found in that region. Return ONLY a JSON array with up to %d "+
		"possible species, each with 'name' (common name) and 'confidence' (0-1). "+
		"If no bird or unsure, return empty array [].",
		c.config.RegionName, c.config.MaxResults)
}

// doRequest posts the chat completion request and returns the assistant
// message content.
func (c *Client) doRequest(ctx context.Context, payload chatRequest) (string, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return "", errors.Newf("encoding fallback request: %w", err).
			Category(errors.CategoryValidation).
			Component("fallback").
			Build()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.Endpoint, bytes.NewReader(body))
	if err != nil {
		return "", errors.Newf("creating fallback request: %w", err).
			Category(errors.CategoryNetwork).
			Context("endpoint", c.config.Endpoint).
			Component("fallback").
			Build()
	}
	req.Header.Set("Authorization", "Bearer "+c.config.APIKey)
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		logger.Error("Fallback API request failed", "error", err, "endpoint", c.config.Endpoint)
		return "", errors.Newf("fallback request failed: %w", err).
			Category(errors.CategoryNetwork).
			Context("endpoint", c.config.Endpoint).
			Component("fallback").
			Build()
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", errors.Newf("reading fallback response: %w", err).
			Category(errors.CategoryNetwork).
			Context("status_code", resp.StatusCode).
			Component("fallback").
			Build()
	}

	if resp.StatusCode >= 400 {
		if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
			logger.Error("Fallback API authentication failed",
				"status_code", resp.StatusCode,
				"message", "Check the fallback API key in the configuration")
		} else {
			logger.Warn("Fallback API error response",
				"status_code", resp.StatusCode,
				"response_size", len(respBody))
		}
		return "", errors.Newf("fallback API error (status %d)", resp.StatusCode).
			Category(categoryForStatus(resp.StatusCode)).
			Context("status_code", resp.StatusCode).
			Component("fallback").
			Build()
	}

	var parsed chatResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return "", errors.Newf("parsing fallback response: %w", err).
			Category(errors.CategoryFileParsing).
			Context("response_size", len(respBody)).
			Component("fallback").
			Build()
	}
	if len(parsed.Choices) == 0 {
		return "", errors.Newf("fallback response contained no choices").
			Category(errors.CategoryProcessing).
			Component("fallback").
			Build()
	}

	logger.Debug("Fallback API request successful",
		"duration_ms", time.Since(start).Milliseconds(),
		"response_size", len(respBody))

	return strings.TrimSpace(parsed.Choices[0].Message.Content), nil
}

// parseContent extracts the JSON array of guesses from the assistant
// message. Models tend to wrap the array in prose or code fences, so only
// the span from the first '[' to the last ']' is decoded. Anything
// undecodable yields an empty result, never an error.
func (c *Client) parseContent(content string) []prediction.Prediction {
	start := strings.Index(content, "[")
	end := strings.LastIndex(content, "]")
	if start == -1 || end == -1 || end < start {
		return nil
	}

	var raw []prediction.Prediction
	if err := json.Unmarshal([]byte(content[start:end+1]), &raw); err != nil {
		logger.Warn("Fallback content was not a valid JSON array", "error", err)
		return nil
	}

	var accepted []prediction.Prediction
	for _, p := range raw {
		if p.Name == "" || p.Confidence < c.config.Threshold {
			continue
		}
		accepted = append(accepted, p)
		if len(accepted) >= c.config.MaxResults {
			break
		}
	}
	return prediction.Merge(accepted)
}

// categoryForStatus maps an HTTP status code to an error category.
func categoryForStatus(statusCode int) errors.ErrorCategory {
	switch statusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		return errors.CategoryConfiguration
	case http.StatusTooManyRequests:
		return errors.CategoryLimit
	case http.StatusNotFound:
		return errors.CategoryNotFound
	default:
		return errors.CategoryNetwork
	}
}
