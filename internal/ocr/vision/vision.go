// Package vision recognizes text with an OpenAI-compatible vision model.
// The model is asked for regions as JSON, which is validated before use.
package vision

import (
	"bytes"
	"context"
	_ "embed"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/jackzampolin/bindery/internal/recognition"
)

const (
	Name         = "vision"
	DefaultModel = "gpt-4o-mini"

	defaultPrompt = `Find every line of text in this page image in reading order.
For traditional vertical text, each column is one line.
Reply with JSON only, in the form:
{"regions":[{"text":"...","confidence":0.0-1.0,"quad":[[x,y],[x,y],[x,y],[x,y]]}]}
where quad is the line's box in pixels: top-left, top-right, bottom-right, bottom-left.`
)

//go:embed schema.json
var schemaJSON []byte

// Config holds configuration for the vision client.
type Config struct {
	APIKey     string
	BaseURL    string
	Model      string
	Prompt     string
	MaxRetries int
	Timeout    time.Duration
	HTTPClient *http.Client
	Logger     *slog.Logger
}

// Client implements recognition.Recognizer on the chat completions API.
type Client struct {
	model  string
	prompt string
	client openai.Client
	schema *jsonschema.Schema
	logger *slog.Logger
}

// New creates a vision client.
func New(cfg Config) (*Client, error) {
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Prompt == "" {
		cfg.Prompt = defaultPrompt
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 2
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 120 * time.Second
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("regions.json", bytes.NewReader(schemaJSON)); err != nil {
		return nil, fmt.Errorf("failed to load region schema: %w", err)
	}
	schema, err := compiler.Compile("regions.json")
	if err != nil {
		return nil, fmt.Errorf("failed to compile region schema: %w", err)
	}

	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithHTTPClient(httpClient),
		option.WithMaxRetries(cfg.MaxRetries),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}

	return &Client{
		model:  cfg.Model,
		prompt: cfg.Prompt,
		client: openai.NewClient(opts...),
		schema: schema,
		logger: logger.With("recognizer", Name, "model", cfg.Model),
	}, nil
}

// Name returns the recognizer identifier.
func (c *Client) Name() string { return Name }

// Recognize sends the image to the model and parses the returned regions.
func (c *Client) Recognize(ctx context.Context, imagePath string) (*recognition.Result, error) {
	data, err := os.ReadFile(imagePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read image: %w", err)
	}
	dataURL := "data:" + mimeType(imagePath, data) + ";base64," + base64.StdEncoding.EncodeToString(data)

	resp, err := c.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(c.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage([]openai.ChatCompletionContentPartUnionParam{
				openai.TextContentPart(c.prompt),
				openai.ImageContentPart(openai.ChatCompletionContentPartImageImageURLParam{URL: dataURL}),
			}),
		},
		Temperature: openai.Float(0),
	})
	if err != nil {
		return nil, mapError(err)
	}
	if len(resp.Choices) == 0 {
		return nil, errors.New("no response choices from model")
	}

	regions, err := c.parse(resp.Choices[0].Message.Content)
	if err != nil {
		return nil, err
	}
	c.logger.Debug("ocr complete", "image", imagePath, "regions", len(regions),
		"prompt_tokens", resp.Usage.PromptTokens, "completion_tokens", resp.Usage.CompletionTokens)
	return recognition.NewResult(imagePath, Name, regions), nil
}

type modelOutput struct {
	Regions []struct {
		Text       string       `json:"text"`
		Confidence float64      `json:"confidence"`
		Quad       [][2]float64 `json:"quad"`
	} `json:"regions"`
}

func (c *Client) parse(content string) ([]recognition.Region, error) {
	raw := extractJSON(content)
	if raw == "" {
		return nil, fmt.Errorf("model reply contains no JSON: %q", truncate(content))
	}
	var doc any
	if err := json.Unmarshal([]byte(raw), &doc); err != nil {
		return nil, fmt.Errorf("failed to decode model JSON: %w", err)
	}
	if err := c.schema.Validate(doc); err != nil {
		return nil, fmt.Errorf("model output does not match schema: %w", err)
	}

	var out modelOutput
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return nil, fmt.Errorf("failed to decode regions: %w", err)
	}
	regions := make([]recognition.Region, 0, len(out.Regions))
	for _, r := range out.Regions {
		var q recognition.Quad
		for i := range q {
			q[i] = recognition.Point{X: r.Quad[i][0], Y: r.Quad[i][1]}
		}
		regions = append(regions, recognition.Region{Quad: q, Text: r.Text, Confidence: r.Confidence})
	}
	return regions, nil
}

// extractJSON strips a markdown fence and any prose around the object.
func extractJSON(content string) string {
	s := strings.TrimSpace(content)
	if strings.HasPrefix(s, "```") {
		lines := strings.Split(s, "\n")
		if len(lines) >= 2 {
			lines = lines[1:]
			if strings.TrimSpace(lines[len(lines)-1]) == "```" {
				lines = lines[:len(lines)-1]
			}
			s = strings.TrimSpace(strings.Join(lines, "\n"))
		}
	}
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start < 0 || end < start {
		return ""
	}
	return s[start : end+1]
}

func mimeType(path string, data []byte) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".webp":
		return "image/webp"
	case ".gif":
		return "image/gif"
	case ".png":
		return "image/png"
	}
	return http.DetectContentType(data)
}

func mapError(err error) error {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		if apiErr.Message != "" {
			return fmt.Errorf("vision model error (status %d): %s", apiErr.StatusCode, apiErr.Message)
		}
		return fmt.Errorf("vision model error (status %d)", apiErr.StatusCode)
	}
	return err
}

func truncate(s string) string {
	if len(s) > 200 {
		return s[:200] + "..."
	}
	return s
}

var _ recognition.Recognizer = (*Client)(nil)
