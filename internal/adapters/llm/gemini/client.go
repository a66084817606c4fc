package gemini

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	genai "google.golang.org/genai"

	"github.com/antinea2359/app-tarot/internal/domain"
)

const (
	DefaultTextModel  = "gemini-2.5-flash"
	DefaultImageModel = "gemini-2.5-flash-image"
)

// Options configures a Client. An empty APIKey is allowed: every call then
// fails with domain.ErrCredentialMissing without touching the network.
type Options struct {
	APIKey     string
	BaseURL    string
	TextModel  string
	ImageModel string
	HTTPClient *http.Client
	Logger     *slog.Logger
}

// Client implements ports.Oracle on the Gemini API.
type Client struct {
	cli        *genai.Client
	textModel  string
	imageModel string
	logger     *slog.Logger
}

func NewClient(ctx context.Context, opts Options) (*Client, error) {
	c := &Client{
		textModel:  firstNonEmpty(opts.TextModel, DefaultTextModel),
		imageModel: firstNonEmpty(opts.ImageModel, DefaultImageModel),
		logger:     opts.Logger,
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}
	if strings.TrimSpace(opts.APIKey) == "" {
		return c, nil
	}

	cfg := &genai.ClientConfig{
		APIKey:     opts.APIKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: opts.HTTPClient,
	}
	if opts.BaseURL != "" {
		cfg.HTTPOptions = genai.HTTPOptions{BaseURL: strings.TrimRight(opts.BaseURL, "/")}
	}
	cli, err := genai.NewClient(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}
	c.cli = cli
	return c, nil
}

// readingSchema constrains the reading to four required strings.
var readingSchema = &genai.Schema{
	Type: genai.TypeObject,
	Properties: map[string]*genai.Schema{
		"name":              {Type: genai.TypeString},
		"visualDescription": {Type: genai.TypeString},
		"meaning":           {Type: genai.TypeString},
		"spiritualMessage":  {Type: genai.TypeString},
	},
	Required: []string{"name", "visualDescription", "meaning", "spiritualMessage"},
}

func (c *Client) GenerateReading(ctx context.Context) (domain.Reading, error) {
	if c.cli == nil {
		return domain.Reading{}, domain.ErrCredentialMissing
	}

	resp, err := c.generate(ctx, c.textModel,
		[]*genai.Content{{Role: "user", Parts: []*genai.Part{{Text: readingPrompt}}}},
		&genai.GenerateContentConfig{
			ResponseMIMEType: "application/json",
			ResponseSchema:   readingSchema,
		},
	)
	if err != nil {
		return domain.Reading{}, err
	}

	text := strings.TrimSpace(responseText(resp))
	if text == "" {
		return domain.Reading{}, domain.ErrEmptyResponse
	}

	var r domain.Reading
	if err := json.Unmarshal([]byte(text), &r); err != nil {
		c.logger.WarnContext(ctx, "reading is not valid JSON", "model", c.textModel, "error", err)
		return domain.Reading{}, domain.NewError(domain.KindMalformedResponse, domain.ErrMalformedResponse.Msg, err)
	}
	if err := r.Validate(); err != nil {
		return domain.Reading{}, domain.NewError(domain.KindMalformedResponse, domain.ErrMalformedResponse.Msg, err)
	}
	return r, nil
}

func (c *Client) GenerateImage(ctx context.Context, description, name string) (domain.ImageArtifact, error) {
	if c.cli == nil {
		return domain.ImageArtifact{}, domain.ErrCredentialMissing
	}

	resp, err := c.generate(ctx, c.imageModel,
		[]*genai.Content{{Role: "user", Parts: []*genai.Part{{Text: imagePrompt(name, description)}}}},
		nil,
	)
	if err != nil {
		return domain.ImageArtifact{}, err
	}

	img, ok := firstInlineImage(resp)
	if !ok {
		return domain.ImageArtifact{}, domain.ErrNoImageProduced
	}
	return img, nil
}

func (c *Client) EditImage(ctx context.Context, current domain.ImageArtifact, instruction string) (domain.ImageArtifact, error) {
	if c.cli == nil {
		return domain.ImageArtifact{}, domain.ErrCredentialMissing
	}

	resp, err := c.generate(ctx, c.imageModel,
		[]*genai.Content{{
			Role: "user",
			Parts: []*genai.Part{
				{InlineData: &genai.Blob{MIMEType: current.ContentType(), Data: current.Data}},
				{Text: editPrompt(instruction)},
			},
		}},
		nil,
	)
	if err != nil {
		return domain.ImageArtifact{}, err
	}

	img, ok := firstInlineImage(resp)
	if !ok {
		return domain.ImageArtifact{}, domain.NewError(domain.KindNoImageProduced, "Impossible de modifier l'image.", nil)
	}
	return img, nil
}

func (c *Client) generate(ctx context.Context, model string, contents []*genai.Content, cfg *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	start := time.Now()
	resp, err := c.cli.Models.GenerateContent(ctx, model, contents, cfg)
	latency := time.Since(start).Milliseconds()
	if err != nil {
		c.logger.ErrorContext(ctx, "gemini call failed", "model", model, "latency_ms", latency, "error", err)
		return nil, domain.Transport(err)
	}
	c.logger.DebugContext(ctx, "gemini call", "model", model, "latency_ms", latency)
	return resp, nil
}

func responseText(resp *genai.GenerateContentResponse) string {
	parts := firstCandidateParts(resp)
	var b strings.Builder
	for _, p := range parts {
		if p == nil || p.Thought {
			continue
		}
		b.WriteString(p.Text)
	}
	return b.String()
}

// firstInlineImage returns the first inline payload of the first candidate.
func firstInlineImage(resp *genai.GenerateContentResponse) (domain.ImageArtifact, bool) {
	for _, p := range firstCandidateParts(resp) {
		if p == nil || p.InlineData == nil || len(p.InlineData.Data) == 0 {
			continue
		}
		return domain.ImageArtifact{
			MIMEType: firstNonEmpty(p.InlineData.MIMEType, domain.DefaultImageMIMEType),
			Data:     p.InlineData.Data,
		}, true
	}
	return domain.ImageArtifact{}, false
}

func firstCandidateParts(resp *genai.GenerateContentResponse) []*genai.Part {
	if resp == nil || len(resp.Candidates) == 0 {
		return nil
	}
	cand := resp.Candidates[0]
	if cand == nil || cand.Content == nil {
		return nil
	}
	return cand.Content.Parts
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
