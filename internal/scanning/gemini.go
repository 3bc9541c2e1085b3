package scanning

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

const promptRevision = "r3"

const receiptParsePrompt = `You are a bill-parsing assistant. Analyze this image.

If the image is NOT a receipt or restaurant bill, respond with exactly:
{"not_receipt": true}

Otherwise extract the bill structure and respond with a single JSON object:
{
  "merchant_name": "merchant name exactly as printed",
  "merchant_name_en": "English translation, empty if already English",
  "original_language": "ISO 639-1 code of the receipt language",
  "currency": "ISO 4217 code, e.g. THB",
  "items": [
    {"name": "item as printed", "name_en": "English translation", "qty": 1, "unit_price": 100.0}
  ],
  "tax_percent": 7,
  "service_percent": 10,
  "rounding": -0.5,
  "subtotal": 250.0,
  "total": 292.0
}

Rules:
- qty is a positive integer; unit_price is the price for ONE unit.
- tax_percent and service_percent are percentages (0-100), 0 when absent.
- rounding is the signed adjustment line, 0 when absent.
- subtotal is the pre-tax pre-service sum; total is the amount due.
- Respond with JSON only, no commentary.`

// Gemini implements the Scanner interface using Google Gemini.
type Gemini struct {
	client    *genai.Client
	model     *genai.GenerativeModel
	modelName string
}

// NewGemini creates a new Gemini Scanner instance.
func NewGemini(apiKey string, modelName string) (*Gemini, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini api key is required")
	}
	if modelName == "" {
		modelName = "gemini-2.5-pro"
	}

	ctx := context.Background()
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("creating gemini client: %w", err)
	}

	return &Gemini{
		client:    client,
		model:     client.GenerativeModel(modelName),
		modelName: modelName,
	}, nil
}

// ParseReceipt sends the image to Gemini and parses the structured response.
func (g *Gemini) ParseReceipt(imageData []byte, contentType string) (*ParsedReceipt, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	format := formatFromContentType(contentType)
	parts := []genai.Part{
		genai.ImageData(format, imageData),
		genai.Text(receiptParsePrompt),
	}

	resp, err := g.model.GenerateContent(ctx, parts...)
	if err != nil {
		return nil, fmt.Errorf("generating content: %w", err)
	}

	if len(resp.Candidates) == 0 || len(resp.Candidates[0].Content.Parts) == 0 {
		return nil, fmt.Errorf("no response from gemini")
	}

	var responseText strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if text, ok := part.(genai.Text); ok {
			responseText.WriteString(string(text))
		}
	}

	parsed, err := parseReceiptJSON(responseText.String())
	if err != nil {
		return nil, fmt.Errorf("parsing receipt data: %w", err)
	}

	return parsed, nil
}

// Version identifies the model and prompt revision used for parsing.
func (g *Gemini) Version() string {
	return fmt.Sprintf("gemini/%s/%s", g.modelName, promptRevision)
}

// Close closes the Gemini client.
func (g *Gemini) Close() error {
	return g.client.Close()
}

// formatFromContentType maps a MIME type to the format suffix genai expects
// (e.g. "image/png" -> "png").
func formatFromContentType(contentType string) string {
	switch strings.ToLower(strings.TrimSpace(contentType)) {
	case "image/jpeg", "image/jpg":
		return "jpeg"
	case "image/webp":
		return "webp"
	case "image/heic":
		return "heic"
	case "image/heif":
		return "heif"
	default:
		return "png"
	}
}
