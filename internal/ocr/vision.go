package ocr

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"image"
	"net/http"
	"strings"
	"time"
)

const visionPrompt = "Extract all visible text from this image. " +
	"Reply with the text only, no commentary. Reply with an empty message if there is no text."

// Vision performs recognition through an OpenAI-compatible vision model.
type Vision struct {
	BaseURL string
	APIKey  string
	Model   string
	client  *http.Client
}

// NewVision creates a vision-model-backed engine.
func NewVision(baseURL, apiKey, model string) *Vision {
	return &Vision{
		BaseURL: strings.TrimRight(baseURL, "/"),
		APIKey:  apiKey,
		Model:   model,
		client:  &http.Client{Timeout: 30 * time.Second},
	}
}

type visionContentPart struct {
	Type     string          `json:"type"`
	Text     string          `json:"text,omitempty"`
	ImageURL *visionImageURL `json:"image_url,omitempty"`
}

type visionImageURL struct {
	URL string `json:"url"`
}

type visionMessage struct {
	Role    string              `json:"role"`
	Content []visionContentPart `json:"content"`
}

type visionRequest struct {
	Model    string          `json:"model"`
	Messages []visionMessage `json:"messages"`
}

type visionResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// Recognize sends the frame to the vision model and returns extracted text.
func (v *Vision) Recognize(ctx context.Context, img image.Image) (Result, error) {
	if v.APIKey == "" {
		return Result{}, fmt.Errorf("%w: no API key configured", ErrEngineUnavailable)
	}

	data, err := encodePNG(img)
	if err != nil {
		return Result{}, fmt.Errorf("encode frame: %w", err)
	}

	reqBody := visionRequest{
		Model: v.Model,
		Messages: []visionMessage{{
			Role: "user",
			Content: []visionContentPart{
				{Type: "text", Text: visionPrompt},
				{Type: "image_url", ImageURL: &visionImageURL{
					URL: "data:image/png;base64," + base64.StdEncoding.EncodeToString(data),
				}},
			},
		}},
	}

	payload, err := json.Marshal(reqBody)
	if err != nil {
		return Result{}, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, v.BaseURL+"/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return Result{}, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+v.APIKey)

	resp, err := v.client.Do(req)
	if err != nil {
		return Result{}, fmt.Errorf("%w: %v", ErrEngineUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Result{}, fmt.Errorf("vision model returned status %d", resp.StatusCode)
	}

	var parsed visionResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return Result{}, fmt.Errorf("decode response: %w", err)
	}
	if len(parsed.Choices) == 0 {
		return Result{}, fmt.Errorf("vision model returned no choices")
	}

	return Result{Text: parsed.Choices[0].Message.Content, Confidence: -1}, nil
}
