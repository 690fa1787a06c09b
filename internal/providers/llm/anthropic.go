package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/sandevgo/tuskthread/internal/core"
)

const anthropicBaseURL = "https://api.anthropic.com"

type Anthropic struct {
	baseProvider
}

func NewAnthropic(baseURL, apiKey, model string) *Anthropic {
	if baseURL == "" {
		baseURL = anthropicBaseURL
	}
	return &Anthropic{
		baseProvider: newBaseProvider(strings.TrimRight(baseURL, "/"), apiKey, model),
	}
}

func (a *Anthropic) Generate(ctx context.Context, p core.Payload) (string, error) {
	system, messages := Render(p)

	payload := map[string]any{
		"model":      a.model,
		"max_tokens": 4096,
		"system":     system,
		"messages":   messages,
	}

	headers := map[string]string{
		"x-api-key":         a.apiKey,
		"anthropic-version": "2023-06-01",
	}

	resp, err := a.doRequest(ctx, http.MethodPost, "/v1/messages", payload, headers)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	data, err := readBody(resp)
	if err != nil {
		return "", err
	}

	var result struct {
		Content []struct {
			Type string `json:"type"`
			Text string `json:"text"`
		} `json:"content"`
	}
	if err := json.Unmarshal(data, &result); err != nil {
		return "", fmt.Errorf("decode: %w", err)
	}

	var text strings.Builder
	for _, c := range result.Content {
		if c.Type == "text" {
			text.WriteString(c.Text)
		}
	}
	if strings.TrimSpace(text.String()) == "" {
		return "", fmt.Errorf("empty reply from %s", a.model)
	}
	return strings.TrimSpace(text.String()), nil
}
