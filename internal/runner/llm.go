// Go Pattern: grounded on the teacher's services/summary.Service OpenRouter
// client (timeout'd http.Client, OpenAI-chat-completions wire shape).
// Generalized from a single OpenRouter endpoint to a map of model key ->
// endpoint/key, since the spec's Summary Orchestrator resolves one of
// three named models (deepseek, qwen, glm).
package runner

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// ChatLLM calls one of several configured chat-completions-style endpoints.
type ChatLLM struct {
	httpClient *http.Client
	endpoints  map[string]endpointConfig
}

type endpointConfig struct {
	url    string
	apiKey string
}

// NewChatLLM builds a ChatLLM with per-model endpoint/key pairs. A model
// whose apiKey is empty is treated as unconfigured by Configured.
func NewChatLLM(endpoints map[string]struct{ URL, APIKey string }) *ChatLLM {
	cfg := make(map[string]endpointConfig, len(endpoints))
	for k, v := range endpoints {
		cfg[k] = endpointConfig{url: v.URL, apiKey: v.APIKey}
	}
	return &ChatLLM{
		httpClient: &http.Client{Timeout: 120 * time.Second}, // LLMs can be slow
		endpoints:  cfg,
	}
}

// Configured reports whether modelKey has a non-empty API key.
func (c *ChatLLM) Configured(modelKey string) bool {
	cfg, ok := c.endpoints[modelKey]
	return ok && cfg.apiKey != ""
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

// Chat sends systemMsg/userMsg to the endpoint configured for modelKey and
// returns the raw reply text.
func (c *ChatLLM) Chat(ctx context.Context, systemMsg, userMsg, modelKey string) (string, error) {
	cfg, ok := c.endpoints[modelKey]
	if !ok || cfg.apiKey == "" {
		return "", fmt.Errorf("model %q is not configured", modelKey)
	}

	reqBody := chatRequest{
		Model: modelKey,
		Messages: []chatMessage{
			{Role: "system", Content: systemMsg},
			{Role: "user", Content: userMsg},
		},
	}

	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("failed to marshal chat request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, cfg.url, bytes.NewReader(jsonBody))
	if err != nil {
		return "", fmt.Errorf("failed to create chat request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+cfg.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("chat request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read chat response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("chat endpoint returned status %d: %s", resp.StatusCode, string(respBody))
	}

	var parsed chatResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return "", fmt.Errorf("failed to parse chat response: %w", err)
	}
	if parsed.Error != nil {
		return "", fmt.Errorf("chat endpoint error: %s", parsed.Error.Message)
	}
	if len(parsed.Choices) == 0 {
		return "", fmt.Errorf("chat endpoint returned no choices")
	}
	return parsed.Choices[0].Message.Content, nil
}
