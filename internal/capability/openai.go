package capability

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/smartinprabhu/newgpt/internal/config"
	"github.com/smartinprabhu/newgpt/internal/logger"
	"github.com/smartinprabhu/newgpt/pkg/types"
)

// OpenAIProvider talks to an OpenAI-compatible API: chat completions for
// agent invocation and the embeddings endpoint for vectors.
type OpenAIProvider struct {
	baseURL        string
	apiKey         string
	model          string
	embeddingModel string
	maxRetries     int
	client         *http.Client
}

func NewOpenAIProvider(cfg config.CapabilityConfig) *OpenAIProvider {
	return &OpenAIProvider{
		baseURL:        cfg.BaseURL,
		apiKey:         cfg.APIKey,
		model:          cfg.Model,
		embeddingModel: cfg.EmbeddingModel,
		maxRetries:     cfg.MaxRetries,
		client:         &http.Client{Timeout: cfg.Timeout},
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatCompletionRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
}

type chatCompletionResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

type embeddingRequest struct {
	Model string `json:"model"`
	Input string `json:"input"`
}

type embeddingResponse struct {
	Data []struct {
		Embedding []float64 `json:"embedding"`
	} `json:"data"`
}

func (p *OpenAIProvider) Invoke(ctx context.Context, step types.StepName, contextPrompt string) (string, error) {
	agent, ok := AgentForStep(step)
	if !ok {
		return "", fmt.Errorf("unknown step %q", step)
	}

	reqBody := chatCompletionRequest{
		Model: p.model,
		Messages: []chatMessage{
			{Role: "system", Content: agent.SystemPrompt()},
			{Role: "user", Content: contextPrompt},
		},
	}

	var resp chatCompletionResponse
	if err := p.post(ctx, "/chat/completions", reqBody, &resp); err != nil {
		return "", fmt.Errorf("invoke %s: %w", agent.Name, err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("invoke %s: empty completion response", agent.Name)
	}
	return resp.Choices[0].Message.Content, nil
}

func (p *OpenAIProvider) Embed(ctx context.Context, text string) ([]float64, error) {
	reqBody := embeddingRequest{Model: p.embeddingModel, Input: text}

	var resp embeddingResponse
	if err := p.post(ctx, "/embeddings", reqBody, &resp); err != nil {
		return nil, fmt.Errorf("embed: %w", err)
	}
	if len(resp.Data) == 0 {
		return nil, fmt.Errorf("embed: empty embedding response")
	}
	return resp.Data[0].Embedding, nil
}

// post sends a JSON request with bearer auth, retrying transient failures.
func (p *OpenAIProvider) post(ctx context.Context, path string, payload, dest interface{}) error {
	jsonData, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	var lastErr error
	for attempt := 0; attempt <= p.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(time.Duration(attempt) * time.Second):
			}
			logger.Logger.Debug().Int("attempt", attempt).Str("path", path).Msg("retrying capability request")
		}

		lastErr = p.doPost(ctx, path, jsonData, dest)
		if lastErr == nil {
			return nil
		}
		if ctx.Err() != nil {
			return lastErr
		}
	}
	return lastErr
}

func (p *OpenAIProvider) doPost(ctx context.Context, path string, jsonData []byte, dest interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+path, bytes.NewReader(jsonData))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+p.apiKey)

	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		var errResp struct {
			Error struct {
				Message string `json:"message"`
			} `json:"error"`
		}
		if json.Unmarshal(body, &errResp) == nil && errResp.Error.Message != "" {
			return fmt.Errorf("api error %d: %s", resp.StatusCode, errResp.Error.Message)
		}
		bodyStr := string(body)
		if len(bodyStr) > 500 {
			bodyStr = bodyStr[:500] + "..."
		}
		return fmt.Errorf("api error %d: %s", resp.StatusCode, bodyStr)
	}

	if err := json.NewDecoder(resp.Body).Decode(dest); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
