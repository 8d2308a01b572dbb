package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/kyotaro/personasim/internal/config"
)

// OllamaClient is the local backend, talking to an Ollama server over its
// generate endpoint. No API key is required.
type OllamaClient struct {
	host        string
	model       string
	temperature float64
	httpClient  *http.Client
}

func NewOllamaClient(cfg *config.Config) *OllamaClient {
	return &OllamaClient{
		host:        strings.TrimRight(cfg.OllamaHost, "/"),
		model:       cfg.OllamaModel,
		temperature: cfg.Temperature,
		// Local models can take minutes on a long persona prompt.
		httpClient: &http.Client{Timeout: 10 * time.Minute},
	}
}

func (o *OllamaClient) Name() string { return "ollama:" + o.model }

type ollamaGenerateRequest struct {
	Model   string        `json:"model"`
	Prompt  string        `json:"prompt"`
	Stream  bool          `json:"stream"`
	Options ollamaOptions `json:"options"`
}

type ollamaOptions struct {
	Temperature float64 `json:"temperature"`
}

type ollamaGenerateResponse struct {
	Response string `json:"response"`
	Done     bool   `json:"done"`
}

func (o *OllamaClient) Complete(ctx context.Context, prompt string) (string, error) {
	reqBody := ollamaGenerateRequest{
		Model:   o.model,
		Prompt:  prompt,
		Stream:  false,
		Options: ollamaOptions{Temperature: o.temperature},
	}

	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	url := o.host + "/api/generate"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(bodyBytes))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	res, err := o.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("send request: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		errBody, _ := io.ReadAll(res.Body)
		return "", fmt.Errorf("Ollama error (status %d): %s", res.StatusCode, string(errBody))
	}

	respBody, err := io.ReadAll(res.Body)
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}

	var resp ollamaGenerateResponse
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return "", fmt.Errorf("parse response: %w", err)
	}

	if resp.Response == "" {
		return "", fmt.Errorf("response contained no text")
	}
	return resp.Response, nil
}
