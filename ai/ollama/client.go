// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/poiesic/shelfvec/ai"
)

// Client implements ai.Embedder and ai.ModelChecker against an Ollama server.
// A single attempt is made per call; retries belong to ai.RetryingEmbedder.
type Client struct {
	host   string
	model  string
	http   *http.Client
	logger *slog.Logger
}

var (
	_ ai.Embedder     = (*Client)(nil)
	_ ai.ModelChecker = (*Client)(nil)
)

type embeddingRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
}

type embeddingResponse struct {
	Embedding []float32 `json:"embedding"`
}

type tagsResponse struct {
	Models []struct {
		Name string `json:"name"`
	} `json:"models"`
}

// NewClient creates a client for the host and model named in config.
// Per-request deadlines come from the caller's context.
func NewClient(config *ai.Config) (*Client, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &Client{
		host:   config.EmbeddingHost,
		model:  config.EmbeddingModel,
		http:   &http.Client{},
		logger: slog.Default().With("component", "ollama-embedder"),
	}, nil
}

// EmbedText requests one embedding. Any non-200 answer or undecodable body
// is returned as an error.
func (c *Client) EmbedText(ctx context.Context, text string) ([]float32, error) {
	body, err := json.Marshal(embeddingRequest{Model: c.model, Prompt: text})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.host+"/api/embeddings", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("ollama embeddings: status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	var out embeddingResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("ollama embeddings: decode response: %w", err)
	}
	if len(out.Embedding) == 0 {
		return nil, ai.ErrEmptyEmbedding
	}

	c.logger.Debug("embedding generated", "length", len(text), "dim", len(out.Embedding))
	return out.Embedding, nil
}

// ListModels returns the model names the server advertises.
func (c *Client) ListModels(ctx context.Context) ([]string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.host+"/api/tags", nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("ollama tags: status %d", resp.StatusCode)
	}

	var out tagsResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("ollama tags: decode response: %w", err)
	}
	names := make([]string, 0, len(out.Models))
	for _, m := range out.Models {
		names = append(names, m.Name)
	}
	return names, nil
}

// CheckModel verifies that the server is reachable and advertises the
// configured model. A bare name also matches its ":latest" tag.
func (c *Client) CheckModel(ctx context.Context) error {
	names, err := c.ListModels(ctx)
	if err != nil {
		return err
	}
	if !HasModel(names, c.model) {
		c.logger.Warn("model not advertised", "model", c.model, "available", names)
		return fmt.Errorf("%w: %s", ai.ErrModelNotFound, c.model)
	}
	return nil
}

// HasModel reports whether want appears in names, treating "name" and
// "name:latest" as the same model.
func HasModel(names []string, want string) bool {
	for _, name := range names {
		if name == want {
			return true
		}
		if !strings.Contains(want, ":") && name == want+":latest" {
			return true
		}
		if strings.HasSuffix(want, ":latest") && name == strings.TrimSuffix(want, ":latest") {
			return true
		}
	}
	return false
}
