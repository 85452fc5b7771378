package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/geogli/chatbot/internal/core/domain"
	"github.com/geogli/chatbot/internal/core/ports"
	"github.com/geogli/chatbot/internal/infrastructure/resilience"
)

// Client talks to a local Ollama server for embeddings and streamed answer
// generation.
type Client struct {
	baseURL    string
	genModel   string
	embedModel string
	httpClient *http.Client
	executor   *resilience.Executor
}

func New(baseURL, genModel, embedModel string, timeout time.Duration, executor *resilience.Executor) *Client {
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		genModel:   genModel,
		embedModel: embedModel,
		httpClient: &http.Client{Timeout: timeout},
		executor:   executor,
	}
}

func (c *Client) Identity() string {
	return "ollama/" + c.embedModel
}

func (c *Client) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	request := map[string]any{
		"model": c.embedModel,
		"input": texts,
	}
	var response struct {
		Embeddings [][]float32 `json:"embeddings"`
	}

	call := func(ctx context.Context) error {
		return c.postJSON(ctx, "/api/embed", request, &response, "embed")
	}
	var err error
	if c.executor != nil {
		err = c.executor.Execute(ctx, "ollama.embed", call)
	} else {
		err = call(ctx)
	}
	if err != nil {
		return nil, domain.WrapError(domain.ErrEmbeddingBackend, "ollama embed", err)
	}
	if len(response.Embeddings) != len(texts) {
		return nil, domain.WrapError(
			domain.ErrEmbeddingBackend,
			"ollama embed",
			fmt.Errorf("embeddings/texts mismatch: %d/%d", len(response.Embeddings), len(texts)),
		)
	}
	return response.Embeddings, nil
}

func (c *Client) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	vectors, err := c.Embed(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(vectors) == 0 {
		return nil, domain.WrapError(domain.ErrEmbeddingBackend, "ollama embed query", fmt.Errorf("empty embedding result"))
	}
	return vectors[0], nil
}

// StreamAnswer issues a streaming generate call and forwards response
// fragments until the model reports done. A failure mid-stream is delivered
// as the final fragment.
func (c *Client) StreamAnswer(
	ctx context.Context,
	question string,
	chunks []domain.RetrievedChunk,
	history []domain.Turn,
) (<-chan ports.Fragment, error) {
	reqBody := map[string]any{
		"model":  c.genModel,
		"prompt": buildAnswerPrompt(question, chunks, history),
		"stream": true,
	}
	body, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshal generate body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/generate", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create generate request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, domain.WrapError(domain.ErrGenerationFailure, "ollama generate", err)
	}
	if resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		resp.Body.Close()
		return nil, domain.WrapError(
			domain.ErrGenerationFailure,
			"ollama generate",
			&resilience.HTTPStatusError{Operation: "generate", StatusCode: resp.StatusCode, Status: strings.TrimSpace(resp.Status + " " + string(raw))},
		)
	}

	out := make(chan ports.Fragment)
	go func() {
		defer close(out)
		defer resp.Body.Close()

		decoder := json.NewDecoder(resp.Body)
		for {
			var line struct {
				Response string `json:"response"`
				Done     bool   `json:"done"`
			}
			if err := decoder.Decode(&line); err != nil {
				if err == io.EOF || ctx.Err() != nil {
					return
				}
				select {
				case out <- ports.Fragment{Err: domain.WrapError(domain.ErrGenerationFailure, "ollama stream", err)}:
				case <-ctx.Done():
				}
				return
			}
			if line.Response != "" {
				select {
				case out <- ports.Fragment{Text: line.Response}:
				case <-ctx.Done():
					return
				}
			}
			if line.Done {
				return
			}
		}
	}()
	return out, nil
}

func (c *Client) postJSON(ctx context.Context, path string, request, response any, operation string) error {
	body, err := json.Marshal(request)
	if err != nil {
		return fmt.Errorf("marshal %s body: %w", operation, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create %s request: %w", operation, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("ollama %s request: %w", operation, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return &resilience.HTTPStatusError{Operation: operation, StatusCode: resp.StatusCode, Status: resp.Status}
	}
	if err := json.NewDecoder(resp.Body).Decode(response); err != nil {
		return fmt.Errorf("decode %s response: %w", operation, err)
	}
	return nil
}
