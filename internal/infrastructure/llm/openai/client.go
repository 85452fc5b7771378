package openai

import (
	"context"
	"fmt"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/geogli/chatbot/internal/core/domain"
	"github.com/geogli/chatbot/internal/core/ports"
	"github.com/geogli/chatbot/internal/infrastructure/resilience"
)

// Client is an OpenAI-compatible backend for embeddings and streamed answer
// generation. Any server speaking the OpenAI API works via base URL.
type Client struct {
	client     openai.Client
	genModel   string
	embedModel string
	executor   *resilience.Executor
}

type Config struct {
	BaseURL    string
	APIKey     string
	GenModel   string
	EmbedModel string
}

func New(cfg Config, executor *resilience.Executor) *Client {
	opts := []option.RequestOption{}
	if cfg.APIKey != "" {
		opts = append(opts, option.WithAPIKey(cfg.APIKey))
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	if cfg.GenModel == "" {
		cfg.GenModel = openai.ChatModelGPT4oMini
	}
	if cfg.EmbedModel == "" {
		cfg.EmbedModel = string(openai.EmbeddingModelTextEmbedding3Small)
	}
	return &Client{
		client:     openai.NewClient(opts...),
		genModel:   cfg.GenModel,
		embedModel: cfg.EmbedModel,
		executor:   executor,
	}
}

func (c *Client) Identity() string {
	return "openai/" + c.embedModel
}

func (c *Client) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	var resp *openai.CreateEmbeddingResponse
	call := func(ctx context.Context) error {
		var err error
		resp, err = c.client.Embeddings.New(ctx, openai.EmbeddingNewParams{
			Input: openai.EmbeddingNewParamsInputUnion{OfArrayOfStrings: texts},
			Model: openai.EmbeddingModel(c.embedModel),
		})
		return err
	}

	var err error
	if c.executor != nil {
		err = c.executor.Execute(ctx, "openai.embed", call)
	} else {
		err = call(ctx)
	}
	if err != nil {
		return nil, domain.WrapError(domain.ErrEmbeddingBackend, "openai embed", err)
	}
	if len(resp.Data) != len(texts) {
		return nil, domain.WrapError(
			domain.ErrEmbeddingBackend,
			"openai embed",
			fmt.Errorf("embeddings/texts mismatch: %d/%d", len(resp.Data), len(texts)),
		)
	}

	out := make([][]float32, len(resp.Data))
	for i, data := range resp.Data {
		vec := make([]float32, len(data.Embedding))
		for j, v := range data.Embedding {
			vec[j] = float32(v)
		}
		out[i] = vec
	}
	return out, nil
}

func (c *Client) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	vectors, err := c.Embed(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(vectors) == 0 {
		return nil, domain.WrapError(domain.ErrEmbeddingBackend, "openai embed query", fmt.Errorf("empty embedding result"))
	}
	return vectors[0], nil
}

func (c *Client) StreamAnswer(
	ctx context.Context,
	question string,
	chunks []domain.RetrievedChunk,
	history []domain.Turn,
) (<-chan ports.Fragment, error) {
	stream := c.client.Chat.Completions.NewStreaming(ctx, openai.ChatCompletionNewParams{
		Messages: buildMessages(question, chunks, history),
		Model:    openai.ChatModel(c.genModel),
	})

	out := make(chan ports.Fragment)
	go func() {
		defer close(out)
		for stream.Next() {
			chunk := stream.Current()
			if len(chunk.Choices) == 0 || chunk.Choices[0].Delta.Content == "" {
				continue
			}
			select {
			case out <- ports.Fragment{Text: chunk.Choices[0].Delta.Content}:
			case <-ctx.Done():
				return
			}
		}
		if err := stream.Err(); err != nil && ctx.Err() == nil {
			select {
			case out <- ports.Fragment{Err: domain.WrapError(domain.ErrGenerationFailure, "openai stream", err)}:
			case <-ctx.Done():
			}
		}
	}()
	return out, nil
}

func buildMessages(question string, chunks []domain.RetrievedChunk, history []domain.Turn) []openai.ChatCompletionMessageParamUnion {
	system := "You are an assistant answering questions about land degradation indicators. " +
		"Answer using only the provided context. If the context is insufficient, say so."

	messages := make([]openai.ChatCompletionMessageParamUnion, 0, len(history)+2)
	messages = append(messages, openai.SystemMessage(system))
	for _, turn := range history {
		switch turn.Role {
		case domain.RoleAssistant:
			messages = append(messages, openai.AssistantMessage(turn.Content))
		default:
			messages = append(messages, openai.UserMessage(turn.Content))
		}
	}

	var sb []byte
	sb = append(sb, "Context:\n"...)
	for i, rc := range chunks {
		sb = append(sb, fmt.Sprintf("[%d] (%s) %s\n", i+1, rc.Chunk.Meta.Source, rc.Chunk.Text)...)
	}
	sb = append(sb, "\nQuestion: "...)
	sb = append(sb, question...)
	messages = append(messages, openai.UserMessage(string(sb)))
	return messages
}
