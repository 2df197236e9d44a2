package ollama

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/kirillkom/project-brain/internal/core/domain"
	"github.com/kirillkom/project-brain/internal/infrastructure/resilience"
)

const (
	answerTemperature     = 0.3
	extractionTemperature = 0.1
)

type Client struct {
	baseURL    string
	genModel   string
	embedModel string
	httpClient *http.Client
	executor   *resilience.Executor
}

type Option func(*Client)

func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		if httpClient != nil {
			c.httpClient = httpClient
		}
	}
}

func WithExecutor(executor *resilience.Executor) Option {
	return func(c *Client) {
		c.executor = executor
	}
}

func New(baseURL, genModel, embedModel string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		genModel:   genModel,
		embedModel: embedModel,
		httpClient: &http.Client{Timeout: 120 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type Embedder struct {
	client    *Client
	dimension int
}

// NewEmbedder returns an embedder that rejects vectors whose width differs
// from dimension. A non-positive dimension disables the check.
func NewEmbedder(client *Client, dimension int) *Embedder {
	return &Embedder{client: client, dimension: dimension}
}

func (e *Embedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	request := map[string]any{
		"model": e.client.embedModel,
		"input": texts,
	}

	var response struct {
		Embeddings [][]float32 `json:"embeddings"`
	}
	if err := e.client.postJSON(ctx, "/api/embed", request, &response, "embed"); err != nil {
		return nil, err
	}
	if len(response.Embeddings) != len(texts) {
		return nil, fmt.Errorf("ollama embed: got %d vectors for %d inputs", len(response.Embeddings), len(texts))
	}
	if e.dimension > 0 {
		for i, vec := range response.Embeddings {
			if len(vec) != e.dimension {
				return nil, domain.WrapError(domain.ErrInvalidInput, "ollama embed",
					fmt.Errorf("vector %d has dimension %d, want %d", i, len(vec), e.dimension))
			}
		}
	}
	return response.Embeddings, nil
}

func (e *Embedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	vectors, err := e.Embed(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(vectors) == 0 {
		return nil, fmt.Errorf("empty embedding result")
	}
	return vectors[0], nil
}

// Generator writes grounded answers from retrieved chunks.
type Generator struct {
	client *Client
}

func NewGenerator(client *Client) *Generator {
	return &Generator{client: client}
}

// GenerateAnswer answers question from chunks. history holds earlier turns of
// the same conversation, oldest first.
func (g *Generator) GenerateAnswer(ctx context.Context, question string, history []domain.ConversationTurn, chunks []domain.ScoredChunk) (string, error) {
	return g.client.generate(ctx, generateRequest{
		System:      answerSystemPrompt,
		Prompt:      buildAnswerPrompt(question, history, chunks),
		Temperature: answerTemperature,
	})
}

// RecordExtractor asks the model for raw schedule rows in JSON mode.
type RecordExtractor struct {
	client *Client
}

func NewRecordExtractor(client *Client) *RecordExtractor {
	return &RecordExtractor{client: client}
}

func (r *RecordExtractor) GenerateRecords(ctx context.Context, entityType domain.EntityType, chunks []domain.ScoredChunk) ([]map[string]any, error) {
	prompt, err := buildRecordPrompt(entityType, chunks)
	if err != nil {
		return nil, err
	}
	raw, err := r.client.generate(ctx, generateRequest{
		System:      extractionSystemPrompt,
		Prompt:      prompt,
		Temperature: extractionTemperature,
		JSON:        true,
	})
	if err != nil {
		return nil, err
	}
	return parseRecords(raw)
}

type generateRequest struct {
	System      string
	Prompt      string
	Temperature float64
	JSON        bool
}

func (c *Client) generate(ctx context.Context, in generateRequest) (string, error) {
	reqBody := map[string]any{
		"model":  c.genModel,
		"prompt": in.Prompt,
		"stream": false,
		"options": map[string]any{
			"temperature": in.Temperature,
		},
	}
	if in.System != "" {
		reqBody["system"] = in.System
	}
	if in.JSON {
		reqBody["format"] = "json"
	}

	var response struct {
		Response string `json:"response"`
	}
	if err := c.postJSON(ctx, "/api/generate", reqBody, &response, "generate"); err != nil {
		return "", err
	}
	return strings.TrimSpace(response.Response), nil
}
