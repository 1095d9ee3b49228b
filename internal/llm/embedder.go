package llm

import (
	"context"
	"fmt"

	"github.com/tidwall/gjson"
)

type embeddingRequest struct {
	Input []string `json:"input"`
}

// embedder behind a serving endpoint
type EndpointEmbedder struct {
	invoker  Invoker
	endpoint string
}

func NewEndpointEmbedder(invoker Invoker, endpoint string) *EndpointEmbedder {
	return &EndpointEmbedder{
		invoker:  invoker,
		endpoint: endpoint,
	}
}

func (e *EndpointEmbedder) GenerateEmbedding(ctx context.Context, text string) ([]float32, error) {
	embeddings, err := e.GenerateEmbeddings(ctx, []string{text})
	if err != nil {
		return nil, err
	}

	if len(embeddings) == 0 {
		return nil, fmt.Errorf("no embeddings returned")
	}

	return embeddings[0], nil
}

func (e *EndpointEmbedder) GenerateEmbeddings(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, fmt.Errorf("no texts provided")
	}

	raw, err := e.invoker.InvokeRaw(ctx, e.endpoint, embeddingRequest{Input: texts})
	if err != nil {
		return nil, err
	}

	embeddings, err := parseEmbeddings(raw)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", e.endpoint, err)
	}

	if len(embeddings) != len(texts) {
		return nil, fmt.Errorf("%s: expected %d embeddings, got %d", e.endpoint, len(texts), len(embeddings))
	}

	return embeddings, nil
}

// reads either the OpenAI shape {"data": [{"index", "embedding"}]} or the
// legacy {"predictions": [[...]]} shape
func parseEmbeddings(raw []byte) ([][]float32, error) {
	if !gjson.ValidBytes(raw) {
		return nil, fmt.Errorf("invalid embeddings response")
	}

	body := gjson.ParseBytes(raw)

	if data := body.Get("data"); data.IsArray() {
		items := data.Array()
		out := make([][]float32, len(items))

		for i, item := range items {
			idx := i
			if index := item.Get("index"); index.Exists() {
				idx = int(index.Int())
			}

			if idx < 0 || idx >= len(out) {
				return nil, fmt.Errorf("embedding index %d out of range", idx)
			}

			out[idx] = toVector(item.Get("embedding"))
		}

		return out, nil
	}

	if predictions := body.Get("predictions"); predictions.IsArray() {
		items := predictions.Array()
		out := make([][]float32, 0, len(items))

		for _, item := range items {
			if item.IsObject() {
				item = item.Get("embedding")
			}
			out = append(out, toVector(item))
		}

		return out, nil
	}

	return nil, fmt.Errorf("embeddings response has neither data nor predictions")
}

func toVector(r gjson.Result) []float32 {
	values := r.Array()
	vec := make([]float32, len(values))

	for i, v := range values {
		vec[i] = float32(v.Float())
	}

	return vec
}
