package retrieval

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/vectorstores"
	"github.com/tmc/langchaingo/vectorstores/chroma"
)

type ChromaConfig struct {
	URL         string  `envconfig:"URL" default:"http://localhost:8000"`
	Namespace   string  `envconfig:"NAMESPACE" default:"AutoStream"`
	MinScore    float32 `envconfig:"MIN_SCORE" split_words:"true" default:"0"`
	ResetOnSeed bool    `envconfig:"RESET_ON_SEED" default:"false"`
}

type EmbedConfig struct {
	Model     string `envconfig:"MODEL" default:"nomic-embed-text:v1.5"`
	ServerURL string `envconfig:"SERVER_URL" split_words:"true" default:"http://localhost:11434"`
}

// NewChromaStore connects to a chroma collection embedded with an ollama model.
func NewChromaStore(cfg ChromaConfig, embed EmbedConfig) (*chroma.Store, error) {
	llm, err := ollama.New(
		ollama.WithModel(embed.Model),
		ollama.WithServerURL(embed.ServerURL),
	)
	if err != nil {
		return nil, fmt.Errorf("create ollama client: %w", err)
	}

	embedder, err := embeddings.NewEmbedder(llm)
	if err != nil {
		return nil, fmt.Errorf("create embedder: %w", err)
	}

	store, err := chroma.New(
		chroma.WithChromaURL(cfg.URL),
		chroma.WithEmbedder(embedder),
		chroma.WithDistanceFunction("cosine"),
		chroma.WithNameSpace(cfg.Namespace),
	)
	if err != nil {
		return nil, fmt.Errorf("create chroma store: %w", err)
	}
	return &store, nil
}

// VectorRetriever answers searches from a vector index.
type VectorRetriever struct {
	store    vectorstores.VectorStore
	minScore float32
}

func NewVectorRetriever(store vectorstores.VectorStore, minScore float32) (*VectorRetriever, error) {
	if store == nil {
		return nil, errors.New("vector store is required")
	}
	return &VectorRetriever{store: store, minScore: minScore}, nil
}

func (r *VectorRetriever) Search(ctx context.Context, query string, topK int) (string, bool, error) {
	if strings.TrimSpace(query) == "" {
		return "", false, nil
	}
	if topK < 1 {
		topK = 1
	}

	var opts []vectorstores.Option
	if r.minScore > 0 {
		opts = append(opts, vectorstores.WithScoreThreshold(r.minScore))
	}

	docs, err := r.store.SimilaritySearch(ctx, query, topK, opts...)
	if err != nil {
		return "", false, fmt.Errorf("similarity search: %w", err)
	}

	passages := make([]string, 0, len(docs))
	for _, d := range docs {
		if text := strings.TrimSpace(d.PageContent); text != "" {
			passages = append(passages, text)
		}
	}
	if len(passages) == 0 {
		return "", false, nil
	}
	return strings.Join(passages, "\n\n"), true, nil
}
