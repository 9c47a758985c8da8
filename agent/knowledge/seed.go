package knowledge

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/tmc/langchaingo/schema"
	"github.com/tmc/langchaingo/vectorstores"
)

// Seed adds docs to the vector index and returns how many were written.
// Documents with empty content are skipped.
func Seed(ctx context.Context, store vectorstores.VectorStore, docs []Document) (int, error) {
	if store == nil {
		return 0, errors.New("vector store is required")
	}

	batch := make([]schema.Document, 0, len(docs))
	for _, d := range docs {
		if strings.TrimSpace(d.Content) == "" {
			continue
		}
		meta := make(map[string]any, len(d.Metadata)+1)
		for k, v := range d.Metadata {
			meta[k] = v
		}
		meta["doc_id"] = d.ID
		batch = append(batch, schema.Document{PageContent: d.Content, Metadata: meta})
	}
	if len(batch) == 0 {
		return 0, errors.New("no documents to seed")
	}

	ids, err := store.AddDocuments(ctx, batch)
	if err != nil {
		return 0, fmt.Errorf("add documents: %w", err)
	}
	log.Info().Int("documents", len(ids)).Msg("knowledge base seeded")
	return len(ids), nil
}
