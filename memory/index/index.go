// Package index provides semantic search over user memory records, backed
// by an embedded chromem-go vector store. Each user gets an isolated
// collection; a record's vector representation is refreshed on every
// upsert.
package index

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/philippgille/chromem-go"

	"github.com/hupe1980/agenthost/core"
	"github.com/hupe1980/agenthost/provider"
)

// Options configures an Index.
type Options struct {
	// EmbeddingFunc converts record content to a vector. Defaults to the
	// chromem OpenAI embedding function, which reads OPENAI_API_KEY.
	EmbeddingFunc chromem.EmbeddingFunc
}

// Index maintains a per-user vector collection of memory records.
type Index struct {
	db    *chromem.DB
	embed chromem.EmbeddingFunc

	mu sync.Mutex
}

// New creates an empty in-process index.
func New(optFns ...func(o *Options)) *Index {
	opts := Options{
		EmbeddingFunc: chromem.NewEmbeddingFuncDefault(),
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	return &Index{
		db:    chromem.NewDB(),
		embed: opts.EmbeddingFunc,
	}
}

func (i *Index) collection(userID string) (*chromem.Collection, error) {
	i.mu.Lock()
	defer i.mu.Unlock()

	col, err := i.db.GetOrCreateCollection("memory-"+userID, nil, i.embed)
	if err != nil {
		return nil, fmt.Errorf("failed to open memory collection for user %s: %w", userID, err)
	}
	return col, nil
}

// Upsert stores or refreshes the record's vector.
func (i *Index) Upsert(ctx context.Context, record core.MemoryRecord) error {
	col, err := i.collection(record.UserID)
	if err != nil {
		return err
	}

	return col.AddDocument(ctx, chromem.Document{
		ID:      record.ID,
		Content: record.Content,
	})
}

// Remove drops the record's vector. Removing an unknown record is a no-op.
func (i *Index) Remove(ctx context.Context, userID, recordID string) error {
	col, err := i.collection(userID)
	if err != nil {
		return err
	}
	if col.Count() == 0 {
		return nil
	}

	return col.Delete(ctx, nil, nil, recordID)
}

// Match is a search hit.
type Match struct {
	RecordID   string  `json:"id"`
	Content    string  `json:"content"`
	Similarity float32 `json:"similarity"`
}

// Search returns up to n records of userID ranked by similarity to query.
func (i *Index) Search(ctx context.Context, userID, query string, n int) ([]Match, error) {
	col, err := i.collection(userID)
	if err != nil {
		return nil, err
	}

	count := col.Count()
	if count == 0 {
		return nil, nil
	}
	if n <= 0 || n > count {
		n = count
	}

	results, err := col.Query(ctx, query, n, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to query memory collection: %w", err)
	}

	matches := make([]Match, 0, len(results))
	for _, r := range results {
		matches = append(matches, Match{
			RecordID:   r.ID,
			Content:    r.Content,
			Similarity: r.Similarity,
		})
	}

	return matches, nil
}

// NewSearchProvider returns the search_user_memory tool bound to one user.
func NewSearchProvider(idx *Index, userID string) provider.Provider {
	return provider.NewFunctionProvider(
		"search_user_memory",
		"Search the long-lived facts recorded about the current user by semantic similarity.",
		map[string]any{
			"type": "object",
			"properties": map[string]any{
				"query": map[string]any{
					"type":        "string",
					"description": "What to look for.",
				},
				"limit": map[string]any{
					"type":        "integer",
					"description": "Maximum number of matches to return. Defaults to 5.",
				},
			},
			"required": []string{"query"},
		},
		func(ctx context.Context, args map[string]any) (any, error) {
			query, _ := args["query"].(string)
			if query == "" {
				return nil, core.NewError(core.ErrInvalidArguments, "query must not be empty")
			}

			limit := 5
			if raw, ok := args["limit"].(float64); ok {
				limit = int(raw)
			}

			matches, err := idx.Search(ctx, userID, query, limit)
			if err != nil {
				return nil, core.WrapError(core.ErrProviderUnavailable, err, "memory search failed")
			}
			if matches == nil {
				matches = []Match{}
			}

			data, err := json.Marshal(matches)
			if err != nil {
				return nil, fmt.Errorf("failed to encode matches: %w", err)
			}

			return string(data), nil
		},
	)
}
