// Package chromem provides a vector-kind memory store backed by
// chromem-go, a pure Go embedded vector database.
//
// The local item map is the source of truth for the Store contract;
// chromem only indexes embeddings for similarity queries. chromem-go does
// not expose get or delete by id, so removed items are filtered out of
// query results instead.
package chromem

import (
	"context"
	"fmt"
	"log"
	"sort"
	"strings"
	"sync"

	chromem "github.com/philippgille/chromem-go"

	"github.com/opencortex/mnemo-go-sdk/memory"
)

// Store implements memory.Store for the vector kind. An optional Embedder
// enables text queries and automatic indexing of items added without an
// embedding.
type Store struct {
	name     string
	embedder memory.Embedder
	db       *chromem.DB
	col      *chromem.Collection

	mu    sync.RWMutex
	items map[string]memory.Item
	meta  map[string]interface{}
}

// New creates a chromem-backed store. The embedder may be nil; items then
// index only when they already carry an embedding, and SearchText is
// unavailable.
func New(name string, embedder memory.Embedder) (*Store, error) {
	if name == "" {
		name = "vectors"
	}
	db := chromem.NewDB()
	col, err := db.CreateCollection(
		collectionName(name),
		nil, // We provide embeddings ourselves
		nil, // Default cosine distance
	)
	if err != nil {
		return nil, fmt.Errorf("create collection: %w", err)
	}
	return &Store{
		name:     name,
		embedder: embedder,
		db:       db,
		col:      col,
		items:    make(map[string]memory.Item),
		meta:     make(map[string]interface{}),
	}, nil
}

func collectionName(name string) string {
	return "store_" + strings.ReplaceAll(name, " ", "_")
}

func (s *Store) Name() string {
	return s.name
}

func (s *Store) Kind() memory.Kind {
	return memory.KindVector
}

// Add stores the item and indexes its embedding. An item without an
// embedding is embedded from its text when an embedder is configured;
// otherwise it is stored unindexed and still reachable through the
// linear-scan Search.
func (s *Store) Add(item memory.Item) string {
	s.mu.Lock()
	s.items[item.ID()] = item
	emb := item.Embedding()
	text := itemText(item)
	s.mu.Unlock()
	s.index(context.Background(), item, emb, text)
	return item.ID()
}

// index adds the item's document to the chromem collection, embedding
// text first when emb is nil. emb and text are snapshots taken under the
// store lock; the computed embedding is written back under it.
func (s *Store) index(ctx context.Context, item memory.Item, emb []float32, text string) {
	if emb == nil && s.embedder != nil {
		if text == "" {
			return
		}
		vec, err := s.embedder.Embed(ctx, text)
		if err != nil {
			log.Printf("[CHROMEM] Failed to embed item %s: %v", item.ID(), err)
			return
		}
		s.mu.Lock()
		item.SetEmbedding(vec)
		s.mu.Unlock()
		emb = vec
	}
	if emb == nil {
		return
	}
	doc := chromem.Document{
		ID:        item.ID(),
		Content:   text,
		Embedding: emb,
	}
	if err := s.col.AddDocument(ctx, doc); err != nil {
		log.Printf("[CHROMEM] Failed to index item %s: %v", item.ID(), err)
	}
}

// itemText picks the text chromem indexes alongside the embedding.
func itemText(item memory.Item) string {
	if v, ok := item.(*memory.VectorItem); ok && v.SourceText() != "" {
		return v.SourceText()
	}
	if s, ok := item.Content().(string); ok {
		return s
	}
	return fmt.Sprintf("%v", item.Content())
}

func (s *Store) Get(id string) memory.Item {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.items[id]
}

type mutable interface {
	SetContent(interface{})
	MergeMetadata(map[string]interface{})
}

// Update follows the memory.Store contract; a content replacement
// re-indexes the item when an embedder is configured.
func (s *Store) Update(id string, content interface{}, metadata map[string]interface{}) memory.Item {
	s.mu.Lock()
	item, ok := s.items[id]
	if !ok {
		s.mu.Unlock()
		return nil
	}
	if m, ok := item.(mutable); ok {
		if content != nil {
			m.SetContent(content)
		}
		m.MergeMetadata(metadata)
	}
	reindex := content != nil && s.embedder != nil
	var text string
	if reindex {
		item.SetEmbedding(nil)
		text = itemText(item)
	}
	s.mu.Unlock()
	if reindex {
		s.index(context.Background(), item, nil, text)
	}
	return item
}

// Remove deletes the item from the live map. A stale chromem document may
// linger; similarity results are filtered against the map, so it can
// never resurface.
func (s *Store) Remove(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.items[id]; !ok {
		return false
	}
	delete(s.items, id)
	return true
}

// Clear drops all items and rebuilds the index.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = make(map[string]memory.Item)
	s.db = chromem.NewDB()
	col, err := s.db.CreateCollection(collectionName(s.name), nil, nil)
	if err != nil {
		// Only reachable with an invalid name, which New already vetted.
		log.Printf("[CHROMEM] Failed to recreate collection: %v", err)
		return
	}
	s.col = col
}

func (s *Store) List() []memory.Item {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]memory.Item, 0, len(s.items))
	for _, item := range s.items {
		out = append(out, item)
	}
	return out
}

func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}

func (s *Store) Filter(pred func(memory.Item) bool) []memory.Item {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []memory.Item
	for _, item := range s.items {
		if pred(item) {
			out = append(out, item)
		}
	}
	return out
}

// Search is the linear-scan fallback over the live map; similarity
// queries go through SearchSimilar or SearchText.
func (s *Store) Search(query interface{}, limit int) []memory.Item {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []memory.Item
	for _, item := range s.items {
		if memory.MatchQuery(item, query) {
			out = append(out, item)
		}
	}
	return memory.RankItems(out, limit)
}

// SearchSimilar returns up to k live items nearest to the embedding, best
// first.
func (s *Store) SearchSimilar(ctx context.Context, embedding []float32, k int) ([]memory.Item, error) {
	if k < 1 {
		return nil, nil
	}

	// chromem requires nResults <= collection size; retry with smaller
	// limits until the query fits.
	var results []chromem.Result
	for limit := k; limit >= 1; limit-- {
		var err error
		results, err = s.col.QueryEmbedding(ctx, embedding, limit, nil, nil)
		if err == nil {
			break
		}
		if isInsufficientDocsError(err) {
			if limit == 1 {
				return nil, nil // Empty collection
			}
			continue
		}
		return nil, fmt.Errorf("chromem query: %w", err)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []memory.Item
	for _, res := range results {
		if item, ok := s.items[res.ID]; ok {
			out = append(out, item)
		}
	}
	return out, nil
}

// SearchText embeds the query and delegates to SearchSimilar.
func (s *Store) SearchText(ctx context.Context, query string, k int) ([]memory.Item, error) {
	if s.embedder == nil {
		return nil, fmt.Errorf("chromem store %q has no embedder", s.name)
	}
	embedding, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	return s.SearchSimilar(ctx, embedding, k)
}

func (s *Store) SetMetadata(key string, value interface{}) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.meta[key] = value
}

func (s *Store) GetMetadata(key string, def interface{}) interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if v, ok := s.meta[key]; ok {
		return v
	}
	return def
}

func (s *Store) ToDocument() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()
	meta := make(map[string]interface{}, len(s.meta))
	for k, v := range s.meta {
		meta[k] = v
	}
	return map[string]interface{}{
		"name":     s.name,
		"kind":     string(memory.KindVector),
		"metadata": meta,
	}
}

// Reindex rebuilds the chromem index from the live map, embedding items
// that lack vectors when an embedder is configured. Used after loading a
// store from persistence.
func (s *Store) Reindex(ctx context.Context) error {
	s.mu.Lock()
	s.db = chromem.NewDB()
	col, err := s.db.CreateCollection(collectionName(s.name), nil, nil)
	if err != nil {
		s.mu.Unlock()
		return fmt.Errorf("recreate collection: %w", err)
	}
	s.col = col
	type entry struct {
		item memory.Item
		emb  []float32
		text string
	}
	entries := make([]entry, 0, len(s.items))
	for _, item := range s.items {
		entries = append(entries, entry{item, item.Embedding(), itemText(item)})
	}
	s.mu.Unlock()

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].item.ID() < entries[j].item.ID()
	})
	for _, e := range entries {
		s.index(ctx, e.item, e.emb, e.text)
	}
	return nil
}

// isInsufficientDocsError checks if the error is chromem rejecting a
// limit larger than the collection.
func isInsufficientDocsError(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "nResults must be") || strings.Contains(msg, "number of documents")
}
