package memory

import (
	"context"
	"fmt"
	"time"
)

// Kind identifies a memory store variant. The set is closed: the Registry
// and the NewStore factory only know these five kinds.
type Kind string

const (
	KindVector   Kind = "vector"
	KindGraph    Kind = "graph"
	KindEpisodic Kind = "episodic"
	KindSemantic Kind = "semantic"
	KindWorking  Kind = "working"
)

// Item is the contract every storable memory record implements.
// Implementations are SDK-provided (BaseItem, WorkingItem, Episode,
// SemanticItem, GraphItem, VectorItem); each store kind holds one variant.
//
// Identity is immutable after creation; the payload, metadata, importance,
// and embedding are mutable. Every mutation refreshes UpdatedAt, so
// UpdatedAt >= CreatedAt always holds.
type Item interface {
	// Identity
	ID() string

	// Content & Metadata
	Content() interface{}             // Opaque payload, any serializable value
	Metadata() map[string]interface{} // Flexible metadata for custom fields

	// Temporal
	CreatedAt() time.Time
	UpdatedAt() time.Time
	ExpiresAt() *time.Time // nil = never expires

	// Retrieval
	Importance() float64  // [0,1], default 0.5
	Embedding() []float32 // Vector for similarity search, nil if unset
	SetEmbedding([]float32)

	// ToDocument returns the item as a plain key/value document for
	// persistence collaborators. ItemFromDocument is the inverse.
	ToDocument() map[string]interface{}
}

// Store is the contract all memory store kinds implement.
//
// Absence is never an error: Get/Update return nil and Remove returns
// false for a missing id. Callers rely on that quiet contract.
//
// Implementations:
//   - BaseStore: generic in-memory map store
//   - WorkingStore: capacity/TTL-bounded short-term context
//   - EpisodicStore, SemanticStore, GraphStore, VectorStore: typed variants
//   - chromem.Store: vector store backed by an embedded chromem index
type Store interface {
	// Identity
	Name() string
	Kind() Kind

	// Item lifecycle
	Add(item Item) string // Overwrites an existing id; returns the id
	Get(id string) Item   // nil if absent
	// Update replaces content when non-nil, merges the metadata patch
	// key-wise, and refreshes UpdatedAt. Returns nil if absent.
	Update(id string, content interface{}, metadata map[string]interface{}) Item
	Remove(id string) bool
	Clear()

	// Queries
	List() []Item
	Count() int
	Filter(pred func(Item) bool) []Item
	// Search accepts a string (case-insensitive substring over content and
	// metadata) or a map[string]interface{} (all pairs must equal item
	// metadata). Results are ordered by importance descending then id, and
	// truncated to limit. Any other query shape matches nothing.
	Search(query interface{}, limit int) []Item

	// Store-level annotations, independent of items.
	SetMetadata(key string, value interface{})
	GetMetadata(key string, def interface{}) interface{}

	// ToDocument returns the store's own descriptor (name, kind,
	// store-level metadata) for persistence collaborators.
	ToDocument() map[string]interface{}
}

// Embedder converts text to vector embeddings. The core never computes
// embeddings itself; vector-kind stores consume this boundary.
// Implementations: mock.Embedder (testing), cached.Embedder (decorator).
type Embedder interface {
	// Embed converts a single text to an embedding vector.
	Embed(ctx context.Context, text string) ([]float32, error)

	// Dimensions returns the embedding vector size.
	Dimensions() int
}

// Index is the external similarity-search collaborator consumed by the
// in-memory VectorStore. chromem.Store is its own index and does not use
// this hook.
type Index interface {
	// Similar returns the ids of the k stored items closest to the
	// embedding, best first.
	Similar(ctx context.Context, embedding []float32, k int) ([]string, error)
}

// NewStore constructs an in-memory store of the given kind.
// An unknown kind is a programmer error and returns an error; this is the
// only construction-time failure in the core.
func NewStore(kind Kind, name string) (Store, error) {
	switch kind {
	case KindWorking:
		return NewWorkingStore(name, nil)
	case KindEpisodic:
		return NewEpisodicStore(name), nil
	case KindSemantic:
		return NewSemanticStore(name), nil
	case KindGraph:
		return NewGraphStore(name), nil
	case KindVector:
		return NewVectorStore(name, nil), nil
	default:
		return nil, fmt.Errorf("memory: unsupported store kind %q", kind)
	}
}
