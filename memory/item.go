package memory

import (
	"time"

	"github.com/google/uuid"
)

// BaseItem is the concrete record behind every store kind. Typed items
// (WorkingItem, Episode, ...) embed it and add their own fields.
type BaseItem struct {
	id         string
	content    interface{}
	metadata   map[string]interface{}
	createdAt  time.Time
	updatedAt  time.Time
	expiresAt  *time.Time
	importance float64
	embedding  []float32
}

// NewBaseItem creates an item with a generated id, the current timestamps,
// and the default importance of 0.5.
func NewBaseItem(content interface{}) *BaseItem {
	return NewBaseItemWithID(uuid.New().String(), content)
}

// NewBaseItemWithID creates an item under a caller-supplied id.
// An empty id is replaced with a generated one.
func NewBaseItemWithID(id string, content interface{}) *BaseItem {
	if id == "" {
		id = uuid.New().String()
	}
	now := time.Now()
	return &BaseItem{
		id:         id,
		content:    content,
		metadata:   make(map[string]interface{}),
		createdAt:  now,
		updatedAt:  now,
		importance: 0.5,
	}
}

// baseFromDocument rebuilds a BaseItem from a stored document.
// Used by ItemFromDocument when deserializing.
func baseFromDocument(doc map[string]interface{}) *BaseItem {
	it := NewBaseItemWithID(docString(doc, "id"), doc["content"])
	if md, ok := doc["metadata"].(map[string]interface{}); ok {
		for k, v := range md {
			it.metadata[k] = v
		}
	}
	if t, ok := docTime(doc, "created_at"); ok {
		it.createdAt = t
		it.updatedAt = t
	}
	if t, ok := docTime(doc, "updated_at"); ok {
		it.updatedAt = t
	}
	if t, ok := docTime(doc, "expires_at"); ok {
		it.expiresAt = &t
	}
	if f, ok := docFloat(doc, "importance"); ok {
		it.importance = clampImportance(f)
	}
	if emb := docEmbedding(doc, "embedding"); emb != nil {
		it.embedding = emb
	}
	return it
}

// Item interface implementation

func (b *BaseItem) ID() string {
	return b.id
}

func (b *BaseItem) Content() interface{} {
	return b.content
}

func (b *BaseItem) Metadata() map[string]interface{} {
	return b.metadata
}

func (b *BaseItem) CreatedAt() time.Time {
	return b.createdAt
}

func (b *BaseItem) UpdatedAt() time.Time {
	return b.updatedAt
}

func (b *BaseItem) ExpiresAt() *time.Time {
	return b.expiresAt
}

func (b *BaseItem) Importance() float64 {
	return b.importance
}

func (b *BaseItem) Embedding() []float32 {
	return b.embedding
}

func (b *BaseItem) SetEmbedding(emb []float32) {
	b.embedding = emb
	b.touch()
}

// Mutators. Each refreshes UpdatedAt.

// SetContent replaces the payload.
func (b *BaseItem) SetContent(content interface{}) {
	b.content = content
	b.touch()
}

// MergeMetadata applies the patch key-wise; keys absent from the patch are
// left untouched.
func (b *BaseItem) MergeMetadata(patch map[string]interface{}) {
	for k, v := range patch {
		b.metadata[k] = v
	}
	b.touch()
}

// SetImportance sets the importance score, clamped to [0,1].
func (b *BaseItem) SetImportance(importance float64) {
	b.importance = clampImportance(importance)
	b.touch()
}

// SetExpiresAt sets or clears (nil) the expiry timestamp.
func (b *BaseItem) SetExpiresAt(t *time.Time) {
	b.expiresAt = t
	b.touch()
}

// touch refreshes UpdatedAt, keeping UpdatedAt >= CreatedAt.
func (b *BaseItem) touch() {
	now := time.Now()
	if now.Before(b.createdAt) {
		now = b.createdAt
	}
	b.updatedAt = now
}

// ToDocument returns the item's full field set as a plain document.
func (b *BaseItem) ToDocument() map[string]interface{} {
	return b.baseDocument()
}

func (b *BaseItem) baseDocument() map[string]interface{} {
	doc := map[string]interface{}{
		"id":         b.id,
		"content":    b.content,
		"metadata":   copyMetadata(b.metadata),
		"created_at": b.createdAt.Format(time.RFC3339Nano),
		"updated_at": b.updatedAt.Format(time.RFC3339Nano),
		"importance": b.importance,
	}
	if b.expiresAt != nil {
		doc["expires_at"] = b.expiresAt.Format(time.RFC3339Nano)
	}
	if b.embedding != nil {
		doc["embedding"] = b.embedding
	}
	return doc
}

func clampImportance(f float64) float64 {
	if f < 0 {
		return 0
	}
	if f > 1 {
		return 1
	}
	return f
}

func copyMetadata(md map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(md))
	for k, v := range md {
		out[k] = v
	}
	return out
}
