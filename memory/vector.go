package memory

import "context"

// VectorItem is an embedding-carrying record. The source text is kept
// alongside the payload so collaborators can re-embed after model changes.
type VectorItem struct {
	BaseItem
	sourceText string
}

// NewVectorItem creates a vector item with a generated id.
func NewVectorItem(content interface{}, sourceText string) *VectorItem {
	return NewVectorItemWithID("", content, sourceText)
}

// NewVectorItemWithID creates a vector item under a caller-supplied id.
func NewVectorItemWithID(id string, content interface{}, sourceText string) *VectorItem {
	return &VectorItem{
		BaseItem:   *NewBaseItemWithID(id, content),
		sourceText: sourceText,
	}
}

func vectorItemFromDocument(doc map[string]interface{}) *VectorItem {
	return &VectorItem{
		BaseItem:   *baseFromDocument(doc),
		sourceText: docString(doc, "source_text"),
	}
}

// SourceText returns the text the embedding was computed from.
func (v *VectorItem) SourceText() string {
	return v.sourceText
}

func (v *VectorItem) ToDocument() map[string]interface{} {
	doc := v.baseDocument()
	doc["source_text"] = v.sourceText
	return doc
}

// VectorStore is the in-memory vector kind. CRUD and the linear-scan
// Search come from BaseStore; similarity search is delegated to an
// optional external Index (similarity computation is not done here).
// For a self-indexing vector store, see memory/store/chromem.
type VectorStore struct {
	*BaseStore
	index Index
}

// NewVectorStore creates a vector store. The index may be nil, in which
// case SimilarByEmbedding returns nothing.
func NewVectorStore(name string, index Index) *VectorStore {
	return &VectorStore{
		BaseStore: NewBaseStore(name, KindVector),
		index:     index,
	}
}

// SimilarByEmbedding asks the index for the k nearest stored items.
// Ids the index returns for since-removed items are skipped.
func (s *VectorStore) SimilarByEmbedding(ctx context.Context, embedding []float32, k int) ([]Item, error) {
	if s.index == nil {
		return nil, nil
	}
	ids, err := s.index.Similar(ctx, embedding, k)
	if err != nil {
		return nil, err
	}
	var out []Item
	for _, id := range ids {
		if item := s.Get(id); item != nil {
			out = append(out, item)
		}
	}
	return out, nil
}
