package memory

// SemanticItem is a long-lived fact record ("Jack lives in London") with a
// category tag and an extraction confidence.
type SemanticItem struct {
	BaseItem
	category   string
	confidence float64
}

// NewSemanticItem creates a fact with a generated id.
func NewSemanticItem(content interface{}, category string) *SemanticItem {
	return NewSemanticItemWithID("", content, category)
}

// NewSemanticItemWithID creates a fact under a caller-supplied id.
// Confidence defaults to 1.0.
func NewSemanticItemWithID(id string, content interface{}, category string) *SemanticItem {
	return &SemanticItem{
		BaseItem:   *NewBaseItemWithID(id, content),
		category:   category,
		confidence: 1.0,
	}
}

func semanticItemFromDocument(doc map[string]interface{}) *SemanticItem {
	it := &SemanticItem{
		BaseItem:   *baseFromDocument(doc),
		category:   docString(doc, "category"),
		confidence: 1.0,
	}
	if c, ok := docFloat(doc, "confidence"); ok {
		it.confidence = c
	}
	return it
}

func (s *SemanticItem) Category() string {
	return s.category
}

func (s *SemanticItem) Confidence() float64 {
	return s.confidence
}

// SetConfidence records how certain the extractor was about this fact.
func (s *SemanticItem) SetConfidence(c float64) {
	s.confidence = c
	s.touch()
}

func (s *SemanticItem) ToDocument() map[string]interface{} {
	doc := s.baseDocument()
	doc["category"] = s.category
	doc["confidence"] = s.confidence
	return doc
}

// SemanticStore holds fact records.
type SemanticStore struct {
	*BaseStore
}

// NewSemanticStore creates an empty semantic store.
func NewSemanticStore(name string) *SemanticStore {
	return &SemanticStore{BaseStore: NewBaseStore(name, KindSemantic)}
}

// GetByCategory returns the facts with the given category tag.
func (s *SemanticStore) GetByCategory(category string) []*SemanticItem {
	var out []*SemanticItem
	for _, item := range s.Filter(func(it Item) bool {
		fact, ok := it.(*SemanticItem)
		return ok && fact.category == category
	}) {
		out = append(out, item.(*SemanticItem))
	}
	return out
}
