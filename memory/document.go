package memory

import (
	"fmt"
	"time"
)

// ItemFromDocument rebuilds a typed item from a document produced by
// ToDocument. The kind selects the concrete variant; unknown kinds are a
// programmer error.
func ItemFromDocument(kind Kind, doc map[string]interface{}) (Item, error) {
	if doc == nil {
		return nil, fmt.Errorf("memory: nil document")
	}
	switch kind {
	case KindWorking:
		return workingItemFromDocument(doc), nil
	case KindEpisodic:
		return episodeFromDocument(doc), nil
	case KindSemantic:
		return semanticItemFromDocument(doc), nil
	case KindGraph:
		return graphItemFromDocument(doc), nil
	case KindVector:
		return vectorItemFromDocument(doc), nil
	default:
		return nil, fmt.Errorf("memory: unsupported item kind %q", kind)
	}
}

// Document field accessors. Documents round-trip through JSON, so numbers
// may arrive as float64 and embeddings as []interface{}.

func docString(doc map[string]interface{}, key string) string {
	s, _ := doc[key].(string)
	return s
}

func docTime(doc map[string]interface{}, key string) (time.Time, bool) {
	switch v := doc[key].(type) {
	case string:
		if t, err := time.Parse(time.RFC3339Nano, v); err == nil {
			return t, true
		}
	case time.Time:
		return v, true
	}
	return time.Time{}, false
}

func docFloat(doc map[string]interface{}, key string) (float64, bool) {
	switch v := doc[key].(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	}
	return 0, false
}

func docInt(doc map[string]interface{}, key string) (int, bool) {
	f, ok := docFloat(doc, key)
	if !ok {
		return 0, false
	}
	return int(f), true
}

func docEmbedding(doc map[string]interface{}, key string) []float32 {
	switch v := doc[key].(type) {
	case []float32:
		out := make([]float32, len(v))
		copy(out, v)
		return out
	case []float64:
		out := make([]float32, len(v))
		for i, f := range v {
			out[i] = float32(f)
		}
		return out
	case []interface{}:
		out := make([]float32, 0, len(v))
		for _, e := range v {
			f, ok := e.(float64)
			if !ok {
				return nil
			}
			out = append(out, float32(f))
		}
		return out
	}
	return nil
}
