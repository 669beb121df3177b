// Package memory provides a layered, in-process memory system for AI
// assistants: a common Item/Store contract, a registry of named stores,
// and typed store kinds for short-lived and long-lived agent context.
//
// Architecture:
//   - Item / Store: the generic lifecycle contract all memory kinds share
//   - Registry: catalog of named stores with fan-out dispatch
//   - WorkingStore: capacity- and TTL-bounded task context with
//     importance-based eviction and lazy expiry sweeps
//   - EpisodicStore: ordered event aggregates with tracked time bounds
//   - SemanticStore, GraphStore, VectorStore: long-lived knowledge kinds
//
// External collaborators stay behind interfaces: Embedder converts text to
// vectors (the core never computes embeddings), and persistence works
// through the ToDocument/ItemFromDocument document contract (see
// memory/store/sqlite). A chromem-go backed vector store lives in
// memory/store/chromem.
//
// All stores are safe for concurrent use by multiple goroutines sharing
// one instance. Absence is signaled by nil/false returns, never errors;
// only construction-time misuse returns an error.
package memory
