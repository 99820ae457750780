package domain

import "fmt"

// Document describes one ingested file. Created on successful ingestion and
// immutable afterwards; it lives exactly as long as its owning tenant index.
type Document struct {
	ID         string
	FileName   string
	FileType   string
	SizeBytes  int64
	ChunkCount int
}

// Chunk is a bounded slice of a document's text, the unit of embedding and
// retrieval. Chunks never span documents; Index follows reading order.
type Chunk struct {
	ID         string
	DocumentID string
	Index      int
	Text       string
	TokenCount int
}

// ChunkKey builds the deterministic vector record key for a chunk.
// Deterministic keys make re-ingestion of the same document idempotent.
func ChunkKey(documentID string, index int) string {
	return fmt.Sprintf("%s_chunk_%d", documentID, index)
}
