// Package engine orchestrates the retrieval-augmented generation flow for
// one tenant: chunk embedding and indexing at ingest time, and retrieval,
// prompt assembly and synthesis at query time.
package engine

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/studyowl/docrag/internal/domain"
	"github.com/studyowl/docrag/internal/vectorindex"
)

// NoRelevantInformation is the fixed answer for queries with no matching
// chunks. Returned without a language model call: an empty context saves the
// cost and removes the hallucination surface.
const NoRelevantInformation = "I couldn't find any relevant information in the uploaded documents to answer your question."

const (
	defaultBatchSize = 64
	defaultTopK      = 3
)

// State describes the tenant index lifecycle. Indexing is re-entrant; there
// is no failed terminal state, a failed ingestion leaves prior documents
// queryable.
type State int32

// Engine states.
const (
	StateEmpty State = iota
	StateIndexing
	StateReady
)

func (s State) String() string {
	switch s {
	case StateEmpty:
		return "empty"
	case StateIndexing:
		return "indexing"
	case StateReady:
		return "ready"
	default:
		return "unknown"
	}
}

// DocumentInfo pairs the per-document record with the caller's ingest metadata.
type DocumentInfo struct {
	Document domain.Document
	Metadata map[string]any
}

// Info aggregates index contents for observability and UI display.
type Info struct {
	DocumentCount int
	TotalChunks   int
	Documents     map[string]DocumentInfo
}

// QueryRequest shapes one question against the tenant's corpus. Mode changes
// instruction text only, never retrieval. SystemPrompt, when set, overrides
// the mode's default system message.
type QueryRequest struct {
	Question     string
	K            int
	Mode         string
	SystemPrompt string
}

// Engine is one tenant's RAG unit: an exclusive vector index plus provider
// handles. Engines share nothing across tenants.
type Engine struct {
	embedder  domain.Embedder
	generator domain.Generator
	index     *vectorindex.Index
	logger    *zap.Logger
	batchSize int
	defaultK  int

	mu        sync.Mutex
	state     State
	documents map[string]DocumentInfo
}

// New creates an engine with an empty index.
func New(embedder domain.Embedder, generator domain.Generator, logger *zap.Logger) *Engine {
	return &Engine{
		embedder:  embedder,
		generator: generator,
		index:     vectorindex.New(),
		logger:    logger,
		batchSize: defaultBatchSize,
		defaultK:  defaultTopK,
		documents: make(map[string]DocumentInfo),
	}
}

// WithBatchSize configures how many chunks go into one embedding call.
func (e *Engine) WithBatchSize(n int) *Engine {
	if n > 0 {
		e.batchSize = n
	}
	return e
}

// WithDefaultK configures the retrieval depth used when a query omits k.
func (e *Engine) WithDefaultK(k int) *Engine {
	if k > 0 {
		e.defaultK = k
	}
	return e
}

// State returns the current lifecycle state.
func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// Index exposes the tenant's vector index for direct lookups and filtering.
func (e *Engine) Index() *vectorindex.Index { return e.index }

// IndexDocument embeds every chunk's text (batched, concurrently) and inserts
// the results as vector records keyed {documentID}_chunk_{i}; positional order
// of chunks defines chunk_index. Ingestion is all-or-nothing per document:
// every batch must embed before anything is inserted, so a provider failure
// leaves zero records from this document while documents indexed earlier stay
// valid.
func (e *Engine) IndexDocument(ctx context.Context, documentID string, chunks []domain.Chunk, metadata map[string]any) error {
	if len(chunks) == 0 {
		return fmt.Errorf("document %q has no chunks: %w", documentID, domain.ErrEmptyInput)
	}

	e.setState(StateIndexing)
	defer e.settleState()

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}

	vectors, err := e.embedChunks(ctx, texts)
	if err != nil {
		return fmt.Errorf("embed document %q: %w", documentID, err)
	}

	// Validate dimensions before the first insert so a bad batch cannot
	// leave the document half-indexed.
	wantDim := e.index.Dim()
	for i, vec := range vectors {
		if wantDim == 0 {
			wantDim = len(vec)
		}
		if len(vec) == 0 || len(vec) != wantDim {
			return fmt.Errorf("embed document %q: chunk %d: %w",
				documentID, i, domain.NewDimensionMismatch(len(vec), wantDim))
		}
	}

	for i, chunk := range chunks {
		chunkMeta := map[string]any{
			"document_id": documentID,
			"chunk_index": i,
			"chunk_text":  chunk.Text,
		}
		for k, v := range metadata {
			if _, reserved := chunkMeta[k]; !reserved {
				chunkMeta[k] = v
			}
		}
		if err := e.index.Insert(domain.ChunkKey(documentID, i), vectors[i], chunkMeta); err != nil {
			return fmt.Errorf("index document %q: chunk %d: %w", documentID, i, err)
		}
	}

	e.mu.Lock()
	e.documents[documentID] = DocumentInfo{
		Document: documentRecord(documentID, len(chunks), metadata),
		Metadata: metadata,
	}
	e.mu.Unlock()

	e.logger.Info("document indexed",
		zap.String("document_id", documentID),
		zap.Int("chunks", len(chunks)),
	)
	return nil
}

// embedChunks issues one embedding request per batch concurrently and
// reassembles the vectors in input order, keeping chunk_index correct.
func (e *Engine) embedChunks(ctx context.Context, chunks []string) ([][]float32, error) {
	vectors := make([][]float32, len(chunks))

	type batch struct {
		offset int
		texts  []string
	}
	var batches []batch
	for off := 0; off < len(chunks); off += e.batchSize {
		end := off + e.batchSize
		if end > len(chunks) {
			end = len(chunks)
		}
		batches = append(batches, batch{offset: off, texts: chunks[off:end]})
	}

	errs := make([]error, len(batches))
	var wg sync.WaitGroup
	for bi, b := range batches {
		wg.Add(1)
		go func(bi int, b batch) {
			defer wg.Done()
			embeddings, err := e.embedBatch(ctx, b.texts)
			if err != nil {
				errs[bi] = err
				return
			}
			copy(vectors[b.offset:], embeddings)
		}(bi, b)
	}
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}
	return vectors, nil
}

func (e *Engine) embedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if be, ok := e.embedder.(domain.BatchEmbedder); ok {
		res, err := be.BatchEmbed(ctx, texts)
		if err != nil {
			return nil, err
		}
		return res.Embeddings, nil
	}
	res, err := domain.BatchFallback(ctx, e.embedder, texts)
	if err != nil {
		return nil, err
	}
	return res.Embeddings, nil
}

// SearchRelevantChunks embeds the question and returns the top-k
// metadata-enriched hits under cosine similarity.
func (e *Engine) SearchRelevantChunks(ctx context.Context, question string, k int) ([]vectorindex.MetadataHit, error) {
	if k <= 0 {
		k = e.defaultK
	}

	res, err := e.embedder.Embed(ctx, question)
	if err != nil {
		return nil, fmt.Errorf("embed question: %w", err)
	}

	hits, err := e.index.SearchWithMetadata(res.Embedding, k, vectorindex.Cosine)
	if err != nil {
		return nil, fmt.Errorf("search index: %w", err)
	}
	return hits, nil
}

// Query answers a question against the tenant's corpus: retrieve top-k
// chunks, assemble them into a context block in retrieval-score order, shape
// the prompt by mode, and return the model's output verbatim.
func (e *Engine) Query(ctx context.Context, req QueryRequest) (string, error) {
	hits, err := e.SearchRelevantChunks(ctx, req.Question, req.K)
	if err != nil {
		return "", err
	}
	if len(hits) == 0 {
		e.logger.Debug("no relevant chunks, skipping generation", zap.String("question", req.Question))
		return NoRelevantInformation, nil
	}

	contextParts := make([]string, 0, len(hits))
	for _, hit := range hits {
		if text, ok := hit.Metadata["chunk_text"].(string); ok && text != "" {
			contextParts = append(contextParts, text)
		}
	}
	contextBlock := strings.Join(contextParts, "\n\n")

	systemMsg, userMsg := buildPrompt(req.Mode, req.Question, contextBlock)
	if req.SystemPrompt != "" {
		systemMsg = req.SystemPrompt
	}

	answer, err := e.generator.Generate(ctx, []domain.Message{
		{Role: domain.RoleSystem, Content: systemMsg},
		{Role: domain.RoleUser, Content: userMsg},
	})
	if err != nil {
		return "", fmt.Errorf("generate answer: %w", err)
	}
	return answer, nil
}

// DocumentInfo returns aggregate counts and per-document metadata.
func (e *Engine) DocumentInfo() Info {
	e.mu.Lock()
	defer e.mu.Unlock()

	docs := make(map[string]DocumentInfo, len(e.documents))
	total := 0
	for id, info := range e.documents {
		docs[id] = info
		total += info.Document.ChunkCount
	}
	return Info{
		DocumentCount: len(docs),
		TotalChunks:   total,
		Documents:     docs,
	}
}

// documentRecord builds the document bookkeeping entry. File details travel
// in the ingest metadata under the file_* keys; absent or mistyped values
// leave the matching fields zero.
func documentRecord(id string, chunkCount int, md map[string]any) domain.Document {
	doc := domain.Document{ID: id, ChunkCount: chunkCount}
	if v, ok := md["file_name"].(string); ok {
		doc.FileName = v
	}
	if v, ok := md["file_type"].(string); ok {
		doc.FileType = v
	}
	switch v := md["file_size"].(type) {
	case int64:
		doc.SizeBytes = v
	case int:
		doc.SizeBytes = int64(v)
	}
	return doc
}

func (e *Engine) setState(s State) {
	e.mu.Lock()
	e.state = s
	e.mu.Unlock()
}

// settleState lands on Ready when any document is indexed, Empty otherwise.
func (e *Engine) settleState() {
	e.mu.Lock()
	if len(e.documents) > 0 {
		e.state = StateReady
	} else {
		e.state = StateEmpty
	}
	e.mu.Unlock()
}
