// Package chunker splits extracted text into overlapping, token-bounded
// passages suitable for embedding and for model context windows.
package chunker

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/pkoukk/tiktoken-go"
	"go.uber.org/zap"
)

// Chunking defaults, matching the embedding model's comfortable window.
const (
	DefaultChunkSize = 1000
	DefaultOverlap   = 200

	// encodingModel selects the tiktoken encoding used for windowing.
	encodingModel = "text-embedding-3-small"

	// maxTokens caps pathological inputs before windowing.
	maxTokens = 100_000
)

var whitespaceRe = regexp.MustCompile(`\s+`)

// Encoder is the tokenization contract. Production uses tiktoken; tests
// inject deterministic encoders.
type Encoder interface {
	Encode(text string) []int
	Decode(tokens []int) string
}

type tiktokenEncoder struct {
	enc *tiktoken.Tiktoken
}

func (t tiktokenEncoder) Encode(text string) []int   { return t.enc.Encode(text, nil, nil) }
func (t tiktokenEncoder) Decode(tokens []int) string { return t.enc.Decode(tokens) }

// Piece is one chunk of text with its token count.
type Piece struct {
	Text       string
	TokenCount int
}

// Chunker slides a token window over text. A nil encoder means the
// whitespace fallback is used for everything.
type Chunker struct {
	enc    Encoder
	logger *zap.Logger
}

// New creates a chunker backed by the tiktoken encoding. If the encoding
// cannot be loaded the chunker degrades to whitespace word-count chunking,
// so chunking never fails for non-empty input.
func New(logger *zap.Logger) *Chunker {
	enc, err := tiktoken.EncodingForModel(encodingModel)
	if err != nil {
		logger.Warn("tokenizer unavailable, using whitespace fallback chunking", zap.Error(err))
		return &Chunker{logger: logger}
	}
	return &Chunker{enc: tiktokenEncoder{enc: enc}, logger: logger}
}

// NewWithEncoder creates a chunker with an injected encoder.
func NewWithEncoder(enc Encoder, logger *zap.Logger) *Chunker {
	return &Chunker{enc: enc, logger: logger}
}

// Chunk splits text into pieces of at most size tokens, with consecutive
// pieces sharing overlap tokens. The window advances by size-overlap each
// step, so overlap must be strictly smaller than size or the window would
// never advance; that misconfiguration is an error, never silently clamped.
func (c *Chunker) Chunk(text string, size, overlap int) ([]Piece, error) {
	if strings.TrimSpace(text) == "" {
		return nil, nil
	}
	if size <= 0 {
		return nil, fmt.Errorf("chunk size must be positive, got %d", size)
	}
	if overlap < 0 {
		return nil, fmt.Errorf("chunk overlap must not be negative, got %d", overlap)
	}
	if overlap >= size {
		return nil, fmt.Errorf("chunk overlap %d must be smaller than chunk size %d: window would never advance", overlap, size)
	}

	if c.enc == nil {
		return c.wordChunks(text, size), nil
	}

	tokens := c.enc.Encode(text)
	if len(tokens) > maxTokens {
		c.logger.Warn("input too large, truncating before chunking",
			zap.Int("tokens", len(tokens)),
			zap.Int("max_tokens", maxTokens),
		)
		tokens = tokens[:maxTokens]
	}

	step := size - overlap
	// Second safety net on top of the overlap invariant above.
	maxIterations := len(tokens)/step + 10

	var pieces []Piece
	for start, iter := 0, 0; start < len(tokens) && iter < maxIterations; start, iter = start+step, iter+1 {
		end := start + size
		if end > len(tokens) {
			end = len(tokens)
		}
		window := tokens[start:end]

		if txt := normalize(c.enc.Decode(window)); txt != "" {
			pieces = append(pieces, Piece{Text: txt, TokenCount: len(window)})
		}

		if end == len(tokens) {
			break
		}
	}
	return pieces, nil
}

// wordChunks is the fallback strategy: fixed windows of size words, no
// overlap. Robustness over linguistic precision.
func (c *Chunker) wordChunks(text string, size int) []Piece {
	words := strings.Fields(text)

	var pieces []Piece
	for start := 0; start < len(words); start += size {
		end := start + size
		if end > len(words) {
			end = len(words)
		}
		pieces = append(pieces, Piece{
			Text:       strings.Join(words[start:end], " "),
			TokenCount: end - start,
		})
	}
	return pieces
}

func normalize(text string) string {
	return strings.TrimSpace(whitespaceRe.ReplaceAllString(text, " "))
}
