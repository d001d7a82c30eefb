package usecase

import (
	"math/rand/v2"

	"github.com/samber/lo"

	"github.com/eslsoft/flashdeck/internal/entity"
)

const (
	DefaultChunkSize = 15
	// LearningMinChunkSize is the smallest chunk a learning round may have.
	LearningMinChunkSize = 8
)

// ShuffleFunc reorders ids in place.
type ShuffleFunc func(ids []int64)

// FisherYates shuffles ids with an unbiased Fisher–Yates pass.
func FisherYates(ids []int64) {
	rand.Shuffle(len(ids), func(i, j int) { ids[i], ids[j] = ids[j], ids[i] })
}

// BuildChunks shuffles wordIDs and partitions them into chunks of chunkSize.
// When minChunkSize > 1 a short trailing chunk borrows words from the ends of
// earlier chunks without pushing any donor below the minimum; if it still
// falls short, all words are returned as a single chunk.
func BuildChunks(wordIDs []int64, chunkSize, minChunkSize int, shuffle ShuffleFunc) [][]int64 {
	if len(wordIDs) == 0 {
		return [][]int64{}
	}
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	if shuffle == nil {
		shuffle = FisherYates
	}

	ids := append([]int64(nil), wordIDs...)
	shuffle(ids)
	chunks := lo.Chunk(ids, chunkSize)
	if minChunkSize <= 1 || len(chunks) < 2 {
		return chunks
	}

	lastIdx := len(chunks) - 1
	last := chunks[lastIdx]
	for donor := lastIdx - 1; donor >= 0 && len(last) < minChunkSize; donor-- {
		for len(last) < minChunkSize && len(chunks[donor]) > minChunkSize {
			src := chunks[donor]
			moved := src[len(src)-1]
			chunks[donor] = src[:len(src)-1:len(src)-1]
			last = append([]int64{moved}, last...)
		}
	}
	chunks[lastIdx] = last

	if len(last) < minChunkSize {
		return [][]int64{lo.Flatten(chunks)}
	}
	return chunks
}

// ChunkSession tracks progress through a multi-chunk launch.
type ChunkSession struct {
	Mode                  entity.Mode
	CategoryIDs           []int64
	StarMode              entity.StarMode
	CategoryLabelOverride string

	chunks [][]int64
	index  int
}

// NewChunkSession returns nil when chunks is empty.
func NewChunkSession(mode entity.Mode, categoryIDs []int64, chunks [][]int64, starMode entity.StarMode, labelOverride string) *ChunkSession {
	if len(chunks) == 0 {
		return nil
	}
	frozen := make([][]int64, len(chunks))
	for i, c := range chunks {
		frozen[i] = append([]int64(nil), c...)
	}
	return &ChunkSession{
		Mode:                  mode,
		CategoryIDs:           append([]int64(nil), categoryIDs...),
		StarMode:              starMode,
		CategoryLabelOverride: labelOverride,
		chunks:                frozen,
	}
}

// Index is the zero-based position of the current chunk.
func (s *ChunkSession) Index() int { return s.index }

// Total is the number of chunks.
func (s *ChunkSession) Total() int { return len(s.chunks) }

// Current returns a copy of the current chunk.
func (s *ChunkSession) Current() []int64 {
	return append([]int64(nil), s.chunks[s.index]...)
}

// HasNext reports whether another chunk follows the current one.
func (s *ChunkSession) HasNext() bool { return s.index+1 < len(s.chunks) }

// Advance moves to the next chunk; it reports false at the end.
func (s *ChunkSession) Advance() bool {
	if !s.HasNext() {
		return false
	}
	s.index++
	return true
}

// AllWordIDs returns every word across all chunks.
func (s *ChunkSession) AllWordIDs() []int64 {
	return lo.Flatten(s.chunks)
}
