package generation

import "github.com/phrazzld/scry-gateway/internal/domain"

// DefaultChunkSize is the number of cards sent to the provider per distractor call.
const DefaultChunkSize = 10

// Chunk splits cards into consecutive groups of at most size cards.
// A size below one uses DefaultChunkSize.
func Chunk(cards []domain.CardRef, size int) [][]domain.CardRef {
	if size < 1 {
		size = DefaultChunkSize
	}

	chunks := make([][]domain.CardRef, 0, (len(cards)+size-1)/size)
	for start := 0; start < len(cards); start += size {
		end := min(start+size, len(cards))
		chunks = append(chunks, cards[start:end:end])
	}
	return chunks
}

// Merge unions the sets in order. A key already present is never overwritten.
func Merge(sets ...domain.DistractorSet) domain.DistractorSet {
	size := 0
	for _, s := range sets {
		size += len(s)
	}

	merged := make(domain.DistractorSet, size)
	for _, s := range sets {
		for id, distractors := range s {
			if _, ok := merged[id]; ok {
				continue
			}
			merged[id] = distractors
		}
	}
	return merged
}
