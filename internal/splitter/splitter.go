// Package splitter produces overlapping text chunks with stable ordering.
package splitter

import (
	"strings"
)

// Config controls chunking. Zero values fall back to the defaults.
type Config struct {
	ChunkSize  int
	Overlap    int
	Separators []string
}

const (
	DefaultChunkSize = 1000
	DefaultOverlap   = 200
)

// DefaultSeparators are tried in order; the empty separator is the hard-cut
// base case.
func DefaultSeparators() []string {
	return []string{"\n\n", "\n", ". ", " ", ""}
}

// Splitter is a recursive character splitter: it splits on the coarsest
// separator that yields segments within the chunk size, recursing to finer
// separators for oversized segments, then greedily merges adjacent segments
// carrying an overlap suffix into each following chunk.
type Splitter struct {
	chunkSize  int
	overlap    int
	separators []string
}

func New(cfg Config) *Splitter {
	s := &Splitter{
		chunkSize:  cfg.ChunkSize,
		overlap:    cfg.Overlap,
		separators: cfg.Separators,
	}
	if s.chunkSize <= 0 {
		s.chunkSize = DefaultChunkSize
	}
	if s.overlap < 0 {
		s.overlap = DefaultOverlap
	}
	// Overlap must stay below the chunk size or merging cannot advance.
	if s.overlap >= s.chunkSize {
		s.overlap = s.chunkSize / 5
	}
	if len(s.separators) == 0 {
		s.separators = DefaultSeparators()
	}
	return s
}

// Split returns the ordered chunk sequence for text. Repeated calls with the
// same input yield identical output.
func (s *Splitter) Split(text string) []string {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	chunks := s.splitText(text, s.separators)

	out := make([]string, 0, len(chunks))
	for _, c := range chunks {
		if strings.TrimSpace(c) != "" {
			out = append(out, c)
		}
	}
	return out
}

func (s *Splitter) splitText(text string, separators []string) []string {
	// Pick the first separator present in the text; the empty string always
	// matches and hard-cuts.
	separator := separators[len(separators)-1]
	var next []string
	for i, sep := range separators {
		if sep == "" {
			separator = sep
			next = nil
			break
		}
		if strings.Contains(text, sep) {
			separator = sep
			next = separators[i+1:]
			break
		}
	}

	splits := splitOn(text, separator)

	var final []string
	var good []string
	for _, piece := range splits {
		if runeLen(piece) < s.chunkSize {
			good = append(good, piece)
			continue
		}
		if len(good) > 0 {
			final = append(final, s.merge(good, separator)...)
			good = nil
		}
		if len(next) == 0 {
			final = append(final, piece)
		} else {
			final = append(final, s.splitText(piece, next)...)
		}
	}
	if len(good) > 0 {
		final = append(final, s.merge(good, separator)...)
	}
	return final
}

// merge greedily joins segments up to the chunk size, retaining an overlap
// suffix of segments as the prefix of the next chunk.
func (s *Splitter) merge(splits []string, separator string) []string {
	sepLen := runeLen(separator)

	var chunks []string
	var current []string
	total := 0

	flush := func() {
		if len(current) == 0 {
			return
		}
		doc := strings.Join(current, separator)
		if strings.TrimSpace(doc) != "" {
			chunks = append(chunks, doc)
		}
	}

	for _, piece := range splits {
		pieceLen := runeLen(piece)
		if total+pieceLen+sepLen*boolToInt(len(current) > 0) > s.chunkSize && len(current) > 0 {
			flush()
			// Drop leading segments until the retained suffix fits the
			// overlap budget.
			for total > s.overlap || (total+pieceLen+sepLen*boolToInt(len(current) > 0) > s.chunkSize && total > 0) {
				total -= runeLen(current[0]) + sepLen*boolToInt(len(current) > 1)
				current = current[1:]
			}
		}
		current = append(current, piece)
		total += pieceLen + sepLen*boolToInt(len(current) > 1)
	}
	flush()
	return chunks
}

// splitOn splits by sep, dropping the separator; merge re-inserts it when
// joining segments. The empty separator yields single-rune slices.
func splitOn(text, sep string) []string {
	if sep == "" {
		runes := []rune(text)
		out := make([]string, 0, len(runes))
		for _, r := range runes {
			out = append(out, string(r))
		}
		return out
	}
	parts := strings.Split(text, sep)
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func runeLen(s string) int { return len([]rune(s)) }

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
