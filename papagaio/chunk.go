package papagaio

import "unicode/utf8"

// SplitMessage slices text into ordered segments of at most limit bytes, by
// greedy left-to-right slicing. The segments partition the input exactly:
// concatenating them in order reconstructs the original text, with no
// overlap and no reordering. An empty input yields nil, and no zero-length
// segment is ever emitted.
//
// A cut never lands inside a multi-byte character: when the byte boundary
// falls mid-rune, the cut backs up to the previous rune start, so every
// segment is valid UTF-8 on its own. Accented text (ç, ã, é) is routine in
// the replies and each such character is two bytes, so a raw byte cut would
// corrupt both segments it touches. The only segment that may exceed limit
// is a single rune wider than the limit itself, which is emitted whole.
//
// A split may still fall inside a word. That's fine: limit is a safety
// margin under Discord's hard message-size ceiling, not a readability
// concern.
func SplitMessage(text string, limit int) []string {
	if text == "" || limit < 1 {
		return nil
	}

	chunks := make([]string, 0, (len(text)+limit-1)/limit)
	for start := 0; start < len(text); {
		end := start + limit
		if end >= len(text) {
			chunks = append(chunks, text[start:])
			break
		}
		for end > start && !utf8.RuneStart(text[end]) {
			end--
		}
		if end == start {
			_, size := utf8.DecodeRuneInString(text[start:])
			end = start + size
		}
		chunks = append(chunks, text[start:end])
		start = end
	}
	return chunks
}
