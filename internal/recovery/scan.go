package recovery

// maxNesting bounds how deeply the parse stages look for candidate spans.
// Every candidate is validated in full, so the bound keeps recovery linear in
// the size of the text.
const maxNesting = 32

// bracketIndex maps every '[' and '{' of a text to its matching closer.
//
// String state is tracked from the first bracket onwards, so quotes in
// leading prose are ignored while brackets inside JSON string literals are
// not matched. Each bracket kind is matched on its own: a stray '}' never
// closes a '['.
type bracketIndex struct {
	// match holds the index of the closer, or -1 for unclosed openers,
	// brackets inside strings and every other byte.
	match []int
	// depth holds, for a matched opener, the number of matched spans of
	// the same kind enclosing it.
	depth []int
}

func newBracketIndex(text string) *bracketIndex {
	idx := &bracketIndex{match: make([]int, len(text)), depth: make([]int, len(text))}
	for i := range idx.match {
		idx.match[i] = -1
	}

	var arrays, objects []int
	inString := false
	escaped := false
	started := false
	for i := 0; i < len(text); i++ {
		c := text[i]
		if !started {
			if c != '[' && c != '{' {
				continue
			}
			started = true
		}
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '[':
			arrays = append(arrays, i)
		case '{':
			objects = append(objects, i)
		case ']':
			if n := len(arrays); n > 0 {
				idx.match[arrays[n-1]] = i
				arrays = arrays[:n-1]
			}
		case '}':
			if n := len(objects); n > 0 {
				idx.match[objects[n-1]] = i
				objects = objects[:n-1]
			}
		}
	}

	idx.fillDepth(text, '[')
	idx.fillDepth(text, '{')
	return idx
}

// fillDepth records the nesting depth of matched spans opened by open.
// Spans of one kind nest properly, so a stack of their ends suffices.
func (idx *bracketIndex) fillDepth(text string, open byte) {
	var ends []int
	for i := 0; i < len(text); i++ {
		for len(ends) > 0 && ends[len(ends)-1] < i {
			ends = ends[:len(ends)-1]
		}
		if text[i] != open || idx.match[i] < 0 {
			continue
		}
		idx.depth[i] = len(ends)
		ends = append(ends, idx.match[i])
	}
}

// closeOf returns the index of the bracket closing the one at i, or -1.
func (idx *bracketIndex) closeOf(i int) int {
	if i < 0 || i >= len(idx.match) {
		return -1
	}
	return idx.match[i]
}
