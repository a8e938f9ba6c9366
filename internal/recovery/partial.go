package recovery

import (
	"github.com/tidwall/gjson"

	"content-agent/internal/domain/entity"
)

// PartialExtraction scans text for balanced {...} fragments anywhere,
// independent of surrounding array syntax, and keeps those that validate as
// content items. A fragment that is not itself an item (a wrapper object or a
// span broken by a stray character) is searched for nested fragments.
func PartialExtraction(text string) ([]entity.ContentItem, error) {
	return partialExtractionIndexed(text, newBracketIndex(text))
}

func partialExtractionIndexed(text string, idx *bracketIndex) ([]entity.ContentItem, error) {
	items := extractFragments(text, idx, 0, len(text), 0, nil)
	if len(items) == 0 {
		return nil, ErrNoFragments
	}
	return items, nil
}

// extractFragments collects items from the balanced objects inside
// text[lo:hi]. An object whose closer lies beyond hi is skipped so that
// objects nested after it are still found.
func extractFragments(text string, idx *bracketIndex, lo, hi, level int, items []entity.ContentItem) []entity.ContentItem {
	for i := lo; i < hi; i++ {
		if text[i] != '{' {
			continue
		}
		end := idx.closeOf(i)
		if end < 0 || end >= hi {
			continue
		}
		span := text[i : end+1]
		if gjson.Valid(span) {
			if item, err := DecodeItem(gjson.Parse(span)); err == nil {
				items = append(items, item)
				i = end
				continue
			}
		}
		if level+1 < maxNesting {
			items = extractFragments(text, idx, i+1, end, level+1, items)
		}
		i = end
	}
	return items
}
