package recovery

import (
	"errors"

	"github.com/tidwall/gjson"

	"content-agent/internal/domain/entity"
)

var (
	// ErrNoArray indicates that the text holds no JSON array of objects.
	ErrNoArray = errors.New("recovery: no array of records found")

	// ErrNoValidRecords indicates that arrays of records were found but none validated.
	ErrNoValidRecords = errors.New("recovery: no valid records found")

	// ErrNoFragments indicates that no standalone object fragment validated.
	ErrNoFragments = errors.New("recovery: no valid object fragments found")
)

// StrictParse locates the first well-formed JSON array of objects in text,
// tolerating prose before and after it, and decodes its records. Records that
// fail validation are dropped; the stage succeeds when at least one remains.
//
// Candidate arrays are tried in order of their opening bracket, so an array
// of plain values such as ["tech"] nested inside a lone object is skipped.
func StrictParse(text string) ([]entity.ContentItem, error) {
	items, _, err := strictParse(text)
	return items, err
}

// strictParse also reports how many records of the chosen array were dropped.
func strictParse(text string) (items []entity.ContentItem, dropped int, err error) {
	return strictParseIndexed(text, newBracketIndex(text))
}

func strictParseIndexed(text string, idx *bracketIndex) (items []entity.ContentItem, dropped int, err error) {
	sawRecords := false
	for i := 0; i < len(text); i++ {
		if text[i] != '[' {
			continue
		}
		end := idx.closeOf(i)
		if end < 0 || idx.depth[i] >= maxNesting {
			continue
		}
		span := text[i : end+1]
		if !gjson.Valid(span) {
			continue
		}
		elems := gjson.Parse(span).Array()
		if !hasObject(elems) {
			continue
		}
		sawRecords = true

		items, dropped = decodeAll(elems)
		if len(items) > 0 {
			return items, dropped, nil
		}
	}

	if sawRecords {
		return nil, 0, ErrNoValidRecords
	}
	return nil, 0, ErrNoArray
}

func hasObject(elems []gjson.Result) bool {
	for _, el := range elems {
		if el.IsObject() {
			return true
		}
	}
	return false
}

func decodeAll(elems []gjson.Result) ([]entity.ContentItem, int) {
	items := make([]entity.ContentItem, 0, len(elems))
	dropped := 0
	for _, el := range elems {
		item, err := DecodeItem(el)
		if err != nil {
			dropped++
			continue
		}
		items = append(items, item)
	}
	return items, dropped
}
