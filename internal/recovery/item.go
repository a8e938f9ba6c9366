package recovery

import (
	"strings"
	"unicode"

	"github.com/tidwall/gjson"

	"content-agent/internal/domain/entity"
)

// imagePromptKeys are accepted spellings of the image prompt field, in priority order.
var imagePromptKeys = []string{"image_prompt", "image_concept", "imagePrompt"}

// DecodeItem validates one parsed JSON value against the ContentItem shape
// and returns the normalized item. It returns a *entity.ValidationError when
// the value is not an object or misses a required field.
func DecodeItem(v gjson.Result) (entity.ContentItem, error) {
	if !v.IsObject() {
		return entity.ContentItem{}, &entity.ValidationError{Field: "record", Message: "record must be an object"}
	}

	caption := v.Get("caption")
	if caption.Type != gjson.String {
		return entity.ContentItem{}, &entity.ValidationError{Field: "caption", Message: "caption must be a string"}
	}

	hashtags, err := stringList(v.Get("hashtags"), "hashtags")
	if err != nil {
		return entity.ContentItem{}, err
	}
	if hashtags == nil {
		return entity.ContentItem{}, &entity.ValidationError{Field: "hashtags", Message: "hashtags are required"}
	}

	keywords, err := stringList(v.Get("keywords"), "keywords")
	if err != nil {
		return entity.ContentItem{}, err
	}

	item := entity.ContentItem{
		Caption:      caption.String(),
		Hashtags:     hashtags,
		ImagePrompt:  firstString(v, imagePromptKeys...),
		Keywords:     keywords,
		ContentType:  firstString(v, "content_type"),
		CallToAction: firstString(v, "call_to_action"),
		BestTime:     firstString(v, "best_time"),
	}.Normalize()

	if err := item.Validate(); err != nil {
		return entity.ContentItem{}, err
	}
	return item, nil
}

// stringList reads a list of strings. Models sometimes send a single
// space or comma separated string instead of an array; that is split.
// A missing or null field yields nil.
func stringList(v gjson.Result, field string) ([]string, error) {
	switch {
	case !v.Exists() || v.Type == gjson.Null:
		return nil, nil
	case v.IsArray():
		out := []string{}
		for _, el := range v.Array() {
			switch el.Type {
			case gjson.String, gjson.Number:
				out = append(out, el.String())
			}
		}
		return out, nil
	case v.Type == gjson.String:
		return strings.FieldsFunc(v.String(), func(r rune) bool {
			return r == ',' || unicode.IsSpace(r)
		}), nil
	default:
		return nil, &entity.ValidationError{Field: field, Message: field + " must be a list of strings"}
	}
}

func firstString(v gjson.Result, keys ...string) string {
	for _, key := range keys {
		if r := v.Get(key); r.Type == gjson.String {
			return r.String()
		}
	}
	return ""
}
