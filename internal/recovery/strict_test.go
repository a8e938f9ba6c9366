package recovery

import (
	"encoding/json"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"

	"content-agent/internal/domain/entity"
)

func TestStrictParse_ScenarioInvalidEscape(t *testing.T) {
	raw := `[{"caption": "Hi\ there", "hashtags": ["ai"]}]`

	items, err := StrictParse(Sanitize(raw))

	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "Hi there", items[0].Caption)
	assert.Equal(t, []string{"#ai"}, items[0].Hashtags)
	assert.NotEmpty(t, items[0].ImagePrompt)
}

func TestStrictParse_RoundTrip(t *testing.T) {
	// Arrange: no caption holds two adjacent quotes; Sanitize collapses the
	// serialized \"\" to a single \" (see TestStrictParse_AdjacentQuotesCollapse).
	want := []entity.ContentItem{
		{
			Caption:      "Tokyo at night <3 & more",
			Hashtags:     []string{"#tokyo", "#night"},
			ImagePrompt:  "neon streets in the rain",
			Keywords:     []string{"travel", "japan"},
			ContentType:  "entertaining",
			CallToAction: "Share it!",
			BestTime:     "evening",
		},
		{
			Caption:     "Line one\nLine two with \"quotes\" and a \\ backslash 🚀",
			Hashtags:    []string{},
			ImagePrompt: "a chalkboard",
		},
		{
			Caption:     "Tabs\tand slashes / are fine",
			Hashtags:    []string{"#go"},
			ImagePrompt: "gopher",
			ContentType: "educational",
		},
	}
	data, err := json.Marshal(want)
	require.NoError(t, err)

	// Act
	got, err := StrictParse(Sanitize(string(data)))

	// Assert
	require.NoError(t, err)
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestStrictParse_AdjacentQuotesCollapse(t *testing.T) {
	data, err := json.Marshal([]entity.ContentItem{{Caption: `say "" now`, Hashtags: []string{"#x"}}})
	require.NoError(t, err)

	got, err := StrictParse(Sanitize(string(data)))

	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, `say " now`, got[0].Caption)
}

func TestStrictParse(t *testing.T) {
	tests := []struct {
		name         string
		text         string
		wantCaptions []string
		wantDropped  int
		wantErr      error
	}{
		{
			name:         "array wrapped in prose and code fence",
			text:         "Sure! Here is your plan:\n```json\n[{\"caption\":\"one\",\"hashtags\":[\"a\"]}]\n```\nEnjoy",
			wantCaptions: []string{"one"},
		},
		{
			name:         "array of plain values before the records is skipped",
			text:         `Topics: ["a","b"]. Plan: [{"caption":"x","hashtags":"#a #b"}]`,
			wantCaptions: []string{"x"},
		},
		{
			name: "invalid records are dropped",
			text: `[{"caption":"ok","hashtags":["a"]},{"caption":"","hashtags":["b"]},` +
				`{"hashtags":["c"]},{"caption":"no tags"},{"caption":42,"hashtags":[]},"str",5]`,
			wantCaptions: []string{"ok"},
			wantDropped:  6,
		},
		{
			name:         "records nested inside a wrapper object",
			text:         `{"posts":[{"caption":"nested","hashtags":["n"]}]}`,
			wantCaptions: []string{"nested"},
		},
		{
			name:         "brackets inside strings do not confuse matching",
			text:         `[{"caption":"use [brackets] and {braces}","hashtags":["x"]}]`,
			wantCaptions: []string{"use [brackets] and {braces}"},
		},
		{
			name:         "later array used when the first has no valid record",
			text:         `[{"title":"x"}] then [{"caption":"second","hashtags":[]}]`,
			wantCaptions: []string{"second"},
			wantDropped:  0,
		},
		{
			name:    "no array at all",
			text:    `Here are ideas: {"caption":"Try AI today","hashtags":["tech"]} and some prose`,
			wantErr: ErrNoArray,
		},
		{
			name:    "unterminated array",
			text:    `[{"caption":"x","hashtags":["y"]}`,
			wantErr: ErrNoArray,
		},
		{
			name:    "array of records none valid",
			text:    `[{"title":"x"},{"caption":""}]`,
			wantErr: ErrNoValidRecords,
		},
		{
			name:    "empty text",
			text:    "",
			wantErr: ErrNoArray,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			items, dropped, err := strictParse(tt.text)

			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Empty(t, items)
				return
			}
			require.NoError(t, err)
			captions := make([]string, len(items))
			for i, item := range items {
				captions[i] = item.Caption
				assert.NoError(t, item.Validate())
			}
			assert.Equal(t, tt.wantCaptions, captions)
			assert.Equal(t, tt.wantDropped, dropped)
		})
	}
}

func TestDecodeItem_Fields(t *testing.T) {
	items, err := StrictParse(`[{
		"caption": "  Morning coffee facts  ",
		"hashtags": ["Coffee", "#coffee", "Morning Routine"],
		"keywords": "coffee, caffeine",
		"image_concept": "steaming cup on a wooden table",
		"content_type": "educational",
		"call_to_action": "What's your order?",
		"best_time": "morning"
	}, {
		"caption": "camel case prompt",
		"hashtags": [],
		"imagePrompt": "a camel"
	}, {
		"caption": "numeric tags",
		"hashtags": [2025, "new year"],
		"keywords": null
	}]`)

	require.NoError(t, err)
	require.Len(t, items, 3)

	assert.Equal(t, entity.ContentItem{
		Caption:      "Morning coffee facts",
		Hashtags:     []string{"#coffee", "#morningroutine"},
		ImagePrompt:  "steaming cup on a wooden table",
		Keywords:     []string{"coffee", "caffeine"},
		ContentType:  "educational",
		CallToAction: "What's your order?",
		BestTime:     "morning",
	}, items[0])
	assert.Equal(t, "a camel", items[1].ImagePrompt)
	assert.Equal(t, []string{"#2025", "#newyear"}, items[2].Hashtags)
	assert.Nil(t, items[2].Keywords)
	assert.Equal(t, entity.DefaultImagePrompt("numeric tags"), items[2].ImagePrompt)
}

func TestDecodeItem_RejectsWrongTypes(t *testing.T) {
	tests := []struct {
		name      string
		text      string
		wantField string
	}{
		{name: "hashtags object", text: `[{"caption":"x","hashtags":{"a":1}}]`, wantField: "hashtags"},
		{name: "keywords number", text: `[{"caption":"x","hashtags":[],"keywords":3}]`, wantField: "keywords"},
		{name: "caption array", text: `[{"caption":["x"],"hashtags":[]}]`, wantField: "caption"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := StrictParse(tt.text)
			assert.ErrorIs(t, err, ErrNoValidRecords)

			elems := gjson.Parse(tt.text).Array()
			require.Len(t, elems, 1)
			_, err = DecodeItem(elems[0])
			var validationErr *entity.ValidationError
			require.ErrorAs(t, err, &validationErr)
			assert.Equal(t, tt.wantField, validationErr.Field)
		})
	}
}
