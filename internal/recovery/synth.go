package recovery

import (
	"fmt"

	"content-agent/internal/domain/entity"
)

const (
	// DefaultSynthCount is the number of items synthesized when nothing was recovered.
	DefaultSynthCount = 5

	// DefaultMaxHashtags caps the hashtags of a synthesized item.
	DefaultMaxHashtags = 10
)

// template is one pattern of the synthesis library. Format verbs receive the
// niche name as %[1]s and the item keyword as %[2]s.
type template struct {
	name         string
	caption      string
	imagePrompt  string
	contentType  string
	callToAction string
	bestTime     string
}

var templates = []template{
	{
		name:         "question-prompt",
		caption:      "What is the one thing about %[2]s that changed how you see %[1]s? Tell us in the comments.",
		imagePrompt:  "Bold typographic poster asking a question about %[2]s, vibrant colors, clean layout, %[1]s theme",
		contentType:  "interactive",
		callToAction: "Share your answer below!",
		bestTime:     "evening",
	},
	{
		name:         "educational",
		caption:      "Quick %[1]s tip: three things everyone should know about %[2]s before diving in.",
		imagePrompt:  "Minimalist infographic explaining %[2]s in three steps, flat illustration, %[1]s theme",
		contentType:  "educational",
		callToAction: "Save this post for later.",
		bestTime:     "morning",
	},
	{
		name:         "insight",
		caption:      "Insight: %[2]s is quietly reshaping %[1]s. Here is why it matters right now.",
		imagePrompt:  "Conceptual editorial illustration of %[2]s transforming %[1]s, soft lighting, high detail",
		contentType:  "educational",
		callToAction: "Follow for more insights.",
		bestTime:     "afternoon",
	},
	{
		name:         "trend-commentary",
		caption:      "Everyone in %[1]s is talking about %[2]s. Here is our take on the trend.",
		imagePrompt:  "Dynamic social media collage around %[2]s, trending aesthetic, %[1]s community",
		contentType:  "entertaining",
		callToAction: "Do you agree? Let us know!",
		bestTime:     "afternoon",
	},
	{
		name:         "creative-perspective",
		caption:      "Imagine %[1]s ten years from now. How will %[2]s shape what we create?",
		imagePrompt:  "Futuristic dreamlike scene imagining %[2]s in the future of %[1]s, cinematic, vivid",
		contentType:  "entertaining",
		callToAction: "Tag someone who would love this.",
		bestTime:     "evening",
	},
}

// TemplateNames lists the synthesis patterns in the order they are applied.
func TemplateNames() []string {
	names := make([]string, len(templates))
	for i, t := range templates {
		names[i] = t.name
	}
	return names
}

// Synthesizer deterministically generates content items from the niche
// context. It has no external dependency and cannot fail.
type Synthesizer struct {
	// Count is the number of items produced when the niche does not ask for a
	// specific number of posts.
	Count int

	// MaxHashtags caps the hashtags of each item.
	MaxHashtags int
}

// NewSynthesizer creates a Synthesizer; non-positive values select the defaults.
func NewSynthesizer(count, maxHashtags int) *Synthesizer {
	if count <= 0 {
		count = DefaultSynthCount
	}
	if maxHashtags <= 0 {
		maxHashtags = DefaultMaxHashtags
	}
	return &Synthesizer{Count: count, MaxHashtags: maxHashtags}
}

// Synthesize returns exactly n valid items, where n is niche.Posts when
// positive and Count otherwise. Item i uses template i mod 5 and keyword
// i mod len(keywords); the niche name stands in when there are no keywords.
func (s *Synthesizer) Synthesize(niche entity.Niche) []entity.ContentItem {
	niche = niche.WithDefaults()

	n := s.Count
	if n <= 0 {
		n = DefaultSynthCount
	}
	if niche.Posts > 0 {
		n = niche.Posts
	}
	maxHashtags := s.MaxHashtags
	if maxHashtags <= 0 {
		maxHashtags = DefaultMaxHashtags
	}

	keywords := niche.Keywords
	if len(keywords) == 0 {
		keywords = []string{niche.Name}
	}

	items := make([]entity.ContentItem, 0, n)
	for i := 0; i < n; i++ {
		t := templates[i%len(templates)]
		keyword := keywords[i%len(keywords)]

		tags := make([]string, 0, len(keywords)+2)
		tags = append(tags, niche.Name, keyword)
		tags = append(tags, keywords...)
		hashtags := entity.NormalizeHashtags(tags, maxHashtags)
		if len(hashtags) == 0 {
			hashtags = []string{"#" + entity.DefaultNicheName}
		}

		items = append(items, entity.ContentItem{
			Caption:      fmt.Sprintf(t.caption, niche.Name, keyword),
			Hashtags:     hashtags,
			ImagePrompt:  fmt.Sprintf(t.imagePrompt, niche.Name, keyword),
			Keywords:     []string{keyword},
			ContentType:  t.contentType,
			CallToAction: t.callToAction,
			BestTime:     t.bestTime,
		}.Normalize())
	}
	return items
}
