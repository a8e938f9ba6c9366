package entity

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

const (
	// MaxCaptionRunes is the longest caption a publishing channel accepts (Telegram limit).
	MaxCaptionRunes = 4096

	captionEllipsis = "..."
)

// ContentItem is one planned social media post.
// Caption and Hashtags are required; a ContentItem is only handed to callers
// after Validate succeeds, so consumers can rely on a non-empty caption.
type ContentItem struct {
	Caption     string   `json:"caption"`
	Hashtags    []string `json:"hashtags"`
	ImagePrompt string   `json:"image_prompt"`

	// Optional planning hints produced by the model when it follows the full prompt.
	Keywords     []string `json:"keywords,omitempty"`
	ContentType  string   `json:"content_type,omitempty"`
	CallToAction string   `json:"call_to_action,omitempty"`
	BestTime     string   `json:"best_time,omitempty"`
}

// Validate checks the required fields of the item.
// It returns a *ValidationError naming the first offending field.
func (c *ContentItem) Validate() error {
	if strings.TrimSpace(c.Caption) == "" {
		return &ValidationError{Field: "caption", Message: "caption is required"}
	}
	if c.Hashtags == nil {
		return &ValidationError{Field: "hashtags", Message: "hashtags are required"}
	}
	if utf8.RuneCountInString(c.Caption) > MaxCaptionRunes {
		return &ValidationError{
			Field:   "caption",
			Message: fmt.Sprintf("caption must not exceed %d characters", MaxCaptionRunes),
		}
	}
	return nil
}

// Normalize brings an item into canonical shape: trimmed caption capped at
// MaxCaptionRunes, normalized and deduplicated hashtags, trimmed keywords and
// an image prompt derived from the caption when the model did not supply one.
// Normalize never touches a nil Hashtags slice so missing hashtags stay detectable.
func (c ContentItem) Normalize() ContentItem {
	c.Caption = truncateRunes(strings.TrimSpace(c.Caption), MaxCaptionRunes)
	if c.Hashtags != nil {
		c.Hashtags = NormalizeHashtags(c.Hashtags, 0)
	}
	c.ImagePrompt = strings.TrimSpace(c.ImagePrompt)
	if c.ImagePrompt == "" && c.Caption != "" {
		c.ImagePrompt = DefaultImagePrompt(c.Caption)
	}
	if c.Keywords != nil {
		c.Keywords = trimAll(c.Keywords)
	}
	c.ContentType = strings.TrimSpace(c.ContentType)
	c.CallToAction = strings.TrimSpace(c.CallToAction)
	c.BestTime = strings.TrimSpace(c.BestTime)
	return c
}

// DefaultImagePrompt builds an image prompt for a caption that arrived without one.
func DefaultImagePrompt(caption string) string {
	return "Modern, minimalist illustration for a social media post: " + truncateRunes(caption, 200)
}

func truncateRunes(s string, limit int) string {
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	runes := []rune(s)
	keep := limit - utf8.RuneCountInString(captionEllipsis)
	return string(runes[:keep]) + captionEllipsis
}

func trimAll(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
