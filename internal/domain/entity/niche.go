package entity

import "strings"

// Default niche context values used when the caller leaves them blank.
const (
	DefaultNicheName      = "general"
	DefaultBrandVoice     = "friendly and informative"
	DefaultTargetAudience = "general"
)

// Niche is the caller supplied planning context for one invocation.
type Niche struct {
	// Name is the topic area, e.g. "AI technology" or "music texas".
	Name string `json:"niche" yaml:"niche"`

	// Keywords steer the model and seed hashtags for synthesized posts.
	Keywords []string `json:"keywords" yaml:"keywords"`

	BrandVoice     string `json:"brand_voice,omitempty" yaml:"brand_voice"`
	TargetAudience string `json:"target_audience,omitempty" yaml:"target_audience"`

	// Posts overrides the synthesized item count when positive.
	Posts int `json:"posts,omitempty" yaml:"posts"`
}

// WithDefaults returns a copy with blank fields filled and keywords trimmed.
func (n Niche) WithDefaults() Niche {
	n.Name = strings.TrimSpace(n.Name)
	if n.Name == "" {
		n.Name = DefaultNicheName
	}
	if strings.TrimSpace(n.BrandVoice) == "" {
		n.BrandVoice = DefaultBrandVoice
	}
	if strings.TrimSpace(n.TargetAudience) == "" {
		n.TargetAudience = DefaultTargetAudience
	}
	n.Keywords = trimAll(n.Keywords)
	if n.Posts < 0 {
		n.Posts = 0
	}
	return n
}
