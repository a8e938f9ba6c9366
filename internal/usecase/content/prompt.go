package content

import (
	"fmt"
	"strings"

	"content-agent/internal/domain/entity"
)

// defaultPromptPosts is the number of posts requested when the niche does not say.
const defaultPromptPosts = 5

// BuildPrompt renders the content strategist prompt for niche. The model is
// asked for a bare JSON array so that StrictParse succeeds on a cooperative
// response.
func BuildPrompt(niche entity.Niche) string {
	niche = niche.WithDefaults()

	posts := niche.Posts
	if posts <= 0 {
		posts = defaultPromptPosts
	}
	keywords := strings.Join(niche.Keywords, ", ")
	if keywords == "" {
		keywords = niche.Name
	}

	var b strings.Builder
	fmt.Fprintf(&b, "You are a creative content strategist for the %q niche.\n", niche.Name)
	fmt.Fprintf(&b, "Brand voice: %s. Target audience: %s.\n", niche.BrandVoice, niche.TargetAudience)
	fmt.Fprintf(&b, "Focus on trending topics related to: %s.\n\n", keywords)
	fmt.Fprintf(&b, "Create a content plan of %d social media posts. For each post include:\n", posts)
	b.WriteString("1. caption: an engaging caption\n")
	b.WriteString("2. hashtags: a list of relevant hashtags\n")
	b.WriteString("3. keywords: a list of keywords for optimization\n")
	b.WriteString("4. image_prompt: a detailed prompt for the accompanying image\n")
	b.WriteString("5. content_type: educational, entertaining or interactive\n")
	b.WriteString("6. call_to_action: a short call to action\n")
	b.WriteString("7. best_time: the best time of day to post\n\n")
	b.WriteString("Respond with a JSON array of post objects only, with no text before or after it.")
	return b.String()
}
