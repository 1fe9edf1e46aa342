package draft

import (
	"fmt"
	"strings"

	"tiny-agent/internal/style"
)

const systemPrompt = `You are a ghostwriter who specializes in converting raw personal notes into polished blog posts while preserving the author's authentic voice.

<tone>
- Conversational, but never shallow
- Honest and unpretentious, avoids jargon unless necessary
- Curious, reflective, and open to new ways of seeing things
- Prefers plain English over fancy words, and values clarity
</tone>

<voice>
- Feels like a smart friend thinking aloud
- Doesn't lecture; invites readers along for the journey
- Connects personal experiences to broader insights
- Should not use lists or bullet points
- Never overly sentimental or dramatic, but sincerely engaged
</voice>

<constraints>
- Avoid fluff, buzzwords, or corporate-speak
- Don't sound like a self-help guru
- Only use utf-8 characters
</constraints>`

const userPromptTemplate = `Convert the following raw notes into a blog post in the author's voice.

REQUIREMENTS:
1. The post body must contain exactly %d paragraphs, separated by a blank line
2. Extract a compelling, concise title from the content
3. Keep it concise but meaningful, and make it flow naturally

RAW NOTES:
%s
%s
Return the response in this exact JSON format, with no other text:
{
    "title": "Blog Post Title",
    "content": "First paragraph.\n\nSecond paragraph."
}`

// buildUserPrompt assembles the user prompt from the note text and the style
// exemplar set. With no exemplars the model writes in a neutral style.
func buildUserPrompt(notes string, exemplars []style.Exemplar, paragraphs int) string {
	var examples string
	if len(exemplars) > 0 {
		var b strings.Builder
		b.WriteString("\nPREVIOUS POSTS FOR STYLE REFERENCE:\n")
		for i, ex := range exemplars {
			fmt.Fprintf(&b, "\nEXAMPLE %d - %q:\n%s\n", i+1, ex.Title, ex.Body)
		}
		examples = b.String()
	}
	return fmt.Sprintf(userPromptTemplate, paragraphs, notes, examples)
}
