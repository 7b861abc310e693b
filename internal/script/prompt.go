package script

import (
	"fmt"
	"strings"
)

// BuildPrompt creates the narration prompt for one page of slide text.
func BuildPrompt(pageText string) string {
	var b strings.Builder

	b.WriteString("Expand the following slide text into a short spoken lecture.\n\n")
	fmt.Fprintf(&b, "Slide text:\n\"\"\"\n%s\n\"\"\"\n\n", strings.TrimSpace(pageText))
	b.WriteString(`Instructions:
- Unless this is the title page, speak as though you are continuing a lecture you were already giving.
- Keep it between 100 and 200 words. Go shorter only when the slide has very little content and no useful examples.
- Explain the concepts clearly and add an illustrative example where one fits.
- Cover the content on the slide without going far beyond it.
- Start immediately with the lecture itself. No preamble, headings or remarks about these instructions.`)

	return b.String()
}
