package extract

import (
	"fmt"
	"strings"

	"github.com/atlas-esg/esia-review/internal/archetype"
	"github.com/atlas-esg/esia-review/internal/model"
)

// BuildSystemPrompt renders the extraction instructions plus the archetype
// taxonomy. It is identical for every chunk of a run, which lets the
// Anthropic provider serve it from the prompt cache.
func BuildSystemPrompt(registry *archetype.Registry) string {
	var b strings.Builder

	b.WriteString(`You extract facts from Environmental and Social Impact Assessment (ESIA) reports.

From the text excerpt you are given, extract every quantitative or categorical fact relevant to ESIA review. Report each fact exactly once per distinct mention.

Rules:
- "quantity" facts have a numeric value; put the number (with any range, e.g. "120-150") in "value" and the unit (e.g. "ha", "m3/d", "dB(A)") in "unit". Keep the document's original unit.
- "categorical" facts have a non-numeric value such as "yes", "diesel", "Category B"; put it verbatim in "value" and leave "unit" empty.
- "evidence" is the shortest sentence fragment from the excerpt that states the fact.
- "confidence" is your certainty in [0,1] that the fact is stated (not implied).
- Skip narrative statements with no reviewable value. Do not infer values that are not in the text.

Respond with only a JSON object, no prose:
{"facts":[{"name":"...","type":"quantity|categorical","value":"...","unit":"...","evidence":"...","confidence":0.9}]}

The following taxonomy lists fact names expected in each ESIA chapter. Prefer these exact names when the document states the same fact under different wording; facts outside the taxonomy are still worth extracting under a short descriptive name.
`)

	for _, ch := range registry.Chapters() {
		fmt.Fprintf(&b, "\n%s:\n", ch.Title)
		for _, f := range ch.Facts {
			if f.Unit != "" {
				fmt.Fprintf(&b, "- %s (%s, %s)\n", f.Name, f.Type, f.Unit)
			} else {
				fmt.Fprintf(&b, "- %s (%s)\n", f.Name, f.Type)
			}
		}
	}

	return b.String()
}

// BuildChunkPrompt renders the user message for one chunk.
func BuildChunkPrompt(chunk model.Chunk) string {
	var b strings.Builder
	if chunk.PageStart == chunk.PageEnd {
		fmt.Fprintf(&b, "Excerpt from page %d of the report:\n\n", chunk.PageStart)
	} else {
		fmt.Fprintf(&b, "Excerpt from pages %d-%d of the report:\n\n", chunk.PageStart, chunk.PageEnd)
	}
	b.WriteString(chunk.Text)
	return b.String()
}
