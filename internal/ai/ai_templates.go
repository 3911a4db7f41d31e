package ai

import (
	"fmt"
	"time"

	"github.com/shanehull/preminder/internal/types"
)

const referenceDateLayout = "2006-01-02"

const systemInstruction = `
# [INSTRUCTION]

You are a strict classifier. You receive one web search result and the search query a user registered to track an upcoming event whose date is not yet known (for example a ticket sale opening or a registration deadline).

Answer two independent questions about the search result:

- **topic_relevant:** Is the content of the result about the subject of the tracking query? A result about a different artist, product, venue or edition is not relevant.
- **future_dated:** Does the result mention any calendar date that is strictly after the reference date? Dates on or before the reference date do not count. Relative phrases ("next week") count only when the result makes the absolute date clear.

Judge each question on its own. Do not let one answer influence the other.

---

# [CRITICAL INSTRUCTION]

Respond only with the JSON object defined by the response schema. Do not add explanations. If you are unsure, answer false.
`

var userPromptTemplate = `
Tracking query: %s
Reference date: %s

Search result:
--
Title: %s
Snippet: %s
Link: %s
---
`

func buildUserPrompt(result types.SearchResult, query string, referenceDate time.Time) string {
	return fmt.Sprintf(userPromptTemplate,
		query,
		referenceDate.Format(referenceDateLayout),
		result.Title,
		result.Snippet,
		result.Link,
	)
}
