package answer

import (
	"fmt"
	"strings"

	"rfp-answer-engine/internal/entity"
	"rfp-answer-engine/pkg/vectorindex"
)

const systemPrompt = `You are a senior proposal writer answering RFP questions on behalf of the organization.
Answer strictly from the reference material. Be specific, complete and professional.
If the reference material does not contain enough information, write ` + insufficientMarker + ` on its own line and answer only what the material supports.
End your reply with a final line of the form "CONFIDENCE: <0-100>" describing how well the material supports your answer.`

// PromptBuilder assembles the user prompt from the question and retrieved passages, keeping the
// reference material within a character budget.
type PromptBuilder struct {
	question        *entity.Question
	passages        []vectorindex.Match
	maxContextChars int
}

func NewPromptBuilder(question *entity.Question, passages []vectorindex.Match, maxContextChars int) *PromptBuilder {
	return &PromptBuilder{
		question:        question,
		passages:        passages,
		maxContextChars: maxContextChars,
	}
}

func (b *PromptBuilder) System() string {
	return systemPrompt
}

// Build returns the user prompt and the passages that fit in the budget.
func (b *PromptBuilder) Build() (string, []vectorindex.Match) {
	var prompt strings.Builder
	used := b.writeReferenceMaterial(&prompt)
	b.writeQuestion(&prompt)
	prompt.WriteString("Write the answer now.")
	return prompt.String(), used
}

func (b *PromptBuilder) writeReferenceMaterial(prompt *strings.Builder) []vectorindex.Match {
	prompt.WriteString("<reference_material>\n")
	if len(b.passages) == 0 {
		prompt.WriteString("(no reference material was found)\n")
	}

	budget := b.maxContextChars
	var used []vectorindex.Match
	for i, p := range b.passages {
		content := strings.TrimSpace(p.Metadata.Content)
		if budget > 0 {
			remaining := budget - prompt.Len()
			if remaining <= 0 {
				break
			}
			if len(content) > remaining {
				content = truncateRunes(content, remaining)
			}
		}
		fmt.Fprintf(prompt, "[Source %d] %s\n%s\n\n", i+1, p.Metadata.DocumentTitle, content)
		used = append(used, p)
	}
	prompt.WriteString("</reference_material>\n\n")
	return used
}

func (b *PromptBuilder) writeQuestion(prompt *strings.Builder) {
	prompt.WriteString("<question>\n")
	if b.question.SectionTitle != "" {
		fmt.Fprintf(prompt, "Section: %s\n", b.question.SectionTitle)
	}
	prompt.WriteString(strings.TrimSpace(b.question.Text))
	prompt.WriteString("\n</question>\n\n")
}

func truncateRunes(s string, maxBytes int) string {
	if len(s) <= maxBytes {
		return s
	}
	r := []rune(s)
	out := make([]rune, 0, len(r))
	size := 0
	for _, c := range r {
		size += len(string(c))
		if size > maxBytes {
			break
		}
		out = append(out, c)
	}
	return string(out)
}
