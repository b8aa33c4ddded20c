// Package prompt builds the generation prompt for a single prospect.
package prompt

import (
	"fmt"
	"strings"

	"github.com/sells-group/outreach-cli/internal/model"
	"github.com/sells-group/outreach-cli/internal/taxonomy"
	"github.com/sells-group/outreach-cli/pkg/ollama"
)

// Word ceilings for each generated line.
const (
	MaxOpeningWords = 12
	MaxBenefitWords = 15
	MaxActionWords  = 10
)

// Build returns the prompt asking the model for three labeled lines
// (OPEN:, BENEFIT:, ACTION:) tailored to the prospect. Blank optional
// fields are left out entirely.
func Build(p model.Prospect, e taxonomy.Entry) string {
	var b strings.Builder

	b.WriteString("Write three short lines for a cleaning-services sales email.\n\n")

	line(&b, "Company", p.Company)
	line(&b, "Industry", p.Category)
	line(&b, "Location", p.City)
	line(&b, "Contact", p.Contact)
	line(&b, "Website", p.Website)
	line(&b, "Company size", p.Size)
	line(&b, "Notes", p.Notes)
	fmt.Fprintf(&b, "Why it matters: %s.\n", e.Benefits)
	if e.PainPoints != "" {
		fmt.Fprintf(&b, "Typical challenge: %s.\n", e.PainPoints)
	}

	b.WriteString("\nReply with exactly three lines and nothing else:\n")
	fmt.Fprintf(&b, "OPEN: a friendly opening that mentions %s (under %d words)\n", strings.TrimSpace(p.Company), MaxOpeningWords)
	fmt.Fprintf(&b, "BENEFIT: one cleaning benefit for %s (under %d words)\n", e.IndustryType, MaxBenefitWords)
	fmt.Fprintf(&b, "ACTION: a polite request for a short call (under %d words)\n", MaxActionWords)

	b.WriteString("\nExample:\n")
	b.WriteString("OPEN: Hope the new semester is off to a great start.\n")
	b.WriteString("BENEFIT: Clean classrooms help students and staff stay healthy.\n")
	b.WriteString("ACTION: Could we schedule a quick call next week?\n")

	return b.String()
}

// NewRequest wraps a prompt in a non-streaming generate request.
func NewRequest(modelName, prompt string) ollama.GenerateRequest {
	return ollama.GenerateRequest{
		Model:  modelName,
		Prompt: prompt,
		Stream: false,
	}
}

func line(b *strings.Builder, label, value string) {
	value = strings.TrimSpace(value)
	if value == "" {
		return
	}
	fmt.Fprintf(b, "%s: %s\n", label, value)
}
