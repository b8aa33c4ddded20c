// Package compose renders the final plain-text outreach email.
package compose

import (
	"fmt"
	"strings"

	"github.com/sells-group/outreach-cli/internal/config"
	"github.com/sells-group/outreach-cli/internal/model"
	"github.com/sells-group/outreach-cli/internal/parse"
	"github.com/sells-group/outreach-cli/internal/taxonomy"
)

// ServiceCount is how many taxonomy services are listed in the body.
const ServiceCount = 4

const (
	defaultSender = "Our team"
	trustLine     = "We're licensed, bonded, and insured, and our local team provides reliable, professional service tailored to your specific needs."
)

// Subject returns the fixed subject line for company.
func Subject(company string) string {
	return fmt.Sprintf("Professional Cleaning Services for %s", company)
}

// Assemble builds the subject and body for one prospect. Missing optional
// values (contact, city, sender phone or website) never fail; signature
// lines render empty instead.
func Assemble(p model.Prospect, e taxonomy.Entry, f parse.Fields, sender config.CompanyConfig) (subject, body string) {
	senderName := strings.TrimSpace(sender.Name)
	if senderName == "" {
		senderName = defaultSender
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Dear %s,\n\n", p.ContactName())
	fmt.Fprintf(&b, "%s\n\n", f.Opening)
	fmt.Fprintf(&b, "%s specializes in professional cleaning for %s like %s, because %s. %s\n\n",
		senderName, e.IndustryType, p.Company, e.Benefits, f.Benefit)

	b.WriteString("Our services include:\n")
	for _, s := range e.TopServices(ServiceCount) {
		fmt.Fprintf(&b, "• %s\n", s)
	}
	b.WriteString("\n")

	b.WriteString(trustLine)
	if city := strings.TrimSpace(p.City); city != "" {
		fmt.Fprintf(&b, " We already work with businesses in and around %s.", city)
	}
	b.WriteString("\n\n")

	fmt.Fprintf(&b, "%s\n\n", f.Action)

	b.WriteString("Best regards,\n")
	fmt.Fprintf(&b, "%s\n", senderName)
	fmt.Fprintf(&b, "%s\n", strings.TrimSpace(sender.Phone))
	b.WriteString(strings.TrimSpace(sender.Website))

	return Subject(p.Company), b.String()
}
