package prompt

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sells-group/outreach-cli/internal/model"
	"github.com/sells-group/outreach-cli/internal/taxonomy"
)

func TestBuild_IncludesProspectFields(t *testing.T) {
	p := model.Prospect{
		Company:  "Macalester College",
		Category: "Education",
		City:     "St. Paul, MN",
		Contact:  "Facilities Director",
		Website:  "macalester.edu",
		Notes:    "Large campus",
	}
	e := taxonomy.ForCategory(p.Category)

	out := Build(p, e)

	assert.Contains(t, out, "Company: Macalester College\n")
	assert.Contains(t, out, "Industry: Education\n")
	assert.Contains(t, out, "Location: St. Paul, MN\n")
	assert.Contains(t, out, "Contact: Facilities Director\n")
	assert.Contains(t, out, "Website: macalester.edu\n")
	assert.Contains(t, out, "Notes: Large campus\n")
	assert.Contains(t, out, e.Benefits)
	assert.Contains(t, out, "OPEN:")
	assert.Contains(t, out, "BENEFIT:")
	assert.Contains(t, out, "ACTION:")
	assert.Contains(t, out, "under 12 words")
	assert.Contains(t, out, "under 15 words")
	assert.Contains(t, out, "under 10 words")
}

func TestBuild_OmitsBlankFields(t *testing.T) {
	p := model.Prospect{Company: "Acme Corp", Category: "Software startup", Website: "  "}
	out := Build(p, taxonomy.ForCategory(p.Category))

	assert.NotContains(t, out, "Website:")
	assert.NotContains(t, out, "Location:")
	assert.NotContains(t, out, "Contact:")
	assert.NotContains(t, out, "Notes:")
	assert.NotContains(t, out, "Company size:")
}

func TestBuild_Deterministic(t *testing.T) {
	p := model.Prospect{Company: "Acme Corp", Category: "Software startup", City: "Austin"}
	e := taxonomy.ForCategory(p.Category)
	assert.Equal(t, Build(p, e), Build(p, e))
}

func TestBuild_NoCategory(t *testing.T) {
	p := model.Prospect{Company: "Acme Corp"}
	out := Build(p, taxonomy.ForCategory(p.Category))
	assert.NotContains(t, out, "Industry:")
	assert.True(t, strings.HasPrefix(out, "Write three short lines"))
}

func TestNewRequest(t *testing.T) {
	req := NewRequest("llama3.2", "hello")
	assert.Equal(t, "llama3.2", req.Model)
	assert.Equal(t, "hello", req.Prompt)
	assert.False(t, req.Stream)
}
