package ingest

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/rotisserie/eris"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/sells-group/outreach-cli/internal/model"
	"github.com/sells-group/outreach-cli/internal/taxonomy"
)

// DefaultCategory is used when a row has no industry and none can be inferred.
const DefaultCategory = "Business"

const maxSlugLen = 20

// Column aliases, matched case-insensitively against trimmed headers.
var (
	companyCols  = []string{"company name", "company", "business name", "business", "organization", "name"}
	categoryCols = []string{"industry", "category", "business type", "type"}
	cityCols     = []string{"city", "location", "town"}
	contactCols  = []string{"contact name", "contact", "contact person"}
	emailCols    = []string{"email", "email address", "contact email", "e-mail"}
	websiteCols  = []string{"website", "url", "domain", "web"}
	notesCols    = []string{"notes", "note", "comments"}
	sizeCols     = []string{"company size", "size", "employees"}
)

// Result is the normalized content of a prospect spreadsheet.
type Result struct {
	Prospects []model.Prospect
	// Skipped counts data rows dropped for having no company name.
	Skipped int
	// Filled lists the fields that were defaulted for at least one row.
	Filled []string
}

// FromRows normalizes rows, the first of which is the header. A company
// column is required; every other column is optional and defaulted.
func FromRows(rows [][]string) (*Result, error) {
	if len(rows) == 0 {
		return nil, eris.New("ingest: file is empty")
	}

	colIdx := make(map[string]int, len(rows[0]))
	for i, col := range rows[0] {
		key := strings.ToLower(strings.TrimSpace(col))
		if _, dup := colIdx[key]; !dup {
			colIdx[key] = i
		}
	}

	companyIdx, ok := findCol(colIdx, companyCols)
	if !ok {
		companyIdx, ok = guessCompanyCol(rows[0])
	}
	if !ok {
		return nil, eris.New("ingest: missing company name column")
	}

	res := &Result{}
	filled := make(map[string]bool)
	for _, row := range rows[1:] {
		company := cell(row, companyIdx)
		if company == "" {
			res.Skipped++
			continue
		}

		p := model.Prospect{
			Company:  company,
			Category: getCol(row, colIdx, categoryCols),
			City:     TitleCaseUpper(getCol(row, colIdx, cityCols)),
			Contact:  getCol(row, colIdx, contactCols),
			Email:    getCol(row, colIdx, emailCols),
			Website:  getCol(row, colIdx, websiteCols),
			Notes:    getCol(row, colIdx, notesCols),
			Size:     getCol(row, colIdx, sizeCols),
		}
		if p.Email == "" {
			p.Email = PlaceholderEmail(company)
			filled["email"] = true
		}
		if p.Contact == "" {
			p.Contact = model.DefaultContactName
			filled["contact"] = true
		}
		if p.Category == "" {
			p.Category = InferCategory(company)
			filled["industry"] = true
		}
		res.Prospects = append(res.Prospects, p)
	}

	for _, f := range []string{"email", "contact", "industry"} {
		if filled[f] {
			res.Filled = append(res.Filled, f)
		}
	}
	return res, nil
}

// PlaceholderEmail builds contact@{slug}.com from the company name, where
// slug keeps letters and digits only ("&" becomes "and") and is capped at
// 20 characters.
func PlaceholderEmail(company string) string {
	name := strings.ReplaceAll(strings.ToLower(company), "&", "and")
	var b strings.Builder
	for _, r := range name {
		if r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)) {
			b.WriteRune(r)
		}
	}
	slug := b.String()
	if slug == "" {
		slug = "company"
	}
	if len(slug) > maxSlugLen {
		slug = slug[:maxSlugLen]
	}
	return fmt.Sprintf("contact@%s.com", slug)
}

// InferCategory guesses an industry label from the company name.
func InferCategory(company string) string {
	key := taxonomy.Map(company)
	if key == taxonomy.Default {
		return DefaultCategory
	}
	return cases.Title(language.English).String(strings.ReplaceAll(string(key), "_", " "))
}

// TitleCaseUpper converts all-caps text such as "WEST JORDAN" to
// "West Jordan" and leaves mixed-case text untouched.
func TitleCaseUpper(s string) string {
	s = strings.TrimSpace(s)
	if s == "" || s != strings.ToUpper(s) {
		return s
	}
	return cases.Title(language.English).String(strings.ToLower(s))
}

func findCol(colIdx map[string]int, aliases []string) (int, bool) {
	for _, a := range aliases {
		if i, ok := colIdx[a]; ok {
			return i, true
		}
	}
	return 0, false
}

func guessCompanyCol(header []string) (int, bool) {
	for i, col := range header {
		c := strings.ToLower(col)
		if strings.Contains(c, "contact") {
			continue
		}
		if strings.Contains(c, "company") || strings.Contains(c, "business") || strings.Contains(c, "name") {
			return i, true
		}
	}
	return 0, false
}

func getCol(row []string, colIdx map[string]int, aliases []string) string {
	i, ok := findCol(colIdx, aliases)
	if !ok {
		return ""
	}
	return cell(row, i)
}

func cell(row []string, i int) string {
	if i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}
