package ingest

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx/v2"

	"github.com/sells-group/outreach-cli/internal/model"
	"github.com/sells-group/outreach-cli/internal/taxonomy"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func createTestXLSX(t *testing.T, rows [][]string) string {
	t.Helper()
	f := xlsx.NewFile()
	sheet, err := f.AddSheet("Prospects")
	require.NoError(t, err)
	for _, rowData := range rows {
		row := sheet.AddRow()
		for _, cellData := range rowData {
			row.AddCell().SetString(cellData)
		}
	}
	path := filepath.Join(t.TempDir(), "prospects.xlsx")
	require.NoError(t, f.Save(path))
	return path
}

func TestLoadFile_CSV(t *testing.T) {
	path := writeFile(t, "prospects.csv", "Company Name,Industry,City,Contact Name,Email\n"+
		"Acme Corp,Software,Austin,Jo Park,jo@acme.example\n"+
		"  ,Retail,Dallas,,\n"+
		"Globex,,HOUSTON,,\n")

	res, err := LoadFile(path)
	require.NoError(t, err)
	require.Len(t, res.Prospects, 2)
	assert.Equal(t, 1, res.Skipped)

	assert.Equal(t, model.Prospect{
		Company: "Acme Corp", Category: "Software", City: "Austin", Contact: "Jo Park", Email: "jo@acme.example",
	}, res.Prospects[0])

	globex := res.Prospects[1]
	assert.Equal(t, "Houston", globex.City)
	assert.Equal(t, model.DefaultContactName, globex.Contact)
	assert.Equal(t, "contact@globex.com", globex.Email)
	assert.Equal(t, DefaultCategory, globex.Category)
	assert.Equal(t, []string{"email", "contact", "industry"}, res.Filled)
}

func TestLoadFile_CSVWithBOMAndAliases(t *testing.T) {
	path := writeFile(t, "p.csv", "\ufeffBusiness,Category,Location,Website,Notes,Size\n"+
		"Bean There Cafe,,Lafayette,beanthere.example,Two locations,12\n")

	res, err := LoadFile(path)
	require.NoError(t, err)
	require.Len(t, res.Prospects, 1)
	p := res.Prospects[0]
	assert.Equal(t, "Bean There Cafe", p.Company)
	assert.Equal(t, "Lafayette", p.City)
	assert.Equal(t, "beanthere.example", p.Website)
	assert.Equal(t, "Two locations", p.Notes)
	assert.Equal(t, "12", p.Size)
	assert.Equal(t, "Food Beverage", p.Category)
	assert.Equal(t, taxonomy.FoodBeverage, taxonomy.Map(p.Category))
}

func TestLoadFile_XLSX(t *testing.T) {
	path := createTestXLSX(t, [][]string{
		{"Company Name", "Industry", "City"},
		{"Macalester College", "Education", "St. Paul"},
		{"Smith Family Home", "Residential", "Youngsville"},
	})

	res, err := LoadFile(path)
	require.NoError(t, err)
	require.Len(t, res.Prospects, 2)
	assert.Equal(t, "Macalester College", res.Prospects[0].Company)
	assert.Equal(t, "Residential", res.Prospects[1].Category)
}

func TestLoadFile_Errors(t *testing.T) {
	_, err := LoadFile(writeFile(t, "p.json", "{}"))
	assert.ErrorIs(t, err, ErrUnsupportedFormat)

	_, err = LoadFile(filepath.Join(t.TempDir(), "missing.csv"))
	assert.Error(t, err)

	_, err = LoadFile(writeFile(t, "p.csv", "Industry,City\nRetail,Austin\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing company name column")

	_, err = LoadFile(writeFile(t, "empty.csv", ""))
	assert.Error(t, err)
}

func TestFromRows_GuessesCompanyColumn(t *testing.T) {
	res, err := FromRows([][]string{
		{"Contact Name", "Client Business Title"},
		{"Dana", "Initech"},
	})
	require.NoError(t, err)
	require.Len(t, res.Prospects, 1)
	assert.Equal(t, "Initech", res.Prospects[0].Company)
	assert.Equal(t, "Dana", res.Prospects[0].Contact)
}

func TestFromRows_ShortRows(t *testing.T) {
	res, err := FromRows([][]string{
		{"Company Name", "Industry", "City"},
		{"Acme Corp"},
	})
	require.NoError(t, err)
	require.Len(t, res.Prospects, 1)
	assert.Empty(t, res.Prospects[0].City)
}

func TestPlaceholderEmail(t *testing.T) {
	tests := []struct {
		company string
		want    string
	}{
		{"Acme Corp", "contact@acmecorp.com"},
		{"Smith & Sons", "contact@smithandsons.com"},
		{"A5 Star Plumbing Company", "contact@a5starplumbingcompan.com"},
		{"Rêve Coffee Roasters", "contact@rvecoffeeroasters.com"},
		{"!!!", "contact@company.com"},
	}
	for _, tt := range tests {
		t.Run(tt.company, func(t *testing.T) {
			assert.Equal(t, tt.want, PlaceholderEmail(tt.company))
		})
	}
}

func TestInferCategory(t *testing.T) {
	assert.Equal(t, "Construction", InferCategory("A5 Star Plumbing Company"))
	assert.Equal(t, "Technology", InferCategory("Techneaux Technology Services"))
	assert.Equal(t, "Professional Services", InferCategory("Bayou Consulting Group"))
	assert.Equal(t, DefaultCategory, InferCategory("Acadiana Security Plus"))
}

func TestTitleCaseUpper(t *testing.T) {
	assert.Equal(t, "West Jordan", TitleCaseUpper("WEST JORDAN"))
	assert.Equal(t, "McAllen", TitleCaseUpper("McAllen"))
	assert.Equal(t, "", TitleCaseUpper("  "))
}

func TestWriteSample(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test_prospects.csv")
	require.NoError(t, WriteSample(path, false))

	res, err := LoadFile(path)
	require.NoError(t, err)
	require.Len(t, res.Prospects, 5)
	assert.Empty(t, res.Filled)

	want := []taxonomy.Key{taxonomy.Education, taxonomy.Construction, taxonomy.Technology, taxonomy.Manufacturing, taxonomy.ProfessionalServices}
	for i, p := range res.Prospects {
		assert.Equal(t, want[i], taxonomy.Map(p.Category), p.Company)
	}

	err = WriteSample(path, false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already exists")
	assert.NoError(t, WriteSample(path, true))
}
