package ingest

import (
	"encoding/csv"
	"os"

	"github.com/rotisserie/eris"
)

// SampleHeader is the column layout of the sample prospect file.
var SampleHeader = []string{"Company Name", "Industry", "Contact Name", "Email", "Company Size", "Location", "Notes"}

var sampleRows = [][]string{
	{"Macalester College", "Education", "William Acosta", "facilities@macalester.example", "2000+", "Minnesota", "Liberal arts college"},
	{"Louisiana Construction Co", "Construction", "Project Manager", "office@laconstruction.example", "50-100", "Louisiana", "Commercial construction"},
	{"Tech Solutions LLC", "Technology", "IT Director", "it@techsolutions.example", "25-50", "Louisiana", "Tech startup"},
	{"Manufacturing Corp", "Manufacturing", "Operations Manager", "ops@manufacturingcorp.example", "200-500", "Louisiana", "Manufacturing plant"},
	{"Office Complex", "Professional Services", "Building Manager", "manager@officecomplex.example", "100+ tenants", "Louisiana", "Multi-tenant building"},
}

// SampleRows returns the header followed by five demo prospects, one per
// major category.
func SampleRows() [][]string {
	rows := make([][]string, 0, len(sampleRows)+1)
	rows = append(rows, SampleHeader)
	for _, r := range sampleRows {
		rows = append(rows, append([]string(nil), r...))
	}
	return rows
}

// WriteSample writes the demo prospect CSV to path. An existing file is
// only replaced when force is set.
func WriteSample(path string, force bool) error {
	flags := os.O_WRONLY | os.O_CREATE | os.O_TRUNC
	if !force {
		flags |= os.O_EXCL
	}
	f, err := os.OpenFile(path, flags, 0o644)
	if err != nil {
		if os.IsExist(err) {
			return eris.Errorf("ingest: %s already exists (use --force to overwrite)", path)
		}
		return eris.Wrap(err, "ingest: create sample")
	}

	w := csv.NewWriter(f)
	if err := w.WriteAll(SampleRows()); err != nil {
		f.Close() //nolint:errcheck
		return eris.Wrap(err, "ingest: write sample")
	}
	return eris.Wrap(f.Close(), "ingest: close sample")
}
