package model

import (
	"strings"

	"github.com/rotisserie/eris"
)

// DefaultContactName is used in the greeting when a prospect has no contact.
const DefaultContactName = "Manager"

// ErrInvalidProspect is returned when a prospect record cannot be processed.
var ErrInvalidProspect = eris.New("invalid prospect")

// Prospect is a normalized sales prospect loaded from a spreadsheet row.
type Prospect struct {
	Company  string `json:"company"`
	Category string `json:"category,omitempty"`
	City     string `json:"city,omitempty"`
	Contact  string `json:"contact,omitempty"`
	Email    string `json:"email,omitempty"`
	Website  string `json:"website,omitempty"`
	Notes    string `json:"notes,omitempty"`
	Size     string `json:"size,omitempty"`
}

// Validate reports whether the prospect carries the fields the pipeline needs.
func (p Prospect) Validate() error {
	if strings.TrimSpace(p.Company) == "" {
		return eris.Wrap(ErrInvalidProspect, "company name is required")
	}
	return nil
}

// ContactName returns the contact name, or DefaultContactName when blank.
func (p Prospect) ContactName() string {
	if c := strings.TrimSpace(p.Contact); c != "" {
		return c
	}
	return DefaultContactName
}
