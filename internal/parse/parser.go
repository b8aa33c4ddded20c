// Package parse extracts the opening, benefit and call-to-action lines from
// untrusted model output.
package parse

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Source records which strategy filled a slot.
type Source string

const (
	SourceLabels     Source = "labels"
	SourceFlexible   Source = "flexible"
	SourcePositional Source = "positional"
	SourceDefault    Source = "default"
)

// Slot indexes.
const (
	Opening = iota
	Benefit
	Action
	numSlots
)

// Default sentences used when no strategy produced a slot.
const (
	DefaultBenefit = "Professional cleaning helps maintain a clean, healthy environment for your team."
	DefaultAction  = "Could we schedule a brief call to discuss your cleaning needs?"
)

// Fields holds the three customized lines.
type Fields struct {
	Opening string `json:"opening"`
	Benefit string `json:"benefit"`
	Action  string `json:"action"`

	Sources [numSlots]Source `json:"-"`
}

func (f *Fields) get(i int) string {
	switch i {
	case Opening:
		return f.Opening
	case Benefit:
		return f.Benefit
	default:
		return f.Action
	}
}

func (f *Fields) set(i int, v string, src Source) {
	switch i {
	case Opening:
		f.Opening = v
	case Benefit:
		f.Benefit = v
	default:
		f.Action = v
	}
	f.Sources[i] = src
}

func (f *Fields) complete() bool {
	return f.Opening != "" && f.Benefit != "" && f.Action != ""
}

// Defaulted reports whether every slot came from the hard-coded defaults,
// meaning the raw text contributed nothing usable.
func (f Fields) Defaulted() bool {
	for _, s := range f.Sources {
		if s != SourceDefault {
			return false
		}
	}
	return true
}

// document is the raw text pre-split for the strategies.
type document struct {
	raw     string
	company string
	lines   []string // cleaned candidate lines for flexible/positional
}

// strategy returns values for slots that cur leaves empty.
type strategy struct {
	source Source
	fn     func(doc *document, cur *Fields) [numSlots]string
}

var strategies = []strategy{
	{SourceLabels, exactLabels},
	{SourceFlexible, flexible},
	{SourcePositional, positional},
	{SourceDefault, defaults},
}

// Parse never fails: it always returns three non-empty lines ending in
// terminal punctuation. Strategies run in order and only fill empty slots.
func Parse(raw, company string) Fields {
	doc := &document{raw: raw, company: strings.TrimSpace(company), lines: candidateLines(raw)}

	var f Fields
	for _, s := range strategies {
		vals := s.fn(doc, &f)
		for i, v := range vals {
			if f.get(i) != "" {
				continue
			}
			if v = clean(v); v != "" {
				f.set(i, v, s.source)
			}
		}
		if f.complete() {
			break
		}
	}

	f.Opening = Normalize(f.Opening, '.')
	f.Benefit = Normalize(f.Benefit, '.')
	f.Action = Normalize(f.Action, '?')
	return f
}

var exactPrefixes = [numSlots]string{"OPEN:", "BENEFIT:", "ACTION:"}

// exactLabels takes the first line carrying each case-sensitive label.
func exactLabels(doc *document, _ *Fields) [numSlots]string {
	var out [numSlots]string
	for _, line := range strings.Split(doc.raw, "\n") {
		line = strings.TrimSpace(line)
		for i, p := range exactPrefixes {
			if out[i] == "" && strings.HasPrefix(line, p) {
				out[i] = strings.TrimSpace(strings.TrimPrefix(line, p))
			}
		}
	}
	return out
}

var keywords = [numSlots][]string{
	{"hope", "hello", "hi", "greetings", "good", "team"},
	{"clean", "professional", "productivity", "maintain", "environment", "image", "standards"},
	{"call", "meeting", "schedule", "discuss", "available", "talk", "contact"},
}

// flexible classifies lines by keyword. Each line fills at most one slot,
// checked in opening, benefit, action order.
func flexible(doc *document, cur *Fields) [numSlots]string {
	var out [numSlots]string
	for _, line := range doc.lines {
		if line == cur.Opening || line == cur.Benefit || line == cur.Action {
			continue
		}
		words := tokenize(line)
		for i := range keywords {
			if cur.get(i) != "" || out[i] != "" {
				continue
			}
			if matchesAny(words, keywords[i]) {
				out[i] = line
				break
			}
		}
	}
	return out
}

// positional assigns the first three lines by position when nothing better
// was found, skipping lines another slot already holds.
func positional(doc *document, cur *Fields) [numSlots]string {
	var out [numSlots]string
	if len(doc.lines) < numSlots {
		return out
	}
	used := make(map[string]bool, numSlots)
	for i := 0; i < numSlots; i++ {
		if v := cur.get(i); v != "" {
			used[v] = true
		}
	}
	for i := 0; i < numSlots; i++ {
		line := clean(doc.lines[i])
		if cur.get(i) == "" && !used[line] {
			out[i] = line
			used[line] = true
		}
	}
	return out
}

func defaults(doc *document, _ *Fields) [numSlots]string {
	company := doc.company
	if company == "" {
		company = "your company"
	}
	return [numSlots]string{
		"Hope business is going well at " + company + ".",
		DefaultBenefit,
		DefaultAction,
	}
}

// candidateLines returns cleaned lines whose raw form is longer than five
// characters.
func candidateLines(raw string) []string {
	var lines []string
	for _, l := range strings.Split(raw, "\n") {
		l = strings.TrimSpace(l)
		if utf8.RuneCountInString(l) <= 5 {
			continue
		}
		if c := clean(l); c != "" {
			lines = append(lines, c)
		}
	}
	return lines
}

var (
	listMarker = regexp.MustCompile(`^(?:[-*•+]+|\d+[.):]|\(\d+\))\s*`)
	labelToken = regexp.MustCompile(`(?i)^\**\s*(?:opening|open|benefit|action|cta|call to action|greeting)\s*\**\s*[:\-–]\s*\**`)
)

// clean strips list markers, label prefixes and surrounding noise without
// changing case or punctuation at the end.
func clean(s string) string {
	s = strings.TrimSpace(s)
	for {
		before := s
		s = listMarker.ReplaceAllString(s, "")
		s = labelToken.ReplaceAllString(s, "")
		s = strings.TrimLeft(s, "\"'*-•: \t")
		s = strings.TrimRight(s, "\"'*:,; \t")
		if s == before {
			return s
		}
	}
}

// Normalize strips residual labels and noise, capitalizes the first letter
// and appends terminal when the text has no terminal punctuation.
// Normalize(Normalize(s, t), t) == Normalize(s, t).
func Normalize(s string, terminal rune) string {
	s = clean(s)
	if s == "" {
		return ""
	}
	r, size := utf8.DecodeRuneInString(s)
	s = string(unicode.ToUpper(r)) + s[size:]

	last, _ := utf8.DecodeLastRuneInString(s)
	if last != '.' && last != '!' && last != '?' {
		s += string(terminal)
	}
	return s
}

func tokenize(s string) []string {
	return strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && r != '\''
	})
}

// matchesAny reports whether a word equals a keyword or, for keywords of
// four letters or more, starts with it ("cleaning" matches "clean").
func matchesAny(words, kws []string) bool {
	for _, w := range words {
		for _, kw := range kws {
			if w == kw || (len(kw) >= 4 && strings.HasPrefix(w, kw)) {
				return true
			}
		}
	}
	return false
}
