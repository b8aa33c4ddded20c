package taxonomy

import (
	"fmt"
	"strings"
)

// CompanyPlaceholder marks where the prospect's company name is substituted.
const CompanyPlaceholder = "{company_name}"

// Entry is the static template data for one taxonomy key.
type Entry struct {
	Key             Key
	IndustryType    string
	Services        []string
	Benefits        string
	PainPoints      string
	FallbackOpening string
	FallbackBenefit string
	FallbackAction  string
}

var library = map[Key]Entry{
	Education: {
		Key:             Education,
		IndustryType:    "educational institutions",
		Services:        []string{"Campus-wide cleaning", "Classroom sanitization", "Laboratory cleaning", "Student facility maintenance", "Flexible scheduling around academic calendars"},
		Benefits:        "clean learning environments impact student health and academic performance",
		PainPoints:      "maintaining health standards across large campus facilities",
		FallbackOpening: "Hope the academic year is going well at {company_name}.",
		FallbackBenefit: "Campus cleanliness is essential for student health and learning success.",
		FallbackAction:  "Could we schedule a call to discuss your campus cleaning needs?",
	},
	Construction: {
		Key:             Construction,
		IndustryType:    "construction companies",
		Services:        []string{"Post-construction cleanup", "Site maintenance", "Debris removal", "Safety compliance cleaning", "Final detail cleaning before handover"},
		Benefits:        "proper cleanup is crucial for project completion and safety standards",
		PainPoints:      "meeting tight deadlines while maintaining quality cleanup standards",
		FallbackOpening: "I've been following {company_name}'s impressive construction projects.",
		FallbackBenefit: "Post-construction cleanup is crucial for project completion and safety.",
		FallbackAction:  "Would you be available to discuss your cleanup requirements?",
	},
	Technology: {
		Key:             Technology,
		IndustryType:    "technology companies",
		Services:        []string{"Office cleaning", "Server room maintenance", "Equipment area cleaning", "Workspace sanitization", "After-hours scheduling"},
		Benefits:        "clean workspaces directly impact productivity and professional image",
		PainPoints:      "maintaining professional environments that support productivity",
		FallbackOpening: "Hope your team at {company_name} is having a productive week.",
		FallbackBenefit: "Clean workspaces directly impact productivity and team morale.",
		FallbackAction:  "Could we schedule a brief call about your office cleaning needs?",
	},
	Manufacturing: {
		Key:             Manufacturing,
		IndustryType:    "manufacturing facilities",
		Services:        []string{"Industrial floor cleaning", "Equipment maintenance", "Safety compliance", "Hazardous material cleanup", "Warehouse and loading dock cleaning"},
		Benefits:        "industrial cleaning is essential for safety compliance and operational efficiency",
		PainPoints:      "maintaining safety standards while keeping operations running",
		FallbackOpening: "I understand {company_name} maintains high operational standards.",
		FallbackBenefit: "Industrial cleaning is essential for safety and operational efficiency.",
		FallbackAction:  "Would you be interested in discussing your facility cleaning needs?",
	},
	Residential: {
		Key:             Residential,
		IndustryType:    "households",
		Services:        []string{"House cleaning", "Deep cleaning", "Move-in/out cleaning", "Regular maintenance cleaning", "Window and carpet care"},
		Benefits:        "professional cleaning saves time and ensures a healthy living environment",
		PainPoints:      "maintaining a clean home while managing busy schedules",
		FallbackOpening: "Hope everyone at {company_name} is doing well.",
		FallbackBenefit: "Professional cleaning saves time and ensures a healthy home environment.",
		FallbackAction:  "Would you be interested in learning about our residential cleaning services?",
	},
	Office: {
		Key:             Office,
		IndustryType:    "professional offices",
		Services:        []string{"Daily janitorial", "Restroom maintenance", "Break room cleaning", "Trash removal", "Recycling programs"},
		Benefits:        "professional environments enhance employee satisfaction and client impressions",
		PainPoints:      "maintaining professional appearance for employees and clients",
		FallbackOpening: "Hope business is going well at {company_name}.",
		FallbackBenefit: "Professional cleaning helps maintain your business image and employee satisfaction.",
		FallbackAction:  "Could we schedule a call to discuss your office cleaning needs?",
	},
	ProfessionalServices: {
		Key:             ProfessionalServices,
		IndustryType:    "professional services firms",
		Services:        []string{"Client-facing lobby and conference room care", "Daily office janitorial", "Confidential document area cleaning", "Restroom and kitchen sanitization", "Evening and weekend scheduling"},
		Benefits:        "a spotless office reinforces the trust clients place in your expertise",
		PainPoints:      "presenting a polished image to clients every single day",
		FallbackOpening: "Hope things are going well for the team at {company_name}.",
		FallbackBenefit: "A spotless office reinforces the professional image your clients expect.",
		FallbackAction:  "Could we set up a brief call to discuss your office cleaning needs?",
	},
	FoodBeverage: {
		Key:             FoodBeverage,
		IndustryType:    "restaurants and food businesses",
		Services:        []string{"Kitchen deep cleaning", "Dining area cleaning", "Health code compliance cleaning", "Floor scrubbing and degreasing", "Restroom sanitization"},
		Benefits:        "spotless kitchens and dining areas protect health inspections and guest experience",
		PainPoints:      "passing health inspections while serving customers every day",
		FallbackOpening: "Hope business is busy and bright at {company_name}.",
		FallbackBenefit: "A spotless kitchen and dining area keeps guests happy and inspections smooth.",
		FallbackAction:  "Would you be open to a quick call about your cleaning needs?",
	},
	Retail: {
		Key:             Retail,
		IndustryType:    "retail stores",
		Services:        []string{"Sales floor cleaning", "Window and display cleaning", "Fitting room and restroom care", "Stockroom maintenance", "Early-morning scheduling before opening"},
		Benefits:        "a clean storefront shapes customer impressions and encourages repeat visits",
		PainPoints:      "keeping the store inviting during busy shopping hours",
		FallbackOpening: "Hope the season is going well at {company_name}.",
		FallbackBenefit: "A clean, inviting storefront encourages customers to stay longer and return.",
		FallbackAction:  "Could we schedule a short call to discuss your store cleaning needs?",
	},
	Default: {
		Key:             Default,
		IndustryType:    "businesses",
		Services:        []string{"Commercial cleaning", "Professional maintenance", "Customized solutions", "Reliable service", "Emergency cleanup"},
		Benefits:        "professional cleaning maintains business standards and creates positive impressions",
		PainPoints:      "maintaining professional standards while focusing on core business",
		FallbackOpening: "Hope business is going well at {company_name}.",
		FallbackBenefit: "Professional cleaning helps maintain business standards.",
		FallbackAction:  "Could we schedule a brief call to discuss your cleaning needs?",
	},
}

// Keys returns every key present in the library, in rule priority order
// followed by Default.
func Keys() []Key {
	keys := make([]Key, 0, len(Rules)+1)
	for _, r := range Rules {
		keys = append(keys, r.Key)
	}
	return append(keys, Default)
}

// Lookup returns the entry for key.
func Lookup(key Key) (Entry, bool) {
	e, ok := library[key]
	return e, ok
}

// MustLookup returns the entry for key and panics when the key is missing.
// A miss means the mapper rules and the library drifted apart.
func MustLookup(key Key) Entry {
	e, ok := library[key]
	if !ok {
		panic(fmt.Sprintf("taxonomy: no template entry for key %q", key))
	}
	return e
}

// ForCategory maps a free-text category and returns its entry.
func ForCategory(category string) Entry {
	return MustLookup(Map(category))
}

// Fallback returns the entry's deterministic opening, benefit and action
// lines with the company name substituted.
func (e Entry) Fallback(company string) (opening, benefit, action string) {
	sub := func(s string) string { return strings.Replace(s, CompanyPlaceholder, company, 1) }
	return sub(e.FallbackOpening), sub(e.FallbackBenefit), sub(e.FallbackAction)
}

// TopServices returns at most n services in library order.
func (e Entry) TopServices(n int) []string {
	if n > len(e.Services) {
		n = len(e.Services)
	}
	return e.Services[:n]
}
