package bureau

import "github.com/peepybureau/bpi/internal/datastore"

// Display fallbacks shown by the public pages.
const (
	PlaceholderImage   = "NO IMAGE"
	PlaceholderMugshot = "NO MUGSHOT ON FILE"
	NoNarrative        = "No classified narrative on file."
	UnknownAgent       = "Unknown Agent"
	UnknownAssociate   = "Unknown"
	SpecimenNotFound   = "SPECIMEN NOT FOUND. This file may have been redacted or does not exist."
)

var statusClasses = map[datastore.Status]string{
	datastore.StatusActive:     "badge--active",
	datastore.StatusMissing:    "badge--missing",
	datastore.StatusClassified: "badge--classified",
	datastore.StatusRetired:    "badge--retired",
}

var threatClasses = map[datastore.ThreatLevel]string{
	datastore.ThreatLow:      "threat-level--low",
	datastore.ThreatMedium:   "threat-level--medium",
	datastore.ThreatHigh:     "threat-level--high",
	datastore.ThreatCritical: "threat-level--critical",
}

var categoryColors = map[datastore.NoteCategory]string{
	datastore.CategoryOrganization: "var(--hot-pink)",
	datastore.CategoryLocation:     "var(--electric-blue)",
	datastore.CategorySpecies:      "var(--cyber-green)",
	datastore.CategoryOther:        "var(--neon-yellow)",
}

// StatusClass returns the badge class for a status; unknown values look active.
func StatusClass(s datastore.Status) string {
	if c, ok := statusClasses[s]; ok {
		return c
	}
	return "badge--active"
}

// ThreatClass returns the threat class; unknown values look low.
func ThreatClass(t datastore.ThreatLevel) string {
	if c, ok := threatClasses[t]; ok {
		return c
	}
	return "threat-level--low"
}

// CategoryColor returns the card accent for a field note category.
func CategoryColor(c datastore.NoteCategory) string {
	if color, ok := categoryColors[c]; ok {
		return color
	}
	return "var(--cyber-green)"
}

// BannerColor returns the marquee background for a site status, or "" for
// the default style.
func BannerColor(s datastore.SiteStatus) string {
	switch s {
	case datastore.SiteLockdown:
		return "#990000"
	case datastore.SiteMaintenance:
		return "#996600"
	default:
		return ""
	}
}

// AssociateName is the public label for a linked specimen: codename, then
// name, then Unknown.
func AssociateName(s *datastore.Specimen) string {
	if s == nil {
		return UnknownAssociate
	}
	if name := s.DisplayName(); name != "" {
		return name
	}
	return UnknownAssociate
}

// EditorLabel is the dashboard tag label: name, then codename, then id.
func EditorLabel(s *datastore.Specimen) string {
	switch {
	case s == nil:
		return ""
	case s.Name != "":
		return s.Name
	case s.Codename != "":
		return s.Codename
	default:
		return s.ID
	}
}
