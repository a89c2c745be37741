package synth

// GlossaryEntry explains one phrase of a signal label.
type GlossaryEntry struct {
	Facet   string `json:"facet"`
	Label   string `json:"label"`
	Meaning string `json:"meaning"`
}

// Facet names in the order they appear in a signal.
const (
	FacetConcentration = "concentration"
	FacetBreadth       = "breadth"
	FacetStability     = "stability"
)

var glossary = []GlossaryEntry{
	{FacetConcentration, concentrationLabels[0], "A larger share of total community spend is clustering in that sector compared to other sectors."},
	{FacetConcentration, concentrationLabels[1], "Community spend clusters in that sector, but not overwhelmingly versus others."},
	{FacetConcentration, concentrationLabels[2], "Spend is spread across multiple sectors rather than clustering strongly into one."},
	{FacetBreadth, breadthLabels[0], "Many distinct merchants contribute to the sector's signal."},
	{FacetBreadth, breadthLabels[1], "A moderate number of merchants contribute to the sector's signal."},
	{FacetBreadth, breadthLabels[2], "Fewer merchants contribute to the signal."},
	{FacetStability, stabilityLabels[0], "The aggregate signal is persistent across recent periods."},
	{FacetStability, stabilityLabels[1], "The signal appears to be strengthening recently."},
	{FacetStability, stabilityLabels[2], "The signal is more volatile or event-driven."},
}

// Glossary returns the closed signal taxonomy with a meaning for every label.
func Glossary() []GlossaryEntry {
	out := make([]GlossaryEntry, len(glossary))
	copy(out, glossary)
	return out
}
