package entities

// Provenance tags attached to an interaction row.
const (
	TagIndividual = "individual-source-effects"
	TagPairwise   = "pairwise-interaction-signal"
)

// InteractionRow is one annotated compound pair of the interaction dataset.
// Tags and SideEffects are de-duplicated; an unmatched pair has both empty.
type InteractionRow struct {
	Drug1       string   `json:"drug1"`
	Drug2       string   `json:"drug2"`
	Tags        []string `json:"possibleInteractions"`
	SideEffects []string `json:"sideEffects"`
}

// Matched reports whether any source contributed side effects to the row.
func (r InteractionRow) Matched() bool {
	return len(r.SideEffects) > 0
}

// PolypharmacyRecord is one row of the TWOSIDES-derived polypharmacy dataset.
type PolypharmacyRecord struct {
	Drug1          string `json:"drug1"`
	Drug2          string `json:"drug2"`
	SideEffect     string `json:"polypharmacySideEffect"`
	SideEffectName string `json:"sideEffectName"`
}
