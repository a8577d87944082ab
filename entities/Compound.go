package entities

// Compound is one row of the compound source: a raw identifier as it appears
// in the file and its display name.
type Compound struct {
	RawID string `json:"rawId"`
	Name  string `json:"name"`
}

// PairKey is the canonical key of an unordered compound pair. First is always
// lexicographically smaller than or equal to Second.
type PairKey struct {
	First  string
	Second string
}

func (k PairKey) String() string {
	return k.First + "|" + k.Second
}
