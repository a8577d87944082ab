package interactions

import (
	"strings"

	"github.com/polyrisk/polyrisk-api/entities"
)

const (
	stitchPrefix        = "CID"
	stitchVariantPrefix = "CIDs"
)

// nullTokens are the field values treated as absent, on top of the empty
// string. They match what the upstream dataframe exports write for NaN.
var nullTokens = map[string]struct{}{
	"NA": {}, "N/A": {}, "NaN": {}, "nan": {}, "NULL": {}, "null": {}, "None": {},
}

// isNull reports whether a trimmed field value represents a missing value.
func isNull(value string) bool {
	if value == "" {
		return true
	}
	_, ok := nullTokens[value]
	return ok
}

// NormalizeID rewrites the STITCH "CIDs<digits>" variant to the canonical
// "CID<digits>" form. Any other string is returned unchanged.
func NormalizeID(raw string) string {
	// Repeat so that normalizing the output again is a no-op even for
	// inputs such as "CIDss1".
	for strings.HasPrefix(raw, stitchVariantPrefix) {
		raw = stitchPrefix + raw[len(stitchVariantPrefix):]
	}
	return raw
}

// CanonicalID trims and normalizes a raw identifier field. The boolean is
// false when the field is null, in which case the record must be skipped.
func CanonicalID(raw string) (string, bool) {
	trimmed := strings.TrimSpace(raw)
	if isNull(trimmed) {
		return "", false
	}
	return NormalizeID(trimmed), true
}

// IsStitchID reports whether a canonical identifier follows the CID prefix
// convention. Identifiers that do not are treated as unmatched keys.
func IsStitchID(id string) bool {
	return len(id) > len(stitchPrefix) && strings.HasPrefix(id, stitchPrefix)
}

// NewPairKey returns the canonical key for an unordered pair of identifiers.
func NewPairKey(a, b string) entities.PairKey {
	if b < a {
		a, b = b, a
	}
	return entities.PairKey{First: a, Second: b}
}
