package interactions

import (
	"testing"
)

func TestNormalizeID(t *testing.T) {
	testCases := []struct {
		name     string
		input    string
		expected string
	}{
		{"variant prefix", "CIDs00000001", "CID00000001"},
		{"canonical", "CID00000001", "CID00000001"},
		{"repeated variant", "CIDss1", "CID1"},
		{"lowercase untouched", "cids0001", "cids0001"},
		{"prefix only in middle", "XCIDs1", "XCIDs1"},
		{"empty", "", ""},
		{"drugbank id", "DB00001", "DB00001"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got := NormalizeID(tc.input)
			if got != tc.expected {
				t.Errorf("Expected %q, got %q", tc.expected, got)
			}
			if again := NormalizeID(got); again != got {
				t.Errorf("Expected normalization to be idempotent, got %q then %q", got, again)
			}
		})
	}
}

func TestCanonicalIDSkipsNull(t *testing.T) {
	for _, raw := range []string{"", "   ", "NaN", "nan", "NULL", "None", "NA"} {
		if id, ok := CanonicalID(raw); ok {
			t.Errorf("Expected %q to be skipped, got %q", raw, id)
		}
	}

	id, ok := CanonicalID("  CIDs00002244 ")
	if !ok {
		t.Fatal("Expected identifier to be accepted")
	}
	if id != "CID00002244" {
		t.Errorf("Expected CID00002244, got %s", id)
	}
}

func TestIsStitchID(t *testing.T) {
	testCases := map[string]bool{
		"CID00002244": true,
		"CID":         false,
		"DB00001":     false,
		"cid0001":     false,
		"":            false,
	}
	for id, expected := range testCases {
		if got := IsStitchID(id); got != expected {
			t.Errorf("IsStitchID(%q): expected %v, got %v", id, expected, got)
		}
	}
}

func TestPairKeySymmetry(t *testing.T) {
	pairs := [][2]string{
		{"CID1", "CID2"},
		{"CID000002244", "CID000003310"},
		{"CID5", "CID5"},
		{"B", "A"},
	}
	for _, p := range pairs {
		ab := NewPairKey(p[0], p[1])
		ba := NewPairKey(p[1], p[0])
		if ab != ba {
			t.Errorf("Expected NewPairKey(%s,%s) == NewPairKey(%s,%s), got %v and %v", p[0], p[1], p[1], p[0], ab, ba)
		}
		if ab.First > ab.Second {
			t.Errorf("Expected sorted key, got %v", ab)
		}
	}

	if got := NewPairKey("CID2", "CID1").String(); got != "CID1|CID2" {
		t.Errorf("Expected CID1|CID2, got %s", got)
	}
}
