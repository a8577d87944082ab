package interactions

import (
	"context"
	"testing"

	"github.com/polyrisk/polyrisk-api/logging"
)

func TestBuildIndividualIndexCompleteness(t *testing.T) {
	logging.InitLogger("")
	path := writeFile(t, t.TempDir(), "sider.csv",
		"STITCH_compound_ID_flat,MedDRA_term\n"+
			"CIDs00000001,nausea\n"+
			"CID00000001,nausea\n"+
			"CID00000001,headache\n"+
			",rash\n"+
			"CID00000002,\n"+
			"CID00000003,dizziness\n")

	ix := NewSideEffectIndex()
	stats, err := BuildIndividualIndex(context.Background(), ix, path,
		IndividualColumns{ID: "STITCH_compound_ID_flat", Label: "MedDRA_term"}, 2)
	if err != nil {
		t.Fatalf("BuildIndividualIndex failed: %v", err)
	}

	if stats.RowsRead != 6 {
		t.Errorf("Expected 6 rows read, got %d", stats.RowsRead)
	}
	if stats.Indexed != 4 {
		t.Errorf("Expected 4 indexed rows, got %d", stats.Indexed)
	}
	if stats.SkippedNullFields != 2 {
		t.Errorf("Expected 2 skipped rows, got %d", stats.SkippedNullFields)
	}
	if stats.DistinctKeys != 2 {
		t.Errorf("Expected 2 distinct compounds, got %d", stats.DistinctKeys)
	}

	effects := ix.Individual["CID00000001"].Sorted()
	if len(effects) != 2 || effects[0] != "headache" || effects[1] != "nausea" {
		t.Errorf("Expected [headache nausea], got %v", effects)
	}
	if _, ok := ix.Individual["CID00000002"]; ok {
		t.Error("Expected compound with null label to be absent")
	}
}

func TestBuildPairwiseIndexUsesCanonicalKey(t *testing.T) {
	logging.InitLogger("")
	path := writeFile(t, t.TempDir(), "twosides.csv",
		"STITCH 1,STITCH 2,Side Effect Name\n"+
			"CID2,CID1,rash\n"+
			"CID1,CIDs2,fever\n"+
			"CID1,,cough\n"+
			"CID3,CID4,\n")

	ix := NewSideEffectIndex()
	stats, err := BuildPairwiseIndex(context.Background(), ix, path,
		PairwiseColumns{First: "STITCH 1", Second: "STITCH 2", Label: "Side Effect Name"}, 10)
	if err != nil {
		t.Fatalf("BuildPairwiseIndex failed: %v", err)
	}

	if stats.Indexed != 2 || stats.SkippedNullFields != 2 {
		t.Errorf("Expected 2 indexed and 2 skipped, got %d and %d", stats.Indexed, stats.SkippedNullFields)
	}

	set, ok := ix.Pairwise[NewPairKey("CID1", "CID2")]
	if !ok {
		t.Fatal("Expected pair CID1|CID2 to be indexed")
	}
	if len(set) != 2 {
		t.Errorf("Expected 2 labels for the pair, got %v", set.Sorted())
	}
}

func TestBuildIndexMissingColumn(t *testing.T) {
	path := writeFile(t, t.TempDir(), "bad.csv", "id,term\nCID1,x\n")
	_, err := BuildIndividualIndex(context.Background(), NewSideEffectIndex(), path,
		IndividualColumns{ID: "id", Label: "MedDRA_term"}, 10)
	if err == nil {
		t.Fatal("Expected error for missing label column")
	}
}

func TestBuildIndexHonorsCancellation(t *testing.T) {
	path := writeFile(t, t.TempDir(), "sider.csv", "id,label\nCID1,x\n")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := BuildIndividualIndex(ctx, NewSideEffectIndex(), path, IndividualColumns{ID: "id", Label: "label"}, 10)
	if err == nil {
		t.Error("Expected cancelled context to abort indexing")
	}
}
