package interactions

import (
	"compress/gzip"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/polyrisk/polyrisk-api/logging"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write %s: %v", name, err)
	}
	return path
}

func writeGzip(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("Failed to create %s: %v", name, err)
	}
	gz := gzip.NewWriter(f)
	if _, err := gz.Write([]byte(content)); err != nil {
		t.Fatalf("Failed to write gzip content: %v", err)
	}
	if err := gz.Close(); err != nil {
		t.Fatalf("Failed to close gzip writer: %v", err)
	}
	if err := f.Close(); err != nil {
		t.Fatalf("Failed to close file: %v", err)
	}
	return path
}

func TestReadChunksBoundsChunkSize(t *testing.T) {
	logging.InitLogger("")
	dir := t.TempDir()
	path := writeFile(t, dir, "rows.csv", "id,label\nCID1,a\nCID2,b\n,\nCID3,c\nCID4,d\nCID5,e\n")

	tr, err := OpenTable(path)
	if err != nil {
		t.Fatalf("Failed to open table: %v", err)
	}
	defer tr.Close()

	var sizes []int
	total := 0
	err = tr.ReadChunks(2, func(chunk []Row) error {
		sizes = append(sizes, len(chunk))
		total += len(chunk)
		return nil
	})
	if err != nil {
		t.Fatalf("ReadChunks failed: %v", err)
	}

	if total != 5 {
		t.Errorf("Expected 5 rows, got %d", total)
	}
	for _, s := range sizes {
		if s > 2 {
			t.Errorf("Expected chunks of at most 2 rows, got %d", s)
		}
	}
	if tr.Stats().EmptyLines != 1 {
		t.Errorf("Expected 1 empty line, got %d", tr.Stats().EmptyLines)
	}
}

func TestOpenTableMissingFile(t *testing.T) {
	_, err := OpenTable(filepath.Join(t.TempDir(), "absent.csv"))
	if !errors.Is(err, ErrMissingInput) {
		t.Errorf("Expected ErrMissingInput, got %v", err)
	}
}

func TestOpenTableEmptyFile(t *testing.T) {
	path := writeFile(t, t.TempDir(), "empty.csv", "")
	_, err := OpenTable(path)
	if !errors.Is(err, ErrMissingInput) {
		t.Errorf("Expected ErrMissingInput for empty file, got %v", err)
	}
}

func TestRequireColumns(t *testing.T) {
	path := writeFile(t, t.TempDir(), "cols.csv", "chemical,name\nCID1,aspirin\n")
	tr, err := OpenTable(path)
	if err != nil {
		t.Fatalf("Failed to open table: %v", err)
	}
	defer tr.Close()

	if err := tr.RequireColumns("chemical", "name"); err != nil {
		t.Errorf("Expected columns to be present, got %v", err)
	}
	if err := tr.RequireColumns("chemical", "smiles"); !errors.Is(err, ErrMissingColumn) {
		t.Errorf("Expected ErrMissingColumn, got %v", err)
	}
}

func TestGzipTSVTable(t *testing.T) {
	logging.InitLogger("")
	path := writeGzip(t, t.TempDir(), "chemicals.tsv.gz",
		"chemical\tname\tmolecular_weight\nCIDs00000001\tacetylcarnitine\t203.24\nCIDs00000002\t\"quoted\" name\t1\n")

	tr, err := OpenTable(path)
	if err != nil {
		t.Fatalf("Failed to open gzip table: %v", err)
	}
	defer tr.Close()

	var names []string
	if err := tr.ReadChunks(10, func(chunk []Row) error {
		for _, r := range chunk {
			names = append(names, r.Get("name"))
		}
		return nil
	}); err != nil {
		t.Fatalf("ReadChunks failed: %v", err)
	}

	if len(names) != 2 {
		t.Fatalf("Expected 2 rows, got %d", len(names))
	}
	if names[1] != `"quoted" name` {
		t.Errorf("Expected tab split to keep quotes, got %q", names[1])
	}
}

func TestLatin1SourceIsDecoded(t *testing.T) {
	path := filepath.Join(t.TempDir(), "latin1.csv")
	content := []byte("chemical,name\nCID1,caf\xe9ine\n")
	if err := os.WriteFile(path, content, 0644); err != nil {
		t.Fatalf("Failed to write file: %v", err)
	}

	tr, err := OpenTable(path)
	if err != nil {
		t.Fatalf("Failed to open table: %v", err)
	}
	defer tr.Close()

	var name string
	tr.ReadChunks(10, func(chunk []Row) error {
		name = chunk[0].Get("name")
		return nil
	})

	if name != "caféine" {
		t.Errorf("Expected caféine, got %q", name)
	}
}

func TestRowGetShortRow(t *testing.T) {
	path := writeFile(t, t.TempDir(), "short.csv", "a,b,c\n1\n")
	tr, err := OpenTable(path)
	if err != nil {
		t.Fatalf("Failed to open table: %v", err)
	}
	defer tr.Close()

	tr.ReadChunks(10, func(chunk []Row) error {
		if got := chunk[0].Get("c"); got != "" {
			t.Errorf("Expected empty value for missing field, got %q", got)
		}
		if got := chunk[0].Get("unknown"); got != "" {
			t.Errorf("Expected empty value for unknown column, got %q", got)
		}
		return nil
	})
}
