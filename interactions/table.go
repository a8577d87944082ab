// Package interactions builds the drug-pair interaction dataset from the
// STITCH, SIDER and TWOSIDES tables: identifier normalization, side-effect
// indexing, pair aggregation and the CSV outputs derived from them.
package interactions

import (
	"bufio"
	"compress/gzip"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/polyrisk/polyrisk-api/logging"
	"golang.org/x/text/encoding/charmap"
)

// DefaultChunkSize is the number of rows handed to a chunk callback.
const DefaultChunkSize = 10000

var (
	// ErrMissingInput is returned when a source file does not exist or is empty.
	ErrMissingInput = errors.New("missing input")
	// ErrMissingColumn is returned when a required header column is absent.
	ErrMissingColumn = errors.New("missing column")

	errStopReading = errors.New("stop reading")
)

const encodingSampleSize = 64 * 1024

// Row is one data line of a source table.
type Row struct {
	fields  []string
	columns map[string]int
}

// Get returns the trimmed value of a column, or "" when the row is too short
// or the column is unknown.
func (r Row) Get(column string) string {
	i, ok := r.columns[column]
	if !ok || i >= len(r.fields) {
		return ""
	}
	return strings.TrimSpace(r.fields[i])
}

// Fields returns the raw field values in header order.
func (r Row) Fields() []string {
	return r.fields
}

// TableStats counts the lines a TableReader went through.
type TableStats struct {
	Lines          int
	EmptyLines     int
	MalformedLines int
}

// TableReader streams a delimited file with a header row. Tab separated files
// (.tsv, .txt) are split per line, everything else goes through encoding/csv.
// Gzip input is detected from the .gz suffix.
type TableReader struct {
	path    string
	file    *os.File
	gz      *gzip.Reader
	header  []string
	columns map[string]int
	next    func() ([]string, error)
	stats   TableStats
}

// OpenTable opens a source table and reads its header. A file that does not
// exist or has no header yields ErrMissingInput.
func OpenTable(path string) (*TableReader, error) {
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrMissingInput, path)
		}
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}

	tr := &TableReader{path: path, file: file}

	var src io.Reader = file
	if strings.HasSuffix(strings.ToLower(path), ".gz") {
		gz, err := gzip.NewReader(file)
		if err != nil {
			tr.Close()
			if errors.Is(err, io.EOF) {
				return nil, fmt.Errorf("%w: %s is empty", ErrMissingInput, path)
			}
			return nil, fmt.Errorf("failed to open gzip stream %s: %w", path, err)
		}
		tr.gz = gz
		src = gz
	}

	src = decodeSource(bufio.NewReaderSize(src, encodingSampleSize))

	if isTabSeparated(path) {
		scanner := bufio.NewScanner(src)
		scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
		tr.next = func() ([]string, error) {
			if !scanner.Scan() {
				if err := scanner.Err(); err != nil {
					return nil, err
				}
				return nil, io.EOF
			}
			return strings.Split(strings.TrimRight(scanner.Text(), "\r"), "\t"), nil
		}
	} else {
		reader := csv.NewReader(src)
		reader.FieldsPerRecord = -1
		reader.LazyQuotes = true
		tr.next = reader.Read
	}

	header, err := tr.next()
	if err != nil {
		tr.Close()
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: %s has no header row", ErrMissingInput, path)
		}
		return nil, fmt.Errorf("failed to read header of %s: %w", path, err)
	}

	tr.header = header
	tr.columns = make(map[string]int, len(header))
	for i, name := range header {
		name = strings.TrimSpace(strings.TrimPrefix(name, "\ufeff"))
		tr.header[i] = name
		if _, exists := tr.columns[name]; !exists {
			tr.columns[name] = i
		}
	}

	return tr, nil
}

// Header returns the column names in file order.
func (tr *TableReader) Header() []string {
	return tr.header
}

// RequireColumns fails with ErrMissingColumn if any of the columns is absent.
func (tr *TableReader) RequireColumns(columns ...string) error {
	var missing []string
	for _, c := range columns {
		if _, ok := tr.columns[c]; !ok {
			missing = append(missing, c)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: %s lacks %v (header: %v)", ErrMissingColumn, filepath.Base(tr.path), missing, tr.header)
	}
	return nil
}

// ReadChunks hands the remaining rows to fn in slices of at most chunkSize.
// The slice is reused between calls, fn must not keep it.
func (tr *TableReader) ReadChunks(chunkSize int, fn func(chunk []Row) error) error {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}

	chunk := make([]Row, 0, chunkSize)
	flush := func() error {
		if len(chunk) == 0 {
			return nil
		}
		err := fn(chunk)
		chunk = chunk[:0]
		return err
	}

	for {
		fields, err := tr.next()
		if errors.Is(err, io.EOF) {
			break
		}
		tr.stats.Lines++
		if err != nil {
			var parseErr *csv.ParseError
			if errors.As(err, &parseErr) {
				tr.stats.MalformedLines++
				continue
			}
			return fmt.Errorf("failed to read %s: %w", tr.path, err)
		}

		if isEmptyRecord(fields) {
			tr.stats.EmptyLines++
			continue
		}

		chunk = append(chunk, Row{fields: fields, columns: tr.columns})
		if len(chunk) == chunkSize {
			if err := flush(); err != nil {
				return err
			}
		}
	}

	return flush()
}

// Stats returns the line counters accumulated so far.
func (tr *TableReader) Stats() TableStats {
	return tr.stats
}

func (tr *TableReader) Close() {
	if tr.gz != nil {
		if err := tr.gz.Close(); err != nil {
			logging.Warn("Failed to close gzip stream", "path", tr.path, "error", err)
		}
	}
	if err := tr.file.Close(); err != nil {
		logging.Warn("Failed to close source table", "path", tr.path, "error", err)
	}
}

// readTable opens path, checks the required columns and streams its rows.
// fn may return errStopReading to end early without an error.
func readTable(path string, chunkSize int, required []string, fn func(chunk []Row) error) (TableStats, error) {
	tr, err := OpenTable(path)
	if err != nil {
		return TableStats{}, err
	}
	defer tr.Close()

	if err := tr.RequireColumns(required...); err != nil {
		return TableStats{}, err
	}

	if err := tr.ReadChunks(chunkSize, fn); err != nil && !errors.Is(err, errStopReading) {
		return tr.Stats(), err
	}
	return tr.Stats(), nil
}

func isTabSeparated(path string) bool {
	name := strings.TrimSuffix(strings.ToLower(path), ".gz")
	return strings.HasSuffix(name, ".tsv") || strings.HasSuffix(name, ".txt")
}

func isEmptyRecord(fields []string) bool {
	for _, f := range fields {
		if strings.TrimSpace(f) != "" {
			return false
		}
	}
	return true
}

// decodeSource peeks at the head of the stream and wraps it in an ISO-8859-1
// decoder when it is not valid UTF-8.
func decodeSource(br *bufio.Reader) io.Reader {
	sample, _ := br.Peek(encodingSampleSize)
	if validUTF8Prefix(sample) {
		return br
	}
	return charmap.ISO8859_1.NewDecoder().Reader(br)
}

// validUTF8Prefix tolerates a rune cut in half at the end of the sample.
func validUTF8Prefix(sample []byte) bool {
	for i := 0; i < utf8.UTFMax; i++ {
		if utf8.Valid(sample) {
			return true
		}
		if len(sample) == 0 {
			break
		}
		sample = sample[:len(sample)-1]
	}
	return false
}
