package interactions

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/polyrisk/polyrisk-api/entities"
	"github.com/polyrisk/polyrisk-api/logging"
)

const (
	tagSeparator    = ";"
	effectSeparator = "|"
)

var interactionHeader = []string{"drug1", "drug2", "possible_interactions", "sideeffects"}

// FormatTags joins provenance tags for the output file.
func FormatTags(tags []string) string {
	return strings.Join(tags, tagSeparator)
}

// FormatEffects joins side effects with a pipe. A pipe inside a label is
// replaced so the separator stays unambiguous.
func FormatEffects(effects []string) string {
	cleaned := make([]string, len(effects))
	for i, e := range effects {
		cleaned[i] = strings.ReplaceAll(e, effectSeparator, "/")
	}
	return strings.Join(cleaned, effectSeparator)
}

// csvFileWriter owns an output file and its csv.Writer. Rows go to a .part
// file that replaces path on Close; Abort discards it and leaves path as it was.
type csvFileWriter struct {
	path    string
	tmpPath string
	file    *os.File
	w       *csv.Writer
	rows    int
}

func createCSV(path string, header []string) (*csvFileWriter, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return nil, fmt.Errorf("failed to create output directory %s: %w", dir, err)
		}
	}

	tmpPath := path + ".part"
	file, err := os.Create(tmpPath)
	if err != nil {
		return nil, fmt.Errorf("failed to create %s: %w", tmpPath, err)
	}

	c := &csvFileWriter{path: path, tmpPath: tmpPath, file: file, w: csv.NewWriter(file)}
	if err := c.w.Write(header); err != nil {
		c.Abort()
		return nil, fmt.Errorf("failed to write header to %s: %w", path, err)
	}
	return c, nil
}

func (c *csvFileWriter) write(record []string) error {
	if err := c.w.Write(record); err != nil {
		return fmt.Errorf("failed to write to %s: %w", c.path, err)
	}
	c.rows++
	return nil
}

func (c *csvFileWriter) Close() error {
	c.w.Flush()
	if err := c.w.Error(); err != nil {
		c.Abort()
		return fmt.Errorf("failed to flush %s: %w", c.path, err)
	}
	if err := c.file.Close(); err != nil {
		os.Remove(c.tmpPath)
		return fmt.Errorf("failed to close %s: %w", c.path, err)
	}
	if err := os.Rename(c.tmpPath, c.path); err != nil {
		os.Remove(c.tmpPath)
		return fmt.Errorf("failed to move %s into place: %w", c.path, err)
	}
	return nil
}

// Abort drops everything written so far.
func (c *csvFileWriter) Abort() {
	if err := c.file.Close(); err != nil {
		logging.Warn("Failed to close output file", "path", c.tmpPath, "error", err)
	}
	if err := os.Remove(c.tmpPath); err != nil && !os.IsNotExist(err) {
		logging.Warn("Failed to remove partial output", "path", c.tmpPath, "error", err)
	}
}

// InteractionWriter streams interaction rows to a CSV file.
type InteractionWriter struct {
	*csvFileWriter
}

func CreateInteractionWriter(path string) (*InteractionWriter, error) {
	c, err := createCSV(path, interactionHeader)
	if err != nil {
		return nil, err
	}
	return &InteractionWriter{c}, nil
}

func (w *InteractionWriter) Write(row entities.InteractionRow) error {
	return w.write([]string{row.Drug1, row.Drug2, FormatTags(row.Tags), FormatEffects(row.SideEffects)})
}

// Rows returns how many data rows were written.
func (w *InteractionWriter) Rows() int {
	return w.rows
}

// WriteInteractionRows writes rows to path, replacing any previous file.
func WriteInteractionRows(path string, rows []entities.InteractionRow) error {
	w, err := CreateInteractionWriter(path)
	if err != nil {
		return err
	}
	for _, row := range rows {
		if err := w.Write(row); err != nil {
			w.Abort()
			return err
		}
	}
	return w.Close()
}
