package storage

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"unicode"

	"xscraper/pkg/models"
)

// utf8BOM lets spreadsheet tools detect the encoding.
var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Header is the column order of every output file.
var Header = []string{"author", "timestamp", "text"}

// Manager writes result files into one output directory.
type Manager struct {
	outputDir string
	prefix    string
	writeBOM  bool
	overwrite bool
}

// Options configures a Manager.
type Options struct {
	Prefix    string
	WriteBOM  bool
	Overwrite bool
}

// NewManager creates the output directory if needed.
func NewManager(outputDir string, opts Options) (*Manager, error) {
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}
	if opts.Prefix == "" {
		opts.Prefix = "twitter_scrape"
	}
	return &Manager{
		outputDir: outputDir,
		prefix:    opts.Prefix,
		writeBOM:  opts.WriteBOM,
		overwrite: opts.Overwrite,
	}, nil
}

// SanitizeQuery replaces every rune that is not a letter or digit with '_'.
func SanitizeQuery(q string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return r
		}
		return '_'
	}, q)
}

// BaseName returns the file stem shared by the CSV and its sidecars.
func (m *Manager) BaseName(mode models.Mode, query string) string {
	return fmt.Sprintf("%s_%s_%s", m.prefix, mode, SanitizeQuery(query))
}

// Path joins name onto the output directory.
func (m *Manager) Path(name string) string {
	return filepath.Join(m.outputDir, name)
}

// CSVPath returns where results for this search are written.
func (m *Manager) CSVPath(mode models.Mode, query string) string {
	return m.Path(m.BaseName(mode, query) + ".csv")
}

// SaveRecords writes recs as CSV to path atomically.
func (m *Manager) SaveRecords(path string, recs []models.Record) error {
	if !m.overwrite {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("output file %s already exists", path)
		}
	}

	var buf bytes.Buffer
	if m.writeBOM {
		buf.Write(utf8BOM)
	}
	if err := WriteCSV(&buf, recs); err != nil {
		return err
	}
	return WriteFileAtomic(path, buf.Bytes(), 0644)
}

// WriteCSV encodes recs with the standard header.
func WriteCSV(w io.Writer, recs []models.Record) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Header); err != nil {
		return fmt.Errorf("failed to write csv header: %w", err)
	}
	for _, r := range recs {
		if err := cw.Write([]string{r.Author, r.Timestamp, r.Text}); err != nil {
			return fmt.Errorf("failed to write csv row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// ReadRecords loads a file written by SaveRecords. A leading BOM is ignored.
func ReadRecords(path string) ([]models.Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	br := bufio.NewReader(f)
	if lead, err := br.Peek(len(utf8BOM)); err == nil && bytes.Equal(lead, utf8BOM) {
		_, _ = br.Discard(len(utf8BOM))
	}

	cr := csv.NewReader(br)
	rows, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	if len(rows) == 0 {
		return nil, nil
	}
	if strings.Join(rows[0], ",") != strings.Join(Header, ",") {
		return nil, fmt.Errorf("unexpected header in %s: %v", path, rows[0])
	}

	recs := make([]models.Record, 0, len(rows)-1)
	for _, row := range rows[1:] {
		recs = append(recs, models.Record{Author: row[0], Timestamp: row[1], Text: row[2]})
	}
	return recs, nil
}

// WriteFileAtomic writes data to a temp file beside path and renames it.
func WriteFileAtomic(path string, data []byte, perm os.FileMode) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	tempFile := path + ".tmp"
	if err := os.WriteFile(tempFile, data, perm); err != nil {
		os.Remove(tempFile)
		return fmt.Errorf("failed to write temporary file: %w", err)
	}
	if err := os.Rename(tempFile, path); err != nil {
		os.Remove(tempFile)
		return fmt.Errorf("failed to rename temporary file: %w", err)
	}
	return nil
}
