package importer

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode"
)

var (
	// ErrMissingHeader is returned when the input has no header line
	ErrMissingHeader = errors.New("CSV input missing header row")

	// ErrMalformedCSV is returned when the input cannot be parsed as CSV
	ErrMalformedCSV = errors.New("malformed CSV")
)

// Row is one data record of the import file, already mapped onto the
// recognised columns. Values are trimmed; absent cells are empty strings.
type Row struct {
	Line         int
	Name         string
	Location     string
	Affiliations string
	Weapon       string
	Vehicle      string
}

type column int

const (
	colName column = iota
	colLocation
	colAffiliations
	colWeapon
	colVehicle
	numColumns
)

var recognisedHeaders = map[string]column{
	"name":         colName,
	"location":     colLocation,
	"affiliations": colAffiliations,
	"weapon":       colWeapon,
	"vehicle":      colVehicle,
}

// RowReader streams rows from a CSV source one record at a time. Blank
// lines are returned as empty rows so they are counted like any other
// record without the required values.
type RowReader struct {
	reader *csv.Reader
	lines  *lineCounter
	index  [numColumns]int

	lastLine int  // last physical line consumed by a returned row
	blanks   int  // empty rows owed before held
	held     *Row // record read past a run of blank lines
	heldEnd  int
	done     bool
}

// lineCounter tracks how many physical lines the csv reader has pulled.
type lineCounter struct {
	r        io.Reader
	newlines int
	read     bool
	last     byte
}

func (lc *lineCounter) Read(p []byte) (int, error) {
	n, err := lc.r.Read(p)
	if n > 0 {
		lc.newlines += bytes.Count(p[:n], []byte{'\n'})
		lc.read = true
		lc.last = p[n-1]
	}
	return n, err
}

// total is only meaningful once the source is exhausted.
func (lc *lineCounter) total() int {
	if !lc.read {
		return 0
	}
	if lc.last == '\n' {
		return lc.newlines
	}
	return lc.newlines + 1
}

// NewRowReader consumes the header line of r and prepares the column mapping.
func NewRowReader(r io.Reader) (*RowReader, error) {
	lc := &lineCounter{r: r}
	br := bufio.NewReader(lc)

	// UTF-8 BOM: 0xEF, 0xBB, 0xBF
	if b, err := br.Peek(3); err == nil && b[0] == 0xEF && b[1] == 0xBB && b[2] == 0xBF {
		_, _ = br.Discard(3)
	}

	cr := csv.NewReader(br)
	cr.FieldsPerRecord = -1
	cr.ReuseRecord = true

	rr := &RowReader{reader: cr, lines: lc}
	for i := range rr.index {
		rr.index[i] = -1
	}

	header, err := cr.Read()
	if err == io.EOF {
		return nil, ErrMissingHeader
	}
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read header: %w", ErrMalformedCSV, err)
	}
	rr.lastLine = rr.recordEnd(header)

	for i, h := range header {
		col, ok := recognisedHeaders[NormalizeHeader(h)]
		if ok && rr.index[col] == -1 {
			rr.index[col] = i
		}
	}
	return rr, nil
}

// MissingColumns lists the required columns absent from the header.
func (rr *RowReader) MissingColumns() []string {
	var missing []string
	if rr.index[colName] == -1 {
		missing = append(missing, "name")
	}
	if rr.index[colAffiliations] == -1 {
		missing = append(missing, "affiliations")
	}
	return missing
}

// Next returns the next row, or io.EOF once the input is exhausted.
func (rr *RowReader) Next() (Row, error) {
	if rr.blanks > 0 {
		rr.blanks--
		rr.lastLine++
		return Row{Line: rr.lastLine}, nil
	}
	if rr.held != nil {
		row := *rr.held
		rr.held = nil
		rr.lastLine = rr.heldEnd
		return row, nil
	}
	if rr.done {
		return Row{}, io.EOF
	}

	record, err := rr.reader.Read()
	if err == io.EOF {
		rr.done = true
		rr.blanks = max(rr.lines.total()-rr.lastLine, 0)
		return rr.Next()
	}
	if err != nil {
		return Row{}, fmt.Errorf("%w: %w", ErrMalformedCSV, err)
	}

	line, _ := rr.reader.FieldPos(0)
	rr.held = &Row{
		Line:         line,
		Name:         rr.field(record, colName),
		Location:     rr.field(record, colLocation),
		Affiliations: rr.field(record, colAffiliations),
		Weapon:       rr.field(record, colWeapon),
		Vehicle:      rr.field(record, colVehicle),
	}
	rr.heldEnd = rr.recordEnd(record)
	rr.blanks = max(line-rr.lastLine-1, 0)
	return rr.Next()
}

// recordEnd is the physical line on which the last read record ends.
func (rr *RowReader) recordEnd(record []string) int {
	last := len(record) - 1
	line, _ := rr.reader.FieldPos(last)
	return line + strings.Count(record[last], "\n")
}

func (rr *RowReader) field(record []string, col column) string {
	i := rr.index[col]
	if i < 0 || i >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[i])
}

// NormalizeHeader turns a header cell into its lookup key: " Affiliations " -> "affiliations".
func NormalizeHeader(h string) string {
	key := strings.Join(strings.Fields(strings.ToLower(h)), "_")
	return strings.Map(func(r rune) rune {
		if r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r) {
			return r
		}
		return -1
	}, key)
}
