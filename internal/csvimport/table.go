// Package csvimport decodes uploaded lead spreadsheets into records.
package csvimport

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// ErrEmptyFile is returned when an upload has no header row
var ErrEmptyFile = errors.New("file is empty")

// Table is a decoded sheet: a normalized header and its data rows
type Table struct {
	Header []string
	Rows   [][]string
}

// Column returns the index of the first header matching one of the names, or -1
func (t *Table) Column(names ...string) int {
	for _, name := range names {
		for i, h := range t.Header {
			if h == name {
				return i
			}
		}
	}
	return -1
}

// ReadTable decodes a CSV file, or an .xlsx workbook when the name says so
func ReadTable(fileName string, r io.Reader) (*Table, error) {
	if strings.EqualFold(filepath.Ext(fileName), ".xlsx") {
		return readWorkbook(r)
	}
	return readCSV(r)
}

func readCSV(r io.Reader) (*Table, error) {
	br := bufio.NewReaderSize(r, 64*1024)
	if head, err := br.Peek(len(utf8BOM)); err == nil && bytes.Equal(head, utf8BOM) {
		br.Discard(len(utf8BOM))
	}

	first, err := br.Peek(4096)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, bufio.ErrBufferFull) {
		return nil, fmt.Errorf("read csv: %w", err)
	}

	cr := csv.NewReader(br)
	cr.Comma = sniffDelimiter(first)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse csv: %w", err)
	}
	return newTable(records)
}

func readWorkbook(r io.Reader) (*Table, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	sheet := f.GetSheetName(0)
	if sheet == "" {
		return nil, ErrEmptyFile
	}
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("read sheet %s: %w", sheet, err)
	}
	return newTable(rows)
}

func newTable(records [][]string) (*Table, error) {
	if len(records) == 0 {
		return nil, ErrEmptyFile
	}

	t := &Table{Header: make([]string, len(records[0]))}
	for i, h := range records[0] {
		t.Header[i] = normalizeHeader(h)
	}

	for _, rec := range records[1:] {
		if blank(rec) {
			continue
		}
		t.Rows = append(t.Rows, rec)
	}
	return t, nil
}

// sniffDelimiter picks ';' when the header line has more of them than commas
func sniffDelimiter(sample []byte) rune {
	if i := bytes.IndexAny(sample, "\r\n"); i >= 0 {
		sample = sample[:i]
	}

	var commas, semis int
	inQuotes := false
	for _, b := range sample {
		switch b {
		case '"':
			inQuotes = !inQuotes
		case ',':
			if !inQuotes {
				commas++
			}
		case ';':
			if !inQuotes {
				semis++
			}
		}
	}
	if semis > commas {
		return ';'
	}
	return ','
}

func normalizeHeader(h string) string {
	h = strings.TrimPrefix(h, string(utf8BOM))
	h = strings.ToLower(strings.TrimSpace(h))
	return strings.Join(strings.Fields(h), "_")
}

func blank(rec []string) bool {
	for _, v := range rec {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
