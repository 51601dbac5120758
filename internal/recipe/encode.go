package recipe

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// CSVHeader is the fixed column order of the flat CSV.
var CSVHeader = []string{"OUTPUT_ID", "OUTPUT_QTY", "INPUT_ID", "INPUT_QTY", "STATION", "FOCUS_BASED"}

// EncodeJSON returns rows as an indented JSON array. An empty input encodes as
// [] rather than null.
func EncodeJSON(rows []FlatRow) ([]byte, error) {
	if rows == nil {
		rows = []FlatRow{}
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(rows); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// WriteCSV writes the header and one line per row. Fields containing a comma,
// quote or newline are quoted with inner quotes doubled.
func WriteCSV(w io.Writer, rows []FlatRow) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(CSVHeader); err != nil {
		return err
	}
	for _, r := range rows {
		if err := cw.Write([]string{
			r.OutputID,
			strconv.Itoa(r.OutputQty),
			r.InputID,
			strconv.Itoa(r.InputQty),
			r.Station,
			strconv.FormatBool(r.FocusBased),
		}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// EncodeCSV is WriteCSV into a byte slice.
func EncodeCSV(rows []FlatRow) ([]byte, error) {
	var buf bytes.Buffer
	if err := WriteCSV(&buf, rows); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// ReadCSV parses a flat CSV produced by WriteCSV.
func ReadCSV(r io.Reader) ([]FlatRow, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = len(CSVHeader)
	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	if strings.Join(header, ",") != strings.Join(CSVHeader, ",") {
		return nil, fmt.Errorf("unexpected header: %s", strings.Join(header, ","))
	}
	var rows []FlatRow
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		row, err := parseCSVRow(rec)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func parseCSVRow(rec []string) (FlatRow, error) {
	outQty, err := strconv.Atoi(rec[1])
	if err != nil {
		return FlatRow{}, fmt.Errorf("OUTPUT_QTY: %w", err)
	}
	inQty, err := strconv.Atoi(rec[3])
	if err != nil {
		return FlatRow{}, fmt.Errorf("INPUT_QTY: %w", err)
	}
	focus, err := strconv.ParseBool(rec[5])
	if err != nil {
		return FlatRow{}, fmt.Errorf("FOCUS_BASED: %w", err)
	}
	return FlatRow{
		OutputID:   rec[0],
		OutputQty:  outQty,
		InputID:    rec[2],
		InputQty:   inQty,
		Station:    rec[4],
		FocusBased: focus,
	}, nil
}
