package table

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
)

// ReadCSV loads a data.csv file into a Table. The first record is the
// header; headers are kept verbatim (canonicalization is the intake
// boundary's job, via Mapping).
func ReadCSV(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ReadCSVFrom(f)
}

func ReadCSVFrom(r io.Reader) (*Table, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	header, err := cr.Read()
	if err == io.EOF {
		return &Table{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read csv header: %w", err)
	}
	t := New(header...)
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read csv record: %w", err)
		}
		row := make(Row, len(header))
		for i, col := range header {
			if i < len(rec) {
				row[col] = rec[i]
			}
		}
		t.Append(row)
	}
	return t, nil
}

// WriteCSV persists the table, header first, columns in Table order.
func WriteCSV(t *Table, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	if err := WriteCSVTo(t, f); err != nil {
		return err
	}
	return f.Close()
}

func WriteCSVTo(t *Table, w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(t.Cols); err != nil {
		return err
	}
	rec := make([]string, len(t.Cols))
	for _, row := range t.Rows {
		for i, col := range t.Cols {
			rec[i] = row[col]
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
