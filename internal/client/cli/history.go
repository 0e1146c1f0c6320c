package cli

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	pb "github.com/dmitrijs2005/memvault/internal/proto"
)

var (
	unitHeaders = []string{"unit", "flat"}
	fileHeaders = []string{"file", "link", "upload"}
)

func findColumn(header []string, hints []string) int {
	for i, h := range header {
		h = strings.ToLower(strings.TrimSpace(h))
		for _, hint := range hints {
			if strings.Contains(h, hint) {
				return i
			}
		}
	}
	return -1
}

// ReadHistory parses a CSV export of past submissions. The header row must
// name a unit column ("unit" or "flat") and a file column ("file", "link"
// or "upload"); other columns are ignored. Rows with an empty unit are
// skipped.
func ReadHistory(r io.Reader) ([]pb.HistoryRow, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("history: empty file")
		}
		return nil, fmt.Errorf("history header: %w", err)
	}

	unitCol, fileCol := findColumn(header, unitHeaders), findColumn(header, fileHeaders)
	if unitCol < 0 || fileCol < 0 {
		return nil, fmt.Errorf("history: header %q needs a unit and a file column", header)
	}

	var rows []pb.HistoryRow
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("history: %w", err)
		}
		if unitCol >= len(rec) || strings.TrimSpace(rec[unitCol]) == "" {
			continue
		}
		row := pb.HistoryRow{UnitKey: strings.TrimSpace(rec[unitCol])}
		if fileCol < len(rec) {
			row.FileRefs = rec[fileCol]
		}
		rows = append(rows, row)
	}
	return rows, nil
}
