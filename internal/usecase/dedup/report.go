package dedup

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
)

// Edge is one recorded similarity edge to a neighbor in the same group.
type Edge struct {
	NeighborID string  `json:"neighbor_id"`
	Score      float64 `json:"score"`
}

// Group is the assigned label and recorded edges for one visited document.
type Group struct {
	Label     int
	Neighbors []Edge
}

// Row is one visited document in the grouping report.
type Row struct {
	ID        string
	Question  string
	Answer    string
	Group     int
	Neighbors []Edge
}

// Report is the tabular outcome of a grouping run, one row per visited
// document in scan order. It is derived state: the authoritative data stays
// in the vector index and every run recomputes the groups from scratch.
type Report struct {
	Rows []Row
}

// Groups returns the document id to group mapping.
func (r *Report) Groups() map[string]Group {
	out := make(map[string]Group, len(r.Rows))
	for _, row := range r.Rows {
		out[row.ID] = Group{Label: row.Group, Neighbors: row.Neighbors}
	}
	return out
}

// WriteCSV exports the report as delimited text. The grouped_with column is a
// JSON array of {neighbor_id, score} objects.
func (r *Report) WriteCSV(w io.Writer) error {
	cw := csv.NewWriter(w)

	if err := cw.Write([]string{"id", "question", "answer", "group", "grouped_with"}); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	for _, row := range r.Rows {
		neighbors := row.Neighbors
		if neighbors == nil {
			neighbors = []Edge{}
		}
		encoded, err := json.Marshal(neighbors)
		if err != nil {
			return fmt.Errorf("encode neighbors for %s: %w", row.ID, err)
		}
		record := []string{row.ID, row.Question, row.Answer, strconv.Itoa(row.Group), string(encoded)}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("write row %s: %w", row.ID, err)
		}
	}

	cw.Flush()
	return cw.Error()
}
