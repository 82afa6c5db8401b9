package store

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/nvandessel/porewalk/internal/outcome"
)

// archivedRun is one JSONL line of a store export.
type archivedRun struct {
	Run      Run              `json:"run"`
	Outcomes []outcome.Record `json:"outcomes"`
}

// ExportJSONL writes every run with its outcomes to w, one run per line,
// oldest first. It returns the number of runs written.
func ExportJSONL(ctx context.Context, s RunStore, w io.Writer) (int, error) {
	runs, err := s.ListRuns(ctx, 0)
	if err != nil {
		return 0, err
	}

	enc := json.NewEncoder(w)
	for i := len(runs) - 1; i >= 0; i-- {
		recs, err := s.GetOutcomes(ctx, runs[i].ID)
		if err != nil {
			return 0, err
		}
		if err := enc.Encode(archivedRun{Run: runs[i], Outcomes: recs}); err != nil {
			return 0, fmt.Errorf("failed to encode run %s: %w", runs[i].ID, err)
		}
	}
	return len(runs), nil
}

// ImportJSONL saves every run read from r into s. Runs whose ID already
// exists are skipped. It returns the number of runs imported.
func ImportJSONL(ctx context.Context, s RunStore, r io.Reader) (int, error) {
	scanner := bufio.NewScanner(r)
	// Outcome arrays make for long lines.
	scanner.Buffer(make([]byte, 0, 64*1024), 64*1024*1024)

	imported, lineNum := 0, 0
	for scanner.Scan() {
		lineNum++
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var a archivedRun
		if err := json.Unmarshal(line, &a); err != nil {
			return imported, fmt.Errorf("failed to parse line %d: %w", lineNum, err)
		}
		if a.Run.ID != "" {
			if _, err := s.GetRun(ctx, a.Run.ID); err == nil {
				continue
			}
		}
		if _, err := s.SaveRun(ctx, a.Run, a.Outcomes); err != nil {
			return imported, fmt.Errorf("failed to import line %d: %w", lineNum, err)
		}
		imported++
	}
	if err := scanner.Err(); err != nil {
		return imported, fmt.Errorf("scanner error: %w", err)
	}
	return imported, nil
}
