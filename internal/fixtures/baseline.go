package fixtures

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

// Baseline persists the verdicts of an accepted run. Later runs diff
// against it, so a check can distinguish a fresh failure from a known
// one and spot silently drifting diagnostics.
type Baseline struct {
	db *sql.DB
}

const baselineSchema = `
CREATE TABLE IF NOT EXISTS baseline (
	fixture   TEXT NOT NULL,
	case_name TEXT NOT NULL,
	verdict   TEXT NOT NULL,
	detail    TEXT NOT NULL,
	PRIMARY KEY (fixture, case_name)
)`

// OpenBaseline opens (creating if needed) a baseline database.
func OpenBaseline(path string) (*Baseline, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open baseline %s: %w", path, err)
	}
	if _, err := db.Exec(baselineSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize baseline %s: %w", path, err)
	}
	return &Baseline{db: db}, nil
}

// Close releases the database.
func (b *Baseline) Close() error { return b.db.Close() }

// Update replaces the stored verdicts with the given run, atomically.
func (b *Baseline) Update(results []Result) error {
	tx, err := b.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to update baseline: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM baseline`); err != nil {
		return fmt.Errorf("failed to update baseline: %w", err)
	}
	stmt, err := tx.Prepare(`INSERT INTO baseline (fixture, case_name, verdict, detail) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to update baseline: %w", err)
	}
	defer stmt.Close()
	for _, r := range results {
		if _, err := stmt.Exec(r.Fixture, r.Case, r.Verdict(), r.Detail); err != nil {
			return fmt.Errorf("failed to record %s/%s: %w", r.Fixture, r.Case, err)
		}
	}
	return tx.Commit()
}

// Diff compares a run against the stored verdicts. Regressed lists cases
// that previously passed and now fail. Drifted lists cases whose verdict
// held but whose recorded detail changed, which usually means a message
// was reworded. Cases absent from the baseline are new and appear in
// neither list.
func (b *Baseline) Diff(results []Result) (regressed, drifted []Result, err error) {
	prev, err := b.snapshot()
	if err != nil {
		return nil, nil, err
	}
	for _, r := range results {
		stored, known := prev[baselineKey{r.Fixture, r.Case}]
		if !known {
			continue
		}
		switch {
		case stored.verdict == "pass" && !r.Pass:
			regressed = append(regressed, r)
		case stored.verdict == r.Verdict() && stored.detail != r.Detail:
			drifted = append(drifted, r)
		}
	}
	return regressed, drifted, nil
}

// Fresh filters a run down to cases the baseline does not know about
// yet. A check treats fresh failures like regressions: nothing ever
// accepted them.
func (b *Baseline) Fresh(results []Result) ([]Result, error) {
	prev, err := b.snapshot()
	if err != nil {
		return nil, err
	}
	var out []Result
	for _, r := range results {
		if _, known := prev[baselineKey{r.Fixture, r.Case}]; !known {
			out = append(out, r)
		}
	}
	return out, nil
}

type baselineKey struct {
	fixture  string
	caseName string
}

type baselineRow struct {
	verdict string
	detail  string
}

func (b *Baseline) snapshot() (map[baselineKey]baselineRow, error) {
	rows, err := b.db.Query(`SELECT fixture, case_name, verdict, detail FROM baseline`)
	if err != nil {
		return nil, fmt.Errorf("failed to read baseline: %w", err)
	}
	defer rows.Close()

	out := map[baselineKey]baselineRow{}
	for rows.Next() {
		var key baselineKey
		var row baselineRow
		if err := rows.Scan(&key.fixture, &key.caseName, &row.verdict, &row.detail); err != nil {
			return nil, fmt.Errorf("failed to read baseline: %w", err)
		}
		out[key] = row
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read baseline: %w", err)
	}
	return out, nil
}

// Len reports how many verdicts are stored.
func (b *Baseline) Len() (int, error) {
	var n int
	if err := b.db.QueryRow(`SELECT COUNT(*) FROM baseline`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to read baseline: %w", err)
	}
	return n, nil
}
