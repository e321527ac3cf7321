// Command validate checks the integrity of a crime CSV and the persisted
// copies of it that crimemap writes: the sqlite store and the gob snapshot.
// It verifies the header, row coercion, coordinate ranges, and that both
// persisted copies hold exactly the incidents the CSV loads to.
//
// Usage:
//
//	go run ./cmd/validate \
//	  -csv crime.csv \
//	  -db crime.db \
//	  -snapshot crime.gob
package main

import (
	"context"
	"encoding/csv"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/couchcryptid/crime-map-etl/internal/adapter/snapshot"
	"github.com/couchcryptid/crime-map-etl/internal/adapter/sqlite"
	"github.com/couchcryptid/crime-map-etl/internal/domain"
	"github.com/couchcryptid/crime-map-etl/internal/source"
	"github.com/google/go-cmp/cmp"
)

// maxReported caps per-phase detail so a bad file does not flood the output.
const maxReported = 20

// phase tracks pass/fail for a validation phase.
type phase struct {
	name    string
	skipped bool
	errors  []string
}

func (p *phase) errorf(format string, args ...any) {
	p.errors = append(p.errors, fmt.Sprintf(format, args...))
}

func (p *phase) passed() bool { return len(p.errors) == 0 }

func main() {
	csvPath := flag.String("csv", "", "path to the crime CSV")
	dbPath := flag.String("db", "", "path to the sqlite store (optional)")
	snapPath := flag.String("snapshot", "", "path to the gob snapshot (optional)")
	flag.Parse()

	if *csvPath == "" {
		flag.Usage()
		os.Exit(1)
	}

	os.Exit(run(*csvPath, *dbPath, *snapPath))
}

func run(csvPath, dbPath, snapPath string) int {
	fmt.Println("=== Crime Data Integrity Validation ===")
	fmt.Println()

	loaded, err := source.LoadCSV(csvPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: load CSV: %v\n", err)
		return 1
	}

	ctx := context.Background()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	phases := []*phase{
		validateHeader(csvPath),
		validateIncidents(loaded),
		validatePersisted("Phase 3: Store Parity (sqlite)", dbPath, loaded.Incidents, func() ([]domain.Incident, error) {
			store, err := sqlite.Open(dbPath, logger)
			if err != nil {
				return nil, err
			}
			defer store.Close()
			return store.Restore(ctx)
		}),
		validatePersisted("Phase 4: Snapshot Parity (gob)", snapPath, loaded.Incidents, func() ([]domain.Incident, error) {
			return snapshot.NewFile(snapPath, logger).Restore(ctx)
		}),
	}

	fmt.Println()
	allPassed := true
	for _, p := range phases {
		status := "\033[32mPASS\033[0m"
		switch {
		case p.skipped:
			status = "\033[33mSKIP\033[0m"
		case !p.passed():
			status = fmt.Sprintf("\033[31mFAIL (%d errors)\033[0m", len(p.errors))
			allPassed = false
		}
		fmt.Printf("  %-42s %s\n", p.name, status)
	}

	fmt.Println()
	fmt.Printf("Rows: %d read, %d dropped without coordinates, %d incidents\n",
		loaded.Rows, loaded.Dropped, len(loaded.Incidents))

	for _, p := range phases {
		if p.passed() {
			continue
		}
		fmt.Printf("\n--- %s ---\n", p.name)
		for i, e := range p.errors {
			if i == maxReported {
				fmt.Printf("  ... %d more\n", len(p.errors)-maxReported)
				break
			}
			fmt.Printf("  [%d] %s\n", i+1, e)
		}
	}

	if allPassed {
		fmt.Println("\nAll validations passed.")
		return 0
	}
	fmt.Println("\nValidation FAILED.")
	return 1
}

// ── Phase 1: Header ──
// The loader maps fields by position, so a reordered header would load
// silently into the wrong columns.

func validateHeader(path string) *phase {
	p := &phase{name: "Phase 1: Header (column order)"}

	f, err := os.Open(path)
	if err != nil {
		p.errorf("open: %v", err)
		return p
	}
	defer f.Close()

	header, err := csv.NewReader(f).Read()
	if errors.Is(err, io.EOF) {
		p.errorf("file is empty")
		return p
	}
	if err != nil {
		p.errorf("read header: %v", err)
		return p
	}
	if len(header) != len(source.Columns) {
		p.errorf("header has %d columns, expected %d", len(header), len(source.Columns))
		return p
	}
	for i, want := range source.Columns {
		if header[i] != want {
			p.errorf("column %d: expected %q, got %q", i+1, want, header[i])
		}
	}
	return p
}

// ── Phase 2: Incidents ──
// Every kept incident must be plottable and carry a category and month.

func validateIncidents(res *source.CSVResult) *phase {
	p := &phase{name: "Phase 2: Incidents (coordinates, fields)"}

	if res.Rows != len(res.Incidents)+res.Dropped {
		p.errorf("row accounting: %d rows != %d incidents + %d dropped", res.Rows, len(res.Incidents), res.Dropped)
	}
	for i := range res.Incidents {
		inc := &res.Incidents[i]
		if inc.Lon < -180 || inc.Lon > 180 {
			p.errorf("incident %d (%s): lon %g out of range", i, inc.DcKey, inc.Lon)
		}
		if inc.Lat < -90 || inc.Lat > 90 {
			p.errorf("incident %d (%s): lat %g out of range", i, inc.DcKey, inc.Lat)
		}
		if inc.Category == "" {
			p.errorf("incident %d (%s): empty category", i, inc.DcKey)
		}
		if inc.Month.IsZero() {
			p.errorf("incident %d (%s): zero month", i, inc.DcKey)
		}
	}
	return p
}

// ── Phases 3 and 4: Persisted parity ──
// A persisted copy must restore to exactly the incidents the CSV loads to.

func validatePersisted(name, path string, want []domain.Incident, restore func() ([]domain.Incident, error)) *phase {
	p := &phase{name: name}
	if path == "" {
		p.skipped = true
		return p
	}
	if _, err := os.Stat(path); err != nil {
		p.errorf("stat %s: %v", path, err)
		return p
	}

	got, err := restore()
	if err != nil {
		p.errorf("restore: %v", err)
		return p
	}
	if len(got) != len(want) {
		p.errorf("count: expected %d, got %d", len(want), len(got))
		return p
	}
	for i := range want {
		if diff := cmp.Diff(want[i], got[i]); diff != "" {
			p.errorf("incident %d (%s) mismatch (-csv +persisted):\n%s", i, want[i].DcKey, diff)
		}
	}
	return p
}
