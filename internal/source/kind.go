package source

import (
	"errors"
	"fmt"
	"os"
	"strings"
)

// ErrNoInput means none of the configured source files exist.
var ErrNoInput = errors.New("no crime data source found")

// Kind is the resolved way a run obtains its incident table.
type Kind int

const (
	// FreshLoad parses and normalizes the raw CSV.
	FreshLoad Kind = iota
	// RestoreFromStore reads already-normalized rows from the relational store.
	RestoreFromStore
	// RestoreFromSnapshot decodes a serialized table snapshot.
	RestoreFromSnapshot
)

func (k Kind) String() string {
	switch k {
	case FreshLoad:
		return "csv"
	case RestoreFromStore:
		return "store"
	case RestoreFromSnapshot:
		return "snapshot"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Paths locates the three candidate sources. StoreReady, when set, must
// also report true before an existing store file counts as a source; it
// lets the caller require a persisted table rather than any file.
type Paths struct {
	CSV      string
	Store    string
	Snapshot string

	StoreReady func(path string) bool
}

func (p Paths) pathFor(k Kind) string {
	switch k {
	case RestoreFromStore:
		return p.Store
	case RestoreFromSnapshot:
		return p.Snapshot
	default:
		return p.CSV
	}
}

// available reports whether the source of kind k can be loaded.
func (p Paths) available(k Kind) bool {
	path := p.pathFor(k)
	if !fileExists(path) {
		return false
	}
	if k == RestoreFromStore && p.StoreReady != nil {
		return p.StoreReady(path)
	}
	return true
}

// Resolve chooses the source once per run. With override "" or "auto" the
// first available source wins, in the order store, snapshot, CSV. Otherwise
// override names the kind ("csv", "store", "snapshot") and that source must
// be available.
func Resolve(paths Paths, override string) (Kind, error) {
	override = strings.ToLower(strings.TrimSpace(override))
	if override == "" || override == "auto" {
		for _, k := range []Kind{RestoreFromStore, RestoreFromSnapshot, FreshLoad} {
			if paths.available(k) {
				return k, nil
			}
		}
		return 0, fmt.Errorf("%w: tried %s, %s, %s", ErrNoInput, paths.Store, paths.Snapshot, paths.CSV)
	}

	k, err := ParseKind(override)
	if err != nil {
		return 0, err
	}
	if !paths.available(k) {
		return 0, fmt.Errorf("%w: %s source %s is missing or holds no table", ErrNoInput, k, paths.pathFor(k))
	}
	return k, nil
}

// ParseKind maps "csv", "store", or "snapshot" to a Kind.
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "csv":
		return FreshLoad, nil
	case "store":
		return RestoreFromStore, nil
	case "snapshot":
		return RestoreFromSnapshot, nil
	default:
		return 0, fmt.Errorf("unknown source kind %q", s)
	}
}

func fileExists(path string) bool {
	if path == "" {
		return false
	}
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
