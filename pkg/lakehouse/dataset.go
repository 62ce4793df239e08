package lakehouse

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/gridscope/gridscope/pkg/table"
)

// ErrNotFound marks a dataset location with no data file. Callers treat it
// as "no data yet", which for CURRENT reads is an expected state.
var ErrNotFound = errors.New("dataset not found")

const dataFile = "data.csv"

// WriteDataset persists a table as <dir>/data.csv, creating the partition
// directory. Returns the written path for lineage metadata.
func WriteDataset(t *table.Table, dir string) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	path := filepath.Join(dir, dataFile)
	if err := table.WriteCSV(t, path); err != nil {
		return "", fmt.Errorf("write dataset %s: %w", path, err)
	}
	return path, nil
}

// ReadDataset loads <dir>/data.csv, or ErrNotFound.
func ReadDataset(dir string) (*table.Table, error) {
	return ReadDatasetFile(dir, dataFile)
}

// ReadDatasetFile loads a named csv from a dataset directory.
func ReadDatasetFile(dir, name string) (*table.Table, error) {
	path := filepath.Join(dir, name)
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return nil, err
	}
	return table.ReadCSV(path)
}

// ReadCurrent loads the CURRENT version of a dataset, or ErrNotFound when
// there is no data yet. Vendor is optional: unpartitioned datasets pass "".
func (l Layout) ReadCurrent(zone, dataset, vendor string) (*table.Table, error) {
	if vendor == "" {
		return ReadDataset(l.Dir(zone, dataset, Current))
	}
	return ReadDataset(l.Dir(zone, dataset, Current, Vendor(vendor)))
}

// LatestPriorSnapshot resolves, once per run, the newest HISTORY snapshot
// directory for (zone, dataset, vendor) excluding the current run's own
// partition. The returned handle is immutable for the rest of the run.
// ok=false means no prior snapshot exists, which is the expected state for
// a brand-new vendor or dataset.
func (l Layout) LatestPriorSnapshot(zone, dataset, vendor, excludeRunID string) (dir string, ok bool, err error) {
	base := l.Dir(zone, dataset, History, Vendor(vendor))
	var candidates []string
	walkErr := filepath.WalkDir(base, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && d.Name() == dataFile {
			candidates = append(candidates, filepath.Dir(path))
		}
		return nil
	})
	if walkErr != nil {
		if os.IsNotExist(walkErr) {
			return "", false, nil
		}
		return "", false, walkErr
	}

	exclude := "run_id=" + slug(excludeRunID)
	filtered := candidates[:0]
	for _, c := range candidates {
		if excludeRunID == "" || !strings.Contains(c, exclude) {
			filtered = append(filtered, c)
		}
	}
	if len(filtered) == 0 {
		return "", false, nil
	}
	// Partition names embed run_date/run_id, so lexicographic order is
	// chronological; ties cannot happen because run ids are unique.
	sort.Strings(filtered)
	return filtered[len(filtered)-1], true, nil
}

// ReadAllHistory concatenates every HISTORY data file for (zone, dataset,
// vendor), e.g. to assemble the full append-only event log. A missing base
// directory yields an empty table.
func (l Layout) ReadAllHistory(zone, dataset, vendor string) (*table.Table, error) {
	base := l.Dir(zone, dataset, History, Vendor(vendor))
	var files []string
	walkErr := filepath.WalkDir(base, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && d.Name() == dataFile {
			files = append(files, path)
		}
		return nil
	})
	if walkErr != nil {
		if os.IsNotExist(walkErr) {
			return &table.Table{}, nil
		}
		return nil, walkErr
	}
	sort.Strings(files)

	out := &table.Table{}
	for _, f := range files {
		t, err := table.ReadCSV(f)
		if err != nil {
			return nil, fmt.Errorf("read history file %s: %w", f, err)
		}
		for _, c := range t.Cols {
			out.AddCol(c)
		}
		out.Rows = append(out.Rows, t.Rows...)
	}
	return out, nil
}
