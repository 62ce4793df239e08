// Package lakehouse implements the on-disk layout of the inspection
// lakehouse: bronze/silver/gold zones, hive-style partition directories,
// CURRENT vs HISTORY dataset versions, and the sqlite run registry.
//
// HISTORY locations are append-only: each run writes under its own
// run_date/run_id partition and nothing ever rewrites a past run.
// CURRENT locations are whole-directory replaces holding the latest state.
package lakehouse

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
)

// Zones.
const (
	ZoneBronze = "bronze"
	ZoneSilver = "silver"
	ZoneGold   = "gold"
	ZoneUtil   = "util"
)

// Dataset versions.
const (
	Current = "CURRENT"
	History = "HISTORY"
)

// Partition is one key=value path segment. Order matters, so partitions
// are a slice, not a map.
type Partition struct {
	Key   string
	Value string
}

// Vendor builds the standard vendor partition.
func Vendor(v string) Partition { return Partition{Key: "vendor", Value: v} }

// RunPartitions builds the standard run lineage partitions.
func RunPartitions(runDate, runID string) []Partition {
	return []Partition{
		{Key: "run_date", Value: runDate},
		{Key: "run_id", Value: runID},
	}
}

var slugRe = regexp.MustCompile(`[^A-Za-z0-9_=.-]+`)

// slug keeps partition path segments filesystem-safe. Simple on purpose.
func slug(s string) string {
	s = strings.ReplaceAll(strings.TrimSpace(s), " ", "_")
	return slugRe.ReplaceAllString(s, "")
}

// Layout resolves dataset directories under one lakehouse root.
type Layout struct {
	Root string
}

// Dir returns the directory for (zone, dataset, version, partitions...).
func (l Layout) Dir(zone, dataset, version string, partitions ...Partition) string {
	parts := []string{l.Root, zone, slug(dataset), version}
	for _, p := range partitions {
		parts = append(parts, fmt.Sprintf("%s=%s", slug(p.Key), slug(p.Value)))
	}
	return filepath.Join(parts...)
}

// RunsDBPath is the sqlite run registry location.
func (l Layout) RunsDBPath() string {
	return filepath.Join(l.Root, ZoneUtil, "runs.sqlite")
}
