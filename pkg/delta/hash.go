package delta

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strings"

	"github.com/gridscope/gridscope/pkg/table"
)

// Signature computes a stable content hash over the given columns of a row.
// Columns are compared in alphabetical order so reordering between snapshot
// files never produces spurious updates; null values hash as the empty
// string. Collision risk is treated as negligible by algorithm choice.
func Signature(row table.Row, cols []string) string {
	sorted := append([]string(nil), cols...)
	sort.Strings(sorted)
	parts := make([]string, len(sorted))
	for i, c := range sorted {
		parts[i] = row[c]
	}
	sum := sha256.Sum256([]byte(strings.Join(parts, "|")))
	return hex.EncodeToString(sum[:])
}
