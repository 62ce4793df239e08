package table

import "strings"

// Mapping declares, per canonical column name, the raw header aliases a
// vendor export may use for it. The canonical name itself is always
// accepted. Resolution happens exactly once at the intake boundary; core
// algorithms only ever see canonical names.
type Mapping map[string][]string

// Resolved maps canonical names to the actual header found in an export.
type Resolved map[string]string

// Resolve matches the mapping against a header row, case-insensitively and
// ignoring surrounding whitespace. Canonical names without any matching
// header are simply absent from the result.
func (m Mapping) Resolve(headers []string) Resolved {
	lookup := make(map[string]string, len(headers))
	for _, h := range headers {
		lookup[strings.ToLower(strings.TrimSpace(h))] = strings.TrimSpace(h)
	}
	out := make(Resolved, len(m))
	for canonical, aliases := range m {
		if hit, ok := lookup[strings.ToLower(canonical)]; ok {
			out[canonical] = hit
			continue
		}
		for _, a := range aliases {
			if hit, ok := lookup[strings.ToLower(strings.TrimSpace(a))]; ok {
				out[canonical] = hit
				break
			}
		}
	}
	return out
}

// Col returns the actual header for a canonical name.
func (r Resolved) Col(canonical string) (string, bool) {
	hit, ok := r[canonical]
	return hit, ok
}

// Missing lists the canonical names among required that resolution did not
// find a header for.
func (r Resolved) Missing(required ...string) []string {
	var missing []string
	for _, c := range required {
		if _, ok := r[c]; !ok {
			missing = append(missing, c)
		}
	}
	return missing
}

// Canonicalize rewrites a raw table so its columns carry canonical names.
// Unmapped raw columns are kept under their trimmed original header.
func (m Mapping) Canonicalize(t *Table) *Table {
	resolved := m.Resolve(t.Cols)
	rename := make(map[string]string, len(resolved))
	for canonical, actual := range resolved {
		rename[actual] = canonical
	}
	out := &Table{}
	seen := make(map[string]bool)
	for _, c := range t.Cols {
		name := strings.TrimSpace(c)
		if canonical, ok := rename[name]; ok {
			name = canonical
		}
		if !seen[name] {
			seen[name] = true
			out.Cols = append(out.Cols, name)
		}
	}
	for _, r := range t.Rows {
		nr := make(Row, len(r))
		for k, v := range r {
			name := strings.TrimSpace(k)
			if canonical, ok := rename[name]; ok {
				name = canonical
			}
			nr[name] = v
		}
		out.Rows = append(out.Rows, nr)
	}
	return out
}
