package intake

import (
	"fmt"
	"strings"

	"github.com/gridscope/gridscope/pkg/events"
	"github.com/gridscope/gridscope/pkg/scopekey"
	"github.com/gridscope/gridscope/pkg/table"
)

var eventMapping = table.Mapping{
	"floc":                 {"FLOC", "functional_location"},
	"scope_id":             {"SCOPE_ID", "scope"},
	"event_type":           {"EVENT_TYPE", "Event", "action"},
	"event_effective_date": {"EFFECTIVE_DATE", "Effective Date", "event_date", "date"},
	"visit_no":             {"VISIT_NO", "Visit", "Visit #"},
}

// eventTypeAliases maps the free-text action labels the vendor sheets use
// onto the two recognized event types.
var eventTypeAliases = map[string]string{
	"removal":       events.TypeRemoval,
	"removed":       events.TypeRemoval,
	"remove":        events.TypeRemoval,
	"move_to_helo":  events.TypeMoveToHelo,
	"moved to helo": events.TypeMoveToHelo,
	"move to helo":  events.TypeMoveToHelo,
	"helo":          events.TypeMoveToHelo,
}

func normalizeEventType(raw string) (string, bool) {
	t, ok := eventTypeAliases[strings.ToLower(table.CleanString(raw))]
	return t, ok
}

// NormalizeEvents converts one raw event sheet into typed event lines.
// Rows without a floc or with an unrecognized action are rejected, not
// skipped: a mistyped removal must fail loudly rather than silently keep a
// unit active.
func NormalizeEvents(raw *table.Table, vendor, sourceFile, sourceSheet, runDate, runID string) ([]events.Event, error) {
	t := eventMapping.Canonicalize(raw)
	if err := t.Require("scope_events", vendor, "floc", "event_type"); err != nil {
		return nil, err
	}
	norm := scopekey.NewNormalizer(scopekey.PolicyBlankIsCompliance)

	out := make([]events.Event, 0, t.Len())
	for i, r := range t.Rows {
		floc := table.CleanString(r["floc"])
		if floc == "" {
			continue
		}
		eventType, ok := normalizeEventType(r["event_type"])
		if !ok {
			return nil, fmt.Errorf("scope_events vendor=%s row %d: unrecognized event type %q", vendor, i+1, table.CleanString(r["event_type"]))
		}
		scope, floc, key, _ := norm.Normalize(table.CleanString(r["scope_id"]), floc)
		e := events.Event{
			Vendor:      vendor,
			ScopeID:     scope,
			Floc:        floc,
			Key:         key,
			Type:        eventType,
			RunDate:     runDate,
			RunID:       runID,
			SourceFile:  sourceFile,
			SourceSheet: sourceSheet,
			VisitNo:     table.CleanString(r["visit_no"]),
		}
		if d, ok := table.ParseDate(r["event_effective_date"]); ok {
			e.EffectiveDate = d
		}
		out = append(out, e)
	}
	return out, nil
}
