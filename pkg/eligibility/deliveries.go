package eligibility

import (
	"sort"

	"github.com/gridscope/gridscope/pkg/table"
)

// DeliveryRecord is the minimal shape of one silver delivery-evidence line
// this package needs: one row per (vendor, floc, folder) upload batch.
type DeliveryRecord struct {
	Vendor     string
	ScopeID    string
	Floc       string
	Key        string
	Folder     string
	ImageCount int
}

// DeliveryAgg is delivery evidence rolled up to (vendor, key). Image counts
// are summed across folders so duplicate uploads of the same unit across
// days still count once toward the threshold, and the distinct folder count
// is kept for diagnostics.
type DeliveryAgg struct {
	Vendor          string
	Key             string
	Floc            string // first seen
	ScopeID         string // first seen
	FolderCount     int
	ImageCountTotal int
	HasDelivery     bool
	HasMinImages    bool
}

// AggregateDeliveries groups delivery lines by (vendor, key) and derives
// the evidence booleans against minImages. Output sorted by (vendor, key).
func AggregateDeliveries(records []DeliveryRecord, minImages int) []DeliveryAgg {
	type vk struct{ vendor, key string }
	aggs := make(map[vk]*DeliveryAgg)
	folders := make(map[vk]map[string]struct{})
	var order []vk

	for _, rec := range records {
		id := vk{rec.Vendor, rec.Key}
		agg, ok := aggs[id]
		if !ok {
			agg = &DeliveryAgg{
				Vendor:  rec.Vendor,
				Key:     rec.Key,
				Floc:    rec.Floc,
				ScopeID: rec.ScopeID,
			}
			aggs[id] = agg
			folders[id] = make(map[string]struct{})
			order = append(order, id)
		}
		agg.ImageCountTotal += rec.ImageCount
		if rec.Folder != "" {
			folders[id][rec.Folder] = struct{}{}
		}
	}

	out := make([]DeliveryAgg, 0, len(order))
	for _, id := range order {
		agg := aggs[id]
		agg.FolderCount = len(folders[id])
		agg.HasDelivery = agg.ImageCountTotal > 0
		agg.HasMinImages = agg.ImageCountTotal >= minImages
		out = append(out, *agg)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Vendor != out[j].Vendor {
			return out[i].Vendor < out[j].Vendor
		}
		return out[i].Key < out[j].Key
	})
	return out
}

// DeliveryRecordsFromTable converts a silver deliveries table.
func DeliveryRecordsFromTable(t *table.Table) []DeliveryRecord {
	if t == nil {
		return nil
	}
	out := make([]DeliveryRecord, 0, t.Len())
	for _, r := range t.Rows {
		out = append(out, DeliveryRecord{
			Vendor:     table.CleanString(r["vendor"]),
			ScopeID:    table.CleanString(r["scope_id"]),
			Floc:       table.CleanString(r["floc"]),
			Key:        table.CleanString(r["scope_floc_key"]),
			Folder:     table.CleanString(r["folder"]),
			ImageCount: table.ParseInt(r["image_count"]),
		})
	}
	return out
}
