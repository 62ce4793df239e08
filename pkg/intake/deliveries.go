package intake

import (
	"fmt"
	"os"
	"regexp"
	"sort"
	"time"

	"github.com/tidwall/gjson"

	"github.com/gridscope/gridscope/pkg/scopekey"
	"github.com/gridscope/gridscope/pkg/table"
)

// DeliveryColumns is the canonical silver deliveries schema: one line per
// (vendor, floc, folder) upload batch.
var DeliveryColumns = []string{
	"vendor",
	"scope_id",
	"floc",
	"scope_floc_key",
	"folder",
	"folder_block",
	"folder_date",
	"image_count",
	"uploaded_date",
	"flight_date",
	"run_date",
	"run_id",
}

var deliveryMapping = table.Mapping{
	"floc":          {"FLOC", "functional_location", "pole_id"},
	"folder":        {"FOLDER", "folder_name", "Folder Name"},
	"image_count":   {"IMAGE_COUNT", "images", "image_cnt", "file_count"},
	"uploaded_date": {"UPLOADED_DATE", "upload_date", "uploaded_at"},
	"flight_date":   {"FLIGHT_DATE", "capture_date", "flown_date"},
}

// folderRe matches the vendors' upload folder convention:
// (SCOPE)-(BLOCK)_Assets_YYYYMMDD.
var folderRe = regexp.MustCompile(`^([^-]+)-(.+)_Assets_(\d{8})$`)

// ParseDeliveryFolder extracts the scope id, block and date encoded in an
// upload folder name. ok is false when the name does not follow the
// convention; such folders still count as evidence, just without a scope.
func ParseDeliveryFolder(name string) (scopeID, block string, date time.Time, ok bool) {
	m := folderRe.FindStringSubmatch(table.CleanString(name))
	if m == nil {
		return "", "", time.Time{}, false
	}
	d, dok := table.ParseDate(m[3])
	if !dok {
		return "", "", time.Time{}, false
	}
	return m[1], m[2], d, true
}

// NormalizeDeliveriesCSV converts a vendor's delivery export into silver
// delivery lines. The scope id comes from the folder name when it parses;
// otherwise the line lands in the compliance bucket so the evidence is not
// lost.
func NormalizeDeliveriesCSV(raw *table.Table, vendor, runDate, runID string) (*table.Table, error) {
	t := deliveryMapping.Canonicalize(raw)
	if err := t.Require("deliveries", vendor, "floc", "folder"); err != nil {
		return nil, err
	}
	norm := scopekey.NewNormalizer(scopekey.PolicyBlankIsCompliance)

	out := table.New(DeliveryColumns...)
	for _, r := range t.Rows {
		floc := table.CleanString(r["floc"])
		if floc == "" {
			continue
		}
		folder := table.CleanString(r["folder"])
		folderScope, block, folderDate, parsed := ParseDeliveryFolder(folder)
		scope, floc, key, _ := norm.Normalize(folderScope, floc)
		row := table.Row{
			"vendor":         vendor,
			"scope_id":       scope,
			"floc":           floc,
			"scope_floc_key": key,
			"folder":         folder,
			"image_count":    r["image_count"],
			"uploaded_date":  table.CleanString(r["uploaded_date"]),
			"flight_date":    table.CleanString(r["flight_date"]),
			"run_date":       runDate,
			"run_id":         runID,
		}
		if parsed {
			row["folder_block"] = block
			row["folder_date"] = table.FormatDate(folderDate)
		}
		out.Append(row)
	}
	return out, nil
}

// ReadDeliveryManifest reads a JSON folder manifest (an array of objects
// with folder, floc and image counts) into the same silver shape as the
// CSV export. The manifests are small and vendor-written, so any shape
// surprise is a hard error.
func ReadDeliveryManifest(path, vendor, runDate, runID string) (*table.Table, error) {
	body, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	doc := string(body)
	if !gjson.Valid(doc) {
		return nil, fmt.Errorf("delivery manifest %s: invalid JSON", path)
	}
	entries := gjson.Get(doc, "@this").Array()
	if root := gjson.Get(doc, "folders"); root.IsArray() {
		entries = root.Array()
	}

	norm := scopekey.NewNormalizer(scopekey.PolicyBlankIsCompliance)
	out := table.New(DeliveryColumns...)
	for i, entry := range entries {
		floc := table.CleanString(gjson.Get(entry.Raw, "floc").Str)
		folder := table.CleanString(gjson.Get(entry.Raw, "folder").Str)
		if floc == "" || folder == "" {
			return nil, fmt.Errorf("delivery manifest %s: entry %d missing floc or folder", path, i)
		}
		folderScope, block, folderDate, parsed := ParseDeliveryFolder(folder)
		scope, floc, key, _ := norm.Normalize(folderScope, floc)
		row := table.Row{
			"vendor":         vendor,
			"scope_id":       scope,
			"floc":           floc,
			"scope_floc_key": key,
			"folder":         folder,
			"image_count":    gjson.Get(entry.Raw, "image_count").String(),
			"uploaded_date":  table.CleanString(gjson.Get(entry.Raw, "uploaded_date").Str),
			"flight_date":    table.CleanString(gjson.Get(entry.Raw, "flight_date").Str),
			"run_date":       runDate,
			"run_id":         runID,
		}
		if parsed {
			row["folder_block"] = block
			row["folder_date"] = table.FormatDate(folderDate)
		}
		out.Append(row)
	}
	return out, nil
}

// CanonicalDeliveries dedupes the accumulated delivery history down to the
// latest line per (vendor, floc, folder). Recency is judged by uploaded
// date, then flight date, then run date, and the output is sorted by
// (vendor, floc, folder) so reruns are byte-identical.
func CanonicalDeliveries(history *table.Table) *table.Table {
	type vff struct{ vendor, floc, folder string }
	best := make(map[vff]table.Row)
	for _, r := range history.Rows {
		id := vff{
			vendor: table.CleanString(r["vendor"]),
			floc:   table.CleanString(r["floc"]),
			folder: table.CleanString(r["folder"]),
		}
		cur, ok := best[id]
		if !ok || deliveryNewer(r, cur) {
			best[id] = r
		}
	}
	ids := make([]vff, 0, len(best))
	for id := range best {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		if ids[i].vendor != ids[j].vendor {
			return ids[i].vendor < ids[j].vendor
		}
		if ids[i].floc != ids[j].floc {
			return ids[i].floc < ids[j].floc
		}
		return ids[i].folder < ids[j].folder
	})
	out := table.New(DeliveryColumns...)
	for _, id := range ids {
		out.Append(best[id])
	}
	return out
}

func deliveryNewer(a, b table.Row) bool {
	for _, col := range []string{"uploaded_date", "flight_date", "run_date"} {
		av, aok := table.ParseDate(a[col])
		bv, bok := table.ParseDate(b[col])
		switch {
		case aok && !bok:
			return true
		case !aok && bok:
			return false
		case aok && bok && !av.Equal(bv):
			return av.After(bv)
		}
	}
	return a["run_id"] > b["run_id"]
}
