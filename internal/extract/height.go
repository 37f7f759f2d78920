package extract

import (
	"fmt"
	"math"
	"strings"

	"github.com/tidwall/gjson"
)

// Trace types searched by the height resolver.
const (
	TraceTypeCable   = "cable"
	TraceTypeDownGuy = "down_guy"
)

// TraceCriteria selects the trace a measured height belongs to. An empty
// CableType matches any cable type.
type TraceCriteria struct {
	Company   string
	Proposed  bool
	TraceType string
	CableType string
}

// HeightCriteria is the ordered pair of searches the resolver runs: wires
// first, guying only when no wire matches.
type HeightCriteria struct {
	Wire TraceCriteria
	Guy  TraceCriteria
}

// DefaultHeightCriteria builds the proposed-fiber and proposed-down-guy
// searches for a company.
func DefaultHeightCriteria(company, cableType string) HeightCriteria {
	return HeightCriteria{
		Wire: TraceCriteria{Company: company, Proposed: true, TraceType: TraceTypeCable, CableType: cableType},
		Guy:  TraceCriteria{Company: company, Proposed: true, TraceType: TraceTypeDownGuy},
	}
}

// Matches reports whether trace satisfies c.
func (c TraceCriteria) Matches(trace gjson.Result) bool {
	if !trace.IsObject() {
		return false
	}
	if !strings.EqualFold(strings.TrimSpace(trace.Get("company").String()), strings.TrimSpace(c.Company)) {
		return false
	}
	if trace.Get("proposed").Bool() != c.Proposed {
		return false
	}
	if trace.Get("_trace_type").String() != c.TraceType {
		return false
	}
	if c.CableType != "" && trace.Get("cable_type").String() != c.CableType {
		return false
	}
	return true
}

// MainPhoto returns the id of the photo marked "main" on an owner (a node, a
// connection, or a connection section). Entries are scanned in payload order;
// either {"association": "main"} or a bare "main" marks the main photo.
func MainPhoto(owner gjson.Result) (string, bool) {
	var id string
	owner.Get("photos").ForEach(func(k, v gjson.Result) bool {
		if v.Get("association").String() == "main" || (v.Type == gjson.String && v.Str == "main") {
			id = k.String()
			return false
		}
		return true
	})
	return id, id != ""
}

// ResolveHeight returns the formatted height of the first matching proposed
// attachment on the owner's main photo, or "" when there is none.
func ResolveHeight(owner, photos, traces gjson.Result, criteria HeightCriteria) string {
	in, ok := MeasuredHeight(owner, photos, traces, criteria)
	if !ok {
		return ""
	}
	return FormatHeight(in)
}

// MeasuredHeight returns the measured height, in whole inches, of the first
// matching proposed attachment on the owner's main photo. ok is false when
// there is no main photo, no match, or the matching attachment carries no
// measurement.
func MeasuredHeight(owner, photos, traces gjson.Result, criteria HeightCriteria) (inches int, ok bool) {
	photoID, found := MainPhoto(owner)
	if !found {
		return 0, false
	}
	photo := photos.Get(gjson.Escape(photoID))
	if !photo.Exists() {
		return 0, false
	}
	pf := photo.Get("photofirst_data")

	entry, matched := firstMatch(pf.Get("wire"), traces, criteria.Wire)
	if !matched {
		entry, matched = firstMatch(pf.Get("guying"), traces, criteria.Guy)
	}
	if !matched {
		return 0, false
	}

	h := entry.Get("_measured_height")
	if h.Type != gjson.Number || math.IsNaN(h.Num) || math.Abs(h.Num) > maxMeasuredInches {
		return 0, false
	}
	return int(math.Trunc(h.Num)), true
}

// maxMeasuredInches bounds a usable measurement; anything larger is treated
// as no measurement at all.
const maxMeasuredInches = math.MaxInt32

func firstMatch(entries, traces gjson.Result, c TraceCriteria) (gjson.Result, bool) {
	var hit gjson.Result
	found := false
	entries.ForEach(func(_, entry gjson.Result) bool {
		traceID := entry.Get("_trace").String()
		if traceID == "" {
			return true
		}
		if c.Matches(traces.Get(gjson.Escape(traceID))) {
			hit, found = entry, true
			return false
		}
		return true
	})
	return hit, found
}

// FormatHeight renders inches as feet and inches, e.g. 170 -> 14' 2".
func FormatHeight(inches int) string {
	return fmt.Sprintf("%d' %d\"", inches/12, inches%12)
}
