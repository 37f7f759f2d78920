package katapult

import (
	"github.com/rotisserie/eris"
	"github.com/tidwall/gjson"
)

// Job identifies one survey project as listed by the jobs endpoint.
type Job struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Status string `json:"status"`
}

// JobData is a raw job detail payload. Sub-collections are kept as gjson
// values so that iteration follows the payload's own key order.
type JobData struct {
	raw []byte
	doc gjson.Result
}

// ParseJobData wraps a job detail body. The body must be valid JSON; callers
// that fetched it through Client already have that guarantee.
func ParseJobData(body []byte) *JobData {
	return &JobData{raw: body, doc: gjson.ParseBytes(body)}
}

// ParseStoredJobData wraps a body read back from storage, checking that it is
// still a JSON object.
func ParseStoredJobData(body []byte) (*JobData, error) {
	if !gjson.ValidBytes(body) {
		return nil, eris.New("katapult: stored payload is not valid JSON")
	}
	d := ParseJobData(body)
	if !d.doc.IsObject() {
		return nil, eris.Wrap(ErrShape, "katapult: stored payload")
	}
	return d, nil
}

// Bytes returns the payload exactly as received.
func (d *JobData) Bytes() []byte { return d.raw }

// Nodes returns the node collection keyed by node id.
func (d *JobData) Nodes() gjson.Result { return d.object("nodes") }

// Connections returns the connection collection keyed by connection id.
func (d *JobData) Connections() gjson.Result { return d.object("connections") }

// Photos returns the photo collection keyed by photo id.
func (d *JobData) Photos() gjson.Result { return d.object("photos") }

// Traces returns the trace collection keyed by trace id. Katapult nests the
// traces under "trace_data"; older payloads keep them at the top level.
func (d *JobData) Traces() gjson.Result {
	traces := d.object("traces")
	if td := traces.Get("trace_data"); td.IsObject() {
		return td
	}
	return traces
}

// Cables returns the cable collection keyed by cable id.
func (d *JobData) Cables() gjson.Result { return d.object("cables") }

// Metadata returns the job metadata object.
func (d *JobData) Metadata() gjson.Result { return d.object("metadata") }

// object returns the named top-level sub-object, or an empty result when it is
// absent or not an object. Absence is never an error.
func (d *JobData) object(key string) gjson.Result {
	if d == nil {
		return gjson.Result{}
	}
	v := d.doc.Get(key)
	if !v.IsObject() {
		return gjson.Result{}
	}
	return v
}
