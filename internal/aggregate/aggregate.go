// Package aggregate merges per-job extraction results into the master pole,
// anchor, and connection collections.
package aggregate

import (
	"github.com/blewis-maker/Katapult-Automation/internal/extract"
	"github.com/blewis-maker/Katapult-Automation/pkg/katapult"
)

// UnknownValue is stamped when neither the job list nor the payload supplies a
// job name or status.
const UnknownValue = "Unknown"

// Collections are the three master collections, in append order.
type Collections struct {
	Poles       []extract.PoleRecord
	Anchors     []extract.AnchorRecord
	Connections []extract.ConnectionRecord
}

// Len returns the total number of records.
func (c Collections) Len() int {
	return len(c.Poles) + len(c.Anchors) + len(c.Connections)
}

// Aggregator appends job results and stamps each record with its job's name
// and status. It performs no de-duplication: ids are only unique per job.
// An Aggregator is not safe for concurrent use.
type Aggregator struct {
	jobs map[string]katapult.Job
	out  Collections
	seen int
}

// New creates an Aggregator that looks up job names and statuses in jobs.
func New(jobs []katapult.Job) *Aggregator {
	m := make(map[string]katapult.Job, len(jobs))
	for _, j := range jobs {
		m[j.ID] = j
	}
	return &Aggregator{jobs: m}
}

// Add appends one job's records. Status falls back from the job list to the
// payload metadata and then to UnknownValue; name falls back from the job list
// to the name carried by the result.
func (a *Aggregator) Add(res *extract.JobResult) {
	if res == nil {
		return
	}
	a.seen++

	job := a.jobs[res.JobID]
	name := firstNonEmpty(job.Name, res.JobName, UnknownValue)
	status := firstNonEmpty(job.Status, res.MetadataStatus, UnknownValue)

	for _, p := range res.Poles {
		p.JobName = name
		p.JobStatus = status
		a.out.Poles = append(a.out.Poles, p)
	}
	for _, an := range res.Anchors {
		an.JobName = name
		a.out.Anchors = append(a.out.Anchors, an)
	}
	for _, c := range res.Connections {
		c.JobName = name
		a.out.Connections = append(a.out.Connections, c)
	}
}

// Jobs returns the number of results added.
func (a *Aggregator) Jobs() int { return a.seen }

// Collections returns the master collections. The slices are copies; later
// calls to Add do not affect them.
func (a *Aggregator) Collections() Collections {
	return Collections{
		Poles:       append([]extract.PoleRecord(nil), a.out.Poles...),
		Anchors:     append([]extract.AnchorRecord(nil), a.out.Anchors...),
		Connections: append([]extract.ConnectionRecord(nil), a.out.Connections...),
	}
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
