package extract

import (
	"go.uber.org/zap"

	"github.com/blewis-maker/Katapult-Automation/pkg/katapult"
)

// Options tunes extraction.
type Options struct {
	Height HeightCriteria
}

// DefaultOptions matches proposed fiber attachments of the given company.
func DefaultOptions(company, cableType string) Options {
	return Options{Height: DefaultHeightCriteria(company, cableType)}
}

// Add accumulates o into s.
func (s *Stats) Add(o Stats) {
	s.NodesSeen += o.NodesSeen
	s.References += o.References
	s.Unrelated += o.Unrelated
	s.NodesSkipped += o.NodesSkipped
	s.ConnectionsSeen += o.ConnectionsSeen
	s.ReferenceLinks += o.ReferenceLinks
	s.ConnectionsSkipped += o.ConnectionsSkipped
}

// ExtractJob runs node and connection extraction over one job payload. It
// never fails: malformed records are skipped and counted in Stats. The result
// depends only on the payload and opts.
func ExtractJob(job katapult.Job, data *katapult.JobData, opts Options) *JobResult {
	poles, anchors, nodeStats := ExtractNodes(job, data, opts)
	index := BuildNodeIndex(data.Nodes())
	conns, connStats := ExtractConnections(job, data, index, opts)

	res := &JobResult{
		JobID:          job.ID,
		JobName:        job.Name,
		MetadataStatus: JobStatus.String(data.Metadata(), ""),
		Poles:          poles,
		Anchors:        anchors,
		Connections:    conns,
	}
	res.Stats.Add(nodeStats)
	res.Stats.Add(connStats)

	zap.L().Debug("extract: job extracted",
		zap.String("job_id", job.ID),
		zap.Int("poles", len(poles)),
		zap.Int("anchors", len(anchors)),
		zap.Int("connections", len(conns)),
		zap.Int("nodes_skipped", res.Stats.NodesSkipped),
		zap.Int("connections_skipped", res.Stats.ConnectionsSkipped),
	)
	return res
}
