package extract

import (
	"strconv"
	"strings"

	"github.com/tidwall/gjson"
	"go.uber.org/zap"

	"github.com/blewis-maker/Katapult-Automation/pkg/katapult"
)

// NodeIndex maps node ids to their coordinates. Only nodes with a complete
// position are indexed.
type NodeIndex map[string]Coord

// BuildNodeIndex indexes every located node, whatever its classification, so
// that connections can resolve endpoints against unrelated nodes as well.
func BuildNodeIndex(nodes gjson.Result) NodeIndex {
	idx := make(NodeIndex)
	nodes.ForEach(func(k, node gjson.Result) bool {
		if c, ok := coordOf(node); ok {
			idx[k.String()] = c
		}
		return true
	})
	return idx
}

// coordOf reads a node's latitude and longitude. Both must be present,
// non-null, and numeric (a numeric string is accepted).
func coordOf(node gjson.Result) (Coord, bool) {
	lat, ok := number(node.Get("latitude"))
	if !ok {
		return Coord{}, false
	}
	lng, ok := number(node.Get("longitude"))
	if !ok {
		return Coord{}, false
	}
	return Coord{Latitude: lat, Longitude: lng}, true
}

func number(v gjson.Result) (float64, bool) {
	switch v.Type {
	case gjson.Number:
		return v.Num, true
	case gjson.String:
		f, err := strconv.ParseFloat(strings.TrimSpace(v.Str), 64)
		return f, err == nil
	default:
		return 0, false
	}
}

// ExtractNodes classifies every node of a job, in payload order, and builds
// the pole and anchor records. Unclassified, reference, and unlocated nodes are
// skipped and counted.
func ExtractNodes(job katapult.Job, data *katapult.JobData, opts Options) ([]PoleRecord, []AnchorRecord, Stats) {
	var (
		poles   []PoleRecord
		anchors []AnchorRecord
		stats   Stats
	)
	photos, traces := data.Photos(), data.Traces()

	data.Nodes().ForEach(func(k, node gjson.Result) bool {
		nodeID := k.String()
		stats.NodesSeen++

		kind := Classify(nodeID, node)
		switch kind {
		case KindReference:
			stats.References++
			skipNode(job.ID, nodeID, "reference")
			return true
		case KindUnrelated:
			stats.Unrelated++
			skipNode(job.ID, nodeID, "unclassified")
			return true
		}

		pos, ok := coordOf(node)
		if !ok {
			stats.NodesSkipped++
			skipNode(job.ID, nodeID, "missing coordinates")
			return true
		}

		attrs := node.Get("attributes")
		if kind == KindPole {
			poles = append(poles, PoleRecord{
				JobID:          job.ID,
				NodeID:         nodeID,
				Longitude:      pos.Longitude,
				Latitude:       pos.Latitude,
				Tag:            PoleTag.String(attrs, ""),
				SCID:           SCID.String(attrs, ""),
				MRStatus:       DeriveMRStatus(attrs),
				MRNote:         MRNote.String(attrs, ""),
				Company:        Company.String(attrs, ""),
				FieldCompleted: FieldCompleted(attrs),
				PoleClass:      PoleClass.String(attrs, ""),
				PoleHeight:     PoleHeight.String(attrs, ""),
				PoleSpec:       PoleSpec.String(attrs, ""),
				MeasuredHeight: ResolveHeight(node, photos, traces, opts.Height),
				JobName:        job.Name,
			})
			return true
		}

		anchors = append(anchors, AnchorRecord{
			JobID:      job.ID,
			NodeID:     nodeID,
			Longitude:  pos.Longitude,
			Latitude:   pos.Latitude,
			AnchorSpec: AnchorSpec.String(attrs, "Unknown"),
			JobName:    job.Name,
		})
		return true
	})

	return poles, anchors, stats
}

func skipNode(jobID, nodeID, reason string) {
	zap.L().Debug("extract: skipping node",
		zap.String("job_id", jobID),
		zap.String("node_id", nodeID),
		zap.String("reason", reason),
	)
}
