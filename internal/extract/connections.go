package extract

import (
	"strings"

	"github.com/tidwall/gjson"
	"go.uber.org/zap"

	"github.com/blewis-maker/Katapult-Automation/pkg/katapult"
)

const (
	connTypeAerialCable  = "aerial cable"
	connTypeReference    = "reference"
	connTypeComReference = "com reference"
	midpointSection      = "midpoint_section"
)

// IsReferenceLink reports whether a connection type denotes a non-physical
// link between nodes.
func IsReferenceLink(connType string) bool {
	switch strings.ToLower(strings.TrimSpace(connType)) {
	case connTypeReference, connTypeComReference:
		return true
	default:
		return false
	}
}

// ExtractConnections resolves every physical connection of a job against the
// node index. Endpoint coordinates always come from the indexed nodes.
func ExtractConnections(job katapult.Job, data *katapult.JobData, index NodeIndex, opts Options) ([]ConnectionRecord, Stats) {
	var (
		out   []ConnectionRecord
		stats Stats
	)
	photos, traces := data.Photos(), data.Traces()

	data.Connections().ForEach(func(k, conn gjson.Result) bool {
		connID := k.String()
		stats.ConnectionsSeen++

		connType := ConnectionType.String(conn.Get("attributes"), "Unknown")
		if IsReferenceLink(connType) {
			stats.ReferenceLinks++
			skipConnection(job.ID, connID, "reference link")
			return true
		}

		start, ok := endpoint(index, conn.Get("node_id_1"))
		if !ok {
			stats.ConnectionsSkipped++
			skipConnection(job.ID, connID, "start node missing or unlocated")
			return true
		}
		end, ok := endpoint(index, conn.Get("node_id_2"))
		if !ok {
			stats.ConnectionsSkipped++
			skipConnection(job.ID, connID, "end node missing or unlocated")
			return true
		}

		var midHeight string
		if strings.EqualFold(connType, connTypeAerialCable) {
			midHeight = ResolveHeight(midspanOwner(conn), photos, traces, opts.Height)
		}

		out = append(out, ConnectionRecord{
			JobID:             job.ID,
			ConnectionID:      connID,
			Start:             start,
			End:               end,
			ConnectionType:    connType,
			MeasuredMidHeight: midHeight,
			SpanLengthFt:      SpanLengthFeet(start, end),
			JobName:           job.Name,
		})
		return true
	})

	return out, stats
}

func endpoint(index NodeIndex, id gjson.Result) (Coord, bool) {
	if id.Type != gjson.String || id.Str == "" {
		return Coord{}, false
	}
	c, ok := index[id.Str]
	return c, ok
}

// midspanOwner picks the record whose photos describe the middle of the span:
// the midpoint section when there is one with a main photo, otherwise the
// first section (in payload order) with a main photo, otherwise the
// connection itself.
func midspanOwner(conn gjson.Result) gjson.Result {
	sections := conn.Get("sections")
	if mid := sections.Get(midpointSection); mid.Exists() {
		if _, ok := MainPhoto(mid); ok {
			return mid
		}
	}

	owner := conn
	sections.ForEach(func(_, section gjson.Result) bool {
		if _, ok := MainPhoto(section); ok {
			owner = section
			return false
		}
		return true
	})
	return owner
}

func skipConnection(jobID, connID, reason string) {
	zap.L().Debug("extract: skipping connection",
		zap.String("job_id", jobID),
		zap.String("connection_id", connID),
		zap.String("reason", reason),
	)
}
