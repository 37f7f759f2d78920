package aggregate

import (
	"strconv"

	"github.com/twpayne/go-geom"

	"github.com/blewis-maker/Katapult-Automation/internal/extract"
)

// SRID of every geometry produced here (WGS84).
const SRID = 4326

// Layer names, also used as output file stems.
const (
	LayerPoles       = "master_poles"
	LayerAnchors     = "master_anchors"
	LayerConnections = "master_connections"
)

// Geometry types of a layer, named as in GeoJSON.
const (
	GeomPoint      = "Point"
	GeomLineString = "LineString"
)

// ColumnKind is the storage type of a column.
type ColumnKind int

const (
	KindString ColumnKind = iota
	KindFloat
)

// Column describes one attribute. Short is the DBF-safe name (at most 10
// characters); Size and Precision are the DBF width and decimal places.
type Column struct {
	Name      string
	Short     string
	Kind      ColumnKind
	Size      uint8
	Precision uint8
}

// Feature is one record as a geometry plus values aligned with its layer's
// columns.
type Feature struct {
	Geometry geom.T
	Values   []any
}

// Layer is one master collection rendered as flat features.
type Layer struct {
	Name     string
	GeomType string
	Columns  []Column
	Features []Feature
}

// Record returns feature i as a flat field-to-value mapping keyed by the long
// column names.
func (l Layer) Record(i int) map[string]any {
	f := l.Features[i]
	m := make(map[string]any, len(l.Columns))
	for j, c := range l.Columns {
		m[c.Name] = f.Values[j]
	}
	return m
}

// Records returns every feature as a flat mapping.
func (l Layer) Records() []map[string]any {
	out := make([]map[string]any, len(l.Features))
	for i := range l.Features {
		out[i] = l.Record(i)
	}
	return out
}

// FormatValue renders a column value as text.
func FormatValue(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	default:
		return ""
	}
}

func str(name, short string, size uint8) Column {
	return Column{Name: name, Short: short, Kind: KindString, Size: size}
}

func num(name, short string, precision uint8) Column {
	return Column{Name: name, Short: short, Kind: KindFloat, Size: 18, Precision: precision}
}

// PoleColumns are the pole layer's attributes.
var PoleColumns = []Column{
	num("longitude", "Longitude", 8),
	num("latitude", "Latitude", 8),
	str("tag", "Tag", 50),
	str("scid", "SCID", 50),
	str("mr_status", "MR_Status", 30),
	str("mr_note", "MR_Note", 254),
	str("company", "Company", 100),
	str("field_completed", "Field_Comp", 10),
	str("pole_class", "Pole_Class", 20),
	str("pole_height", "Pole_Hght", 20),
	str("pole_spec", "Pole_Spec", 50),
	str("measured_height_display", "Meas_Hght", 20),
	str("job_status", "Job_Status", 50),
	str("job_name", "Job_Name", 100),
	str("job_id", "Job_ID", 50),
	str("node_id", "Node_ID", 50),
}

// AnchorColumns are the anchor layer's attributes.
var AnchorColumns = []Column{
	num("longitude", "Longitude", 8),
	num("latitude", "Latitude", 8),
	str("anchor_spec", "Anch_Spec", 100),
	str("job_name", "Job_Name", 100),
	str("job_id", "Job_ID", 50),
	str("node_id", "Node_ID", 50),
}

// ConnectionColumns are the connection layer's attributes.
var ConnectionColumns = []Column{
	num("start_latitude", "Start_Lat", 8),
	num("start_longitude", "Start_Lon", 8),
	num("end_latitude", "End_Lat", 8),
	num("end_longitude", "End_Lon", 8),
	str("connection_type", "Conn_Type", 50),
	str("measured_mid_height_display", "Mid_Hght", 20),
	num("span_length_ft", "Span_Ft", 1),
	str("job_name", "Job_Name", 100),
	str("job_id", "Job_ID", 50),
	str("connection_id", "Conn_ID", 50),
}

// Point builds a WGS84 point geometry (x = longitude, y = latitude).
func Point(c extract.Coord) *geom.Point {
	return geom.NewPointFlat(geom.XY, []float64{c.Longitude, c.Latitude}).SetSRID(SRID)
}

// Span builds the two-vertex line between a connection's endpoints.
func Span(a, b extract.Coord) *geom.LineString {
	return geom.NewLineStringFlat(geom.XY, []float64{a.Longitude, a.Latitude, b.Longitude, b.Latitude}).SetSRID(SRID)
}

// Layers renders the collections as the pole, anchor, and connection layers,
// in that order.
func (c Collections) Layers() []Layer {
	return []Layer{c.PoleLayer(), c.AnchorLayer(), c.ConnectionLayer()}
}

// PoleLayer renders poles as point features.
func (c Collections) PoleLayer() Layer {
	l := Layer{Name: LayerPoles, GeomType: GeomPoint, Columns: PoleColumns, Features: make([]Feature, 0, len(c.Poles))}
	for _, p := range c.Poles {
		l.Features = append(l.Features, Feature{
			Geometry: Point(extract.Coord{Latitude: p.Latitude, Longitude: p.Longitude}),
			Values: []any{
				p.Longitude, p.Latitude, p.Tag, p.SCID, p.MRStatus, p.MRNote, p.Company,
				p.FieldCompleted, p.PoleClass, p.PoleHeight, p.PoleSpec, p.MeasuredHeight,
				p.JobStatus, p.JobName, p.JobID, p.NodeID,
			},
		})
	}
	return l
}

// AnchorLayer renders anchors as point features.
func (c Collections) AnchorLayer() Layer {
	l := Layer{Name: LayerAnchors, GeomType: GeomPoint, Columns: AnchorColumns, Features: make([]Feature, 0, len(c.Anchors))}
	for _, a := range c.Anchors {
		l.Features = append(l.Features, Feature{
			Geometry: Point(extract.Coord{Latitude: a.Latitude, Longitude: a.Longitude}),
			Values:   []any{a.Longitude, a.Latitude, a.AnchorSpec, a.JobName, a.JobID, a.NodeID},
		})
	}
	return l
}

// ConnectionLayer renders connections as line features.
func (c Collections) ConnectionLayer() Layer {
	l := Layer{Name: LayerConnections, GeomType: GeomLineString, Columns: ConnectionColumns, Features: make([]Feature, 0, len(c.Connections))}
	for _, cn := range c.Connections {
		l.Features = append(l.Features, Feature{
			Geometry: Span(cn.Start, cn.End),
			Values: []any{
				cn.Start.Latitude, cn.Start.Longitude, cn.End.Latitude, cn.End.Longitude,
				cn.ConnectionType, cn.MeasuredMidHeight, cn.SpanLengthFt,
				cn.JobName, cn.JobID, cn.ConnectionID,
			},
		})
	}
	return l
}
