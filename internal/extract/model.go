package extract

// Coord is a WGS84 position.
type Coord struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// PoleRecord is one classified pole.
type PoleRecord struct {
	JobID          string  `json:"job_id"`
	NodeID         string  `json:"node_id"`
	Longitude      float64 `json:"longitude"`
	Latitude       float64 `json:"latitude"`
	Tag            string  `json:"tag"`
	SCID           string  `json:"scid"`
	MRStatus       string  `json:"mr_status"`
	MRNote         string  `json:"mr_note"`
	Company        string  `json:"company"`
	FieldCompleted string  `json:"field_completed"`
	PoleClass      string  `json:"pole_class"`
	PoleHeight     string  `json:"pole_height"`
	PoleSpec       string  `json:"pole_spec"`
	MeasuredHeight string  `json:"measured_height_display"`
	JobStatus      string  `json:"job_status"`
	JobName        string  `json:"job_name"`
}

// AnchorRecord is one new anchor.
type AnchorRecord struct {
	JobID      string  `json:"job_id"`
	NodeID     string  `json:"node_id"`
	Longitude  float64 `json:"longitude"`
	Latitude   float64 `json:"latitude"`
	AnchorSpec string  `json:"anchor_spec"`
	JobName    string  `json:"job_name"`
}

// ConnectionRecord is one physical span between two located nodes.
type ConnectionRecord struct {
	JobID             string  `json:"job_id"`
	ConnectionID      string  `json:"connection_id"`
	Start             Coord   `json:"start_coords"`
	End               Coord   `json:"end_coords"`
	ConnectionType    string  `json:"connection_type"`
	MeasuredMidHeight string  `json:"measured_mid_height_display"`
	SpanLengthFt      float64 `json:"span_length_ft"`
	JobName           string  `json:"job_name"`
}

// Stats counts what happened to each record of a job.
type Stats struct {
	NodesSeen          int `json:"nodes_seen"`
	References         int `json:"references"`
	Unrelated          int `json:"unrelated"`
	NodesSkipped       int `json:"nodes_skipped"`
	ConnectionsSeen    int `json:"connections_seen"`
	ReferenceLinks     int `json:"reference_links"`
	ConnectionsSkipped int `json:"connections_skipped"`
}

// JobResult is the normalized output of one job payload.
type JobResult struct {
	JobID          string             `json:"job_id"`
	JobName        string             `json:"job_name"`
	MetadataStatus string             `json:"metadata_status"`
	Poles          []PoleRecord       `json:"poles"`
	Anchors        []AnchorRecord     `json:"anchors"`
	Connections    []ConnectionRecord `json:"connections"`
	Stats          Stats              `json:"stats"`
}
