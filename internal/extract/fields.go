package extract

import (
	"github.com/blewis-maker/Katapult-Automation/internal/attr"
)

// Known encodings of each logical attribute, most authoritative first.
// "button_added" holds values picked in the field app, "auto_button" and
// "auto_calced" are computed by Katapult, "-Imported" comes from bulk imports.
var (
	NodeType = attr.NewField("node_type",
		attr.P("node_type", "button_added"),
		attr.P("node_type", "-Imported"),
		attr.P("node_type", attr.Any),
	)
	PoleTag = attr.NewField("pole_tag",
		attr.P("pole_tag", attr.Any, "tagtext"),
		attr.P("pole_tag", "tagtext"),
		attr.P("pole_tag", attr.Any),
	)
	SCID = attr.NewField("scid",
		attr.P("scid", "auto_button"),
		attr.P("scid", "button_added"),
		attr.P("scid", attr.Any),
	)
	Company = attr.NewField("company",
		attr.P("pole_tag", attr.Any, "company"),
		attr.P("company", attr.Any),
		attr.P("pole_owner", attr.Any),
	)
	FieldCompletedFlag = attr.NewField("field_completed",
		attr.P("field_completed", "value"),
		attr.P("field_completed", "button_added"),
		attr.P("field_completed", attr.Any),
	)
	PoleClass        = attr.NewField("pole_class", attr.P("pole_class", attr.Any))
	PoleHeight       = attr.NewField("pole_height", attr.P("pole_height", attr.Any))
	PoleSpec         = attr.NewField("pole_spec", attr.P("pole_spec", attr.Any), attr.P("existing_pole_spec", attr.Any))
	ProposedPoleSpec = attr.NewField("proposed_pole_spec", attr.P("proposed_pole_spec", attr.Any))
	MRState          = attr.NewField("mr_state", attr.P("mr_state", "auto_calced"), attr.P("mr_state", attr.Any))
	Warning          = attr.NewField("warning", attr.P("warning", attr.Any), attr.P("mr_warning", attr.Any))
	MRNote           = attr.NewField("internal_note", attr.P("internal_note", "button_added"), attr.P("internal_note", attr.Any))
	AnchorSpec       = attr.NewField("anchor_spec", attr.P("anchor_spec", "button_added"), attr.P("anchor_spec", attr.Any))
	ConnectionType   = attr.NewField("connection_type", attr.P("connection_type", "button_added"), attr.P("connection_type", attr.Any))
	JobStatus        = attr.NewField("job_status", attr.P("Job_Status"), attr.P("job_status"))
)
