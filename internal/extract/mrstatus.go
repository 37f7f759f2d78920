package extract

import (
	"strconv"
	"strings"

	"github.com/tidwall/gjson"
)

// Make-ready status values.
const (
	MRStatusPCORequired = "PCO Required"
	MRStatusNoMR        = "No MR"
	MRStatusCommMR      = "Comm MR"
	MRStatusElectricMR  = "Electric MR"
	MRStatusUnknown     = "Unknown"
)

// Auto-calculated make-ready states.
const (
	mrStateNoMR     = "No MR"
	mrStateResolved = "MR Resolved"
)

// DeriveMRStatus maps a pole's attributes to its make-ready status:
//
//	proposed pole spec present           -> PCO Required
//	state "No MR",       no warning      -> No MR
//	state "MR Resolved", no warning      -> Comm MR
//	state "MR Resolved", warning present -> Electric MR
//	anything else                        -> Unknown
func DeriveMRStatus(attrs gjson.Result) string {
	if ProposedPoleSpec.Present(attrs) {
		return MRStatusPCORequired
	}

	state := MRState.String(attrs, "")
	warning := Warning.Truthy(attrs)

	switch {
	case strings.EqualFold(state, mrStateNoMR) && !warning:
		return MRStatusNoMR
	case strings.EqualFold(state, mrStateResolved) && !warning:
		return MRStatusCommMR
	case strings.EqualFold(state, mrStateResolved) && warning:
		return MRStatusElectricMR
	default:
		return MRStatusUnknown
	}
}

// FieldCompleted maps the field-completion flag: 1 is "yes", 2 is "no",
// anything else (including absence) is "Unknown".
func FieldCompleted(attrs gjson.Result) string {
	v, ok := FieldCompletedFlag.Value(attrs)
	if !ok {
		return "Unknown"
	}

	var code int64
	switch v.Type {
	case gjson.Number:
		if v.Num != float64(int64(v.Num)) {
			return "Unknown"
		}
		code = int64(v.Num)
	case gjson.String:
		n, err := strconv.ParseInt(strings.TrimSpace(v.Str), 10, 64)
		if err != nil {
			return "Unknown"
		}
		code = n
	default:
		return "Unknown"
	}

	switch code {
	case 1:
		return "yes"
	case 2:
		return "no"
	default:
		return "Unknown"
	}
}
