package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/tidwall/gjson"
)

var testCriteria = DefaultHeightCriteria("Deeply Digital", "Fiber Optic Com")

const heightTraces = `{
	"tFiber":  {"company": "Deeply Digital", "proposed": true,  "_trace_type": "cable",    "cable_type": "Fiber Optic Com"},
	"tFiber2": {"company": "deeply digital ", "proposed": true,  "_trace_type": "cable",    "cable_type": "Fiber Optic Com"},
	"tExist":  {"company": "Deeply Digital", "proposed": false, "_trace_type": "cable",    "cable_type": "Fiber Optic Com"},
	"tPower":  {"company": "Power Co",       "proposed": true,  "_trace_type": "cable",    "cable_type": "Fiber Optic Com"},
	"tCopper": {"company": "Deeply Digital", "proposed": true,  "_trace_type": "cable",    "cable_type": "Copper"},
	"tGuy":    {"company": "Deeply Digital", "proposed": true,  "_trace_type": "down_guy"}
}`

func TestFormatHeight(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   int
		want string
	}{
		{170, `14' 2"`},
		{0, `0' 0"`},
		{134, `11' 2"`},
		{11, `0' 11"`},
		{12, `1' 0"`},
		{300, `25' 0"`},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, FormatHeight(tt.in))
	}
}

func TestMainPhoto(t *testing.T) {
	t.Parallel()

	id, ok := MainPhoto(gjson.Parse(`{"photos": {"p1": {"association": true}, "p2": {"association": "main"}, "p3": {"association": "main"}}}`))
	assert.True(t, ok)
	assert.Equal(t, "p2", id, "first main photo in payload order")

	id, ok = MainPhoto(gjson.Parse(`{"photos": {"p9": "main"}}`))
	assert.True(t, ok)
	assert.Equal(t, "p9", id)

	_, ok = MainPhoto(gjson.Parse(`{"photos": {"p1": {"association": true}}}`))
	assert.False(t, ok)

	_, ok = MainPhoto(gjson.Parse(`{}`))
	assert.False(t, ok)
}

func TestResolveHeight(t *testing.T) {
	t.Parallel()

	owner := gjson.Parse(`{"photos": {"ph1": {"association": "main"}}}`)
	traces := gjson.Parse(heightTraces)

	tests := []struct {
		name   string
		photos string
		want   string
	}{
		{
			name:   "wire match",
			photos: `{"ph1": {"photofirst_data": {"wire": {"w1": {"_trace": "tFiber", "_measured_height": 170}}}}}`,
			want:   `14' 2"`,
		},
		{
			name:   "company compared case-insensitively",
			photos: `{"ph1": {"photofirst_data": {"wire": {"w1": {"_trace": "tFiber2", "_measured_height": 134}}}}}`,
			want:   `11' 2"`,
		},
		{
			name: "first match by payload order wins",
			photos: `{"ph1": {"photofirst_data": {"wire": {
				"wB": {"_trace": "tFiber", "_measured_height": 200},
				"wA": {"_trace": "tFiber", "_measured_height": 100}
			}}}}`,
			want: `16' 8"`,
		},
		{
			name: "non-matching wires skipped",
			photos: `{"ph1": {"photofirst_data": {"wire": {
				"w1": {"_trace": "tExist", "_measured_height": 1},
				"w2": {"_trace": "tPower", "_measured_height": 2},
				"w3": {"_trace": "tCopper", "_measured_height": 3},
				"w4": {"_trace": "missing", "_measured_height": 4},
				"w5": {"_measured_height": 5},
				"w6": {"_trace": "tFiber", "_measured_height": 240}
			}}}}`,
			want: `20' 0"`,
		},
		{
			name: "guying only when no wire matches",
			photos: `{"ph1": {"photofirst_data": {
				"wire": {"w1": {"_trace": "tPower", "_measured_height": 1}},
				"guying": {"g1": {"_trace": "tGuy", "_measured_height": 250}}
			}}}`,
			want: `20' 10"`,
		},
		{
			name: "wire match preferred over guying",
			photos: `{"ph1": {"photofirst_data": {
				"guying": {"g1": {"_trace": "tGuy", "_measured_height": 250}},
				"wire": {"w1": {"_trace": "tFiber", "_measured_height": 170}}
			}}}`,
			want: `14' 2"`,
		},
		{
			name:   "height beyond int32 range is no height",
			photos: `{"ph1": {"photofirst_data": {"wire": {"w1": {"_trace": "tFiber", "_measured_height": 1e19}}}}}`,
			want:   "",
		},
		{
			name:   "large negative height is no height",
			photos: `{"ph1": {"photofirst_data": {"wire": {"w1": {"_trace": "tFiber", "_measured_height": -3e9}}}}}`,
			want:   "",
		},
		{
			name: "out-of-range wire still ends the search",
			photos: `{"ph1": {"photofirst_data": {
				"wire": {"w1": {"_trace": "tFiber", "_measured_height": 1e19}},
				"guying": {"g1": {"_trace": "tGuy", "_measured_height": 250}}
			}}}`,
			want: "",
		},
		{
			name:   "guy criteria ignore wire traces",
			photos: `{"ph1": {"photofirst_data": {"guying": {"g1": {"_trace": "tFiber", "_measured_height": 250}}}}}`,
			want:   "",
		},
		{
			name:   "matched entry without height is empty",
			photos: `{"ph1": {"photofirst_data": {"wire": {"w1": {"_trace": "tFiber"}, "w2": {"_trace": "tFiber", "_measured_height": 99}}}}}`,
			want:   "",
		},
		{
			name:   "fractional inches truncate",
			photos: `{"ph1": {"photofirst_data": {"wire": {"w1": {"_trace": "tFiber", "_measured_height": 170.9}}}}}`,
			want:   `14' 2"`,
		},
		{
			name:   "zero is a real height",
			photos: `{"ph1": {"photofirst_data": {"wire": {"w1": {"_trace": "tFiber", "_measured_height": 0}}}}}`,
			want:   `0' 0"`,
		},
		{
			name:   "main photo missing from collection",
			photos: `{"other": {}}`,
			want:   "",
		},
		{
			name:   "no photofirst data",
			photos: `{"ph1": {}}`,
			want:   "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, ResolveHeight(owner, gjson.Parse(tt.photos), traces, testCriteria))
		})
	}
}

func TestResolveHeight_NoMainPhoto(t *testing.T) {
	t.Parallel()

	photos := gjson.Parse(`{"ph1": {"photofirst_data": {"wire": {"w1": {"_trace": "tFiber", "_measured_height": 170}}}}}`)
	owner := gjson.Parse(`{"photos": {"ph1": {"association": true}}}`)

	assert.Equal(t, "", ResolveHeight(owner, photos, gjson.Parse(heightTraces), testCriteria))
	_, ok := MeasuredHeight(owner, photos, gjson.Parse(heightTraces), testCriteria)
	assert.False(t, ok)
}

func TestTraceCriteria_EmptyCableTypeMatchesAny(t *testing.T) {
	t.Parallel()

	c := TraceCriteria{Company: "X", Proposed: true, TraceType: TraceTypeCable}
	assert.True(t, c.Matches(gjson.Parse(`{"company": "X", "proposed": true, "_trace_type": "cable", "cable_type": "Copper"}`)))
	assert.False(t, c.Matches(gjson.Parse(`{"company": "X", "_trace_type": "cable"}`)), "proposed must be set")
	assert.False(t, c.Matches(gjson.Parse(`"tFiber"`)))
}
