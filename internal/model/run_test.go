package model

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blewis-maker/Katapult-Automation/internal/extract"
)

func TestRunStatusValues(t *testing.T) {
	t.Parallel()

	tests := []struct {
		status RunStatus
		want   string
	}{
		{RunStatusRunning, "running"},
		{RunStatusExporting, "exporting"},
		{RunStatusComplete, "complete"},
		{RunStatusFailed, "failed"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, string(tt.status))
		})
	}
}

func TestJobOutcomeValues(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "ok", string(JobOutcomeOK))
	assert.Equal(t, "abandoned", string(JobOutcomeAbandoned))
	assert.Equal(t, "api", string(RunSourceAPI))
	assert.Equal(t, "replay", string(RunSourceReplay))
}

func TestJobRun_JSONOmitsEmptyError(t *testing.T) {
	t.Parallel()

	jr := JobRun{RunID: "r1", JobID: "j1", Outcome: JobOutcomeOK, Poles: 3, Stats: extract.Stats{NodesSeen: 4}}
	data, err := json.Marshal(jr)
	require.NoError(t, err)
	assert.NotContains(t, string(data), `"error"`)
	assert.Contains(t, string(data), `"nodes_seen":4`)

	jr.Error = "timeout"
	data, err = json.Marshal(jr)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"error":"timeout"`)
}
