package pipeline

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/blewis-maker/Katapult-Automation/internal/aggregate"
	"github.com/blewis-maker/Katapult-Automation/internal/config"
	"github.com/blewis-maker/Katapult-Automation/internal/model"
	"github.com/blewis-maker/Katapult-Automation/internal/resilience"
	"github.com/blewis-maker/Katapult-Automation/internal/store"
	"github.com/blewis-maker/Katapult-Automation/pkg/katapult"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// fakeClient serves canned payloads and failures by job id.
type fakeClient struct {
	jobs     []katapult.Job
	listErr  error
	payloads map[string]string
	errs     map[string]error
	delay    map[string]time.Duration

	mu       sync.Mutex
	fetched  []string
	inFlight atomic.Int32
	maxSeen  atomic.Int32
}

func (f *fakeClient) ListJobs(_ context.Context) ([]katapult.Job, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.jobs, nil
}

func (f *fakeClient) GetJob(_ context.Context, jobID string) (*katapult.JobData, error) {
	n := f.inFlight.Add(1)
	defer f.inFlight.Add(-1)
	for {
		m := f.maxSeen.Load()
		if n <= m || f.maxSeen.CompareAndSwap(m, n) {
			break
		}
	}

	f.mu.Lock()
	f.fetched = append(f.fetched, jobID)
	f.mu.Unlock()

	if d := f.delay[jobID]; d > 0 {
		time.Sleep(d)
	}
	if err := f.errs[jobID]; err != nil {
		return nil, err
	}
	body, ok := f.payloads[jobID]
	if !ok {
		body = `{}`
	}
	return katapult.ParseJobData([]byte(body)), nil
}

func poleJob(nodeID string, lat float64) string {
	return `{"nodes": {"` + nodeID + `": {"latitude": ` + formatFloat(lat) + `, "longitude": -105, "attributes": {"node_type": {"button_added": "pole"}}}}}`
}

func formatFloat(f float64) string {
	return aggregate.FormatValue(f)
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		Extract: config.ExtractConfig{
			Concurrency: 1,
			Height:      config.HeightConfig{Company: "Deeply Digital", CableType: "Fiber Optic Com"},
		},
		Export: config.ExportConfig{Dir: t.TempDir(), Formats: []string{config.FormatShapefile}},
		Store:  config.StoreConfig{ArchivePayloads: true},
	}
}

func newTestStore(t *testing.T) *store.SQLiteStore {
	t.Helper()
	st, err := store.NewSQLite(filepath.Join(t.TempDir(), "runs.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() }) //nolint:errcheck
	require.NoError(t, st.Migrate(context.Background()))
	return st
}

func threeJobClient() *fakeClient {
	return &fakeClient{
		jobs: []katapult.Job{
			{ID: "j1", Name: "Alpha", Status: "Active"},
			{ID: "j2", Name: "Bravo", Status: "Active"},
			{ID: "j3", Name: "Charlie", Status: ""},
		},
		payloads: map[string]string{
			"j1": poleJob("-Na", 40.0),
			"j2": poleJob("-Nb", 41.0),
			"j3": `{"metadata": {"Job_Status": "Field Complete"}, "nodes": {"-Nc": {"latitude": 42, "longitude": -105, "attributes": {"node_type": {"button_added": "pole"}}}}}`,
		},
	}
}

func TestRun_AggregatesInJobOrder(t *testing.T) {
	t.Parallel()

	client := threeJobClient()
	client.delay = map[string]time.Duration{"j1": 30 * time.Millisecond}
	cfg := testConfig(t)
	cfg.Extract.Concurrency = 3

	res, err := New(cfg, client, nil).Run(context.Background())
	require.NoError(t, err)

	require.Len(t, res.Collections.Poles, 3)
	assert.Equal(t, "j1", res.Collections.Poles[0].JobID, "aggregation follows job-list order, not completion order")
	assert.Equal(t, "j2", res.Collections.Poles[1].JobID)
	assert.Equal(t, "j3", res.Collections.Poles[2].JobID)
	assert.Equal(t, "Alpha", res.Collections.Poles[0].JobName)
	assert.Equal(t, "Active", res.Collections.Poles[0].JobStatus)
	assert.Equal(t, "Field Complete", res.Collections.Poles[2].JobStatus, "metadata status fills a blank list status")
	assert.Equal(t, 0, res.Abandoned())
	assert.Empty(t, res.RunID, "no store, no run id")

	require.Len(t, res.Files, 3)
	_, err = os.Stat(filepath.Join(cfg.Export.Dir, "master_poles.shp"))
	assert.NoError(t, err)
}

func TestRun_SequentialByDefault(t *testing.T) {
	t.Parallel()

	client := threeJobClient()
	client.delay = map[string]time.Duration{"j1": 5 * time.Millisecond, "j2": 5 * time.Millisecond}

	_, err := New(testConfig(t), client, nil).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int32(1), client.maxSeen.Load())
	assert.Equal(t, []string{"j1", "j2", "j3"}, client.fetched)
}

func TestRun_ConcurrencyBounded(t *testing.T) {
	t.Parallel()

	client := &fakeClient{delay: map[string]time.Duration{}}
	for i := 0; i < 8; i++ {
		id := string(rune('a' + i))
		client.jobs = append(client.jobs, katapult.Job{ID: id})
		client.delay[id] = 10 * time.Millisecond
	}
	cfg := testConfig(t)
	cfg.Extract.Concurrency = 2

	_, err := New(cfg, client, nil).Run(context.Background())
	require.NoError(t, err)
	assert.LessOrEqual(t, client.maxSeen.Load(), int32(2))
	assert.Len(t, client.fetched, 8)
}

func TestRun_AbandonsFailedJobAndContinues(t *testing.T) {
	t.Parallel()

	client := threeJobClient()
	client.errs = map[string]error{"j2": resilience.NewRateLimitError(eris.New("katapult: RATE LIMIT EXCEEDED"))}
	st := newTestStore(t)

	res, err := New(testConfig(t), client, st).Run(context.Background())
	require.NoError(t, err)

	require.Len(t, res.Collections.Poles, 2)
	assert.Equal(t, "j1", res.Collections.Poles[0].JobID)
	assert.Equal(t, "j3", res.Collections.Poles[1].JobID)
	assert.Equal(t, 1, res.Abandoned())

	ctx := context.Background()
	jobs, err := st.ListJobResults(ctx, res.RunID)
	require.NoError(t, err)
	require.Len(t, jobs, 3)
	assert.Equal(t, model.JobOutcomeOK, jobs[0].Outcome)
	assert.Equal(t, model.JobOutcomeAbandoned, jobs[1].Outcome)
	assert.Contains(t, jobs[1].Error, "RATE LIMIT")
	assert.Equal(t, 1, jobs[2].Poles)

	run, err := st.GetRun(ctx, res.RunID)
	require.NoError(t, err)
	assert.Equal(t, model.RunStatusComplete, run.Status)
	require.NotNil(t, run.Result)
	assert.Equal(t, 3, run.Result.JobsTotal)
	assert.Equal(t, 2, run.Result.JobsOK)
	assert.Equal(t, 1, run.Result.JobsAbandoned)
	assert.Equal(t, 2, run.Result.Poles)

	feats, err := st.LoadFeatures(ctx, res.RunID, aggregate.LayerPoles)
	require.NoError(t, err)
	assert.Len(t, feats, 2)
}

func TestRun_ListFailureFailsRun(t *testing.T) {
	t.Parallel()

	client := &fakeClient{listErr: eris.New("katapult: list_jobs: 401")}
	st := newTestStore(t)

	res, err := New(testConfig(t), client, st).Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "list jobs")

	run, err := st.GetRun(context.Background(), res.RunID)
	require.NoError(t, err)
	assert.Equal(t, model.RunStatusFailed, run.Status)
	require.NotNil(t, run.Result)
	assert.Contains(t, run.Result.Error, "401")
}

func TestRun_SelectsAndLimits(t *testing.T) {
	t.Parallel()

	client := threeJobClient()
	cfg := testConfig(t)
	cfg.Extract.JobIDs = []string{"j3", "j1"}
	cfg.Extract.Limit = 1

	res, err := New(cfg, client, nil).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"j1"}, client.fetched)
	require.Len(t, res.Jobs, 1)
	assert.Equal(t, "j1", res.Jobs[0].ID)
}

func TestRun_NilClient(t *testing.T) {
	t.Parallel()

	_, err := New(testConfig(t), nil, nil).Run(context.Background())
	assert.Error(t, err)
}

func TestReplay_ReproducesRun(t *testing.T) {
	t.Parallel()

	client := threeJobClient()
	st := newTestStore(t)
	cfg := testConfig(t)
	cfg.Export.Formats = nil

	first, err := New(cfg, client, st).Run(context.Background())
	require.NoError(t, err)

	replayed, err := New(cfg, nil, st).Replay(context.Background(), first.RunID)
	require.NoError(t, err)
	assert.NotEqual(t, first.RunID, replayed.RunID)
	if diff := cmp.Diff(first.Collections, replayed.Collections); diff != "" {
		t.Errorf("replayed collections differ (-first +replay):\n%s", diff)
	}
	assert.Equal(t, first.Jobs, replayed.Jobs)

	run, err := st.GetRun(context.Background(), replayed.RunID)
	require.NoError(t, err)
	assert.Equal(t, model.RunSourceReplay, run.Source)
	assert.Equal(t, first.RunID, run.ReplayOf)
}

func TestReplay_NoArchive(t *testing.T) {
	t.Parallel()

	st := newTestStore(t)
	_, err := New(testConfig(t), nil, st).Replay(context.Background(), "missing")
	assert.Error(t, err)

	_, err = New(testConfig(t), nil, nil).Replay(context.Background(), "missing")
	assert.Error(t, err)
}

func TestReplay_CorruptPayloadAbandoned(t *testing.T) {
	t.Parallel()

	st := newTestStore(t)
	ctx := context.Background()
	src, err := st.CreateRun(ctx, model.RunSourceAPI, "")
	require.NoError(t, err)
	require.NoError(t, st.ArchivePayload(ctx, src.ID, 0, katapult.Job{ID: "j1", Name: "A"}, []byte(poleJob("-Na", 40))))
	require.NoError(t, st.ArchivePayload(ctx, src.ID, 1, katapult.Job{ID: "j2", Name: "B"}, []byte(`{"nodes": `)))

	cfg := testConfig(t)
	cfg.Export.Formats = nil
	res, err := New(cfg, nil, st).Replay(ctx, src.ID)
	require.NoError(t, err)
	assert.Len(t, res.Collections.Poles, 1)
	assert.Equal(t, 1, res.Abandoned())
}

func TestSelectJobs(t *testing.T) {
	t.Parallel()

	jobs := []katapult.Job{{ID: "a"}, {ID: "b"}, {ID: "c"}}

	assert.Equal(t, jobs, SelectJobs(jobs, nil, 0))
	assert.Equal(t, jobs[:2], SelectJobs(jobs, nil, 2))
	assert.Equal(t, []katapult.Job{{ID: "a"}, {ID: "c"}}, SelectJobs(jobs, []string{"c", "a"}, 0))
	assert.Equal(t, []katapult.Job{{ID: "b"}, {ID: "z"}}, SelectJobs(jobs, []string{"z", "b", "z"}, 0))
	assert.Empty(t, SelectJobs(nil, nil, 5))
}
