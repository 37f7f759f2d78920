package pipeline

import (
	"go.uber.org/zap"

	"github.com/blewis-maker/Katapult-Automation/pkg/katapult"
)

// SelectJobs narrows the job list to the requested ids, keeping job-list
// order, and then applies limit (0 means no limit). Requested ids missing
// from the list are still selected, after the listed ones, so that a job can
// be fetched directly by id.
func SelectJobs(jobs []katapult.Job, ids []string, limit int) []katapult.Job {
	selected := jobs
	if len(ids) > 0 {
		want := make(map[string]bool, len(ids))
		for _, id := range ids {
			want[id] = true
		}

		selected = make([]katapult.Job, 0, len(ids))
		for _, j := range jobs {
			if want[j.ID] {
				selected = append(selected, j)
				delete(want, j.ID)
			}
		}
		for _, id := range ids {
			if want[id] {
				zap.L().Warn("pipeline: requested job not in job list", zap.String("job_id", id))
				selected = append(selected, katapult.Job{ID: id})
				delete(want, id)
			}
		}
	}

	if limit > 0 && len(selected) > limit {
		selected = selected[:limit]
	}
	return selected
}
