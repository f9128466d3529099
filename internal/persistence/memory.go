package persistence

import (
	"context"
	"sort"
	"sync"
	"time"
)

type memoryChartRepo struct {
	mu     sync.RWMutex
	charts map[string]Chart
	now    func() time.Time
}

// NewMemoryChartRepo returns a process-local ChartRepo.
func NewMemoryChartRepo() ChartRepo {
	return &memoryChartRepo{charts: make(map[string]Chart), now: time.Now}
}

func (r *memoryChartRepo) Upsert(ctx context.Context, chart *Chart) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now().UTC()
	if prev, ok := r.charts[chart.ID]; ok {
		chart.CreatedAt = prev.CreatedAt
	} else {
		chart.CreatedAt = now
	}
	chart.UpdatedAt = now
	r.charts[chart.ID] = *chart
	return nil
}

func (r *memoryChartRepo) Get(ctx context.Context, id string) (*Chart, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	c, ok := r.charts[id]
	if !ok {
		return nil, ErrChartNotFound
	}
	return &c, nil
}

func (r *memoryChartRepo) List(ctx context.Context, limit int) ([]Chart, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	out := make([]Chart, 0, len(r.charts))
	for _, c := range r.charts {
		out = append(out, c)
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if !out[i].UpdatedAt.Equal(out[j].UpdatedAt) {
			return out[i].UpdatedAt.After(out[j].UpdatedAt)
		}
		return out[i].ID < out[j].ID
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
