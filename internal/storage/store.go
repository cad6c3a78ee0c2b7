package storage

import (
	"context"
	"errors"
	"sort"

	"structsearch/internal/model"
)

var ErrInvalidRun = errors.New("invalid run record")

// Store persists finished selection runs.
type Store interface {
	Init(ctx context.Context) error
	SaveRun(ctx context.Context, run model.RunRecord) error
	GetRun(ctx context.Context, id string) (model.RunRecord, bool, error)
	// ListRuns returns the most recent runs first. A limit <= 0 returns all.
	ListRuns(ctx context.Context, limit int) ([]model.RunRecord, error)
}

func validateRun(run model.RunRecord) error {
	if run.ID == "" {
		return errors.Join(ErrInvalidRun, errors.New("run id is required"))
	}
	switch run.Kind {
	case model.RunKindInputs:
		if run.Inputs == nil {
			return errors.Join(ErrInvalidRun, errors.New("inputs run without results"))
		}
	case model.RunKindOrder:
		if run.Order == nil {
			return errors.Join(ErrInvalidRun, errors.New("order run without results"))
		}
	default:
		return errors.Join(ErrInvalidRun, errors.New("unknown run kind "+run.Kind))
	}
	return nil
}

// sortRuns orders runs newest first, breaking ties by id.
func sortRuns(runs []model.RunRecord, limit int) []model.RunRecord {
	sort.SliceStable(runs, func(i, j int) bool {
		if runs[i].CreatedAtUTC != runs[j].CreatedAtUTC {
			return runs[i].CreatedAtUTC > runs[j].CreatedAtUTC
		}
		return runs[i].ID < runs[j].ID
	})
	if limit > 0 && len(runs) > limit {
		runs = runs[:limit]
	}
	return runs
}
