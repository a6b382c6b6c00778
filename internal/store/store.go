package store

import (
	"context"
	"sort"

	"github.com/rotisserie/eris"

	"github.com/karuna-health/assess-portal/internal/config"
	"github.com/karuna-health/assess-portal/internal/model"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = eris.New("store: not found")

// ErrDuplicateFacility is returned when a facility already has a submission
// for the same assessment date.
var ErrDuplicateFacility = eris.New("store: facility already assessed on this date")

// SubmissionFilter specifies criteria for listing submissions.
type SubmissionFilter struct {
	District string `json:"district,omitempty"`
	Limit    int    `json:"limit,omitempty"`
	Offset   int    `json:"offset,omitempty"`
}

// Store defines the persistence interface for the assessment portal.
type Store interface {
	// Submissions
	CreateSubmission(ctx context.Context, sub *model.Submission) error
	GetSubmission(ctx context.Context, id string) (*model.Submission, error)
	ListSubmissions(ctx context.Context, filter SubmissionFilter) ([]model.Submission, error)

	// Participants
	CreateParticipant(ctx context.Context, p *model.Participant) error
	ListParticipants(ctx context.Context, district string) ([]model.Participant, error)

	// Audit trail
	LogActivity(ctx context.Context, a *model.Activity) error
	RecentActivity(ctx context.Context, limit int) ([]model.Activity, error)

	// Dashboard aggregates
	Stats(ctx context.Context) (*model.DashboardStats, error)
	DistrictProgress(ctx context.Context) ([]model.DistrictProgress, error)
	CategoryPerformance(ctx context.Context, target float64) ([]model.CategoryPerformance, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}

// Open constructs the store selected by the configuration.
func Open(ctx context.Context, cfg config.StoreConfig) (Store, error) {
	switch cfg.Driver {
	case "sqlite", "":
		return NewSQLite(cfg.Path)
	case "postgres":
		return NewPostgres(ctx, cfg.DatabaseURL)
	default:
		return nil, eris.Errorf("store: unknown driver %q", cfg.Driver)
	}
}

// averageCategories folds per-submission category percentages into one
// average per category. Shared by both backends, which store the
// percentages as a JSON document per submission.
func averageCategories(percents []map[string]float64, target float64) []model.CategoryPerformance {
	sums := make(map[string]float64)
	counts := make(map[string]int)
	for _, m := range percents {
		for id, v := range m {
			sums[id] += v
			counts[id]++
		}
	}

	order := make([]string, 0, len(sums))
	for id := range sums {
		order = append(order, id)
	}
	sort.Strings(order)

	perf := make([]model.CategoryPerformance, 0, len(order))
	for _, id := range order {
		perf = append(perf, model.CategoryPerformance{
			CategoryID: id,
			Average:    sums[id] / float64(counts[id]),
			Target:     target,
		})
	}
	return perf
}
