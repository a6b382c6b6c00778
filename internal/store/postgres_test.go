package store

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/karuna-health/assess-portal/internal/model"
)

func newMockStore(t *testing.T) (*PostgresStore, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return NewPostgresWithPool(mock), mock
}

func TestPostgresMigrate(t *testing.T) {
	t.Parallel()

	s, mock := newMockStore(t)
	mock.ExpectExec("CREATE TABLE IF NOT EXISTS submissions").
		WillReturnResult(pgxmock.NewResult("CREATE", 0))

	require.NoError(t, s.Migrate(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresCreateParticipant(t *testing.T) {
	t.Parallel()

	s, mock := newMockStore(t)
	mock.ExpectExec("INSERT INTO participants").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	p := &model.Participant{
		Name: "Grace Auma", Cadre: "Midwife", DutyStation: "Kawolo",
		District: "Buikwe", MobileNumber: "0772123456", MobileMoneyName: "Grace Auma",
	}
	require.NoError(t, s.CreateParticipant(context.Background(), p))
	assert.NotEmpty(t, p.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresDuplicateSubmission(t *testing.T) {
	t.Parallel()

	s, mock := newMockStore(t)
	mock.ExpectExec("INSERT INTO submissions").
		WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "submissions_facility_name_assessment_date_key"})

	err := s.CreateSubmission(context.Background(), testSubmission("Kawolo General Hospital"))
	assert.ErrorIs(t, err, ErrDuplicateFacility)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresGetSubmissionNotFound(t *testing.T) {
	t.Parallel()

	s, mock := newMockStore(t)
	mock.ExpectQuery("SELECT (.+) FROM submissions").
		WithArgs("missing").
		WillReturnError(pgx.ErrNoRows)

	_, err := s.GetSubmission(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStats(t *testing.T) {
	t.Parallel()

	s, mock := newMockStore(t)
	mock.ExpectQuery("SELECT").
		WillReturnRows(pgxmock.NewRows([]string{"participants", "assessments", "facilities"}).
			AddRow(12, 5, 4))

	stats, err := s.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 12, stats.TotalParticipants)
	assert.Equal(t, 5, stats.TotalAssessments)
	assert.Equal(t, 4, stats.ActiveFacilities)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresDistrictProgress(t *testing.T) {
	t.Parallel()

	s, mock := newMockStore(t)
	mock.ExpectQuery("SELECT district").
		WillReturnRows(pgxmock.NewRows([]string{"district", "registrations", "assessments"}).
			AddRow("Buikwe", 3, 2).
			AddRow("Mukono", 1, 0))

	progress, err := s.DistrictProgress(context.Background())
	require.NoError(t, err)
	require.Len(t, progress, 2)
	assert.Equal(t, model.DistrictProgress{District: "Buikwe", Registrations: 3, Assessments: 2}, progress[0])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresCategoryPerformance(t *testing.T) {
	t.Parallel()

	s, mock := newMockStore(t)
	mock.ExpectQuery("SELECT category_percents FROM submissions").
		WillReturnRows(pgxmock.NewRows([]string{"category_percents"}).
			AddRow([]byte(`{"data_management": 100, "testing_services": 80}`)).
			AddRow([]byte(`{"data_management": 50}`)))

	perf, err := s.CategoryPerformance(context.Background(), 90)
	require.NoError(t, err)
	require.Len(t, perf, 2)
	assert.Equal(t, "data_management", perf[0].CategoryID)
	assert.InDelta(t, 75.0, perf[0].Average, 0.001)
	assert.InDelta(t, 80.0, perf[1].Average, 0.001)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRecentActivity(t *testing.T) {
	t.Parallel()

	s, mock := newMockStore(t)
	now := time.Now().UTC()
	module := "api"
	mock.ExpectQuery("SELECT (.+) FROM activity_logs").
		WithArgs(20).
		WillReturnRows(pgxmock.NewRows([]string{"id", "type", "module", "user_id", "facility_name", "details", "ip_address", "created_at"}).
			AddRow("a1", "assessment_submitted", &module, nil, nil, []byte(`{"overall_percent": 87.5}`), nil, now))

	activity, err := s.RecentActivity(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, activity, 1)
	assert.Equal(t, "assessment_submitted", activity[0].Type)
	assert.Equal(t, "api", activity[0].Module)
	assert.Equal(t, 87.5, activity[0].Details["overall_percent"])
	assert.NoError(t, mock.ExpectationsWereMet())
}
