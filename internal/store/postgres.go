package store

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/karuna-health/assess-portal/internal/model"
	"github.com/karuna-health/assess-portal/internal/scoring"
)

// Pool is the subset of pgxpool.Pool the store uses. pgxmock implements it
// for tests.
type Pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Ping(ctx context.Context) error
	Close()
}

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool Pool
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}
	pgxCfg.MaxConns = 10
	pgxCfg.MinConns = 2
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool}, nil
}

// NewPostgresWithPool wraps an existing pool, used by tests.
func NewPostgresWithPool(pool Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS submissions (
	id                TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	facility_name     TEXT NOT NULL,
	district          TEXT NOT NULL,
	level             TEXT NOT NULL,
	ownership         TEXT NOT NULL,
	assessor          TEXT NOT NULL,
	assessment_date   TIMESTAMPTZ NOT NULL,
	campaign_day      INTEGER NOT NULL DEFAULT 0,
	result            JSONB NOT NULL,
	overall_percent   DOUBLE PRECISION NOT NULL DEFAULT 0,
	category_percents JSONB NOT NULL DEFAULT '{}',
	submitted_by      TEXT,
	created_at        TIMESTAMPTZ NOT NULL DEFAULT now(),
	UNIQUE (facility_name, assessment_date)
);

CREATE TABLE IF NOT EXISTS participants (
	id                TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	name              TEXT NOT NULL,
	cadre             TEXT NOT NULL,
	duty_station      TEXT NOT NULL,
	district          TEXT NOT NULL,
	mobile_number     TEXT NOT NULL UNIQUE,
	mobile_money_name TEXT NOT NULL,
	campaign_day      INTEGER NOT NULL DEFAULT 0,
	created_at        TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS activity_logs (
	id            TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	type          TEXT NOT NULL,
	module        TEXT,
	user_id       TEXT,
	facility_name TEXT,
	details       JSONB,
	ip_address    TEXT,
	created_at    TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_submissions_district ON submissions(district);
CREATE INDEX IF NOT EXISTS idx_submissions_created_at ON submissions(created_at);
CREATE INDEX IF NOT EXISTS idx_participants_district ON participants(district);
CREATE INDEX IF NOT EXISTS idx_activity_logs_created_at ON activity_logs(created_at);
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

func (s *PostgresStore) CreateSubmission(ctx context.Context, sub *model.Submission) error {
	if sub.ID == "" {
		sub.ID = uuid.New().String()
	}
	if sub.CreatedAt.IsZero() {
		sub.CreatedAt = time.Now().UTC()
	}

	resultJSON, err := json.Marshal(sub.Result)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal result")
	}
	percentsJSON, err := json.Marshal(sub.CategoryPercents)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal category percents")
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO submissions (id, facility_name, district, level, ownership, assessor,
		 assessment_date, campaign_day, result, overall_percent, category_percents, submitted_by, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		sub.ID, sub.Meta.FacilityName, sub.Meta.District, sub.Meta.Level, sub.Meta.Ownership,
		sub.Meta.Assessor, sub.Meta.Date.UTC(), sub.Meta.CampaignDay,
		resultJSON, sub.OverallPercent, percentsJSON, sub.SubmittedBy, sub.CreatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return eris.Wrapf(ErrDuplicateFacility, "facility %q", sub.Meta.FacilityName)
		}
		return eris.Wrap(err, "postgres: insert submission")
	}
	return nil
}

const pgSubmissionColumns = `id, facility_name, district, level, ownership, assessor,
 assessment_date, campaign_day, result, overall_percent, category_percents, submitted_by, created_at`

func (s *PostgresStore) GetSubmission(ctx context.Context, id string) (*model.Submission, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+pgSubmissionColumns+` FROM submissions WHERE id = $1`, id)
	sub, err := scanPgSubmission(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, eris.Wrap(ErrNotFound, "submission")
		}
		return nil, err
	}
	return sub, nil
}

func (s *PostgresStore) ListSubmissions(ctx context.Context, filter SubmissionFilter) ([]model.Submission, error) {
	query := `SELECT ` + pgSubmissionColumns + ` FROM submissions WHERE 1=1`
	var args []any

	if filter.District != "" {
		args = append(args, filter.District)
		query += ` AND district = $1`
	}
	query += ` ORDER BY created_at DESC`

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	args = append(args, limit)
	query += ` LIMIT $` + strconv.Itoa(len(args))

	if filter.Offset > 0 {
		args = append(args, filter.Offset)
		query += ` OFFSET $` + strconv.Itoa(len(args))
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list submissions")
	}
	defer rows.Close()

	var subs []model.Submission
	for rows.Next() {
		sub, err := scanPgSubmission(rows)
		if err != nil {
			return nil, err
		}
		subs = append(subs, *sub)
	}
	return subs, eris.Wrap(rows.Err(), "postgres: list submissions iterate")
}

func (s *PostgresStore) CreateParticipant(ctx context.Context, p *model.Participant) error {
	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now().UTC()
	}

	_, err := s.pool.Exec(ctx,
		`INSERT INTO participants (id, name, cadre, duty_station, district, mobile_number,
		 mobile_money_name, campaign_day, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		p.ID, p.Name, p.Cadre, p.DutyStation, p.District, p.MobileNumber,
		p.MobileMoneyName, p.CampaignDay, p.CreatedAt,
	)
	return eris.Wrap(err, "postgres: insert participant")
}

func (s *PostgresStore) ListParticipants(ctx context.Context, district string) ([]model.Participant, error) {
	query := `SELECT id, name, cadre, duty_station, district, mobile_number,
	 mobile_money_name, campaign_day, created_at FROM participants`
	var args []any
	if district != "" {
		query += ` WHERE district = $1`
		args = append(args, district)
	}
	query += ` ORDER BY created_at`

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list participants")
	}
	defer rows.Close()

	var out []model.Participant
	for rows.Next() {
		var p model.Participant
		if err := rows.Scan(&p.ID, &p.Name, &p.Cadre, &p.DutyStation, &p.District,
			&p.MobileNumber, &p.MobileMoneyName, &p.CampaignDay, &p.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan participant")
		}
		out = append(out, p)
	}
	return out, eris.Wrap(rows.Err(), "postgres: list participants iterate")
}

func (s *PostgresStore) LogActivity(ctx context.Context, a *model.Activity) error {
	if a.ID == "" {
		a.ID = uuid.New().String()
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now().UTC()
	}

	var detailsJSON []byte
	if a.Details != nil {
		var err error
		detailsJSON, err = json.Marshal(a.Details)
		if err != nil {
			return eris.Wrap(err, "postgres: marshal activity details")
		}
	}

	_, err := s.pool.Exec(ctx,
		`INSERT INTO activity_logs (id, type, module, user_id, facility_name, details, ip_address, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		a.ID, a.Type, a.Module, a.UserID, a.FacilityName, detailsJSON, a.IPAddress, a.CreatedAt,
	)
	return eris.Wrap(err, "postgres: insert activity")
}

func (s *PostgresStore) RecentActivity(ctx context.Context, limit int) ([]model.Activity, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.pool.Query(ctx,
		`SELECT id, type, module, user_id, facility_name, details, ip_address, created_at
		 FROM activity_logs ORDER BY created_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: recent activity")
	}
	defer rows.Close()

	var out []model.Activity
	for rows.Next() {
		a, err := scanPgActivity(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *a)
	}
	return out, eris.Wrap(rows.Err(), "postgres: recent activity iterate")
}

func (s *PostgresStore) Stats(ctx context.Context) (*model.DashboardStats, error) {
	var stats model.DashboardStats
	err := s.pool.QueryRow(ctx,
		`SELECT
		 (SELECT COUNT(*) FROM participants),
		 (SELECT COUNT(*) FROM submissions),
		 (SELECT COUNT(DISTINCT facility_name) FROM submissions)`,
	).Scan(&stats.TotalParticipants, &stats.TotalAssessments, &stats.ActiveFacilities)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: dashboard stats")
	}
	return &stats, nil
}

func (s *PostgresStore) DistrictProgress(ctx context.Context) ([]model.DistrictProgress, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT district, SUM(registrations)::int, SUM(assessments)::int FROM (
		   SELECT district, COUNT(*) AS registrations, 0 AS assessments FROM participants GROUP BY district
		   UNION ALL
		   SELECT district, 0, COUNT(*) FROM submissions GROUP BY district
		 ) progress GROUP BY district ORDER BY district`)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: district progress")
	}
	defer rows.Close()

	var out []model.DistrictProgress
	for rows.Next() {
		var dp model.DistrictProgress
		if err := rows.Scan(&dp.District, &dp.Registrations, &dp.Assessments); err != nil {
			return nil, eris.Wrap(err, "postgres: scan district progress")
		}
		out = append(out, dp)
	}
	return out, eris.Wrap(rows.Err(), "postgres: district progress iterate")
}

func (s *PostgresStore) CategoryPerformance(ctx context.Context, target float64) ([]model.CategoryPerformance, error) {
	rows, err := s.pool.Query(ctx, `SELECT category_percents FROM submissions`)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: category performance")
	}
	defer rows.Close()

	var percents []map[string]float64
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, eris.Wrap(err, "postgres: scan category percents")
		}
		m := make(map[string]float64)
		if err := json.Unmarshal(raw, &m); err != nil {
			return nil, eris.Wrap(err, "postgres: unmarshal category percents")
		}
		percents = append(percents, m)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "postgres: category performance iterate")
	}
	return averageCategories(percents, target), nil
}

// helpers

func scanPgSubmission(row scannable) (*model.Submission, error) {
	var sub model.Submission
	var resultJSON, percentsJSON []byte
	var submittedBy *string

	err := row.Scan(&sub.ID, &sub.Meta.FacilityName, &sub.Meta.District, &sub.Meta.Level,
		&sub.Meta.Ownership, &sub.Meta.Assessor, &sub.Meta.Date, &sub.Meta.CampaignDay,
		&resultJSON, &sub.OverallPercent, &percentsJSON, &submittedBy, &sub.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, err
		}
		return nil, eris.Wrap(err, "postgres: scan submission")
	}

	sub.Result = &scoring.Result{}
	if err := json.Unmarshal(resultJSON, sub.Result); err != nil {
		return nil, eris.Wrap(err, "postgres: unmarshal result")
	}
	sub.CategoryPercents = make(map[string]float64)
	if err := json.Unmarshal(percentsJSON, &sub.CategoryPercents); err != nil {
		return nil, eris.Wrap(err, "postgres: unmarshal category percents")
	}
	if submittedBy != nil {
		sub.SubmittedBy = *submittedBy
	}
	return &sub, nil
}

func scanPgActivity(row scannable) (*model.Activity, error) {
	var a model.Activity
	var module, userID, facility, ip *string
	var details []byte

	err := row.Scan(&a.ID, &a.Type, &module, &userID, &facility, &details, &ip, &a.CreatedAt)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: scan activity")
	}
	if module != nil {
		a.Module = *module
	}
	if userID != nil {
		a.UserID = *userID
	}
	if facility != nil {
		a.FacilityName = *facility
	}
	if ip != nil {
		a.IPAddress = *ip
	}
	if len(details) > 0 {
		if err := json.Unmarshal(details, &a.Details); err != nil {
			return nil, eris.Wrap(err, "postgres: unmarshal activity details")
		}
	}
	return &a, nil
}
