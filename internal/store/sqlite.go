package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/karuna-health/assess-portal/internal/model"
	"github.com/karuna-health/assess-portal/internal/scoring"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS submissions (
	id                TEXT PRIMARY KEY,
	facility_name     TEXT NOT NULL,
	district          TEXT NOT NULL,
	level             TEXT NOT NULL,
	ownership         TEXT NOT NULL,
	assessor          TEXT NOT NULL,
	assessment_date   DATETIME NOT NULL,
	campaign_day      INTEGER NOT NULL DEFAULT 0,
	result            TEXT NOT NULL,
	overall_percent   REAL NOT NULL DEFAULT 0,
	category_percents TEXT NOT NULL DEFAULT '{}',
	submitted_by      TEXT,
	created_at        DATETIME NOT NULL DEFAULT (datetime('now')),
	UNIQUE (facility_name, assessment_date)
);

CREATE TABLE IF NOT EXISTS participants (
	id                TEXT PRIMARY KEY,
	name              TEXT NOT NULL,
	cadre             TEXT NOT NULL,
	duty_station      TEXT NOT NULL,
	district          TEXT NOT NULL,
	mobile_number     TEXT NOT NULL UNIQUE,
	mobile_money_name TEXT NOT NULL,
	campaign_day      INTEGER NOT NULL DEFAULT 0,
	created_at        DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS activity_logs (
	id            TEXT PRIMARY KEY,
	type          TEXT NOT NULL,
	module        TEXT,
	user_id       TEXT,
	facility_name TEXT,
	details       TEXT,
	ip_address    TEXT,
	created_at    DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_submissions_district ON submissions(district);
CREATE INDEX IF NOT EXISTS idx_submissions_created_at ON submissions(created_at);
CREATE INDEX IF NOT EXISTS idx_participants_district ON participants(district);
CREATE INDEX IF NOT EXISTS idx_activity_logs_created_at ON activity_logs(created_at);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) CreateSubmission(ctx context.Context, sub *model.Submission) error {
	if sub.ID == "" {
		sub.ID = uuid.New().String()
	}
	if sub.CreatedAt.IsZero() {
		sub.CreatedAt = time.Now().UTC()
	}

	resultJSON, err := json.Marshal(sub.Result)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal result")
	}
	percentsJSON, err := json.Marshal(sub.CategoryPercents)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal category percents")
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO submissions (id, facility_name, district, level, ownership, assessor,
		 assessment_date, campaign_day, result, overall_percent, category_percents, submitted_by, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		sub.ID, sub.Meta.FacilityName, sub.Meta.District, sub.Meta.Level, sub.Meta.Ownership,
		sub.Meta.Assessor, sub.Meta.Date.UTC(), sub.Meta.CampaignDay,
		string(resultJSON), sub.OverallPercent, string(percentsJSON), sub.SubmittedBy, sub.CreatedAt,
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed: submissions") {
			return eris.Wrapf(ErrDuplicateFacility, "facility %q", sub.Meta.FacilityName)
		}
		return eris.Wrap(err, "sqlite: insert submission")
	}
	return nil
}

const sqliteSubmissionColumns = `id, facility_name, district, level, ownership, assessor,
 assessment_date, campaign_day, result, overall_percent, category_percents, submitted_by, created_at`

func (s *SQLiteStore) GetSubmission(ctx context.Context, id string) (*model.Submission, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+sqliteSubmissionColumns+` FROM submissions WHERE id = ?`, id)
	return scanSubmission(row)
}

func (s *SQLiteStore) ListSubmissions(ctx context.Context, filter SubmissionFilter) ([]model.Submission, error) {
	query := `SELECT ` + sqliteSubmissionColumns + ` FROM submissions WHERE 1=1`
	var args []any

	if filter.District != "" {
		query += ` AND district = ?`
		args = append(args, filter.District)
	}
	query += ` ORDER BY created_at DESC`

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query += ` LIMIT ?`
	args = append(args, limit)

	if filter.Offset > 0 {
		query += ` OFFSET ?`
		args = append(args, filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list submissions")
	}
	defer rows.Close()

	var subs []model.Submission
	for rows.Next() {
		sub, err := scanSubmission(rows)
		if err != nil {
			return nil, err
		}
		subs = append(subs, *sub)
	}
	return subs, eris.Wrap(rows.Err(), "sqlite: list submissions iterate")
}

func (s *SQLiteStore) CreateParticipant(ctx context.Context, p *model.Participant) error {
	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO participants (id, name, cadre, duty_station, district, mobile_number,
		 mobile_money_name, campaign_day, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID, p.Name, p.Cadre, p.DutyStation, p.District, p.MobileNumber,
		p.MobileMoneyName, p.CampaignDay, p.CreatedAt,
	)
	return eris.Wrap(err, "sqlite: insert participant")
}

func (s *SQLiteStore) ListParticipants(ctx context.Context, district string) ([]model.Participant, error) {
	query := `SELECT id, name, cadre, duty_station, district, mobile_number,
	 mobile_money_name, campaign_day, created_at FROM participants`
	var args []any
	if district != "" {
		query += ` WHERE district = ?`
		args = append(args, district)
	}
	query += ` ORDER BY created_at`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list participants")
	}
	defer rows.Close()

	var out []model.Participant
	for rows.Next() {
		var p model.Participant
		if err := rows.Scan(&p.ID, &p.Name, &p.Cadre, &p.DutyStation, &p.District,
			&p.MobileNumber, &p.MobileMoneyName, &p.CampaignDay, &p.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan participant")
		}
		out = append(out, p)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: list participants iterate")
}

func (s *SQLiteStore) LogActivity(ctx context.Context, a *model.Activity) error {
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
			return eris.Wrap(err, "sqlite: marshal activity details")
		}
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO activity_logs (id, type, module, user_id, facility_name, details, ip_address, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		a.ID, a.Type, a.Module, a.UserID, a.FacilityName, nullableString(detailsJSON), a.IPAddress, a.CreatedAt,
	)
	return eris.Wrap(err, "sqlite: insert activity")
}

func (s *SQLiteStore) RecentActivity(ctx context.Context, limit int) ([]model.Activity, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, type, module, user_id, facility_name, details, ip_address, created_at
		 FROM activity_logs ORDER BY created_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: recent activity")
	}
	defer rows.Close()

	var out []model.Activity
	for rows.Next() {
		a, err := scanActivity(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *a)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: recent activity iterate")
}

func (s *SQLiteStore) Stats(ctx context.Context) (*model.DashboardStats, error) {
	var stats model.DashboardStats
	err := s.db.QueryRowContext(ctx,
		`SELECT
		 (SELECT COUNT(*) FROM participants),
		 (SELECT COUNT(*) FROM submissions),
		 (SELECT COUNT(DISTINCT facility_name) FROM submissions)`,
	).Scan(&stats.TotalParticipants, &stats.TotalAssessments, &stats.ActiveFacilities)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: dashboard stats")
	}
	return &stats, nil
}

func (s *SQLiteStore) DistrictProgress(ctx context.Context) ([]model.DistrictProgress, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT district, SUM(registrations), SUM(assessments) FROM (
		   SELECT district, COUNT(*) AS registrations, 0 AS assessments FROM participants GROUP BY district
		   UNION ALL
		   SELECT district, 0, COUNT(*) FROM submissions GROUP BY district
		 ) GROUP BY district ORDER BY district`)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: district progress")
	}
	defer rows.Close()

	var out []model.DistrictProgress
	for rows.Next() {
		var dp model.DistrictProgress
		if err := rows.Scan(&dp.District, &dp.Registrations, &dp.Assessments); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan district progress")
		}
		out = append(out, dp)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: district progress iterate")
}

func (s *SQLiteStore) CategoryPerformance(ctx context.Context, target float64) ([]model.CategoryPerformance, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT category_percents FROM submissions`)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: category performance")
	}
	defer rows.Close()

	var percents []map[string]float64
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan category percents")
		}
		m := make(map[string]float64)
		if err := json.Unmarshal([]byte(raw), &m); err != nil {
			return nil, eris.Wrap(err, "sqlite: unmarshal category percents")
		}
		percents = append(percents, m)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "sqlite: category performance iterate")
	}
	return averageCategories(percents, target), nil
}

// helpers

func nullableString(b []byte) any {
	if len(b) == 0 {
		return nil
	}
	return string(b)
}

type scannable interface {
	Scan(dest ...any) error
}

func scanSubmission(row scannable) (*model.Submission, error) {
	var sub model.Submission
	var resultJSON, percentsJSON string
	var submittedBy sql.NullString

	err := row.Scan(&sub.ID, &sub.Meta.FacilityName, &sub.Meta.District, &sub.Meta.Level,
		&sub.Meta.Ownership, &sub.Meta.Assessor, &sub.Meta.Date, &sub.Meta.CampaignDay,
		&resultJSON, &sub.OverallPercent, &percentsJSON, &submittedBy, &sub.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, eris.Wrap(ErrNotFound, "submission")
	}
	if err != nil {
		return nil, eris.Wrap(err, "store: scan submission")
	}

	sub.Result = &scoring.Result{}
	if err := json.Unmarshal([]byte(resultJSON), sub.Result); err != nil {
		return nil, eris.Wrap(err, "store: unmarshal result")
	}
	sub.CategoryPercents = make(map[string]float64)
	if err := json.Unmarshal([]byte(percentsJSON), &sub.CategoryPercents); err != nil {
		return nil, eris.Wrap(err, "store: unmarshal category percents")
	}
	if submittedBy.Valid {
		sub.SubmittedBy = submittedBy.String
	}
	return &sub, nil
}

func scanActivity(row scannable) (*model.Activity, error) {
	var a model.Activity
	var module, userID, facility, details, ip sql.NullString

	err := row.Scan(&a.ID, &a.Type, &module, &userID, &facility, &details, &ip, &a.CreatedAt)
	if err != nil {
		return nil, eris.Wrap(err, "store: scan activity")
	}
	a.Module = module.String
	a.UserID = userID.String
	a.FacilityName = facility.String
	a.IPAddress = ip.String
	if details.Valid && details.String != "" {
		if err := json.Unmarshal([]byte(details.String), &a.Details); err != nil {
			return nil, eris.Wrap(err, "store: unmarshal activity details")
		}
	}
	return &a, nil
}
