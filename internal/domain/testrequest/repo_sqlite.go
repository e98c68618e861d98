package testrequest

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite" // pure go sqlite driver
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS test_request (
	id TEXT PRIMARY KEY,
	patient_name TEXT NOT NULL,
	gender TEXT,
	age INTEGER NOT NULL,
	email TEXT,
	phone_number TEXT,
	address TEXT,
	pin_code TEXT,
	status TEXT NOT NULL,
	tester_id TEXT,
	tester_name TEXT,
	doctor_id TEXT,
	doctor_name TEXT,
	lab_blood_pressure TEXT,
	lab_heart_beat TEXT,
	lab_temperature TEXT,
	lab_oxygen_level TEXT,
	lab_comments TEXT,
	lab_result TEXT,
	consultation_suggestion TEXT,
	consultation_comments TEXT,
	hospital_facility TEXT,
	hospital_ward TEXT,
	hospital_bed_count INTEGER,
	version_id INTEGER NOT NULL DEFAULT 1,
	created_at TIMESTAMP NOT NULL,
	updated_at TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_test_request_status ON test_request (status, created_at);
CREATE INDEX IF NOT EXISTS idx_test_request_tester ON test_request (tester_id);
CREATE INDEX IF NOT EXISTS idx_test_request_doctor ON test_request (doctor_id);
`

// SQLiteRepo stores requests in a single SQLite file. It is meant for local
// development and single-node deployments.
type SQLiteRepo struct {
	db *sqlx.DB
}

// NewSQLiteRepo opens (creating if needed) the database at path and ensures
// the schema exists. Use ":memory:" for a throwaway store.
func NewSQLiteRepo(path string) (*SQLiteRepo, error) {
	if path == "" {
		path = "upstac.db"
	}
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil && !errors.Is(err, os.ErrExist) {
			return nil, fmt.Errorf("create dirs: %w", err)
		}
	}
	db, err := sqlx.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// one writer; also keeps ":memory:" on a single shared connection
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(sqliteSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create test_request table: %w", err)
	}
	return &SQLiteRepo{db: db}, nil
}

func (s *SQLiteRepo) Ping(ctx context.Context) error { return s.db.PingContext(ctx) }

func (s *SQLiteRepo) Close() error { return s.db.Close() }

func (s *SQLiteRepo) Create(ctx context.Context, req *Request) error {
	if req.ID == uuid.Nil {
		req.ID = uuid.New()
	}
	if req.VersionID == 0 {
		req.VersionID = 1
	}
	_, err := s.db.NamedExecContext(ctx, `
		INSERT INTO test_request (`+requestCols+`)
		VALUES (:id, :patient_name, :gender, :age, :email, :phone_number, :address, :pin_code,
			:status, :tester_id, :tester_name, :doctor_id, :doctor_name,
			:lab_blood_pressure, :lab_heart_beat, :lab_temperature, :lab_oxygen_level, :lab_comments, :lab_result,
			:consultation_suggestion, :consultation_comments,
			:hospital_facility, :hospital_ward, :hospital_bed_count,
			:version_id, :created_at, :updated_at)`, newRequestRecord(req))
	if err != nil {
		return fmt.Errorf("insert test_request: %w", err)
	}
	return nil
}

func (s *SQLiteRepo) GetByID(ctx context.Context, id uuid.UUID) (*Request, error) {
	var rec requestRecord
	err := s.db.GetContext(ctx, &rec, `SELECT `+requestCols+` FROM test_request WHERE id = ?`, id.String())
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return rec.toRequest()
}

func (s *SQLiteRepo) Update(ctx context.Context, req *Request) error {
	res, err := s.db.NamedExecContext(ctx, `
		UPDATE test_request SET status = :status,
			tester_id = :tester_id, tester_name = :tester_name,
			doctor_id = :doctor_id, doctor_name = :doctor_name,
			lab_blood_pressure = :lab_blood_pressure, lab_heart_beat = :lab_heart_beat,
			lab_temperature = :lab_temperature, lab_oxygen_level = :lab_oxygen_level,
			lab_comments = :lab_comments, lab_result = :lab_result,
			consultation_suggestion = :consultation_suggestion, consultation_comments = :consultation_comments,
			hospital_facility = :hospital_facility, hospital_ward = :hospital_ward,
			hospital_bed_count = :hospital_bed_count,
			version_id = version_id + 1, updated_at = :updated_at
		WHERE id = :id AND version_id = :version_id`, newRequestRecord(req))
	if err != nil {
		return fmt.Errorf("update test_request: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrVersionConflict
	}
	req.VersionID++
	return nil
}

func (s *SQLiteRepo) ListByStatus(ctx context.Context, status Status, limit, offset int) ([]*Request, int, error) {
	return s.list(ctx, `status = ?`, string(status), limit, offset)
}

func (s *SQLiteRepo) ListByTester(ctx context.Context, testerID string, limit, offset int) ([]*Request, int, error) {
	return s.list(ctx, `tester_id = ?`, testerID, limit, offset)
}

func (s *SQLiteRepo) ListByDoctor(ctx context.Context, doctorID string, limit, offset int) ([]*Request, int, error) {
	return s.list(ctx, `doctor_id = ?`, doctorID, limit, offset)
}

func (s *SQLiteRepo) list(ctx context.Context, where string, arg interface{}, limit, offset int) ([]*Request, int, error) {
	var total int
	if err := s.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM test_request WHERE `+where, arg); err != nil {
		return nil, 0, err
	}
	var recs []requestRecord
	err := s.db.SelectContext(ctx, &recs,
		`SELECT `+requestCols+` FROM test_request WHERE `+where+` ORDER BY created_at, id LIMIT ? OFFSET ?`,
		arg, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	items := make([]*Request, 0, len(recs))
	for _, rec := range recs {
		req, err := rec.toRequest()
		if err != nil {
			return nil, 0, err
		}
		items = append(items, req)
	}
	return items, total, nil
}
