package testrequest

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/upstac/upstac/internal/platform/db"
)

type queryable interface {
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
}

type requestRepoPG struct{ pool *pgxpool.Pool }

func NewRequestRepoPG(pool *pgxpool.Pool) Repository {
	return &requestRepoPG{pool: pool}
}

func (r *requestRepoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

const requestCols = `id, patient_name, gender, age, email, phone_number, address, pin_code,
	status, tester_id, tester_name, doctor_id, doctor_name,
	lab_blood_pressure, lab_heart_beat, lab_temperature, lab_oxygen_level, lab_comments, lab_result,
	consultation_suggestion, consultation_comments,
	hospital_facility, hospital_ward, hospital_bed_count,
	version_id, created_at, updated_at`

func (r *requestRepoPG) scanRequest(row pgx.Row) (*Request, error) {
	var rec requestRecord
	err := row.Scan(&rec.ID, &rec.PatientName, &rec.Gender, &rec.Age, &rec.Email, &rec.PhoneNumber, &rec.Address, &rec.PinCode,
		&rec.Status, &rec.TesterID, &rec.TesterName, &rec.DoctorID, &rec.DoctorName,
		&rec.LabBloodPressure, &rec.LabHeartBeat, &rec.LabTemperature, &rec.LabOxygenLevel, &rec.LabComments, &rec.LabResult,
		&rec.ConsultationSuggestion, &rec.ConsultationComments,
		&rec.HospitalFacility, &rec.HospitalWard, &rec.HospitalBedCount,
		&rec.VersionID, &rec.CreatedAt, &rec.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return rec.toRequest()
}

func (r *requestRepoPG) Create(ctx context.Context, req *Request) error {
	if req.ID == uuid.Nil {
		req.ID = uuid.New()
	}
	if req.VersionID == 0 {
		req.VersionID = 1
	}
	rec := newRequestRecord(req)
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO test_request (`+requestCols+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,$21,$22,$23,$24,$25,$26,$27)`,
		rec.ID, rec.PatientName, rec.Gender, rec.Age, rec.Email, rec.PhoneNumber, rec.Address, rec.PinCode,
		rec.Status, rec.TesterID, rec.TesterName, rec.DoctorID, rec.DoctorName,
		rec.LabBloodPressure, rec.LabHeartBeat, rec.LabTemperature, rec.LabOxygenLevel, rec.LabComments, rec.LabResult,
		rec.ConsultationSuggestion, rec.ConsultationComments,
		rec.HospitalFacility, rec.HospitalWard, rec.HospitalBedCount,
		rec.VersionID, rec.CreatedAt, rec.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert test_request: %w", err)
	}
	return nil
}

func (r *requestRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Request, error) {
	return r.scanRequest(r.conn(ctx).QueryRow(ctx, `SELECT `+requestCols+` FROM test_request WHERE id = $1`, id))
}

// Update writes the workflow columns guarded by the loaded version.
func (r *requestRepoPG) Update(ctx context.Context, req *Request) error {
	rec := newRequestRecord(req)
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE test_request SET status=$3,
			tester_id=$4, tester_name=$5, doctor_id=$6, doctor_name=$7,
			lab_blood_pressure=$8, lab_heart_beat=$9, lab_temperature=$10, lab_oxygen_level=$11,
			lab_comments=$12, lab_result=$13,
			consultation_suggestion=$14, consultation_comments=$15,
			hospital_facility=$16, hospital_ward=$17, hospital_bed_count=$18,
			version_id = version_id + 1, updated_at=$19
		WHERE id = $1 AND version_id = $2`,
		rec.ID, rec.VersionID, rec.Status,
		rec.TesterID, rec.TesterName, rec.DoctorID, rec.DoctorName,
		rec.LabBloodPressure, rec.LabHeartBeat, rec.LabTemperature, rec.LabOxygenLevel,
		rec.LabComments, rec.LabResult,
		rec.ConsultationSuggestion, rec.ConsultationComments,
		rec.HospitalFacility, rec.HospitalWard, rec.HospitalBedCount,
		rec.UpdatedAt)
	if err != nil {
		return fmt.Errorf("update test_request: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrVersionConflict
	}
	req.VersionID++
	return nil
}

func (r *requestRepoPG) ListByStatus(ctx context.Context, status Status, limit, offset int) ([]*Request, int, error) {
	return r.list(ctx, `status = $1`, string(status), limit, offset)
}

func (r *requestRepoPG) ListByTester(ctx context.Context, testerID string, limit, offset int) ([]*Request, int, error) {
	return r.list(ctx, `tester_id = $1`, testerID, limit, offset)
}

func (r *requestRepoPG) ListByDoctor(ctx context.Context, doctorID string, limit, offset int) ([]*Request, int, error) {
	return r.list(ctx, `doctor_id = $1`, doctorID, limit, offset)
}

func (r *requestRepoPG) list(ctx context.Context, where string, arg interface{}, limit, offset int) ([]*Request, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM test_request WHERE `+where, arg).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.conn(ctx).Query(ctx, `SELECT `+requestCols+` FROM test_request WHERE `+where+` ORDER BY created_at, id LIMIT $2 OFFSET $3`, arg, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []*Request
	for rows.Next() {
		req, err := r.scanRequest(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, req)
	}
	return items, total, rows.Err()
}
