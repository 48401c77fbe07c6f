package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/klaimcare/cyberclaim/constants"
	"github.com/klaimcare/cyberclaim/internal/common"
	"github.com/klaimcare/cyberclaim/internal/entity"
	"github.com/klaimcare/cyberclaim/internal/jsonutil"
)

type ClaimRepository interface {
	Create(ctx context.Context, claim *entity.Claim) error
	GetByID(ctx context.Context, id uuid.UUID) (*entity.Claim, error)
	// UpdateStatus commits status, data bag and timestamp atomically. The
	// transition is checked against the state machine inside the same
	// transaction.
	UpdateStatus(ctx context.Context, id uuid.UUID, status constants.ClaimStatus, data map[string]any) error
	// FindBySEPNumber returns another claim using the same SEP number for a
	// different patient, if any.
	FindBySEPNumber(ctx context.Context, sepNumber string, excludePatientID uuid.UUID) (*entity.Claim, error)
	// ListByPatient returns the patient's claims, most recent first,
	// excluding the given claim.
	ListByPatient(ctx context.Context, patientID, excludeClaimID uuid.UUID) ([]*entity.Claim, error)
}

type claimRepo struct {
	pool *pgxpool.Pool
	log  *slog.Logger
}

func NewClaimRepository(pool *pgxpool.Pool, log *slog.Logger) ClaimRepository {
	if log == nil {
		log = slog.Default()
	}
	return &claimRepo{pool: pool, log: log}
}

const claimColumns = `id, facility_id, patient_id, sep_number, diagnosis_code, claimed_amount,
	archive_path, status, validation_data, uploaded_at, validated_at, fraud_checked_at`

func scanClaim(row pgx.Row) (*entity.Claim, error) {
	var c entity.Claim
	var status string
	err := row.Scan(&c.ID, &c.FacilityID, &c.PatientID, &c.SEPNumber, &c.DiagnosisCode, &c.ClaimedAmount,
		&c.ArchivePath, &status, &c.ValidationData, &c.UploadedAt, &c.ValidatedAt, &c.FraudCheckedAt)
	if err != nil {
		return nil, err
	}
	c.Status = constants.ClaimStatus(status)
	return &c, nil
}

func (r *claimRepo) Create(ctx context.Context, claim *entity.Claim) error {
	if claim.ID == uuid.Nil {
		claim.ID = uuid.New()
	}
	if claim.Status == "" {
		claim.Status = constants.StatusUploaded
	}
	if claim.UploadedAt.IsZero() {
		claim.UploadedAt = time.Now().UTC()
	}
	_, err := r.pool.Exec(ctx, `
		INSERT INTO claim_submission
			(id, facility_id, patient_id, sep_number, diagnosis_code, claimed_amount, archive_path, status, uploaded_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		claim.ID, claim.FacilityID, claim.PatientID, claim.SEPNumber, claim.DiagnosisCode,
		claim.ClaimedAmount, claim.ArchivePath, string(claim.Status), claim.UploadedAt,
	)
	if err != nil {
		r.log.Error("claim create failed", "claim_id", claim.ID, "error", err)
		return common.WrapError(err, "create claim")
	}
	r.log.Info("claim created", "claim_id", claim.ID, "sep_number", claim.SEPNumber)
	return nil
}

func (r *claimRepo) GetByID(ctx context.Context, id uuid.UUID) (*entity.Claim, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+claimColumns+` FROM claim_submission WHERE id = $1`, id)
	c, err := scanClaim(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, common.NewAppError("CLAIM_NOT_FOUND", id.String(), common.ErrNotFound)
	}
	if err != nil {
		return nil, common.WrapError(err, "get claim")
	}
	return c, nil
}

// UpdateStatus runs the whole status+data+timestamp update in one
// transaction. When the data bag cannot be serialized, the status
// transition is still committed (status alone) so a claim never stays stuck
// because of a serialization failure.
func (r *claimRepo) UpdateStatus(ctx context.Context, id uuid.UUID, status constants.ClaimStatus, data map[string]any) error {
	payload, serErr := marshalBag(data)
	if serErr != nil {
		r.log.Error("status data bag not serializable, falling back to status-only update",
			"claim_id", id, "status", status, "error", serErr, "payload_type", fmt.Sprintf("%T", data))
		payload = nil
	}

	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return common.WrapError(err, "begin status update")
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var current string
	if err := tx.QueryRow(ctx,
		`SELECT status FROM claim_submission WHERE id = $1 FOR UPDATE`, id).Scan(&current); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return common.NewAppError("CLAIM_NOT_FOUND", id.String(), common.ErrNotFound)
		}
		return common.WrapError(err, "lock claim")
	}
	if !constants.CanTransition(constants.ClaimStatus(current), status) {
		return common.NewAppError("ILLEGAL_TRANSITION",
			fmt.Sprintf("claim %s: %s -> %s", id, current, status), common.ErrStatusInvalid)
	}

	now := time.Now().UTC()
	if payload != nil {
		_, err = tx.Exec(ctx, `
			UPDATE claim_submission
			SET status = $2,
			    validation_data = COALESCE(validation_data, '{}'::jsonb) || $3::jsonb,
			    validated_at = CASE WHEN $2 IN ('pending_verification', 'rejected') AND validated_at IS NULL THEN $4 ELSE validated_at END,
			    fraud_checked_at = CASE WHEN $2 IN ('approved', 'fraud_check', 'rejected') AND validated_at IS NOT NULL THEN $4 ELSE fraud_checked_at END
			WHERE id = $1`,
			id, string(status), payload, now)
	} else {
		_, err = tx.Exec(ctx,
			`UPDATE claim_submission SET status = $2, validated_at = COALESCE(validated_at, $3) WHERE id = $1`,
			id, string(status), now)
	}
	if err != nil {
		return common.WrapError(err, "update claim status")
	}
	if err := tx.Commit(ctx); err != nil {
		return common.WrapError(err, "commit status update")
	}

	r.log.Info("claim status updated", "claim_id", id, "from", current, "to", status)
	return nil
}

func (r *claimRepo) FindBySEPNumber(ctx context.Context, sepNumber string, excludePatientID uuid.UUID) (*entity.Claim, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+claimColumns+`
		FROM claim_submission
		WHERE sep_number = $1 AND patient_id <> $2
		ORDER BY uploaded_at DESC
		LIMIT 1`, sepNumber, excludePatientID)
	c, err := scanClaim(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, common.WrapError(err, "find claim by sep number")
	}
	return c, nil
}

func (r *claimRepo) ListByPatient(ctx context.Context, patientID, excludeClaimID uuid.UUID) ([]*entity.Claim, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+claimColumns+`
		FROM claim_submission
		WHERE patient_id = $1 AND id <> $2
		ORDER BY uploaded_at DESC`, patientID, excludeClaimID)
	if err != nil {
		return nil, common.WrapError(err, "list claims by patient")
	}
	defer rows.Close()

	var out []*entity.Claim
	for rows.Next() {
		c, err := scanClaim(rows)
		if err != nil {
			return nil, common.WrapError(err, "scan claim")
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// marshalBag sanitizes and serializes a data bag, verifying verdict-shaped
// payloads against the schema contract.
func marshalBag(data map[string]any) ([]byte, error) {
	if data == nil {
		return nil, nil
	}
	safe := jsonutil.SanitizeMap(data)
	payload, err := json.Marshal(safe)
	if err != nil {
		return nil, err
	}
	if raw, ok := safe["validation_data"]; ok {
		vb, err := json.Marshal(raw)
		if err != nil {
			return nil, err
		}
		if err := jsonutil.ValidateVerdictPayload(vb); err != nil {
			return nil, err
		}
	}
	return payload, nil
}
