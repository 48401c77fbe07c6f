package repository

import (
	"context"
	"encoding/json"
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

type FraudRepository interface {
	// CreateFindings persists all findings of one detection run in a single
	// batch. A run with zero findings writes nothing.
	CreateFindings(ctx context.Context, findings []*entity.FraudFinding) error
	ListByClaim(ctx context.Context, claimID uuid.UUID) ([]*entity.FraudFinding, error)
}

type fraudRepo struct {
	pool *pgxpool.Pool
	log  *slog.Logger
}

func NewFraudRepository(pool *pgxpool.Pool, log *slog.Logger) FraudRepository {
	if log == nil {
		log = slog.Default()
	}
	return &fraudRepo{pool: pool, log: log}
}

func (r *fraudRepo) CreateFindings(ctx context.Context, findings []*entity.FraudFinding) error {
	if len(findings) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	now := time.Now().UTC()
	for _, f := range findings {
		if f.ID == uuid.Nil {
			f.ID = uuid.New()
		}
		if f.CreatedAt.IsZero() {
			f.CreatedAt = now
		}
		var details []byte
		if f.Details != nil {
			b, err := json.Marshal(jsonutil.SanitizeMap(f.Details))
			if err != nil {
				r.log.Error("finding details not serializable, storing without details",
					"claim_id", f.ClaimID, "detection_type", f.DetectionType, "error", err)
			} else {
				details = b
			}
		}
		batch.Queue(`
			INSERT INTO fraud_detections
				(id, claim_id, detection_type, risk_level, confidence, description, details, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
			f.ID, f.ClaimID, string(f.DetectionType), string(f.RiskLevel),
			f.Confidence, f.Description, details, f.CreatedAt)
	}

	res := r.pool.SendBatch(ctx, batch)
	defer func() { _ = res.Close() }()
	for range findings {
		if _, err := res.Exec(); err != nil {
			return common.WrapError(err, "insert fraud finding")
		}
	}
	r.log.Info("fraud findings persisted", "claim_id", findings[0].ClaimID, "count", len(findings))
	return nil
}

func (r *fraudRepo) ListByClaim(ctx context.Context, claimID uuid.UUID) ([]*entity.FraudFinding, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, claim_id, detection_type, risk_level, confidence, description, details, created_at
		FROM fraud_detections
		WHERE claim_id = $1
		ORDER BY created_at`, claimID)
	if err != nil {
		return nil, common.WrapError(err, "list fraud findings")
	}
	defer rows.Close()

	var out []*entity.FraudFinding
	for rows.Next() {
		var f entity.FraudFinding
		var dtype, risk string
		var details []byte
		if err := rows.Scan(&f.ID, &f.ClaimID, &dtype, &risk, &f.Confidence, &f.Description, &details, &f.CreatedAt); err != nil {
			return nil, common.WrapError(err, "scan fraud finding")
		}
		f.DetectionType = constants.DetectionType(dtype)
		f.RiskLevel = constants.RiskLevel(risk)
		if len(details) > 0 {
			if err := json.Unmarshal(details, &f.Details); err != nil {
				r.log.Warn("fraud finding details unreadable", "finding_id", f.ID, "error", err)
			}
		}
		out = append(out, &f)
	}
	return out, rows.Err()
}
