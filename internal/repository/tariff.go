package repository

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	cache "github.com/patrickmn/go-cache"

	"github.com/klaimcare/cyberclaim/internal/common"
	"github.com/klaimcare/cyberclaim/internal/entity"
)

type TariffRepository interface {
	// GetByDiagnosis returns the reference tariff for a diagnosis code, or
	// nil when no tariff is registered for it.
	GetByDiagnosis(ctx context.Context, diagnosisCode string) (*entity.Tariff, error)
	// ExpectedAmount sums the diagnosis tariff with per-procedure tariffs.
	// Codes without a registered tariff contribute nothing.
	ExpectedAmount(ctx context.Context, diagnosisCode string, procedureCodes []string) (float64, error)
}

type tariffRepo struct {
	pool *pgxpool.Pool
	log  *slog.Logger
}

func NewTariffRepository(pool *pgxpool.Pool, log *slog.Logger) TariffRepository {
	if log == nil {
		log = slog.Default()
	}
	return &tariffRepo{pool: pool, log: log}
}

func (r *tariffRepo) GetByDiagnosis(ctx context.Context, diagnosisCode string) (*entity.Tariff, error) {
	var t entity.Tariff
	err := r.pool.QueryRow(ctx, `
		SELECT diagnosis_code, amount, description
		FROM reference_tariffs
		WHERE diagnosis_code = $1`, diagnosisCode).
		Scan(&t.DiagnosisCode, &t.Amount, &t.Description)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, common.WrapError(err, "get tariff")
	}
	return &t, nil
}

func (r *tariffRepo) ExpectedAmount(ctx context.Context, diagnosisCode string, procedureCodes []string) (float64, error) {
	total := 0.0
	t, err := r.GetByDiagnosis(ctx, diagnosisCode)
	if err != nil {
		return 0, err
	}
	if t != nil {
		total += t.Amount
	}
	for _, code := range procedureCodes {
		pt, err := r.GetByDiagnosis(ctx, code)
		if err != nil {
			return 0, err
		}
		if pt != nil {
			total += pt.Amount
		}
	}
	return total, nil
}

// CachedTariffRepository keeps tariff rows in memory for a while. The
// reference table changes rarely and fraud detection hits the same codes
// over and over.
type CachedTariffRepository struct {
	inner TariffRepository
	cache *cache.Cache
}

func NewCachedTariffRepository(inner TariffRepository, ttl time.Duration) *CachedTariffRepository {
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}
	return &CachedTariffRepository{
		inner: inner,
		cache: cache.New(ttl, 2*ttl),
	}
}

func (c *CachedTariffRepository) GetByDiagnosis(ctx context.Context, diagnosisCode string) (*entity.Tariff, error) {
	if v, ok := c.cache.Get(diagnosisCode); ok {
		t, _ := v.(*entity.Tariff) // nil cached means "no tariff registered"
		return t, nil
	}
	t, err := c.inner.GetByDiagnosis(ctx, diagnosisCode)
	if err != nil {
		return nil, err
	}
	c.cache.Set(diagnosisCode, t, cache.DefaultExpiration)
	return t, nil
}

func (c *CachedTariffRepository) ExpectedAmount(ctx context.Context, diagnosisCode string, procedureCodes []string) (float64, error) {
	total := 0.0
	t, err := c.GetByDiagnosis(ctx, diagnosisCode)
	if err != nil {
		return 0, err
	}
	if t != nil {
		total += t.Amount
	}
	for _, code := range procedureCodes {
		pt, err := c.GetByDiagnosis(ctx, code)
		if err != nil {
			return 0, err
		}
		if pt != nil {
			total += pt.Amount
		}
	}
	return total, nil
}
