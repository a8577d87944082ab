package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/polyrisk/polyrisk-api/entities"
	"github.com/polyrisk/polyrisk-api/logging"
	"github.com/uptrace/bun"
)

// ErrNotFound is returned when a patient or analysis id does not exist.
var ErrNotFound = errors.New("not found")

// Repository stores patients and analyses. Writes are serialized; reads
// share the single connection.
type Repository struct {
	db  *bun.DB
	mu  sync.Mutex
	now func() time.Time
}

// Open opens the database at path and creates the schema.
func Open(ctx context.Context, path string, debug bool) (*Repository, error) {
	db, err := NewDB(path, debug)
	if err != nil {
		return nil, err
	}
	repo, err := NewRepository(ctx, db)
	if err != nil {
		db.Close()
		return nil, err
	}
	logging.Info("Patient repository ready", "path", path)
	return repo, nil
}

// NewRepository wraps an open database and creates the schema.
func NewRepository(ctx context.Context, db *bun.DB) (*Repository, error) {
	if err := createSchema(ctx, db); err != nil {
		return nil, err
	}
	return &Repository{db: db, now: time.Now}, nil
}

// SavePatient inserts or replaces a patient. A missing id or creation time
// is filled in and written back to p.
func (r *Repository) SavePatient(ctx context.Context, p *entities.Patient) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = r.now()
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	_, err := r.db.NewInsert().
		Model(newPatientModel(*p)).
		On("CONFLICT (id) DO UPDATE").
		Set("name = EXCLUDED.name").
		Set("age = EXCLUDED.age").
		Set("gender = EXCLUDED.gender").
		Set("kidney_function = EXCLUDED.kidney_function").
		Set("liver_function = EXCLUDED.liver_function").
		Set("medications = EXCLUDED.medications").
		Set("medication_count = EXCLUDED.medication_count").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to save patient %s: %w", p.ID, err)
	}
	return nil
}

func (r *Repository) GetPatient(ctx context.Context, id string) (entities.Patient, error) {
	m := new(patientModel)
	err := r.db.NewSelect().Model(m).Where("id = ?", id).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return entities.Patient{}, fmt.Errorf("patient %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return entities.Patient{}, fmt.Errorf("failed to load patient %s: %w", id, err)
	}
	return m.entity(), nil
}

// ListPatients returns patients in insertion order.
func (r *Repository) ListPatients(ctx context.Context) ([]entities.Patient, error) {
	var models []patientModel
	if err := r.db.NewSelect().Model(&models).OrderExpr("created_at ASC, id ASC").Scan(ctx); err != nil {
		return nil, fmt.Errorf("failed to list patients: %w", err)
	}
	patients := make([]entities.Patient, len(models))
	for i := range models {
		patients[i] = models[i].entity()
	}
	return patients, nil
}

// SaveAnalysis inserts or replaces an analysis.
func (r *Repository) SaveAnalysis(ctx context.Context, a *entities.Analysis) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = r.now()
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	_, err := r.db.NewInsert().
		Model(newAnalysisModel(*a)).
		On("CONFLICT (id) DO UPDATE").
		Set("breakdown = EXCLUDED.breakdown").
		Set("report = EXCLUDED.report").
		Set("base_score = EXCLUDED.base_score").
		Set("risk_level = EXCLUDED.risk_level").
		Set("policy = EXCLUDED.policy").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to save analysis %s: %w", a.ID, err)
	}
	return nil
}

func (r *Repository) GetAnalysis(ctx context.Context, id string) (entities.Analysis, error) {
	m := new(analysisModel)
	err := r.db.NewSelect().Model(m).Where("id = ?", id).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return entities.Analysis{}, fmt.Errorf("analysis %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return entities.Analysis{}, fmt.Errorf("failed to load analysis %s: %w", id, err)
	}
	return m.entity(), nil
}

// ListAnalyses returns analyses newest first. A limit of zero or less
// returns all of them.
func (r *Repository) ListAnalyses(ctx context.Context, limit int) ([]entities.Analysis, error) {
	var models []analysisModel
	q := r.db.NewSelect().Model(&models).OrderExpr("created_at DESC, id ASC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("failed to list analyses: %w", err)
	}
	analyses := make([]entities.Analysis, len(models))
	for i := range models {
		analyses[i] = models[i].entity()
	}
	return analyses, nil
}

// Clear removes every patient and analysis.
func (r *Repository) Clear(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if _, err := tx.NewDelete().Model((*analysisModel)(nil)).Where("1 = 1").Exec(ctx); err != nil {
			return fmt.Errorf("failed to clear analyses: %w", err)
		}
		if _, err := tx.NewDelete().Model((*patientModel)(nil)).Where("1 = 1").Exec(ctx); err != nil {
			return fmt.Errorf("failed to clear patients: %w", err)
		}
		return nil
	})
}

// Stats aggregates counts over the stored rows.
func (r *Repository) Stats(ctx context.Context) (entities.RepositoryStats, error) {
	var stats entities.RepositoryStats

	var (
		patients     int
		polypharmacy int
		averageAge   sql.NullFloat64
	)
	err := r.db.NewSelect().
		Model((*patientModel)(nil)).
		ColumnExpr("COUNT(*)").
		ColumnExpr("COALESCE(SUM(CASE WHEN medication_count >= ? THEN 1 ELSE 0 END), 0)", entities.PolypharmacyThreshold).
		ColumnExpr("AVG(age)").
		Scan(ctx, &patients, &polypharmacy, &averageAge)
	if err != nil {
		return stats, fmt.Errorf("failed to aggregate patients: %w", err)
	}

	stats.TotalPatients = patients
	stats.PolypharmacyCases = polypharmacy
	if averageAge.Valid {
		stats.AverageAge = math.Round(averageAge.Float64*10) / 10
	}

	total, err := r.db.NewSelect().Model((*analysisModel)(nil)).Count(ctx)
	if err != nil {
		return stats, fmt.Errorf("failed to count analyses: %w", err)
	}
	stats.TotalAnalyses = total

	if total > 0 {
		latest := new(analysisModel)
		if err := r.db.NewSelect().Model(latest).Column("created_at").OrderExpr("created_at DESC").Limit(1).Scan(ctx); err != nil {
			return stats, fmt.Errorf("failed to load latest analysis: %w", err)
		}
		t := latest.CreatedAt
		stats.LastAnalysisAt = &t
	}

	return stats, nil
}

// Ping checks the database connection.
func (r *Repository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func (r *Repository) Close() error {
	return r.db.Close()
}
