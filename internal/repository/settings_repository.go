package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/gradewise/gradewise-api/internal/models"
)

// SettingsRepository handles the single school settings row.
type SettingsRepository struct {
	db *sqlx.DB
}

// NewSettingsRepository constructs the repository.
func NewSettingsRepository(db *sqlx.DB) *SettingsRepository {
	return &SettingsRepository{db: db}
}

const settingsColumns = `id, school_name, school_logo_url, latitude, longitude, check_in_radius, late_time, check_out_time, updated_at`

// Get returns the settings row, or sql.ErrNoRows before seeding.
func (r *SettingsRepository) Get(ctx context.Context) (*models.Settings, error) {
	query := fmt.Sprintf(`SELECT %s FROM app_settings WHERE id = 1`, settingsColumns)
	var settings models.Settings
	if err := r.db.GetContext(ctx, &settings, query); err != nil {
		return nil, fmt.Errorf("get settings: %w", err)
	}
	return &settings, nil
}

// Seed inserts the settings row if it does not exist yet, leaving an
// existing row untouched.
func (r *SettingsRepository) Seed(ctx context.Context, settings *models.Settings) error {
	query := `INSERT INTO app_settings (id, school_name, school_logo_url, latitude, longitude, check_in_radius, late_time, check_out_time, updated_at)
VALUES (1, $1, $2, $3, $4, $5, $6, $7, $8)
ON CONFLICT (id) DO NOTHING`
	if _, err := r.db.ExecContext(ctx, query,
		settings.SchoolName, settings.SchoolLogoURL, settings.Latitude, settings.Longitude,
		settings.CheckInRadius, settings.LateTime, settings.CheckOutTime, time.Now().UTC()); err != nil {
		return fmt.Errorf("seed settings: %w", err)
	}
	return nil
}

// Update rewrites the settings row.
func (r *SettingsRepository) Update(ctx context.Context, settings *models.Settings) (*models.Settings, error) {
	settings.UpdatedAt = time.Now().UTC()
	query := fmt.Sprintf(`UPDATE app_settings
SET school_name = $1, school_logo_url = $2, latitude = $3, longitude = $4,
    check_in_radius = $5, late_time = $6, check_out_time = $7, updated_at = $8
WHERE id = 1
RETURNING %s`, settingsColumns)
	var stored models.Settings
	if err := r.db.GetContext(ctx, &stored, query,
		settings.SchoolName, settings.SchoolLogoURL, settings.Latitude, settings.Longitude,
		settings.CheckInRadius, settings.LateTime, settings.CheckOutTime, settings.UpdatedAt); err != nil {
		return nil, fmt.Errorf("update settings: %w", err)
	}
	return &stored, nil
}
