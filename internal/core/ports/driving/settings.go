package driving

import "github.com/custodia-labs/weft/internal/core/domain"

// SettingsService manages application settings.
type SettingsService interface {
	// Get retrieves current application settings.
	Get() (*domain.AppSettings, error)

	// Save persists application settings.
	Save(settings *domain.AppSettings) error

	// SetRenderPolicy updates the default expansion policy.
	SetRenderPolicy(policy domain.ExpansionPolicy) error

	// SetDuplicatePolicy updates the default duplicate policy.
	SetDuplicatePolicy(policy domain.DuplicatePolicy) error

	// Validate checks the current settings.
	Validate() error

	// GetDefaults returns default settings.
	GetDefaults() domain.AppSettings
}
