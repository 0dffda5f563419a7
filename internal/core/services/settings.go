package services

import (
	"fmt"
	"strings"

	"github.com/custodia-labs/weft/internal/core/domain"
	"github.com/custodia-labs/weft/internal/core/ports/driven"
	"github.com/custodia-labs/weft/internal/core/ports/driving"
)

// Ensure SettingsService implements the interface.
var _ driving.SettingsService = (*SettingsService)(nil)

// Config keys for settings storage.
const (
	keyRenderPolicy      = "render.policy"
	keyRenderWindow      = "render.window"
	keyRenderBudget      = "render.budget"
	keySearchLimit       = "search.limit"
	keyIngestDuplicate   = "ingest.on_duplicate"
	keyIngestConcurrency = "ingest.concurrency"
	keyWatchExtensions   = "watch.extensions"
	keyWatchRate         = "watch.rate"
)

var knownKeys = map[string]bool{
	keyRenderPolicy:      true,
	keyRenderWindow:      true,
	keyRenderBudget:      true,
	keySearchLimit:       true,
	keyIngestDuplicate:   true,
	keyIngestConcurrency: true,
	keyWatchExtensions:   true,
	keyWatchRate:         true,
}

// SettingsService manages application settings.
type SettingsService struct {
	configStore driven.ConfigStore
}

// NewSettingsService creates a new settings service.
func NewSettingsService(configStore driven.ConfigStore) *SettingsService {
	return &SettingsService{configStore: configStore}
}

// Get retrieves current application settings. Missing or malformed
// values fall back to defaults.
func (s *SettingsService) Get() (*domain.AppSettings, error) {
	defaults := domain.DefaultAppSettings()

	settings := &domain.AppSettings{
		Render: domain.RenderSettings{
			Policy: s.getPolicy(defaults.Render.Policy),
			Window: s.getInt(keyRenderWindow, defaults.Render.Window),
			Budget: s.getInt(keyRenderBudget, defaults.Render.Budget),
		},
		Search: domain.SearchSettings{
			Limit: s.getInt(keySearchLimit, defaults.Search.Limit),
		},
		Ingest: domain.IngestSettings{
			OnDuplicate: s.getDuplicatePolicy(defaults.Ingest.OnDuplicate),
			Concurrency: s.getInt(keyIngestConcurrency, defaults.Ingest.Concurrency),
		},
		Watch: domain.WatchSettings{
			Extensions: s.getStringSlice(keyWatchExtensions, defaults.Watch.Extensions),
			Rate:       s.getFloat(keyWatchRate, defaults.Watch.Rate),
		},
	}

	return settings, nil
}

// Save persists application settings.
func (s *SettingsService) Save(settings *domain.AppSettings) error {
	// Save render settings
	if err := s.configStore.Set(keyRenderPolicy, settings.Render.Policy.String()); err != nil {
		return fmt.Errorf("save render policy: %w", err)
	}
	if err := s.configStore.Set(keyRenderWindow, settings.Render.Window); err != nil {
		return fmt.Errorf("save render window: %w", err)
	}
	if err := s.configStore.Set(keyRenderBudget, settings.Render.Budget); err != nil {
		return fmt.Errorf("save render budget: %w", err)
	}

	// Save search settings
	if err := s.configStore.Set(keySearchLimit, settings.Search.Limit); err != nil {
		return fmt.Errorf("save search limit: %w", err)
	}

	// Save ingest settings
	if err := s.configStore.Set(keyIngestDuplicate, settings.Ingest.OnDuplicate.String()); err != nil {
		return fmt.Errorf("save duplicate policy: %w", err)
	}
	if err := s.configStore.Set(keyIngestConcurrency, settings.Ingest.Concurrency); err != nil {
		return fmt.Errorf("save ingest concurrency: %w", err)
	}

	// Save watch settings
	if err := s.configStore.Set(keyWatchExtensions, settings.Watch.Extensions); err != nil {
		return fmt.Errorf("save watch extensions: %w", err)
	}
	if err := s.configStore.Set(keyWatchRate, settings.Watch.Rate); err != nil {
		return fmt.Errorf("save watch rate: %w", err)
	}

	return nil
}

// SetRenderPolicy updates the default expansion policy.
func (s *SettingsService) SetRenderPolicy(policy domain.ExpansionPolicy) error {
	if !policy.IsValid() {
		return fmt.Errorf("invalid expansion policy: %s", policy)
	}

	settings, err := s.Get()
	if err != nil {
		return err
	}
	settings.Render.Policy = policy
	return s.Save(settings)
}

// SetDuplicatePolicy updates the default duplicate policy.
func (s *SettingsService) SetDuplicatePolicy(policy domain.DuplicatePolicy) error {
	if !policy.IsValid() {
		return fmt.Errorf("invalid duplicate policy: %s", policy)
	}

	settings, err := s.Get()
	if err != nil {
		return err
	}
	settings.Ingest.OnDuplicate = policy
	return s.Save(settings)
}

// Validate checks the stored settings, including values Get would
// silently replace with defaults.
func (s *SettingsService) Validate() error {
	for _, key := range s.configStore.Keys() {
		if !knownKeys[key] {
			return fmt.Errorf("unknown setting: %s", key)
		}
	}
	if v := s.configStore.GetString(keyRenderPolicy); v != "" && !domain.ExpansionPolicy(v).IsValid() {
		return fmt.Errorf("invalid expansion policy: %s", v)
	}
	if v := s.configStore.GetString(keyIngestDuplicate); v != "" && !domain.DuplicatePolicy(v).IsValid() {
		return fmt.Errorf("invalid duplicate policy: %s", v)
	}

	settings, err := s.Get()
	if err != nil {
		return err
	}

	switch {
	case settings.Render.Window < 0:
		return fmt.Errorf("render window must not be negative: %d", settings.Render.Window)
	case settings.Render.Budget < 0:
		return fmt.Errorf("render budget must not be negative: %d", settings.Render.Budget)
	case settings.Search.Limit <= 0:
		return fmt.Errorf("search limit must be positive: %d", settings.Search.Limit)
	case settings.Ingest.Concurrency <= 0:
		return fmt.Errorf("ingest concurrency must be positive: %d", settings.Ingest.Concurrency)
	case settings.Watch.Rate <= 0:
		return fmt.Errorf("watch rate must be positive: %g", settings.Watch.Rate)
	}

	for _, ext := range settings.Watch.Extensions {
		if !strings.HasPrefix(ext, ".") || len(ext) < 2 {
			return fmt.Errorf("watch extension must look like \".md\": %q", ext)
		}
	}

	return nil
}

// GetDefaults returns default settings.
func (s *SettingsService) GetDefaults() domain.AppSettings {
	return domain.DefaultAppSettings()
}

// Helper methods for reading config with defaults.

func (s *SettingsService) getInt(key string, defaultVal int) int {
	if _, exists := s.configStore.Get(key); !exists {
		return defaultVal
	}
	return s.configStore.GetInt(key)
}

func (s *SettingsService) getFloat(key string, defaultVal float64) float64 {
	if _, exists := s.configStore.Get(key); !exists {
		return defaultVal
	}
	return s.configStore.GetFloat(key)
}

func (s *SettingsService) getStringSlice(key string, defaultVal []string) []string {
	val := s.configStore.GetStringSlice(key)
	if val == nil {
		return defaultVal
	}
	return val
}

func (s *SettingsService) getPolicy(defaultVal domain.ExpansionPolicy) domain.ExpansionPolicy {
	val := s.configStore.GetString(keyRenderPolicy)
	if val == "" {
		return defaultVal
	}
	policy := domain.ExpansionPolicy(val)
	if !policy.IsValid() {
		return defaultVal
	}
	return policy
}

func (s *SettingsService) getDuplicatePolicy(defaultVal domain.DuplicatePolicy) domain.DuplicatePolicy {
	val := s.configStore.GetString(keyIngestDuplicate)
	if val == "" {
		return defaultVal
	}
	policy := domain.DuplicatePolicy(val)
	if !policy.IsValid() {
		return defaultVal
	}
	return policy
}
