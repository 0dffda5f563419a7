package domain

// RenderSettings holds default filtered-render behaviour.
type RenderSettings struct {
	// Policy is the default expansion policy.
	Policy ExpansionPolicy

	// Window is the default sibling radius.
	Window int

	// Budget is the default output cap in bytes. Zero means unlimited.
	Budget int
}

// SearchSettings holds search behaviour settings.
type SearchSettings struct {
	// Limit is the default number of results.
	Limit int
}

// IngestSettings holds ingest behaviour settings.
type IngestSettings struct {
	// OnDuplicate is the default duplicate policy.
	OnDuplicate DuplicatePolicy

	// Concurrency bounds parallel document ingests in batch mode.
	Concurrency int
}

// WatchSettings holds filesystem watch settings.
type WatchSettings struct {
	// Extensions are the file extensions picked up by walk and watch.
	Extensions []string

	// Rate is the maximum number of re-ingests per second.
	Rate float64
}

// AppSettings holds all application settings.
type AppSettings struct {
	Render RenderSettings
	Search SearchSettings
	Ingest IngestSettings
	Watch  WatchSettings
}

// DefaultAppSettings returns settings with sensible defaults.
func DefaultAppSettings() AppSettings {
	return AppSettings{
		Render: RenderSettings{
			Policy: PolicyAncestors,
			Window: 1,
			Budget: 0,
		},
		Search: SearchSettings{
			Limit: 20,
		},
		Ingest: IngestSettings{
			OnDuplicate: DuplicateFail,
			Concurrency: 4,
		},
		Watch: WatchSettings{
			Extensions: []string{".md", ".markdown", ".txt"},
			Rate:       5,
		},
	}
}

// AllExpansionPolicies returns all available expansion policies.
func AllExpansionPolicies() []ExpansionPolicy {
	return []ExpansionPolicy{
		PolicyDirect,
		PolicyAncestors,
		PolicySiblings,
	}
}

// AllDuplicatePolicies returns all available duplicate policies.
func AllDuplicatePolicies() []DuplicatePolicy {
	return []DuplicatePolicy{
		DuplicateFail,
		DuplicateSkip,
		DuplicateReplace,
	}
}
