package config

// FeatureFlags toggles the optional background behaviors. All of them default
// to on; turning one off disables the corresponding scheduler job without
// touching the rest of the service.
type FeatureFlags struct {
	// LiveReport enables the periodically edited live report message.
	LiveReport bool

	// DailyReport enables the after-midnight final ranking message.
	DailyReport bool

	// ExpirySweep enables the periodic sweep job. The opportunistic sweep at
	// the command boundary always runs.
	ExpirySweep bool

	// SnapshotCache enables the Redis-backed ranking cache.
	SnapshotCache bool
}

// LoadFeatureFlags loads feature flags from environment variables.
func LoadFeatureFlags() *FeatureFlags {
	return &FeatureFlags{
		LiveReport:    getEnvBool("FEATURE_LIVE_REPORT", true),
		DailyReport:   getEnvBool("FEATURE_DAILY_REPORT", true),
		ExpirySweep:   getEnvBool("FEATURE_EXPIRY_SWEEP", true),
		SnapshotCache: getEnvBool("FEATURE_SNAPSHOT_CACHE", true),
	}
}
