package config

import "time"

const (
	DefaultTimeZone = "Asia/Kolkata"

	// Upload pipeline tunables
	BatchSize          = 2000
	MaxInFlightBatches = 3
	WriteChunkSize     = 500
	MaxUploadMB        = 50
	RecentResults      = 20

	DefaultUploadAddr = ":6143"

	// Audit retention sweeper
	DefaultAuditSchedule      = "0 2 * * *"
	DefaultAuditRetentionDays = 90
	AuditCollection           = "uploadaudits"

	DefaultHeartbeatInterval = 30 * time.Second
)

// UploadConfig carries the batch orchestration knobs read from services.yaml.
type UploadConfig struct {
	Addr           string
	BatchSize      int
	MaxInFlight    int
	WriteChunkSize int
	MaxUploadBytes int64
	RecentResults  int
}

func DefaultUploadConfig() UploadConfig {
	return UploadConfig{
		Addr:           DefaultUploadAddr,
		BatchSize:      BatchSize,
		MaxInFlight:    MaxInFlightBatches,
		WriteChunkSize: WriteChunkSize,
		MaxUploadBytes: MaxUploadMB << 20,
		RecentResults:  RecentResults,
	}
}

// UploadConfigFrom overlays values present in a service config map onto the defaults.
func UploadConfigFrom(cfg map[string]interface{}) UploadConfig {
	out := DefaultUploadConfig()
	if cfg == nil {
		return out
	}
	if v, ok := cfg["addr"].(string); ok && v != "" {
		out.Addr = v
	}
	if v := ToInt(cfg["batch_size"]); v > 0 {
		out.BatchSize = v
	}
	if v := ToInt(cfg["max_in_flight"]); v > 0 {
		out.MaxInFlight = v
	}
	if v := ToInt(cfg["write_chunk_size"]); v > 0 {
		out.WriteChunkSize = v
	}
	if v := ToInt(cfg["max_upload_mb"]); v > 0 {
		out.MaxUploadBytes = int64(v) << 20
	}
	if v := ToInt(cfg["recent_results"]); v > 0 {
		out.RecentResults = v
	}
	return out
}

// ToInt accepts the numeric shapes yaml.v3 produces for untyped config values.
func ToInt(v interface{}) int {
	switch t := v.(type) {
	case int:
		return t
	case int64:
		return int(t)
	case float64:
		return int(t)
	}
	return 0
}
