package config

import (
	"encoding/json"
	"os"

	"github.com/dmitrijs2005/sessionkeeper/internal/flagx"
	"github.com/dmitrijs2005/sessionkeeper/internal/timex"
)

// JsonConfig is a DTO used exclusively for JSON unmarshalling. Durations
// accept "90s", "30d" or integer nanoseconds.
type JsonConfig struct {
	ServerEndpointAddr   string         `json:"server_endpoint_addr"`
	Transport            string         `json:"transport"`
	DatabasePath         string         `json:"database_path"`
	ValidityWindow       timex.Duration `json:"validity_window"`
	WarningWindow        timex.Duration `json:"warning_window"`
	SessionCheckInterval timex.Duration `json:"session_check_interval"`
	RequestTimeout       timex.Duration `json:"request_timeout"`
	LogLevel             string         `json:"log_level"`
	DeviceSecret         string         `json:"device_secret"`
}

// parseJson overlays cfg with the fields present in the JSON file named by
// -c/-config (or SESSIONKEEPER_CONFIG). Absent fields keep their current
// values. Read or decode errors panic.
func parseJson(cfg *Config) {
	jsonConfigFile := flagx.JsonConfigFlags()
	if jsonConfigFile == "" {
		return
	}

	var jc JsonConfig

	data, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}
	if err := json.Unmarshal(data, &jc); err != nil {
		panic(err)
	}

	overlay(&cfg.ServerEndpointAddr, jc.ServerEndpointAddr)
	overlay(&cfg.Transport, jc.Transport)
	overlay(&cfg.DatabasePath, jc.DatabasePath)
	overlay(&cfg.ValidityWindow, jc.ValidityWindow.Duration)
	overlay(&cfg.WarningWindow, jc.WarningWindow.Duration)
	overlay(&cfg.SessionCheckInterval, jc.SessionCheckInterval.Duration)
	overlay(&cfg.RequestTimeout, jc.RequestTimeout.Duration)
	overlay(&cfg.LogLevel, jc.LogLevel)
	overlay(&cfg.DeviceSecret, jc.DeviceSecret)
}

func overlay[T comparable](dst *T, v T) {
	var zero T
	if v != zero {
		*dst = v
	}
}
