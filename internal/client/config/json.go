package config

import (
	"encoding/json"
	"os"
	"time"

	"github.com/ankravcenko/medikeep/internal/flagx"
	"github.com/ankravcenko/medikeep/internal/timex"
)

// JsonConfig is a DTO used exclusively for JSON unmarshalling. Durations
// rely on timex.Duration so JSON can specify them either as strings like
// "30s" or as integer nanoseconds.
type JsonConfig struct {
	ServerBaseURL    string         `json:"server_base_url"`
	DatabaseFile     string         `json:"database_file"`
	PushInterval     timex.Duration `json:"push_interval"`
	RequestTimeout   timex.Duration `json:"request_timeout"`
	RemindersEnabled *bool          `json:"reminders_enabled"`
}

// parseJson overlays Config with values loaded from a JSON file. The file
// path comes from the -c/-config flags; when absent nothing is loaded.
// Zero-valued JSON fields leave the existing Config values in place.
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

	if jc.ServerBaseURL != "" {
		cfg.ServerBaseURL = jc.ServerBaseURL
	}
	if jc.DatabaseFile != "" {
		cfg.DatabaseFile = jc.DatabaseFile
	}
	if jc.PushInterval.Duration != 0 {
		cfg.PushInterval = time.Duration(jc.PushInterval.Duration)
	}
	if jc.RequestTimeout.Duration != 0 {
		cfg.RequestTimeout = time.Duration(jc.RequestTimeout.Duration)
	}
	if jc.RemindersEnabled != nil {
		cfg.RemindersEnabled = *jc.RemindersEnabled
	}
}
