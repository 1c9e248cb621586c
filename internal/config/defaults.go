package config

// Default returns a configuration populated with default values. Paths are
// not expanded; Load handles that after merging the file on top.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir:    "~/.local/share/vinflow",
			LogDir:     "~/.local/share/vinflow/logs",
			SocketPath: "~/.local/share/vinflow/vinflow.sock",
		},
		Pipeline: Pipeline{
			DailyHoldingCost:   32,
			AgingThresholdDays: 5,
			TransitionRetries:  3,
		},
		Notifications: Notifications{
			RequestTimeout: 10,
			Priority:       true,
			Approval:       true,
			Parts:          true,
			Aging:          true,
			Errors:         true,
		},
		Logging: Logging{
			Format: "auto",
			Level:  "info",
		},
	}
}
