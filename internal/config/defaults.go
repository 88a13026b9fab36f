package config

const (
	SchemaVersion = 1
)

// DefaultConfig returns a fully-populated v1 config document.
func DefaultConfig() Config {
	return Config{
		Version:  SchemaVersion,
		Timezone: "Europe/London",
		Window: WindowConfig{
			Start: "06:00",
			End:   "23:00",
			Days:  "MTWRFSU",
		},
		Kickoff: KickoffConfig{
			Prompt: "ping",
		},
		Assistant: AssistantConfig{
			Command: "claude",
			Timeout: "60s",
		},
		Monitor: MonitorConfig{
			Command:      "claude-monitor",
			Args:         []string{"--clear"},
			Timeout:      "20s",
			BackoffStart: "2s",
			BackoffMax:   "60s",
			Fallback:     "5h",
			ResetBuffer:  "3s",
		},
		Power: PowerConfig{
			KeepAwake:       true,
			PreWake:         "2m",
			ForceSleepAtEnd: false,
		},
		Storage: StorageConfig{
			Root: "~/.wakeprime",
		},
	}
}
