package config

// Config is the frozen v1 schema for the wakeprime daemon.
type Config struct {
	Version   int             `toml:"version"`
	Timezone  string          `toml:"timezone" json:"timezone"`
	Window    WindowConfig    `toml:"window" json:"window"`
	Kickoff   KickoffConfig   `toml:"kickoff" json:"kickoff"`
	Assistant AssistantConfig `toml:"assistant" json:"assistant"`
	Monitor   MonitorConfig   `toml:"monitor" json:"monitor"`
	Power     PowerConfig     `toml:"power" json:"power"`
	Storage   StorageConfig   `toml:"storage" json:"storage"`
	Logging   LoggingConfig   `toml:"logging" json:"logging"`
}

// WindowConfig bounds the daily active window. Cron, when set, replaces
// Start+Days for computing window opens.
type WindowConfig struct {
	Start string `toml:"start" json:"start"`
	End   string `toml:"end" json:"end"`
	Days  string `toml:"days" json:"days"`
	Cron  string `toml:"cron,omitempty" json:"cron,omitempty"`
}

type KickoffConfig struct {
	Prompt string `toml:"prompt" json:"prompt"`
	Model  string `toml:"model,omitempty" json:"model,omitempty"`
}

type AssistantConfig struct {
	Command    string `toml:"command" json:"command"`
	Timeout    string `toml:"timeout" json:"timeout"`
	MinVersion string `toml:"min_version,omitempty" json:"minVersion,omitempty"`
}

// MonitorConfig drives the reset probe: which tool to run and how hard to
// retry when its output does not parse.
type MonitorConfig struct {
	Command      string   `toml:"command" json:"command"`
	Args         []string `toml:"args" json:"args"`
	Timeout      string   `toml:"timeout" json:"timeout"`
	BackoffStart string   `toml:"backoff_start" json:"backoffStart"`
	BackoffMax   string   `toml:"backoff_max" json:"backoffMax"`
	Fallback     string   `toml:"fallback" json:"fallback"`
	ResetBuffer  string   `toml:"reset_buffer" json:"resetBuffer"`
}

type PowerConfig struct {
	KeepAwake       bool   `toml:"keep_awake" json:"keepAwake"`
	PreWake         string `toml:"pre_wake" json:"preWake"`
	ForceSleepAtEnd bool   `toml:"force_sleep_at_end" json:"forceSleepAtEnd"`
}

type StorageConfig struct {
	Root string `toml:"root" json:"root"`
}

type LoggingConfig struct {
	Path string `toml:"path,omitempty" json:"path,omitempty"`
}
