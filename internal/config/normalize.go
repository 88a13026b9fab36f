package config

func Normalize(cfg Config) Config {
	def := DefaultConfig()
	if cfg.Version == 0 {
		cfg.Version = SchemaVersion
	}
	if cfg.Timezone == "" {
		cfg.Timezone = def.Timezone
	}
	if cfg.Window.Start == "" {
		cfg.Window.Start = def.Window.Start
	}
	if cfg.Window.End == "" {
		cfg.Window.End = def.Window.End
	}
	if cfg.Window.Days == "" {
		cfg.Window.Days = def.Window.Days
	}
	if cfg.Kickoff.Prompt == "" {
		cfg.Kickoff.Prompt = def.Kickoff.Prompt
	}
	if cfg.Assistant.Command == "" {
		cfg.Assistant.Command = def.Assistant.Command
	}
	if cfg.Assistant.Timeout == "" {
		cfg.Assistant.Timeout = def.Assistant.Timeout
	}
	if cfg.Monitor.Command == "" {
		cfg.Monitor.Command = def.Monitor.Command
		if cfg.Monitor.Args == nil {
			cfg.Monitor.Args = def.Monitor.Args
		}
	}
	if cfg.Monitor.Timeout == "" {
		cfg.Monitor.Timeout = def.Monitor.Timeout
	}
	if cfg.Monitor.BackoffStart == "" {
		cfg.Monitor.BackoffStart = def.Monitor.BackoffStart
	}
	if cfg.Monitor.BackoffMax == "" {
		cfg.Monitor.BackoffMax = def.Monitor.BackoffMax
	}
	if cfg.Monitor.Fallback == "" {
		cfg.Monitor.Fallback = def.Monitor.Fallback
	}
	if cfg.Monitor.ResetBuffer == "" {
		cfg.Monitor.ResetBuffer = def.Monitor.ResetBuffer
	}
	if cfg.Power.PreWake == "" {
		cfg.Power.PreWake = def.Power.PreWake
	}
	if cfg.Storage.Root == "" {
		cfg.Storage.Root = def.Storage.Root
	}
	return cfg
}
