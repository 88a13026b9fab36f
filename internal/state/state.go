// Package state persists the daemon's last-known progress so status can
// report it across restarts.
package state

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/pelletier/go-toml/v2"

	"wakeprime/internal/fsutil"
)

const StateVersion = 1

type State struct {
	Version         int       `toml:"version" json:"version"`
	DaemonPID       int       `toml:"daemon_pid,omitempty" json:"daemonPid,omitempty"`
	DaemonStartedAt time.Time `toml:"daemon_started_at,omitempty" json:"daemonStartedAt,omitzero"`
	LastKickoff     time.Time `toml:"last_kickoff,omitempty" json:"lastKickoff,omitzero"`
	LastReset       time.Time `toml:"last_reset,omitempty" json:"lastReset,omitzero"`
	LastResetGuess  bool      `toml:"last_reset_guess,omitempty" json:"lastResetGuess,omitempty"`
	LastPrime       time.Time `toml:"last_prime,omitempty" json:"lastPrime,omitzero"`
}

func Path(root string) string {
	return filepath.Join(root, "state.toml")
}

func Load(root string) (State, error) {
	blob, err := os.ReadFile(Path(root))
	if err != nil {
		if os.IsNotExist(err) {
			return State{Version: StateVersion}, nil
		}
		return State{}, err
	}
	var st State
	if err := toml.Unmarshal(blob, &st); err != nil {
		return State{}, fmt.Errorf("STATE_PARSE: %w", err)
	}
	if st.Version == 0 {
		st.Version = StateVersion
	}
	if st.Version != StateVersion {
		return State{}, fmt.Errorf("STATE_VERSION: unsupported state version %d", st.Version)
	}
	return st, nil
}

func Save(root string, st State) error {
	st.Version = StateVersion
	blob, err := toml.Marshal(st)
	if err != nil {
		return fmt.Errorf("STATE_ENCODE: %w", err)
	}
	return fsutil.AtomicWrite(Path(root), blob, 0o644)
}

// Update applies mutate to the stored state, best effort read-modify-write.
// The daemon is the only writer so no locking is needed.
func Update(root string, mutate func(*State)) error {
	st, err := Load(root)
	if err != nil {
		st = State{Version: StateVersion}
	}
	mutate(&st)
	return Save(root, st)
}
