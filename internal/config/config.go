// Package config loads daemon configuration from a config file and the
// environment, and notifies on runtime changes so the scripts root can be
// swapped without a restart.
package config

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// Config is the resolved daemon configuration.
type Config struct {
	// ScriptsRoot is the directory presented as the scripts tree base.
	ScriptsRoot string
	// Recursive watches subdirectories of the root as well.
	Recursive bool
	// Debounce batches rapid filesystem changes into one refresh.
	Debounce time.Duration
	// ServerPort is the host bridge listen port.
	ServerPort int
	// LogFile, when set, routes daemon logs through a rotating file.
	LogFile string
	// HistoryPath is the sqlite file recording statement runs.
	HistoryPath string
	// ConnectionsFile is the TOML file defining named connections.
	ConnectionsFile string
}

// Manager owns the viper instance behind a Config and re-reads it when the
// config file changes on disk.
type Manager struct {
	v *viper.Viper

	mu       sync.Mutex
	current  Config
	onChange func(Config)
}

// Load reads configuration from path (optional; empty means defaults and
// environment only). Environment variables use the SQLSCRIPTS_ prefix, with
// dots replaced by underscores (SQLSCRIPTS_SCRIPTS_ROOT and so on).
func Load(path string) (*Manager, error) {
	v := viper.New()

	v.SetDefault("scripts.root", "scripts")
	v.SetDefault("scripts.recursive", true)
	v.SetDefault("debounce", "100ms")
	v.SetDefault("server.port", 7531)
	v.SetDefault("log.file", "")
	v.SetDefault("history.path", ".sqlscripts/history.db")
	v.SetDefault("connections.file", "")

	v.SetEnvPrefix("SQLSCRIPTS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config %s: %w", path, err)
		}
	}

	m := &Manager{v: v}
	m.current = m.snapshot()
	return m, nil
}

// Current returns the most recently loaded configuration.
func (m *Manager) Current() Config {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current
}

// Watch re-reads the config file whenever it changes and invokes onChange
// with the new snapshot. Requires a config file path to have been given to
// Load; without one this is a no-op.
func (m *Manager) Watch(onChange func(Config)) {
	m.mu.Lock()
	m.onChange = onChange
	m.mu.Unlock()

	if m.v.ConfigFileUsed() == "" {
		return
	}

	m.v.OnConfigChange(func(fsnotify.Event) {
		cfg := m.snapshot()

		m.mu.Lock()
		changed := cfg != m.current
		m.current = cfg
		fn := m.onChange
		m.mu.Unlock()

		if changed && fn != nil {
			fn(cfg)
		}
	})
	m.v.WatchConfig()
}

func (m *Manager) snapshot() Config {
	return Config{
		ScriptsRoot:     m.v.GetString("scripts.root"),
		Recursive:       m.v.GetBool("scripts.recursive"),
		Debounce:        m.v.GetDuration("debounce"),
		ServerPort:      m.v.GetInt("server.port"),
		LogFile:         m.v.GetString("log.file"),
		HistoryPath:     m.v.GetString("history.path"),
		ConnectionsFile: m.v.GetString("connections.file"),
	}
}
