package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

// Manager wraps viper with a stable on-disk location and serialized writes.
type Manager struct {
	Path string

	mu sync.Mutex
	vp *viper.Viper
}

// Load reads (creating if absent) the named config file. When configPath is
// empty the file lives under dir; otherwise configPath is used as-is.
func Load(dir, name, configPath string) (*Manager, error) {
	vp := viper.New()

	if configPath != "" {
		dir = filepath.Dir(configPath)
		base := filepath.Base(configPath)
		ext := filepath.Ext(base)
		if ext != "" {
			vp.SetConfigType(strings.TrimPrefix(ext, "."))
			name = strings.TrimSuffix(base, ext)
		} else {
			name = base
		}
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}

	vp.SetConfigName(name)
	vp.SetConfigType("json")
	vp.AddConfigPath(dir)
	vp.SetEnvPrefix("TGFLOW")
	vp.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	vp.AutomaticEnv()

	if err := vp.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
		path := filepath.Join(dir, name+".json")
		if err := vp.SafeWriteConfigAs(path); err != nil {
			log.Debug().Err(err).Str("path", path).Msg("write initial config failed")
		}
	}

	return &Manager{Path: dir, vp: vp}, nil
}

// Unmarshal decodes the whole config into out.
func (m *Manager) Unmarshal(out any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.vp.Unmarshal(out)
}

// Get returns the raw value for key.
func (m *Manager) Get(key string) any {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.vp.Get(key)
}

// SetConfig updates one key and writes the file back.
func (m *Manager) SetConfig(key string, value any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.vp.Set(key, value)
	return m.vp.WriteConfig()
}

// SetDefault registers a fallback for key without persisting it.
func (m *Manager) SetDefault(key string, value any) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.vp.SetDefault(key, value)
}
