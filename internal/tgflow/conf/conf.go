package conf

import (
	"path/filepath"
	"strings"

	"github.com/ysy950803/tgflow/pkg/config"
	"github.com/ysy950803/tgflow/pkg/util"
)

const (
	DefaultHTTPAddr   = "127.0.0.1:5040"
	DefaultGatewayURL = "ws://127.0.0.1:8089/gateway"

	SessionDriverFile   = "file"
	SessionDriverSQLite = "sqlite"
)

// ServiceConfig drives one tgflow instance.
type ServiceConfig struct {
	GatewayURL string `mapstructure:"gateway_url" json:"gateway_url"`

	SessionDriver string `mapstructure:"session_driver" json:"session_driver"`
	SessionPath   string `mapstructure:"session_path" json:"session_path"`
	WatchSession  bool   `mapstructure:"watch_session" json:"watch_session"`

	HTTPEnabled bool   `mapstructure:"http_enabled" json:"http_enabled"`
	HTTPAddr    string `mapstructure:"http_addr" json:"http_addr"`

	// AllowedTopics filters dispatched messages to these forum topics.
	// Empty means no topic filter.
	AllowedTopics []int `mapstructure:"allowed_topics" json:"allowed_topics"`

	// ReplyText, when set, is sent as a reply to every incoming message
	// that passes the topic filter.
	ReplyText string `mapstructure:"reply_text" json:"reply_text"`

	// MaxInFlight bounds concurrent handler tasks. 0 means unbounded.
	MaxInFlight int `mapstructure:"max_in_flight" json:"max_in_flight"`

	WorkDir string `mapstructure:"work_dir" json:"work_dir"`
}

// LoadServiceConfig reads the config file (or creates it with defaults) and
// applies cmdConf overrides from command-line flags.
func LoadServiceConfig(configPath string, cmdConf map[string]any) (*ServiceConfig, *config.Manager, error) {
	workDir := util.DefaultWorkDir("")
	if err := util.PrepareDir(workDir); err != nil {
		return nil, nil, err
	}

	cm, err := config.Load(workDir, "tgflow", configPath)
	if err != nil {
		return nil, nil, err
	}

	cm.SetDefault("gateway_url", DefaultGatewayURL)
	cm.SetDefault("session_driver", SessionDriverFile)
	cm.SetDefault("session_path", filepath.Join(workDir, "session.json"))
	cm.SetDefault("watch_session", true)
	cm.SetDefault("http_enabled", true)
	cm.SetDefault("http_addr", DefaultHTTPAddr)
	cm.SetDefault("work_dir", workDir)

	for k, v := range cmdConf {
		if v == nil {
			continue
		}
		if err := cm.SetConfig(k, v); err != nil {
			return nil, nil, err
		}
	}

	sc := &ServiceConfig{}
	if err := cm.Unmarshal(sc); err != nil {
		return nil, nil, err
	}
	sc.normalize()
	return sc, cm, nil
}

func (sc *ServiceConfig) normalize() {
	sc.SessionDriver = strings.ToLower(strings.TrimSpace(sc.SessionDriver))
	if sc.SessionDriver == "" {
		sc.SessionDriver = SessionDriverFile
	}
	if sc.HTTPAddr == "" {
		sc.HTTPAddr = DefaultHTTPAddr
	}
	if sc.GatewayURL == "" {
		sc.GatewayURL = DefaultGatewayURL
	}
}

func (sc *ServiceConfig) GetHTTPAddr() string {
	return sc.HTTPAddr
}

func (sc *ServiceConfig) IsHTTPEnabled() bool {
	return sc.HTTPEnabled
}
