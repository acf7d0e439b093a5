package appconfig

import (
	"os"
	"path/filepath"
	"time"

	"pkt.systems/courtside/schema"
)

// Config is the top-level application configuration.
type Config struct {
	ConfigVersion int              `mapstructure:"config_version" yaml:"config_version"`
	Authority     AuthorityConfig  `mapstructure:"authority" yaml:"authority"`
	Console       ConsoleConfig    `mapstructure:"console" yaml:"console"`
	HTTP          HTTPConfig       `mapstructure:"http" yaml:"http"`
	SSH           SSHConfig        `mapstructure:"ssh" yaml:"ssh"`
	Operators     []OperatorConfig `mapstructure:"operators" yaml:"operators"`
}

// CurrentConfigVersion marks the supported config version.
const CurrentConfigVersion = 1

// Authority transports.
const (
	TransportWebSocket = "websocket"
	TransportNATS      = "nats"
)

// AuthorityConfig selects and configures the Command Channel transport.
type AuthorityConfig struct {
	Transport         string        `mapstructure:"transport" yaml:"transport"`
	URL               string        `mapstructure:"url" yaml:"url"`
	NATSSubjectPrefix string        `mapstructure:"nats_subject_prefix" yaml:"nats_subject_prefix"`
	CommandTimeout    time.Duration `mapstructure:"command_timeout" yaml:"command_timeout"`
	ReconnectWait     time.Duration `mapstructure:"reconnect_wait" yaml:"reconnect_wait"`
	MockAddr          string        `mapstructure:"mock_addr" yaml:"mock_addr"`
}

// ConsoleConfig controls the operator console shared by every embedding.
type ConsoleConfig struct {
	Variant      string        `mapstructure:"variant" yaml:"variant"`
	ToastShow    time.Duration `mapstructure:"toast_show" yaml:"toast_show"`
	ToastVisible time.Duration `mapstructure:"toast_visible" yaml:"toast_visible"`
	ToastFade    time.Duration `mapstructure:"toast_fade" yaml:"toast_fade"`
	Catalog      CatalogConfig `mapstructure:"catalog" yaml:"catalog"`
}

// CatalogConfig lists the options offered by the match-setup and template selectors.
type CatalogConfig struct {
	Teams             []CatalogOption `mapstructure:"teams" yaml:"teams"`
	GameTypes         []CatalogOption `mapstructure:"game_types" yaml:"game_types"`
	OperatorTemplates []CatalogOption `mapstructure:"operator_templates" yaml:"operator_templates"`
	DisplayTemplates  []CatalogOption `mapstructure:"display_templates" yaml:"display_templates"`
}

// CatalogOption is one selectable value with its display label.
type CatalogOption struct {
	Value string `mapstructure:"value" yaml:"value"`
	Label string `mapstructure:"label" yaml:"label"`
}

// HTTPConfig configures the HTTP API.
type HTTPConfig struct {
	Addr           string   `mapstructure:"addr" yaml:"addr"`
	BasePath       string   `mapstructure:"base_path" yaml:"base_path"`
	AllowedOrigins []string `mapstructure:"allowed_origins" yaml:"allowed_origins"`
}

// SSHConfig configures the terminal console server.
type SSHConfig struct {
	Addr              string        `mapstructure:"addr" yaml:"addr"`
	HostKeyPath       string        `mapstructure:"host_key_path" yaml:"host_key_path"`
	KeepaliveInterval time.Duration `mapstructure:"keepalive_interval" yaml:"keepalive_interval"`
	RenderInterval    time.Duration `mapstructure:"render_interval" yaml:"render_interval"`
}

// OperatorConfig declares an operator allowed onto the terminal console.
type OperatorConfig struct {
	Name         string   `mapstructure:"name" yaml:"name"`
	LoginPubKeys []string `mapstructure:"login_pubkeys" yaml:"login_pubkeys"`
	TOTPSecret   string   `mapstructure:"totp_secret" yaml:"totp_secret"`
}

// DefaultConfig returns a config with sensible defaults.
func DefaultConfig() (Config, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return Config{}, err
	}
	return Config{
		ConfigVersion: CurrentConfigVersion,
		Authority: AuthorityConfig{
			Transport:         TransportWebSocket,
			URL:               "ws://127.0.0.1:27490/ws",
			NATSSubjectPrefix: "courtside",
			CommandTimeout:    5 * time.Second,
			ReconnectWait:     500 * time.Millisecond,
			MockAddr:          "127.0.0.1:27490",
		},
		Console: ConsoleConfig{
			Variant:      string(schema.VariantPanel),
			ToastShow:    20 * time.Millisecond,
			ToastVisible: 3200 * time.Millisecond,
			ToastFade:    320 * time.Millisecond,
			Catalog: CatalogConfig{
				Teams: []CatalogOption{
					{Value: "1", Label: "Home"},
					{Value: "2", Label: "Away"},
				},
				GameTypes: []CatalogOption{
					{Value: "1", Label: "Basketball 4x10"},
					{Value: "2", Label: "Basketball 4x12"},
				},
				OperatorTemplates: []CatalogOption{
					{Value: "classic", Label: "Classic"},
					{Value: "compact", Label: "Compact"},
				},
				DisplayTemplates: []CatalogOption{
					{Value: "classic", Label: "Classic"},
					{Value: "arena", Label: "Arena"},
				},
			},
		},
		HTTP: HTTPConfig{
			Addr:           ":27480",
			AllowedOrigins: []string{},
		},
		SSH: SSHConfig{
			Addr:              ":27422",
			HostKeyPath:       filepath.Join(home, ".courtside", "ssh_host_key"),
			KeepaliveInterval: 30 * time.Second,
			RenderInterval:    250 * time.Millisecond,
		},
		Operators: []OperatorConfig{},
	}, nil
}

// DefaultConfigPath returns the standard config path.
func DefaultConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".courtside", "config.yaml"), nil
}
