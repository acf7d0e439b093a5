package appconfig

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"pkt.systems/courtside/schema"
)

// Load reads configuration from the provided path. If path is empty, uses DefaultConfigPath.
func Load(path string) (Config, error) {
	if path == "" {
		defaultPath, err := DefaultConfigPath()
		if err != nil {
			return Config{}, err
		}
		path = defaultPath
	}

	cfg, err := DefaultConfig()
	if err != nil {
		return Config{}, err
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.SetDefault("config_version", cfg.ConfigVersion)
	v.SetDefault("authority.transport", cfg.Authority.Transport)
	v.SetDefault("authority.url", cfg.Authority.URL)
	v.SetDefault("authority.nats_subject_prefix", cfg.Authority.NATSSubjectPrefix)
	v.SetDefault("authority.command_timeout", cfg.Authority.CommandTimeout)
	v.SetDefault("authority.reconnect_wait", cfg.Authority.ReconnectWait)
	v.SetDefault("authority.mock_addr", cfg.Authority.MockAddr)
	v.SetDefault("console.variant", cfg.Console.Variant)
	v.SetDefault("console.toast_show", cfg.Console.ToastShow)
	v.SetDefault("console.toast_visible", cfg.Console.ToastVisible)
	v.SetDefault("console.toast_fade", cfg.Console.ToastFade)
	v.SetDefault("console.catalog.teams", cfg.Console.Catalog.Teams)
	v.SetDefault("console.catalog.game_types", cfg.Console.Catalog.GameTypes)
	v.SetDefault("console.catalog.operator_templates", cfg.Console.Catalog.OperatorTemplates)
	v.SetDefault("console.catalog.display_templates", cfg.Console.Catalog.DisplayTemplates)
	v.SetDefault("http.addr", cfg.HTTP.Addr)
	v.SetDefault("http.base_path", cfg.HTTP.BasePath)
	v.SetDefault("http.allowed_origins", cfg.HTTP.AllowedOrigins)
	v.SetDefault("ssh.addr", cfg.SSH.Addr)
	v.SetDefault("ssh.host_key_path", cfg.SSH.HostKeyPath)
	v.SetDefault("ssh.keepalive_interval", cfg.SSH.KeepaliveInterval)
	v.SetDefault("ssh.render_interval", cfg.SSH.RenderInterval)
	v.SetDefault("operators", cfg.Operators)

	configLoaded := false
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok && !os.IsNotExist(err) {
			return Config{}, err
		}
	} else {
		configLoaded = true
	}

	if configLoaded {
		if !v.InConfig("config_version") {
			return Config{}, fmt.Errorf("config_version is required; expected %d", CurrentConfigVersion)
		}
		if v.GetInt("config_version") != CurrentConfigVersion {
			return Config{}, fmt.Errorf("unsupported config_version %d; expected %d", v.GetInt("config_version"), CurrentConfigVersion)
		}
	}

	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, err
	}
	expandConfigEnv(&cfg)
	if err := validate(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func validate(cfg Config) error {
	if err := validateAuthorityConfig(cfg.Authority); err != nil {
		return err
	}
	if _, err := schema.NormalizeVariant(cfg.Console.Variant); err != nil {
		return fmt.Errorf("console.variant: %w", err)
	}
	if cfg.Console.ToastShow < 0 || cfg.Console.ToastVisible < 0 || cfg.Console.ToastFade < 0 {
		return fmt.Errorf("console toast durations must not be negative")
	}
	for _, opt := range cfg.Console.Catalog.OperatorTemplates {
		if _, ok := schema.NormalizeTemplateID(opt.Value); !ok {
			return fmt.Errorf("console.catalog.operator_templates: invalid template id %q", opt.Value)
		}
	}
	for _, opt := range cfg.Console.Catalog.DisplayTemplates {
		if _, ok := schema.NormalizeTemplateID(opt.Value); !ok {
			return fmt.Errorf("console.catalog.display_templates: invalid template id %q", opt.Value)
		}
	}
	seen := make(map[string]struct{}, len(cfg.Operators))
	for i, op := range cfg.Operators {
		if err := schema.ValidateOperatorID(schema.OperatorID(op.Name)); err != nil {
			return fmt.Errorf("operators[%d]: %w", i, err)
		}
		if _, dup := seen[op.Name]; dup {
			return fmt.Errorf("operators[%d]: duplicate operator %q", i, op.Name)
		}
		seen[op.Name] = struct{}{}
	}
	return nil
}

func validateAuthorityConfig(cfg AuthorityConfig) error {
	raw := strings.TrimSpace(cfg.URL)
	if raw == "" {
		return fmt.Errorf("authority.url is required")
	}
	parsed, err := url.Parse(raw)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return fmt.Errorf("authority.url must include scheme and host (e.g. ws://127.0.0.1:27490/ws)")
	}
	switch cfg.Transport {
	case TransportWebSocket:
		if parsed.Scheme != "ws" && parsed.Scheme != "wss" {
			return fmt.Errorf("authority.url must use ws or wss for the websocket transport")
		}
	case TransportNATS:
		if parsed.Scheme != "nats" && parsed.Scheme != "tls" {
			return fmt.Errorf("authority.url must use nats or tls for the nats transport")
		}
		if strings.TrimSpace(cfg.NATSSubjectPrefix) == "" {
			return fmt.Errorf("authority.nats_subject_prefix is required for the nats transport")
		}
	default:
		return fmt.Errorf("unsupported authority.transport %q", cfg.Transport)
	}
	if cfg.CommandTimeout <= 0 {
		return fmt.Errorf("authority.command_timeout must be positive")
	}
	return nil
}

func expandConfigEnv(cfg *Config) {
	if cfg == nil {
		return
	}
	cfg.Authority.URL = expandEnv(cfg.Authority.URL)
	cfg.Authority.MockAddr = expandEnv(cfg.Authority.MockAddr)
	cfg.HTTP.Addr = expandEnv(cfg.HTTP.Addr)
	cfg.SSH.Addr = expandEnv(cfg.SSH.Addr)
	cfg.SSH.HostKeyPath = expandPath(expandEnv(cfg.SSH.HostKeyPath))
	for i := range cfg.Operators {
		cfg.Operators[i].TOTPSecret = expandEnv(cfg.Operators[i].TOTPSecret)
	}
}

func expandEnv(value string) string {
	if value == "" {
		return value
	}
	return os.Expand(value, func(key string) string {
		if key == "" {
			return ""
		}
		if val, ok := lookupEnv(key); ok {
			return val
		}
		return "$" + key
	})
}

func expandPath(value string) string {
	if value != "~" && !strings.HasPrefix(value, "~/") {
		return value
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return value
	}
	return filepath.Join(home, strings.TrimPrefix(value, "~"))
}

func lookupEnv(key string) (string, bool) {
	if val, ok := os.LookupEnv(key); ok {
		return val, true
	}
	switch key {
	case "UID":
		return fmt.Sprintf("%d", os.Getuid()), true
	case "GID":
		return fmt.Sprintf("%d", os.Getgid()), true
	}
	return "", false
}

// WriteDefault writes the default config to the target path.
func WriteDefault(path string, overwrite bool) (string, error) {
	if path == "" {
		defaultPath, err := DefaultConfigPath()
		if err != nil {
			return "", err
		}
		path = defaultPath
	}

	if !overwrite {
		if _, err := os.Stat(path); err == nil {
			return "", fmt.Errorf("config already exists at %s", path)
		}
	}

	cfg, err := DefaultConfig()
	if err != nil {
		return "", err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return "", err
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return "", err
	}
	return path, nil
}
