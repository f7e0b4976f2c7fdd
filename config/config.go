package config

import (
	"errors"
	"fmt"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// DefaultFileName is the config file looked up in the working directory
const DefaultFileName = "deploy-config.json"

// ErrConfig is returned when the configuration cannot be read or is incomplete
var ErrConfig = errors.New("config error")

// DeployConfig holds the settings for one deployment run
type DeployConfig struct {
	RestartAfterDeploy bool          `mapstructure:"restart_after_deploy"`
	RemoteDirs         []string      `mapstructure:"remote_dirs"`
	RemoteBasePath     string        `mapstructure:"remote_base_path"`
	SSLVerify          bool          `mapstructure:"ssl_verify"`
	DeployDirectory    string        `mapstructure:"deploy_directory"`
	MissionPath        string        `mapstructure:"mission_path"`
	APIBaseURL         string        `mapstructure:"api_base_url"`
	BackupDirectory    string        `mapstructure:"backup_directory"`
	ExcludeExtensions  []string      `mapstructure:"exclude_extensions"`
	LogLevel           string        `mapstructure:"log_level"`
	Timeout            time.Duration `mapstructure:"timeout"`

	APIToken  string `mapstructure:"api_token"`
	NitradoID string `mapstructure:"nitrado_id"`
	ServerID  string `mapstructure:"server_id"`

	// FileName is the base name of the loaded config file
	FileName string `mapstructure:"-"`
}

// RemoteRootDir returns the mission directory listed on the game server
func (c DeployConfig) RemoteRootDir() string {
	return path.Join("/games", c.ServerID, "ftproot", c.MissionPath) + "/"
}

// ConfigFileNames returns the file names that must never be deployed:
// the default config name and the name of the file actually loaded
func (c DeployConfig) ConfigFileNames() []string {
	if c.FileName == "" || c.FileName == DefaultFileName {
		return []string{DefaultFileName}
	}
	return []string{DefaultFileName, c.FileName}
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("restart_after_deploy", true)
	v.SetDefault("remote_dirs", []string{})
	v.SetDefault("remote_base_path", "/gameservers/file_server/")
	v.SetDefault("ssl_verify", true)
	v.SetDefault("deploy_directory", "chernarus_boosted_customevents_bunker_console")
	v.SetDefault("mission_path", "dayzxb_missions/dayzOffline.chernarusplus")
	v.SetDefault("api_base_url", "https://api.nitrado.net/services/")
	v.SetDefault("backup_directory", "backups")
	v.SetDefault("exclude_extensions", []string{".py", ".go"})
	v.SetDefault("log_level", "info")
	v.SetDefault("timeout", "60s")
}

// Load reads the JSON config file at configPath; credentials come from the environment
func Load(configPath string) (DeployConfig, error) {
	if configPath == "" {
		configPath = DefaultFileName
	}

	v := viper.New()
	setDefaults(v)
	v.SetConfigFile(configPath)
	v.SetConfigType("json")

	v.BindEnv("api_token", "NITRADO_API_TOKEN")
	v.BindEnv("nitrado_id", "NITRADO_ID")
	v.BindEnv("server_id", "NITRADO_SERVER_ID")

	if err := v.ReadInConfig(); err != nil {
		return DeployConfig{}, fmt.Errorf("%w: failed to read %s: %v", ErrConfig, configPath, err)
	}

	if err := normalizeTimeout(v); err != nil {
		return DeployConfig{}, err
	}

	var cfg DeployConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return DeployConfig{}, fmt.Errorf("%w: failed to parse %s: %v", ErrConfig, configPath, err)
	}
	cfg.FileName = filepath.Base(configPath)

	// Relative directories are anchored next to the config file
	baseDir := filepath.Dir(configPath)
	cfg.DeployDirectory = resolve(baseDir, cfg.DeployDirectory)
	cfg.BackupDirectory = resolve(baseDir, cfg.BackupDirectory)

	if err := cfg.validate(); err != nil {
		return DeployConfig{}, err
	}
	return cfg, nil
}

func (c DeployConfig) validate() error {
	var missing []string
	if c.APIToken == "" {
		missing = append(missing, "NITRADO_API_TOKEN")
	}
	if c.NitradoID == "" {
		missing = append(missing, "NITRADO_ID")
	}
	if c.ServerID == "" {
		missing = append(missing, "NITRADO_SERVER_ID")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: missing credentials: %s", ErrConfig, strings.Join(missing, ", "))
	}
	if c.DeployDirectory == "" {
		return fmt.Errorf("%w: deploy_directory is empty", ErrConfig)
	}
	return nil
}

// normalizeTimeout reads a bare JSON number as seconds; strings use time.ParseDuration
func normalizeTimeout(v *viper.Viper) error {
	switch t := v.Get("timeout").(type) {
	case string:
		d, err := time.ParseDuration(t)
		if err != nil {
			return fmt.Errorf("%w: invalid timeout %q: %v", ErrConfig, t, err)
		}
		v.Set("timeout", d)
	case float64:
		v.Set("timeout", time.Duration(t*float64(time.Second)))
	case int:
		v.Set("timeout", time.Duration(t)*time.Second)
	case int64:
		v.Set("timeout", time.Duration(t)*time.Second)
	case time.Duration:
	default:
		return fmt.Errorf("%w: invalid timeout %v", ErrConfig, t)
	}
	return nil
}

func resolve(baseDir, dir string) string {
	if dir == "" || filepath.IsAbs(dir) {
		return dir
	}
	return filepath.Join(baseDir, dir)
}
