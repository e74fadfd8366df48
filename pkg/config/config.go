// pkg/config/config.go

package config

import (
	"fmt"

	cerr "github.com/cockroachdb/errors"
	"github.com/spf13/viper"
)

// Settings holds everything the deploy workflow needs to know about the
// target host layout. Values come from defaults, an optional
// /etc/rosterctl/rosterctl.yaml, and ROSTERCTL_* environment overrides,
// in ascending precedence.
type Settings struct {
	AppName     string `mapstructure:"app_name"`
	ServiceName string `mapstructure:"service_name"`
	SystemUser  string `mapstructure:"system_user"`
	AppDir      string `mapstructure:"app_dir"`
	EnvFile     string `mapstructure:"env_file"`
	ListenPort  int    `mapstructure:"listen_port"`

	DBName string `mapstructure:"db_name"`
	DBRole string `mapstructure:"db_role"`

	UnitPath      string   `mapstructure:"unit_path"`
	SiteAvailable string   `mapstructure:"site_available"`
	SiteEnabled   string   `mapstructure:"site_enabled"`
	DefaultSite   string   `mapstructure:"default_site"`
	BackupDir     string   `mapstructure:"backup_dir"`
	BackupScript  string   `mapstructure:"backup_script"`
	RetentionDays int      `mapstructure:"retention_days"`
	CronSpec      string   `mapstructure:"cron_spec"`
	CronLog       string   `mapstructure:"cron_log"`
	FirewallPorts []string `mapstructure:"firewall_ports"`
	Packages      []string `mapstructure:"packages"`
	HealthURL     string   `mapstructure:"health_url"`
	HealthTimeout int      `mapstructure:"health_timeout_seconds"`
}

// ConfigPath is the optional on-host settings file.
const ConfigPath = "/etc/rosterctl"

// Load resolves deploy settings with defaults suitable for a stock
// Ubuntu host.
func Load() (*Settings, error) {
	v := viper.New()

	v.SetDefault("app_name", "roster")
	v.SetDefault("service_name", "roster")
	v.SetDefault("system_user", "roster")
	v.SetDefault("app_dir", "/opt/roster")
	v.SetDefault("env_file", "/opt/roster/.env")
	v.SetDefault("listen_port", 8000)
	v.SetDefault("db_name", "roster")
	v.SetDefault("db_role", "roster")
	v.SetDefault("unit_path", "/etc/systemd/system/roster.service")
	v.SetDefault("site_available", "/etc/nginx/sites-available/roster")
	v.SetDefault("site_enabled", "/etc/nginx/sites-enabled/roster")
	v.SetDefault("default_site", "/etc/nginx/sites-enabled/default")
	v.SetDefault("backup_dir", "/var/backups/roster")
	v.SetDefault("backup_script", "/opt/roster/backup.sh")
	v.SetDefault("retention_days", 30)
	v.SetDefault("cron_spec", "30 2 * * *")
	v.SetDefault("cron_log", "/var/log/roster-backup.log")
	v.SetDefault("firewall_ports", []string{"OpenSSH", "80/tcp", "443/tcp"})
	v.SetDefault("packages", []string{
		"nginx",
		"postgresql",
		"postgresql-contrib",
		"python3",
		"python3-venv",
		"python3-pip",
	})
	v.SetDefault("health_url", "")
	v.SetDefault("health_timeout_seconds", 60)

	v.SetConfigName("rosterctl")
	v.SetConfigType("yaml")
	v.AddConfigPath(ConfigPath)
	v.SetEnvPrefix("ROSTERCTL")
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		// A missing config file is the normal case; anything else is
		// a broken file the operator should hear about.
		var notFound viper.ConfigFileNotFoundError
		if !cerr.As(err, &notFound) {
			return nil, cerr.Wrap(err, "read rosterctl config file")
		}
	}

	var s Settings
	if err := v.Unmarshal(&s); err != nil {
		return nil, cerr.Wrap(err, "unmarshal rosterctl settings")
	}

	if s.HealthURL == "" {
		s.HealthURL = fmt.Sprintf("http://127.0.0.1:%d/health", s.ListenPort)
	}

	return &s, nil
}
