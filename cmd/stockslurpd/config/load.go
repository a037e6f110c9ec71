package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

func LoadConfig(cfgFile string) (*ClusterConfig, error) {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("stockslurpd")
		viper.AddConfigPath(".")
		viper.AddConfigPath("/etc/stockslurpd/")
	}

	viper.SetEnvPrefix("STOCKSLURPD") // env vars like STOCKSLURPD_NODE__ID
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "__"))

	viper.BindEnv("node.id")
	viper.BindEnv("etcd.endpoints")
	viper.BindEnv("etcd.username")
	viper.BindEnv("etcd.password")
	viper.BindEnv("etcd.prefix")
	viper.BindEnv("secrets.keychain_file")
	viper.BindEnv("secrets.cluster_key")
	viper.BindEnv("api.listen_addr")
	viper.BindEnv("api.auth_tokens")
	viper.BindEnv("alerts.enabled")
	viper.BindEnv("alerts.host")
	viper.BindEnv("alerts.port")
	viper.BindEnv("alerts.username")
	viper.BindEnv("alerts.password")
	viper.BindEnv("alerts.from")
	viper.BindEnv("alerts.to")

	if err := viper.ReadInConfig(); err != nil {
		// Env-only operation is fine; a config file is optional unless one
		// was named explicitly.
		if _, notFound := err.(viper.ConfigFileNotFoundError); !notFound || cfgFile != "" {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg ClusterConfig
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	return &cfg, nil
}
