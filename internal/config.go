package internal

import (
	"fmt"

	"github.com/spf13/viper"
)

type PineDBConfig struct {
	AppName string `mapstructure:"app_name"`

	Storage struct {
		Workdir   string `mapstructure:"workdir"`
		BlockSize int    `mapstructure:"block_size"`
		PoolSize  int    `mapstructure:"pool_size"`
	} `mapstructure:"storage"`
}

func LoadConfig(path string) (*PineDBConfig, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var cfg PineDBConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	return &cfg, nil
}
