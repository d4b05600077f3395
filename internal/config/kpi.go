package config

import (
	"errors"
	"log"
	"strings"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// KPIConfig holds product-tunable aggregation knobs. Loaded from kpi.yml
// and hot-reloaded so operators can adjust rankings without a restart.
type KPIConfig struct {
	TopVehicles     int      `mapstructure:"topVehicles"`
	TopDrivers      int      `mapstructure:"topDrivers"`
	DisabledMetrics []string `mapstructure:"disabledMetrics"`
}

func DefaultKPIConfig() KPIConfig {
	return KPIConfig{
		TopVehicles: 3,
		TopDrivers:  3,
	}
}

// MetricDisabled reports whether a metric key is switched off.
func (c KPIConfig) MetricDisabled(key string) bool {
	for _, disabled := range c.DisabledMetrics {
		if strings.EqualFold(strings.TrimSpace(disabled), key) {
			return true
		}
	}
	return false
}

type KPIConfigHolder struct {
	current atomic.Value // holds KPIConfig
}

func NewKPIConfigHolder() (*KPIConfigHolder, error) {
	v := viper.New()

	v.SetConfigName("kpi")
	v.SetConfigType("yml")
	v.AddConfigPath("/var/lib/odometer/config")
	v.AddConfigPath("/etc/odometer")
	v.AddConfigPath(".")

	v.SetEnvPrefix("ODOMETER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
		defaults := DefaultKPIConfig()
		v.SetDefault("kpi.topVehicles", defaults.TopVehicles)
		v.SetDefault("kpi.topDrivers", defaults.TopDrivers)
	}

	holder := &KPIConfigHolder{}
	if err := holder.reload(v); err != nil {
		return nil, err
	}

	v.OnConfigChange(func(_ fsnotify.Event) {
		if err := holder.reload(v); err != nil {
			log.Printf("kpi config reload failed: %v", err)
		}
	})
	v.WatchConfig()

	return holder, nil
}

func (h *KPIConfigHolder) reload(v *viper.Viper) error {
	var cfg KPIConfig
	if err := v.UnmarshalKey("kpi", &cfg); err != nil {
		return err
	}
	defaults := DefaultKPIConfig()
	if cfg.TopVehicles <= 0 {
		cfg.TopVehicles = defaults.TopVehicles
	}
	if cfg.TopDrivers <= 0 {
		cfg.TopDrivers = defaults.TopDrivers
	}
	h.current.Store(cfg)
	return nil
}

// Current returns the live KPI configuration.
func (h *KPIConfigHolder) Current() KPIConfig {
	if h == nil {
		return DefaultKPIConfig()
	}
	if cfg, ok := h.current.Load().(KPIConfig); ok {
		return cfg
	}
	return DefaultKPIConfig()
}
