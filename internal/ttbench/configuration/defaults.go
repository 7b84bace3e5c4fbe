package configuration

import (
	"time"

	"github.com/spf13/viper"
)

// SetDefaults registers the values used when neither a config file nor a flag sets a key.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("backend", BackendTarantool)
	v.SetDefault("instances", []map[string]any{
		{
			"address":     "localhost:3301",
			"timeout":     "500ms",
			"user":        "admin",
			"password":    "admin",
			"connections": 3,
		},
	})
	v.SetDefault("initSteps", DefaultInitSteps)
	v.SetDefault("mode", string(ModeIterations))
	v.SetDefault("jobs", 1)
	v.SetDefault("transactions", 10)
	v.SetDefault("duration", time.Minute)
	v.SetDefault("scale", 1)
	v.SetDefault("maxRetries", 3)
	v.SetDefault("bucketCount", 30000)
	v.SetDefault("keepHistory", false)
	v.SetDefault("rate", 0)
	v.SetDefault("maxDelta", 1000)
	v.SetDefault("routing.hash", "crc32")
	v.SetDefault("routing.cacheSize", 0)
	v.SetDefault("dialAttempts", 3)
	v.SetDefault("dialBackoff", 200*time.Millisecond)
	v.SetDefault("progressInterval", 5*time.Second)
	v.SetDefault("metricsPort", 0)
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")
}
