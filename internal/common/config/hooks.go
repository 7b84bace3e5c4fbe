package config

import (
	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
)

// CustomHooks returns the decoder options used when unmarshalling configuration.
// viper.DecodeHook replaces viper's default hooks, so the duration and slice hooks are composed back in.
func CustomHooks(hooks ...mapstructure.DecodeHookFunc) []viper.DecoderConfigOption {
	all := append([]mapstructure.DecodeHookFunc{
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
	}, hooks...)
	return []viper.DecoderConfigOption{
		viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(all...)),
	}
}
