package common

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/mitchellh/go-homedir"
	"github.com/mitchellh/mapstructure"
	"github.com/pkg/errors"
	"github.com/spf13/viper"

	commonconfig "github.com/armadaproject/ttbench/internal/common/config"
	"github.com/armadaproject/ttbench/internal/common/logging"
)

const baseConfigFileName = "config"

// LoadConfig reads the base config file from defaultPath (if present), merges every file in
// overrideConfigs on top of it, applies TTBENCH_ prefixed environment variables and unmarshals
// the result into config.
func LoadConfig(v *viper.Viper, config any, defaultPath string, overrideConfigs []string, hooks ...mapstructure.DecodeHookFunc) error {
	v.SetConfigName(baseConfigFileName)
	v.AddConfigPath(defaultPath)
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return errors.Wrapf(err, "error reading base config from %s", defaultPath)
		}
		logging.Debugf("no base config found in %s", defaultPath)
	} else {
		logging.Infof("Read base config from %s", v.ConfigFileUsed())
	}

	for _, overrideConfig := range overrideConfigs {
		v.SetConfigFile(overrideConfig)
		if err := v.MergeInConfig(); err != nil {
			return errors.Wrapf(err, "error reading config from %s", overrideConfig)
		}
		logging.Infof("Read config from %s", v.ConfigFileUsed())
	}

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.SetEnvPrefix("TTBENCH")
	v.AutomaticEnv()

	if err := v.Unmarshal(config, commonconfig.CustomHooks(hooks...)...); err != nil {
		return errors.WithStack(err)
	}
	return nil
}

// UserConfig returns the path of the named dotfile in the user's home directory, if it exists.
func UserConfig(name string) (string, bool) {
	home, err := homedir.Dir()
	if err != nil {
		logging.WithError(err).Debug("unable to find home directory")
		return "", false
	}
	path := filepath.Join(home, name)
	if _, err := os.Stat(path); err != nil {
		return "", false
	}
	return path, true
}
