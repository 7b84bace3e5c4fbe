package cmd

import (
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/armadaproject/ttbench/internal/common"
	commonconfig "github.com/armadaproject/ttbench/internal/common/config"
	"github.com/armadaproject/ttbench/internal/common/ttbencherrors"
	"github.com/armadaproject/ttbench/internal/ttbench/configuration"
)

const (
	CustomConfigLocation string = "config"
	defaultConfigPath    string = "./config/ttbench"
	userConfigFile       string = ".ttbench.yaml"
)

func RootCmd() *cobra.Command {
	return newRootCmd(viper.New())
}

func newRootCmd(v *viper.Viper) *cobra.Command {
	configuration.SetDefaults(v)

	cmd := &cobra.Command{
		Use:          "ttbench",
		SilenceUsage: true,
		Short:        "TPC-B style benchmark for sharded Tarantool clusters",
	}

	cmd.PersistentFlags().StringSlice(
		CustomConfigLocation,
		[]string{},
		"Fully qualified path to application configuration file (for multiple config files repeat this arg or separate paths with commas)")

	cmd.AddCommand(
		runCmd(v),
		bucketCmd(v),
	)

	return cmd
}

// loadConfig merges, in increasing priority: built-in defaults, ./config/ttbench/config.yaml, ~/.ttbench.yaml,
// files passed with --config, TTBENCH_ environment variables and command line flags.
func loadConfig(cmd *cobra.Command, v *viper.Viper) (configuration.Config, error) {
	var config configuration.Config
	var userSpecifiedConfigs []string
	if flag := cmd.Flag(CustomConfigLocation); flag != nil {
		if slice, ok := flag.Value.(pflag.SliceValue); ok {
			userSpecifiedConfigs = slice.GetSlice()
		}
	}
	if path, ok := common.UserConfig(userConfigFile); ok {
		userSpecifiedConfigs = append([]string{path}, userSpecifiedConfigs...)
	}

	if err := common.LoadConfig(v, &config, defaultConfigPath, userSpecifiedConfigs, configuration.DecodeHooks...); err != nil {
		return config, &ttbencherrors.ErrConfiguration{
			Name:    CustomConfigLocation,
			Value:   userSpecifiedConfigs,
			Message: err.Error(),
		}
	}

	if err := config.Validate(); err != nil {
		commonconfig.LogValidationErrors(err)
		var configErr *ttbencherrors.ErrConfiguration
		if errors.As(err, &configErr) {
			return config, err
		}
		return config, &ttbencherrors.ErrConfiguration{Name: "config", Value: nil, Message: err.Error()}
	}
	return config, nil
}

// bindFlags maps command line flags onto config keys.
func bindFlags(v *viper.Viper, flags *pflag.FlagSet, keys map[string]string) {
	for flag, key := range keys {
		if err := v.BindPFlag(key, flags.Lookup(flag)); err != nil {
			panic(err)
		}
	}
}
