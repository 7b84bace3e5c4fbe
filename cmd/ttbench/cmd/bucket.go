package cmd

import (
	"fmt"
	"text/tabwriter"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/armadaproject/ttbench/internal/ttbench/routing"
)

func bucketCmd(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "bucket <key>...",
		Short: "Prints the vshard bucket each key is routed to",
		Args:  cobra.MinimumNArgs(1),
	}

	cmd.Flags().Uint64("bucket-count", 30000, "Number of vshard buckets")
	cmd.Flags().String("hash", string(routing.HashCrc32), "Bucket hash: crc32 or crc32c")
	bindFlags(v, cmd.Flags(), map[string]string{
		"bucket-count": "bucketCount",
		"hash":         "routing.hash",
	})

	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		config, err := loadConfig(cmd, v)
		if err != nil {
			return err
		}
		hash, err := routing.ParseHash(config.Routing.Hash)
		if err != nil {
			return err
		}
		router, err := routing.NewRouter(config.BucketCount, hash, 0)
		if err != nil {
			return err
		}
		w := tabwriter.NewWriter(cmd.OutOrStdout(), 1, 1, 1, ' ', 0)
		for _, key := range args {
			fmt.Fprintf(w, "%s\t%d\n", key, router.Bucket(key))
		}
		return errors.WithStack(w.Flush())
	}
	return cmd
}
