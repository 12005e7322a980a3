package main

import (
	"context"
	"fmt"

	"github.com/pg-sharding/shardpipe/router/keygen"
	"github.com/spf13/cobra"
)

var (
	nextvalCount int
	nextvalRange uint64
)

var nextvalCmd = &cobra.Command{
	Use:   "nextval <sequence>",
	Short: "allocate values of a sequence from the configured sequence store",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		_, db, closer, err := openKernel(ctx, false)
		if err != nil {
			return err
		}
		defer func() { _ = closer.Close() }()

		cache := keygen.NewIdentityCache(nextvalRange, db)
		for i := 0; i < nextvalCount; i++ {
			v, err := cache.NextVal(ctx, args[0])
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), v)
		}
		return nil
	},
}

func init() {
	nextvalCmd.Flags().IntVarP(&nextvalCount, "count", "n", 1, "number of values")
	nextvalCmd.Flags().Uint64Var(&nextvalRange, "range-size", keygen.DEFAULT_ID_RANGE_SIZE, "values fetched from the store at once")
}
