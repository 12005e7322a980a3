package main

import (
	"context"
	"encoding/json"

	"github.com/pg-sharding/shardpipe/router/session"
	"github.com/spf13/cobra"
)

var stmtPath string

var previewCmd = &cobra.Command{
	Use:   "preview --stmt `path-to-statement`",
	Short: "print route units and rewritten SQL without executing",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		req, err := readRequest(stmtPath)
		if err != nil {
			return err
		}
		k, _, closer, err := openKernel(ctx, false)
		if err != nil {
			return err
		}
		defer func() { _ = closer.Close() }()

		p, err := k.Preview(ctx, session.NewSession(), &req.Statement, req.Params)
		if err != nil {
			return err
		}
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(p)
	},
}

func init() {
	previewCmd.Flags().StringVarP(&stmtPath, "stmt", "s", "", "statement file, .json or .yaml")
	_ = previewCmd.MarkFlagRequired("stmt")
}
