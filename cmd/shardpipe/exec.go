package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/pg-sharding/shardpipe/router/kernel"
	"github.com/pg-sharding/shardpipe/router/session"
	"github.com/spf13/cobra"
)

var execStmtPath string

// writeResponse prints rows as JSON arrays, one per line, after a header
// of column names.
func writeResponse(w io.Writer, resp *kernel.Response) error {
	enc := json.NewEncoder(w)
	if resp.Merged == nil {
		if len(resp.GeneratedKeys) > 0 {
			if err := enc.Encode(map[string]any{"generated_keys": resp.GeneratedKeys}); err != nil {
				return err
			}
		}
		_, err := fmt.Fprintf(w, "UPDATE %d\n", resp.UpdateCount)
		return err
	}

	defer func() { _ = resp.Merged.Close() }()
	if err := enc.Encode(resp.Merged.Columns()); err != nil {
		return err
	}
	n := 0
	for {
		ok, err := resp.Merged.Next()
		if err != nil {
			return err
		}
		if !ok {
			break
		}
		if err := enc.Encode(resp.Merged.Row()); err != nil {
			return err
		}
		n++
	}
	_, err := fmt.Fprintf(w, "SELECT %d\n", n)
	return err
}

var execCmd = &cobra.Command{
	Use:   "exec --stmt `path-to-statement`",
	Short: "run a statement against the configured data sources",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		req, err := readRequest(execStmtPath)
		if err != nil {
			return err
		}
		k, _, closer, err := openKernel(ctx, true)
		if err != nil {
			return err
		}
		defer func() { _ = closer.Close() }()

		resp, err := k.Execute(ctx, session.NewSession(), &req.Statement, req.Params)
		if err != nil {
			return err
		}
		return writeResponse(cmd.OutOrStdout(), resp)
	},
}

func init() {
	execCmd.Flags().StringVarP(&execStmtPath, "stmt", "s", "", "statement file, .json or .yaml")
	_ = execCmd.MarkFlagRequired("stmt")
}
