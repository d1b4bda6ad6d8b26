package main

import (
	"fmt"
	"os"

	"github.com/odvcencio/hpn/pkg/object"
	"github.com/spf13/cobra"
)

func newAddCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "add <files...>",
		Short: "Store file contents as blobs and print their ids",
		Long: "Store each file's contents as a blob object and print its id. " +
			"There is no staging area: commit snapshots the whole work tree.",
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := openRepo()
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			for _, path := range args {
				data, err := os.ReadFile(path)
				if err != nil {
					return fmt.Errorf("add %s: %w", path, err)
				}
				h, err := r.Store.Put(object.TypeBlob, data)
				if err != nil {
					return fmt.Errorf("add %s: %w", path, err)
				}
				fmt.Fprintln(out, h)
			}
			return nil
		},
	}
}
