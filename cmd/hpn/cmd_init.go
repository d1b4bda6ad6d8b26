package main

import (
	"fmt"
	"path/filepath"

	"github.com/odvcencio/hpn/pkg/repo"
	"github.com/spf13/cobra"
)

func newInitCmd() *cobra.Command {
	var initialBranch string

	cmd := &cobra.Command{
		Use:   "init [path]",
		Short: "Create an empty hpn repository",
		Long: "Create .hpn/ under path (default: the current directory), creating " +
			"path if needed. HEAD starts on an unborn branch that the first commit creates.",
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := "."
			if len(args) > 0 {
				path = args[0]
			}

			r, err := repo.Init(path, repo.WithLogger(logger), repo.WithInitialBranch(initialBranch))
			if err != nil {
				return err
			}
			branch, err := r.CurrentBranch()
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "initialized empty hpn repository in %s (HEAD -> %s)\n",
				r.MetaDir+string(filepath.Separator), branch)
			return nil
		},
	}

	cmd.Flags().StringVarP(&initialBranch, "initial-branch", "b", repo.DefaultBranch, "name of the branch HEAD starts on")
	return cmd
}
