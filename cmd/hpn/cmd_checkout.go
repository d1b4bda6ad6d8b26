package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newCheckoutCmd() *cobra.Command {
	var createBranch bool

	cmd := &cobra.Command{
		Use:   "checkout <branch|commit>",
		Short: "Switch branches or detach HEAD at a commit",
		Long: "Restore the work tree to the target and move HEAD. Files named by the " +
			"target tree are overwritten without warning; other files are left alone.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			target := args[0]

			r, err := openRepo()
			if err != nil {
				return err
			}

			if createBranch {
				if _, err := r.CreateBranch(target); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "switched to new branch '%s'\n", target)
				return nil
			}

			head, err := r.Checkout(target)
			if err != nil {
				return err
			}
			if head.IsDetached() {
				fmt.Fprintf(cmd.OutOrStdout(), "HEAD is now at %s\n", shortHash(string(head.Hash)))
			} else {
				fmt.Fprintf(cmd.OutOrStdout(), "switched to branch '%s'\n", head.Branch())
			}
			return nil
		},
	}

	cmd.Flags().BoolVarP(&createBranch, "branch", "b", false, "create and switch to a new branch")
	return cmd
}
