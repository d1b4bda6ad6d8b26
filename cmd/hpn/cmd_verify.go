package main

import (
	"fmt"

	"github.com/odvcencio/hpn/pkg/object"
	"github.com/spf13/cobra"
	"golang.org/x/crypto/ssh"
)

func newVerifyCmd() *cobra.Command {
	var commitRev string

	cmd := &cobra.Command{
		Use:   "verify",
		Short: "Verify object integrity or a commit signature",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := openRepo()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()

			if commitRev != "" {
				h, err := r.ResolveRevision(commitRev)
				if err != nil {
					return err
				}
				c, err := r.Store.ReadCommit(h)
				if err != nil {
					return err
				}
				pub, err := verifyCommitSignature(c)
				if err != nil {
					return fmt.Errorf("commit %s: %w", shortHash(string(h)), err)
				}
				fmt.Fprintf(out, "good signature on %s from %s key %s\n", shortHash(string(h)), pub.Type(), ssh.FingerprintSHA256(pub))
				return nil
			}

			report, err := r.Store.Verify()
			if err != nil {
				return err
			}
			fmt.Fprintf(
				out,
				"ok: verified %d object(s): %d blob(s), %d tree(s), %d commit(s)\n",
				report.Objects,
				report.ByType[object.TypeBlob],
				report.ByType[object.TypeTree],
				report.ByType[object.TypeCommit],
			)
			return nil
		},
	}

	cmd.Flags().StringVar(&commitRev, "commit", "", "check the signature of this commit instead of object integrity")
	return cmd
}
