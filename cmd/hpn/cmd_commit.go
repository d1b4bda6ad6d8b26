package main

import (
	"fmt"

	"github.com/odvcencio/hpn/pkg/repo"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newCommitCmd() *cobra.Command {
	var message string
	var sign bool
	var keyPath string

	cmd := &cobra.Command{
		Use:   "commit",
		Short: "Record a snapshot of the work tree",
		RunE: func(cmd *cobra.Command, args []string) error {
			if message == "" {
				return fmt.Errorf("commit message is required (-m)")
			}

			r, err := openRepo()
			if err != nil {
				return err
			}

			var signer repo.CommitSigner
			if sign || keyPath != "" {
				s, resolvedPath, err := newSSHCommitSigner(keyPath)
				if err != nil {
					return err
				}
				logger.Debug("signing commit", zap.String("key", resolvedPath))
				signer = s
			}

			h, err := r.CommitWithSigner(message, signer)
			if err != nil {
				return err
			}

			branch := "HEAD"
			if name, err := r.CurrentBranch(); err == nil && name != "" {
				branch = name
			}
			fmt.Fprintf(cmd.OutOrStdout(), "[%s %s] %s\n", branch, shortHash(string(h)), firstLine(message))
			return nil
		},
	}

	cmd.Flags().StringVarP(&message, "message", "m", "", "commit message")
	cmd.Flags().BoolVarP(&sign, "sign", "S", false, "sign the commit with an SSH key")
	cmd.Flags().StringVar(&keyPath, "key", "", "SSH private key used for signing (default: ~/.ssh/id_ed25519, id_ecdsa, id_rsa)")
	return cmd
}
