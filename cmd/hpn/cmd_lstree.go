package main

import (
	"fmt"
	"io"
	"path"

	"github.com/odvcencio/hpn/pkg/object"
	"github.com/odvcencio/hpn/pkg/repo"
	"github.com/spf13/cobra"
)

func newLsTreeCmd() *cobra.Command {
	var recursive bool
	var nameOnly bool

	cmd := &cobra.Command{
		Use:   "ls-tree <tree-or-commit>",
		Short: "List the contents of a tree object",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := openRepo()
			if err != nil {
				return err
			}
			h, err := r.ResolveRevision(args[0])
			if err != nil {
				return err
			}
			treeHash, err := peelToTree(r, h)
			if err != nil {
				return err
			}
			return listTree(cmd.OutOrStdout(), r, treeHash, "", recursive, nameOnly)
		},
	}

	cmd.Flags().BoolVarP(&recursive, "recursive", "r", false, "recurse into subtrees")
	cmd.Flags().BoolVar(&nameOnly, "name-only", false, "list only entry names")
	return cmd
}

// peelToTree returns h itself for a tree and the root tree for a commit.
func peelToTree(r *repo.Repo, h object.Hash) (object.Hash, error) {
	objType, data, err := r.Store.Get(h)
	if err != nil {
		return "", err
	}
	switch objType {
	case object.TypeTree:
		return h, nil
	case object.TypeCommit:
		c, err := object.UnmarshalCommit(data)
		if err != nil {
			return "", fmt.Errorf("object %s: %w", h, err)
		}
		return c.TreeHash, nil
	default:
		return "", fmt.Errorf("object %s is a %s, not a tree", h, objType)
	}
}

func listTree(out io.Writer, r *repo.Repo, treeHash object.Hash, prefix string, recursive, nameOnly bool) error {
	tr, err := r.Store.ReadTree(treeHash)
	if err != nil {
		return err
	}
	for _, e := range tr.Entries {
		if recursive && e.IsDir() {
			if err := listTree(out, r, e.Hash, path.Join(prefix, e.Name)+"/", recursive, nameOnly); err != nil {
				return err
			}
			continue
		}
		if nameOnly {
			fmt.Fprintf(out, "%s%s\n", prefix, e.Name)
			continue
		}
		printTreeEntries(out, []object.TreeEntry{e}, prefix)
	}
	return nil
}
