package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/odvcencio/hpn/pkg/object"
	"github.com/spf13/cobra"
)

func newCatFileCmd() *cobra.Command {
	var showType bool
	var showSize bool
	var pretty bool

	cmd := &cobra.Command{
		Use:   "cat-file (-t | -s | -p) <object>",
		Short: "Print the type, size, or contents of an object",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			modes := 0
			for _, set := range []bool{showType, showSize, pretty} {
				if set {
					modes++
				}
			}
			if modes != 1 {
				return fmt.Errorf("exactly one of -t, -s or -p is required")
			}

			r, err := openRepo()
			if err != nil {
				return err
			}
			h, err := r.ResolveRevision(args[0])
			if err != nil {
				return err
			}
			objType, data, err := r.Store.Get(h)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			switch {
			case showType:
				fmt.Fprintln(out, objType)
			case showSize:
				fmt.Fprintln(out, len(data))
			case objType == object.TypeTree:
				tr, err := object.UnmarshalTree(data)
				if err != nil {
					return fmt.Errorf("object %s: %w", h, err)
				}
				printTreeEntries(out, tr.Entries, "")
			default:
				_, err := out.Write(data)
				return err
			}
			return nil
		},
	}

	cmd.Flags().BoolVarP(&showType, "type", "t", false, "show the object type")
	cmd.Flags().BoolVarP(&showSize, "size", "s", false, "show the payload size in bytes")
	cmd.Flags().BoolVarP(&pretty, "pretty", "p", false, "pretty-print the object contents")
	return cmd
}

func printTreeEntries(out io.Writer, entries []object.TreeEntry, prefix string) {
	for _, e := range entries {
		kind := object.TypeBlob
		if e.IsDir() {
			kind = object.TypeTree
		}
		fmt.Fprintf(out, "%s %s %s\t%s%s\n", displayMode(e.Mode), kind, e.Hash, prefix, e.Name)
	}
}

// displayMode pads a tree mode to six digits, as git prints it.
func displayMode(mode string) string {
	if len(mode) < 6 {
		return strings.Repeat("0", 6-len(mode)) + mode
	}
	return mode
}
