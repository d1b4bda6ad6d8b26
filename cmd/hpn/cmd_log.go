package main

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/odvcencio/hpn/pkg/object"
	"github.com/odvcencio/hpn/pkg/repo"
	"github.com/spf13/cobra"
)

func newLogCmd() *cobra.Command {
	var oneline bool
	var limit int

	cmd := &cobra.Command{
		Use:   "log [revision]",
		Short: "Show commit history",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := openRepo()
			if err != nil {
				return err
			}

			head, err := r.Head()
			if err != nil {
				return err
			}
			headHash, err := r.Resolve(head)
			if err != nil {
				return err
			}

			start := headHash
			if len(args) == 1 {
				if start, err = r.ResolveRevision(args[0]); err != nil {
					return err
				}
			}
			if start == "" {
				fmt.Fprintln(cmd.OutOrStdout(), "no commits yet")
				return nil
			}

			out := cmd.OutOrStdout()
			it := r.LogFrom(start)
			for n := 0; limit <= 0 || n < limit; n++ {
				entry, err := it.Next()
				if errors.Is(err, io.EOF) {
					break
				}
				if err != nil {
					return err
				}
				printLogEntry(out, entry, buildDecoration(entry.Hash, headHash, head), oneline)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&oneline, "oneline", false, "compact one-line format")
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "maximum number of commits to show (0 for all)")
	return cmd
}

func printLogEntry(out io.Writer, entry repo.LogEntry, decoration string, oneline bool) {
	h, c := entry.Hash, entry.Commit
	if oneline {
		if decoration != "" {
			fmt.Fprintf(out, "%s %s %s\n", shortHash(string(h)), decoration, firstLine(c.Message))
		} else {
			fmt.Fprintf(out, "%s %s\n", shortHash(string(h)), firstLine(c.Message))
		}
		return
	}

	if decoration != "" {
		fmt.Fprintf(out, "commit %s %s\n", h, decoration)
	} else {
		fmt.Fprintf(out, "commit %s\n", h)
	}
	fmt.Fprintf(out, "Author: %s\n", c.Author)
	fmt.Fprintf(out, "Date:   %s %s\n", time.Unix(c.AuthorTime, 0).UTC().Format("2006-01-02 15:04:05"), c.AuthorTimezone)
	fmt.Fprintln(out)
	for _, line := range strings.Split(c.Message, "\n") {
		fmt.Fprintf(out, "    %s\n", line)
	}
	fmt.Fprintln(out)
}

// buildDecoration returns a string like "(HEAD -> master)" if the commit is
// the current HEAD, or "" otherwise.
func buildDecoration(commitHash, headHash object.Hash, head repo.Head) string {
	if commitHash != headHash {
		return ""
	}
	if !head.IsDetached() {
		return "(HEAD -> " + head.Branch() + ")"
	}
	return "(HEAD)"
}

func firstLine(s string) string {
	line, _, _ := strings.Cut(s, "\n")
	return line
}
