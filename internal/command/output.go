package command

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
)

// wantJSON is true with --json or when stdout is not a terminal, so
// scripts piping the output get something they can parse.
func wantJSON(cmd *cobra.Command) bool {
	if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
		return true
	}
	f, ok := cmd.OutOrStdout().(*os.File)
	if !ok {
		return true
	}
	return !isatty.IsTerminal(f.Fd()) && !isatty.IsCygwinTerminal(f.Fd())
}

// printResult writes v as indented JSON or runs plain for a terminal.
func printResult(cmd *cobra.Command, v any, plain func(w io.Writer)) error {
	out := cmd.OutOrStdout()
	if wantJSON(cmd) {
		b, err := json.MarshalIndent(v, "", "  ")
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(out, string(b))
		return err
	}
	plain(out)
	return nil
}
