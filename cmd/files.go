package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/sells-group/nutrition-scraper/internal/output"
)

const cleanConfirmWord = "CONFIRMAR"

var filesCmd = &cobra.Command{
	Use:   "files",
	Short: "Inspect and clean generated data files",
}

var filesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List generated data files",
	RunE: func(cmd *cobra.Command, args []string) error {
		files, err := output.ListFiles(cfg.Output.Dir)
		if errors.Is(err, output.ErrDirMissing) {
			fmt.Fprintf(cmd.OutOrStdout(), "Output directory %s does not exist yet.\n", cfg.Output.Dir)
			return nil
		}
		if err != nil {
			return err
		}
		formatFilesList(cmd.OutOrStdout(), files)
		return nil
	},
}

var filesCleanCmd = &cobra.Command{
	Use:   "clean",
	Short: "Delete generated data files",
	RunE: func(cmd *cobra.Command, args []string) error {
		yes, _ := cmd.Flags().GetBool("yes")
		if !yes && !confirm(cmd.InOrStdin(), cmd.OutOrStdout(), cfg.Output.Dir) {
			fmt.Fprintln(cmd.OutOrStdout(), "Aborted.")
			return nil
		}

		n, err := output.Clean(cfg.Output.Dir)
		if errors.Is(err, output.ErrDirMissing) {
			fmt.Fprintln(cmd.OutOrStdout(), "Nothing to clean.")
			return nil
		}
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Removed %d file(s) from %s.\n", n, cfg.Output.Dir)
		return nil
	},
}

func init() {
	filesCleanCmd.Flags().Bool("yes", false, "skip the confirmation prompt")
	filesCmd.AddCommand(filesListCmd, filesCleanCmd)
	rootCmd.AddCommand(filesCmd)
}

// confirm asks the user to type the confirmation word.
func confirm(in io.Reader, out io.Writer, dir string) bool {
	fmt.Fprintf(out, "This deletes every data file in %s. Type %s to continue: ", dir, cleanConfirmWord)
	line, _ := bufio.NewReader(in).ReadString('\n')
	return strings.TrimSpace(line) == cleanConfirmWord
}
