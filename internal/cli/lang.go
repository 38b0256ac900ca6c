package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/feichai0017/resource-ocr/internal/ocr"
)

var langCmd = &cobra.Command{
	Use:   "lang <locale>",
	Short: "Print the recognition language used for a locale",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintln(cmd.OutOrStdout(), ocr.LanguageCode(args[0]))
	},
}

func init() {
	rootCmd.AddCommand(langCmd)
}
