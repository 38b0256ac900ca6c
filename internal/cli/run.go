package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/feichai0017/resource-ocr/internal/models"
	"github.com/feichai0017/resource-ocr/internal/ocr"
	"github.com/feichai0017/resource-ocr/internal/utils/validator"
)

var runLocale string

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run one OCR cycle now",
	Long: `Processes every pending resource once, in this process, and prints the
cycle summary. Interrupting the command stops after the resource being
processed.`,
	Args: cobra.NoArgs,
	RunE: runCycle,
}

func init() {
	runCmd.Flags().StringVar(&runLocale, "locale", "", "locale to recognize in (defaults to OCR_LOCALE)")
	rootCmd.AddCommand(runCmd)
}

func runCycle(cmd *cobra.Command, _ []string) error {
	if err := validator.Locale(runLocale); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	r, err := runner(ctx)
	if err != nil {
		return err
	}

	var summary *models.ProcessingSummary
	if runLocale != "" {
		summary, err = r.ProcessPending(ctx, ocr.LanguageCode(runLocale))
	} else {
		summary, err = r.ProcessResources(ctx)
	}
	if summary != nil {
		printSummary(cmd, summary)
	}
	if err != nil {
		return fmt.Errorf("cycle aborted: %w", err)
	}
	return nil
}

func printSummary(cmd *cobra.Command, s *models.ProcessingSummary) {
	if s.Skipped {
		cmd.Println("A cycle is already running; nothing done.")
		return
	}
	cmd.Printf("Cycle %s (%s): %d processed, %d done, %d failed in %s\n",
		s.CycleID, s.Language, s.Processed, s.Succeeded, s.Failed, s.Duration.Round(time.Millisecond))
}
