package cli

import (
	"context"
	"encoding/json"
	"sort"

	"github.com/spf13/cobra"
)

var statusJSON bool

var statusCmd = &cobra.Command{
	Use:   "status <resource-id>",
	Short: "Show the OCR state of a resource",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		svc, err := resources(ctx)
		if err != nil {
			return err
		}
		result, err := svc.GetResult(ctx, args[0])
		if err != nil {
			return err
		}

		if statusJSON {
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(result)
		}

		cmd.Printf("Resource: %s\n", result.ID)
		cmd.Printf("Type:     %s\n", result.Mime)
		cmd.Printf("Status:   %s\n", result.Status)
		if result.Error != "" {
			cmd.Printf("Error:    %s\n", result.Error)
		}
		if result.Text != "" {
			cmd.Printf("Text:     %d lines, %d characters\n\n%s\n", result.Lines, result.Characters, result.Text)
		}
		return nil
	},
}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Count resources per OCR status",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := context.Background()
		svc, err := resources(ctx)
		if err != nil {
			return err
		}
		stats, err := svc.Stats(ctx)
		if err != nil {
			return err
		}

		names := make([]string, 0, len(stats))
		for name := range stats {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			cmd.Printf("%-8s %d\n", name, stats[name])
		}
		return nil
	},
}

var retryCmd = &cobra.Command{
	Use:   "retry <resource-id>",
	Short: "Queue a resource for OCR again",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		svc, err := resources(ctx)
		if err != nil {
			return err
		}
		if err := svc.Retry(ctx, args[0]); err != nil {
			return err
		}
		cmd.Printf("Resource %s will be processed in the next cycle.\n", args[0])
		return nil
	},
}

func init() {
	statusCmd.Flags().BoolVar(&statusJSON, "json", false, "print as JSON")
	rootCmd.AddCommand(statusCmd, statsCmd, retryCmd)
}
