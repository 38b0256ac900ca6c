// Package cli implements ocrctl, the operator command line of the OCR
// service.
package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	cfg "github.com/feichai0017/resource-ocr/config"
	"github.com/feichai0017/resource-ocr/internal/bootstrap"
	"github.com/feichai0017/resource-ocr/internal/models"
	"github.com/feichai0017/resource-ocr/internal/repository"
	"github.com/feichai0017/resource-ocr/internal/service/resource"
	"github.com/feichai0017/resource-ocr/pkg/logger"
)

// CycleRunner runs one OCR cycle in-process.
type CycleRunner interface {
	ProcessResources(ctx context.Context) (*models.ProcessingSummary, error)
	ProcessPending(ctx context.Context, language string) (*models.ProcessingSummary, error)
}

var (
	// injected by tests, opened on first use otherwise
	resourceService resource.ResourceService
	cycleRunner     CycleRunner

	log       logger.Logger = logger.NewNop()
	logOpened bool
	closers   []func() error

	engineFlag string
	reportFlag bool
)

var rootCmd = &cobra.Command{
	Use:           "ocrctl",
	Short:         "Operate the resource OCR service",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&engineFlag, "engine", "", "recognition engine (tesseract, textract, ollama)")
	rootCmd.PersistentFlags().BoolVar(&reportFlag, "report", false, "store cycle reports in redis")
}

// Execute runs the command line and releases whatever it opened.
func Execute() error {
	defer closeAll()
	return rootCmd.Execute()
}

func closeAll() {
	for i := len(closers) - 1; i >= 0; i-- {
		if err := closers[i](); err != nil {
			log.Warn("Failed to release resource", logger.Error(err))
		}
	}
	closers = nil
}

func initLogger() error {
	if logOpened {
		return nil
	}
	l, err := bootstrap.NewLogger("ocrctl")
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	log = l
	logOpened = true
	closers = append(closers, func() error {
		_ = l.Sync()
		return nil
	})
	return nil
}

// resources opens the resource database unless a service was injected.
func resources(ctx context.Context) (resource.ResourceService, error) {
	if resourceService != nil {
		return resourceService, nil
	}
	if err := initLogger(); err != nil {
		return nil, err
	}
	repo, err := repository.Open(ctx, cfg.GetDatabaseConfig(), log)
	if err != nil {
		return nil, fmt.Errorf("failed to open resource database: %w", err)
	}
	closers = append(closers, repo.Close)
	resourceService = resource.NewService(repo, nil, log)
	return resourceService, nil
}

// runner builds the full OCR pipeline unless one was injected.
func runner(ctx context.Context) (CycleRunner, error) {
	if cycleRunner != nil {
		return cycleRunner, nil
	}
	if err := initLogger(); err != nil {
		return nil, err
	}
	app, err := bootstrap.NewApp(ctx, log, bootstrap.Options{Engine: engineFlag, WithQueue: reportFlag})
	if err != nil {
		return nil, err
	}
	closers = append(closers, app.Close)
	cycleRunner = app.Service
	return cycleRunner, nil
}
