package pdf

import (
	"bytes"
	"context"
	"os/exec"
	"strings"
	"time"

	"github.com/feichai0017/resource-ocr/pkg/logger"
)

// Runner lets tests stub external commands.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) (stdout, stderr []byte, err error)
}

type execRunner struct {
	logger logger.Logger
}

// NewExecRunner runs commands with os/exec.
func NewExecRunner(log logger.Logger) Runner {
	return execRunner{logger: log}
}

func (r execRunner) Run(ctx context.Context, name string, args ...string) ([]byte, []byte, error) {
	start := time.Now()

	cmd := exec.CommandContext(ctx, name, args...)
	var out, errb bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &errb

	err := cmd.Run()
	dur := time.Since(start)

	if err != nil {
		r.logger.Error("exec failed",
			logger.String("cmd", name),
			logger.String("args", strings.Join(args, " ")),
			logger.Int64("durationMs", dur.Milliseconds()),
			logger.String("stderr", truncate(errb.String(), 8<<10)),
			logger.Error(err),
		)
	} else {
		r.logger.Debug("exec ok",
			logger.String("cmd", name),
			logger.String("args", strings.Join(args, " ")),
			logger.Int64("durationMs", dur.Milliseconds()),
		)
	}

	return out.Bytes(), errb.Bytes(), err
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "...(truncated)"
}
