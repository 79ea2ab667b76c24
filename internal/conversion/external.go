package conversion

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"strings"
	"sync"
	"time"

	"github.com/kballard/go-shellquote"

	"github.com/Noquela/sands-of-duat/internal/fileutil"
	"github.com/Noquela/sands-of-duat/internal/logging"
	"github.com/Noquela/sands-of-duat/internal/services"
)

// Executor abstracts command execution for testability.
type Executor interface {
	Run(ctx context.Context, binary string, args []string, onOutput func(string)) error
}

// ExternalOption configures an External converter.
type ExternalOption func(*External)

// WithExecutor injects a custom executor.
func WithExecutor(exec Executor) ExternalOption {
	return func(e *External) {
		if exec != nil {
			e.exec = exec
		}
	}
}

// External runs the primary converter command. The template is split with
// shell quoting rules and {input}/{output} are substituted per item.
type External struct {
	binary  string
	args    []string
	timeout time.Duration
	exec    Executor
	logger  *slog.Logger
}

// NewExternal parses command into an External converter.
func NewExternal(command string, timeout time.Duration, logger *slog.Logger, opts ...ExternalOption) (*External, error) {
	fields, err := shellquote.Split(command)
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "conversion", "parse primary command", command, err)
	}
	if len(fields) == 0 {
		return nil, services.Wrap(services.ErrConfiguration, "conversion", "parse primary command", "empty command", nil)
	}
	e := &External{
		binary:  fields[0],
		args:    fields[1:],
		timeout: timeout,
		exec:    commandExecutor{},
		logger:  logging.NewComponentLogger(logger, "converter.primary"),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// Name implements Converter.
func (e *External) Name() Strategy { return StrategyPrimary }

// Binary is the executable the command invokes.
func (e *External) Binary() string { return e.binary }

// Args expands the argument template for one item.
func (e *External) Args(src, dst string) []string {
	replacer := strings.NewReplacer("{input}", src, "{output}", dst)
	out := make([]string, len(e.args))
	for i, arg := range e.args {
		out[i] = replacer.Replace(arg)
	}
	return out
}

// Convert runs the command under its timeout. Success requires a zero exit
// status and a non-empty dst.
func (e *External) Convert(ctx context.Context, src, dst string) error {
	runCtx := ctx
	if e.timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}
	logger := logging.WithContext(ctx, e.logger)
	err := e.exec.Run(runCtx, e.binary, e.Args(src, dst), func(line string) {
		logger.Debug("converter output", logging.String("line", line))
	})
	if err != nil {
		if errors.Is(runCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
			return services.Wrap(services.ErrConverterProcess, "conversion", "primary",
				fmt.Sprintf("%s timed out after %s", e.binary, e.timeout), err)
		}
		return services.Wrap(services.ErrConverterProcess, "conversion", "primary", e.binary+" failed", err)
	}
	if _, ok := fileutil.NonEmptyFile(dst); !ok {
		return services.Wrap(services.ErrConverterProcess, "conversion", "primary",
			fmt.Sprintf("%s exited cleanly without writing %s", e.binary, dst), nil)
	}
	return nil
}

type commandExecutor struct{}

func (commandExecutor) Run(ctx context.Context, binary string, args []string, onOutput func(string)) error {
	cmd := exec.CommandContext(ctx, binary, args...) //nolint:gosec
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("stdout pipe: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return fmt.Errorf("stderr pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start command: %w", err)
	}

	var wg sync.WaitGroup
	var mu sync.Mutex
	forward := func(line string) {
		if onOutput == nil {
			fmt.Fprintln(os.Stderr, line)
			return
		}
		mu.Lock()
		onOutput(line)
		mu.Unlock()
	}
	scan := func(r io.Reader) {
		defer wg.Done()
		scanner := bufio.NewScanner(r)
		for scanner.Scan() {
			forward(scanner.Text())
		}
	}
	wg.Add(2)
	go scan(stdout)
	go scan(stderr)
	wg.Wait()

	if err := cmd.Wait(); err != nil {
		return fmt.Errorf("wait command: %w", err)
	}
	return nil
}
