// Package linecount runs an external line-counting tool over checked-out
// repositories and renders the results as a CSV report.
package linecount

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"sort"
	"syscall"
	"time"

	"github.com/tidwall/gjson"

	"github.com/swxsoc/swxingest/internal/log"
)

const (
	// maxStderrBytes caps the amount of stderr kept from the counter.
	maxStderrBytes = 64 * 1024

	// terminationGracePeriod is the wait between SIGTERM and SIGKILL.
	terminationGracePeriod = 5 * time.Second

	DefaultTimeout = 2 * time.Minute
)

// Language is the count for one language within a directory.
type Language struct {
	Name    string
	Files   int64
	Blank   int64
	Comment int64
	Code    int64
}

// Counter counts lines of code under a directory.
type Counter interface {
	Count(ctx context.Context, dir string) ([]Language, error)
}

// Cloc runs `cloc --json`.
type Cloc struct {
	Path    string
	Timeout time.Duration
	logger  *slog.Logger
}

// NewCloc returns a Cloc runner. An empty path means "cloc" on $PATH.
func NewCloc(path string, timeout time.Duration) *Cloc {
	if path == "" {
		path = "cloc"
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Cloc{Path: path, Timeout: timeout, logger: log.WithComponent("linecount")}
}

// Count implements Counter.
func (c *Cloc) Count(ctx context.Context, dir string) ([]Language, error) {
	stdout, stderr, err := c.run(ctx, "--json", "--quiet", dir)
	if err != nil {
		if stderr != "" {
			return nil, fmt.Errorf("cloc %s: %w: %s", dir, err, stderr)
		}
		return nil, fmt.Errorf("cloc %s: %w", dir, err)
	}
	return ParseJSON(stdout)
}

// run executes the tool and enforces the timeout with SIGTERM then SIGKILL.
func (c *Cloc) run(ctx context.Context, args ...string) ([]byte, string, error) {
	timer := time.NewTimer(c.Timeout)
	defer timer.Stop()

	cmd := exec.Command(c.Path, args...)
	var stdout bytes.Buffer
	stderr := &cappedBuffer{limit: maxStderrBytes}
	cmd.Stdout = &stdout
	cmd.Stderr = stderr

	if err := cmd.Start(); err != nil {
		return nil, "", fmt.Errorf("start process: %w", err)
	}

	waitErr := make(chan error, 1)
	go func() { waitErr <- cmd.Wait() }()

	terminate := func(reason error) ([]byte, string, error) {
		if err := cmd.Process.Signal(syscall.SIGTERM); err != nil {
			c.logger.Error("failed to send SIGTERM", "error", err)
		}
		grace := time.NewTimer(terminationGracePeriod)
		defer grace.Stop()
		select {
		case <-waitErr:
		case <-grace.C:
			c.logger.Warn("counter did not exit after SIGTERM, sending SIGKILL")
			_ = cmd.Process.Kill()
			<-waitErr
		}
		return nil, stderr.String(), reason
	}

	select {
	case <-timer.C:
		c.logger.Warn("counter timed out", "timeout", c.Timeout)
		return terminate(context.DeadlineExceeded)
	case <-ctx.Done():
		return terminate(ctx.Err())
	case err := <-waitErr:
		stderrStr := stderr.String()
		if err != nil {
			var exitErr *exec.ExitError
			if errors.As(err, &exitErr) {
				return nil, stderrStr, fmt.Errorf("exit status %d", exitErr.ExitCode())
			}
			return nil, stderrStr, fmt.Errorf("wait for process: %w", err)
		}
		return stdout.Bytes(), stderrStr, nil
	}
}

// ParseJSON decodes cloc's JSON report, dropping the header and SUM entries.
// Languages come back sorted by name.
func ParseJSON(b []byte) ([]Language, error) {
	if len(bytes.TrimSpace(b)) == 0 {
		// cloc prints nothing for directories without recognised sources.
		return nil, nil
	}
	if !gjson.ValidBytes(b) {
		return nil, errors.New("cloc output is not valid JSON")
	}
	var out []Language
	gjson.ParseBytes(b).ForEach(func(key, value gjson.Result) bool {
		name := key.String()
		if name == "header" || name == "SUM" || !value.IsObject() {
			return true
		}
		out = append(out, Language{
			Name:    name,
			Files:   value.Get("nFiles").Int(),
			Blank:   value.Get("blank").Int(),
			Comment: value.Get("comment").Int(),
			Code:    value.Get("code").Int(),
		})
		return true
	})
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// cappedBuffer keeps the first limit bytes written and discards the rest.
// Writes always report full success so the child never sees a broken pipe.
type cappedBuffer struct {
	buf   bytes.Buffer
	limit int
}

func (b *cappedBuffer) Write(p []byte) (int, error) {
	if room := b.limit - b.buf.Len(); room > 0 {
		if len(p) > room {
			b.buf.Write(p[:room])
		} else {
			b.buf.Write(p)
		}
	}
	return len(p), nil
}

func (b *cappedBuffer) String() string { return b.buf.String() }
