package routines

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/swxsoc/swxingest/internal/linecount"
	"github.com/swxsoc/swxingest/internal/sourcehost"
)

// CodeReport counts the lines of code in every public repository of the
// configured organizations and users and uploads the result as CSV.
type CodeReport struct {
	OrgsUsers []string
	Bucket    string
	Key       string
	Repos     RepoLister
	Cloner    sourcehost.Cloner
	Counter   linecount.Counter
	Uploader  Uploader
	// WorkDir is the parent for scratch checkouts; empty means os.TempDir().
	WorkDir string
}

// Run implements Routine.
func (c *CodeReport) Run(ctx context.Context) error {
	return run(ctx, "create_code_line_count_report", c.run)
}

func (c *CodeReport) run(ctx context.Context, logger *slog.Logger) error {
	if len(c.OrgsUsers) == 0 {
		return errors.New("code report: no organizations or users configured")
	}
	if c.Bucket == "" || c.Key == "" {
		return errors.New("code report: destination bucket and key are required")
	}
	if c.Repos == nil || c.Cloner == nil || c.Counter == nil || c.Uploader == nil {
		return errors.New("code report: collaborators not configured")
	}

	scratch, err := os.MkdirTemp(c.WorkDir, "swxingest-cloc-")
	if err != nil {
		return fmt.Errorf("create scratch dir: %w", err)
	}
	defer os.RemoveAll(scratch)

	var rows []linecount.Row
	for _, owner := range c.OrgsUsers {
		repos, err := c.Repos.ListRepos(ctx, owner)
		if err != nil {
			return err
		}
		logger.Info("repositories listed", "owner", owner, "count", len(repos))
		for i, repo := range repos {
			langs, err := c.count(ctx, repo, filepath.Join(scratch, fmt.Sprintf("%s-%d", owner, i)))
			if err != nil {
				// One unreadable repository does not sink the report.
				logger.Warn("repository skipped", "owner", owner, "repo", repo.Name, "error", err)
				continue
			}
			for _, l := range langs {
				rows = append(rows, linecount.Row{Org: owner, Repo: repo.Name, Language: l})
			}
		}
	}

	report := filepath.Join(scratch, "report.csv")
	f, err := os.Create(report)
	if err != nil {
		return fmt.Errorf("create report: %w", err)
	}
	if err := linecount.WriteCSV(f, rows); err != nil {
		f.Close()
		return fmt.Errorf("write report: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close report: %w", err)
	}
	logger.Info("report written", "rows", len(rows))

	return c.Uploader.Upload(ctx, report, c.Bucket, c.Key)
}

// count checks the repository out, counts it and removes the checkout.
func (c *CodeReport) count(ctx context.Context, repo sourcehost.Repo, dir string) ([]linecount.Language, error) {
	defer os.RemoveAll(dir)
	if err := c.Cloner.Clone(ctx, repo, dir); err != nil {
		return nil, err
	}
	return c.Counter.Count(ctx, dir)
}
