// Package sourcehost lists repositories on a source-hosting service and
// checks them out for analysis.
package sourcehost

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-git/go-git/v5"

	"github.com/swxsoc/swxingest/internal/fetch"
)

const perPage = 100

// Repo is one hosted repository.
type Repo struct {
	Owner    string
	Name     string
	CloneURL string
	Fork     bool
	Archived bool
}

// GitHub lists public repositories through the GitHub REST API.
type GitHub struct {
	client  *fetch.Client
	baseURL string
	token   string
}

// NewGitHub creates a lister. token may be empty (unauthenticated rate limits apply).
func NewGitHub(client *fetch.Client, baseURL, token string) *GitHub {
	if baseURL == "" {
		baseURL = "https://api.github.com"
	}
	return &GitHub{client: client, baseURL: strings.TrimRight(baseURL, "/"), token: token}
}

type ghRepo struct {
	Name     string `json:"name"`
	CloneURL string `json:"clone_url"`
	Fork     bool   `json:"fork"`
	Archived bool   `json:"archived"`
	Owner    struct {
		Login string `json:"login"`
	} `json:"owner"`
}

// ListRepos tries the organization endpoint and falls back to the user
// endpoint when the name is not an organization.
func (g *GitHub) ListRepos(ctx context.Context, orgOrUser string) ([]Repo, error) {
	repos, err := g.list(ctx, "/orgs/"+url.PathEscape(orgOrUser)+"/repos")
	var ferr *fetch.ExternalFetchError
	if errors.As(err, &ferr) && ferr.StatusCode == http.StatusNotFound {
		repos, err = g.list(ctx, "/users/"+url.PathEscape(orgOrUser)+"/repos")
	}
	if err != nil {
		return nil, fmt.Errorf("list repos for %s: %w", orgOrUser, err)
	}
	return repos, nil
}

func (g *GitHub) list(ctx context.Context, path string) ([]Repo, error) {
	header := http.Header{"Accept": {"application/vnd.github+json"}}
	if g.token != "" {
		header.Set("Authorization", "Bearer "+g.token)
	}

	var out []Repo
	for page := 1; ; page++ {
		var batch []ghRepo
		err := g.client.GetJSON(ctx, fetch.Request{
			URL: g.baseURL + path,
			Query: url.Values{
				"type":     {"public"},
				"per_page": {strconv.Itoa(perPage)},
				"page":     {strconv.Itoa(page)},
			},
			Header: header,
		}, &batch)
		if err != nil {
			return nil, err
		}
		for _, r := range batch {
			out = append(out, Repo{
				Owner:    r.Owner.Login,
				Name:     r.Name,
				CloneURL: r.CloneURL,
				Fork:     r.Fork,
				Archived: r.Archived,
			})
		}
		if len(batch) < perPage {
			return out, nil
		}
	}
}

// Cloner checks a repository out into a local directory.
type Cloner interface {
	Clone(ctx context.Context, repo Repo, dir string) error
}

// GitCloner makes shallow single-branch clones with go-git.
type GitCloner struct{}

// Clone implements Cloner.
func (GitCloner) Clone(ctx context.Context, repo Repo, dir string) error {
	_, err := git.PlainCloneContext(ctx, dir, false, &git.CloneOptions{
		URL:          repo.CloneURL,
		Depth:        1,
		SingleBranch: true,
		Tags:         git.NoTags,
	})
	if err != nil {
		return fmt.Errorf("clone %s/%s: %w", repo.Owner, repo.Name, err)
	}
	return nil
}
