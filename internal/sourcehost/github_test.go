package sourcehost

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/swxsoc/swxingest/internal/fetch"
)

func repoPage(owner string, from, n int) []map[string]any {
	out := make([]map[string]any, 0, n)
	for i := from; i < from+n; i++ {
		out = append(out, map[string]any{
			"name":      fmt.Sprintf("repo-%03d", i),
			"clone_url": fmt.Sprintf("https://github.com/%s/repo-%03d.git", owner, i),
			"owner":     map[string]string{"login": owner},
		})
	}
	return out
}

func TestListReposOrgPaginates(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/orgs/swxsoc/repos", r.URL.Path)
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		page, _ := strconv.Atoi(r.URL.Query().Get("page"))
		switch page {
		case 1:
			json.NewEncoder(w).Encode(repoPage("swxsoc", 0, 100))
		case 2:
			json.NewEncoder(w).Encode(repoPage("swxsoc", 100, 3))
		default:
			t.Errorf("unexpected page %d", page)
		}
	}))
	defer srv.Close()

	gh := NewGitHub(fetch.New(time.Second), srv.URL, "tok")
	repos, err := gh.ListRepos(context.Background(), "swxsoc")
	require.NoError(t, err)
	require.Len(t, repos, 103)
	assert.Equal(t, "repo-102", repos[102].Name)
	assert.Equal(t, "swxsoc", repos[0].Owner)
}

func TestListReposFallsBackToUser(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/orgs/someone/repos":
			http.Error(w, `{"message":"Not Found"}`, http.StatusNotFound)
		case "/users/someone/repos":
			json.NewEncoder(w).Encode(repoPage("someone", 0, 2))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	repos, err := NewGitHub(fetch.New(time.Second), srv.URL, "").ListRepos(context.Background(), "someone")
	require.NoError(t, err)
	assert.Len(t, repos, 2)
}

func TestListReposError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"message":"API rate limit exceeded"}`, http.StatusForbidden)
	}))
	defer srv.Close()

	_, err := NewGitHub(fetch.New(time.Second), srv.URL, "").ListRepos(context.Background(), "swxsoc")
	var ferr *fetch.ExternalFetchError
	require.ErrorAs(t, err, &ferr)
	assert.Equal(t, http.StatusForbidden, ferr.StatusCode)
	assert.Contains(t, err.Error(), "swxsoc")
}

func TestGitClonerBadURL(t *testing.T) {
	err := GitCloner{}.Clone(context.Background(), Repo{Owner: "o", Name: "n", CloneURL: "file:///definitely/not/here"}, t.TempDir())
	assert.ErrorContains(t, err, "clone o/n")
}
