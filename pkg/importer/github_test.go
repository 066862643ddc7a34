package importer

import (
	"context"
	"net/http"
	"testing"

	"github.com/google/go-github/v29/github"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubLister struct {
	owner, repo string
	opts        *github.IssueListByRepoOptions
	issues      []*github.Issue
	err         error
}

func (s *stubLister) ListByRepo(ctx context.Context, owner, repo string, opts *github.IssueListByRepoOptions) ([]*github.Issue, *github.Response, error) {
	s.owner, s.repo, s.opts = owner, repo, opts
	if s.err != nil {
		return nil, nil, s.err
	}
	resp := &github.Response{Response: &http.Response{StatusCode: http.StatusOK}}
	return s.issues, resp, nil
}

func labeled(names ...string) []github.Label {
	out := make([]github.Label, 0, len(names))
	for _, n := range names {
		out = append(out, github.Label{Name: github.String(n)})
	}
	return out
}

func TestFetchConvertsIssues(t *testing.T) {
	stub := &stubLister{issues: []*github.Issue{
		{
			Title:   github.String("Fix login"),
			Body:    github.String("Redirect is broken.\n"),
			HTMLURL: github.String("https://github.com/acme/api/issues/7"),
			Labels:  labeled("pool:ready", "size:3", "priority:high", "skills:Go", "skills:sql", "area:Auth"),
		},
		{
			Title:            github.String("Some PR"),
			PullRequestLinks: &github.PullRequestLinks{URL: github.String("https://github.com/acme/api/pull/8")},
		},
		{
			HTMLURL: github.String("https://github.com/acme/api/issues/9"),
			Labels:  labeled("pool:ready"),
		},
	}}
	im := &IssueImporter{issues: stub}

	specs, err := im.Fetch(context.Background(), IssueQuery{Repo: "acme/api"})
	require.NoError(t, err)

	assert.Equal(t, "acme", stub.owner)
	assert.Equal(t, "api", stub.repo)
	assert.Equal(t, "open", stub.opts.State)
	assert.Equal(t, []string{"pool:ready"}, stub.opts.Labels)
	assert.Equal(t, 50, stub.opts.PerPage)

	require.Len(t, specs, 2)

	full := specs[0]
	assert.Equal(t, "acme/api", full.Repo)
	assert.Equal(t, "Fix login", full.Title)
	assert.Equal(t, "Imported from GitHub issue: https://github.com/acme/api/issues/7\n\nRedirect is broken.", full.Description)
	assert.Equal(t, 3, full.EstimatePoints)
	assert.Equal(t, 80, full.Priority)
	assert.Equal(t, []string{"Go", "sql"}, full.RequiredSkills)
	assert.Equal(t, "Auth", full.Area)
	assert.Equal(t, 0, full.Tier)

	bare := specs[1]
	assert.Equal(t, "(untitled)", bare.Title)
	assert.Equal(t, "Imported from GitHub issue: https://github.com/acme/api/issues/9", bare.Description)
	assert.Equal(t, 1, bare.EstimatePoints)
	assert.Equal(t, 50, bare.Priority)
	assert.Equal(t, []string{}, bare.RequiredSkills)
}

func TestFetchLimitCountsSkippedPulls(t *testing.T) {
	// The limit truncates the listing before pull requests are dropped,
	// so a window full of PRs can import fewer tasks than the limit.
	stub := &stubLister{issues: []*github.Issue{
		{PullRequestLinks: &github.PullRequestLinks{}},
		{Title: github.String("A")},
		{Title: github.String("B")},
	}}
	im := &IssueImporter{issues: stub}

	specs, err := im.Fetch(context.Background(), IssueQuery{Repo: "acme/api", Limit: 2})
	require.NoError(t, err)
	require.Len(t, specs, 1)
	assert.Equal(t, "A", specs[0].Title)
	assert.Equal(t, 2, stub.opts.PerPage)
}

func TestFetchRejectsBadRepo(t *testing.T) {
	im := &IssueImporter{issues: &stubLister{}}
	for _, repo := range []string{"", "acme", "acme/", "/api"} {
		_, err := im.Fetch(context.Background(), IssueQuery{Repo: repo})
		require.Error(t, err, "repo %q", repo)
	}
}

func TestEstimateFromLabels(t *testing.T) {
	tests := []struct {
		labels []string
		want   int
	}{
		{nil, 1},
		{[]string{"estimate:3"}, 3},
		{[]string{"SIZE:8"}, 8},
		{[]string{"size:500"}, 100},
		{[]string{"estimate:0"}, 1},
		{[]string{"estimate:abc", "size:2"}, 2},
		{[]string{"size:1x"}, 1},
	}
	for _, tt := range tests {
		if got := estimateFromLabels(tt.labels); got != tt.want {
			t.Errorf("estimateFromLabels(%v) = %d, want %d", tt.labels, got, tt.want)
		}
	}
}

func TestPriorityFromLabels(t *testing.T) {
	tests := []struct {
		labels []string
		want   int
	}{
		{nil, 50},
		{[]string{"priority:critical"}, 100},
		{[]string{"Priority:High"}, 80},
		{[]string{"priority:medium"}, 50},
		{[]string{"priority:low"}, 20},
		{[]string{"priority:85"}, 85},
		// A named label wins over a numeric one regardless of order.
		{[]string{"priority:85", "priority:low"}, 20},
		{[]string{"priority:x"}, 50},
	}
	for _, tt := range tests {
		if got := priorityFromLabels(tt.labels); got != tt.want {
			t.Errorf("priorityFromLabels(%v) = %d, want %d", tt.labels, got, tt.want)
		}
	}
}

func TestLabelValuesKeepsCase(t *testing.T) {
	labels := []string{"Skills:Go", "skills: sql ", "skills:", "area:auth", "unrelated"}
	assert.Equal(t, []string{"Go", "sql"}, labelValues("skills", labels))
	assert.Equal(t, []string{"auth"}, labelValues("area", labels))
	assert.Nil(t, labelValues("missing", labels))
}
