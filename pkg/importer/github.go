package importer

import (
	"context"
	"fmt"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/google/go-github/v29/github"

	"github.com/cbruyndoncx/open-work-protocol/pkg/client"
)

// DefaultIssueLabel selects which issues are considered pool work when
// no label is given.
const DefaultIssueLabel = "pool:ready"

const (
	githubTimeout  = 30 * time.Second
	maxIssueImport = 200

	// Issues without sizing labels land as small, middling work.
	estimateFallback = 1
	priorityFallback = 50
)

// issueLister is the one Issues API call the importer uses, split out
// so tests can stub GitHub.
type issueLister interface {
	ListByRepo(ctx context.Context, owner, repo string, opts *github.IssueListByRepoOptions) ([]*github.Issue, *github.Response, error)
}

// IssueImporter turns labeled GitHub issues into task specs.
type IssueImporter struct {
	issues issueLister
}

// NewIssueImporter builds an importer. Authentication rides in the HTTP
// transport: when token is non-empty every GitHub request carries it as
// a bearer header. Without a token the importer still works against
// public repos, subject to GitHub's anonymous rate limits.
func NewIssueImporter(token string) *IssueImporter {
	hc := &http.Client{Timeout: githubTimeout}
	if token != "" {
		hc.Transport = &tokenTransport{token: token, base: http.DefaultTransport}
	}
	return &IssueImporter{issues: github.NewClient(hc).Issues}
}

// IssueQuery selects which issues to import.
type IssueQuery struct {
	Repo  string // owner/name
	Label string // empty means DefaultIssueLabel
	Limit int    // 1..200, 0 means 50
}

// Fetch lists open issues carrying the query label and converts them to
// task specs. Pull requests surface in the issues listing too; they
// count against the limit but are skipped. A single page is fetched, so
// at most 100 issues come back regardless of Limit.
func (im *IssueImporter) Fetch(ctx context.Context, q IssueQuery) ([]client.TaskSpec, error) {
	owner, name, ok := strings.Cut(q.Repo, "/")
	if !ok || owner == "" || name == "" {
		return nil, fmt.Errorf("repo must look like owner/name, got %q", q.Repo)
	}
	label := q.Label
	if label == "" {
		label = DefaultIssueLabel
	}
	limit := q.Limit
	if limit <= 0 {
		limit = 50
	}
	if limit > maxIssueImport {
		limit = maxIssueImport
	}
	perPage := limit
	if perPage > 100 {
		perPage = 100
	}

	issues, resp, err := im.issues.ListByRepo(ctx, owner, name, &github.IssueListByRepoOptions{
		State:       "open",
		Labels:      []string{label},
		ListOptions: github.ListOptions{PerPage: perPage},
	})
	if err != nil {
		return nil, fmt.Errorf("list issues for %s: %w", q.Repo, err)
	}
	if resp != nil && resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("list issues for %s: unexpected status %d", q.Repo, resp.StatusCode)
	}

	if len(issues) > limit {
		issues = issues[:limit]
	}
	specs := make([]client.TaskSpec, 0, len(issues))
	for _, issue := range issues {
		if issue.IsPullRequest() {
			continue
		}
		specs = append(specs, issueSpec(q.Repo, issue))
	}
	return specs, nil
}

func issueSpec(repo string, issue *github.Issue) client.TaskSpec {
	labels := make([]string, 0, len(issue.Labels))
	for _, lab := range issue.Labels {
		if name := lab.GetName(); name != "" {
			labels = append(labels, name)
		}
	}

	title := issue.GetTitle()
	if title == "" {
		title = "(untitled)"
	}
	body := strings.TrimSpace(issue.GetBody())
	description := strings.TrimSpace(fmt.Sprintf("Imported from GitHub issue: %s\n\n%s", issue.GetHTMLURL(), body))

	skills := labelValues("skills", labels)
	if skills == nil {
		skills = []string{}
	}
	area := ""
	if areas := labelValues("area", labels); len(areas) > 0 {
		area = areas[0]
	}

	return client.TaskSpec{
		Repo:           repo,
		Title:          title,
		Description:    description,
		EstimatePoints: estimateFromLabels(labels),
		Priority:       priorityFromLabels(labels),
		RequiredSkills: skills,
		Area:           area,
		Tier:           0,
	}
}

var (
	estimateLabelRe = regexp.MustCompile(`^(?:estimate|size):([0-9]+)$`)
	priorityLabelRe = regexp.MustCompile(`^priority:([0-9]+)$`)
)

// priorityNames maps conventional triage labels to scheduler priority.
var priorityNames = map[string]int{
	"priority:critical": 100,
	"priority:high":     80,
	"priority:medium":   50,
	"priority:low":      20,
}

// estimateFromLabels returns the first estimate:N or size:N label value
// clamped to 1..100.
func estimateFromLabels(labels []string) int {
	for _, lab := range labels {
		m := estimateLabelRe.FindStringSubmatch(strings.ToLower(strings.TrimSpace(lab)))
		if m == nil {
			continue
		}
		n, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		if n < 1 {
			n = 1
		}
		if n > 100 {
			n = 100
		}
		return n
	}
	return estimateFallback
}

// priorityFromLabels resolves named priority labels first, then numeric
// priority:N ones. Numeric values pass through as written; the server
// enforces its own bounds.
func priorityFromLabels(labels []string) int {
	for _, lab := range labels {
		if p, ok := priorityNames[strings.ToLower(strings.TrimSpace(lab))]; ok {
			return p
		}
	}
	for _, lab := range labels {
		m := priorityLabelRe.FindStringSubmatch(strings.ToLower(strings.TrimSpace(lab)))
		if m == nil {
			continue
		}
		if n, err := strconv.Atoi(m[1]); err == nil {
			return n
		}
	}
	return priorityFallback
}

// labelValues collects the values of prefix:value labels, keeping each
// value's original case.
func labelValues(prefix string, labels []string) []string {
	want := strings.ToLower(prefix) + ":"
	var out []string
	for _, lab := range labels {
		lab = strings.TrimSpace(lab)
		if len(lab) <= len(want) || !strings.EqualFold(lab[:len(want)], want) {
			continue
		}
		if v := strings.TrimSpace(lab[len(want):]); v != "" {
			out = append(out, v)
		}
	}
	return out
}

// tokenTransport adds a bearer token to outgoing GitHub requests; the
// rest of the client is stock go-github.
type tokenTransport struct {
	token string
	base  http.RoundTripper
}

func (t *tokenTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	clone := req.Clone(req.Context())
	clone.Header.Set("Authorization", "Bearer "+t.token)
	return t.base.RoundTrip(clone)
}
