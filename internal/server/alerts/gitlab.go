package alerts

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	gitlab "gitlab.com/gitlab-org/api/client-go"

	"github.com/dmitrijs2005/preservd/internal/common"
	"github.com/dmitrijs2005/preservd/internal/netx"
)

// GitLabAlerter opens an issue in a GitLab project for every alert.
type GitLabAlerter struct {
	client  *gitlab.Client
	project string
}

// NewGitLabAlerter builds an alerter for project, a numeric id or a
// "group/name" path, on the GitLab instance at baseURL.
func NewGitLabAlerter(baseURL, project, token string, opts ...gitlab.ClientOptionFunc) (*GitLabAlerter, error) {
	opts = append([]gitlab.ClientOptionFunc{
		gitlab.WithBaseURL(baseURL),
		gitlab.WithHTTPClient(&http.Client{Timeout: 30 * time.Second}),
	}, opts...)

	client, err := gitlab.NewClient(token, opts...)
	if err != nil {
		return nil, fmt.Errorf("gitlab client: %w", err)
	}
	return &GitLabAlerter{client: client, project: project}, nil
}

// Raise creates the issue.
func (g *GitLabAlerter) Raise(ctx context.Context, a Alert) error {
	opt := &gitlab.CreateIssueOptions{
		Title:       gitlab.Ptr(a.Title),
		Description: gitlab.Ptr(a.Body),
	}
	if len(a.Labels) > 0 {
		labels := gitlab.LabelOptions(a.Labels)
		opt.Labels = &labels
	}

	_, resp, err := g.client.Issues.CreateIssue(g.project, opt, gitlab.WithContext(ctx))
	if err == nil {
		return nil
	}

	endpoint := "projects/" + url.PathEscape(g.project) + "/issues"
	if resp == nil || resp.Response == nil {
		return netx.TransportError(http.MethodPost, endpoint, err)
	}
	return &common.StoreError{
		Op:     http.MethodPost,
		URL:    endpoint,
		Status: resp.StatusCode,
		Kind:   netx.KindForStatus(resp.StatusCode),
		Err:    err,
	}
}
