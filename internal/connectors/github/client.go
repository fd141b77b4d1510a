package github

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	gh "github.com/google/go-github/v80/github"
	"golang.org/x/oauth2"

	"github.com/custodia-labs/vecsync/internal/core/domain"
)

// DefaultTimeout is the default HTTP request timeout.
const DefaultTimeout = 30 * time.Second

// client wraps the go-github client with rate limiting and error
// classification.
type client struct {
	gh      *gh.Client
	limiter *rateLimiter
}

// newClient creates a GitHub API client authenticated with a static token.
func newClient(ctx context.Context, token string) *client {
	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})
	tc := oauth2.NewClient(ctx, ts)
	tc.Timeout = DefaultTimeout

	return &client{
		gh:      gh.NewClient(tc),
		limiter: newRateLimiter(),
	}
}

// withBaseURL points the client at a different API root. Test hook.
func (c *client) withBaseURL(baseURL string) error {
	u, err := c.gh.BaseURL.Parse(baseURL)
	if err != nil {
		return err
	}
	c.gh.BaseURL = u
	return nil
}

// validate checks the token by fetching the authenticated user.
func (c *client) validate(ctx context.Context) error {
	if err := c.limiter.wait(ctx); err != nil {
		return err
	}
	_, resp, err := c.gh.Users.Get(ctx, "")
	if resp != nil {
		c.limiter.update(resp.Response)
	}
	if err != nil {
		return c.wrapError(err, "validate credentials")
	}
	return nil
}

// getTree fetches the full recursive tree for a branch.
func (c *client) getTree(ctx context.Context, owner, repo, branch string) (*gh.Tree, error) {
	if err := c.limiter.wait(ctx); err != nil {
		return nil, err
	}
	tree, resp, err := c.gh.Git.GetTree(ctx, owner, repo, branch, true)
	if resp != nil {
		c.limiter.update(resp.Response)
	}
	if err != nil {
		return nil, c.wrapError(err, fmt.Sprintf("get tree %s/%s@%s", owner, repo, branch))
	}
	return tree, nil
}

// getBlob fetches a blob by SHA.
func (c *client) getBlob(ctx context.Context, owner, repo, sha string) (*gh.Blob, error) {
	if err := c.limiter.wait(ctx); err != nil {
		return nil, err
	}
	blob, resp, err := c.gh.Git.GetBlob(ctx, owner, repo, sha)
	if resp != nil {
		c.limiter.update(resp.Response)
	}
	if err != nil {
		return nil, c.wrapError(err, fmt.Sprintf("get blob %s", sha))
	}
	return blob, nil
}

// getRepo fetches repository metadata, used to resolve the default branch.
func (c *client) getRepo(ctx context.Context, owner, repo string) (*gh.Repository, error) {
	if err := c.limiter.wait(ctx); err != nil {
		return nil, err
	}
	repository, resp, err := c.gh.Repositories.Get(ctx, owner, repo)
	if resp != nil {
		c.limiter.update(resp.Response)
	}
	if err != nil {
		return nil, c.wrapError(err, fmt.Sprintf("get repo %s/%s", owner, repo))
	}
	return repository, nil
}

// wrapError classifies a go-github error into the domain taxonomy.
func (c *client) wrapError(err error, op string) error {
	var rateErr *gh.RateLimitError
	if errors.As(err, &rateErr) {
		return fmt.Errorf("%w: github: %s", domain.ErrRateLimited, op)
	}
	var abuseErr *gh.AbuseRateLimitError
	if errors.As(err, &abuseErr) {
		return fmt.Errorf("%w: github: %s", domain.ErrRateLimited, op)
	}

	var respErr *gh.ErrorResponse
	if errors.As(err, &respErr) && respErr.Response != nil {
		switch respErr.Response.StatusCode {
		case http.StatusUnauthorized, http.StatusForbidden:
			return fmt.Errorf("%w: github: %s", domain.ErrAuthFailed, op)
		case http.StatusNotFound:
			return fmt.Errorf("%w: github: %s", domain.ErrNotFound, op)
		}
		if respErr.Response.StatusCode >= 500 {
			return domain.Transient(fmt.Errorf("%w: github: %s: %v", domain.ErrSourceFetch, op, err))
		}
	}

	return fmt.Errorf("%w: github: %s: %v", domain.ErrSourceFetch, op, err)
}
