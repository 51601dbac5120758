package source

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/GjhanAi/albion-recipes/internal/recipe"
	"github.com/google/go-github/v74/github"
)

var errNotArray = errors.New("body is not a JSON array")

// FetchContent downloads the dump for loc. It tries the download URL, then
// the metadata URL, then each raw-content fallback, and returns the first
// body that parses as a JSON array.
func (c *Client) FetchContent(ctx context.Context, loc Location) ([]byte, error) {
	fe := &FetchError{Location: loc}
	seen := map[string]bool{}

	attempt := func(u string, get func(context.Context, string) ([]byte, error)) ([]byte, bool) {
		if u == "" || seen[u] {
			return nil, false
		}
		seen[u] = true
		c.log.Debug("fetching", "url", u)
		body, err := get(ctx, u)
		if err == nil {
			err = c.accept(body)
		}
		if err != nil {
			c.log.Warn("fetch attempt failed", "url", u, "err", err)
			fe.Attempts = append(fe.Attempts, Attempt{URL: u, Err: err})
			return nil, false
		}
		c.log.Info("fetched", "url", u, "bytes", len(body))
		return body, true
	}

	if body, ok := attempt(loc.DownloadURL, c.getRaw); ok {
		return body, nil
	}
	if body, ok := attempt(loc.MetadataURL, c.getMetadata); ok {
		return body, nil
	}
	for _, u := range c.rawURLs(loc.Owner, loc.Repo, loc.Branch, loc.Path) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if body, ok := attempt(u, c.getRaw); ok {
			return body, nil
		}
	}
	return nil, fe
}

func (c *Client) accept(body []byte) error {
	if len(body) < c.opts.MinBytes {
		return fmt.Errorf("payload too small (%d bytes, want at least %d)", len(body), c.opts.MinBytes)
	}
	if !recipe.IsJSONArray(body) {
		return errNotArray
	}
	return nil
}

func (c *Client) getRaw(ctx context.Context, u string) ([]byte, error) {
	resp, err := c.rest.R().SetContext(ctx).Get(u)
	if err != nil {
		return nil, err
	}
	if !resp.IsSuccess() {
		return nil, statusError{Code: resp.StatusCode()}
	}
	return resp.Body(), nil
}

// getMetadata reads a contents or blob API envelope and returns its decoded
// payload.
func (c *Client) getMetadata(ctx context.Context, u string) ([]byte, error) {
	req, err := c.gh.NewRequest(http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	var rc github.RepositoryContent
	if _, err := c.gh.Do(ctx, req, &rc); err != nil {
		return nil, err
	}
	content, err := rc.GetContent()
	if err != nil {
		return nil, err
	}
	return []byte(content), nil
}
