package source

import (
	"context"
	"path"

	"github.com/google/go-github/v74/github"
)

// strategy looks for the dump in one candidate. A false result means "try the
// next strategy"; metadata API failures are reported that way too.
type strategy struct {
	method Method
	run    func(ctx context.Context, cand Candidate) (Location, bool)
}

// strategies are ordered from cheapest to most expensive.
func (c *Client) strategies() []strategy {
	return []strategy{
		{method: MethodPreferredPath, run: c.probePreferredPath},
		{method: MethodDirectoryListing, run: c.listDirectories},
		{method: MethodFullTree, run: c.searchTree},
	}
}

// Resolve returns the first location found, walking candidates in order and,
// for each, the strategies in order.
func (c *Client) Resolve(ctx context.Context, candidates []Candidate) (Location, error) {
	for _, cand := range candidates {
		for _, s := range c.strategies() {
			if err := ctx.Err(); err != nil {
				return Location{}, err
			}
			loc, ok := s.run(ctx, cand)
			if ok {
				c.log.Info("source resolved", "candidate", cand.String(), "method", string(s.method), "path", loc.Path)
				return loc, nil
			}
			c.log.Debug("strategy found nothing", "candidate", cand.String(), "method", string(s.method))
		}
		c.log.Warn("candidate exhausted", "candidate", cand.String())
	}
	return Location{}, &DiscoveryError{Tried: candidates}
}

func (c *Client) probePreferredPath(ctx context.Context, cand Candidate) (Location, bool) {
	if cand.Path == "" {
		return Location{}, false
	}
	urls := c.rawURLs(cand.Owner, cand.Repo, cand.Branch, cand.Path)
	if len(urls) == 0 {
		return Location{}, false
	}
	u := urls[0]
	resp, err := c.rest.R().SetContext(ctx).Head(u)
	if err != nil {
		c.log.Debug("probe failed", "url", u, "err", err)
		return Location{}, false
	}
	if !resp.IsSuccess() {
		c.log.Debug("probe failed", "url", u, "status", resp.StatusCode())
		return Location{}, false
	}
	return Location{
		Owner:       cand.Owner,
		Repo:        cand.Repo,
		Branch:      cand.Branch,
		Path:        cand.Path,
		DownloadURL: u,
		Method:      MethodPreferredPath,
	}, true
}

func (c *Client) listDirectories(ctx context.Context, cand Candidate) (Location, bool) {
	opts := &github.RepositoryContentGetOptions{Ref: cand.Branch}
	for _, dir := range c.opts.Directories {
		_, entries, _, err := c.gh.Repositories.GetContents(ctx, cand.Owner, cand.Repo, dir, opts)
		if err != nil {
			c.log.Debug("directory listing failed", "candidate", cand.String(), "dir", dir, "err", err)
			continue
		}
		for _, e := range entries {
			if e == nil || (e.GetType() != "" && e.GetType() != "file") {
				continue
			}
			if !c.matcher.Match(e.GetName()) {
				continue
			}
			p := e.GetPath()
			if p == "" {
				p = path.Join(dir, e.GetName())
			}
			return Location{
				Owner:       cand.Owner,
				Repo:        cand.Repo,
				Branch:      cand.Branch,
				Path:        p,
				DownloadURL: e.GetDownloadURL(),
				MetadataURL: e.GetURL(),
				Method:      MethodDirectoryListing,
			}, true
		}
	}
	return Location{}, false
}

func (c *Client) searchTree(ctx context.Context, cand Candidate) (Location, bool) {
	tree, _, err := c.gh.Git.GetTree(ctx, cand.Owner, cand.Repo, cand.Branch, true)
	if err != nil {
		c.log.Debug("tree listing failed", "candidate", cand.String(), "err", err)
		return Location{}, false
	}
	var chosen *github.TreeEntry
	for _, e := range tree.Entries {
		if e == nil || e.GetType() != "blob" || !c.matcher.Match(e.GetPath()) {
			continue
		}
		if underDir(e.GetPath(), c.opts.PreferDir) {
			chosen = e
			break
		}
		if chosen == nil {
			chosen = e
		}
	}
	if chosen == nil {
		return Location{}, false
	}
	return Location{
		Owner:       cand.Owner,
		Repo:        cand.Repo,
		Branch:      cand.Branch,
		Path:        chosen.GetPath(),
		MetadataURL: chosen.GetURL(),
		Method:      MethodFullTree,
	}, true
}
