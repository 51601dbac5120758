package source

import (
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/GjhanAi/albion-recipes/internal/logger"
	"github.com/go-resty/resty/v2"
	"github.com/google/go-github/v74/github"
	"golang.org/x/oauth2"
)

const (
	DefaultUserAgent = "AlbionRecipesSync/1.0"
	DefaultTimeout   = 15 * time.Second
	DefaultAPIBase   = "https://api.github.com/"

	cacheBustParam = "_cb"
)

// DefaultRawTemplates are the raw-content fallbacks, in order: primary host,
// github.com mirror, CDN.
var DefaultRawTemplates = []string{
	"https://raw.githubusercontent.com/{owner}/{repo}/{branch}/{path}",
	"https://github.com/{owner}/{repo}/raw/{branch}/{path}",
	"https://cdn.jsdelivr.net/gh/{owner}/{repo}@{branch}/{path}",
}

// Options configures a Client. Zero values select the defaults above.
type Options struct {
	// Token is attached as a bearer Authorization header when non-empty.
	Token        string
	UserAgent    string
	Timeout      time.Duration
	APIBaseURL   string
	RawTemplates []string
	// Directories are listed, in order, by the directory-listing strategy.
	Directories []string
	Pattern     string
	PreferDir   string
	// MinBytes rejects payloads smaller than this.
	MinBytes int
	Log      logger.Logger
	Now      func() time.Time
}

// Client resolves and fetches the dump. It issues one request at a time.
type Client struct {
	gh      *github.Client
	rest    *resty.Client
	opts    Options
	matcher fileMatcher
	log     logger.Logger
}

// New builds a Client from opts.
func New(opts Options) (*Client, error) {
	if opts.UserAgent == "" {
		opts.UserAgent = DefaultUserAgent
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.APIBaseURL == "" {
		opts.APIBaseURL = DefaultAPIBase
	}
	if len(opts.RawTemplates) == 0 {
		opts.RawTemplates = DefaultRawTemplates
	}
	if len(opts.Directories) == 0 {
		opts.Directories = []string{"formatted"}
	}
	if opts.Pattern == "" {
		opts.Pattern = DefaultPattern
	}
	if opts.PreferDir == "" {
		opts.PreferDir = "formatted"
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Log == nil {
		opts.Log = logger.Nop()
	}

	base, err := url.Parse(strings.TrimRight(opts.APIBaseURL, "/") + "/")
	if err != nil {
		return nil, fmt.Errorf("invalid api base url: %w", err)
	}

	hc := &http.Client{
		Timeout:   opts.Timeout,
		Transport: newTransport(opts),
	}
	gh := github.NewClient(hc)
	gh.BaseURL = base
	gh.UserAgent = opts.UserAgent

	return &Client{
		gh:      gh,
		rest:    resty.NewWithClient(hc),
		opts:    opts,
		matcher: newFileMatcher(opts.Pattern),
		log:     opts.Log,
	}, nil
}

// identifyingTransport stamps every request with the client header and a
// cache-busting query parameter.
type identifyingTransport struct {
	base      http.RoundTripper
	userAgent string
	now       func() time.Time
}

func (t *identifyingTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	r := req.Clone(req.Context())
	r.Header.Set("User-Agent", t.userAgent)
	q := r.URL.Query()
	q.Set(cacheBustParam, strconv.FormatInt(t.now().UnixNano(), 10))
	r.URL.RawQuery = q.Encode()
	return t.base.RoundTrip(r)
}

func newTransport(opts Options) http.RoundTripper {
	var rt http.RoundTripper = &identifyingTransport{
		base:      http.DefaultTransport,
		userAgent: opts.UserAgent,
		now:       opts.Now,
	}
	if tok := strings.TrimSpace(opts.Token); tok != "" {
		rt = &oauth2.Transport{
			Source: oauth2.StaticTokenSource(&oauth2.Token{AccessToken: tok}),
			Base:   rt,
		}
	}
	return rt
}

// rawURLs expands the raw-content templates for one file.
func (c *Client) rawURLs(owner, repo, branch, path string) []string {
	r := strings.NewReplacer(
		"{owner}", owner,
		"{repo}", repo,
		"{branch}", branch,
		"{path}", strings.TrimLeft(path, "/"),
	)
	out := make([]string, 0, len(c.opts.RawTemplates))
	for _, tpl := range c.opts.RawTemplates {
		out = append(out, r.Replace(tpl))
	}
	return out
}
