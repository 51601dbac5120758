package source

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"
)

type route struct {
	status int
	body   string
}

type seenRequest struct {
	method string
	path   string
	query  string
	header http.Header
}

// fakeHub serves canned responses for the GitHub API and raw hosts. Unknown
// paths answer 404.
type fakeHub struct {
	mu       sync.Mutex
	routes   map[string]route
	requests []seenRequest
	srv      *httptest.Server
}

func newFakeHub(t *testing.T) *fakeHub {
	t.Helper()
	h := &fakeHub{routes: map[string]route{}}
	h.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h.mu.Lock()
		h.requests = append(h.requests, seenRequest{
			method: r.Method,
			path:   r.URL.Path,
			query:  r.URL.RawQuery,
			header: r.Header.Clone(),
		})
		rt, ok := h.routes[r.URL.Path]
		h.mu.Unlock()
		if !ok {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"message":"Not Found"}`))
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(rt.status)
		_, _ = w.Write([]byte(rt.body))
	}))
	t.Cleanup(h.srv.Close)
	return h
}

func (h *fakeHub) set(path string, status int, body string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.routes[path] = route{status: status, body: body}
}

func (h *fakeHub) hits(path string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	n := 0
	for _, r := range h.requests {
		if r.path == path {
			n++
		}
	}
	return n
}

func (h *fakeHub) client(t *testing.T, mutate func(*Options)) *Client {
	t.Helper()
	opts := Options{
		APIBaseURL: h.srv.URL + "/api",
		RawTemplates: []string{
			h.srv.URL + "/raw/{owner}/{repo}/{branch}/{path}",
			h.srv.URL + "/mirror/{owner}/{repo}/raw/{branch}/{path}",
			h.srv.URL + "/cdn/{owner}/{repo}@{branch}/{path}",
		},
		Timeout: 5 * time.Second,
		Now:     func() time.Time { return time.Unix(1700000000, 0) },
	}
	if mutate != nil {
		mutate(&opts)
	}
	c, err := New(opts)
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	return c
}

const dump = `[{"OutputObject":"T4_BAG","Ingredients":[{"Item":"T4_LEATHER","Count":2}]}]`

func TestResolve_ThirdCandidateViaFullTree(t *testing.T) {
	h := newFakeHub(t)
	h.set("/api/repos/c/three/git/trees/main", 200, `{"sha":"x","truncated":false,"tree":[
		{"path":"README.md","type":"blob"},
		{"path":"data/recipes.json","type":"blob","url":"https://example.invalid/blob/1"},
		{"path":"formatted","type":"tree"},
		{"path":"formatted/Recipes_v2.json","type":"blob","url":"https://example.invalid/blob/2"}
	]}`)
	c := h.client(t, nil)
	cands := []Candidate{
		{Owner: "a", Repo: "one", Branch: "master", Path: "formatted/recipes.json"},
		{Owner: "b", Repo: "two", Branch: "master"},
		{Owner: "c", Repo: "three", Branch: "main", Path: "formatted/recipes.json"},
	}
	loc, err := c.Resolve(context.Background(), cands)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if loc.Owner != "c" || loc.Repo != "three" || loc.Branch != "main" {
		t.Fatalf("unexpected candidate: %+v", loc)
	}
	if loc.Method != MethodFullTree || loc.Path != "formatted/Recipes_v2.json" {
		t.Fatalf("expected formatted match via full tree, got %+v", loc)
	}
	if loc.MetadataURL != "https://example.invalid/blob/2" {
		t.Fatalf("unexpected metadata url: %q", loc.MetadataURL)
	}
	if h.hits("/raw/a/one/master/formatted/recipes.json") != 1 {
		t.Fatalf("expected preferred path probe for first candidate")
	}
	if h.hits("/raw/b/two/master/") != 0 {
		t.Fatalf("candidate without path must not be probed")
	}
	if h.hits("/api/repos/a/one/contents/formatted") != 1 || h.hits("/api/repos/b/two/git/trees/master") != 1 {
		t.Fatalf("expected every strategy to run for failing candidates")
	}
}

func TestResolve_PreferredPathShortCircuits(t *testing.T) {
	h := newFakeHub(t)
	h.set("/raw/ao-data/ao-bin-dumps/master/formatted/recipes.json", 200, dump)
	c := h.client(t, nil)
	loc, err := c.Resolve(context.Background(), DefaultCandidates())
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if loc.Method != MethodPreferredPath {
		t.Fatalf("unexpected method: %s", loc.Method)
	}
	if loc.DownloadURL != h.srv.URL+"/raw/ao-data/ao-bin-dumps/master/formatted/recipes.json" {
		t.Fatalf("unexpected download url: %q", loc.DownloadURL)
	}
	if h.hits("/api/repos/ao-data/ao-bin-dumps/contents/formatted") != 0 {
		t.Fatalf("metadata api must not be queried after a successful probe")
	}
}

func TestResolve_DirectoryListingCaseInsensitive(t *testing.T) {
	h := newFakeHub(t)
	h.set("/api/repos/o/r/contents/formatted", 200, fmt.Sprintf(`[
		{"name":"items.json","path":"formatted/items.json","type":"file"},
		{"name":"sub","path":"formatted/sub","type":"dir"},
		{"name":"RECIPES.JSON","path":"formatted/RECIPES.JSON","type":"file",
		 "download_url":"%[1]s/dl/recipes","url":"%[1]s/api/meta/recipes"}
	]`, h.srv.URL))
	c := h.client(t, nil)
	loc, err := c.Resolve(context.Background(), []Candidate{{Owner: "o", Repo: "r", Branch: "dev"}})
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if loc.Method != MethodDirectoryListing || loc.Path != "formatted/RECIPES.JSON" {
		t.Fatalf("unexpected location: %+v", loc)
	}
	if loc.DownloadURL != h.srv.URL+"/dl/recipes" || loc.MetadataURL != h.srv.URL+"/api/meta/recipes" {
		t.Fatalf("unexpected urls: %+v", loc)
	}
	if h.hits("/api/repos/o/r/git/trees/dev") != 0 {
		t.Fatalf("tree must not be queried after a listing hit")
	}
}

func TestResolve_TreeFallsBackToFirstMatch(t *testing.T) {
	h := newFakeHub(t)
	h.set("/api/repos/o/r/git/trees/master", 200, `{"tree":[
		{"path":"dumps/old/recipes.json","type":"blob"},
		{"path":"dumps/new/recipes.json","type":"blob"}
	]}`)
	c := h.client(t, nil)
	loc, err := c.Resolve(context.Background(), []Candidate{{Owner: "o", Repo: "r", Branch: "master"}})
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if loc.Path != "dumps/old/recipes.json" {
		t.Fatalf("expected first match, got %q", loc.Path)
	}
}

func TestResolve_Exhausted(t *testing.T) {
	h := newFakeHub(t)
	h.set("/api/repos/o/r/contents/formatted", 500, `{"message":"boom"}`)
	h.set("/api/repos/o/r/git/trees/master", 200, `{"tree":[{"path":"items.json","type":"blob"}]}`)
	c := h.client(t, nil)
	cands := []Candidate{{Owner: "o", Repo: "r", Branch: "master", Path: "x.json"}, {Owner: "p", Repo: "q", Branch: "main"}}
	_, err := c.Resolve(context.Background(), cands)
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	var de *DiscoveryError
	if !errors.As(err, &de) || len(de.Tried) != 2 {
		t.Fatalf("expected DiscoveryError with 2 candidates, got %v", err)
	}
}

func TestResolve_CanceledContext(t *testing.T) {
	h := newFakeHub(t)
	c := h.client(t, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := c.Resolve(ctx, DefaultCandidates())
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestFetchContent_FallsBackToBase64Metadata(t *testing.T) {
	h := newFakeHub(t)
	h.set("/dl/recipes", 200, "<html>rate limited</html>")
	enc := base64.StdEncoding.EncodeToString([]byte(dump))
	enc = enc[:10] + "\n" + enc[10:]
	h.set("/api/meta/recipes", 200, fmt.Sprintf(`{"encoding":"base64","content":%q}`, enc))
	c := h.client(t, nil)
	loc := Location{
		Owner: "o", Repo: "r", Branch: "master", Path: "formatted/recipes.json",
		DownloadURL: h.srv.URL + "/dl/recipes",
		MetadataURL: h.srv.URL + "/api/meta/recipes",
	}
	body, err := c.FetchContent(context.Background(), loc)
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if string(body) != dump {
		t.Fatalf("unexpected body: %q", string(body))
	}
	if h.hits("/raw/o/r/master/formatted/recipes.json") != 0 {
		t.Fatalf("raw fallbacks must not run after metadata success")
	}
}

func TestFetchContent_RawFallbackOrder(t *testing.T) {
	h := newFakeHub(t)
	h.set("/raw/o/r/master/formatted/recipes.json", 500, "oops")
	h.set("/mirror/o/r/raw/master/formatted/recipes.json", 200, `{"not":"array"}`)
	h.set("/cdn/o/r@master/formatted/recipes.json", 200, dump)
	c := h.client(t, nil)
	body, err := c.FetchContent(context.Background(), Location{Owner: "o", Repo: "r", Branch: "master", Path: "formatted/recipes.json"})
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if string(body) != dump {
		t.Fatalf("unexpected body: %q", string(body))
	}
}

func TestFetchContent_AllFail(t *testing.T) {
	h := newFakeHub(t)
	c := h.client(t, nil)
	loc := Location{
		Owner: "o", Repo: "r", Branch: "master", Path: "formatted/recipes.json",
		DownloadURL: h.srv.URL + "/raw/o/r/master/formatted/recipes.json",
		MetadataURL: h.srv.URL + "/api/meta/missing",
	}
	_, err := c.FetchContent(context.Background(), loc)
	if !errors.Is(err, ErrFetch) {
		t.Fatalf("expected ErrFetch, got %v", err)
	}
	var fe *FetchError
	if !errors.As(err, &fe) {
		t.Fatalf("expected FetchError, got %T", err)
	}
	// download url doubles as the first raw fallback and is tried once
	if len(fe.Attempts) != 4 {
		t.Fatalf("expected 4 attempts, got %d: %v", len(fe.Attempts), fe)
	}
	if h.hits("/raw/o/r/master/formatted/recipes.json") != 1 {
		t.Fatalf("expected duplicate url to be fetched once")
	}
}

func TestFetchContent_MinBytes(t *testing.T) {
	h := newFakeHub(t)
	h.set("/raw/o/r/master/recipes.json", 200, `[]`)
	c := h.client(t, func(o *Options) { o.MinBytes = 10 })
	_, err := c.FetchContent(context.Background(), Location{Owner: "o", Repo: "r", Branch: "master", Path: "recipes.json"})
	if err == nil || !strings.Contains(err.Error(), "payload too small") {
		t.Fatalf("expected size rejection, got %v", err)
	}
}

func TestFetchContent_UndersizedBodyFallsThrough(t *testing.T) {
	h := newFakeHub(t)
	h.set("/raw/o/r/master/recipes.json", 200, `[]`)
	h.set("/mirror/o/r/raw/master/recipes.json", 200, dump)
	c := h.client(t, func(o *Options) { o.MinBytes = len(dump) })
	body, err := c.FetchContent(context.Background(), Location{Owner: "o", Repo: "r", Branch: "master", Path: "recipes.json"})
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if string(body) != dump {
		t.Fatalf("expected mirror body, got %q", body)
	}
	if h.hits("/raw/o/r/master/recipes.json") != 1 {
		t.Fatalf("expected the undersized raw url to be tried first")
	}
}

func TestTransport_HeadersAndCacheBust(t *testing.T) {
	h := newFakeHub(t)
	h.set("/raw/o/r/master/recipes.json", 200, dump)
	c := h.client(t, func(o *Options) { o.Token = "s3cret" })
	if _, err := c.FetchContent(context.Background(), Location{Owner: "o", Repo: "r", Branch: "master", Path: "recipes.json"}); err != nil {
		t.Fatalf("fetch: %v", err)
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.requests) == 0 {
		t.Fatalf("no requests recorded")
	}
	r := h.requests[0]
	if got := r.header.Get("User-Agent"); got != DefaultUserAgent {
		t.Fatalf("unexpected user agent: %q", got)
	}
	if got := r.header.Get("Authorization"); got != "Bearer s3cret" {
		t.Fatalf("unexpected authorization: %q", got)
	}
	if !strings.Contains(r.query, "_cb=1700000000000000000") {
		t.Fatalf("expected cache-busting parameter, got %q", r.query)
	}
}

func TestTransport_AnonymousByDefault(t *testing.T) {
	h := newFakeHub(t)
	c := h.client(t, nil)
	_, _ = c.Resolve(context.Background(), []Candidate{{Owner: "o", Repo: "r", Branch: "master"}})
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, r := range h.requests {
		if r.header.Get("Authorization") != "" {
			t.Fatalf("unexpected authorization header on %s", r.path)
		}
	}
}

func TestFileMatcher(t *testing.T) {
	m := newFileMatcher("")
	for _, p := range []string{"recipes.json", "RECIPES.JSON", "formatted/recipes.json", "a/b/Recipes_2024.json"} {
		if !m.Match(p) {
			t.Fatalf("expected %q to match", p)
		}
	}
	for _, p := range []string{"", "items.json", "formatted/recipes.json.bak", "my-recipes.json", "formatted/recipes.xml"} {
		if m.Match(p) {
			t.Fatalf("expected %q not to match", p)
		}
	}
}

func TestUnderDir(t *testing.T) {
	if !underDir("formatted/recipes.json", "formatted") || !underDir("x/Formatted/recipes.json", "formatted") {
		t.Fatalf("expected formatted paths to match")
	}
	if underDir("unformatted/recipes.json", "formatted") || underDir("recipes.json", "") {
		t.Fatalf("unexpected match")
	}
}
