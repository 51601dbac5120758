// Package source locates the recipe dump across candidate GitHub repositories
// and downloads it.
package source

import "fmt"

// Method names the discovery strategy that produced a location.
type Method string

const (
	MethodPreferredPath    Method = "preferred-path"
	MethodDirectoryListing Method = "directory-listing"
	MethodFullTree         Method = "full-tree"
)

// Candidate is one repository/branch/path combination, tried in priority order.
type Candidate struct {
	Owner  string `json:"owner"`
	Repo   string `json:"repo"`
	Branch string `json:"branch"`
	Path   string `json:"path,omitempty"`
}

func (c Candidate) String() string {
	s := fmt.Sprintf("%s/%s@%s", c.Owner, c.Repo, c.Branch)
	if c.Path != "" {
		s += ":" + c.Path
	}
	return s
}

// Location is where the dump was found. It is not modified after Resolve
// returns it.
type Location struct {
	Owner       string `json:"owner"`
	Repo        string `json:"repo"`
	Branch      string `json:"branch"`
	Path        string `json:"path"`
	DownloadURL string `json:"downloadUrl,omitempty"`
	MetadataURL string `json:"metadataUrl,omitempty"`
	Method      Method `json:"method"`
}

func (l Location) String() string {
	return fmt.Sprintf("%s/%s@%s:%s", l.Owner, l.Repo, l.Branch, l.Path)
}

// DefaultCandidates are the known homes of the dump.
func DefaultCandidates() []Candidate {
	return []Candidate{
		{Owner: "ao-data", Repo: "ao-bin-dumps", Branch: "master", Path: "formatted/recipes.json"},
		{Owner: "ao-data", Repo: "ao-bin-dumps", Branch: "main", Path: "formatted/recipes.json"},
		{Owner: "broderickhyman", Repo: "ao-bin-dumps", Branch: "master", Path: "formatted/recipes.json"},
	}
}
