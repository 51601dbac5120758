package run

import (
	"strings"
	"testing"

	"github.com/GjhanAi/albion-recipes/internal/stage"
)

func TestPreparedActionStages(t *testing.T) {
	withFilter := &stage.Meta{Lua: &stage.LuaMeta{FilterInline: "true"}}
	cases := []struct {
		action string
		meta   *stage.Meta
		want   string
	}{
		{ActionSync, nil, "resolve-source,fetch-content,decode-recipes,normalize-rows,write-artifacts"},
		{ActionSync, withFilter, "resolve-source,fetch-content,decode-recipes,normalize-rows,lua-filter,write-artifacts"},
		{ActionResolve, withFilter, "resolve-source"},
		{ActionNormalize, nil, "load-local,decode-recipes,normalize-rows,write-artifacts"},
	}
	for _, tc := range cases {
		got, err := PreparedActionStages(tc.action, tc.meta)
		if err != nil {
			t.Fatalf("%s: %v", tc.action, err)
		}
		if strings.Join(got, ",") != tc.want {
			t.Fatalf("%s: got %v", tc.action, got)
		}
	}
	if _, err := PreparedActionStages("nope", nil); err == nil || err.Error() != "invalid action: nope" {
		t.Fatalf("unexpected error: %v", err)
	}
}
