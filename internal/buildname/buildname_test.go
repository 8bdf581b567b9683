package buildname

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSanitize(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{name: "branch ref", raw: "refs/heads/graham/8079-Feature", want: "graham-8079-Feature"},
		{name: "pull request ref", raw: "refs/pull/123/merge", want: "PullRequest-123-merge"},
		{name: "pull request suffix with slash", raw: "refs/pull/7/head/x", want: "PullRequest-7-head-x"},
		{name: "tag ref", raw: "refs/tags/v1.2.3", want: "v1-2-3"},
		{name: "spaces", raw: "my build", want: "my-build"},
		{name: "already legal", raw: "Nightly-42", want: "Nightly-42"},
		{name: "prefix not at start", raw: "x/refs/heads/y", want: "x-refs-heads-y"},
		{name: "non pull ref", raw: "refs/pull/abc/merge", want: "refs-pull-abc-merge"},
		{name: "unicode", raw: "café", want: "caf-"},
		{name: "empty", raw: "", want: ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Sanitize(tt.raw))
		})
	}
}

func TestSanitize_Idempotent(t *testing.T) {
	inputs := []string{
		"refs/heads/graham/8079-Feature",
		"refs/pull/123/merge",
		"refs/pull/1/refs/heads/x",
		"refs/tags/refs/heads/x",
		"  spaced  out ",
		"a/b\\c:d",
		"PullRequest-9-merge",
		"",
	}
	for _, in := range inputs {
		once := Sanitize(in)
		assert.Equal(t, once, Sanitize(once), "input %q", in)
	}
}

func TestIsLegal(t *testing.T) {
	assert.True(t, IsLegal("graham-8079-Feature"))
	assert.False(t, IsLegal("refs/heads/main"))
	assert.False(t, IsLegal(""))
}
