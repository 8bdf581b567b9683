// Package buildname turns CI refs and free-form names into legal build names.
package buildname

import (
	"regexp"
	"strings"
)

var (
	pullRequestRef = regexp.MustCompile(`^refs/pull/([0-9]+)/(.*)$`)
	illegalChars   = regexp.MustCompile(`[^A-Za-z0-9-]`)
)

// refPrefixes are stripped from the start of a name.
var refPrefixes = []string{"refs/heads/", "refs/tags/"}

// Sanitize returns a build name containing only [A-Za-z0-9-].
//
//	refs/pull/123/merge          -> PullRequest-123-merge
//	refs/heads/graham/8079-Feature -> graham-8079-Feature
//	release 1.2                  -> release-1-2
//
// Sanitize is idempotent.
func Sanitize(raw string) string {
	name := raw
	if m := pullRequestRef.FindStringSubmatch(name); m != nil {
		name = "PullRequest-" + m[1] + "-" + m[2]
	}
	for _, prefix := range refPrefixes {
		if strings.HasPrefix(name, prefix) {
			name = strings.TrimPrefix(name, prefix)
			break
		}
	}
	return illegalChars.ReplaceAllString(name, "-")
}

// IsLegal reports whether name is already a legal build name.
func IsLegal(name string) bool {
	return name != "" && !illegalChars.MatchString(name)
}
