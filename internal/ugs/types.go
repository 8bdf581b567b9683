package ugs

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/rs/zerolog"
)

// BuildFileUpload is the only build type this client creates.
const BuildFileUpload = "FILEUPLOAD"

// Credentials authenticate the tool against the service.
// Secret is never printed or logged in full.
type Credentials struct {
	KeyID  string
	Secret string
}

func (c Credentials) String() string {
	return fmt.Sprintf("Credentials{KeyID:%s Secret:%s}", c.KeyID, redact(c.Secret))
}

// MarshalZerologObject logs the key id and a redacted secret.
func (c Credentials) MarshalZerologObject(e *zerolog.Event) {
	e.Str("key_id", c.KeyID).Str("secret", redact(c.Secret))
}

// BuildTarget identifies a build within a project and environment.
type BuildTarget struct {
	Project     string
	Environment string
	BuildName   string `validate:"required"`
	OsFamily    string `validate:"required"`
}

// BuildRecord is one build as reported by the service.
type BuildRecord struct {
	Name string `json:"name"`
	ID   string `json:"id"`
}

// BuildMap maps build names to build ids.
type BuildMap map[string]string

// Names returns the build names in sorted order.
func (m BuildMap) Names() []string {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Records returns the builds sorted by name.
func (m BuildMap) Records() []BuildRecord {
	out := make([]BuildRecord, 0, len(m))
	for _, name := range m.Names() {
		out = append(out, BuildRecord{Name: name, ID: m[name]})
	}
	return out
}

// idString renders a decoded BuildId. Ids are opaque: numbers keep their
// exact decimal text.
func idString(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case json.Number:
		return t.String()
	default:
		return fmt.Sprint(t)
	}
}

func redact(s string) string {
	if s == "" {
		return ""
	}
	return "[REDACTED]"
}
