// Package platform holds the static table of supported platforms: how to
// build a profile URL for a username and how to interpret the response.
package platform

import (
	"encoding/json"
	"os"
	"strings"

	"github.com/dlclark/regexp2"
	"github.com/pkg/errors"
)

// Spec describes one platform's existence check.
type Spec struct {
	Name        string `json:"name"`
	URLTemplate string `json:"url"`

	// HandlePattern restricts which usernames can exist on the platform at
	// all. A username that fails it is available without a network probe.
	HandlePattern string `json:"handlePattern,omitempty"`

	// NotFoundMarkers are matched case-insensitively against a 200 body for
	// platforms that serve a page even for missing users.
	NotFoundMarkers []string `json:"notFoundMarkers,omitempty"`

	// NoCheck marks platforms with no queryable public existence endpoint;
	// every probe against them is Unknown.
	NoCheck bool `json:"noCheck,omitempty"`

	handleRe *regexp2.Regexp
}

// ProfileURL renders the URL template for a username.
func (s Spec) ProfileURL(username string) string {
	return strings.ReplaceAll(s.URLTemplate, "{}", username)
}

// AllowsHandle reports whether the username satisfies the platform's handle
// rules. Specs without a pattern allow everything.
func (s Spec) AllowsHandle(username string) (bool, error) {
	if s.handleRe == nil {
		return true, nil
	}
	ok, err := s.handleRe.MatchString(username)
	if err != nil {
		return false, errors.Wrapf(err, "handle pattern match for %s", s.Name)
	}
	return ok, nil
}

// MatchNotFound returns the first not-found marker contained in body.
func (s Spec) MatchNotFound(body string) (string, bool) {
	if len(s.NotFoundMarkers) == 0 {
		return "", false
	}
	lower := strings.ToLower(body)
	for _, marker := range s.NotFoundMarkers {
		if marker != "" && strings.Contains(lower, strings.ToLower(marker)) {
			return marker, true
		}
	}
	return "", false
}

// Table is an immutable, ordered set of platform specs.
type Table struct {
	specs []Spec
	index map[string]int
}

// New compiles and validates a table. Declaration order of specs is
// preserved; it is the order results are aggregated and exported in.
func New(specs []Spec) (*Table, error) {
	if len(specs) == 0 {
		return nil, errors.New("empty platform table")
	}

	t := &Table{
		specs: make([]Spec, 0, len(specs)),
		index: make(map[string]int, len(specs)),
	}

	for _, spec := range specs {
		if spec.Name == "" {
			return nil, errors.New("platform with empty name")
		}
		if _, dup := t.index[spec.Name]; dup {
			return nil, errors.Errorf("duplicate platform %q", spec.Name)
		}
		if !spec.NoCheck && !strings.Contains(spec.URLTemplate, "{}") {
			return nil, errors.Errorf("platform %q: url template has no {} placeholder", spec.Name)
		}
		if spec.HandlePattern != "" {
			re, err := regexp2.Compile(spec.HandlePattern, regexp2.None)
			if err != nil {
				return nil, errors.Wrapf(err, "platform %q: compile handle pattern", spec.Name)
			}
			spec.handleRe = re
		}

		t.index[spec.Name] = len(t.specs)
		t.specs = append(t.specs, spec)
	}

	return t, nil
}

// LoadFile reads a JSON array of specs. An array rather than an object so
// the file carries an explicit declaration order.
func LoadFile(path string) (*Table, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "read platform table %q", path)
	}

	var specs []Spec
	if err := json.Unmarshal(raw, &specs); err != nil {
		return nil, errors.Wrapf(err, "parse platform table %q", path)
	}

	return New(specs)
}

// Specs returns the specs in declaration order.
func (t *Table) Specs() []Spec {
	out := make([]Spec, len(t.specs))
	copy(out, t.specs)
	return out
}

// Names returns the platform names in declaration order.
func (t *Table) Names() []string {
	names := make([]string, len(t.specs))
	for i, s := range t.specs {
		names[i] = s.Name
	}
	return names
}

func (t *Table) Len() int {
	return len(t.specs)
}

// Builtin returns the default platform table.
//
// Snapchat serves a 200 page even for some missing users, hence the body
// markers; the exact phrasing drifts, so they are best effort. Discord has
// no public profile URL to probe, so it is permanently Unknown.
func Builtin() *Table {
	t, err := New([]Spec{
		{
			Name:          "Twitter",
			URLTemplate:   "https://twitter.com/{}",
			HandlePattern: `^[A-Za-z0-9_]{1,15}$`,
		},
		{
			Name:          "Instagram",
			URLTemplate:   "https://www.instagram.com/{}/",
			HandlePattern: `^[A-Za-z0-9._]{1,30}$`,
		},
		{
			Name:          "Telegram",
			URLTemplate:   "https://t.me/{}",
			HandlePattern: `^[A-Za-z0-9_]{5,32}$`,
		},
		{
			Name:            "Snapchat",
			URLTemplate:     "https://www.snapchat.com/add/{}",
			HandlePattern:   `^[A-Za-z][A-Za-z0-9._-]{1,14}$`,
			NotFoundMarkers: []string{"couldn't find", "not found", "try again"},
		},
		{
			Name:    "Discord",
			NoCheck: true,
		},
	})
	if err != nil {
		panic(err) // built-in table must compile
	}
	return t
}
