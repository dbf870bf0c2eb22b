// SPDX-License-Identifier: MPL-2.0

package unroll

import (
	"path"
	"path/filepath"
	"strings"
)

const (
	rootComponent    = "/"
	currentComponent = "."
	parentComponent  = ".."
)

// splitEntryPath splits a tar entry name into the components counted by
// strip-components. A leading "/" or "./" counts as one component, the same
// way tar implementations report them. Repeated separators and interior "."
// segments are not components.
func splitEntryPath(name string) []string {
	var parts []string
	switch {
	case strings.HasPrefix(name, "/"):
		parts = append(parts, rootComponent)
	case name == currentComponent || strings.HasPrefix(name, "./"):
		parts = append(parts, currentComponent)
	}

	for _, seg := range strings.Split(name, "/") {
		if seg == "" || seg == currentComponent {
			continue
		}
		parts = append(parts, seg)
	}
	return parts
}

// stripEntryPath removes the first n components of name and returns the
// remaining slash-separated relative path. An empty result means nothing is
// left and the entry must be skipped. Any parent segment left after stripping
// is reported as ErrPathTraversal.
func stripEntryPath(name string, n int) (string, error) {
	parts := splitEntryPath(name)
	if n >= len(parts) {
		return "", nil
	}

	rest := parts[n:]
	if rest[0] == rootComponent || rest[0] == currentComponent {
		rest = rest[1:]
	}
	if len(rest) == 0 {
		return "", nil
	}

	for _, seg := range rest {
		if seg == parentComponent {
			return "", ErrPathTraversal
		}
	}

	rel := path.Join(rest...)
	if !filepath.IsLocal(filepath.FromSlash(rel)) {
		return "", ErrPathTraversal
	}
	return rel, nil
}

// withinDir reports whether target is dir or lies beneath it. Both paths must
// be clean and absolute.
func withinDir(dir, target string) bool {
	rel, err := filepath.Rel(dir, target)
	if err != nil {
		return false
	}
	return rel == currentComponent || filepath.IsLocal(rel)
}

// commonPrefix tracks the leading components shared by every entry offered to
// it. A regular file contributes only its parent directories, so an archive
// holding a single file never strips the file name itself.
type commonPrefix struct {
	parts []string
	seen  bool
}

func (c *commonPrefix) add(parts []string) {
	if !c.seen {
		c.parts = append([]string(nil), parts...)
		c.seen = true
		return
	}

	n := min(len(c.parts), len(parts))
	i := 0
	for i < n && c.parts[i] == parts[i] {
		i++
	}
	c.parts = c.parts[:i]
}

func (c *commonPrefix) len() int {
	return len(c.parts)
}
