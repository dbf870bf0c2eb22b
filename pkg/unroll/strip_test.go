// SPDX-License-Identifier: MPL-2.0

package unroll

import (
	"errors"
	"slices"
	"testing"
)

func TestSplitEntryPath(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		want []string
	}{
		{"a/b.txt", []string{"a", "b.txt"}},
		{"a/c/", []string{"a", "c"}},
		{"./a/b.txt", []string{".", "a", "b.txt"}},
		{".", []string{"."}},
		{"/etc/passwd", []string{"/", "etc", "passwd"}},
		{"a//b/./c", []string{"a", "b", "c"}},
		{"../evil.txt", []string{"..", "evil.txt"}},
		{"", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got := splitEntryPath(tt.name)
			if !slices.Equal(got, tt.want) {
				t.Errorf("splitEntryPath(%q) = %q, want %q", tt.name, got, tt.want)
			}
		})
	}
}

func TestStripEntryPath(t *testing.T) {
	t.Parallel()

	tests := []struct {
		desc      string
		name      string
		strip     int
		want      string
		traversal bool
	}{
		{desc: "no strip", name: "a/b.txt", strip: 0, want: "a/b.txt"},
		{desc: "strip one", name: "a/b.txt", strip: 1, want: "b.txt"},
		{desc: "strip nested", name: "a/c/d.txt", strip: 1, want: "c/d.txt"},
		{desc: "strip all", name: "a/b.txt", strip: 2, want: ""},
		{desc: "strip beyond depth", name: "a/b.txt", strip: 7, want: ""},
		{desc: "directory stripped away", name: "a/", strip: 1, want: ""},
		{desc: "leading dot counts", name: "./a/b.txt", strip: 1, want: "a/b.txt"},
		{desc: "leading dot kept relative", name: "./a/b.txt", strip: 0, want: "a/b.txt"},
		{desc: "absolute made relative", name: "/etc/passwd", strip: 0, want: "etc/passwd"},
		{desc: "absolute root counts", name: "/etc/passwd", strip: 1, want: "etc/passwd"},
		{desc: "parent segment", name: "../evil.txt", strip: 0, traversal: true},
		{desc: "parent segment after strip", name: "a/../../evil.txt", strip: 1, traversal: true},
		{desc: "interior parent segment", name: "a/b/../c.txt", strip: 0, traversal: true},
		{desc: "parent segment stripped away", name: "../evil.txt", strip: 1, want: "evil.txt"},
	}

	for _, tt := range tests {
		t.Run(tt.desc, func(t *testing.T) {
			t.Parallel()

			got, err := stripEntryPath(tt.name, tt.strip)
			if tt.traversal {
				if !errors.Is(err, ErrPathTraversal) {
					t.Fatalf("stripEntryPath(%q, %d) error = %v, want ErrPathTraversal", tt.name, tt.strip, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("stripEntryPath(%q, %d) unexpected error: %v", tt.name, tt.strip, err)
			}
			if got != tt.want {
				t.Errorf("stripEntryPath(%q, %d) = %q, want %q", tt.name, tt.strip, got, tt.want)
			}
		})
	}
}

func TestCommonPrefix(t *testing.T) {
	t.Parallel()

	var p commonPrefix
	if p.len() != 0 {
		t.Fatalf("empty prefix len = %d, want 0", p.len())
	}

	p.add([]string{"pkg", "lib"})
	p.add([]string{"pkg", "include"})
	p.add([]string{"pkg"})
	if p.len() != 1 {
		t.Errorf("prefix len = %d, want 1", p.len())
	}

	p.add([]string{"other"})
	if p.len() != 0 {
		t.Errorf("prefix len after divergent entry = %d, want 0", p.len())
	}
}
