// Package pathutil resolves the paths named in Landlock rules: glob
// expansion, symlink confinement and diagnostics for missing paths.
package pathutil

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

// defaultMaxDepth bounds glob traversal when the caller passes 0.
const defaultMaxDepth = 20

// IsSymlinkOutsideBoundary reports whether resolvedPath leaves the directory
// that contains originalPath. A rule on such a link would grant access to
// more than its parent directory suggests:
//
//   - /tmp/link -> /          escapes
//   - /tmp/link -> /tmp/real  stays within
//   - /srv/link -> /etc       escapes
func IsSymlinkOutsideBoundary(originalPath, resolvedPath string) bool {
	boundary := filepath.Dir(filepath.Clean(originalPath))
	resolved := filepath.Clean(resolvedPath)

	if resolved == boundary {
		return false
	}
	if boundary == "/" {
		return !filepath.IsAbs(resolved)
	}
	return !strings.HasPrefix(resolved, boundary+string(filepath.Separator))
}

// ResolveWithBoundaryCheck follows symlinks in path and returns the result,
// or an error if the resolution escapes the directory containing path.
// Errors from resolving a missing path wrap fs.ErrNotExist.
func ResolveWithBoundaryCheck(path string) (string, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("pathutil: %w", err)
	}
	resolved, err := filepath.EvalSymlinks(absPath)
	if err != nil {
		return "", fmt.Errorf("pathutil: cannot resolve symlinks: %w", err)
	}
	if IsSymlinkOutsideBoundary(absPath, resolved) {
		return "", fmt.Errorf("pathutil: resolved path %q escapes boundary of %q", resolved, filepath.Dir(absPath))
	}
	return resolved, nil
}

// IsGlobPattern reports whether s contains glob metacharacters.
func IsGlobPattern(s string) bool {
	return strings.ContainsAny(s, "*?[")
}

// GlobToRegex converts a glob pattern to an anchored regular expression.
// It supports * (anything but a separator), ** (any number of directories),
// ? (one non-separator character) and [...] character classes. An unclosed
// bracket is matched literally.
func GlobToRegex(pattern string) string {
	var b strings.Builder
	b.WriteByte('^')
	for i := 0; i < len(pattern); i++ {
		switch ch := pattern[i]; ch {
		case '*':
			if i+1 < len(pattern) && pattern[i+1] == '*' {
				i++
				if i+1 < len(pattern) && pattern[i+1] == '/' {
					i++
				}
				b.WriteString("(?:.*/)?")
				continue
			}
			b.WriteString("[^/]*")
		case '?':
			b.WriteString("[^/]")
		case '[':
			j := i + 1
			if j < len(pattern) && pattern[j] == ']' {
				j++
			}
			for j < len(pattern) && pattern[j] != ']' {
				j++
			}
			if j == len(pattern) {
				b.WriteString(`\[`)
				continue
			}
			b.WriteString(pattern[i : j+1])
			i = j
		default:
			b.WriteString(regexp.QuoteMeta(string(ch)))
		}
	}
	b.WriteByte('$')
	return b.String()
}

// ExpandGlob returns the existing paths matching pattern, in lexical order.
// maxDepth limits how far below the pattern's literal prefix the walk
// descends; 0 selects a default of 20. Unreadable directories are skipped.
// A pattern without metacharacters yields itself if it exists.
func ExpandGlob(pattern string, maxDepth int) ([]string, error) {
	if maxDepth == 0 {
		maxDepth = defaultMaxDepth
	}
	if !IsGlobPattern(pattern) {
		if _, err := os.Stat(pattern); err != nil {
			return nil, nil
		}
		return []string{pattern}, nil
	}

	re, err := regexp.Compile(GlobToRegex(pattern))
	if err != nil {
		return nil, fmt.Errorf("pathutil: invalid glob %q: %w", pattern, err)
	}

	// filepath.Dir converges on "/" or ".", neither of which is a glob.
	root := pattern
	for IsGlobPattern(root) {
		root = filepath.Dir(root)
	}
	rootDepth := depth(root)

	var matches []string
	_ = filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return nil //nolint:nilerr // skip unreadable entries
		}
		if depth(path)-rootDepth > maxDepth {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if re.MatchString(path) {
			matches = append(matches, path)
		}
		return nil
	})
	return matches, nil
}

func depth(path string) int {
	return strings.Count(filepath.Clean(path), string(filepath.Separator))
}

// FindFirstNonExistent returns the shallowest component of path that does
// not exist, or "" if the whole path exists.
func FindFirstNonExistent(path string) string {
	var chain []string
	for cur := filepath.Clean(path); ; {
		chain = append(chain, cur)
		parent := filepath.Dir(cur)
		if parent == cur {
			break
		}
		cur = parent
	}
	for i := len(chain) - 1; i >= 0; i-- {
		if _, err := os.Stat(chain[i]); err != nil {
			return chain[i]
		}
	}
	return ""
}

// ContainsNullByte reports whether s contains a NUL byte, which no kernel
// path can carry.
func ContainsNullByte(s string) bool {
	return strings.IndexByte(s, 0) >= 0
}
