package batch

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"

	"github.com/MeKo-Tech/visionbridge/internal/utils"
)

// DiscoveryOptions controls how directory inputs are expanded.
type DiscoveryOptions struct {
	Recursive       bool
	IncludePatterns []string
	ExcludePatterns []string
}

// uriScheme matches "scheme:" prefixes. Single letters are left alone so
// Windows drive paths stay paths.
var uriScheme = regexp.MustCompile(`^[a-zA-Z][a-zA-Z0-9+.-]+:`)

// Discover expands directory inputs into the supported images they contain.
// URIs and missing paths pass through unchanged so the bridge can report
// them with the proper error code.
func Discover(inputs []string, opts DiscoveryOptions) ([]string, error) {
	var out []string

	for _, in := range inputs {
		if uriScheme.MatchString(in) {
			out = append(out, in)
			continue
		}

		info, err := os.Stat(in)
		if err != nil {
			out = append(out, in)
			continue
		}

		if info.IsDir() {
			files, err := discoverInDirectory(in, opts)
			if err != nil {
				return nil, fmt.Errorf("cannot scan %s: %w", in, err)
			}
			out = append(out, files...)
		} else if !matchesAnyPattern(in, opts.ExcludePatterns) {
			out = append(out, in)
		}
	}

	return out, nil
}

// discoverInDirectory walks dir in lexical order.
func discoverInDirectory(dir string, opts DiscoveryOptions) ([]string, error) {
	var files []string

	walkFn := func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}

		if d.IsDir() {
			if !opts.Recursive && path != dir {
				return filepath.SkipDir
			}
			return nil
		}

		if utils.IsSupportedImage(path) && shouldIncludeFile(path, opts.IncludePatterns, opts.ExcludePatterns) {
			files = append(files, path)
		}
		return nil
	}

	return files, filepath.WalkDir(dir, walkFn)
}

// shouldIncludeFile applies exclude patterns first, then include patterns.
// No include patterns means everything not excluded.
func shouldIncludeFile(path string, includePatterns, excludePatterns []string) bool {
	if matchesAnyPattern(path, excludePatterns) {
		return false
	}
	if len(includePatterns) == 0 {
		return true
	}
	return matchesAnyPattern(path, includePatterns)
}

// matchesAnyPattern matches the base name against glob patterns.
func matchesAnyPattern(path string, patterns []string) bool {
	base := filepath.Base(path)
	for _, pattern := range patterns {
		if matched, _ := filepath.Match(pattern, base); matched {
			return true
		}
	}
	return false
}
