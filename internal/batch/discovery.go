// Package batch expands command-line inputs into the list of files a run
// processes.
package batch

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
)

// ErrNoInputs is returned when discovery matched nothing.
var ErrNoInputs = errors.New("no input files found")

// Options controls directory expansion.
type Options struct {
	Recursive bool
	// Include and Exclude are filepath.Match patterns against the base name.
	// Exclude wins over Include; an empty Include admits every file.
	Include []string
	Exclude []string
	// Accept filters files found inside directories. Files named directly
	// on the command line skip it so unusual extensions can still be forced.
	Accept func(path string) bool
}

// Discover returns the files named by args. Directories are expanded in
// lexical order; explicit files keep their argument position.
func Discover(args []string, opts Options) ([]string, error) {
	var files []string
	for _, arg := range args {
		info, err := os.Stat(arg)
		if err != nil {
			return nil, fmt.Errorf("cannot access %s: %w", arg, err)
		}
		if !info.IsDir() {
			if opts.admit(arg) {
				files = append(files, arg)
			}
			continue
		}
		found, err := discoverInDirectory(arg, opts)
		if err != nil {
			return nil, err
		}
		files = append(files, found...)
	}
	if len(files) == 0 {
		return nil, ErrNoInputs
	}
	return files, nil
}

func discoverInDirectory(dir string, opts Options) ([]string, error) {
	var files []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if !opts.Recursive && path != dir {
				return filepath.SkipDir
			}
			return nil
		}
		if opts.Accept != nil && !opts.Accept(path) {
			return nil
		}
		if opts.admit(path) {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk %s: %w", dir, err)
	}
	slices.Sort(files)
	return files, nil
}

func (o Options) admit(path string) bool {
	if matchesAny(path, o.Exclude) {
		return false
	}
	return len(o.Include) == 0 || matchesAny(path, o.Include)
}

func matchesAny(path string, patterns []string) bool {
	base := filepath.Base(path)
	for _, pattern := range patterns {
		if matched, _ := filepath.Match(pattern, base); matched {
			return true
		}
	}
	return false
}
