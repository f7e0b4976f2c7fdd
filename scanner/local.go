// Package scanner walks the local deploy directory and records the files
// that are candidates for upload.
package scanner

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"nitrado-deploy/models"

	"github.com/charlievieth/fastwalk"
	"github.com/charmbracelet/log"
)

// Options configures a LocalScanner
type Options struct {
	// Root is the deploy directory.
	Root string
	// ConfigFileNames are skipped at any depth.
	ConfigFileNames []string
	// ExcludeExtensions lists script extensions that are never deployed.
	ExcludeExtensions []string
}

// LocalScanner collects FileRecords below a deploy directory
type LocalScanner struct {
	opts Options
}

// New creates a new LocalScanner
func New(opts Options) *LocalScanner {
	return &LocalScanner{opts: opts}
}

// Scan walks the deploy directory and returns its files sorted by relative path
func (s *LocalScanner) Scan(ctx context.Context) ([]models.FileRecord, error) {
	log.Infof("Scanning repository files in %s...", s.opts.Root)

	root, err := filepath.Abs(s.opts.Root)
	if err != nil {
		return nil, err
	}
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("failed to stat deploy directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("deploy directory %s is not a directory", root)
	}

	// fastwalk invokes the callback from several goroutines
	var (
		mu    sync.Mutex
		files []models.FileRecord
	)

	conf := fastwalk.Config{Follow: false}
	err = fastwalk.Walk(&conf, root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}

		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		if rel == "." {
			return nil
		}

		if isHidden(rel) {
			if d.IsDir() {
				return fastwalk.SkipDir
			}
			return nil
		}
		if d.IsDir() || !d.Type().IsRegular() {
			return nil
		}
		if s.isExcluded(d.Name()) {
			return nil
		}

		fi, err := d.Info()
		if err != nil {
			return err
		}

		mu.Lock()
		files = append(files, models.FileRecord{
			Path:       rel,
			Name:       d.Name(),
			ModifiedAt: fi.ModTime(),
		})
		mu.Unlock()
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan %s: %w", root, err)
	}

	sort.Slice(files, func(i, j int) bool { return files[i].Path < files[j].Path })

	log.Infof("Found %d files to process", len(files))
	return files, nil
}

func (s *LocalScanner) isExcluded(name string) bool {
	for _, cfgName := range s.opts.ConfigFileNames {
		if cfgName != "" && name == cfgName {
			return true
		}
	}
	for _, ext := range s.opts.ExcludeExtensions {
		if ext != "" && strings.HasSuffix(name, ext) {
			return true
		}
	}
	return false
}

// isHidden reports whether any component of the relative path starts with a dot
func isHidden(rel string) bool {
	for _, part := range strings.Split(rel, string(filepath.Separator)) {
		if strings.HasPrefix(part, ".") {
			return true
		}
	}
	return false
}
