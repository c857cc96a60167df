package config

import (
	"os"
	"path/filepath"
)

// Resolved holds the filesystem locations of a run, all absolute.
type Resolved struct {
	OutputDir   string
	PolicyDir   string
	TimingPath  string
	MetricsPath string
}

// Resolve makes every configured path absolute. Relative paths are taken
// relative to the directory of the loaded config file, or to rootPath when
// the config came from defaults. The ILAGEN_TIMING_JSONL environment
// variable overrides TimingPath.
func (c *Config) Resolve(rootPath string) (Resolved, error) {
	base := rootPath
	if c.path != "" {
		base = filepath.Dir(c.path)
	}
	base, err := filepath.Abs(base)
	if err != nil {
		return Resolved{}, err
	}

	timing := c.TimingPath
	if env := os.Getenv("ILAGEN_TIMING_JSONL"); env != "" {
		timing = env
	}

	return Resolved{
		OutputDir:   resolvePath(base, c.OutputDir),
		PolicyDir:   resolvePath(base, c.PolicyDir),
		TimingPath:  resolvePath(base, timing),
		MetricsPath: resolvePath(base, c.MetricsPath),
	}, nil
}

// resolvePath returns "" for an empty path.
func resolvePath(base, path string) string {
	if path == "" {
		return ""
	}
	if filepath.IsAbs(path) {
		return filepath.Clean(path)
	}
	return filepath.Join(base, path)
}
