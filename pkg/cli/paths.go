package cli

import (
	"os"
	"path/filepath"
)

// Paths locates the CLI's files under ~/.soniox.
type Paths struct {
	HomeDir string
}

func NewPaths() (*Paths, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, err
	}
	return &Paths{HomeDir: home}, nil
}

// BaseDir returns ~/.soniox.
func (p *Paths) BaseDir() string {
	return filepath.Join(p.HomeDir, DefaultBaseDir)
}

// ConfigFile returns ~/.soniox/config.yaml.
func (p *Paths) ConfigFile() string {
	return filepath.Join(p.BaseDir(), DefaultConfigFile)
}

// DataDir returns ~/.soniox/data.
func (p *Paths) DataDir() string {
	return filepath.Join(p.BaseDir(), "data")
}

// JobsDir returns the job history database directory.
func (p *Paths) JobsDir() string {
	return filepath.Join(p.DataDir(), "jobs")
}

// EnsureJobsDir creates the job history directory.
func (p *Paths) EnsureJobsDir() error {
	return os.MkdirAll(p.JobsDir(), 0755)
}
