// Package archive disposes of frame files once their samples are stored.
package archive

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/ghalamif/PressFlow/internal/ports"
)

// Config selects the archive mode.
type Config struct {
	Mode string   `yaml:"mode"` // none | local | s3
	Dir  string   `yaml:"dir"`
	S3   S3Config `yaml:"s3"`
}

func (c *Config) ApplyDefaults() {
	if c.Mode == "" {
		c.Mode = "none"
	}
}

func (c *Config) Validate() error {
	switch c.Mode {
	case "none":
	case "local":
		if c.Dir == "" {
			return errors.New("archive.dir is required for local mode")
		}
	case "s3":
		return c.S3.Validate()
	default:
		return fmt.Errorf("unknown archive mode %q", c.Mode)
	}
	return nil
}

// New builds the archiver for cfg. Mode none returns a nil archiver.
func New(ctx context.Context, cfg Config) (ports.Archiver, error) {
	switch cfg.Mode {
	case "", "none":
		return nil, nil
	case "local":
		return &Local{Dir: cfg.Dir}, nil
	case "s3":
		return NewS3(ctx, cfg.S3)
	}
	return nil, fmt.Errorf("unknown archive mode %q", cfg.Mode)
}

// Local moves files into Dir, copying when a rename crosses devices.
type Local struct {
	Dir string
}

func (l *Local) Archive(_ context.Context, path string) error {
	if err := os.MkdirAll(l.Dir, 0o755); err != nil {
		return err
	}
	dst := filepath.Join(l.Dir, filepath.Base(path))
	if err := os.Rename(path, dst); err == nil {
		return nil
	}
	if err := copyFile(path, dst); err != nil {
		return fmt.Errorf("archive %s: %w", path, err)
	}
	return os.Remove(path)
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

var _ ports.Archiver = (*Local)(nil)
