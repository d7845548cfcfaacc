package sqlite

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"

	"github.com/maloquacious/momentum/internal/logger"
	"github.com/maloquacious/momentum/internal/store"
)

const (
	// dirPermissions is the permission mode for created database directories.
	dirPermissions = 0o750

	// filePermissions is the only mode a provisioned database file may have.
	filePermissions = 0o600

	// modeBits are the bits compared against filePermissions.
	modeBits = fs.ModePerm | fs.ModeSetuid | fs.ModeSetgid | fs.ModeSticky
)

// fileSystem is the subset of the os package the provisioner touches.
type fileSystem interface {
	MkdirAll(path string, perm fs.FileMode) error
	Stat(name string) (fs.FileInfo, error)
	OpenFile(name string, flag int, perm fs.FileMode) (*os.File, error)
	Chmod(name string, mode fs.FileMode) error
}

type osFS struct{}

func (osFS) MkdirAll(path string, perm fs.FileMode) error { return os.MkdirAll(path, perm) }
func (osFS) Stat(name string) (fs.FileInfo, error)        { return os.Stat(name) }
func (osFS) Chmod(name string, mode fs.FileMode) error    { return os.Chmod(name, mode) }
func (osFS) OpenFile(name string, flag int, perm fs.FileMode) (*os.File, error) {
	return os.OpenFile(name, flag, perm)
}

// SupportsFileModes reports whether the runtime honours owner-exclusive
// file permission bits.
func SupportsFileModes() bool {
	switch runtime.GOOS {
	case "windows", "plan9":
		return false
	}
	return true
}

// Provisioner guarantees a database file exists with owner-only permissions.
type Provisioner struct {
	// Permissions enables mode enforcement. When false only existence is guaranteed.
	Permissions bool

	log logger.Logger
	fs  fileSystem
}

// NewProvisioner returns a Provisioner for the current platform.
func NewProvisioner(log logger.Logger) *Provisioner {
	if log == nil {
		log = logger.Nop{}
	}
	return &Provisioner{
		Permissions: SupportsFileModes(),
		log:         log,
		fs:          osFS{},
	}
}

// Provision provisions path using a platform default Provisioner.
func Provision(path string, log logger.Logger) error {
	return NewProvisioner(log).Provision(path)
}

// Provision creates the parent directory and the file at path if missing.
// New files are created exclusively with mode 0600; existing files have
// their mode corrected to 0600. A file created concurrently by another
// process is treated as existing, never truncated.
func (p *Provisioner) Provision(path string) error {
	enforce := p.Permissions

	dir := filepath.Dir(path)
	if _, err := p.fs.Stat(dir); err == nil {
		p.log.Debug("database directory already exists: %s", dir)
	} else {
		p.log.Info("creating database directory: %s", dir)
		if err := p.fs.MkdirAll(dir, dirPermissions); err != nil && !errors.Is(err, fs.ErrExist) {
			return fmt.Errorf("%w: creating directory %s: %w", store.ErrFilesystem, dir, err)
		}
	}

	info, err := p.fs.Stat(path)
	switch {
	case err == nil:
		if info.IsDir() {
			return fmt.Errorf("%w: database path is a directory: %s", store.ErrFilesystem, path)
		}
		p.log.Info("database file already exists: %s", path)
	case errors.Is(err, fs.ErrNotExist):
		created, err := p.create(path, enforce)
		if err != nil {
			return err
		}
		if created {
			return nil
		}
	default:
		return fmt.Errorf("%w: reading metadata for %s: %w", store.ErrFilesystem, path, err)
	}

	if !enforce {
		p.log.Warn("file permissions not supported on %s; %s keeps default OS permissions", runtime.GOOS, path)
		return nil
	}
	return p.enforceMode(path)
}

// create exclusively creates path. It reports false without error when the
// file appeared between the existence check and the create.
func (p *Provisioner) create(path string, enforce bool) (bool, error) {
	f, err := p.fs.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, filePermissions)
	if errors.Is(err, fs.ErrExist) {
		p.log.Info("database file was created concurrently: %s", path)
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("%w: creating database file %s: %w", store.ErrFilesystem, path, err)
	}
	if err := f.Close(); err != nil {
		return false, fmt.Errorf("%w: closing database file %s: %w", store.ErrFilesystem, path, err)
	}
	if enforce {
		p.log.Info("created database file with mode %#o: %s", filePermissions, path)
	} else {
		p.log.Warn("created database file with default OS permissions on %s: %s", runtime.GOOS, path)
	}
	return true, nil
}

// enforceMode sets path to filePermissions unless it already has them.
func (p *Provisioner) enforceMode(path string) error {
	info, err := p.fs.Stat(path)
	if err != nil {
		return fmt.Errorf("%w: reading metadata for %s: %w", store.ErrFilesystem, path, err)
	}

	mode := info.Mode() & modeBits
	if mode == filePermissions {
		p.log.Debug("permissions %#o already correct: %s", mode, path)
		return nil
	}

	p.log.Info("correcting permissions %#o to %#o: %s", mode, filePermissions, path)
	if err := p.fs.Chmod(path, filePermissions); err != nil {
		return fmt.Errorf("%w: setting permissions on %s: %w", store.ErrFilesystem, path, err)
	}
	return nil
}
