// Package filestore persists each key as a file in a directory. It is the
// default slot for the command line client, where the session must survive
// between process runs.
package filestore

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"path/filepath"

	"github.com/jrsteele09/go-server-session/internal/errors"
	"github.com/jrsteele09/go-server-session/storage"
	"github.com/spf13/afero"
)

const filePerm os.FileMode = 0o600

var _ storage.Store = (*FileStore)(nil)

type FileStore struct {
	fs  afero.Fs
	dir string
}

// New returns a store rooted at dir on fs. The directory is created if needed.
func New(fs afero.Fs, dir string) (*FileStore, error) {
	if err := fs.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("[filestore New] create %s: %w", dir, err)
	}
	return &FileStore{fs: fs, dir: dir}, nil
}

// NewOS returns a store on the operating system file system.
func NewOS(dir string) (*FileStore, error) {
	return New(afero.NewOsFs(), dir)
}

func (f *FileStore) Get(_ context.Context, key string) (string, bool, error) {
	path, err := f.path(key)
	if err != nil {
		return "", false, err
	}
	b, err := afero.ReadFile(f.fs, path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("[filestore Get] %s: %w", key, err)
	}
	return string(b), true, nil
}

func (f *FileStore) Set(_ context.Context, key, value string) error {
	path, err := f.path(key)
	if err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := afero.WriteFile(f.fs, tmp, []byte(value), filePerm); err != nil {
		return fmt.Errorf("[filestore Set] %s: %w", key, err)
	}
	if err := f.fs.Rename(tmp, path); err != nil {
		_ = f.fs.Remove(tmp)
		return fmt.Errorf("[filestore Set] rename %s: %w", key, err)
	}
	return nil
}

func (f *FileStore) Remove(_ context.Context, key string) error {
	path, err := f.path(key)
	if err != nil {
		return err
	}
	if err := f.fs.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("[filestore Remove] %s: %w", key, err)
	}
	return nil
}

func (f *FileStore) path(key string) (string, error) {
	name := url.PathEscape(key)
	if name == "" || name == "." || name == ".." {
		return "", errors.Wrapf(errors.ErrInvalidKey, "[filestore] %q", key)
	}
	return filepath.Join(f.dir, name), nil
}
