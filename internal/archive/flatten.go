package archive

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"syscall"

	"github.com/charlievieth/fastwalk"
)

// Flatten moves the unpacked tree at src to dest. When src holds exactly
// one entry, that entry is a directory, and there is no entry point at the
// top level, the wrapper directory is collapsed and its contents become
// dest. It reports whether a level was collapsed; in that case src is left
// behind, empty, for the caller to remove.
func Flatten(src, dest, entryPoint string) (bool, error) {
	entries, err := os.ReadDir(src)
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrStructure, err)
	}

	_, indexErr := os.Stat(filepath.Join(src, entryPoint))
	if len(entries) == 1 && entries[0].IsDir() && errors.Is(indexErr, os.ErrNotExist) {
		if err := Move(filepath.Join(src, entries[0].Name()), dest); err != nil {
			return false, fmt.Errorf("%w: %v", ErrStructure, err)
		}
		return true, nil
	}

	if err := Move(src, dest); err != nil {
		return false, fmt.Errorf("%w: %v", ErrStructure, err)
	}
	return false, nil
}

// Move renames src to dest, falling back to copy-then-remove when the two
// live on different filesystems. dest must not exist.
func Move(src, dest string) error {
	if _, err := os.Lstat(dest); err == nil {
		return fmt.Errorf("destination %s already exists", dest)
	}

	err := os.Rename(src, dest)
	if err == nil {
		return nil
	}
	if !errors.Is(err, syscall.EXDEV) {
		return err
	}

	if err := CopyTree(src, dest); err != nil {
		os.RemoveAll(dest)
		return err
	}
	return os.RemoveAll(src)
}

// CopyTree copies the directory tree at src into dest. Symlinks are
// recreated, not followed.
func CopyTree(src, dest string) error {
	if err := os.MkdirAll(dest, 0755); err != nil {
		return err
	}

	conf := fastwalk.Config{Follow: false}
	return fastwalk.Walk(&conf, src, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		target := filepath.Join(dest, rel)

		switch {
		case d.IsDir():
			return os.MkdirAll(target, 0755)
		case d.Type()&fs.ModeSymlink != 0:
			link, err := os.Readlink(path)
			if err != nil {
				return err
			}
			if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
				return err
			}
			return os.Symlink(link, target)
		default:
			return copyFile(path, target)
		}
	})
}

func copyFile(src, dest string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	info, err := in.Stat()
	if err != nil {
		return err
	}

	// fastwalk visits entries concurrently; the parent may not exist yet
	if err := os.MkdirAll(filepath.Dir(dest), 0755); err != nil {
		return err
	}

	out, err := os.OpenFile(dest, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, info.Mode().Perm())
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
