package poller

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"syscall"
)

// moveToDir moves src into dir, keeping its base name, and returns the new
// path. Moves across filesystems fall back to copy and remove.
func moveToDir(src, dir string) (string, error) {
	dst := filepath.Join(dir, filepath.Base(src))

	err := os.Rename(src, dst)
	if err == nil {
		return dst, nil
	}

	var linkErr *os.LinkError
	if !errors.As(err, &linkErr) || !errors.Is(linkErr.Err, syscall.EXDEV) {
		return "", err
	}

	if err := copyFile(src, dst); err != nil {
		return "", fmt.Errorf("copy %s to %s: %w", src, dir, err)
	}
	if err := os.Remove(src); err != nil {
		return dst, fmt.Errorf("remove %s after copy: %w", src, err)
	}
	return dst, nil
}

// removeFile deletes path.
func removeFile(path string) error {
	return os.Remove(path)
}

// dispose deletes path or moves it into dir.
func dispose(path, dir string, remove bool) error {
	if remove {
		return removeFile(path)
	}
	_, err := moveToDir(path, dir)
	return err
}

// copyFile streams src to dst, keeping the source permissions.
func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	info, err := in.Stat()
	if err != nil {
		return err
	}

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, info.Mode().Perm())
	if err != nil {
		return err
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		_ = os.Remove(dst)
		return err
	}
	return out.Close()
}
