package fileutil

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

// BackupSuffix is appended to a file name to form its one-generation backup.
const BackupSuffix = "-old"

// IsDir returns true if path is a directory.
func IsDir(path string) bool {
	stat, err := os.Stat(path)
	if err != nil {
		return false
	}
	return stat.IsDir()
}

// IsFile reports whether the named path exists and is a regular file.
func IsFile(path string) bool {
	stat, err := os.Stat(path)
	if err != nil {
		return false
	}
	return stat.Mode().IsRegular()
}

// OpenOrCreateFile opens or creates the named file for appending with
// synchronous I/O and sets permissions to 0600.
func OpenOrCreateFile(file string) (*os.File, error) {
	if err := os.MkdirAll(filepath.Dir(file), 0o750); err != nil {
		return nil, fmt.Errorf("failed to create directory for %s: %w", file, err)
	}
	flags := os.O_CREATE | os.O_WRONLY | os.O_APPEND | os.O_SYNC
	f, err := os.OpenFile(file, flags, 0o600) // nolint:gosec
	if err != nil {
		return nil, fmt.Errorf("failed to create/open log file %s: %w", file, err)
	}
	return f, nil
}

// ResolvePath resolves a path to an absolute path.
// It handles empty paths, tilde expansion, environment variables,
// and converts to an absolute path.
func ResolvePath(path string) (string, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return "", nil
	}

	path = os.ExpandEnv(path)

	if strings.HasPrefix(path, "~") {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get user home directory: %w", err)
		}
		path = filepath.Join(homeDir, path[1:])
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("failed to get absolute path: %w", err)
	}
	return filepath.Clean(absPath), nil
}

var reUnsafeChars = regexp.MustCompile(`[^a-zA-Z0-9_.@+-]`)

// SafeName replaces every character that is not safe in a file name with '_'.
func SafeName(name string) string {
	return reUnsafeChars.ReplaceAllString(name, "_")
}

// TrimExt returns the base name of file without its extension.
func TrimExt(file string) string {
	base := filepath.Base(file)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// WriteFileWithBackup replaces the content of file with data. The data is
// written to a temporary file in the same directory and synced first; the
// current file (if any) is then kept as file+BackupSuffix, replacing an older
// backup, and the temporary file is renamed into place.
//
// A crash at any point leaves either the new file, the previous file, or the
// previous file under its backup name on disk.
func WriteFileWithBackup(file string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(file)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(file)+".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temporary file: %w", err)
	}
	tmpName := tmp.Name()
	committed := false
	defer func() {
		if !committed {
			_ = os.Remove(tmpName)
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to write %s: %w", tmpName, err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to sync %s: %w", tmpName, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close %s: %w", tmpName, err)
	}
	if err := os.Chmod(tmpName, perm); err != nil {
		return fmt.Errorf("failed to set permissions on %s: %w", tmpName, err)
	}

	if IsFile(file) {
		// os.Rename replaces the previous backup atomically.
		if err := os.Rename(file, file+BackupSuffix); err != nil {
			return fmt.Errorf("failed to keep backup of %s: %w", file, err)
		}
	}

	if err := os.Rename(tmpName, file); err != nil {
		return fmt.Errorf("failed to move %s into place: %w", file, err)
	}
	committed = true

	syncDir(dir)
	return nil
}

// syncDir flushes directory entries so the renames survive a power loss.
func syncDir(dir string) {
	d, err := os.Open(dir) // nolint:gosec
	if err != nil {
		return
	}
	_ = d.Sync()
	_ = d.Close()
}
