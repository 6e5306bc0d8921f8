package organizer

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

var (
	ErrTargetExists  = errors.New("target already exists")
	ErrSourceMissing = errors.New("source file does not exist")
)

// RenameFile renames source to target within the filesystem. An existing
// target is never replaced unless overwrite is set; the check and the rename
// are a single atomic step where the platform supports it. Renaming a file
// onto itself (including a case-only change on a case-insensitive
// filesystem) is allowed.
func (s *Service) RenameFile(source, target string, overwrite bool) error {
	if filepath.Clean(source) == filepath.Clean(target) {
		return nil
	}

	if _, err := os.Lstat(source); err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%w: %s", ErrSourceMissing, source)
		}
		return fmt.Errorf("failed to stat source: %w", err)
	}

	var err error
	switch {
	case overwrite, SameFile(source, target):
		err = os.Rename(source, target)
	default:
		err = renameNoReplace(source, target)
	}
	if err != nil {
		if errors.Is(err, ErrTargetExists) {
			return err
		}
		return fmt.Errorf("failed to rename file: %w", err)
	}

	s.logger.Info().
		Str("old", source).
		Str("new", target).
		Msg("Renamed file")
	return nil
}

// FileExists checks if a path exists. Symlinks are not followed, so a
// dangling link still counts as occupying its name.
func FileExists(path string) bool {
	_, err := os.Lstat(path)
	return err == nil
}

// SameFile reports whether both paths name the same existing file.
func SameFile(a, b string) bool {
	ai, err := os.Lstat(a)
	if err != nil {
		return false
	}
	bi, err := os.Lstat(b)
	if err != nil {
		return false
	}
	return os.SameFile(ai, bi)
}

// renameChecked is the portable no-replace rename: it checks for the target
// and then renames. The window between the two steps is not atomic.
func renameChecked(source, target string) error {
	if FileExists(target) {
		return fmt.Errorf("%w: %s", ErrTargetExists, target)
	}
	return os.Rename(source, target)
}
