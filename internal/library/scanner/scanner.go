package scanner

import (
	"context"
	"os"
	"path/filepath"
	"sort"

	"github.com/rs/zerolog"
)

// ScanError represents an error during scanning.
type ScanError struct {
	Path  string `json:"path"`
	Error string `json:"error"`
}

// FoundFile is a media file discovered under a scan root.
type FoundFile struct {
	Path string `json:"path"`
	Name string `json:"name"`
	Size int64  `json:"size"`
}

// ScanResult contains the results of collecting files from one or more roots.
type ScanResult struct {
	Files   []FoundFile `json:"files"`
	Errors  []ScanError `json:"errors"`
	Skipped int         `json:"skipped"`
}

// Service provides media file discovery.
type Service struct {
	logger *zerolog.Logger
}

// NewService creates a new scanner service.
func NewService(logger *zerolog.Logger) *Service {
	subLogger := logger.With().Str("component", "scanner").Logger()
	return &Service{
		logger: &subLogger,
	}
}

// Collect expands the given paths into media files. Plain file arguments are
// taken as-is, whatever their extension, so the rename engine can reject them
// with a per-file reason. Directories are walked recursively; only video files
// are kept and samples are skipped. Files found under a directory are sorted
// lexically; the relative order of the arguments is preserved.
func (s *Service) Collect(ctx context.Context, paths []string) (*ScanResult, error) {
	result := &ScanResult{
		Files:  make([]FoundFile, 0, len(paths)),
		Errors: make([]ScanError, 0),
	}

	for _, p := range paths {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		info, err := os.Stat(p)
		if err != nil {
			// Keep missing files so they are reported rather than dropped.
			result.Files = append(result.Files, FoundFile{Path: p, Name: filepath.Base(p)})
			s.logger.Debug().Err(err).Str("path", p).Msg("Cannot stat input path")
			continue
		}

		if !info.IsDir() {
			result.Files = append(result.Files, FoundFile{Path: p, Name: info.Name(), Size: info.Size()})
			continue
		}

		found, err := s.scanFolder(ctx, p, result)
		if err != nil {
			return result, err
		}
		result.Files = append(result.Files, found...)
	}

	s.logger.Info().
		Int("files", len(result.Files)).
		Int("errors", len(result.Errors)).
		Int("skipped", result.Skipped).
		Msg("Collected input files")

	return result, nil
}

func (s *Service) scanFolder(ctx context.Context, folderPath string, result *ScanResult) ([]FoundFile, error) {
	s.logger.Debug().Str("path", folderPath).Msg("Starting folder scan")

	var found []FoundFile
	err := filepath.WalkDir(folderPath, func(path string, d os.DirEntry, walkErr error) error {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if walkErr != nil {
			result.Errors = append(result.Errors, ScanError{Path: path, Error: walkErr.Error()})
			return nil //nolint:nilerr // Record error but continue scanning
		}

		if d.IsDir() || !IsVideoFile(d.Name()) {
			return nil
		}

		if IsSampleFile(d.Name()) {
			result.Skipped++
			return nil
		}

		info, infoErr := d.Info()
		if infoErr != nil {
			result.Errors = append(result.Errors, ScanError{Path: path, Error: infoErr.Error()})
			return nil //nolint:nilerr // Record error but continue scanning
		}

		found = append(found, FoundFile{Path: path, Name: d.Name(), Size: info.Size()})
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.SliceStable(found, func(i, j int) bool { return found[i].Path < found[j].Path })
	return found, nil
}
