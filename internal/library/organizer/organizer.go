package organizer

import (
	"path/filepath"

	"github.com/rs/zerolog"
)

// Service provides file naming and rename operations.
type Service struct {
	config NamingConfig
	logger *zerolog.Logger
}

// NewService creates a new organizer service.
func NewService(config *NamingConfig, logger *zerolog.Logger) *Service {
	subLogger := logger.With().Str("component", "organizer").Logger()
	return &Service{
		config: *config,
		logger: &subLogger,
	}
}

// GetConfig returns the current naming configuration.
func (s *Service) GetConfig() NamingConfig {
	return s.config
}

// SetConfig updates the naming configuration.
func (s *Service) SetConfig(config *NamingConfig) {
	s.config = *config
}

// GenerateEpisodeFilename generates the filename for an episode (without extension).
func (s *Service) GenerateEpisodeFilename(tokens *EpisodeTokens) string {
	return s.config.FormatEpisodeFile(*tokens)
}

// GenerateEpisodePath returns the renamed path for sourcePath: same
// directory, formatted name, original extension.
func (s *Service) GenerateEpisodePath(sourcePath string, tokens *EpisodeTokens) string {
	name := s.config.FormatEpisodeFilename(*tokens, filepath.Ext(sourcePath))
	return filepath.Join(filepath.Dir(sourcePath), name)
}
