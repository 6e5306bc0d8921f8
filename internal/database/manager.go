package database

import (
	"database/sql"
	"sync"

	"github.com/rs/zerolog"
)

// Manager holds the journal database and a separate development journal
// used by runs against the mock metadata provider, so fixture renames never
// mix with real history.
type Manager struct {
	prodDB    *DB
	devDB     *DB
	devMode   bool
	mu        sync.RWMutex
	prodPath  string
	devDBPath string
	logger    *zerolog.Logger
}

// NewManager creates a database manager. Neither database is opened until
// first used.
func NewManager(prodPath, devPath string, logger *zerolog.Logger) *Manager {
	subLogger := logger.With().Str("component", "database").Logger()
	return &Manager{
		prodPath:  prodPath,
		devDBPath: devPath,
		logger:    &subLogger,
	}
}

// Conn returns the active journal connection, opening and migrating it on
// first use.
func (m *Manager) Conn() (*sql.DB, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	target, path := &m.prodDB, m.prodPath
	if m.devMode {
		target, path = &m.devDB, m.devDBPath
	}
	if *target == nil {
		db, err := Open(path)
		if err != nil {
			return nil, err
		}
		m.logger.Debug().Str("path", path).Bool("devMode", m.devMode).Msg("Opened journal database")
		*target = db
	}
	return (*target).Conn(), nil
}

// SetDevMode switches between the production and development journals.
func (m *Manager) SetDevMode(enabled bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.devMode = enabled
}

// IsDevMode returns whether the development journal is active.
func (m *Manager) IsDevMode() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.devMode
}

// Close closes both database connections.
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	var prodErr, devErr error
	if m.prodDB != nil {
		prodErr = m.prodDB.Close()
		m.prodDB = nil
	}
	if m.devDB != nil {
		devErr = m.devDB.Close()
		m.devDB = nil
	}

	if prodErr != nil {
		return prodErr
	}
	return devErr
}
