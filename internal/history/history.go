/*
Package history records which search results have already been dispatched for
each tracked event so that a finding is only notified once.
*/
package history

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/shanehull/preminder/internal/types"
)

const (
	historyFileName = "dispatch_history.json"
	historyDirName  = "preminder"
)

type History struct {
	UpdatedAt string
	// Dispatched maps event ID to the set of fingerprints already sent.
	Dispatched map[string]map[string]bool
}

type Manager struct {
	history         History
	mutex           sync.Mutex
	historyFilePath string
	logger          *zap.Logger
}

// NewManager loads the ledger at path. An empty path selects a file under the
// system temp directory.
func NewManager(path string, logger *zap.Logger) (*Manager, error) {
	if path == "" {
		path = filepath.Join(os.TempDir(), historyDirName, historyFileName)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create history directory %s: %w", filepath.Dir(path), err)
	}

	m := &Manager{
		historyFilePath: path,
		logger:          logger.Named("history"),
	}

	m.loadHistory()
	return m, nil
}

// Fingerprint identifies a result across cycles by its link and title.
func Fingerprint(r types.SearchResult) string {
	sum := sha256.Sum256([]byte(r.Link + "\n" + r.Title))
	return hex.EncodeToString(sum[:])
}

func (m *Manager) loadHistory() {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	m.refresh()
	m.logger.Info("Loaded dispatch history", zap.Int("events", len(m.history.Dispatched)))
}

// refresh replaces the in-memory ledger with the file contents. Other
// processes (a running server, a one-off cycle, an event delete) write the
// same file, so every operation starts from disk. Callers hold the mutex.
func (m *Manager) refresh() {
	m.history = History{Dispatched: make(map[string]map[string]bool)}

	data, err := os.ReadFile(m.historyFilePath)
	if err != nil {
		if os.IsNotExist(err) {
			m.logger.Debug("History file not found, starting fresh", zap.String("path", m.historyFilePath))
			return
		}
		m.logger.Warn("Error reading history file, starting fresh", zap.String("path", m.historyFilePath), zap.Error(err))
		return
	}

	var loaded History
	if err := json.Unmarshal(data, &loaded); err != nil {
		m.logger.Warn("Error unmarshalling history JSON, starting fresh", zap.Error(err))
		return
	}
	if loaded.Dispatched == nil {
		loaded.Dispatched = make(map[string]map[string]bool)
	}
	m.history = loaded
}

func (m *Manager) saveHistory() error {
	m.history.UpdatedAt = time.Now().UTC().Format(time.RFC3339)

	data, err := json.MarshalIndent(m.history, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal history: %w", err)
	}

	f, err := os.CreateTemp(filepath.Dir(m.historyFilePath), historyFileName+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp history file: %w", err)
	}
	tmp := f.Name()
	_, err = f.Write(data)
	if closeErr := f.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		os.Remove(tmp)
		return fmt.Errorf("write history file %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, m.historyFilePath); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("replace history file %s: %w", m.historyFilePath, err)
	}
	return nil
}

// FilterNew returns the results that have not been dispatched for eventID.
func (m *Manager) FilterNew(eventID int64, results []types.SearchResult) []types.SearchResult {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	m.refresh()
	seen := m.history.Dispatched[eventKey(eventID)]

	var fresh []types.SearchResult
	for _, r := range results {
		if !seen[Fingerprint(r)] {
			fresh = append(fresh, r)
		}
	}
	return fresh
}

// Record marks results as dispatched for eventID and persists the ledger.
func (m *Manager) Record(eventID int64, results []types.SearchResult) error {
	if len(results) == 0 {
		return nil
	}

	m.mutex.Lock()
	defer m.mutex.Unlock()

	m.refresh()
	key := eventKey(eventID)
	if m.history.Dispatched[key] == nil {
		m.history.Dispatched[key] = make(map[string]bool)
	}
	for _, r := range results {
		m.history.Dispatched[key][Fingerprint(r)] = true
	}

	return m.saveHistory()
}

// Forget drops every fingerprint recorded for eventID.
func (m *Manager) Forget(eventID int64) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	m.refresh()
	key := eventKey(eventID)
	if _, ok := m.history.Dispatched[key]; !ok {
		return nil
	}
	delete(m.history.Dispatched, key)
	return m.saveHistory()
}

func (m *Manager) HistoryFilePath() string {
	return m.historyFilePath
}

func eventKey(id int64) string {
	return strconv.FormatInt(id, 10)
}
