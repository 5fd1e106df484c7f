package state

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/sokinpui/linepatch/internal/fs"
)

const (
	stateDirName  = ".linepatch"
	stateFileName = "state"
	objectsDir    = "objects"
)

// Operation records one patched file: its content hash before and after.
type Operation struct {
	Path       string
	BeforeHash string
	AfterHash  string
}

// HistoryEntry represents one complete run of the tool.
type HistoryEntry struct {
	Timestamp  int64
	Operations []Operation
}

// State represents the entire state file.
type State struct {
	History      []HistoryEntry
	CurrentIndex int
}

// Manager handles the lifecycle of the state file and the snapshot store.
type Manager struct {
	statePath string
	state     *State
	StateDir  string
}

// findGitRoot finds the root of the git repository.
func findGitRoot() (string, error) {
	cmd := exec.Command("git", "rev-parse", "--show-toplevel")
	output, err := cmd.Output()
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(output)), nil
}

// New creates a state manager rooted at the git repository containing the
// working directory, or the working directory itself outside git.
func New() (*Manager, error) {
	rootDir, err := findGitRoot()
	if err != nil {
		rootDir, err = os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("could not get current working directory: %w", err)
		}
	}
	return NewAt(rootDir)
}

// NewAt creates and loads a state manager whose state lives under rootDir.
// The state directory is created on the first write.
func NewAt(rootDir string) (*Manager, error) {
	stateDir := filepath.Join(rootDir, stateDirName)
	m := &Manager{
		statePath: filepath.Join(stateDir, stateFileName),
		StateDir:  stateDir,
	}
	if err := m.load(); err != nil {
		return nil, err
	}
	return m, nil
}

func emptyState() *State {
	return &State{CurrentIndex: -1, History: []HistoryEntry{}}
}

func (m *Manager) load() error {
	data, err := os.ReadFile(m.statePath)
	if err != nil {
		if os.IsNotExist(err) {
			m.state = emptyState()
			return nil
		}
		return fmt.Errorf("could not read state file: %w", err)
	}

	content := strings.ReplaceAll(string(data), "\r\n", "\n")
	blocks := strings.Split(content, "\n\n")
	if len(blocks) == 0 || strings.TrimSpace(blocks[0]) == "" {
		m.state = emptyState()
		return nil
	}

	// First block is current index
	index, err := strconv.Atoi(strings.TrimSpace(blocks[0]))
	if err != nil {
		return fmt.Errorf("invalid state file: could not parse current index: %w", err)
	}
	st := &State{CurrentIndex: index, History: []HistoryEntry{}}

	for _, block := range blocks[1:] {
		block = strings.TrimSpace(block)
		if block == "" {
			continue
		}
		lines := strings.Split(block, "\n")

		ts, err := strconv.ParseInt(lines[0], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid state file: could not parse timestamp from '%s': %w", lines[0], err)
		}

		entry := HistoryEntry{Timestamp: ts}
		opLines := lines[1:]
		if len(opLines)%3 != 0 {
			return fmt.Errorf("invalid state file: incomplete operation record")
		}
		for i := 0; i < len(opLines); i += 3 {
			entry.Operations = append(entry.Operations, Operation{
				Path:       opLines[i],
				BeforeHash: opLines[i+1],
				AfterHash:  opLines[i+2],
			})
		}
		st.History = append(st.History, entry)
	}

	if st.CurrentIndex < -1 || st.CurrentIndex >= len(st.History) {
		return fmt.Errorf("invalid state file: current index %d out of range", st.CurrentIndex)
	}
	m.state = st
	return nil
}

func (m *Manager) save() error {
	blocks := []string{strconv.Itoa(m.state.CurrentIndex)}

	for _, entry := range m.state.History {
		lines := []string{strconv.FormatInt(entry.Timestamp, 10)}
		for _, op := range entry.Operations {
			lines = append(lines, op.Path, op.BeforeHash, op.AfterHash)
		}
		blocks = append(blocks, strings.Join(lines, "\n"))
	}

	content := strings.Join(blocks, "\n\n")
	if err := os.MkdirAll(m.StateDir, 0755); err != nil {
		return fmt.Errorf("could not create state directory: %w", err)
	}
	if err := os.WriteFile(m.statePath, []byte(content), 0644); err != nil {
		return fmt.Errorf("could not write state file: %w", err)
	}
	return nil
}

// Write adds a new set of operations to the history, dropping any entries
// that were undone.
func (m *Manager) Write(operations []Operation) error {
	if len(operations) == 0 {
		return nil
	}
	if m.state.CurrentIndex < len(m.state.History)-1 {
		m.state.History = m.state.History[:m.state.CurrentIndex+1]
	}

	m.state.History = append(m.state.History, HistoryEntry{
		Timestamp:  time.Now().UTC().Unix(),
		Operations: operations,
	})
	m.state.CurrentIndex++
	return m.save()
}

// GetOperationsToUndo gets the last operations and moves the history pointer.
func (m *Manager) GetOperationsToUndo() ([]Operation, error) {
	if m.state.CurrentIndex < 0 {
		return nil, nil
	}
	ops := m.state.History[m.state.CurrentIndex].Operations
	m.state.CurrentIndex--
	return ops, m.save()
}

// GetOperationsToRedo gets the next operations and moves the history pointer.
func (m *Manager) GetOperationsToRedo() ([]Operation, error) {
	nextIndex := m.state.CurrentIndex + 1
	if nextIndex >= len(m.state.History) {
		return nil, nil
	}
	m.state.CurrentIndex = nextIndex
	return m.state.History[nextIndex].Operations, m.save()
}

// History returns the recorded entries and the index of the current one.
func (m *Manager) History() ([]HistoryEntry, int) {
	return m.state.History, m.state.CurrentIndex
}

// StoreSnapshot saves content in the object store and returns its hash.
func (m *Manager) StoreSnapshot(content []byte) (string, error) {
	hash := fs.HashBytes(content)
	path := m.objectPath(hash)
	if _, err := os.Stat(path); err == nil {
		return hash, nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return "", fmt.Errorf("could not create object store: %w", err)
	}
	if err := os.WriteFile(path, content, 0644); err != nil {
		return "", fmt.Errorf("could not store snapshot: %w", err)
	}
	return hash, nil
}

// ReadSnapshot returns the content stored under hash.
func (m *Manager) ReadSnapshot(hash string) ([]byte, error) {
	data, err := os.ReadFile(m.objectPath(hash))
	if err != nil {
		return nil, fmt.Errorf("could not read snapshot %s: %w", hash, err)
	}
	return data, nil
}

func (m *Manager) objectPath(hash string) string {
	return filepath.Join(m.StateDir, objectsDir, hash)
}
