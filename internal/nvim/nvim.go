package nvim

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"github.com/neovim/go-client/nvim"

	"github.com/sokinpui/linepatch/internal/patcher"
	"github.com/sokinpui/linepatch/internal/ui"
)

// Manager handles the connection and interaction with a Neovim instance.
type Manager struct {
	nvim          *nvim.Nvim
	isSelfStarted bool
	cmd           *exec.Cmd
	socketPath    string
}

// New creates a new Neovim manager, connecting to an existing instance
// or starting a new headless one.
func New() (*Manager, error) {
	// Try to connect to a running instance first.
	if addr := os.Getenv("NVIM_LISTEN_ADDRESS"); addr != "" {
		v, err := nvim.Dial(addr)
		if err == nil {
			return &Manager{nvim: v}, nil
		}
	}

	// If that fails, start a temporary headless instance.
	tmpDir, err := os.MkdirTemp("", "linepatch-nvim-")
	if err != nil {
		return nil, fmt.Errorf("failed to create temp dir for nvim: %w", err)
	}
	socketPath := filepath.Join(tmpDir, "nvim.sock")

	cmd := exec.Command("nvim", "--headless", "--clean", "--listen", socketPath)
	if err := cmd.Start(); err != nil {
		os.RemoveAll(tmpDir)
		return nil, fmt.Errorf("failed to start headless nvim: %w. Is 'nvim' in your PATH?", err)
	}

	// Wait for the socket file to appear.
	for i := 0; i < 20; i++ {
		if _, err := os.Stat(socketPath); err == nil {
			break
		}
		time.Sleep(50 * time.Millisecond)
	}

	v, err := nvim.Dial(socketPath)
	if err != nil {
		cmd.Process.Kill()
		cmd.Wait()
		os.RemoveAll(tmpDir)
		return nil, fmt.Errorf("failed to connect to headless nvim: %w", err)
	}

	m := &Manager{
		nvim:          v,
		isSelfStarted: true,
		cmd:           cmd,
		socketPath:    socketPath,
	}
	if err := m.configureTempInstance(); err != nil {
		ui.Warning("Could not configure headless nvim: %v", err)
	}
	return m, nil
}

// configureTempInstance keeps the headless instance from leaving swap files.
func (m *Manager) configureTempInstance() error {
	return m.nvim.Command("set noswapfile")
}

// Close disconnects from Neovim and cleans up if it was self-started.
func (m *Manager) Close() {
	if m.nvim != nil {
		m.nvim.Close()
	}
	if m.isSelfStarted && m.cmd != nil && m.cmd.Process != nil {
		if err := m.cmd.Process.Kill(); err == nil {
			m.cmd.Wait()
			os.RemoveAll(filepath.Dir(m.socketPath))
		}
	}
}

// LoadBuffer opens filePath in Neovim and returns the buffer's lines,
// including edits that have not been written yet. A buffer that ends with a
// newline gets the same trailing empty line a file read from disk has.
func (m *Manager) LoadBuffer(filePath string) (*patcher.Document, error) {
	absPath, err := filepath.Abs(filePath)
	if err != nil {
		return nil, err
	}

	var raw [][]byte
	var eol bool
	b := m.nvim.NewBatch()
	b.Command(fmt.Sprintf("edit %s", absPath))
	b.BufferLines(0, 0, -1, true, &raw)
	b.BufferOption(0, "endofline", &eol)
	if err := b.Execute(); err != nil {
		return nil, fmt.Errorf("failed to load %s in nvim: %w", filePath, err)
	}

	lines := make([]string, len(raw), len(raw)+1)
	for i, l := range raw {
		lines[i] = string(l)
	}
	if eol {
		lines = append(lines, "")
	}
	return &patcher.Document{Lines: lines, Terminator: patcher.Terminator}, nil
}

// SetLine replaces the 0-based line index of filePath's buffer.
func (m *Manager) SetLine(filePath string, index int, line string) error {
	absPath, err := filepath.Abs(filePath)
	if err != nil {
		return err
	}

	b := m.nvim.NewBatch()
	b.Command(fmt.Sprintf("edit %s", absPath))
	b.SetBufferLines(0, index, index+1, true, [][]byte{[]byte(line)})
	if err := b.Execute(); err != nil {
		return fmt.Errorf("failed to update %s:%d in nvim: %w", filePath, index+1, err)
	}
	return nil
}

// SaveAllBuffers writes all modified buffers to disk.
func (m *Manager) SaveAllBuffers() error {
	if err := m.nvim.Command("wa!"); err != nil {
		return fmt.Errorf("failed to save nvim buffers: %w", err)
	}
	return nil
}
