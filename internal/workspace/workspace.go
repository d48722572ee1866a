package workspace

import (
	"os"
	"path/filepath"
)

const (
	dataDirName     = "data"
	papersDirName   = "papers"
	inputDirName    = "input"
	outputDirName   = "output"
	sessionsDirName = "sessions"
	databaseFile    = "review_platform.db"
	pidFile         = "reviewd.pid"
	serverLogFile   = "reviewd.log"
)

// Layout resolves every path the tool touches under one project root. The
// root is always passed in explicitly; nothing here reads global state.
type Layout struct {
	Root string
}

func NewLayout(root string) Layout {
	return Layout{Root: root}
}

func (l Layout) DataDir() string       { return filepath.Join(l.Root, dataDirName) }
func (l Layout) DatabasePath() string  { return filepath.Join(l.DataDir(), databaseFile) }
func (l Layout) PapersDir() string     { return filepath.Join(l.DataDir(), papersDirName) }
func (l Layout) InputDir() string      { return filepath.Join(l.Root, inputDirName) }
func (l Layout) OutputDir() string     { return filepath.Join(l.Root, outputDirName) }
func (l Layout) SessionsDir() string   { return filepath.Join(l.Root, sessionsDirName) }
func (l Layout) PidFilePath() string   { return filepath.Join(l.DataDir(), pidFile) }
func (l Layout) ServerLogPath() string { return filepath.Join(l.DataDir(), serverLogFile) }

func (l Layout) PaperDir(paperID string) string {
	return filepath.Join(l.PapersDir(), paperID)
}

func (l Layout) PaperInputDir(paperID string) string {
	return filepath.Join(l.PaperDir(paperID), inputDirName)
}

// Ensure creates the project directory tree. Safe to call on an existing
// tree; nothing is ever removed.
func (l Layout) Ensure() error {
	for _, dir := range []string{l.DataDir(), l.PapersDir(), l.InputDir(), l.OutputDir(), l.SessionsDir()} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	return nil
}

func (l Layout) EnsurePaperDirs(paperID string) error {
	return os.MkdirAll(l.PaperInputDir(paperID), 0o755)
}
