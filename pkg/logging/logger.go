// Package logging provides structured debug logging for tabpilot components.
// All components of one process append to a single session-scoped file under
// ~/.tabpilot/logs, so an agent turn can be reconstructed across packages.
package logging

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Logger writes component-tagged entries to the shared session log file.
// If file logging cannot be initialized it falls back to stderr.
type Logger struct {
	sessionID string
	component string
	file      *os.File
	logger    *log.Logger
	logPath   string
	mu        sync.Mutex
	closeOnce sync.Once
}

var (
	sessionID     string
	sessionIDOnce sync.Once

	logDir   string
	initOnce sync.Once
	initErr  error
)

func processSessionID() string {
	sessionIDOnce.Do(func() {
		sessionID = uuid.New().String()
	})
	return sessionID
}

func initLogDirectory() error {
	initOnce.Do(func() {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			initErr = fmt.Errorf("failed to get home directory: %w", err)
			return
		}
		logDir = filepath.Join(homeDir, ".tabpilot", "logs")
		if err := os.MkdirAll(logDir, 0750); err != nil {
			initErr = fmt.Errorf("failed to create log directory: %w", err)
		}
	})
	return initErr
}

// NewLogger creates a logger for a component. The logger appends to
// ~/.tabpilot/logs/<session-id>-tabpilot.log; multiple components share the
// file. On initialization failure a stderr fallback logger is returned along
// with the error.
func NewLogger(component string) (*Logger, error) {
	if err := initLogDirectory(); err != nil {
		return newFallbackLogger(component, err), err
	}

	sessID := processSessionID()
	logPath := filepath.Join(logDir, fmt.Sprintf("%s-tabpilot.log", sessID))

	file, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600)
	if err != nil {
		return newFallbackLogger(component, fmt.Errorf("failed to open log file: %w", err)), err
	}

	return &Logger{
		sessionID: sessID,
		component: component,
		file:      file,
		logger:    log.New(file, "", 0),
		logPath:   logPath,
	}, nil
}

func newFallbackLogger(component string, err error) *Logger {
	logger := log.New(os.Stderr, fmt.Sprintf("[%s] ", component), log.LstdFlags)
	logger.Printf("WARNING: file logging unavailable, using stderr: %v", err)
	return &Logger{
		sessionID: processSessionID(),
		component: component,
		logger:    logger,
	}
}

func (l *Logger) logf(level, format string, v ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	timestamp := time.Now().Format("2006-01-02 15:04:05.000")
	l.logger.Printf("[%s] [%s] [%s] %s", timestamp, l.component, level, fmt.Sprintf(format, v...))
}

// Debugf logs a debug-level message.
func (l *Logger) Debugf(format string, v ...interface{}) { l.logf("DEBUG", format, v...) }

// Infof logs an info-level message.
func (l *Logger) Infof(format string, v ...interface{}) { l.logf("INFO", format, v...) }

// Warnf logs a warning-level message.
func (l *Logger) Warnf(format string, v ...interface{}) { l.logf("WARN", format, v...) }

// Errorf logs an error-level message.
func (l *Logger) Errorf(format string, v ...interface{}) { l.logf("ERROR", format, v...) }

// Writer returns the destination this logger writes to.
func (l *Logger) Writer() io.Writer {
	if l.file != nil {
		return l.file
	}
	return os.Stderr
}

// SessionID returns the process-wide logging session ID.
func (l *Logger) SessionID() string { return l.sessionID }

// LogPath returns the log file path, empty in fallback mode.
func (l *Logger) LogPath() string { return l.logPath }

// Close closes the log file. Safe to call multiple times.
func (l *Logger) Close() error {
	var err error
	l.closeOnce.Do(func() {
		if l.file != nil {
			err = l.file.Close()
		}
	})
	return err
}
