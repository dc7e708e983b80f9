package logging

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

const defaultMaxLogFileSize = 100 * 1024 * 1024 // 100MB per file

// continuationRe matches size-rotated files like app-2025-W34_01.log and
// captures the two-digit sequence number.
var continuationRe = regexp.MustCompile(`app-\d{4}-W\d{2}_(\d{2})\.log$`)

// RotatingLogger is an io.Writer whose backing file changes on ISO week
// boundaries and when the active file reaches the size limit. Files older
// than the retention window are deleted by a background sweep.
type RotatingLogger struct {
	logDir      string
	retention   time.Duration
	maxFileSize int64

	mu          sync.RWMutex
	currentFile *os.File
	currentWeek string
	currentSize atomic.Int64

	ctx         context.Context
	cancel      context.CancelFunc
	cleanupDone chan struct{}
}

// NewRotatingLogger creates a rotating logger with the default size limit.
func NewRotatingLogger(logDir string, retentionWeeks int) *RotatingLogger {
	return NewRotatingLoggerWithSizeLimit(logDir, retentionWeeks, defaultMaxLogFileSize)
}

// NewRotatingLoggerWithSizeLimit creates a rotating logger with a custom
// per-file size limit.
func NewRotatingLoggerWithSizeLimit(logDir string, retentionWeeks int, maxFileSize int64) *RotatingLogger {
	ctx, cancel := context.WithCancel(context.Background())
	return &RotatingLogger{
		logDir:      logDir,
		retention:   time.Duration(retentionWeeks) * 7 * 24 * time.Hour,
		maxFileSize: maxFileSize,
		ctx:         ctx,
		cancel:      cancel,
		cleanupDone: make(chan struct{}),
	}
}

// getWeekKey returns the ISO week key in YYYY-Www format.
func getWeekKey(t time.Time) string {
	year, week := t.ISOWeek()
	return fmt.Sprintf("%d-W%02d", year, week)
}

// Write appends p to the active file, switching files first when the week
// rolled over or p would not fit under the size limit.
func (rl *RotatingLogger) Write(p []byte) (n int, err error) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	week := getWeekKey(time.Now())
	rotate := week != rl.currentWeek

	if !rotate && rl.maxFileSize > 0 {
		size := rl.currentSize.Load()
		if size >= rl.maxFileSize || size+int64(len(p)) > rl.maxFileSize {
			// Mark the file full so doRotate treats this as a size rotation
			rl.currentSize.Store(rl.maxFileSize)
			rotate = true
		}
	}

	if rotate {
		if err := rl.doRotate(week); err != nil {
			return 0, err
		}
	}
	if rl.currentFile == nil {
		return 0, fmt.Errorf("no log file available")
	}

	n, err = rl.currentFile.Write(p)
	rl.currentSize.Add(int64(n))
	return n, err
}

// doRotate switches the active file for targetWeek. The caller must hold
// the write lock.
func (rl *RotatingLogger) doRotate(targetWeek string) error {
	if rl.currentFile != nil {
		if err := rl.currentFile.Close(); err != nil {
			slog.Warn("Closing the outgoing log file failed", "error", err)
		}
	}

	sizeRotation := rl.maxFileSize > 0 && rl.currentSize.Load() >= rl.maxFileSize
	fileName, resume := rl.selectLogFile(targetWeek, sizeRotation)

	path := filepath.Join(rl.logDir, fileName)
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)
	if err != nil {
		return fmt.Errorf("failed to open log file %s: %w", path, err)
	}

	rl.currentFile = file
	rl.currentWeek = targetWeek

	rl.currentSize.Store(0)
	if resume {
		// Appending to a file that already has content, pick up its length
		if info, err := os.Stat(path); err == nil {
			rl.currentSize.Store(info.Size())
		}
	}
	return nil
}

// selectLogFile picks the file to write for targetWeek: the base weekly
// file while it has room, then numbered continuations. resume reports
// whether an existing file is being appended to.
func (rl *RotatingLogger) selectLogFile(targetWeek string, sizeRotation bool) (fileName string, resume bool) {
	base := fmt.Sprintf("app-%s.log", targetWeek)

	if !sizeRotation {
		info, err := os.Stat(filepath.Join(rl.logDir, base))
		switch {
		case err != nil:
			// Fresh week, the base file does not exist yet
			return base, false
		case rl.maxFileSize == 0 || info.Size() < rl.maxFileSize:
			return base, true
		}
	}

	num, name, size := rl.latestContinuation(targetWeek)
	if name != "" && size < rl.maxFileSize {
		return name, true
	}
	return fmt.Sprintf("app-%s_%02d.log", targetWeek, num+1), false
}

// latestContinuation finds the highest-numbered continuation file for the
// week, returning its number, name and size. A zero number means none
// exist yet.
func (rl *RotatingLogger) latestContinuation(targetWeek string) (int, string, int64) {
	entries, err := os.ReadDir(rl.logDir)
	if err != nil {
		return 0, "", 0
	}

	prefix := fmt.Sprintf("app-%s_", targetWeek)
	best, bestName, bestSize := 0, "", int64(0)
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasPrefix(name, prefix) {
			continue
		}
		m := continuationRe.FindStringSubmatch(name)
		if m == nil {
			continue
		}
		num, _ := strconv.Atoi(m[1])
		if num <= best {
			continue
		}
		var size int64
		if info, err := entry.Info(); err == nil {
			size = info.Size()
		}
		best, bestName, bestSize = num, name, size
	}
	return best, bestName, bestSize
}

// cleanupOldLogs deletes log files whose modification time fell out of the
// retention window.
func (rl *RotatingLogger) cleanupOldLogs() error {
	entries, err := os.ReadDir(rl.logDir)
	if err != nil {
		return fmt.Errorf("failed to read log directory: %w", err)
	}

	cutoff := time.Now().Add(-rl.retention)
	removed := 0
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasPrefix(name, "app-") || !strings.HasSuffix(name, ".log") {
			continue
		}
		info, err := entry.Info()
		if err != nil || !info.ModTime().Before(cutoff) {
			continue
		}
		if err := os.Remove(filepath.Join(rl.logDir, name)); err == nil {
			removed++
		}
	}

	if removed > 0 {
		// Printed rather than logged: logging here would feed back into Write
		fmt.Printf("Removed %d expired log files\n", removed)
	}
	return nil
}

// openInitialFile opens the current week's file immediately so a broken
// log directory surfaces at setup time, not on the first write.
func (rl *RotatingLogger) openInitialFile() error {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return rl.doRotate(getWeekKey(time.Now()))
}

// startCleanupLoop sweeps for expired files once a day until Close. Only
// loggers built through the Setup functions run the loop; Close falls back
// to a timeout when it never started.
func (rl *RotatingLogger) startCleanupLoop() {
	go func() {
		ticker := time.NewTicker(24 * time.Hour)
		defer ticker.Stop()
		defer close(rl.cleanupDone)

		for {
			select {
			case <-rl.ctx.Done():
				return
			case <-ticker.C:
				if err := rl.cleanupOldLogs(); err != nil {
					slog.Warn("Log cleanup sweep failed", "error", err)
				}
			}
		}
	}()
}

// Close stops the cleanup loop and closes the active file.
func (rl *RotatingLogger) Close() error {
	rl.cancel()

	// Test binaries churn through logger instances; keep their shutdown short
	timeout := 5 * time.Second
	if len(os.Args) > 0 && strings.Contains(os.Args[0], "test") {
		timeout = 100 * time.Millisecond
	}

	select {
	case <-rl.cleanupDone:
	case <-time.After(timeout):
		if timeout > 100*time.Millisecond {
			fmt.Printf("Warning: log cleanup goroutine still running at close\n")
		}
	}

	rl.mu.Lock()
	defer rl.mu.Unlock()
	if rl.currentFile == nil {
		return nil
	}
	return rl.currentFile.Close()
}
