package logging

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const dateLayout = "2006-01-02"

// DailyFile is a zapcore.WriteSyncer that writes to app-YYYY-MM-DD.log in
// dir and switches files when the date changes. Files older than the
// retention window are removed on every switch.
type DailyFile struct {
	mu            sync.Mutex
	dir           string
	retentionDays int
	date          string
	file          *os.File
	now           func() time.Time
}

func NewDailyFile(dir string, retentionDays int) (*DailyFile, error) {
	if retentionDays < 1 {
		retentionDays = 1
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	d := &DailyFile{dir: dir, retentionDays: retentionDays, now: time.Now}
	if err := d.rotate(d.now().Format(dateLayout)); err != nil {
		return nil, err
	}
	return d, nil
}

func (d *DailyFile) Write(p []byte) (int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if date := d.now().Format(dateLayout); date != d.date {
		if err := d.rotate(date); err != nil {
			return 0, err
		}
	}
	return d.file.Write(p)
}

func (d *DailyFile) Sync() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.file == nil {
		return nil
	}
	return d.file.Sync()
}

func (d *DailyFile) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.file == nil {
		return nil
	}
	err := d.file.Close()
	d.file = nil
	return err
}

func (d *DailyFile) rotate(date string) error {
	filename := filepath.Join(d.dir, fmt.Sprintf("app-%s.log", date))
	file, err := os.OpenFile(filename, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	if d.file != nil {
		_ = d.file.Close()
	}
	d.file = file
	d.date = date
	cleanupOldLogs(d.dir, d.retentionDays, d.now())
	return nil
}

func cleanupOldLogs(dir string, retentionDays int, now time.Time) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return
	}
	cutoff := now.AddDate(0, 0, -(retentionDays - 1)).Format(dateLayout)
	for _, entry := range entries {
		name := entry.Name()
		if !entry.Type().IsRegular() {
			continue
		}
		if !strings.HasPrefix(name, "app-") || !strings.HasSuffix(name, ".log") {
			continue
		}
		datePart := strings.TrimSuffix(strings.TrimPrefix(name, "app-"), ".log")
		if _, err := time.Parse(dateLayout, datePart); err != nil {
			continue
		}
		if datePart < cutoff {
			_ = os.Remove(filepath.Join(dir, name))
		}
	}
}

// New builds the process logger: console output on stdout and JSON lines
// in the daily file. The returned func flushes and closes the file.
func New(level string, dir string, retentionDays int) (*zap.Logger, func(), error) {
	lvl := zap.NewAtomicLevelAt(zapcore.InfoLevel)
	if level != "" {
		if err := lvl.UnmarshalText([]byte(level)); err != nil {
			return nil, nil, fmt.Errorf("log level %q: %w", level, err)
		}
	}
	encoderCfg := zap.NewProductionEncoderConfig()
	encoderCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	consoleCore := zapcore.NewCore(zapcore.NewConsoleEncoder(encoderCfg), zapcore.Lock(os.Stdout), lvl)
	if dir == "" {
		logger := zap.New(consoleCore, zap.AddCaller())
		return logger, func() { _ = logger.Sync() }, nil
	}
	file, err := NewDailyFile(dir, retentionDays)
	if err != nil {
		return nil, nil, err
	}
	fileCore := zapcore.NewCore(zapcore.NewJSONEncoder(encoderCfg), file, lvl)
	logger := zap.New(zapcore.NewTee(consoleCore, fileCore), zap.AddCaller())
	return logger, func() {
		_ = logger.Sync()
		_ = file.Close()
	}, nil
}
