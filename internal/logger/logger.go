package logger

import (
	"archive/zip"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"MaintBackOffice/internal/config"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// LoggerService owns the process log sink. Entries are JSON encoded by zap,
// written to a size-rotated file under folderPath and mirrored to stdout.
type LoggerService struct {
	Config        map[string]interface{}
	file          *os.File
	mu            sync.Mutex
	stopCh        chan struct{}
	wg            sync.WaitGroup
	currentLog    string
	maxFileBytes  int64
	retentionDays int
	folderPath    string
	seq           int
	level         zapcore.Level
	log           *zap.Logger
	restore       func()
}

func NewLoggerService(cfg map[string]interface{}) *LoggerService {
	maxMB := config.ToInt(cfg["max_file_mb"])
	retention := config.ToInt(cfg["retention_days"])
	folder, _ := cfg["folder_path"].(string)
	if folder == "" {
		folder = "./logs"
	}
	level := zapcore.InfoLevel
	if lv, ok := cfg["level"].(string); ok && lv != "" {
		if err := level.Set(lv); err != nil {
			level = zapcore.InfoLevel
		}
	}
	return &LoggerService{
		Config:        cfg,
		stopCh:        make(chan struct{}),
		maxFileBytes:  int64(maxMB) * 1024 * 1024,
		retentionDays: retention,
		folderPath:    folder,
		level:         level,
	}
}

func (l *LoggerService) Name() string {
	return "logger"
}

func (l *LoggerService) Start() error {
	l.mu.Lock()
	if err := os.MkdirAll(l.folderPath, 0755); err != nil {
		l.mu.Unlock()
		return err
	}
	logFile := l.nextLogFileName()
	file, err := os.OpenFile(logFile, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		l.mu.Unlock()
		return err
	}
	l.file = file
	l.currentLog = logFile
	l.mu.Unlock()

	encCfg := zap.NewProductionEncoderConfig()
	encCfg.TimeKey = "timestamp"
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	core := zapcore.NewTee(
		zapcore.NewCore(zapcore.NewJSONEncoder(encCfg), zapcore.AddSync(l), l.level),
		zapcore.NewCore(zapcore.NewConsoleEncoder(encCfg), zapcore.Lock(os.Stdout), l.level),
	)
	l.log = zap.New(core, zap.AddCaller(), zap.AddStacktrace(zapcore.ErrorLevel))
	l.restore = zap.ReplaceGlobals(l.log)
	l.log.Info("logger started", zap.String("file", logFile))

	// background goroutine for rotation and retention
	l.wg.Add(1)
	go l.backgroundWorker()

	return nil
}

func (l *LoggerService) Stop() error {
	close(l.stopCh)
	l.wg.Wait()
	if l.log != nil {
		l.log.Info("logger stopping")
		_ = l.log.Sync()
	}
	if l.restore != nil {
		l.restore()
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.file != nil {
		err := l.file.Close()
		l.file = nil
		return err
	}
	return nil
}

// Write implements io.Writer for the zap file core.
func (l *LoggerService) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.file == nil {
		return len(p), nil
	}
	return l.file.Write(p)
}

// Sync flushes the current log file.
func (l *LoggerService) Sync() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.file == nil {
		return nil
	}
	return l.file.Sync()
}

// Logger returns the zap logger built by Start, or the global logger before that.
func (l *LoggerService) Logger() *zap.Logger {
	if l.log == nil {
		return zap.L()
	}
	return l.log
}

// CurrentFile reports the file currently receiving log entries.
func (l *LoggerService) CurrentFile() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.currentLog
}

func (l *LoggerService) nextLogFileName() string {
	l.seq++
	timestamp := time.Now().Format("20060102_150405")
	return filepath.Join(l.folderPath, fmt.Sprintf("app_%s_%03d.log", timestamp, l.seq))
}

func (l *LoggerService) rotateIfNeeded() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.file == nil || l.maxFileBytes <= 0 {
		return nil
	}
	info, err := l.file.Stat()
	if err != nil {
		return err
	}
	if info.Size() < l.maxFileBytes {
		return nil
	}
	// close current file who's size is now exceeded
	l.file.Close()
	newLog := l.nextLogFileName()
	file, err := os.OpenFile(newLog, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		l.file = nil
		return err
	}
	l.file = file
	l.currentLog = newLog
	return nil
}

func (l *LoggerService) backgroundWorker() {
	defer l.wg.Done()
	ticker := time.NewTicker(10 * time.Second)
	retentionTicker := time.NewTicker(24 * time.Hour)
	defer ticker.Stop()
	defer retentionTicker.Stop()

	for {
		select {
		case <-l.stopCh:
			return
		case <-ticker.C:
			if err := l.rotateIfNeeded(); err != nil {
				fmt.Fprintf(os.Stderr, "log rotation failed: %v\n", err)
			}
		case <-retentionTicker.C:
			l.zipAndCleanOldLogs(time.Now())
		}
	}
}

// zipAndCleanOldLogs moves .log files last modified before the retention
// cutoff into a dated zip archive.
func (l *LoggerService) zipAndCleanOldLogs(now time.Time) int {
	if l.retentionDays <= 0 {
		return 0
	}
	cutoff := now.AddDate(0, 0, -l.retentionDays)
	files, err := os.ReadDir(l.folderPath)
	if err != nil {
		return 0
	}
	var stale []string
	for _, f := range files {
		if f.IsDir() || filepath.Ext(f.Name()) != ".log" {
			continue
		}
		fullPath := filepath.Join(l.folderPath, f.Name())
		if fullPath == l.CurrentFile() {
			continue
		}
		info, err := os.Stat(fullPath)
		if err != nil || info.ModTime().After(cutoff) {
			continue
		}
		stale = append(stale, f.Name())
	}
	if len(stale) == 0 {
		return 0
	}

	zipName := filepath.Join(l.folderPath, fmt.Sprintf("logs_%s.zip", now.Format("20060102_150405")))
	zipFile, err := os.Create(zipName)
	if err != nil {
		return 0
	}
	defer zipFile.Close()
	zipWriter := zip.NewWriter(zipFile)
	defer zipWriter.Close()

	archived := 0
	for _, name := range stale {
		fullPath := filepath.Join(l.folderPath, name)
		w, err := zipWriter.Create(name)
		if err != nil {
			continue
		}
		src, err := os.Open(fullPath)
		if err != nil {
			continue
		}
		_, copyErr := io.Copy(w, src)
		src.Close()
		if copyErr != nil {
			continue
		}
		os.Remove(fullPath)
		archived++
	}
	return archived
}

// LogAudit records an audit-tagged entry.
func (l *LoggerService) LogAudit(msg string, fields ...zap.Field) {
	l.Logger().Info(msg, append(fields, zap.Bool("audit", true))...)
}

var GlobalLogger *LoggerService

func SetGlobalLogger(l *LoggerService) {
	GlobalLogger = l
}

// Audit logs through the global logger service when one is registered.
func Audit(msg string, fields ...zap.Field) {
	if GlobalLogger != nil {
		GlobalLogger.LogAudit(msg, fields...)
		return
	}
	zap.L().Info(msg, append(fields, zap.Bool("audit", true))...)
}
