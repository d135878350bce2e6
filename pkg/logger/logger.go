package logger

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/antibyte/retrobasic/pkg/configuration"
)

// LogLevel definiert die verschiedenen Log-Level
type LogLevel int

const (
	DEBUG LogLevel = iota
	INFO
	WARN
	ERROR
	FATAL
)

var logLevelNames = map[LogLevel]string{
	DEBUG: "DEBUG",
	INFO:  "INFO",
	WARN:  "WARN",
	ERROR: "ERROR",
	FATAL: "FATAL",
}

func (l LogLevel) String() string {
	if name, ok := logLevelNames[l]; ok {
		return name
	}
	return fmt.Sprintf("LEVEL(%d)", int(l))
}

// LogArea definiert die verschiedenen Log-Bereiche
type LogArea string

const (
	AreaInterpreter LogArea = "interpreter"
	AreaREPL        LogArea = "repl"
	AreaWebSocket   LogArea = "websocket"
	AreaSession     LogArea = "session"
	AreaAuth        LogArea = "auth"
	AreaSecurity    LogArea = "security"
	AreaDatabase    LogArea = "database"
	AreaTLS         LogArea = "tls"
	AreaConfig      LogArea = "config"
	AreaGeneral     LogArea = "general"
)

var allAreas = []LogArea{
	AreaInterpreter, AreaREPL, AreaWebSocket, AreaSession, AreaAuth,
	AreaSecurity, AreaDatabase, AreaTLS, AreaConfig, AreaGeneral,
}

// Logger schreibt gefilterte Log-Einträge in eine rotierende Datei
type Logger struct {
	enabled       int32              // atomic bool
	level         int32              // atomic LogLevel
	areaEnabled   map[LogArea]*int32 // atomic bools pro Bereich
	mutex         sync.Mutex
	file          *os.File
	console       io.Writer // optionaler Spiegel, z.B. os.Stderr
	logPath       string
	maxSizeMB     int64
	rotationCount int
	currentSize   int64
}

var (
	globalLogger *Logger
	initOnce     sync.Once
)

// Initialize initialisiert das globale Logging-System aus der [Debug]-Sektion
func Initialize() error {
	var err error
	initOnce.Do(func() {
		globalLogger, err = newLogger()
	})
	return err
}

func newLogger() (*Logger, error) {
	l := &Logger{areaEnabled: make(map[LogArea]*int32, len(allAreas))}
	for _, area := range allAreas {
		l.areaEnabled[area] = new(int32)
	}

	l.loadConfig()
	if err := l.openLogFile(); err != nil {
		return nil, err
	}
	return l, nil
}

// loadConfig liest Level, Datei und Bereichsschalter
func (l *Logger) loadConfig() {
	atomic.StoreInt32(&l.enabled, boolToInt32(configuration.GetBool("Debug", "enable_debug_logging", true)))
	atomic.StoreInt32(&l.level, int32(parseLogLevel(configuration.GetString("Debug", "log_level", "INFO"))))

	l.mutex.Lock()
	l.logPath = configuration.GetString("Debug", "log_file", "retrobasic.log")
	l.maxSizeMB = int64(configuration.GetInt("Debug", "max_log_size_mb", 10))
	l.rotationCount = configuration.GetInt("Debug", "log_rotation_count", 3)
	if configuration.GetBool("Debug", "log_to_console", false) {
		l.console = os.Stderr
	} else {
		l.console = nil
	}
	l.mutex.Unlock()

	// Interpreter und allgemeine Meldungen sind standardmäßig an
	for area, flag := range l.areaEnabled {
		def := area == AreaInterpreter || area == AreaGeneral
		enabled := configuration.GetBool("Debug", "log_"+string(area), def)
		atomic.StoreInt32(flag, boolToInt32(enabled))
	}
}

func (l *Logger) openLogFile() error {
	l.mutex.Lock()
	defer l.mutex.Unlock()

	if l.file != nil {
		l.file.Close()
		l.file = nil
	}

	if dir := filepath.Dir(l.logPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
	}

	file, err := os.OpenFile(l.logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return err
	}
	l.file = file
	l.currentSize = 0
	if stat, err := file.Stat(); err == nil {
		l.currentSize = stat.Size()
	}
	return nil
}

// rotate verschiebt log -> log.1 -> log.2 ... und beginnt eine neue Datei.
// Aufrufer hält l.mutex.
func (l *Logger) rotate() error {
	if l.file != nil {
		l.file.Close()
		l.file = nil
	}

	if l.rotationCount > 0 {
		os.Remove(fmt.Sprintf("%s.%d", l.logPath, l.rotationCount))
		for i := l.rotationCount - 1; i >= 1; i-- {
			os.Rename(fmt.Sprintf("%s.%d", l.logPath, i), fmt.Sprintf("%s.%d", l.logPath, i+1))
		}
		os.Rename(l.logPath, l.logPath+".1")
	}

	file, err := os.OpenFile(l.logPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return err
	}
	l.file = file
	l.currentSize = 0
	return nil
}

func (l *Logger) isAreaEnabled(area LogArea) bool {
	if flag, ok := l.areaEnabled[area]; ok {
		return atomic.LoadInt32(flag) != 0
	}
	return false
}

// shouldLog: schnelle atomic Checks, kein Lock
func (l *Logger) shouldLog(level LogLevel, area LogArea) bool {
	if atomic.LoadInt32(&l.enabled) == 0 {
		return false
	}
	if atomic.LoadInt32(&l.level) > int32(level) {
		return false
	}
	return l.isAreaEnabled(area)
}

func (l *Logger) writeLog(level LogLevel, area LogArea, format string, args ...interface{}) {
	message := fmt.Sprintf(format, args...)

	_, file, line, _ := runtime.Caller(2)
	entry := fmt.Sprintf("[%s] %s [%s:%d] [%s] %s\n",
		time.Now().Format("2006-01-02 15:04:05.000"),
		level,
		filepath.Base(file),
		line,
		strings.ToUpper(string(area)),
		message)

	l.mutex.Lock()
	defer l.mutex.Unlock()

	if l.file != nil {
		if n, err := l.file.WriteString(entry); err == nil {
			l.currentSize += int64(n)
			if l.maxSizeMB > 0 && l.currentSize > l.maxSizeMB*1024*1024 {
				l.rotate()
			}
		}
	}
	if l.console != nil {
		io.WriteString(l.console, entry)
	} else if level >= WARN {
		log.Printf("[%s] [%s] %s", level, strings.ToUpper(string(area)), message)
	}
}

// Debug schreibt Debug-Logs
func Debug(area LogArea, format string, args ...interface{}) {
	if l := globalLogger; l != nil && l.shouldLog(DEBUG, area) {
		l.writeLog(DEBUG, area, format, args...)
	}
}

// Info schreibt Info-Logs
func Info(area LogArea, format string, args ...interface{}) {
	if l := globalLogger; l != nil && l.shouldLog(INFO, area) {
		l.writeLog(INFO, area, format, args...)
	}
}

// Warn schreibt Warnungen
func Warn(area LogArea, format string, args ...interface{}) {
	if l := globalLogger; l != nil && l.shouldLog(WARN, area) {
		l.writeLog(WARN, area, format, args...)
	}
}

// Error schreibt Fehler
func Error(area LogArea, format string, args ...interface{}) {
	if l := globalLogger; l != nil && l.shouldLog(ERROR, area) {
		l.writeLog(ERROR, area, format, args...)
	}
}

// Fatal schreibt immer und beendet das Programm
func Fatal(area LogArea, format string, args ...interface{}) {
	if l := globalLogger; l != nil {
		l.writeLog(FATAL, area, format, args...)
	}
	log.Fatalf("[FATAL] [%s] %s", strings.ToUpper(string(area)), fmt.Sprintf(format, args...))
}

// Kurzformen für die häufigsten Bereiche

func SessionDebug(format string, args ...interface{}) { Debug(AreaSession, format, args...) }
func SessionInfo(format string, args ...interface{})  { Info(AreaSession, format, args...) }
func SessionWarn(format string, args ...interface{})  { Warn(AreaSession, format, args...) }

func AuthInfo(format string, args ...interface{})  { Info(AreaAuth, format, args...) }
func AuthWarn(format string, args ...interface{})  { Warn(AreaAuth, format, args...) }
func AuthError(format string, args ...interface{}) { Error(AreaAuth, format, args...) }

func SecurityWarn(format string, args ...interface{}) { Warn(AreaSecurity, format, args...) }

func ConfigInfo(format string, args ...interface{}) { Info(AreaConfig, format, args...) }

// ReloadConfig übernimmt geänderte [Debug]-Werte ohne Neustart.
// Ein neuer log_file-Pfad öffnet die Datei neu.
func ReloadConfig() error {
	l := globalLogger
	if l == nil {
		return fmt.Errorf("logger not initialized")
	}
	l.mutex.Lock()
	oldPath := l.logPath
	l.mutex.Unlock()

	l.loadConfig()

	l.mutex.Lock()
	changed := l.logPath != oldPath
	l.mutex.Unlock()
	if changed {
		return l.openLogFile()
	}
	return nil
}

// EnableArea aktiviert Logging für einen Bereich
func EnableArea(area LogArea) { setArea(area, true) }

// DisableArea deaktiviert Logging für einen Bereich
func DisableArea(area LogArea) { setArea(area, false) }

func setArea(area LogArea, on bool) {
	if globalLogger == nil {
		return
	}
	if flag, ok := globalLogger.areaEnabled[area]; ok {
		atomic.StoreInt32(flag, boolToInt32(on))
	}
}

// GetAreaStatus gibt den Status eines Bereichs zurück
func GetAreaStatus(area LogArea) bool {
	return globalLogger != nil && globalLogger.isAreaEnabled(area)
}

// ListAreas gibt alle verfügbaren Bereiche zurück
func ListAreas() []LogArea {
	return append([]LogArea(nil), allAreas...)
}

func boolToInt32(b bool) int32 {
	if b {
		return 1
	}
	return 0
}

func parseLogLevel(level string) LogLevel {
	switch strings.ToUpper(strings.TrimSpace(level)) {
	case "DEBUG":
		return DEBUG
	case "WARN", "WARNING":
		return WARN
	case "ERROR":
		return ERROR
	case "FATAL":
		return FATAL
	}
	return INFO
}

// Close schließt die Log-Datei
func Close() {
	if globalLogger == nil {
		return
	}
	globalLogger.mutex.Lock()
	defer globalLogger.mutex.Unlock()
	if globalLogger.file != nil {
		globalLogger.file.Close()
		globalLogger.file = nil
	}
}
