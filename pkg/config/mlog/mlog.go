package mlog

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

type LogLevel int

const (
	VERBOSE LogLevel = iota
	DEBUG
	INFO
	WARN
	ERROR
)

const separator = "----------------------------------------"

var (
	mu     sync.RWMutex
	level  = INFO
	logger = newLogger(os.Stderr)
)

func newLogger(w io.Writer) zerolog.Logger {
	return zerolog.New(zerolog.ConsoleWriter{
		Out:        w,
		TimeFormat: "15:04:05",
		NoColor:    true,
	}).With().Timestamp().Logger().Level(zerolog.TraceLevel)
}

func toZerologLevel(l LogLevel) zerolog.Level {
	switch l {
	case VERBOSE:
		return zerolog.TraceLevel
	case DEBUG:
		return zerolog.DebugLevel
	case WARN:
		return zerolog.WarnLevel
	case ERROR:
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

// ParseLevel は設定文字列からログレベルを返す
func ParseLevel(s string) LogLevel {
	switch strings.ToLower(s) {
	case "verbose", "trace":
		return VERBOSE
	case "debug":
		return DEBUG
	case "warn", "warning":
		return WARN
	case "error":
		return ERROR
	default:
		return INFO
	}
}

func SetLevel(l LogLevel) {
	mu.Lock()
	defer mu.Unlock()
	level = l
	logger = logger.Level(toZerologLevel(l))
}

// SetOutput は出力先を差し替える
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	logger = newLogger(w).Level(toZerologLevel(level))
}

func IsVerbose() bool {
	mu.RLock()
	defer mu.RUnlock()
	return level <= VERBOSE
}

func IsDebug() bool {
	mu.RLock()
	defer mu.RUnlock()
	return level <= DEBUG
}

func current() zerolog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return logger
}

func format(message string, params ...interface{}) string {
	if len(params) == 0 {
		return message
	}
	return fmt.Sprintf(message, params...)
}

// V は冗長ログ
func V(message string, params ...interface{}) {
	l := current()
	l.Trace().Msg(format(message, params...))
}

// D はデバッグログ
func D(message string, params ...interface{}) {
	l := current()
	l.Debug().Msg(format(message, params...))
}

// I は情報ログ
func I(message string, params ...interface{}) {
	l := current()
	l.Info().Msg(format(message, params...))
}

// IL は区切り線付きの情報ログ
func IL(message string, params ...interface{}) {
	l := current()
	l.Info().Msg(separator)
	l.Info().Msg(format(message, params...))
}

// IT はタイトル付きの情報ログ
func IT(title string, message string, params ...interface{}) {
	l := current()
	l.Info().Str("title", title).Msg(format(message, params...))
}

// ILT は区切り線とタイトル付きの情報ログ
func ILT(title string, message string, params ...interface{}) {
	l := current()
	l.Info().Msg(separator)
	l.Info().Str("title", title).Msg(format(message, params...))
}

func W(message string, params ...interface{}) {
	l := current()
	l.Warn().Msg(format(message, params...))
}

func WT(title string, message string, params ...interface{}) {
	l := current()
	l.Warn().Str("title", title).Msg(format(message, params...))
}

func E(message string, params ...interface{}) {
	l := current()
	l.Error().Msg(format(message, params...))
}

func ET(title string, message string, params ...interface{}) {
	l := current()
	l.Error().Str("title", title).Msg(format(message, params...))
}

// SaveDiagnostic はエラーのスタックトレースをログディレクトリに保存し、そのパスを返す
func SaveDiagnostic(dir, name string, err error) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}

	path := filepath.Join(dir, fmt.Sprintf("%s.%s.log", name, time.Now().Format("20060102_150405")))
	content := fmt.Sprintf("%s\n%+v\n", time.Now().Format(time.RFC3339), err)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return "", err
	}

	return path, nil
}
