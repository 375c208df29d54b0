package logger

import (
	"fmt"
	"io"
	"log/slog"
	"strings"
)

var globalLogger *slog.Logger

// ParseLevel ログレベル名を slog.Level に変換する
func ParseLevel(level string) (slog.Level, error) {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return slog.LevelInfo, fmt.Errorf("invalid log level: %s", level)
}

// New ログレベルと出力形式（text / json）に応じたロガーを w に向けて作る
func New(w io.Writer, level, format string) (*slog.Logger, error) {
	slogLevel, err := ParseLevel(level)
	if err != nil {
		return nil, err
	}

	opts := &slog.HandlerOptions{
		Level: slogLevel,
	}

	var handler slog.Handler
	switch strings.ToLower(format) {
	case "", "text":
		handler = slog.NewTextHandler(w, opts)
	case "json":
		handler = slog.NewJSONHandler(w, opts)
	default:
		return nil, fmt.Errorf("invalid log format: %s", format)
	}

	return slog.New(handler), nil
}

// InitLogger ログレベルと出力形式に応じてslogを初期化し、w に出力する
// 標準出力はスクリプトの出力に使うため、通常は標準エラー出力を渡す
func InitLogger(w io.Writer, level, format string) error {
	l, err := New(w, level, format)
	if err != nil {
		return err
	}

	globalLogger = l
	slog.SetDefault(globalLogger)

	return nil
}

// GetLogger グローバルロガーを取得
func GetLogger() *slog.Logger {
	if globalLogger == nil {
		// デフォルトロガーを返す
		return slog.Default()
	}
	return globalLogger
}
