package logger

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"strings"
	"sync/atomic"
	"time"
)

// Field represents a structured logging field
type Field struct {
	Key   string
	Value interface{}
}

type level int32

const (
	levelDebug level = iota
	levelInfo
	levelWarn
	levelError
)

var (
	minLevel   atomic.Int32
	jsonOutput atomic.Bool
)

func init() {
	Configure(os.Getenv("LOG_LEVEL"), os.Getenv("LOG_FORMAT"))
}

// Configure sets the minimum log level ("debug", "info", "warn", "error")
// and the output format ("json" or plain text).
func Configure(lvl, format string) {
	switch strings.ToLower(lvl) {
	case "debug":
		minLevel.Store(int32(levelDebug))
	case "warn", "warning":
		minLevel.Store(int32(levelWarn))
	case "error":
		minLevel.Store(int32(levelError))
	default:
		minLevel.Store(int32(levelInfo))
	}
	jsonOutput.Store(strings.ToLower(format) == "json")
}

// Info logs informational messages (printf style, or structured when the
// last argument is a []Field)
func Info(format string, args ...interface{}) {
	logAt(levelInfo, format, args...)
}

// Warn logs warning messages
func Warn(format string, args ...interface{}) {
	logAt(levelWarn, format, args...)
}

// Error logs error messages
func Error(format string, args ...interface{}) {
	logAt(levelError, format, args...)
}

// Debug logs debug messages
func Debug(format string, args ...interface{}) {
	logAt(levelDebug, format, args...)
}

func logAt(lvl level, format string, args ...interface{}) {
	if lvl < level(minLevel.Load()) {
		return
	}
	if len(args) > 0 {
		if fields, ok := args[len(args)-1].([]Field); ok {
			logStructured(levelName(lvl), format, fields...)
			return
		}
	}
	log.Printf(levelName(lvl)+": "+format, args...)
}

func levelName(lvl level) string {
	switch lvl {
	case levelDebug:
		return "DEBUG"
	case levelWarn:
		return "WARN"
	case levelError:
		return "ERROR"
	default:
		return "INFO"
	}
}

func logStructured(level, msg string, fields ...Field) {
	if jsonOutput.Load() {
		logEntry := map[string]interface{}{
			"timestamp": time.Now().UTC().Format(time.RFC3339),
			"level":     level,
			"message":   msg,
		}
		for _, field := range fields {
			logEntry[field.Key] = field.Value
		}
		jsonData, _ := json.Marshal(logEntry)
		log.Println(string(jsonData))
		return
	}

	fieldStr := ""
	for i, field := range fields {
		if i == 0 {
			fieldStr = " "
		} else {
			fieldStr += " "
		}
		fieldStr += fmt.Sprintf("%s=%v", field.Key, field.Value)
	}
	log.Printf("%s: %s%s", level, msg, fieldStr)
}

// Helper functions for common field types

func String(key, value string) Field {
	return Field{Key: key, Value: value}
}

func Int(key string, value int) Field {
	return Field{Key: key, Value: value}
}

func Bool(key string, value bool) Field {
	return Field{Key: key, Value: value}
}

func Err(key string, err error) Field {
	if err == nil {
		return Field{Key: key, Value: nil}
	}
	return Field{Key: key, Value: err.Error()}
}
