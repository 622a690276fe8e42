package utils

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"runtime"
	"sync"
	"time"
)

type LogLevel int

const (
	LogLevelError = LogLevel(1 << iota)
	LogLevelInfo
	LogLevelNotice
	LogLevelDebug
)

func (l LogLevel) class() string {
	switch l {
	case LogLevelError:
		return "ERROR"
	case LogLevelInfo:
		return "INFO"
	case LogLevelNotice:
		return "NOTICE"
	case LogLevelDebug:
		return "DEBUG"
	default:
		return "PANIC"
	}
}

var GlobalLogLevel = LogLevelError | LogLevelInfo

// LogFile Adds the calling file and line to every entry
var LogFile bool

var (
	logOutput     io.Writer = os.Stdout
	logOutputLock sync.Mutex
	logBufPool    = sync.Pool{
		New: func() any {
			return make([]byte, 0, 512)
		},
	}
)

// SetLogOutput Redirects all log lines to w. Returns the previous writer
func SetLogOutput(w io.Writer) (previous io.Writer) {
	logOutputLock.Lock()
	defer logOutputLock.Unlock()
	previous, logOutput = logOutput, w
	return previous
}

func IsLogLevelDebug() bool {
	return GlobalLogLevel&LogLevelDebug > 0
}

// Panicf Logs regardless of level, then panics with the same message
func Panicf(format string, v ...any) {
	panic(logf(0, "", format, v...))
}

func Errorf(prefix, format string, v ...any) {
	logf(LogLevelError, prefix, format, v...)
}

func Logf(prefix, format string, v ...any) {
	logf(LogLevelInfo, prefix, format, v...)
}

func Noticef(prefix, format string, v ...any) {
	logf(LogLevelNotice, prefix, format, v...)
}

func Debugf(prefix, format string, v ...any) {
	logf(LogLevelDebug, prefix, format, v...)
}

// logf Writes one entry when level is enabled, level 0 always writes. Returns the message
func logf(level LogLevel, prefix, format string, v ...any) (message string) {
	if level != 0 && GlobalLogLevel&level == 0 {
		return ""
	}

	//nolint:forcetypeassert
	buf := logBufPool.Get().([]byte)[:0]
	//nolint:staticcheck
	defer logBufPool.Put(buf)

	buf = time.Now().UTC().AppendFormat(buf, "2006-01-02 15:04:05.000")
	if LogFile {
		// logf <- Errorf/Debugf/... <- caller
		_, file, line, ok := runtime.Caller(2)
		if !ok {
			file = "???"
			line = 0
		}
		for i := len(file) - 1; i > 0; i-- {
			if file[i] == '/' {
				file = file[i+1:]
				break
			}
		}
		buf = fmt.Appendf(buf, " %s:%d", file, line)
	}
	buf = fmt.Appendf(buf, " [%s] %s ", prefix, level.class())
	start := len(buf)
	buf = fmt.Appendf(buf, format, v...)
	message = string(buf[start:])

	buf = append(bytes.TrimSpace(buf), '\n')

	logOutputLock.Lock()
	defer logOutputLock.Unlock()
	_, _ = logOutput.Write(buf)

	return message
}
