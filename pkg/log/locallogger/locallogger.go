// Package locallogger writes JSON logs to a size rotated file, so a
// long build leaves a record next to the console output.
package locallogger

import (
	"fmt"
	"io"

	"github.com/go-kit/kit/log"
	"gopkg.in/natefinch/lumberjack.v2"
)

const (
	truncatedFormatString = "%s[TRUNCATED]"
	truncateAt            = 1000
)

// truncatedKeys hold captured tool output, which can run to megabytes
// for a failed compile.
var truncatedKeys = map[string]bool{
	"stdout": true,
	"stderr": true,
}

type localLogger struct {
	logger log.Logger
	writer io.Writer
	lj     *lumberjack.Logger
}

func NewKitLogger(logFilePath string) *localLogger {
	lj := &lumberjack.Logger{
		Filename:   logFilePath,
		MaxSize:    100, // megabytes
		MaxBackups: 3,
		MaxAge:     28,   // days
		Compress:   true, // compress rotated files
	}

	writer := log.NewSyncWriter(lj)

	return &localLogger{
		logger: log.With(
			log.NewJSONLogger(writer),
			"ts", log.DefaultTimestampUTC,
		),
		writer: writer,
		lj:     lj,
	}
}

func (ll *localLogger) Close() error {
	return ll.lj.Close()
}

func (ll *localLogger) Log(keyvals ...interface{}) error {
	filterOutput(keyvals...)
	return ll.logger.Log(keyvals...)
}

// Writer returns the underlying io.Writer for direct access
func (ll *localLogger) Writer() io.Writer {
	return ll.writer
}

// filterOutput truncates captured tool output in place.
func filterOutput(keyvals ...interface{}) {
	for i := 0; i+1 < len(keyvals); i += 2 {
		key, ok := keyvals[i].(string)
		if !ok || !truncatedKeys[key] {
			continue
		}
		if str, ok := keyvals[i+1].(string); ok && len(str) > truncateAt {
			keyvals[i+1] = fmt.Sprintf(truncatedFormatString, str[0:truncateAt-1])
		}
	}
}
