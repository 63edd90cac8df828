package logging

import (
	"fmt"
	"time"

	gormlogger "gorm.io/gorm/logger"
)

// gormWriter adapts zerolog to gorm's logger.Writer.
type gormWriter struct{}

func (gormWriter) Printf(format string, args ...interface{}) {
	l := Logger()
	l.Debug().Str("component", "gorm").Msg(fmt.Sprintf(format, args...))
}

// NewGormLogger returns a gorm logger that writes through zerolog and reports
// queries slower than slowThreshold.
func NewGormLogger(slowThreshold time.Duration, level gormlogger.LogLevel) gormlogger.Interface {
	return gormlogger.New(gormWriter{}, gormlogger.Config{
		SlowThreshold:             slowThreshold,
		LogLevel:                  level,
		IgnoreRecordNotFoundError: true,
		Colorful:                  false,
	})
}
