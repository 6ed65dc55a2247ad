package logging

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	gormlogger "gorm.io/gorm/logger"
)

// New builds the process logger. format is "json" or "text".
func New(level, format string, out io.Writer) *logrus.Logger {
	if out == nil {
		out = os.Stdout
	}

	log := logrus.New()
	log.SetOutput(out)

	if strings.EqualFold(format, "json") {
		log.SetFormatter(&logrus.JSONFormatter{TimestampFormat: time.RFC3339})
	} else {
		log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true, TimestampFormat: time.RFC3339})
	}

	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		log.WithField("level", level).Warn("unknown log level, falling back to info")
		lvl = logrus.InfoLevel
	}
	log.SetLevel(lvl)

	return log
}

// Discard returns a logger that drops everything; handy in tests.
func Discard() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

func Module(log logrus.FieldLogger, name string) *logrus.Entry {
	return log.WithField("module", name)
}

// Gorm adapts a logrus entry to gorm's logger interface.
func Gorm(log logrus.FieldLogger, slow time.Duration) gormlogger.Interface {
	return gormlogger.New(
		Module(log, "gorm"),
		gormlogger.Config{
			SlowThreshold:             slow,
			LogLevel:                  gormlogger.Warn,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)
}

// Requests logs one line per request once the handler chain has finished.
func Requests(log logrus.FieldLogger) gin.HandlerFunc {
	entry := Module(log, "http")
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path

		c.Next()

		fields := logrus.Fields{
			"method":     c.Request.Method,
			"path":       path,
			"status":     c.Writer.Status(),
			"latency_ms": time.Since(start).Milliseconds(),
			"client_ip":  c.ClientIP(),
		}
		if len(c.Errors) > 0 {
			fields["errors"] = c.Errors.String()
		}

		switch {
		case c.Writer.Status() >= 500:
			entry.WithFields(fields).Error("request failed")
		case c.Writer.Status() >= 400:
			entry.WithFields(fields).Warn("request rejected")
		default:
			entry.WithFields(fields).Info("request completed")
		}
	}
}
