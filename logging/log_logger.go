package logging

import (
	"log"

	"vpnse/application"
)

// LogLogger backs application.Logger with the standard library logger.
type LogLogger struct{}

func NewLogLogger() application.Logger {
	return &LogLogger{}
}

func (l LogLogger) Printf(format string, v ...any) {
	log.Printf(format, v...)
}
