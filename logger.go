package main

import (
	"io"
	"os"

	"github.com/sirupsen/logrus"
)

// NewLogger builds the service's structured logger: timestamped text
// output fanned out to stdout and an append-mode log file, replacing
// the teacher's emoji-prefixed fmt.Println/log.Printf calls with
// logrus fields so log lines stay greppable under load. Level is
// controlled by config.LogLevel, defaulting to Info on an unrecognized
// value.
func NewLogger(config *Config) *logrus.Logger {
	log := logrus.New()
	log.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
	})

	level, err := logrus.ParseLevel(config.LogLevel)
	if err != nil {
		level = logrus.InfoLevel
	}
	log.SetLevel(level)

	file, err := os.OpenFile(config.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		log.WithError(err).Warn("could not open log file, logging to stdout only")
		log.SetOutput(os.Stdout)
		return log
	}
	log.SetOutput(io.MultiWriter(os.Stdout, file))

	return log
}
