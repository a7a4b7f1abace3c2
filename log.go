package serial

import "github.com/sirupsen/logrus"

var log = logrus.WithField("pkg", "serial")

// SetLogger replaces the package logger. Ports log open, close and
// registry changes at debug level; reads and writes are never logged.
func SetLogger(l *logrus.Entry) {
	log = l
}
