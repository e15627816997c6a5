package ultrahdr

import "github.com/sirupsen/logrus"

// defaultLogger is used by the Assembler when no logger is supplied via
// WithLogger. It writes to stderr at Warn level, so the library's Debug-level
// messages are suppressed unless a caller supplies a more verbose logger.
var defaultLogger logrus.FieldLogger = func() logrus.FieldLogger {
	l := logrus.New()
	l.SetLevel(logrus.WarnLevel)
	return l
}()
