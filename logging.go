package rewriter

import (
	"io"

	"github.com/sirupsen/logrus"
)

// newDiscardLogger returns a logrus.Logger wired to io.Discard so the hot
// dispatch path pays nothing for logging unless a caller supplies their own
// *logrus.Logger via Settings.Logger.
func newDiscardLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}
