// internal/cmdutil/log.go
package cmdutil

import (
	"io"

	"github.com/sirupsen/logrus"

	"github.com/logannye/rosalind/internal/rerr"
)

// NewLogger builds the app logger: plain text on stderr, quiet drops
// everything below warnings.
func NewLogger(stderr io.Writer, quiet bool) *logrus.Logger {
	log := logrus.New()
	log.SetOutput(stderr)
	log.SetFormatter(&logrus.TextFormatter{
		DisableTimestamp: true,
		DisableColors:    true,
	})
	if quiet {
		log.SetLevel(logrus.WarnLevel)
	} else {
		log.SetLevel(logrus.InfoLevel)
	}
	return log
}

// Fail writes the single diagnostic line for err and returns its exit code:
// the error kind, offending context, and a remediation hint.
func Fail(log *logrus.Logger, err error) int {
	fields := logrus.Fields{}
	if hint := rerr.Hint(err); hint != "" {
		fields["hint"] = hint
	}
	if rerr.Internal(err) {
		fields["kind"] = "invariant"
	}
	log.WithFields(fields).Error(err)
	return rerr.ExitCode(err)
}
