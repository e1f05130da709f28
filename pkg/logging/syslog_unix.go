//go:build !windows

package logging

import (
	"io"
	"log/syslog"
)

func syslogWriter() (io.Writer, error) {
	return syslog.New(syslog.LOG_INFO|syslog.LOG_DAEMON, "rbdrot")
}
