//go:build windows

package logging

import (
	"errors"
	"io"
)

func syslogWriter() (io.Writer, error) {
	return nil, errors.New("syslog is not available on windows")
}
