// Package cwh implements a buffering log shipper for CloudWatch Logs.
// It accumulates formatted log records into size- and time-bounded
// batches and delivers them to a single log stream, creating the
// destination group and stream on first use.
package cwh

import (
	"fmt"
)

// AppName is the canonical name of the application binary.
const AppName = "cwh"

var (
	version string
	build   string
)

// Version returns the application version and build information.
// The version and build values are injected at compile time via ldflags.
func Version() string {
	return fmt.Sprintf("%s (%s)", version, build)
}
