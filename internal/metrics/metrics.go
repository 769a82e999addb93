// Package metrics exposes shipping counters via expvar and an optional
// HTTP server for the standard /debug/vars endpoint.
package metrics

import (
	"expvar"
	"time"
)

var (
	// Buffering metrics
	RecordsSubmitted = expvar.NewInt("records_submitted_total")
	EntriesBuffered  = expvar.NewInt("entries_buffered_total")
	RecordsSplit     = expvar.NewInt("records_split_total")

	// Shipping metrics
	BatchesShipped = expvar.NewInt("batches_shipped_total")
	EntriesShipped = expvar.NewInt("entries_shipped_total")
	BytesShipped   = expvar.NewInt("bytes_shipped_total")
	FlushRetries   = expvar.NewInt("flush_retries_total")
	FlushFailures  = expvar.NewInt("flush_failures_total")
	ThrottlePauses = expvar.NewInt("throttle_pauses_total")

	// Spool metrics
	SpoolWrites        = expvar.NewInt("spool_writes_total")
	SpoolBytesWritten  = expvar.NewInt("spool_bytes_written")
	SpoolFileRotations = expvar.NewInt("spool_file_rotations")

	// System metrics
	StartTime = expvar.NewInt("start_time_seconds")
	Version   = expvar.NewString("version_info")
)

// Init initialises system metrics that should be set once at startup.
func Init(versionString string) {
	StartTime.Set(time.Now().Unix())
	Version.Set(versionString)
}
