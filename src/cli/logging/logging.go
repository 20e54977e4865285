// Package logging contains the singleton logger that the rulegraph binary uses.
// It deliberately has little else since it's a dependency everywhere.
package logging

import (
	"gopkg.in/op/go-logging.v1"
)

// Log is the top-level logger for the binary.
var Log = logging.MustGetLogger("rulegraph")
