// Package buildinfo carries values stamped into the binaries at link time:
//
//	go build -ldflags "-X github.com/dmitrijs2005/chiplogic/internal/buildinfo.Version=1.2.0"
package buildinfo

import (
	"fmt"
	"io"
)

var (
	// Version is the application version recorded in the versions table.
	Version = "1.0.0"
	Date    = "N/A"
	Commit  = "N/A"
)

// PrintBuildData writes the build banner to w.
func PrintBuildData(w io.Writer) {
	fmt.Fprintf(w, "Build version: %s\n", Version)
	fmt.Fprintf(w, "Build date: %s\n", Date)
	fmt.Fprintf(w, "Build commit: %s\n", Commit)
}
