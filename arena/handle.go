// Package arena implements the Light-Curve Arena: a per-worker two-level
// namespace (directory -> filename -> product) with a memory back-end for
// transient intermediate products and a persistent archive back-end that
// serializes products to a data file plus a key=value metadata side-car.
package arena

import "fmt"

// Source identifies which arena back-end an artifact handle resolves
// against.
type Source string

const (
	SourceMemory  Source = "memory"
	SourceArchive Source = "archive"
)

// Handle names one artifact within the arena's directory -> filename
// namespace, per spec's artifact handle contract.
type Handle struct {
	Source    Source `json:"source"`
	Directory string `json:"directory"`
	Filename  string `json:"filename"`
}

func (h Handle) key() string {
	return h.Directory + "/" + h.Filename
}

func (h Handle) validate() error {
	if h.Source != SourceMemory && h.Source != SourceArchive {
		return fmt.Errorf("arena: unknown handle source %q", h.Source)
	}
	if h.Filename == "" {
		return fmt.Errorf("arena: handle filename must not be empty")
	}
	return nil
}
