//go:build !valtron_mt || js || wasip1

package valtron

import "github.com/ewe-studios/go-valtron/core"

// New builds the engine selected at compile time. Without the valtron_mt
// build tag, and always on js and wasip1, this is the single-threaded
// engine; broadcasts degrade to ordinary scheduling.
func New[R, P any](opts Options) Engine[R, P] {
	return core.NewSingleThreadEngine[R, P](opts)
}
