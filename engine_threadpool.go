//go:build valtron_mt && !js && !wasip1

package valtron

import "github.com/ewe-studios/go-valtron/core"

// New builds the engine selected at compile time. Under the valtron_mt
// build tag this is the thread-pool engine with Options.Workers workers.
func New[R, P any](opts Options) Engine[R, P] {
	return core.NewThreadPoolEngine[R, P](opts)
}
