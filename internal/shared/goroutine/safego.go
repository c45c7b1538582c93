// Package goroutine launches background goroutines that log instead of crashing on panic.
package goroutine

import (
	"fmt"
	"runtime/debug"

	"github.com/servora/servora/internal/shared/logger"
)

// SafeGo runs fn in a new goroutine. A panic in fn is logged with its stack
// and swallowed; onPanic, when set, runs after the log entry.
func SafeGo(log logger.Interface, name string, fn func(), onPanic ...func(recovered any)) {
	go func() {
		defer func() {
			if r := recover(); r != nil {
				log.Errorw("goroutine panicked",
					"goroutine", name,
					"panic", fmt.Sprintf("%v", r),
					"stack", string(debug.Stack()),
				)
				for _, hook := range onPanic {
					hook(r)
				}
			}
		}()
		fn()
	}()
}
