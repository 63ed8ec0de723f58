package stream

import (
	"github.com/mongowire/core/pkg/wireerr"
)

// awaitOrInterrupt blocks on ch until it delivers a result or op.Context is
// cancelled, translating cancellation into the taxonomy's Interrupted kind.
// Open and Write are built as thin latches over their asynchronous twins
// using this helper; Read inlines the same select because its result
// carries a Composite as well as an error.
func awaitOrInterrupt(op Operation, ch <-chan error) error {
	if op.Context == nil {
		return <-ch
	}
	select {
	case err := <-ch:
		return err
	case <-op.Context.Done():
		return wireerr.Interrupted(op.Context.Err())
	}
}
