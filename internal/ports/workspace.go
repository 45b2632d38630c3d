package ports

import "context"

// WatcherPort calls onChange after registry documents under root change.
// It blocks until ctx is done.
type WatcherPort interface {
	Watch(ctx context.Context, root string, onChange func(context.Context)) error
}
