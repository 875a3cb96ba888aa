package eventbus

// An Event is something that happened which other parts of the node may
// want to react to, such as a peer coming or going.
type Event interface {
	Name() string
	Flags() uint8
}

const (
	// EFLAG_NORMAL events run their handlers in order on the publisher's
	// goroutine, and any handler may cancel them.
	EFLAG_NORMAL = 0

	// EFLAG_UNCANCELLABLE events ignore EHANDLE_CANCEL.
	EFLAG_UNCANCELLABLE = 1 << 0

	// EFLAG_ASYNC_UNSAFE is the raw async bit. Use EFLAG_ASYNC.
	EFLAG_ASYNC_UNSAFE = 1 << 1

	// EFLAG_ASYNC events run each handler on its own goroutine. They can't
	// be cancelled since the publisher doesn't wait.
	EFLAG_ASYNC = EFLAG_ASYNC_UNSAFE | EFLAG_UNCANCELLABLE
)
