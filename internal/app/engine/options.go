package engine

// Options represents configuration options for the Engine.
type Options struct {
	// QueueDepth bounds the number of operations waiting behind the
	// single worker.
	QueueDepth int
	// EventBufferDepth bounds the outbound event channel; events beyond
	// it are dropped (delivery is best effort).
	EventBufferDepth int
}

// DefaultEngineOptions returns the default engine options.
func DefaultEngineOptions() *Options {
	return &Options{
		QueueDepth:       256,
		EventBufferDepth: 1024,
	}
}
