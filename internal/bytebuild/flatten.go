package bytebuild

// Flattener materializes a Builder into one contiguous buffer.
// Implementations must call done exactly once, either before Flatten
// returns or later from another goroutine.
type Flattener interface {
	Flatten(b *Builder, done func([]byte))
}

// Immediate flattens synchronously on the caller's goroutine.
type Immediate struct{}

func (Immediate) Flatten(b *Builder, done func([]byte)) {
	done(b.Flatten())
}

// Deferred flattens on a new goroutine, so done always runs after
// Flatten has returned.
type Deferred struct{}

func (Deferred) Flatten(b *Builder, done func([]byte)) {
	go func() {
		done(b.Flatten())
	}()
}

// FlattenerByName maps a configuration value to a Flattener.
// Unknown names fall back to Immediate.
func FlattenerByName(name string) Flattener {
	if name == "deferred" {
		return Deferred{}
	}
	return Immediate{}
}
