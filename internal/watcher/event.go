package watcher

import (
	"time"
)

// Operation represents a file system operation type.
type Operation int

const (
	// OpCreate indicates a new file appeared.
	OpCreate Operation = iota
	// OpModify indicates an existing file was written.
	OpModify
	// OpDelete indicates a file was removed or renamed away.
	OpDelete
)

// String returns a human-readable representation of the operation.
func (op Operation) String() string {
	switch op {
	case OpCreate:
		return "CREATE"
	case OpModify:
		return "MODIFY"
	case OpDelete:
		return "DELETE"
	default:
		return "UNKNOWN"
	}
}

// FileEvent is a filesystem event for one file in the inbox.
type FileEvent struct {
	// Path is the absolute path of the file.
	Path string

	Operation Operation

	Timestamp time.Time
}

// Options configures an InboxWatcher.
type Options struct {
	// Debounce is how long a path must stay quiet before it is processed.
	// Default: 500ms
	Debounce time.Duration

	// Include holds doublestar globs, matched case-insensitively against the
	// path relative to the inbox.
	// Default: **/*.txt, **/*.md, **/*.markdown
	Include []string
}

// DefaultInclude are the globs for the supported document types.
var DefaultInclude = []string{"**/*.txt", "**/*.md", "**/*.markdown"}

// DefaultOptions returns the default watcher options.
func DefaultOptions() Options {
	return Options{
		Debounce: 500 * time.Millisecond,
		Include:  DefaultInclude,
	}
}

// WithDefaults returns options with defaults applied for zero values.
func (o Options) WithDefaults() Options {
	defaults := DefaultOptions()
	if o.Debounce <= 0 {
		o.Debounce = defaults.Debounce
	}
	if len(o.Include) == 0 {
		o.Include = defaults.Include
	}
	return o
}
