package ecgset

import (
	"fmt"

	"github.com/hupe1980/ecgset/container"
	"github.com/hupe1980/ecgset/convert"
	"github.com/hupe1980/ecgset/generator"
	"github.com/hupe1980/ecgset/store"
)

var (
	// ErrNotFound is returned when a patient's record is not in the store.
	// It is satisfied by errors.Is against fs.ErrNotExist as well.
	ErrNotFound = store.ErrNotFound

	// ErrCorruptContainer is returned when a container file fails
	// magic/version/shape validation or is truncated.
	ErrCorruptContainer = container.ErrCorrupt
)

// DownloadError indicates an archive fetch failure.
type DownloadError = convert.DownloadError

// ConvertError is one patient's conversion failure.
type ConvertError = convert.ConvertError

// FrameConfigError is returned when the window geometry leaves no valid
// frame start positions for a record.
type FrameConfigError = generator.FrameConfigError

// UnsupportedTaskError indicates a task with no implemented generator.
type UnsupportedTaskError struct {
	Task Task
}

func (e *UnsupportedTaskError) Error() string {
	return fmt.Sprintf("unsupported task: %q", e.Task)
}
