package pmtiles

import (
	"io"

	"github.com/schollz/progressbar/v3"
)

// Progress is an active progress tracker that Finalize writes bytes
// through and increments as entries are processed.
type Progress interface {
	io.Writer
	Add(num int)
	Close() error
}

// ProgressWriter builds the two Progress trackers Finalize reports
// against: one for the entry sort pass, one for the tile-data copy.
type ProgressWriter interface {
	NewCountProgress(total int64, description string) Progress
	NewBytesProgress(total int64, description string) Progress
}

// WithProgress attaches a ProgressWriter that Finalize reports its sort
// and tile-data passes against. Without this option Finalize tracks no
// progress.
func WithProgress(pw ProgressWriter) WriterOption {
	return func(w *Writer) { w.progress = pw }
}

// NewBarProgressWriter returns a ProgressWriter that renders bars to
// stderr via schollz/progressbar, suitable for CLI use.
func NewBarProgressWriter() ProgressWriter {
	return barProgressWriter{}
}

type barProgressWriter struct{}

func (barProgressWriter) NewCountProgress(total int64, description string) Progress {
	return progressBarWrapper{bar: progressbar.Default(total, description)}
}

func (barProgressWriter) NewBytesProgress(total int64, description string) Progress {
	return progressBarWrapper{bar: progressbar.DefaultBytes(total, description)}
}

// progressBarWrapper adapts schollz/progressbar's Add(int) error to
// Progress's Add(int); Finalize has no use for a render error mid-copy.
type progressBarWrapper struct {
	bar *progressbar.ProgressBar
}

func (p progressBarWrapper) Write(data []byte) (int, error) { return p.bar.Write(data) }
func (p progressBarWrapper) Add(num int)                    { p.bar.Add(num) }
func (p progressBarWrapper) Close() error                   { return p.bar.Close() }

type noopProgress struct{}

func (noopProgress) Write(data []byte) (int, error) { return len(data), nil }
func (noopProgress) Add(int)                        {}
func (noopProgress) Close() error                   { return nil }

func (w *Writer) newCountProgress(total int64, description string) Progress {
	if w.progress == nil {
		return noopProgress{}
	}
	return w.progress.NewCountProgress(total, description)
}

func (w *Writer) newBytesProgress(total int64, description string) Progress {
	if w.progress == nil {
		return noopProgress{}
	}
	return w.progress.NewBytesProgress(total, description)
}
