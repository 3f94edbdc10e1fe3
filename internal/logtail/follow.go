package logtail

import (
	"context"
	"fmt"
	"io"
	stdlog "log"

	"github.com/hpcloud/tail"
)

// Follow calls fn for every line appended to path after the call, until ctx
// is cancelled. The file may not exist yet and may be rotated.
func Follow(ctx context.Context, path string, fn func(string)) error {
	t, err := tail.TailFile(path, tail.Config{
		Follow:    true,
		ReOpen:    true,
		MustExist: false,
		Location:  &tail.SeekInfo{Offset: 0, Whence: io.SeekEnd},
		Logger:    stdlog.New(io.Discard, "", 0),
	})
	if err != nil {
		return fmt.Errorf("tail %s: %w", path, err)
	}
	defer t.Cleanup()

	for {
		select {
		case <-ctx.Done():
			_ = t.Stop()
			return nil
		case line, ok := <-t.Lines:
			if !ok {
				return t.Err()
			}
			if line.Err != nil {
				return fmt.Errorf("tail %s: %w", path, line.Err)
			}
			fn(line.Text)
		}
	}
}
