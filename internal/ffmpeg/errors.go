package ffmpeg

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrExternalTool marks a non-zero exit from ffmpeg or ffprobe.
	ErrExternalTool = errors.New("ffmpeg: external tool failed")
	// ErrNotFound marks a binary that could not be resolved.
	ErrNotFound = errors.New("ffmpeg: binary not found")
)

// DependencyError reports a missing ffmpeg or ffprobe binary.
type DependencyError struct {
	Binary string
	Err    error
}

func (e *DependencyError) Error() string {
	return fmt.Sprintf("%s not found (install ffmpeg or set ffmpeg.binary_path): %v", e.Binary, e.Err)
}

func (e *DependencyError) Unwrap() []error { return []error{ErrNotFound, e.Err} }

// ToolError carries the captured stderr of a failed run.
type ToolError struct {
	Tool   string
	Args   []string
	Stderr string
	Err    error
}

func (e *ToolError) Error() string {
	msg := fmt.Sprintf("%s failed: %v", e.Tool, e.Err)
	if s := strings.TrimSpace(e.Stderr); s != "" {
		msg += "\n" + s
	}
	return msg
}

func (e *ToolError) Unwrap() []error { return []error{ErrExternalTool, e.Err} }
