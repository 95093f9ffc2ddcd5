package ffmpeg

import (
	"strconv"
	"strings"
)

// FilterBuilder assembles a -vf chain.
type FilterBuilder struct {
	parts []string
}

func NewFilterBuilder() *FilterBuilder {
	return &FilterBuilder{}
}

// Scale resizes to width x height. libx264 refuses odd frame sizes, so odd
// values are rounded down; non-positive sizes leave the chain unchanged.
func (fb *FilterBuilder) Scale(width, height int) *FilterBuilder {
	width, height = width&^1, height&^1
	if width <= 0 || height <= 0 {
		return fb
	}
	fb.parts = append(fb.parts, "scale="+strconv.Itoa(width)+":"+strconv.Itoa(height))
	return fb
}

// Build joins the chain with commas.
func (fb *FilterBuilder) Build() string {
	return strings.Join(fb.parts, ",")
}
