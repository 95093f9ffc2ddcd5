package ffmpeg

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os/exec"
	"strconv"

	"github.com/kikiluvv/clipcutter/pkg/util"
)

// ProbeVideo runs ffprobe on path and returns the container and first
// stream details.
func (e *Executor) ProbeVideo(ctx context.Context, path string) (*VideoInfo, error) {
	if path == "" {
		return nil, errors.New("probe: empty path")
	}

	args := []string{"-v", "error", "-print_format", "json", "-show_format", "-show_streams", path}

	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, e.ffprobePath, args...)
	cmd.Stderr = &stderr
	out, err := cmd.Output()
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, &ToolError{Tool: "ffprobe", Args: args, Stderr: stderr.String(), Err: err}
	}

	info, err := parseProbe(out)
	if err != nil {
		return nil, err
	}
	info.FilePath = path

	e.logger.Debug().
		Str("path", path).
		Dur("duration", info.Duration).
		Float64("fps", info.FPS).
		Int("frames", info.FrameCount).
		Msg("probed video")

	return info, nil
}

type probeStream struct {
	CodecType  string `json:"codec_type"`
	CodecName  string `json:"codec_name"`
	Width      int    `json:"width"`
	Height     int    `json:"height"`
	RFrameRate string `json:"r_frame_rate"`
	NbFrames   string `json:"nb_frames"`
	Duration   string `json:"duration"`
	BitRate    string `json:"bit_rate"`
}

type probeOutput struct {
	Format struct {
		Duration string `json:"duration"`
		BitRate  string `json:"bit_rate"`
	} `json:"format"`
	Streams []probeStream `json:"streams"`
}

func parseProbe(data []byte) (*VideoInfo, error) {
	var p probeOutput
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("failed to parse ffprobe output: %w", err)
	}

	info := &VideoInfo{
		Duration: util.Seconds(parseFloat(p.Format.Duration)),
		Bitrate:  parseInt(p.Format.BitRate),
	}

	var video, audio *probeStream
	for i := range p.Streams {
		s := &p.Streams[i]
		switch {
		case s.CodecType == "video" && video == nil:
			video = s
		case s.CodecType == "audio" && audio == nil:
			audio = s
		}
	}

	if video != nil {
		info.VideoCodec = video.CodecName
		info.Width, info.Height = video.Width, video.Height
		info.FPS = util.ParseFrameRate(video.RFrameRate)
		info.FrameCount = int(parseInt(video.NbFrames))

		// some containers only carry the duration on the stream
		if info.Duration <= 0 {
			info.Duration = util.Seconds(parseFloat(video.Duration))
		}
		if info.FrameCount <= 0 && info.FPS > 0 {
			info.FrameCount = int(math.Round(info.Duration.Seconds() * info.FPS))
		}
	}

	if audio != nil {
		info.HasAudio = true
		info.AudioCodec = audio.CodecName
		info.AudioBitrate = parseInt(audio.BitRate)
	}

	return info, nil
}

// parseFloat and parseInt treat missing or "N/A" fields as zero.
func parseFloat(s string) float64 {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || v < 0 {
		return 0
	}
	return v
}

func parseInt(s string) int64 {
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil || v < 0 {
		return 0
	}
	return v
}
