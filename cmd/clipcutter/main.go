package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/kikiluvv/clipcutter/internal/clips"
	"github.com/kikiluvv/clipcutter/internal/config"
	"github.com/kikiluvv/clipcutter/internal/ffmpeg"
	"github.com/kikiluvv/clipcutter/internal/gui"
	"github.com/kikiluvv/clipcutter/internal/logging"
	"github.com/kikiluvv/clipcutter/internal/pipeline"
	"github.com/kikiluvv/clipcutter/internal/session"
	"github.com/kikiluvv/clipcutter/internal/video/opencv"
	"github.com/kikiluvv/clipcutter/pkg/util"
)

var (
	cfgFile string
	verbose bool

	exportOutDir string
	exportFinal  string
	exportRanges []string

	initForce bool
)

func main() {
	ctx := context.Background()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "clipcutter",
	Short: "clipcutter - pick three clips from a video and stitch them together",
	Long:  "A desktop clip selector with a dual-handle timeline, live preview and an ffmpeg export pipeline.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Initialize logging
		logging.Init(verbose)

		// config init writes the file, so it must not fail on a broken one
		if cmd == configInitCmd {
			return nil
		}

		// Load config
		cfg, err := config.Load(cfgFile)
		if err != nil {
			return err
		}

		// Store config in context
		ctx := config.WithConfig(cmd.Context(), cfg)
		cmd.SetContext(ctx)

		return nil
	},
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")

	exportCmd.Flags().StringVar(&exportOutDir, "out-dir", "", "directory for the extracted clips (default from config)")
	exportCmd.Flags().StringVar(&exportFinal, "final", "", "path of the joined video (default <out-dir>/final_video.mp4)")
	exportCmd.Flags().StringArrayVar(&exportRanges, "range", nil, "clip as offset:duration, e.g. 1:00:20 or 60:20 (repeatable)")

	configInitCmd.Flags().BoolVar(&initForce, "force", false, "overwrite an existing file")

	rootCmd.AddCommand(guiCmd)
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(probeCmd)
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configInitCmd)
}

var guiCmd = &cobra.Command{
	Use:   "gui [video]",
	Short: "Open the clip editor",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.FromContext(cmd.Context())

		opts := gui.Options{
			Config:   cfg,
			Logger:   log.Logger,
			Decoder:  opencv.Decoder{},
			Exporter: newExporter(cfg),
		}
		if len(args) == 1 {
			opts.Initial = args[0]
		}

		return gui.Run(opts)
	},
}

var exportCmd = &cobra.Command{
	Use:   "export [input video]",
	Short: "Cut clips from a video and join them without the editor",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.FromContext(cmd.Context())
		logger := logging.WithComponent("cli")

		exec, err := ffmpeg.New(log.Logger, cfg.FFmpeg)
		if err != nil {
			return err
		}

		ranges := pipeline.DefaultRanges()
		if len(exportRanges) > 0 {
			if ranges, err = parseRanges(exportRanges); err != nil {
				return err
			}
		}

		outDir := exportOutDir
		if outDir == "" {
			outDir = cfg.Export.OutputDir
		}

		pipe := pipeline.New(log.Logger, exec, cfg.Export)
		res, err := pipe.Export(cmd.Context(), pipeline.Request{
			Input:     args[0],
			OutputDir: outDir,
			FinalPath: exportFinal,
			Ranges:    ranges,
			Progress: func(s pipeline.Step) {
				logger.Info().Str("step", s.Name).Msgf("%d/%d", s.Done, s.Total)
			},
		})
		if err != nil {
			var toolErr *ffmpeg.ToolError
			if errors.As(err, &toolErr) {
				logger.Error().Str("tool", toolErr.Tool).Msg(toolErr.Stderr)
			}
			return err
		}

		logger.Info().
			Str("job", res.JobID).
			Str("final", res.Final).
			Int("clips", len(res.Clips)).
			Dur("elapsed", res.Elapsed).
			Msg("export complete")

		return nil
	},
}

var probeCmd = &cobra.Command{
	Use:   "probe [video]",
	Short: "Print video metadata",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.FromContext(cmd.Context())

		if !util.HasExtension(args[0], cfg.UI.Extensions) {
			return fmt.Errorf("%w: %s", session.ErrInvalidInputFile, args[0])
		}

		exec, err := ffmpeg.New(log.Logger, cfg.FFmpeg)
		if err != nil {
			return err
		}

		info, err := exec.ProbeVideo(cmd.Context(), args[0])
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "file:       %s\n", info.FilePath)
		fmt.Fprintf(out, "duration:   %s (%s)\n", util.FormatClock(info.Duration.Seconds()), info.Duration)
		fmt.Fprintf(out, "video:      %s %dx%d @ %.3f fps\n", info.VideoCodec, info.Width, info.Height, info.FPS)
		if info.FrameCount > 0 {
			fmt.Fprintf(out, "frames:     %d\n", info.FrameCount)
		}
		if info.HasAudio {
			fmt.Fprintf(out, "audio:      %s %d b/s\n", info.AudioCodec, info.AudioBitrate)
		}
		return nil
	},
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Config management commands",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.FromContext(cmd.Context())

		enc := yaml.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent(2)
		defer enc.Close()
		return enc.Encode(cfg)
	},
}

var configInitCmd = &cobra.Command{
	Use:   "init [path]",
	Short: "Write the default configuration to a file",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := "config.yaml"
		if len(args) == 1 {
			path = args[0]
		}

		if util.FileExists(path) && !initForce {
			return fmt.Errorf("%s already exists (use --force to overwrite)", path)
		}
		if err := config.Default().Save(path); err != nil {
			return err
		}

		logging.WithComponent("cli").Info().Str("path", path).Msg("wrote default config")
		return nil
	},
}

// newExporter returns nil when ffmpeg is missing so the editor still opens.
func newExporter(cfg *config.Config) session.Exporter {
	exec, err := ffmpeg.New(log.Logger, cfg.FFmpeg)
	if err != nil {
		logging.WithComponent("cli").Warn().Err(err).Msg("export disabled")
		return nil
	}
	return pipeline.New(log.Logger, exec, cfg.Export)
}

// parseRanges reads offset:duration pairs. The offset may itself be a
// timestamp, so the duration is the part after the last colon.
func parseRanges(values []string) ([]clips.Range, error) {
	ranges := make([]clips.Range, 0, len(values))
	for i, raw := range values {
		cut := strings.LastIndex(raw, ":")
		if cut <= 0 || cut == len(raw)-1 {
			return nil, fmt.Errorf("invalid range %q: expected offset:duration", raw)
		}

		offset, err := util.ParseTimestamp(raw[:cut])
		if err != nil {
			return nil, fmt.Errorf("invalid range %q: %w", raw, err)
		}
		duration, err := util.ParseTimestamp(raw[cut+1:])
		if err != nil || duration <= 0 {
			return nil, fmt.Errorf("invalid range %q: duration must be positive", raw)
		}

		ranges = append(ranges, clips.Range{
			Name:     fmt.Sprintf("clip%d", i+1),
			Offset:   offset,
			Duration: duration,
		})
	}
	return ranges, nil
}
