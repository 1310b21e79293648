// Command synth-recordings writes a synthetic OpenFace-style dataset for
// trying the pipeline end to end.
package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/okian/facewin/internal/synth"
	"github.com/okian/facewin/pkg/logger"
	"github.com/spf13/cobra"
)

func main() {
	if err := newCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

func newCommand() *cobra.Command {
	cfg := synth.DefaultConfig()
	var (
		conditions string
		layout     string
	)

	cmd := &cobra.Command{
		Use:           "synth-recordings [output_dir]",
		Short:         "Generate synthetic per-frame facial telemetry recordings",
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := "recordings"
			if len(args) == 1 {
				dir = args[0]
			}
			if err := logger.Init(logger.WithWriter(cmd.ErrOrStderr())); err != nil {
				return err
			}

			cfg.Conditions = strings.Split(conditions, ",")
			switch l := synth.Layout(layout); l {
			case synth.LayoutEyeRegion, synth.LayoutFace2D, synth.LayoutPlugin:
				cfg.Layout = l
			default:
				return fmt.Errorf("unknown layout %q", layout)
			}

			paths, err := synth.WriteDir(context.Background(), dir, cfg)
			if err != nil {
				fmt.Fprintln(cmd.ErrOrStderr(), "error:", err)
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %d recordings to %s\n", len(paths), dir)
			return nil
		},
	}

	f := cmd.Flags()
	f.IntVar(&cfg.Subjects, "subjects", cfg.Subjects, "number of subjects")
	f.IntVar(&cfg.Frames, "frames", cfg.Frames, "frames per recording")
	f.StringVar(&conditions, "conditions", strings.Join(cfg.Conditions, ","), "comma separated condition tokens")
	f.Float64Var(&cfg.FPS, "fps", cfg.FPS, "frame rate")
	f.Uint64Var(&cfg.Seed, "seed", cfg.Seed, "random seed")
	f.Float64Var(&cfg.LowConfidence, "low-confidence", cfg.LowConfidence, "fraction of low-confidence frames")
	f.Float64Var(&cfg.Effect, "effect", cfg.Effect, "strength of the per-condition effect")
	f.StringVar(&layout, "layout", string(cfg.Layout), "eye columns: eye_lmk, face_2d or plugin")
	return cmd
}
