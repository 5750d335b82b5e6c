package main

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"gocv.io/x/gocv"

	"microseg/internal/logger"
	"microseg/internal/models"
	"microseg/internal/opencv/safe"
	"microseg/internal/pipeline"
	"microseg/internal/pipeline/layers"
	"microseg/internal/results"
)

type options struct {
	configPath  string
	output      string
	workers     int
	verbose     bool
	xyPixelSize float64
	zSpacing    float64
	micron      bool
}

func newRootCommand() *cobra.Command {
	opts := &options{}

	root := &cobra.Command{
		Use:           "microseg",
		Short:         "Segment microscopy images through a configurable pipeline",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "pipeline.toml", "pipeline configuration file")
	root.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "enable debug logging")

	root.AddCommand(newRunCommand(opts))
	root.AddCommand(newBatchCommand(opts))
	root.AddCommand(newGraphCommand(opts))

	return root
}

func (o *options) logger() logger.Logger {
	level := zerolog.InfoLevel
	if o.verbose {
		level = zerolog.DebugLevel
	}
	return logger.NewConsoleLogger(level)
}

func (o *options) loadSpec() (*pipeline.Spec, error) {
	registry := pipeline.NewRegistry()
	if err := layers.RegisterBuiltins(registry); err != nil {
		return nil, err
	}
	return pipeline.LoadSpec(o.configPath, registry)
}

func newRunCommand(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run <image>",
		Short: "Run the pipeline on a single image",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			spec, err := opts.loadSpec()
			if err != nil {
				return err
			}

			input, err := readGrayscale(args[0])
			if err != nil {
				return err
			}
			defer input.Close()

			graph := pipeline.NewGraph(spec, opts.logger())
			buffer, err := graph.Run(cmd.Context(), input)
			if err != nil {
				return err
			}
			defer buffer.Close()

			return writeArtifact(buffer.Last(), opts)
		},
	}

	cmd.Flags().StringVarP(&opts.output, "output", "o", "result.png", "output file (PNG for rasters, CSV for points)")
	cmd.Flags().Float64Var(&opts.xyPixelSize, "xy-pixel-size", 1.0, "XY pixel size for point rescaling")
	cmd.Flags().Float64Var(&opts.zSpacing, "z-spacing", 1.0, "Z slice spacing for point rescaling")
	cmd.Flags().BoolVar(&opts.micron, "micron", false, "emit point coordinates in physical units")

	return cmd
}

func newBatchCommand(opts *options) *cobra.Command {
	var outputDir string

	cmd := &cobra.Command{
		Use:   "batch <image>...",
		Short: "Run the pipeline concurrently over several images",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			spec, err := opts.loadSpec()
			if err != nil {
				return err
			}

			inputs := make([]*safe.Mat, 0, len(args))
			defer func() {
				for _, m := range inputs {
					m.Close()
				}
			}()

			for _, path := range args {
				m, err := readGrayscale(path)
				if err != nil {
					return err
				}
				inputs = append(inputs, m)
			}

			runner := pipeline.NewBatchRunner(spec, opts.logger(), opts.workers)
			buffers, err := runner.Run(cmd.Context(), inputs)
			if err != nil {
				return err
			}

			return writeBuffers(buffers, args, outputDir, opts)
		},
	}

	cmd.Flags().IntVarP(&opts.workers, "workers", "w", 4, "concurrent pipeline runs")
	cmd.Flags().StringVarP(&outputDir, "output-dir", "o", ".", "directory for segmentation outputs")

	return cmd
}

func newGraphCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "graph",
		Short: "Write the pipeline dependency graph as DOT",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			spec, err := opts.loadSpec()
			if err != nil {
				return err
			}
			return pipeline.DrawDOT(spec, cmd.OutOrStdout())
		},
	}
}

// writeBuffers exports one segmentation result per batch input, deriving each
// output name from its input name. Every buffer is closed before returning,
// including the ones after a failed write.
func writeBuffers(buffers []*pipeline.Buffer, names []string, outputDir string, opts *options) error {
	for i, buffer := range buffers {
		base := filepath.Base(names[i])
		ext := filepath.Ext(base)
		out := *opts
		out.output = filepath.Join(outputDir, base[:len(base)-len(ext)]+"_seg.png")

		err := writeArtifact(buffer.Last(), &out)
		buffer.Close()
		if err != nil {
			for _, rest := range buffers[i+1:] {
				rest.Close()
			}
			return err
		}
	}

	return nil
}

func readGrayscale(path string) (*safe.Mat, error) {
	mat := gocv.IMRead(path, gocv.IMReadGrayScale)
	if mat.Empty() {
		mat.Close()
		return nil, fmt.Errorf("failed to read image: %s", path)
	}
	return safe.Adopt(mat)
}

func writeArtifact(artifact models.Artifact, opts *options) error {
	switch artifact.Kind {
	case models.KindRaster, models.KindMask:
		if ok := gocv.IMWrite(opts.output, artifact.Mat.GetMat()); !ok {
			return fmt.Errorf("failed to write image: %s", opts.output)
		}
		return nil
	case models.KindPoints:
		return writePointsCSV(artifact.Points, opts)
	default:
		return fmt.Errorf("cannot export artifact of kind %s", artifact.Kind)
	}
}

func writePointsCSV(points []models.Point, opts *options) error {
	coords := make([]models.Point3, len(points))
	for i, p := range points {
		coords[i] = models.Point3{X: p.X, Y: p.Y}
	}

	scaled, err := results.RescalePoints(coords, opts.xyPixelSize, opts.zSpacing, !opts.micron)
	if err != nil {
		return err
	}

	path := opts.output
	if filepath.Ext(path) != ".csv" {
		path = path[:len(path)-len(filepath.Ext(path))] + ".csv"
	}

	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	if err := writer.Write([]string{"x", "y", "z"}); err != nil {
		return err
	}
	for _, p := range scaled {
		record := []string{
			strconv.FormatFloat(p.X, 'f', -1, 64),
			strconv.FormatFloat(p.Y, 'f', -1, 64),
			strconv.FormatFloat(p.Z, 'f', -1, 64),
		}
		if err := writer.Write(record); err != nil {
			return err
		}
	}

	return nil
}
