package main

import (
	"context"
	"errors"
	"fmt"
	"image/color"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/Noofbiz/vltrack/loader"
)

var (
	plotKind  string
	plotOut   string
	plotLimit int
	plotBins  int
)

var plotCmd = &cobra.Command{
	Use:   "plot",
	Short: "Plot bbox centers and caption lengths of one dataset",
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := buildPipeline(cfg, []string{plotKind}, logger, nil)
		if err != nil {
			return err
		}
		centers, lengths, err := collectStats(cmd.Context(), p.loaders[0], plotLimit)
		if err != nil {
			return err
		}
		logger.Info("collected dataset stats",
			zap.String("kind", plotKind),
			zap.Int("boxes", len(centers)),
			zap.Int("captions", len(lengths)),
		)

		if err := os.MkdirAll(plotOut, 0o755); err != nil {
			return err
		}
		centersPath := filepath.Join(plotOut, plotKind+"_bbox_centers.png")
		if err := plotCenters(centersPath, centers); err != nil {
			return fmt.Errorf("plot bbox centers: %w", err)
		}
		lengthsPath := filepath.Join(plotOut, plotKind+"_caption_lengths.png")
		if err := plotLengths(lengthsPath, lengths, plotBins); err != nil {
			return fmt.Errorf("plot caption lengths: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\nwrote %s\n", centersPath, lengthsPath)
		return nil
	},
}

// collectStats reads up to limit batches (0 = all) and returns the normalized
// bbox centers and caption word counts seen.
func collectStats(ctx context.Context, l *loader.Loader, limit int) (plotter.XYs, plotter.Values, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	var (
		centers plotter.XYs
		lengths plotter.Values
	)
	it := l.Iterate(ctx)
	defer it.Close()
	for n := 0; limit <= 0 || n < limit; n++ {
		b, err := it.Next(ctx)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, nil, err
		}
		for i := range b.Size() {
			lengths = append(lengths, float64(len(strings.Fields(b.Captions[i]))))
			if !b.HasBBox[i] {
				continue
			}
			box := b.Boxes[i]
			centers = append(centers, plotter.XY{
				X: float64(box[0] + box[2]/2),
				Y: float64(box[1] + box[3]/2),
			})
		}
	}
	return centers, lengths, nil
}

func plotCenters(path string, centers plotter.XYs) error {
	p := plot.New()
	p.Title.Text = "Normalized bbox centers"
	p.X.Label.Text = "x"
	p.Y.Label.Text = "y"
	p.X.Min, p.X.Max = 0, 1
	p.Y.Min, p.Y.Max = 0, 1

	p.Add(plotter.NewGrid())
	if len(centers) > 0 {
		s, err := plotter.NewScatter(centers)
		if err != nil {
			return err
		}
		s.GlyphStyle.Color = color.RGBA{R: 20, G: 80, B: 200, A: 180}
		s.GlyphStyle.Radius = vg.Points(1.8)
		p.Add(s)
	}
	return p.Save(6*vg.Inch, 6*vg.Inch, path)
}

func plotLengths(path string, lengths plotter.Values, bins int) error {
	p := plot.New()
	p.Title.Text = "Caption length (words)"
	p.X.Label.Text = "words"
	p.Y.Label.Text = "count"

	if len(lengths) > 0 {
		h, err := plotter.NewHist(lengths, max(bins, 1))
		if err != nil {
			return err
		}
		h.FillColor = color.RGBA{R: 120, G: 120, B: 120, A: 200}
		p.Add(h)
	}
	return p.Save(6*vg.Inch, 4*vg.Inch, path)
}

func init() {
	plotCmd.Flags().StringVar(&plotKind, "kind", "tracking", "dataset kind to plot")
	plotCmd.Flags().StringVarP(&plotOut, "out", "o", "out", "output directory for PNG files")
	plotCmd.Flags().IntVar(&plotLimit, "limit", 0, "maximum number of batches to read (0 = all)")
	plotCmd.Flags().IntVar(&plotBins, "bins", 20, "caption length histogram bins")
	rootCmd.AddCommand(plotCmd)
}
