package plot

import (
	"fmt"
	"os"
	"path/filepath"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgimg"

	"github.com/wonny/lossmodel/internal/risk"
)

// Output file names
const (
	HistFile = "aggregate_loss_hist.png"
	TailFile = "aggregate_loss_tail.png"
)

const (
	histBins      = 60
	tailBins      = 40
	tailThreshold = 0.95
	dpi           = 200
)

var (
	width  = 8 * vg.Inch
	height = 5 * vg.Inch
)

// Paths 생성된 차트 경로
type Paths struct {
	Histogram string `json:"histogram"`
	Tail      string `json:"tail"`
}

// Histograms 전체 분포 + 95% 이상 꼬리 분포 PNG 생성
//
// outdir는 없으면 생성한다. 빈 표본은 risk.ErrInvalidInput.
func Histograms(losses []float64, outdir string) (Paths, error) {
	if len(losses) == 0 {
		return Paths{}, fmt.Errorf("%w: no losses to plot", risk.ErrInvalidInput)
	}

	if err := os.MkdirAll(outdir, 0o755); err != nil {
		return Paths{}, fmt.Errorf("create plot dir: %w", err)
	}

	paths := Paths{
		Histogram: filepath.Join(outdir, HistFile),
		Tail:      filepath.Join(outdir, TailFile),
	}

	err := saveHistogram(paths.Histogram, losses, histBins,
		"Simulated Aggregate Annual Loss", "Aggregate Loss")
	if err != nil {
		return Paths{}, err
	}

	p95, err := risk.Quantile(losses, tailThreshold)
	if err != nil {
		return Paths{}, err
	}

	tail := make([]float64, 0, len(losses)/20+1)
	for _, v := range losses {
		if v >= p95 {
			tail = append(tail, v)
		}
	}

	err = saveHistogram(paths.Tail, tail, tailBins,
		"Tail of Aggregate Loss Distribution (>= 95th pct)", "Aggregate Loss (Tail)")
	if err != nil {
		return Paths{}, err
	}

	return paths, nil
}

func saveHistogram(path string, values []float64, bins int, title, xLabel string) error {
	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = xLabel
	p.Y.Label.Text = "Count"

	h, err := plotter.NewHist(plotter.Values(values), bins)
	if err != nil {
		return fmt.Errorf("build histogram %s: %w", filepath.Base(path), err)
	}
	p.Add(h)

	canvas := vgimg.NewWith(vgimg.UseWH(width, height), vgimg.UseDPI(dpi))
	p.Draw(draw.New(canvas))

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()

	if _, err := (vgimg.PngCanvas{Canvas: canvas}).WriteTo(f); err != nil {
		return fmt.Errorf("encode %s: %w", path, err)
	}

	return f.Close()
}
