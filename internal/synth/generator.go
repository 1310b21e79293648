// Package synth generates OpenFace-style per-frame recordings with a known
// per-condition effect, for demos and end-to-end tests.
package synth

import (
	"context"
	"encoding/csv"
	"fmt"
	"math"
	"math/rand/v2"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/okian/facewin/pkg/logger"
)

// Landmark indices of the p0..p5 eye contour roles and pupil pairs.
var (
	regionLeft  = [6]int{36, 40, 38, 42, 46, 44}
	regionRight = [6]int{8, 12, 10, 14, 18, 16}
	faceLeft    = [6]int{36, 37, 38, 39, 40, 41}
	faceRight   = [6]int{42, 43, 44, 45, 46, 47}
	pupilPairs  = [][2]int{{51, 55}, {23, 27}}
)

// Base signal levels for the neutral condition.
const (
	baseEAR        = 0.30
	earPerLevel    = 0.03
	basePupil      = 4.0
	pupilPerLevel  = -0.25
	eyeWidth       = 30.0
	gazeJitter     = 0.05
	gazePerLevel   = 0.04
	poseDrift      = 0.02
	lowConfidence  = 0.3
	highConfidence = 0.95
)

var subjectNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("https://github.com/okian/facewin/synth"))

// Recording is one generated table.
type Recording struct {
	Subject   string
	Condition string
	Header    []string
	Rows      [][]float64
}

// Name returns the file stem <subject>_<condition>.
func (r Recording) Name() string { return r.Subject + "_" + r.Condition }

// SubjectID returns a deterministic id of the form CHnn_XXXXXXXX.
func SubjectID(seed uint64, i int) string {
	u := uuid.NewSHA1(subjectNamespace, []byte(fmt.Sprintf("%d/%d", seed, i)))
	return fmt.Sprintf("CH%02d_%s", i+1, strings.ToUpper(strings.ReplaceAll(u.String(), "-", "")[:8]))
}

// Generate builds every recording described by cfg.
func Generate(cfg Config) []Recording {
	header := buildHeader(cfg.Layout)
	var out []Recording
	for s := 0; s < cfg.Subjects; s++ {
		id := SubjectID(cfg.Seed, s)
		for level, cond := range cfg.Conditions {
			rng := rand.New(rand.NewPCG(cfg.Seed, uint64(s*len(cfg.Conditions)+level)))
			rec := Recording{Subject: id, Condition: cond, Header: header}
			for f := 0; f < cfg.Frames; f++ {
				rec.Rows = append(rec.Rows, frame(cfg, rng, f, float64(level)*cfg.Effect))
			}
			out = append(out, rec)
		}
	}
	return out
}

func buildHeader(layout Layout) []string {
	h := []string{"frame", "face_id", "timestamp", "confidence", "success",
		"gaze_angle_x", "gaze_angle_y", "pose_Tx", "pose_Ty", "pose_Tz",
		"pose_Rx", "pose_Ry", "pose_Rz"}
	switch layout {
	case LayoutPlugin:
		h = append(h, "eye_lmk_EAR_avg", "p_scale")
	case LayoutFace2D:
		idx := append(append([]int{}, faceLeft[:]...), faceRight[:]...)
		idx = append(idx, 68, 81)
		h = append(h, landmarkColumns("", idx)...)
	default:
		idx := append(append([]int{}, regionLeft[:]...), regionRight[:]...)
		for _, p := range pupilPairs {
			idx = append(idx, p[0], p[1])
		}
		h = append(h, landmarkColumns("eye_lmk_", idx)...)
	}
	return append(h, "AU45_r")
}

func landmarkColumns(prefix string, idx []int) []string {
	var xs, ys []string
	for _, n := range idx {
		xs = append(xs, prefix+"x_"+strconv.Itoa(n))
		ys = append(ys, prefix+"y_"+strconv.Itoa(n))
	}
	return append(xs, ys...)
}

// frame produces one row. level shifts the condition-dependent signals.
func frame(cfg Config, rng *rand.Rand, i int, level float64) []float64 {
	t := float64(i) / cfg.FPS
	conf := highConfidence + rng.Float64()*0.04
	if rng.Float64() < cfg.LowConfidence {
		conf = lowConfidence
	}
	ear := math.Max(0.05, baseEAR-earPerLevel*level+rng.NormFloat64()*0.01)
	pupil := basePupil + pupilPerLevel*level + rng.NormFloat64()*0.05
	gx := rng.NormFloat64() * (gazeJitter + gazePerLevel*level)
	gy := rng.NormFloat64() * (gazeJitter + gazePerLevel*level)
	rx := poseDrift*level*math.Sin(t) + rng.NormFloat64()*0.01
	ry := poseDrift*level*math.Cos(t) + rng.NormFloat64()*0.01
	rz := rng.NormFloat64() * 0.01

	row := []float64{float64(i + 1), 0, round(t, 3), round(conf, 2), 1,
		gx, gy, 10, -5, 500, rx, ry, rz}

	switch cfg.Layout {
	case LayoutPlugin:
		row = append(row, ear, pupil)
	case LayoutFace2D:
		lx, ly := eye(200, 250, ear)
		rx2, ry2 := eye(280, 250, ear)
		row = append(row, lx...)
		row = append(row, rx2...)
		row = append(row, 215, 215+2*pupil)
		row = append(row, ly...)
		row = append(row, ry2...)
		row = append(row, 250, 250)
	default:
		lx, ly := eye(200, 250, ear)
		rx2, ry2 := eye(280, 250, ear)
		row = append(row, lx...)
		row = append(row, rx2...)
		// pupil pair x then y coordinates, one horizontal diameter per eye
		row = append(row, 200-pupil/2, 200+pupil/2, 280-pupil/2, 280+pupil/2)
		row = append(row, ly...)
		row = append(row, ry2...)
		row = append(row, 250, 250, 250, 250)
	}
	return append(row, math.Max(0, (0.3-ear)*10))
}

// eye places the six contour points so that their aspect ratio equals ear.
// Returned slices follow p0..p5 order.
func eye(cx, cy, ear float64) (xs, ys []float64) {
	w := eyeWidth
	h := ear * w
	xs = []float64{cx - w/2, cx - w/6, cx + w/6, cx + w/2, cx + w/6, cx - w/6}
	ys = []float64{cy, cy - h/2, cy - h/2, cy, cy + h/2, cy + h/2}
	return xs, ys
}

func round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}

// WriteDir writes every recording as <dir>/<subject>_<condition>.csv with
// space-padded headers, as OpenFace does.
func WriteDir(ctx context.Context, dir string, cfg Config) ([]string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	recs := Generate(cfg)
	paths := make([]string, 0, len(recs))
	for _, r := range recs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		path := filepath.Join(dir, r.Name()+".csv")
		if err := writeCSV(path, r); err != nil {
			return nil, fmt.Errorf("write %s: %w", path, err)
		}
		paths = append(paths, path)
	}
	logger.Get().Info(ctx, "generated recordings",
		logger.String("dir", dir),
		logger.Int("files", len(paths)),
		logger.Int("frames", cfg.Frames),
	)
	return paths, nil
}

func writeCSV(path string, r Recording) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	w := csv.NewWriter(f)

	header := make([]string, len(r.Header))
	for i, h := range r.Header {
		if i > 0 {
			h = " " + h
		}
		header[i] = h
	}
	_ = w.Write(header)

	cells := make([]string, len(r.Header))
	for _, row := range r.Rows {
		for i, v := range row {
			cells[i] = strconv.FormatFloat(v, 'f', -1, 64)
		}
		_ = w.Write(cells)
	}
	w.Flush()
	if err := w.Error(); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
