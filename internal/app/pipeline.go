// Package app wires the derive, aggregate, normalize, window and selection
// stages into one batch run over a directory of recordings.
package app

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/okian/facewin/internal/adapters/mq/queue"
	"github.com/okian/facewin/internal/adapters/mq/worker"
	"github.com/okian/facewin/internal/adapters/parquetsink"
	"github.com/okian/facewin/internal/adapters/tabular"
	"github.com/okian/facewin/internal/adapters/tensorio"
	"github.com/okian/facewin/internal/config"
	"github.com/okian/facewin/internal/domain/aggregate"
	"github.com/okian/facewin/internal/domain/dedupe"
	"github.com/okian/facewin/internal/domain/derive"
	"github.com/okian/facewin/internal/domain/model"
	"github.com/okian/facewin/internal/domain/normalize"
	"github.com/okian/facewin/internal/domain/selection"
	"github.com/okian/facewin/internal/domain/types"
	"github.com/okian/facewin/internal/domain/window"
	"github.com/okian/facewin/pkg/logger"
	"github.com/okian/facewin/pkg/metrics"
)

// Stage names used for timing.
const (
	stageDiscover  = "discover"
	stageDerive    = "derive"
	stageNormalize = "normalize"
	stageWindow    = "window"
	stageSelect    = "select"
	stageWrite     = "write"
)

const inputExt = ".csv"

// Pipeline runs the full transform for one configuration.
type Pipeline struct {
	cfg        *config.Config
	deriver    *derive.Deriver
	normalizer *normalize.Normalizer
	windower   *window.Windower
	selector   *selection.Selector // nil when selection is off

	logger  logger.Logger
	metrics *metrics.Manager
}

// New validates cfg and builds every stage.
func New(cfg *config.Config, opts ...Option) (*Pipeline, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	p := &Pipeline{cfg: cfg}

	// Apply all options
	for _, opt := range opts {
		opt(p)
	}
	if p.logger == nil {
		p.logger = logger.Get().Named("pipeline")
	}
	if p.metrics == nil {
		p.metrics = metrics.NewManager(metrics.WithCustomLabels(map[string]string{"profile": cfg.Profile}))
	}

	var err error
	p.deriver, err = derive.NewDeriver(
		derive.WithChannels(cfg.Channels...),
		derive.WithConfidenceThreshold(cfg.ConfidenceThreshold),
		derive.WithPoseAxes(cfg.PoseAxes...),
	)
	if err != nil {
		return nil, err
	}

	p.normalizer = normalize.New(
		normalize.WithBaselineCondition(cfg.BaselineCondition),
		normalize.WithPerRecordingStandardize(cfg.Prestandardize),
	)

	p.windower, err = window.New(
		window.WithSize(cfg.WindowSize),
		window.WithStride(cfg.EffectiveStride()),
		window.WithReduction(types.Reduction(cfg.Reduction)),
		window.WithLabels(cfg.Labels()),
	)
	if err != nil {
		return nil, err
	}

	if cfg.Selection {
		p.selector, err = selection.New(
			selection.WithAlpha(cfg.SelectionAlpha),
			selection.WithBaselineCondition(cfg.BaselineCondition),
		)
		if err != nil {
			return nil, err
		}
	}
	return p, nil
}

// Metrics returns the manager this pipeline records into.
func (p *Pipeline) Metrics() *metrics.Manager { return p.metrics }

// Run processes every recording in inputDir and writes the dataset to
// outputDir. Per-item failures are logged and listed in the manifest; only
// ErrNoInputFiles and ErrEmptyDataset, or an I/O failure on the output,
// abort the run.
func (p *Pipeline) Run(ctx context.Context, inputDir, outputDir string) (*Manifest, error) {
	m := &Manifest{Profile: p.cfg.Profile, Config: p.cfg}

	start := time.Now()
	paths, err := discover(inputDir)
	if err != nil {
		return nil, err
	}
	if m.Inputs, err = digest(paths); err != nil {
		return nil, err
	}
	if m.RunID, err = runID(p.cfg, m.Inputs); err != nil {
		return nil, err
	}
	p.metrics.Since(stageDiscover, start)
	p.logger.Info(ctx, "run started",
		logger.String("run_id", m.RunID),
		logger.String("profile", m.Profile),
		logger.Int("files", len(paths)),
	)

	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}

	start = time.Now()
	recordings, err := p.derive(ctx, paths, m)
	if err != nil {
		return nil, err
	}
	coll, diags := aggregate.Fold(recordings)
	for _, d := range diags {
		p.exclude(ctx, m, ScopeFile, d.Source, d.Err)
	}
	p.metrics.Since(stageDerive, start)

	if p.cfg.WriteIntermediates {
		if err := p.writeDerived(outputDir, coll); err != nil {
			return nil, err
		}
	}

	start = time.Now()
	subjects := p.normalize(ctx, coll, m)
	p.metrics.Since(stageNormalize, start)

	if p.cfg.WriteIntermediates {
		if err := p.writeFrames(filepath.Join(outputDir, FramesFile), subjects); err != nil {
			return nil, err
		}
	}

	start = time.Now()
	blocks := p.window(ctx, subjects, m)
	p.metrics.Since(stageWindow, start)
	if len(blocks) == 0 {
		return m, fmt.Errorf("%w: %d files, %d exclusions", ErrEmptyDataset, len(paths), len(m.Excluded))
	}

	schema := coll.Schema()
	m.Channels = append([]string(nil), schema...)
	if p.selector != nil {
		start = time.Now()
		blocks, schema = p.selectChannels(ctx, schema, blocks, m)
		p.metrics.Since(stageSelect, start)
	}
	m.Features = p.windower.FeatureNames(schema)
	p.metrics.SetChannelsKept(schema.Width())

	start = time.Now()
	if err := p.writeBlocks(outputDir, blocks, subjects, m); err != nil {
		return nil, err
	}
	if err := WriteManifest(filepath.Join(outputDir, ManifestFile), m); err != nil {
		return nil, err
	}
	p.metrics.Since(stageWrite, start)

	if err := p.metrics.WriteTextfile(filepath.Join(outputDir, MetricsFile)); err != nil {
		p.logger.Warn(ctx, "metrics not written", logger.Error(err))
	}

	p.logger.Info(ctx, "run finished",
		logger.String("run_id", m.RunID),
		logger.Int("groups", len(m.Groups)),
		logger.Int("excluded", len(m.Excluded)),
		logger.Strings("features", m.Features),
	)
	return m, nil
}

// discover lists the input tables in name order.
func discover(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrNoInputFiles, dir, err)
	}
	var paths []string
	for _, e := range entries {
		if e.IsDir() || !strings.EqualFold(filepath.Ext(e.Name()), inputExt) {
			continue
		}
		paths = append(paths, filepath.Join(dir, e.Name()))
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("%w: no *%s files in %s", ErrNoInputFiles, inputExt, dir)
	}
	sort.Strings(paths)
	return paths, nil
}

func digest(paths []string) ([]Input, error) {
	out := make([]Input, len(paths))
	for i, path := range paths {
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		h := sha256.New()
		_, err = io.Copy(h, f)
		f.Close()
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", path, err)
		}
		out[i] = Input{Name: filepath.Base(path), SHA256: hex.EncodeToString(h.Sum(nil))}
	}
	return out, nil
}

// derive identifies every file and derives the accepted ones on the worker
// pool. A file whose content repeats an earlier file is skipped. Results
// come back in file order.
func (p *Pipeline) derive(ctx context.Context, paths []string, m *Manifest) ([]model.Recording, error) {
	labels := p.cfg.Labels()
	seen := dedupe.NewInMemoryDeduper(dedupe.WithExpectedSize(len(paths)))
	var jobs []queue.Job
	for i, path := range paths {
		name := filepath.Base(path)
		if first, dup := seen.SeenAndRecord(ctx, m.Inputs[i].SHA256, name); dup {
			p.exclude(ctx, m, ScopeFile, name, fmt.Errorf("%w: same content as %s", ErrDuplicateContent, first))
			continue
		}
		key, err := aggregate.Identify(name, labels)
		if err != nil {
			p.exclude(ctx, m, ScopeFile, name, err)
			continue
		}
		jobs = append(jobs, queue.Job{Seq: len(jobs), Path: path, Key: key})
	}

	results, err := worker.Run(ctx, p.cfg.Workers, jobs, deriveProcessor{deriver: p.deriver}, p.metrics)
	if err != nil {
		return nil, err
	}

	m.Frames.Fallbacks = map[string]int{}
	m.Frames.Sentinels = map[string]int{}
	recordings := make([]model.Recording, 0, len(results))
	for _, res := range results {
		name := filepath.Base(res.Job.Path)
		if res.Err != nil {
			p.exclude(ctx, m, ScopeFile, name, res.Err)
			continue
		}
		p.metrics.RecordFile(metrics.FileAccepted)
		p.account(res.Report, &m.Frames)
		p.logger.Debug(ctx, "derived",
			logger.String("file", name),
			logger.Int("frames_in", res.Report.FramesIn),
			logger.Int("frames_kept", res.Report.FramesKept),
		)
		recordings = append(recordings, res.Recording)
	}
	return recordings, nil
}

func (p *Pipeline) account(r derive.Report, t *FrameTotals) {
	t.In += r.FramesIn
	t.Kept += r.FramesKept
	t.LowConfidence += r.LowConfidence
	t.Malformed += r.Malformed
	t.NonMonotonic += r.NonMonotonic
	for ch, n := range r.Fallbacks {
		t.Fallbacks[ch] += n
		p.metrics.RecordFallbacks(ch, n)
	}
	for ch, n := range r.Sentinels {
		t.Sentinels[ch] += n
		p.metrics.RecordSentinels(ch, n)
	}
	p.metrics.RecordFrames(metrics.FrameKept, r.FramesKept)
	p.metrics.RecordFrames(metrics.FrameLowConf, r.LowConfidence)
	p.metrics.RecordFrames(metrics.FrameMalformed, r.Malformed)
	p.metrics.RecordFrames(metrics.FrameNonMonotonic, r.NonMonotonic)
}

// normalize rescales each subject independently and drops subjects whose
// baseline is too short.
func (p *Pipeline) normalize(ctx context.Context, coll *aggregate.Collection, m *Manifest) []model.Subject {
	var out []model.Subject
	for _, id := range coll.Subjects() {
		s, st, err := p.normalizer.Normalize(coll.Subject(id))
		if err != nil {
			p.metrics.RecordSubjectExcluded(reason(err))
			p.exclude(ctx, m, ScopeSubject, id, err)
			continue
		}
		m.Subjects = append(m.Subjects, SubjectStats{
			Subject:        id,
			BaselineFrames: st.BaselineFrames,
			Reference:      st.Reference,
			Mean:           st.Mean,
			Std:            st.Std,
		})
		out = append(out, s)
	}
	return out
}

// window cuts every recording of every kept subject. Groups shorter than
// the window are skipped.
func (p *Pipeline) window(ctx context.Context, subjects []model.Subject, m *Manifest) []window.Block {
	var blocks []window.Block
	for _, s := range subjects {
		for _, r := range s.Recordings {
			b, err := p.windower.Window(r)
			if err != nil {
				p.metrics.RecordGroupSkipped(reason(err))
				p.exclude(ctx, m, ScopeGroup, r.Key.String(), err)
				continue
			}
			blocks = append(blocks, b)
		}
	}
	return blocks
}

func (p *Pipeline) selectChannels(ctx context.Context, schema model.Schema, blocks []window.Block, m *Manifest) ([]window.Block, model.Schema) {
	res := p.selector.Select(schema, blocks)

	kept := make(map[int]bool, len(res.Keep))
	for _, c := range res.Keep {
		kept[c] = true
	}
	m.Selection = &SelectionStats{Alpha: p.selector.Alpha(), Fallback: res.Fallback}
	for c, name := range res.Channels {
		m.Selection.Channels = append(m.Selection.Channels, ChannelResult{
			Name:   name,
			P:      res.PValues[c],
			Tested: res.Tested[c],
			Kept:   kept[c],
		})
	}

	if res.Fallback {
		p.logger.Warn(ctx, "no channel passed selection, keeping all", logger.Float64("alpha", p.selector.Alpha()))
		return blocks, schema
	}
	p.logger.Info(ctx, "channels selected", logger.Strings("kept", res.Kept()))

	out := make([]window.Block, len(blocks))
	for i, b := range blocks {
		out[i] = p.windower.Project(b, res.Keep, schema.Width())
	}
	return out, schema.Project(res.Keep)
}

// writeBlocks writes one tensor and one label vector per group under a
// directory named after the condition.
func (p *Pipeline) writeBlocks(outputDir string, blocks []window.Block, subjects []model.Subject, m *Manifest) error {
	frames := make(map[model.Key]int)
	for _, s := range subjects {
		for _, r := range s.Recordings {
			frames[r.Key] = r.Len()
		}
	}

	for _, b := range blocks {
		name := b.Key.String()
		tensorRel := filepath.Join(b.Key.Condition, name+".npy")
		labelRel := filepath.Join(b.Key.Condition, name+"_label.npy")

		if err := tensorio.WriteTensor(filepath.Join(outputDir, tensorRel), b.Tensor); err != nil {
			return err
		}
		if err := tensorio.WriteLabels(filepath.Join(outputDir, labelRel), b.Labels); err != nil {
			return err
		}
		p.metrics.RecordWindows(b.Key.Condition, b.N())

		m.Groups = append(m.Groups, Group{
			Subject:   b.Key.Subject,
			Condition: b.Key.Condition,
			Label:     b.Label,
			Frames:    frames[b.Key],
			Windows:   b.N(),
			Shape:     b.Tensor.Shape,
			Tensor:    filepath.ToSlash(tensorRel),
			Labels:    filepath.ToSlash(labelRel),
		})
	}
	return nil
}

// writeDerived writes every accepted recording before normalisation.
func (p *Pipeline) writeDerived(outputDir string, coll *aggregate.Collection) error {
	for _, k := range coll.Keys() {
		rec, _ := coll.Get(k)
		if err := tabular.WriteRecording(filepath.Join(outputDir, DerivedDir, k.String()+inputExt), rec); err != nil {
			return err
		}
	}
	return nil
}

// writeFrames writes the normalised frames of every kept subject.
func (p *Pipeline) writeFrames(path string, subjects []model.Subject) error {
	sink, err := parquetsink.Open(path)
	if err != nil {
		return err
	}
	for _, s := range subjects {
		for _, r := range s.Recordings {
			if err := sink.WriteRecording(r); err != nil {
				_ = sink.Close()
				return err
			}
		}
	}
	return sink.Close()
}

func (p *Pipeline) exclude(ctx context.Context, m *Manifest, scope, item string, err error) {
	if scope == ScopeFile {
		p.metrics.RecordFile(metrics.FileSkipped)
	}
	m.Excluded = append(m.Excluded, Exclusion{Scope: scope, Item: item, Reason: err.Error()})
	p.logger.Warn(ctx, "excluded",
		logger.String("scope", scope),
		logger.String("item", item),
		logger.Error(err),
	)
}

// reason maps an exclusion error to a metric label.
func reason(err error) string {
	switch {
	case errors.Is(err, normalize.ErrInsufficientBaseline):
		return "insufficient_baseline"
	case errors.Is(err, window.ErrTooShort):
		return "too_short"
	case errors.Is(err, model.ErrUnknownCondition):
		return "unknown_condition"
	}
	return "other"
}
