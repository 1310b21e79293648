package app

import (
	"bytes"
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/okian/facewin/internal/config"
	"gopkg.in/yaml.v3"
)

// Manifest file names under the output directory.
const (
	ManifestFile = "manifest.yaml"
	MetricsFile  = "metrics.prom"
	FramesFile   = "frames.parquet"
	DerivedDir   = "derived"
)

// runNamespace scopes run ids to this tool.
var runNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("https://github.com/okian/facewin/run"))

// Manifest describes one run. It holds no timestamps, so identical inputs
// and configuration give an identical file.
type Manifest struct {
	RunID     string          `yaml:"run_id"`
	Profile   string          `yaml:"profile"`
	Config    *config.Config  `yaml:"config"`
	Inputs    []Input         `yaml:"inputs"`
	Frames    FrameTotals     `yaml:"frames"`
	Channels  []string        `yaml:"channels"`
	Features  []string        `yaml:"features"`
	Subjects  []SubjectStats  `yaml:"subjects"`
	Groups    []Group         `yaml:"groups"`
	Excluded  []Exclusion     `yaml:"excluded,omitempty"`
	Selection *SelectionStats `yaml:"selection,omitempty"`
}

// Input is one discovered file.
type Input struct {
	Name   string `yaml:"name"`
	SHA256 string `yaml:"sha256"`
}

// FrameTotals sums the derive reports of accepted files.
type FrameTotals struct {
	In            int            `yaml:"in"`
	Kept          int            `yaml:"kept"`
	LowConfidence int            `yaml:"low_confidence"`
	Malformed     int            `yaml:"malformed"`
	NonMonotonic  int            `yaml:"non_monotonic"`
	Fallbacks     map[string]int `yaml:"fallbacks,omitempty"`
	Sentinels     map[string]int `yaml:"sentinels,omitempty"`
}

// SubjectStats records the normalisation reference of a kept subject.
type SubjectStats struct {
	Subject        string    `yaml:"subject"`
	BaselineFrames int       `yaml:"baseline_frames"`
	Reference      []int     `yaml:"reference_frames,flow"`
	Mean           []float64 `yaml:"mean,flow"`
	Std            []float64 `yaml:"std,flow"`
}

// Group is one written (subject, condition) tensor pair.
type Group struct {
	Subject   string `yaml:"subject"`
	Condition string `yaml:"condition"`
	Label     int    `yaml:"label"`
	Frames    int    `yaml:"frames"`
	Windows   int    `yaml:"windows"`
	Shape     []int  `yaml:"shape,flow"`
	Tensor    string `yaml:"tensor"`
	Labels    string `yaml:"labels"`
}

// Exclusion scopes.
const (
	ScopeFile    = "file"
	ScopeSubject = "subject"
	ScopeGroup   = "group"
)

// Exclusion is an item left out of the dataset and why.
type Exclusion struct {
	Scope  string `yaml:"scope"`
	Item   string `yaml:"item"`
	Reason string `yaml:"reason"`
}

// SelectionStats reports the channel filter.
type SelectionStats struct {
	Alpha    float64         `yaml:"alpha"`
	Fallback bool            `yaml:"fallback"`
	Channels []ChannelResult `yaml:"channels"`
}

// ChannelResult is the median p-value of one channel.
type ChannelResult struct {
	Name   string  `yaml:"name"`
	P      float64 `yaml:"p"`
	Tested int     `yaml:"subjects_tested"`
	Kept   bool    `yaml:"kept"`
}

// runID fingerprints the effective configuration and input digests.
func runID(cfg *config.Config, inputs []Input) (string, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	if err := enc.Encode(cfg); err != nil {
		return "", err
	}
	for _, in := range inputs {
		fmt.Fprintf(&buf, "%s %s\n", in.Name, in.SHA256)
	}
	return uuid.NewSHA1(runNamespace, buf.Bytes()).String(), nil
}

// WriteManifest writes m as YAML to path.
func WriteManifest(path string, m *Manifest) error {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(m); err != nil {
		return fmt.Errorf("encode manifest: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("encode manifest: %w", err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("write manifest: %w", err)
	}
	return nil
}

// ReadManifest loads a manifest written by WriteManifest.
func ReadManifest(path string) (*Manifest, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var m Manifest
	if err := yaml.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("decode manifest: %w", err)
	}
	return &m, nil
}
