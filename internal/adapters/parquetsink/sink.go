// Package parquetsink persists normalised frames in long format so that the
// stage boundary between normalisation and windowing can be inspected with
// any parquet reader.
package parquetsink

import (
	"fmt"

	"github.com/okian/facewin/internal/domain/model"
	"github.com/xitongsys/parquet-go-source/local"
	"github.com/xitongsys/parquet-go/source"
	"github.com/xitongsys/parquet-go/writer"
)

const defaultParallelism = 4

// Row is one (frame, channel) value.
type Row struct {
	Subject   string  `parquet:"name=subject, type=BYTE_ARRAY, convertedtype=UTF8"`
	Condition string  `parquet:"name=condition, type=BYTE_ARRAY, convertedtype=UTF8"`
	Frame     int64   `parquet:"name=frame, type=INT64"`
	Timestamp float64 `parquet:"name=timestamp, type=DOUBLE"`
	Channel   string  `parquet:"name=channel, type=BYTE_ARRAY, convertedtype=UTF8"`
	Value     float64 `parquet:"name=value, type=DOUBLE"`
}

// Sink appends recordings to a single parquet file.
type Sink struct {
	path     string
	parallel int64
	fw       source.ParquetFile
	pw       *writer.ParquetWriter
	rows     int
	closed   bool
}

// Open creates the file at path, truncating any previous content.
func Open(path string, opts ...Option) (*Sink, error) {
	s := &Sink{path: path, parallel: defaultParallelism}
	for _, opt := range opts {
		opt(s)
	}

	fw, err := local.NewLocalFileWriter(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrOpen, path, err)
	}
	pw, err := writer.NewParquetWriter(fw, new(Row), s.parallel)
	if err != nil {
		fw.Close()
		return nil, fmt.Errorf("%w: %s: %w", ErrOpen, path, err)
	}
	s.fw, s.pw = fw, pw
	return s, nil
}

// WriteRecording appends every frame and channel of rec.
func (s *Sink) WriteRecording(rec model.Recording) error {
	if s.closed {
		return ErrClosed
	}
	for _, fr := range rec.Frames {
		for c, name := range rec.Schema {
			row := Row{
				Subject:   rec.Key.Subject,
				Condition: rec.Key.Condition,
				Frame:     int64(fr.Index),
				Timestamp: fr.Timestamp,
				Channel:   name,
				Value:     fr.Values[c],
			}
			if err := s.pw.Write(row); err != nil {
				return fmt.Errorf("%w: %s: %w", ErrWrite, rec.Key, err)
			}
			s.rows++
		}
	}
	return nil
}

// Rows returns the number of rows written so far.
func (s *Sink) Rows() int { return s.rows }

// Close flushes the footer and closes the file. Calling it twice is a no-op.
func (s *Sink) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	if err := s.pw.WriteStop(); err != nil {
		s.fw.Close()
		return fmt.Errorf("%w: %s: %w", ErrWrite, s.path, err)
	}
	if err := s.fw.Close(); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrWrite, s.path, err)
	}
	return nil
}
