package tabular

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/okian/facewin/internal/domain/derive"
	"github.com/okian/facewin/internal/domain/model"
)

// WriteRecording writes rec as a CSV with the bookkeeping columns followed
// by one column per channel. Parent directories are created.
func WriteRecording(path string, rec model.Recording) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("%w: %w", ErrWrite, err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrWrite, err)
	}

	bw := bufio.NewWriter(f)
	cw := csv.NewWriter(bw)

	header := append([]string{derive.ColFrame, derive.ColTimestamp, derive.ColConfidence}, rec.Schema...)
	_ = cw.Write(header)

	rowBuf := make([]string, len(header))
	for _, fr := range rec.Frames {
		rowBuf[0] = strconv.Itoa(fr.Index)
		rowBuf[1] = formatFloat(fr.Timestamp)
		rowBuf[2] = formatFloat(fr.Confidence)
		for i, v := range fr.Values {
			rowBuf[3+i] = formatFloat(v)
		}
		_ = cw.Write(rowBuf)
	}
	cw.Flush()

	if err := cw.Error(); err != nil {
		f.Close()
		return fmt.Errorf("%w: %s: %w", ErrWrite, path, err)
	}
	if err := bw.Flush(); err != nil {
		f.Close()
		return fmt.Errorf("%w: %s: %w", ErrWrite, path, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrWrite, path, err)
	}
	return nil
}

func formatFloat(v float64) string { return strconv.FormatFloat(v, 'g', -1, 64) }
