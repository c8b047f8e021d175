// Package persistence reads and writes marker files.
//
// A marker file is plain text with one position in seconds per line, each
// line terminated by '\n'. There is no header.
package persistence

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// Extension is the conventional suffix of marker files.
const Extension = ".markers"

// Dropped describes a line that was discarded on load.
type Dropped struct {
	Line     int
	Text     string
	Position float64
	Err      error
}

// LoadResult is the outcome of reading a marker file.
type LoadResult struct {
	// Positions holds the accepted values in file order.
	Positions []float64
	// Dropped lists lines whose value fell outside the range.
	Dropped []Dropped
}

// Encode writes one position per line using the shortest exact decimal form.
func Encode(w io.Writer, positions []float64) error {
	bw := bufio.NewWriter(w)
	for _, p := range positions {
		if _, err := bw.WriteString(strconv.FormatFloat(p, 'f', -1, 64)); err != nil {
			return err
		}
		if err := bw.WriteByte('\n'); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// Decode reads positions from r and keeps those within [minPos, maxPos].
// Unparseable lines read as 0.
func Decode(r io.Reader, minPos, maxPos float64) (LoadResult, error) {
	var res LoadResult
	sc := bufio.NewScanner(r)
	n := 0
	for sc.Scan() {
		n++
		line := sc.Text()
		p := ParseLenient(line)
		if p >= minPos && p <= maxPos {
			res.Positions = append(res.Positions, p)
			continue
		}
		res.Dropped = append(res.Dropped, Dropped{
			Line:     n,
			Text:     line,
			Position: p,
			Err:      fmt.Errorf("%w: line %d value %g not in [%g, %g]", ErrMarkerRange, n, p, minPos, maxPos),
		})
	}
	if err := sc.Err(); err != nil {
		return res, err
	}
	return res, nil
}

// ParseLenient returns the value of the longest numeric prefix of s after
// leading whitespace, or 0 when there is none.
func ParseLenient(s string) float64 {
	s = strings.TrimLeft(s, " \t\r\n")
	if v, err := strconv.ParseFloat(strings.TrimRight(s, " \t\r\n"), 64); err == nil {
		return v
	}
	end := 0
	for end < len(s) && strings.IndexByte("+-.0123456789eE", s[end]) >= 0 {
		end++
	}
	for ; end > 0; end-- {
		if v, err := strconv.ParseFloat(s[:end], 64); err == nil {
			return v
		}
	}
	return 0
}

// Save writes positions to path. The content goes to a temporary file in the
// same directory which is synced and renamed over path, so path holds either
// the old or the new content.
func Save(path string, positions []float64) error {
	var buf bytes.Buffer
	if err := Encode(&buf, positions); err != nil {
		return fmt.Errorf("%w: encode: %w", ErrPersistenceIO, err)
	}

	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("%w: create temp: %w", ErrPersistenceIO, err)
	}
	tmpName := tmp.Name()
	committed := false
	defer func() {
		if !committed {
			_ = os.Remove(tmpName)
		}
	}()

	if _, err := tmp.Write(buf.Bytes()); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("%w: write %s: %w", ErrPersistenceIO, path, err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("%w: sync %s: %w", ErrPersistenceIO, path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("%w: close %s: %w", ErrPersistenceIO, path, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("%w: rename %s: %w", ErrPersistenceIO, path, err)
	}
	committed = true
	return nil
}

// Load reads path and keeps positions within [minPos, maxPos].
func Load(path string, minPos, maxPos float64) (LoadResult, error) {
	f, err := os.Open(path)
	if err != nil {
		return LoadResult{}, fmt.Errorf("%w: open %s: %w", ErrPersistenceIO, path, err)
	}
	defer f.Close()

	res, err := Decode(f, minPos, maxPos)
	if err != nil {
		return LoadResult{}, fmt.Errorf("%w: read %s: %w", ErrPersistenceIO, path, err)
	}
	return res, nil
}

// DefaultPath returns the marker file that sits next to a document,
// e.g. talk.pdf -> talk.markers.
func DefaultPath(documentPath string) string {
	ext := filepath.Ext(documentPath)
	return strings.TrimSuffix(documentPath, ext) + Extension
}
