// Package sink delivers rendered files. A run hands all of its files to one
// Write call, and either every file lands or none does.
package sink

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

var (
	// ErrSinkClosed is returned by Write after Close.
	ErrSinkClosed = errors.New("sink closed")
	// ErrDuplicateName is returned when one Write names the same file twice.
	ErrDuplicateName = errors.New("duplicate file name")
)

// File is one named payload. Name is a base name, never a path.
type File struct {
	Name string
	Data []byte
}

// Sink receives the files of generation runs.
type Sink interface {
	Write(ctx context.Context, files ...File) error
	Close() error
}

// Dir writes files into a directory through temp files and renames.
type Dir struct {
	dir string

	mu      sync.Mutex
	closed  bool
	written []string
}

// NewDir creates the directory if needed.
func NewDir(dir string) (*Dir, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("output dir: %w", err)
	}
	return &Dir{dir: dir}, nil
}

// Path is the destination directory.
func (d *Dir) Path() string {
	return d.dir
}

// Written lists the paths committed so far, in write order.
func (d *Dir) Written() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.written...)
}

type staged struct {
	tmp    string
	target string
	backup string
	done   bool
}

// Write stages every file, then renames them into place. If any step fails,
// files already renamed are removed, overwritten files are restored and all
// temp files are deleted.
func (d *Dir) Write(ctx context.Context, files ...File) (err error) {
	d.mu.Lock()
	closed := d.closed
	d.mu.Unlock()
	if closed {
		return ErrSinkClosed
	}

	var batch []*staged
	defer func() {
		if err != nil {
			rollback(batch)
		}
	}()

	seen := make(map[string]bool, len(files))
	for _, f := range files {
		if f.Name == "" || filepath.Base(f.Name) != f.Name {
			return fmt.Errorf("invalid file name %q", f.Name)
		}
		// Names compare case-insensitively.
		key := strings.ToLower(f.Name)
		if seen[key] {
			return fmt.Errorf("%w: %q", ErrDuplicateName, f.Name)
		}
		seen[key] = true
	}

	for _, f := range files {
		s, err := d.stage(f)
		if err != nil {
			return err
		}
		batch = append(batch, s)
	}

	if err := ctx.Err(); err != nil {
		return err
	}

	for _, s := range batch {
		if err := commit(s); err != nil {
			return err
		}
	}

	for _, s := range batch {
		if s.backup != "" {
			_ = os.Remove(s.backup)
		}
	}

	d.mu.Lock()
	for _, s := range batch {
		d.written = append(d.written, s.target)
	}
	d.mu.Unlock()
	return nil
}

func (d *Dir) stage(f File) (*staged, error) {
	tmp, err := os.CreateTemp(d.dir, ".tmp-*-"+f.Name)
	if err != nil {
		return nil, fmt.Errorf("temp file for %s: %w", f.Name, err)
	}
	if _, err := tmp.Write(f.Data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return nil, fmt.Errorf("write %s: %w", f.Name, err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return nil, fmt.Errorf("close %s: %w", f.Name, err)
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		_ = os.Remove(tmp.Name())
		return nil, fmt.Errorf("chmod %s: %w", f.Name, err)
	}
	return &staged{tmp: tmp.Name(), target: filepath.Join(d.dir, f.Name)}, nil
}

func commit(s *staged) error {
	info, err := os.Lstat(s.target)
	switch {
	case err == nil && !info.Mode().IsRegular():
		return fmt.Errorf("rename %s: target exists and is not a regular file", s.target)
	case err == nil:
		s.backup = s.tmp + ".bak"
		if err := os.Rename(s.target, s.backup); err != nil {
			s.backup = ""
			return fmt.Errorf("back up %s: %w", s.target, err)
		}
	case !errors.Is(err, os.ErrNotExist):
		return fmt.Errorf("stat %s: %w", s.target, err)
	}

	if err := os.Rename(s.tmp, s.target); err != nil {
		return fmt.Errorf("rename %s: %w", s.target, err)
	}
	s.done = true
	return nil
}

func rollback(batch []*staged) {
	for i := len(batch) - 1; i >= 0; i-- {
		s := batch[i]
		if s.done {
			_ = os.Remove(s.target)
		} else {
			_ = os.Remove(s.tmp)
		}
		if s.backup != "" {
			_ = os.Rename(s.backup, s.target)
		}
	}
}

// Close makes further writes fail with ErrSinkClosed.
func (d *Dir) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.closed = true
	return nil
}

// Writer streams files into an io.Writer, separated by a comment line naming
// each file. Output is buffered and flushed on Close.
type Writer struct {
	mu     sync.Mutex
	bw     *bufio.Writer
	closed bool
	count  int
}

// NewWriter wraps w.
func NewWriter(w io.Writer) *Writer {
	return &Writer{bw: bufio.NewWriter(w)}
}

// Write appends the files to the stream.
func (w *Writer) Write(ctx context.Context, files ...File) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return ErrSinkClosed
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	for _, f := range files {
		if w.count > 0 {
			if err := w.bw.WriteByte('\n'); err != nil {
				return err
			}
		}
		if _, err := fmt.Fprintf(w.bw, "-- >>> %s\n", f.Name); err != nil {
			return err
		}
		if _, err := w.bw.Write(f.Data); err != nil {
			return err
		}
		w.count++
	}
	return nil
}

// Close flushes buffered output. It is safe to call more than once.
func (w *Writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return nil
	}
	w.closed = true
	if err := w.bw.Flush(); err != nil {
		return fmt.Errorf("flush: %w", err)
	}
	return nil
}

// WriteFileAtomic writes data to path through a temp file in the same directory.
func WriteFileAtomic(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("dir: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), ".tmp-*")
	if err != nil {
		return fmt.Errorf("temp file: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("write file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("close file: %w", err)
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("chmod file: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("rename file: %w", err)
	}
	return nil
}

// WriteJSONAtomic writes v as indented JSON.
func WriteJSONAtomic(path string, v any) error {
	data, err := MarshalJSON(v)
	if err != nil {
		return err
	}
	return WriteFileAtomic(path, data)
}

// MarshalJSON is the indented, newline-terminated encoding used for every
// JSON file ilagen writes.
func MarshalJSON(v any) ([]byte, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal json: %w", err)
	}
	return append(data, '\n'), nil
}
