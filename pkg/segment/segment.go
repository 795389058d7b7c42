// Package segment stores the sequence text of graph segments outside the
// graph itself.
//
// Sequences can be millions of bases long, so the graph keeps only lengths.
// The text is streamed to a companion file while parsing and read back on
// demand through an offset index.
//
// # File Format
//
// One line per node holding the raw sequence text. The line number is the
// node id: line 1 is node 0.
//
//	ACGTTGCA
//	T
//
// # Atomicity
//
// [Create] writes to a temporary file that [Writer.Commit] renames into
// place, so a failed load never leaves a half-written segment file behind.
// Segments appended out of id order are rewritten in id order on commit.
package segment

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/matzehuels/pangraph/pkg/dag"
	perrors "github.com/matzehuels/pangraph/pkg/errors"
)

// Ref locates one sequence inside the segment file.
type Ref struct {
	Offset int64 // Byte offset of the first base
	Length int   // Number of bytes
}

// Writer streams sequences into a new segment file.
type Writer struct {
	path    string
	tmp     string
	f       *os.File
	w       *bufio.Writer
	off     int64
	refs    []Ref
	set     []bool
	ordered bool // Every id so far was appended in id order
}

// Create opens a writer for the segment file at path.
func Create(path string) (*Writer, error) {
	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return nil, fmt.Errorf("create segment file: %w", err)
	}
	return &Writer{path: path, tmp: tmp, f: f, w: bufio.NewWriterSize(f, 1<<16), ordered: true}, nil
}

// Append records the sequence for node id (0-based).
func (w *Writer) Append(id int, seq string) error {
	if id < 0 {
		return fmt.Errorf("%w: %d", dag.ErrOutOfRange, id)
	}
	if id != len(w.refs) {
		w.ordered = false
	}
	if _, err := w.w.WriteString(seq); err != nil {
		return err
	}
	if err := w.w.WriteByte('\n'); err != nil {
		return err
	}
	w.put(id, Ref{Offset: w.off, Length: len(seq)})
	w.off += int64(len(seq) + 1)
	return nil
}

func (w *Writer) put(id int, ref Ref) {
	for len(w.refs) <= id {
		w.refs = append(w.refs, Ref{})
		w.set = append(w.set, false)
	}
	w.refs[id] = ref
	w.set[id] = true
}

// Commit flushes the file, moves it into place and returns a store that
// reads from it. Ids never appended become empty lines.
func (w *Writer) Commit() (*Store, error) {
	if err := w.w.Flush(); err != nil {
		_ = w.Abort()
		return nil, fmt.Errorf("flush segment file: %w", err)
	}
	if !w.ordered {
		if err := w.reorder(); err != nil {
			_ = w.Abort()
			return nil, fmt.Errorf("reorder segment file: %w", err)
		}
	}
	if err := w.f.Sync(); err != nil {
		_ = w.Abort()
		return nil, fmt.Errorf("sync segment file: %w", err)
	}
	if err := w.f.Close(); err != nil {
		_ = os.Remove(w.tmp)
		return nil, fmt.Errorf("close segment file: %w", err)
	}
	if err := os.Rename(w.tmp, w.path); err != nil {
		_ = os.Remove(w.tmp)
		return nil, fmt.Errorf("rename segment file: %w", err)
	}
	f, err := os.Open(w.path)
	if err != nil {
		return nil, fmt.Errorf("open segment file: %w", err)
	}
	return &Store{f: f, refs: w.refs}, nil
}

// reorder copies the scratch file into a new temporary file in id order
// and makes that the file to commit.
func (w *Writer) reorder() error {
	scratch := w.f
	out, err := os.Create(w.tmp + ".sorted")
	if err != nil {
		return err
	}
	bw := bufio.NewWriterSize(out, 1<<16)
	var off int64
	refs := make([]Ref, len(w.refs))
	for id, ref := range w.refs {
		if w.set[id] {
			if _, err := io.Copy(bw, io.NewSectionReader(scratch, ref.Offset, int64(ref.Length))); err != nil {
				_ = out.Close()
				_ = os.Remove(out.Name())
				return err
			}
		}
		if err := bw.WriteByte('\n'); err != nil {
			_ = out.Close()
			_ = os.Remove(out.Name())
			return err
		}
		refs[id] = Ref{Offset: off, Length: ref.Length}
		off += int64(ref.Length + 1)
	}
	if err := bw.Flush(); err != nil {
		_ = out.Close()
		_ = os.Remove(out.Name())
		return err
	}
	_ = scratch.Close()
	if err := os.Rename(out.Name(), w.tmp); err != nil {
		_ = out.Close()
		_ = os.Remove(out.Name())
		return err
	}
	w.f, w.refs, w.off, w.ordered = out, refs, off, true
	return nil
}

// Abort discards everything written so far.
func (w *Writer) Abort() error {
	_ = w.f.Close()
	return os.Remove(w.tmp)
}

// Store reads sequences by node id. It is safe for concurrent use.
type Store struct {
	mu   sync.RWMutex
	f    *os.File
	refs []Ref
}

// Open indexes an existing segment file by line number.
func Open(path string) (*Store, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, perrors.Wrap(perrors.ErrCodeNotFound, err, "segment file %s", path)
		}
		return nil, fmt.Errorf("open segment file: %w", err)
	}

	s := &Store{f: f}
	r := bufio.NewReaderSize(f, 1<<16)
	var off int64
	for {
		b, err := r.ReadBytes('\n')
		if len(b) > 0 {
			body := bytes.TrimRight(b, "\r\n")
			s.refs = append(s.refs, Ref{Offset: off, Length: len(body)})
			off += int64(len(b))
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			_ = f.Close()
			return nil, fmt.Errorf("read segment file: %w", err)
		}
	}
	return s, nil
}

// Len returns the number of stored segments.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.refs)
}

// Ref returns the location of id's sequence.
func (s *Store) Ref(id int) (Ref, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if id < 0 || id >= len(s.refs) {
		return Ref{}, fmt.Errorf("%w: no segment for node %d", dag.ErrOutOfRange, id)
	}
	return s.refs[id], nil
}

// Get returns the sequence of node id.
func (s *Store) Get(id int) (string, error) {
	ref, err := s.Ref(id)
	if err != nil {
		return "", err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.f == nil {
		return "", fmt.Errorf("segment store closed")
	}
	buf := make([]byte, ref.Length)
	if _, err := s.f.ReadAt(buf, ref.Offset); err != nil {
		return "", perrors.Wrap(perrors.ErrCodeCorruptCache, err, "read segment %d", id)
	}
	return string(buf), nil
}

// Close releases the underlying file.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.f == nil {
		return nil
	}
	err := s.f.Close()
	s.f = nil
	return err
}
