// Package checkpoint persists a tablebase in the GBL2 binary format.
//
// A file is a 32-byte header followed by the data section:
//
//	0   magic "GBL2"
//	4   version, u32 LE
//	8   entry count, u64 LE
//	16  XXH64 (seed 0) of the data section, u64 LE
//	24  8 reserved zero bytes
//	32  count entries of 9 bytes: canonical key u64 LE, outcome i8
//
// Entries are sorted by key.
package checkpoint

import (
	"bufio"
	"bytes"
	"cmp"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"slices"

	"github.com/cespare/xxhash"
	"github.com/rs/zerolog/log"

	"github.com/domino14/gobblet/tablebase"
)

const (
	Magic      = "GBL2"
	Version    = 1
	HeaderSize = 32
	EntrySize  = 9
)

var (
	ErrUnreadable         = errors.New("checkpoint unreadable")
	ErrBadMagic           = errors.New("bad checkpoint magic")
	ErrUnsupportedVersion = errors.New("unsupported checkpoint version")
	ErrChecksumMismatch   = errors.New("checkpoint checksum mismatch")
	ErrTruncated          = errors.New("checkpoint truncated")
	ErrBadOutcome         = errors.New("bad outcome in checkpoint")
)

// Header is the decoded fixed header.
type Header struct {
	Version  uint32
	Count    uint64
	Checksum uint64
}

// EstimateSize is the file size for count entries.
func EstimateSize(count int) int {
	return HeaderSize + count*EntrySize
}

func encodeEntries(entries []tablebase.Entry) []byte {
	data := make([]byte, len(entries)*EntrySize)
	for i, e := range entries {
		off := i * EntrySize
		binary.LittleEndian.PutUint64(data[off:], e.Key)
		data[off+8] = byte(e.Outcome)
	}
	return data
}

// Write serializes entries to w, sorting a copy first if needed.
func Write(w io.Writer, entries []tablebase.Entry) error {
	byKey := func(a, b tablebase.Entry) int { return cmp.Compare(a.Key, b.Key) }
	if !slices.IsSortedFunc(entries, byKey) {
		entries = slices.Clone(entries)
		slices.SortFunc(entries, byKey)
	}
	data := encodeEntries(entries)

	var hdr [HeaderSize]byte
	copy(hdr[0:4], Magic)
	binary.LittleEndian.PutUint32(hdr[4:8], Version)
	binary.LittleEndian.PutUint64(hdr[8:16], uint64(len(entries)))
	binary.LittleEndian.PutUint64(hdr[16:24], xxhash.Sum64(data))

	if _, err := w.Write(hdr[:]); err != nil {
		return err
	}
	_, err := w.Write(data)
	return err
}

// Save writes the table to path. The file is written next to path and
// renamed into place, so a failed save leaves any previous checkpoint
// intact. It returns the number of entries written.
func Save(path string, t *tablebase.Table) (int, error) {
	entries := t.Entries()
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return 0, err
	}
	f, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return 0, err
	}
	tmp := f.Name()
	cleanup := func() {
		f.Close()
		os.Remove(tmp)
	}

	bw := bufio.NewWriter(f)
	if err := Write(bw, entries); err != nil {
		cleanup()
		return 0, err
	}
	if err := bw.Flush(); err != nil {
		cleanup()
		return 0, err
	}
	if err := f.Sync(); err != nil {
		cleanup()
		return 0, err
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return 0, err
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return 0, err
	}
	log.Debug().Str("path", path).Int("entries", len(entries)).
		Int("bytes", EstimateSize(len(entries))).Msg("checkpoint-written")
	return len(entries), nil
}

// ReadHeader reads and validates the fixed header.
func ReadHeader(r io.Reader) (Header, error) {
	var hdr [HeaderSize]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return Header{}, fmt.Errorf("%w: short header", ErrTruncated)
		}
		return Header{}, fmt.Errorf("%w: %w", ErrUnreadable, err)
	}
	if !bytes.Equal(hdr[0:4], []byte(Magic)) {
		return Header{}, fmt.Errorf("%w: %q", ErrBadMagic, hdr[0:4])
	}
	h := Header{
		Version:  binary.LittleEndian.Uint32(hdr[4:8]),
		Count:    binary.LittleEndian.Uint64(hdr[8:16]),
		Checksum: binary.LittleEndian.Uint64(hdr[16:24]),
	}
	if h.Version != Version {
		return Header{}, fmt.Errorf("%w: %d", ErrUnsupportedVersion, h.Version)
	}
	return h, nil
}

// Read decodes a checkpoint from r.
func Read(r io.Reader) ([]tablebase.Entry, error) {
	h, err := ReadHeader(r)
	if err != nil {
		return nil, err
	}
	if h.Count > math.MaxInt64/EntrySize {
		return nil, fmt.Errorf("%w: implausible count %d", ErrTruncated, h.Count)
	}
	want := int64(h.Count) * EntrySize
	data, err := io.ReadAll(io.LimitReader(r, want))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnreadable, err)
	}
	if int64(len(data)) != want {
		return nil, fmt.Errorf("%w: have %d of %d data bytes", ErrTruncated, len(data), want)
	}
	if sum := xxhash.Sum64(data); sum != h.Checksum {
		return nil, fmt.Errorf("%w: stored %#x computed %#x", ErrChecksumMismatch, h.Checksum, sum)
	}

	entries := make([]tablebase.Entry, h.Count)
	for i := range entries {
		off := i * EntrySize
		o := tablebase.Outcome(int8(data[off+8]))
		if !o.Valid() {
			return nil, fmt.Errorf("%w: %d at entry %d", ErrBadOutcome, int8(data[off+8]), i)
		}
		entries[i] = tablebase.Entry{
			Key:     binary.LittleEndian.Uint64(data[off:]),
			Outcome: o,
		}
	}
	return entries, nil
}

// Load reads the checkpoint at path.
func Load(path string) ([]tablebase.Entry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnreadable, err)
	}
	defer f.Close()
	return Read(bufio.NewReader(f))
}

// LoadInto merges the checkpoint at path into t and returns how many
// entries were added.
func LoadInto(path string, t *tablebase.Table) (int, error) {
	entries, err := Load(path)
	if err != nil {
		return 0, err
	}
	return t.Merge(entries), nil
}
