package edgedupe

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
)

// Unbounded disables truncation on Save.
const Unbounded = -1

// Capacity returns the soft size bound for a store fed by sources sources
// with perSourceLimit submissions each.
func Capacity(sources, perSourceLimit int) int {
	return 3 * sources * perSourceLimit
}

// Index is an ordered, bounded store of edge signatures, oldest first.
// The bound is applied lazily by Save; between saves the store may exceed it.
// It is safe for concurrent use, although checks are expected to run one
// image at a time because insertion order affects later decisions.
type Index struct {
	cfg Config

	mu       sync.Mutex
	sigs     []Signature
	capacity int
}

// NewIndex returns an empty Index. Use Unbounded to disable truncation.
func NewIndex(cfg Config, capacity int) (*Index, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Index{cfg: cfg, capacity: capacity}, nil
}

// SetCapacity updates the bound applied on the next Save.
func (idx *Index) SetCapacity(n int) {
	idx.mu.Lock()
	idx.capacity = n
	idx.mu.Unlock()
}

// Capacity returns the current bound.
func (idx *Index) Capacity() int {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	return idx.capacity
}

// Len returns the number of stored signatures.
func (idx *Index) Len() int {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	return len(idx.sigs)
}

// Signatures returns the stored signatures, oldest first.
func (idx *Index) Signatures() []Signature {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	return append([]Signature(nil), idx.sigs...)
}

// Check reports whether sig is a near-duplicate of a stored signature.
// Unique signatures are appended; duplicates are discarded. An empty
// signature is always Unique: there is nothing to compare.
func (idx *Index) Check(sig Signature) Decision {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	if sig.Len() == 0 {
		idx.sigs = append(idx.sigs, sig)
		return Unique
	}

	matchReq := len(sig) / idx.cfg.SamplePercent
	minMatch := matchReq * idx.cfg.MatchPercent / 100

	for _, stored := range idx.sigs {
		if !idx.partialMatch(sig, stored, matchReq, minMatch) {
			continue
		}
		if idx.fullMatch(sig, stored) {
			return Duplicate
		}
	}

	idx.sigs = append(idx.sigs, sig)
	return Unique
}

// partialMatch samples sig every Stride bytes and looks each unit up in the
// stored payload, searching forward from the previous hit. It gives up once
// more than matchReq-minMatch lookups fail and reports a promising
// candidate once minMatch lookups succeed or the samples run out first.
func (idx *Index) partialMatch(sig, stored Signature, matchReq, minMatch int) bool {
	payload := stored.Payload()
	budget := matchReq - minMatch

	matches, failures, cursor := 0, 0, 0
	for off := countSize; off+unitSize <= len(sig); off += idx.cfg.Stride {
		if matches >= minMatch {
			return true
		}
		if failures > budget {
			return false
		}
		at := bytes.Index(payload[cursor:], sig[off:off+unitSize])
		if at < 0 {
			failures++
			continue
		}
		matches++
		cursor += at + unitSize
	}
	return matches >= minMatch || failures <= budget
}

// fullMatch looks every unit of sig up anywhere in the stored payload and
// reports whether at least MatchPercent of them were found, rounded up.
func (idx *Index) fullMatch(sig, stored Signature) bool {
	payload := stored.Payload()
	n := sig.Len()

	minMatch := (n*idx.cfg.MatchPercent + 99) / 100
	budget := n - minMatch

	matches, failures := 0, 0
	for off := countSize; off+unitSize <= len(sig); off += unitSize {
		if matches >= minMatch {
			return true
		}
		if failures > budget {
			return false
		}
		if bytes.Contains(payload, sig[off:off+unitSize]) {
			matches++
		} else {
			failures++
		}
	}
	return matches >= minMatch
}

// truncate drops the oldest signatures beyond the capacity.
func (idx *Index) truncate() {
	if idx.capacity < 0 || len(idx.sigs) <= idx.capacity {
		return
	}
	dropped := len(idx.sigs) - idx.capacity
	idx.sigs = append([]Signature(nil), idx.sigs[dropped:]...)
	slog.Debug("edgedupe: trimmed signature index", "dropped", dropped, "kept", len(idx.sigs))
}

// Save trims the store to its capacity and writes all frames back to back
// to path, replacing the previous contents.
func (idx *Index) Save(path string) error {
	idx.mu.Lock()
	idx.truncate()
	var buf bytes.Buffer
	for _, s := range idx.sigs {
		buf.Write(s)
	}
	idx.mu.Unlock()

	if err := writeFileAtomic(path, buf.Bytes()); err != nil {
		return fmt.Errorf("save signature index: %w", err)
	}
	return nil
}

// Load replaces the store with the contents of path. A missing file is
// created empty. Decode failures wrap ErrCorruptArchive and leave the
// store untouched.
func (idx *Index) Load(path string) error {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		if err := writeFileAtomic(path, nil); err != nil {
			return fmt.Errorf("create signature index: %w", err)
		}
		data = nil
	} else if err != nil {
		return fmt.Errorf("read signature index: %w", err)
	}

	sigs, err := DecodeAll(data)
	if err != nil {
		return fmt.Errorf("load %s: %w", path, err)
	}

	idx.mu.Lock()
	idx.sigs = sigs
	idx.mu.Unlock()
	slog.Debug("edgedupe: loaded signature index", "path", path, "entries", len(sigs))
	return nil
}

// writeFileAtomic writes data to a temp file next to path and renames it
// into place.
func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name()) //nolint:errcheck // no-op after a successful rename

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}
