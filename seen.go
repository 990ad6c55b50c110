package edgedupe

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"math"
	"os"
	"sync"
	"time"
)

// SeenSet records SHA-256 digests of processed images and the URLs already
// forwarded, both insertion-ordered and trimmed oldest-first on Save. It
// also carries the time of the last completed scrape cycle.
type SeenSet struct {
	mu        sync.Mutex
	hashes    []string
	hashIndex map[string]struct{}
	urls      []string
	urlIndex  map[string]struct{}
	lastCheck time.Time
	capacity  int
}

// NewSeenSet returns an empty set. Use Unbounded to disable truncation.
func NewSeenSet(capacity int) *SeenSet {
	return &SeenSet{
		hashIndex: make(map[string]struct{}),
		urlIndex:  make(map[string]struct{}),
		lastCheck: time.Now().UTC(),
		capacity:  capacity,
	}
}

// HashBytes returns the hex SHA-256 digest of data.
func HashBytes(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// CheckAndRecord returns Duplicate if raw was seen before. Otherwise its
// digest is recorded and Unique is returned.
func (s *SeenSet) CheckAndRecord(raw []byte) Decision {
	digest := HashBytes(raw)

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.hashIndex[digest]; ok {
		return Duplicate
	}
	s.recordHash(digest)
	return Unique
}

// HasHash reports whether digest was recorded.
func (s *SeenSet) HasHash(digest string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.hashIndex[digest]
	return ok
}

// RecordHash appends digest unless it is already present.
func (s *SeenSet) RecordHash(digest string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.hashIndex[digest]; !ok {
		s.recordHash(digest)
	}
}

func (s *SeenSet) recordHash(digest string) {
	s.hashes = append(s.hashes, digest)
	s.hashIndex[digest] = struct{}{}
}

// SeenURL reports whether url was recorded.
func (s *SeenSet) SeenURL(url string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.urlIndex[url]
	return ok
}

// RecordURL appends url to the recently-sent list.
func (s *SeenSet) RecordURL(url string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.urlIndex[url]; ok {
		return
	}
	s.urls = append(s.urls, url)
	s.urlIndex[url] = struct{}{}
}

// LastCheck returns the time of the last completed cycle.
func (s *SeenSet) LastCheck() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastCheck
}

// SetLastCheck updates the last completed cycle time.
func (s *SeenSet) SetLastCheck(t time.Time) {
	s.mu.Lock()
	s.lastCheck = t.UTC()
	s.mu.Unlock()
}

// SetCapacity updates the bound applied on the next Save.
func (s *SeenSet) SetCapacity(n int) {
	s.mu.Lock()
	s.capacity = n
	s.mu.Unlock()
}

// Hashes returns the recorded digests, oldest first.
func (s *SeenSet) Hashes() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.hashes...)
}

// URLs returns the recorded URLs, oldest first.
func (s *SeenSet) URLs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.urls...)
}

// seenRecord is the on-disk JSON layout.
type seenRecord struct {
	LastCheck unixTime `json:"last_check"`
	URLList   []string `json:"url_list"`
	HashList  []string `json:"hash_list"`
}

// unixTime is a Unix timestamp in seconds with a fractional part. It also
// accepts null and the string "None", both meaning "unset".
type unixTime struct{ time.Time }

func (t unixTime) MarshalJSON() ([]byte, error) {
	sec := float64(t.UnixNano()) / float64(time.Second)
	return json.Marshal(sec)
}

func (t *unixTime) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) || bytes.Equal(data, []byte(`"None"`)) {
		t.Time = time.Time{}
		return nil
	}
	var sec float64
	if err := json.Unmarshal(data, &sec); err != nil {
		return fmt.Errorf("last_check: %w", err)
	}
	whole, frac := math.Modf(sec)
	t.Time = time.Unix(int64(whole), int64(frac*float64(time.Second))).UTC()
	return nil
}

// trimFront drops the oldest entries beyond capacity from list and index.
func trimFront(list []string, index map[string]struct{}, capacity int) []string {
	if capacity < 0 || len(list) <= capacity {
		return list
	}
	drop := len(list) - capacity
	for _, v := range list[:drop] {
		delete(index, v)
	}
	return append([]string(nil), list[drop:]...)
}

// Save trims both lists to the capacity and writes the JSON record to path.
func (s *SeenSet) Save(path string) error {
	s.mu.Lock()
	s.urls = trimFront(s.urls, s.urlIndex, s.capacity)
	s.hashes = trimFront(s.hashes, s.hashIndex, s.capacity)
	rec := seenRecord{
		LastCheck: unixTime{s.lastCheck},
		URLList:   append([]string{}, s.urls...),
		HashList:  append([]string{}, s.hashes...),
	}
	s.mu.Unlock()

	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode seen set: %w", err)
	}
	if err := writeFileAtomic(path, data); err != nil {
		return fmt.Errorf("save seen set: %w", err)
	}
	return nil
}

// Load replaces the set with the record at path. A missing file is created
// from the current (empty) state.
func (s *SeenSet) Load(path string) error {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		slog.Debug("edgedupe: creating seen set", "path", path)
		return s.Save(path)
	}
	if err != nil {
		return fmt.Errorf("read seen set: %w", err)
	}

	var rec seenRecord
	if len(bytes.TrimSpace(data)) > 0 {
		if err := json.Unmarshal(data, &rec); err != nil {
			return fmt.Errorf("decode seen set %s: %w", path, err)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.hashes, s.hashIndex = dedupList(rec.HashList)
	s.urls, s.urlIndex = dedupList(rec.URLList)
	if rec.LastCheck.IsZero() {
		s.lastCheck = time.Now().UTC()
	} else {
		s.lastCheck = rec.LastCheck.Time
	}
	return nil
}

// dedupList keeps the first occurrence of every entry.
func dedupList(in []string) ([]string, map[string]struct{}) {
	index := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, v := range in {
		if _, ok := index[v]; ok {
			continue
		}
		index[v] = struct{}{}
		out = append(out, v)
	}
	return out, index
}
