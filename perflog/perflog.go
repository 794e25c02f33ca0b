// Package perflog persists summaries of finished simulation runs in a
// LevelDB database.
package perflog

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/syndtr/goleveldb/leveldb"
	leveldbstorage "github.com/syndtr/goleveldb/leveldb/storage"
	"github.com/syndtr/goleveldb/leveldb/util"

	"github.com/sarchlab/pipesim/timing/pipeline"
)

var (
	runPrefix = []byte("run/")
	seqKey    = []byte("meta/seq")
)

// Entry is the summary of one run.
type Entry struct {
	Seq        uint64    `json:"seq"`
	Name       string    `json:"name"`
	Time       time.Time `json:"time"`
	Pipeline   string    `json:"pipeline"`
	Threading  string    `json:"threading"`
	Forwarding bool      `json:"forwarding"`

	Cycles       uint64  `json:"cycles"`
	Instructions uint64  `json:"instructions"`
	BubbleCycles uint64  `json:"bubble_cycles"`
	Stalls       uint64  `json:"stalls"`
	IPC          float64 `json:"ipc"`
}

// NewEntry summarizes run statistics under a name.
func NewEntry(name string, stats pipeline.Statistics) Entry {
	return Entry{
		Name:         name,
		Time:         time.Now(),
		Cycles:       stats.Cycles,
		Instructions: stats.Instructions,
		BubbleCycles: stats.BubbleCycles,
		Stalls:       stats.Stalls,
		IPC:          stats.IPC(),
	}
}

// Store is a persistent, ordered log of run entries.
type Store struct {
	db *leveldb.DB
}

// Open opens the store at path. If path is empty, uses in-memory storage.
func Open(path string) (*Store, error) {
	var (
		db  *leveldb.DB
		err error
	)
	if path == "" {
		db, err = leveldb.Open(leveldbstorage.NewMemStorage(), nil)
	} else {
		db, err = leveldb.OpenFile(path, nil)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open performance log: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the store.
func (s *Store) Close() error {
	return s.db.Close()
}

// Add appends an entry and returns its sequence number.
func (s *Store) Add(entry Entry) (uint64, error) {
	seq, err := s.lastSeq()
	if err != nil {
		return 0, err
	}
	seq++
	entry.Seq = seq

	data, err := json.Marshal(entry)
	if err != nil {
		return 0, fmt.Errorf("failed to encode entry: %w", err)
	}

	batch := new(leveldb.Batch)
	batch.Put(runKey(seq), data)
	batch.Put(seqKey, encodeSeq(seq))
	if err := s.db.Write(batch, nil); err != nil {
		return 0, fmt.Errorf("failed to write entry: %w", err)
	}

	return seq, nil
}

// List returns every entry, oldest first.
func (s *Store) List() ([]Entry, error) {
	iter := s.db.NewIterator(util.BytesPrefix(runPrefix), nil)
	defer iter.Release()

	var entries []Entry
	for iter.Next() {
		var e Entry
		if err := json.Unmarshal(iter.Value(), &e); err != nil {
			return nil, fmt.Errorf("corrupt entry %q: %w", iter.Key(), err)
		}
		entries = append(entries, e)
	}
	if err := iter.Error(); err != nil {
		return nil, fmt.Errorf("failed to iterate entries: %w", err)
	}

	return entries, nil
}

// Get returns the entry with the given sequence number.
func (s *Store) Get(seq uint64) (Entry, bool, error) {
	data, err := s.db.Get(runKey(seq), nil)
	if errors.Is(err, leveldb.ErrNotFound) {
		return Entry{}, false, nil
	}
	if err != nil {
		return Entry{}, false, err
	}

	var e Entry
	if err := json.Unmarshal(data, &e); err != nil {
		return Entry{}, false, fmt.Errorf("corrupt entry %d: %w", seq, err)
	}
	return e, true, nil
}

// Clear deletes every entry. Sequence numbers keep increasing.
func (s *Store) Clear() (int, error) {
	iter := s.db.NewIterator(util.BytesPrefix(runPrefix), nil)
	defer iter.Release()

	batch := new(leveldb.Batch)
	for iter.Next() {
		key := make([]byte, len(iter.Key()))
		copy(key, iter.Key())
		batch.Delete(key)
	}
	if err := iter.Error(); err != nil {
		return 0, fmt.Errorf("failed to iterate entries: %w", err)
	}

	n := batch.Len()
	if err := s.db.Write(batch, nil); err != nil {
		return 0, fmt.Errorf("failed to clear entries: %w", err)
	}
	return n, nil
}

func (s *Store) lastSeq() (uint64, error) {
	data, err := s.db.Get(seqKey, nil)
	if errors.Is(err, leveldb.ErrNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to read sequence: %w", err)
	}
	if len(data) != 8 {
		return 0, fmt.Errorf("corrupt sequence record")
	}
	return binary.BigEndian.Uint64(data), nil
}

func runKey(seq uint64) []byte {
	return append(append([]byte{}, runPrefix...), encodeSeq(seq)...)
}

func encodeSeq(seq uint64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, seq)
	return b
}
