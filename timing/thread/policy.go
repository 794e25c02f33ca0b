package thread

import (
	"fmt"
	"strings"

	"github.com/sarchlab/pipesim/insts"
)

// Mode is a multithreading policy.
type Mode uint8

// Multithreading modes.
const (
	// ModeNone passes instructions through in FIFO order.
	ModeNone Mode = iota
	// ModeIMT interleaves threads one instruction at a time.
	ModeIMT
	// ModeBMT interleaves threads in fixed-size blocks.
	ModeBMT
	// ModeSMT lets all threads share the queue and compete for issue slots.
	ModeSMT
)

// DefaultBlockSize is the BMT block size.
const DefaultBlockSize = 2

// String returns the mode name.
func (m Mode) String() string {
	switch m {
	case ModeNone:
		return "none"
	case ModeIMT:
		return "imt"
	case ModeBMT:
		return "bmt"
	case ModeSMT:
		return "smt"
	default:
		return fmt.Sprintf("Mode(%d)", uint8(m))
	}
}

// ParseMode parses a mode name, case-insensitively.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "none", "":
		return ModeNone, nil
	case "imt":
		return ModeIMT, nil
	case "bmt":
		return ModeBMT, nil
	case "smt":
		return ModeSMT, nil
	default:
		return ModeNone, fmt.Errorf("unknown multithreading mode %q", s)
	}
}

// MarshalText implements encoding.TextMarshaler.
func (m Mode) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (m *Mode) UnmarshalText(text []byte) error {
	mode, err := ParseMode(string(text))
	if err != nil {
		return err
	}
	*m = mode
	return nil
}

// AllowsCrossThreadIssue reports whether instructions of different threads
// may issue to Execute in the same cycle.
func (m Mode) AllowsCrossThreadIssue() bool {
	return m == ModeNone || m == ModeSMT
}

// palette distinguishes threads in interleaved modes.
var palette = []string{"#880d0d", "#11114e", "#4f793b", "#a14695"}

// ColorFor returns the display color used for a thread's position.
func ColorFor(position int) string {
	return palette[position%len(palette)]
}

// Merge dispatches every remaining instruction of the given threads into a
// single stream according to mode. Threads are visited in slice order.
func Merge(mode Mode, threads []*Context, blockSize int) []insts.Instruction {
	switch mode {
	case ModeIMT:
		return interleave(threads, 1)
	case ModeBMT:
		if blockSize <= 0 {
			blockSize = DefaultBlockSize
		}
		return interleave(threads, blockSize)
	default:
		return passThrough(threads)
	}
}

func passThrough(threads []*Context) []insts.Instruction {
	var out []insts.Instruction
	for _, t := range threads {
		for {
			inst, ok := t.Next()
			if !ok {
				break
			}
			out = append(out, inst)
		}
	}
	return out
}

// interleave emits up to block instructions from each thread in turn until
// all threads are exhausted, coloring each by its thread. Exhausted threads are skipped, so the
// remaining threads continue without interleaving.
func interleave(threads []*Context, block int) []insts.Instruction {
	var out []insts.Instruction
	for {
		emitted := false
		for pos, t := range threads {
			for i := 0; i < block; i++ {
				inst, ok := t.Next()
				if !ok {
					break
				}
				inst.Color = ColorFor(pos)
				out = append(out, inst)
				emitted = true
			}
		}
		if !emitted {
			return out
		}
	}
}
