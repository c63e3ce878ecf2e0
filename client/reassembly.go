package client

import (
	"errors"
	"fmt"
	"io"
	"sort"

	"github.com/willf/bitset"
)

var ErrOutOfRange = errors.New("sequence number out of range")

// Reassembly collects frame payloads by sequence number. Arrival order does
// not matter; WriteTo emits payloads in ascending sequence order. A repeated
// sequence number replaces the earlier payload.
type Reassembly struct {
	chunks     map[int64][]byte
	received   *bitset.BitSet
	maxFrames  int64
	highest    int64
	duplicates int
}

func NewReassembly(maxFrames int64) *Reassembly {
	return &Reassembly{
		chunks:    make(map[int64][]byte),
		received:  bitset.New(64),
		maxFrames: maxFrames,
		highest:   -1,
	}
}

// Store keeps a copy of payload under seq and reports whether seq had been
// stored before.
func (r *Reassembly) Store(seq int64, payload []byte) (bool, error) {
	if seq < 0 || (r.maxFrames > 0 && seq >= r.maxFrames) {
		return false, fmt.Errorf("%w: %d", ErrOutOfRange, seq)
	}
	duplicate := r.received.Test(uint(seq))
	if duplicate {
		r.duplicates++
	}
	r.chunks[seq] = append([]byte(nil), payload...)
	r.received.Set(uint(seq))
	if seq > r.highest {
		r.highest = seq
	}
	return duplicate, nil
}

func (r *Reassembly) Len() int {
	return len(r.chunks)
}

func (r *Reassembly) Duplicates() int {
	return r.duplicates
}

// Missing lists the sequence numbers below the highest one stored that never
// arrived.
func (r *Reassembly) Missing() []int64 {
	var missing []int64
	for i := int64(0); i < r.highest; i++ {
		if !r.received.Test(uint(i)) {
			missing = append(missing, i)
		}
	}
	return missing
}

func (r *Reassembly) WriteTo(w io.Writer) (int64, error) {
	seqs := make([]int64, 0, len(r.chunks))
	for seq := range r.chunks {
		seqs = append(seqs, seq)
	}
	sort.Slice(seqs, func(i, j int) bool { return seqs[i] < seqs[j] })

	var total int64
	for _, seq := range seqs {
		n, err := w.Write(r.chunks[seq])
		total += int64(n)
		if err != nil {
			return total, err
		}
	}
	return total, nil
}
