package core

import (
	"strconv"
	"sync"
	"time"
)

// Snowflake generates roughly time-ordered 64-bit IDs for conversations and
// messages: 41 bits of milliseconds since epoch, 10 bits of node ID and
// 12 bits of per-millisecond sequence. Generated IDs are rendered as decimal
// strings on the wire so clients never handle them as numbers.
type Snowflake struct {
	mu     sync.Mutex
	node   uint64
	lastMs int64
	seq    uint64
}

const (
	// snowflakeEpoch is 2024-01-01T00:00:00Z in Unix milliseconds.
	snowflakeEpoch int64 = 1704067200000

	snowflakeNodeBits = 10
	snowflakeSeqBits  = 12

	snowflakeMaxNode = (1 << snowflakeNodeBits) - 1
	snowflakeMaxSeq  = (1 << snowflakeSeqBits) - 1

	snowflakeNodeShift = snowflakeSeqBits
	snowflakeTimeShift = snowflakeNodeBits + snowflakeSeqBits
)

// NewSnowflake creates a generator for the given node ID (0..1023).
func NewSnowflake(node uint64) (*Snowflake, error) {
	if node > snowflakeMaxNode {
		return nil, ErrInvalidNodeID
	}
	return &Snowflake{node: node}, nil
}

// NextID returns the next unique ID. Safe for concurrent use.
// If the clock moves backwards the generator keeps issuing IDs against the
// last observed timestamp instead of failing the request.
func (s *Snowflake) NextID() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UnixMilli()
	if now < s.lastMs {
		now = s.lastMs
	}

	if now == s.lastMs {
		s.seq = (s.seq + 1) & snowflakeMaxSeq
		if s.seq == 0 {
			// Sequence exhausted within this millisecond; spin to the next.
			for now <= s.lastMs {
				now = time.Now().UnixMilli()
			}
		}
	} else {
		s.seq = 0
	}
	s.lastMs = now

	return uint64(now-snowflakeEpoch)<<snowflakeTimeShift |
		s.node<<snowflakeNodeShift |
		s.seq
}

// NextString returns the next ID as a decimal string.
func (s *Snowflake) NextString() string {
	return strconv.FormatUint(s.NextID(), 10)
}
