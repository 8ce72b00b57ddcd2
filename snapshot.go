package coop

import (
	"fmt"
	"time"

	"google.golang.org/protobuf/encoding/protowire"
)

// Snapshot field numbers. Each coroutine is one length-delimited record in
// field 1 of the outer message; field numbers never change so snapshots stay
// readable across versions.
const (
	snapFieldRecord = 1

	recFieldID    = 1
	recFieldState = 2
	recFieldSleep = 3 // milliseconds
	recFieldStack = 4
	recFieldName  = 5
)

// CoroutineInfo is the decoded form of one snapshot record.
type CoroutineInfo struct {
	ID        int32
	State     WakeState
	Sleep     time.Duration
	StackSize int
	Name      string
}

// Snapshot encodes the control-block state of the main context and every
// live coroutine in protobuf wire format. Call it from the scheduler's
// logical thread of control: inside the running coroutine, or from outside
// while no coroutine is running.
func (s *Scheduler) Snapshot() []byte {
	var b []byte
	if s.main != nil {
		b = appendSnapshotRecord(b, s.main)
	}
	for _, c := range s.coros {
		b = appendSnapshotRecord(b, c)
	}
	return b
}

func appendSnapshotRecord(b []byte, c *Coroutine) []byte {
	rec := protowire.AppendTag(nil, recFieldID, protowire.VarintType)
	rec = protowire.AppendVarint(rec, uint64(c.id))
	rec = protowire.AppendTag(rec, recFieldState, protowire.VarintType)
	rec = protowire.AppendVarint(rec, uint64(c.state))
	if ms := c.sleep.Milliseconds(); ms > 0 {
		rec = protowire.AppendTag(rec, recFieldSleep, protowire.VarintType)
		rec = protowire.AppendVarint(rec, uint64(ms))
	}
	if n := len(c.stack); n > 0 {
		rec = protowire.AppendTag(rec, recFieldStack, protowire.VarintType)
		rec = protowire.AppendVarint(rec, uint64(n))
	}
	if c.name != "" {
		rec = protowire.AppendTag(rec, recFieldName, protowire.BytesType)
		rec = protowire.AppendString(rec, c.name)
	}
	b = protowire.AppendTag(b, snapFieldRecord, protowire.BytesType)
	b = protowire.AppendBytes(b, rec)
	return b
}

// ParseSnapshot decodes a snapshot produced by Snapshot. Unknown fields are
// skipped.
func ParseSnapshot(b []byte) ([]CoroutineInfo, error) {
	var infos []CoroutineInfo
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return nil, protowire.ParseError(n)
		}
		b = b[n:]
		if num != snapFieldRecord || typ != protowire.BytesType {
			return nil, fmt.Errorf("coop: unexpected snapshot field %d", num)
		}
		rec, n := protowire.ConsumeBytes(b)
		if n < 0 {
			return nil, protowire.ParseError(n)
		}
		b = b[n:]
		info, err := parseSnapshotRecord(rec)
		if err != nil {
			return nil, err
		}
		infos = append(infos, info)
	}
	return infos, nil
}

func parseSnapshotRecord(b []byte) (CoroutineInfo, error) {
	var info CoroutineInfo
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return info, protowire.ParseError(n)
		}
		b = b[n:]
		switch {
		case num == recFieldName && typ == protowire.BytesType:
			name, n := protowire.ConsumeString(b)
			if n < 0 {
				return info, protowire.ParseError(n)
			}
			info.Name = name
			b = b[n:]
		case typ == protowire.VarintType:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return info, protowire.ParseError(n)
			}
			b = b[n:]
			switch num {
			case recFieldID:
				info.ID = int32(v)
			case recFieldState:
				info.State = WakeState(v)
			case recFieldSleep:
				info.Sleep = time.Duration(v) * time.Millisecond
			case recFieldStack:
				info.StackSize = int(v)
			}
		default:
			n := protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return info, protowire.ParseError(n)
			}
			b = b[n:]
		}
	}
	return info, nil
}
