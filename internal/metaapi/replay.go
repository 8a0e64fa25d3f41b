package metaapi

import (
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/wudi/wampd/internal/wampproto"
)

// MetaEventRecord is one meta-event a Registry has published, kept in
// its bounded replay buffer so an admin client attaching after the
// fact can still see recent activity without having subscribed before
// it happened.
type MetaEventRecord struct {
	Topic  string
	Args   wampproto.List
	Kwargs wampproto.Dict
}

// replayBuffer is a fixed-capacity ring of the most recently published
// meta-events, keyed by a monotonically increasing sequence number so
// the least recently added entry is always the one evicted once full.
type replayBuffer struct {
	cache *lru.Cache[uint64, MetaEventRecord]
	seq   uint64
}

func newReplayBuffer(capacity int) *replayBuffer {
	if capacity <= 0 {
		capacity = 256
	}
	cache, _ := lru.New[uint64, MetaEventRecord](capacity)
	return &replayBuffer{cache: cache}
}

func (b *replayBuffer) record(topic string, args wampproto.List, kwargs wampproto.Dict) {
	if b == nil || b.cache == nil {
		return
	}
	b.seq++
	b.cache.Add(b.seq, MetaEventRecord{Topic: topic, Args: args, Kwargs: kwargs})
}

// Recent returns up to limit of the most recently recorded events,
// oldest first. limit <= 0 returns every buffered event.
func (b *replayBuffer) Recent(limit int) []MetaEventRecord {
	if b == nil || b.cache == nil {
		return nil
	}
	keys := b.cache.Keys()
	if limit > 0 && limit < len(keys) {
		keys = keys[len(keys)-limit:]
	}
	out := make([]MetaEventRecord, 0, len(keys))
	for _, k := range keys {
		if rec, ok := b.cache.Peek(k); ok {
			out = append(out, rec)
		}
	}
	return out
}
