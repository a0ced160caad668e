package source

import (
	"context"

	"github.com/lux-labs/balance-indexer/internal/chain"
)

// FakeSource is an in-memory, slice-backed Source used by tests,
// grounded on the teacher's hand-rolled test-double style
// (core/test_helpers.go).
type FakeSource struct {
	messages []*chain.StreamerMessage
	next     int
}

// NewFakeSource builds a FakeSource that replays messages in order.
func NewFakeSource(messages []*chain.StreamerMessage) *FakeSource {
	return &FakeSource{messages: messages}
}

func (f *FakeSource) Next(_ context.Context) (*chain.StreamerMessage, error) {
	if f.next >= len(f.messages) {
		return nil, ErrEndOfStream
	}
	msg := f.messages[f.next]
	f.next++
	return msg, nil
}
