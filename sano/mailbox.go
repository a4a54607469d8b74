package sano

import "github.com/golang/glog"

// Mailbox is a small dual-ported RAM used to pass commands between the main
// CPU and one of the secondary CPUs. The same mailbox object is registered on
// both CPUs' buses. A bus write sets the new-data flag and raises the
// mailbox's write event; a bus read clears the flag.
type Mailbox struct {
	base  uint32
	data  []byte
	name  string
	event EventKind
	sink  EventSink

	newData bool
	busy    bool
}

// NewMailbox creates a mailbox mapped at base. Every bus write dispatches an
// Event of the given kind to the sink.
func NewMailbox(base uint32, size int, name string, event EventKind, sink EventSink) *Mailbox {
	return &Mailbox{base: base, data: make([]byte, size), name: name, event: event, sink: sink}
}

func (m *Mailbox) Decode(addr Address) (Address, bool) {
	flat := addr.Flat()
	if flat >= m.base && flat < m.base+uint32(len(m.data)) {
		return addr, true
	}
	return Address{}, false
}

func (m *Mailbox) Read(addr Address) byte {
	offset := addr.Flat() - m.base
	if offset >= uint32(len(m.data)) {
		glog.Warningf("%s: read out of bounds at offset $%06x", m.name, offset)
		return 0xFF
	}
	m.newData = false
	return m.data[offset]
}

func (m *Mailbox) Store(addr Address, value byte) {
	offset := addr.Flat() - m.base
	if offset >= uint32(len(m.data)) {
		glog.Warningf("%s: write out of bounds at offset $%06x", m.name, offset)
		return
	}
	m.data[offset] = value
	m.newData = true
	if m.sink != nil {
		m.sink.Dispatch(Event{Kind: m.event})
	}
}

// Peek reads a byte by offset without touching the new-data flag. The CPLD
// boot copiers use this to walk a command without consuming the flag.
func (m *Mailbox) Peek(offset int) byte {
	if offset < 0 || offset >= len(m.data) {
		return 0xFF
	}
	return m.data[offset]
}

// HasNewData reports whether the mailbox has been written since the last read.
func (m *Mailbox) HasNewData() bool {
	return m.newData
}

// Busy reports the busy flag.
func (m *Mailbox) Busy() bool {
	return m.busy
}

// SetBusy sets the busy flag.
func (m *Mailbox) SetBusy(busy bool) {
	m.busy = busy
}

// Size returns the mailbox size in bytes.
func (m *Mailbox) Size() int {
	return len(m.data)
}

// Clear zeroes the mailbox and both flags.
func (m *Mailbox) Clear() {
	for i := range m.data {
		m.data[i] = 0
	}
	m.newData = false
	m.busy = false
}
