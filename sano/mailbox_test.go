package sano

import "testing"

func TestMailboxReadClearsNewData(t *testing.T) {
	sink := &recordingSink{}
	mb := NewMailbox(0x400000, 1024, "mailbox A", EventMailboxAWrite, sink)

	mb.Store(AddressFromFlat(0x400000), 0x42)
	if !mb.HasNewData() {
		t.Fatal("new data flag not set after write")
	}
	if got := mb.Read(AddressFromFlat(0x400000)); got != 0x42 {
		t.Errorf("read: got=0x%02x, want=0x42", got)
	}
	if mb.HasNewData() {
		t.Error("new data flag still set after read")
	}
}

func TestMailboxWriteDispatchesEvent(t *testing.T) {
	sink := &recordingSink{}
	mb := NewMailbox(0x410000, 1024, "mailbox B", EventMailboxBWrite, sink)

	mb.Store(AddressFromFlat(0x410005), 0x01)
	mb.Store(AddressFromFlat(0x410006), 0x02)
	if got := sink.count(EventMailboxBWrite); got != 2 {
		t.Errorf("write events: got=%d, want=2", got)
	}
}

func TestMailboxPeekKeepsNewData(t *testing.T) {
	sink := &recordingSink{}
	mb := NewMailbox(0x400000, 1024, "mailbox A", EventMailboxAWrite, sink)

	mb.Store(AddressFromFlat(0x400003), 0x99)
	if got := mb.Peek(3); got != 0x99 {
		t.Errorf("peek: got=0x%02x, want=0x99", got)
	}
	if !mb.HasNewData() {
		t.Error("peek must not clear the new data flag")
	}
}

func TestMailboxDecode(t *testing.T) {
	mb := NewMailbox(0x400000, 1024, "mailbox A", EventMailboxAWrite, nil)
	if _, ok := mb.Decode(AddressFromFlat(0x400000)); !ok {
		t.Error("base address not decoded")
	}
	if _, ok := mb.Decode(AddressFromFlat(0x4003FF)); !ok {
		t.Error("last byte not decoded")
	}
	if _, ok := mb.Decode(AddressFromFlat(0x400400)); ok {
		t.Error("address past end decoded")
	}
}

func TestMailboxClear(t *testing.T) {
	mb := NewMailbox(0x400000, 16, "mailbox A", EventMailboxAWrite, nil)
	mb.Store(AddressFromFlat(0x400001), 0xAA)
	mb.SetBusy(true)
	mb.Clear()
	if mb.Peek(1) != 0 || mb.HasNewData() || mb.Busy() {
		t.Error("clear did not reset data and flags")
	}
}
