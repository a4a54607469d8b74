package sano

import "github.com/golang/glog"

// RAM is a flat byte buffer mapped at a base address. It is a pass-through
// bus device; the CPLD boot copiers and the video renderer also access it
// directly by flat address.
type RAM struct {
	base uint32
	data []byte
	name string
}

// NewRAM creates a RAM module of the given size mapped at base.
func NewRAM(base uint32, size int, name string) *RAM {
	return &RAM{base: base, data: make([]byte, size), name: name}
}

func (r *RAM) Decode(addr Address) (Address, bool) {
	flat := addr.Flat()
	if flat >= r.base && flat < r.base+uint32(len(r.data)) {
		return addr, true
	}
	return Address{}, false
}

func (r *RAM) Read(addr Address) byte {
	offset := addr.Flat() - r.base
	if offset >= uint32(len(r.data)) {
		glog.Warningf("%s: read out of bounds at offset $%06x", r.name, offset)
		return 0xFF
	}
	return r.data[offset]
}

func (r *RAM) Store(addr Address, value byte) {
	offset := addr.Flat() - r.base
	if offset >= uint32(len(r.data)) {
		glog.Warningf("%s: write out of bounds at offset $%06x", r.name, offset)
		return
	}
	r.data[offset] = value
}

// ReadFlat reads by flat address relative to the RAM's own base. Out-of-range
// reads return 0xFF like the bus path.
func (r *RAM) ReadFlat(flat uint32) byte {
	offset := flat - r.base
	if offset >= uint32(len(r.data)) {
		return 0xFF
	}
	return r.data[offset]
}

// StoreFlat writes by flat address relative to the RAM's own base.
func (r *RAM) StoreFlat(flat uint32, value byte) {
	offset := flat - r.base
	if offset >= uint32(len(r.data)) {
		return
	}
	r.data[offset] = value
}

// Size returns the RAM size in bytes.
func (r *RAM) Size() int {
	return len(r.data)
}

// Clear fills the RAM with a value.
func (r *RAM) Clear(value byte) {
	for i := range r.data {
		r.data[i] = value
	}
}
