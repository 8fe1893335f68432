// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package pipe

// Cursor reads ahead in a pipe without consuming. The readable range is the
// snapshot taken by the last Reset; bytes written after that are not visible.
type Cursor struct {
	p      *Pipe
	base   uint32
	size   int
	offset int
}

// Reset positions the cursor offset bytes past the current read index
func (c *Cursor) Reset(offset int) {
	c.base = c.p.r.Load()
	c.size = c.p.used(c.base, c.p.w.Load())
	c.offset = offset
}

// Offset returns the cursor position relative to the read index
func (c *Cursor) Offset() int {
	return c.offset
}

// Len returns the number of bytes visible to the cursor
func (c *Cursor) Len() int {
	return c.size
}

// Next returns the byte under the cursor and advances it
func (c *Cursor) Next() (byte, error) {
	if c.offset < 0 || c.offset >= c.size {
		return 0, ErrBufferUnderrun
	}
	b := c.p.buf[(int(c.base)+c.offset)%len(c.p.buf)]
	c.offset++
	return b, nil
}
