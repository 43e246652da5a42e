package incremental

// readULEB128 decodes an unsigned LEB128 value starting at buf[*pos] and
// advances *pos past it. Grounded on read_uleb128 in
// macho_incremental_file.hpp: fails if the input is exhausted mid-chunk
// or a 7-bit slice would shift past bit 63.
func readULEB128(buf []byte, pos *int, end int) (uint64, error) {
	var result uint64
	var bit uint
	p := *pos
	for {
		if p >= end {
			return 0, &MalformedULEB{Reason: "unexpected end of stream"}
		}
		b := buf[p]
		p++
		slice := uint64(b & 0x7f)
		if bit >= 64 || (slice<<bit)>>bit != slice {
			return 0, &MalformedULEB{Reason: "value too big"}
		}
		result |= slice << bit
		bit += 7
		if b&0x80 == 0 {
			break
		}
	}
	*pos = p
	return result, nil
}

// readSLEB128 decodes a signed LEB128 value, sign-extending when the
// terminating byte's 0x40 bit is set and fewer than 64 bits were
// consumed. Grounded on read_sleb128 in the same file.
func readSLEB128(buf []byte, pos *int, end int) (int64, error) {
	var result int64
	var bit uint
	var b byte
	p := *pos
	for {
		if p >= end {
			return 0, &MalformedSLEB{Reason: "unexpected end of stream"}
		}
		b = buf[p]
		p++
		if bit >= 64 {
			return 0, &MalformedSLEB{Reason: "value too big"}
		}
		result |= int64(b&0x7f) << bit
		bit += 7
		if b&0x80 == 0 {
			break
		}
	}
	if b&0x40 != 0 && bit < 64 {
		result |= -1 << bit
	}
	*pos = p
	return result, nil
}

// writeULEB128 appends the minimal ULEB128 encoding of v to buf.
func writeULEB128(buf []byte, v uint64) []byte {
	for {
		b := byte(v & 0x7f)
		v >>= 7
		if v != 0 {
			b |= 0x80
		}
		buf = append(buf, b)
		if v == 0 {
			break
		}
	}
	return buf
}

// writeSLEB128 appends the minimal SLEB128 encoding of v to buf.
func writeSLEB128(buf []byte, v int64) []byte {
	more := true
	for more {
		b := byte(v & 0x7f)
		v >>= 7
		if (v == 0 && b&0x40 == 0) || (v == -1 && b&0x40 != 0) {
			more = false
		} else {
			b |= 0x80
		}
		buf = append(buf, b)
	}
	return buf
}
