package incremental

import "testing"

func TestULEB128RoundTrip(t *testing.T) {
	vals := []uint64{0, 1, 0x7f, 0x80, 0xffff, 1 << 34, 1<<64 - 1}
	for _, v := range vals {
		buf := writeULEB128(nil, v)
		pos := 0
		got, err := readULEB128(buf, &pos, len(buf))
		if err != nil {
			t.Fatalf("readULEB128(%d): %v", v, err)
		}
		if got != v {
			t.Errorf("round trip %d -> %d", v, got)
		}
		if pos != len(buf) {
			t.Errorf("cursor left at %d, want %d", pos, len(buf))
		}
	}
}

func TestSLEB128RoundTrip(t *testing.T) {
	vals := []int64{0, 1, -1, 63, -64, 64, -65, 1 << 40, -(1 << 40)}
	for _, v := range vals {
		buf := writeSLEB128(nil, v)
		pos := 0
		got, err := readSLEB128(buf, &pos, len(buf))
		if err != nil {
			t.Fatalf("readSLEB128(%d): %v", v, err)
		}
		if got != v {
			t.Errorf("round trip %d -> %d", v, got)
		}
	}
}

func TestULEB128Truncated(t *testing.T) {
	buf := []byte{0x80, 0x80}
	pos := 0
	if _, err := readULEB128(buf, &pos, len(buf)); err == nil {
		t.Fatal("expected error on truncated uleb128")
	}
}

func TestULEB128TooBig(t *testing.T) {
	buf := make([]byte, 11)
	for i := range buf {
		buf[i] = 0xff
	}
	buf[len(buf)-1] = 0x7f
	pos := 0
	if _, err := readULEB128(buf, &pos, len(buf)); err == nil {
		t.Fatal("expected overflow error")
	}
}

func TestSLEB128Truncated(t *testing.T) {
	buf := []byte{0x80}
	pos := 0
	if _, err := readSLEB128(buf, &pos, len(buf)); err == nil {
		t.Fatal("expected error on truncated sleb128")
	}
}
