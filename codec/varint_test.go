package codec

import "testing"

func TestVarintRoundTrip(t *testing.T) {
	cases := []uint32{0, 1, 127, 128, 300, 16384, 1<<21 - 1, 1 << 21, 1<<28 - 1, 1<<32 - 1}
	for _, v := range cases {
		buf := putVarint(nil, v)
		got, n, err := readVarint(buf, 0)
		if err != nil {
			t.Fatalf("readVarint(%d): %v", v, err)
		}
		if got != v {
			t.Errorf("putVarint/readVarint(%d) = %d", v, got)
		}
		if n != len(buf) {
			t.Errorf("readVarint(%d) consumed %d bytes, want %d", v, n, len(buf))
		}
	}
}

func TestVarlongRoundTrip(t *testing.T) {
	cases := []uint64{0, 1, 127, 128, 1 << 40, 1<<63 - 1, ^uint64(0)}
	for _, v := range cases {
		buf := putVarlong(nil, v)
		got, n, err := readVarlong(buf, 0)
		if err != nil {
			t.Fatalf("readVarlong(%d): %v", v, err)
		}
		if got != v {
			t.Errorf("putVarlong/readVarlong(%d) = %d", v, got)
		}
		if n != varintLen(v) {
			t.Errorf("varintLen(%d) = %d, consumed %d", v, varintLen(v), n)
		}
	}
}

func TestReadVarintTruncated(t *testing.T) {
	buf := []byte{0x80, 0x80} // continuation bit set with no terminator
	if _, _, err := readVarint(buf, 0); err == nil {
		t.Fatal("expected truncated varint error")
	}
}
