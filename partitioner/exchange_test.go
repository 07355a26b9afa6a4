package partitioner

import "testing"

func TestHeaderRoundTrip(t *testing.T) {
	in := []header{
		{srcRank: 0, tag: 0, destRank: 1, destDomain: 3},
		{srcRank: 0, tag: 1, destRank: 2, destDomain: 4},
	}
	var buf []byte
	for _, h := range in {
		buf = append(buf, encodeHeader(h)...)
	}

	out := decodeHeaders(buf)
	if len(out) != len(in) {
		t.Fatalf("decodeHeaders returned %d headers, want %d", len(out), len(in))
	}
	for i := range in {
		if out[i] != in[i] {
			t.Fatalf("header %d = %+v, want %+v", i, out[i], in[i])
		}
	}
}

func TestDecodeHeadersEmpty(t *testing.T) {
	if out := decodeHeaders(nil); len(out) != 0 {
		t.Fatalf("decodeHeaders(nil) = %v, want empty", out)
	}
}
