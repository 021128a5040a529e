package frame

import (
	"errors"
	"testing"
)

var testAddr = Addressing{PANID: 0xDECA, Source: 0x5741, Dest: 0x4156}

// TestEncodeDecodeRoundTrip verifies decode(encode(kind, fields)) returns
// the original fields for every frame kind.
func TestEncodeDecodeRoundTrip(t *testing.T) {
	tests := []struct {
		name   string
		kind   Kind
		fields Fields
	}{
		{
			name:   "poll with counter",
			kind:   KindPoll,
			fields: Fields{Seq: 7, StsCounter: 0x11223344},
		},
		{
			name:   "response",
			kind:   KindResponse,
			fields: Fields{Seq: 1},
		},
		{
			name:   "final",
			kind:   KindFinal,
			fields: Fields{Seq: 200, PollTx: 1000, RespRx: 64000, FinalTx: 0xFFFFFFFE},
		},
		{
			name:   "report",
			kind:   KindReport,
			fields: Fields{Seq: 42, PollRx: 0xDEADBEEF, RespTx: 0x01020304},
		},
		{
			name:   "distance",
			kind:   KindDistance,
			fields: Fields{Seq: 3, DistanceMM: 7512},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := Encode(tt.kind, testAddr, tt.fields)
			got, err := Decode(b, tt.kind, testAddr)
			if err != nil {
				t.Fatalf("Decode failed: %v", err)
			}
			if got != tt.fields {
				t.Errorf("round trip mismatch: got %+v, want %+v", got, tt.fields)
			}
		})
	}
}

// TestDecodeIgnoresSequenceNumber verifies the sequence-number byte never
// participates in frame identity.
func TestDecodeIgnoresSequenceNumber(t *testing.T) {
	b := Encode(KindPoll, testAddr, Fields{Seq: 10, StsCounter: 5})
	b[SeqIdx] = 0xAB

	got, err := Decode(b, KindPoll, testAddr)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if got.Seq != 0xAB {
		t.Errorf("Seq = %#x, want 0xAB", got.Seq)
	}
	if got.StsCounter != 5 {
		t.Errorf("StsCounter = %d, want 5", got.StsCounter)
	}
}

// TestDecodeMismatchOnHeaderCorruption flips every common-header byte in
// turn (except the sequence number) and expects a mismatch each time.
func TestDecodeMismatchOnHeaderCorruption(t *testing.T) {
	for i := 0; i < CommonLen; i++ {
		if i == SeqIdx {
			continue
		}
		b := Encode(KindResponse, testAddr, Fields{Seq: 1})
		b[i] ^= 0x01
		if _, err := Decode(b, KindResponse, testAddr); !errors.Is(err, ErrMismatch) {
			t.Errorf("byte %d corrupted: err = %v, want ErrMismatch", i, err)
		}
	}
}

// TestDecodeMismatchOnWrongKind checks that a frame of one kind is
// rejected when another is awaited.
func TestDecodeMismatchOnWrongKind(t *testing.T) {
	b := Encode(KindPoll, testAddr, Fields{})
	if _, err := Decode(b, KindResponse, testAddr); !errors.Is(err, ErrMismatch) {
		t.Errorf("err = %v, want ErrMismatch", err)
	}
}

// TestDecodeMismatchOnWrongAddressing checks that frames from a different
// session are rejected.
func TestDecodeMismatchOnWrongAddressing(t *testing.T) {
	b := Encode(KindPoll, testAddr, Fields{})
	other := Addressing{PANID: 0xDECA, Source: 0x1111, Dest: 0x4156}
	if _, err := Decode(b, KindPoll, other); !errors.Is(err, ErrMismatch) {
		t.Errorf("err = %v, want ErrMismatch", err)
	}
}

// TestDecodeMismatchOnWrongLength checks the fixed frame sizes are
// enforced.
func TestDecodeMismatchOnWrongLength(t *testing.T) {
	b := Encode(KindFinal, testAddr, Fields{})
	if _, err := Decode(b[:len(b)-1], KindFinal, testAddr); !errors.Is(err, ErrMismatch) {
		t.Errorf("truncated: err = %v, want ErrMismatch", err)
	}
	if _, err := Decode(append(b, 0), KindFinal, testAddr); !errors.Is(err, ErrMismatch) {
		t.Errorf("oversized: err = %v, want ErrMismatch", err)
	}
}

// TestReverse checks the peer-view addressing swap.
func TestReverse(t *testing.T) {
	r := testAddr.Reverse()
	if r.Source != testAddr.Dest || r.Dest != testAddr.Source || r.PANID != testAddr.PANID {
		t.Errorf("Reverse() = %+v", r)
	}
	b := Encode(KindPoll, testAddr, Fields{})
	if _, err := Decode(b, KindPoll, r.Reverse()); err != nil {
		t.Errorf("double reverse should decode: %v", err)
	}
}

// TestTimestampSpan verifies the 4-byte little-endian timestamp embedding
// keeps only the low 32 bits of a 40-bit capture.
func TestTimestampSpan(t *testing.T) {
	b := make([]byte, 4)
	PutTimestamp(b, 0xAB_12345678)
	if got := Timestamp32(b); got != 0x12345678 {
		t.Errorf("Timestamp32 = %#x, want 0x12345678", got)
	}
	if b[0] != 0x78 || b[3] != 0x12 {
		t.Errorf("not little-endian: % x", b)
	}
}
