package scramblehash

import (
	"testing"

	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestPreimageLayout(t *testing.T) {
	var slotHash, miner, batch [32]byte
	for i := range slotHash {
		slotHash[i] = byte(i)
		miner[i] = byte(i + 1)
		batch[i] = byte(i + 2)
	}
	nonce := NonceBytes(0xdeadbeef, 0x1)

	pre := Preimage(1234, slotHash, miner, batch, nonce)
	require.Len(t, pre, PreimageSize)
	require.Equal(t, "CLOAK:SCRAMBLE:v1", string(pre[0:17]))
	require.Equal(t, byte(1234), pre[17]) // LE low byte of slot
	require.Equal(t, slotHash[:], pre[25:57])
	require.Equal(t, miner[:], pre[57:89])
	require.Equal(t, batch[:], pre[89:121])
	require.Equal(t, nonce[:], pre[121:137])
}

func TestProofHashDeterministic(t *testing.T) {
	var a, b, c [32]byte
	a[0], b[0], c[0] = 1, 2, 3
	nonce := NonceBytes(0, 7)

	h1 := ProofHash(10, a, b, c, nonce)
	h2 := ProofHash(10, a, b, c, nonce)
	require.Equal(t, h1, h2, "hashing the same preimage twice must yield the same digest")

	h3 := ProofHash(11, a, b, c, nonce)
	require.NotEqual(t, h1, h3)
}

func TestMeetsDifficultyBoundary(t *testing.T) {
	var difficulty [32]byte
	difficulty[31] = 0x01 // byte 31 is the most significant byte under our LE convention, so this is 2^248

	// currentDifficulty interpreted LE: set byte 0 (least significant) to 2.
	var diff2 [32]byte
	diff2[0] = 2

	var equalToDiff [32]byte
	equalToDiff[0] = 2
	require.False(t, MeetsDifficulty(equalToDiff, diff2), "equal value must fail (not strictly less)")

	var oneLess [32]byte
	oneLess[0] = 1
	require.True(t, MeetsDifficulty(oneLess, diff2), "one less must succeed")

	var oneMore [32]byte
	oneMore[0] = 3
	require.False(t, MeetsDifficulty(oneMore, diff2))
}

func TestCompareLE256MSBDown(t *testing.T) {
	var small, large [32]byte
	small[0] = 0xFF // small value is 0xFF at the LSB
	large[31] = 0x01 // large value has its MSB set -> vastly larger

	require.Equal(t, -1, CompareLE256(small, large))
	require.Equal(t, 1, CompareLE256(large, small))
	require.Equal(t, 0, CompareLE256(small, small))
}

func TestIncNonceWraps(t *testing.T) {
	var allOnes [16]byte
	for i := range allOnes {
		allOnes[i] = 0xFF
	}
	wrapped := IncNonce(allOnes)
	var zero [16]byte
	require.Equal(t, zero, wrapped)
}

func TestNonceRoundTrip(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		hi := rapid.Uint64().Draw(rt, "hi")
		lo := rapid.Uint64().Draw(rt, "lo")
		nonce := NonceBytes(hi, lo)
		gotHi, gotLo := NonceHalves(nonce)
		if gotHi != hi || gotLo != lo {
			rt.Fatalf("round trip mismatch: got (%d,%d) want (%d,%d)", gotHi, gotLo, hi, lo)
		}
	})
}

func TestCompareLE256Property(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		var a, b [32]byte
		for i := range a {
			a[i] = byte(rapid.IntRange(0, 255).Draw(rt, "a"))
			b[i] = byte(rapid.IntRange(0, 255).Draw(rt, "b"))
		}
		got := CompareLE256(a, b)
		want := CompareLE256(b, a) * -1
		if a == b {
			want = 0
		}
		if got != want {
			rt.Fatalf("compare not antisymmetric: CompareLE256(a,b)=%d CompareLE256(b,a)=%d", got, CompareLE256(b, a))
		}
	})
}
