package oracle

import (
	"flag"
	"log"
	"math"
	"math/big"
	"math/rand/v2"
	"os"
	"testing"
	"time"

	"kernelcheck/internal/kernel"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	oracleIterations = 20000
	oracleSeed       uint64

	rng *rand.Rand
)

func TestMain(m *testing.M) {
	flag.IntVar(&oracleIterations, "oracle.iter", oracleIterations, "Number of random cases per property")
	flag.Uint64Var(&oracleSeed, "oracle.seed", oracleSeed, "Seed the RNG (0 == current nanotime)")
	flag.Parse()

	if oracleSeed == 0 {
		oracleSeed = uint64(time.Now().UnixNano())
	}
	rng = rand.New(rand.NewPCG(oracleSeed, oracleSeed>>32|1))
	log.Println("oracle seed:", oracleSeed)

	os.Exit(m.Run())
}

var wrap32 = new(big.Int).Lsh(big.NewInt(1), 32)

func bigMod32(v *big.Int) uint32 {
	return uint32(new(big.Int).Mod(v, wrap32).Uint64())
}

// edgeValues covers the carries that tend to break hand-written multipliers.
var edgeValues = []uint32{
	0, 1, 2, 3,
	math.MaxUint16 - 1, math.MaxUint16, math.MaxUint16 + 1,
	math.MaxInt32 - 1, math.MaxInt32, math.MaxInt32 + 1,
	math.MaxUint32 - 1, math.MaxUint32,
}

func randomOperand() uint32 {
	// Spread operands across bit lengths rather than letting almost every
	// draw land in the top bit range.
	bits := rng.IntN(33)
	if bits == 0 {
		return 0
	}
	v := rng.Uint32() & (math.MaxUint32 >> (32 - bits))
	return v | 1<<(bits-1)
}

func TestMul_MatchesBigInt(t *testing.T) {
	check := func(x, y uint32) {
		want := bigMod32(new(big.Int).Mul(big.NewInt(int64(x)), big.NewInt(int64(y))))
		if got := Mul(x, y); got != want {
			t.Fatalf("Mul(%08x, %08x) = %08x, want %08x", x, y, got, want)
		}
	}
	for _, x := range edgeValues {
		for _, y := range edgeValues {
			check(x, y)
		}
	}
	for i := 0; i < oracleIterations; i++ {
		check(randomOperand(), randomOperand())
	}
}

func TestDot_MatchesBigInt(t *testing.T) {
	for i := 0; i < oracleIterations/20; i++ {
		n := 1 + rng.IntN(kernel.DefaultMaxN)
		a := make([]uint32, n)
		b := make([]uint32, n)
		sum := new(big.Int)
		for j := 0; j < n; j++ {
			a[j], b[j] = randomOperand(), randomOperand()
			sum.Add(sum, new(big.Int).Mul(big.NewInt(int64(a[j])), big.NewInt(int64(b[j]))))
		}
		// One final reduction of the exact sum must equal reducing at every step.
		want := bigMod32(sum)
		if got := Dot(a, b); got != want {
			t.Fatalf("Dot n=%d = %08x, want %08x\nA: %s\nB: %s",
				n, got, want, kernel.HexList(a), kernel.HexList(b))
		}
	}
}

func TestMul_Scenarios(t *testing.T) {
	assert.Equal(t, uint32(0xFFFFFFFC), Mul(0xFFFFFFFE, 2))
	assert.Equal(t, uint32(1), Mul(math.MaxUint32, math.MaxUint32))
	assert.Equal(t, uint32(0), Mul(1<<16, 1<<16))
	assert.Equal(t, uint32(0), Mul(0, math.MaxUint32))
}

func TestDot_Scenarios(t *testing.T) {
	assert.Equal(t, uint32(0), Dot([]uint32{1, 1}, []uint32{0xFFFFFFFF, 1}))
	assert.Equal(t, uint32(32), Dot([]uint32{1, 2, 3}, []uint32{4, 5, 6}))
	assert.Equal(t, uint32(0), Dot(nil, nil))
	assert.Equal(t, uint32(2), Dot([]uint32{math.MaxUint32, math.MaxUint32}, []uint32{math.MaxUint32, math.MaxUint32}))
}

func TestAdd_Wraps(t *testing.T) {
	assert.Equal(t, uint32(0), Add(math.MaxUint32, 1))
	assert.Equal(t, uint32(math.MaxUint32-1), Add(math.MaxUint32, math.MaxUint32))
}

func TestDot_PanicsOnLengthMismatch(t *testing.T) {
	require.Panics(t, func() { Dot([]uint32{1}, []uint32{1, 2}) })
}

func TestExpected_Dispatch(t *testing.T) {
	assert.Equal(t, uint32(0xFFFFFFFC), Expected(kernel.MulInput{X: 0xFFFFFFFE, Y: 2}))
	assert.Equal(t, uint32(0xFFFFFFFC), Expected(&kernel.MulInput{X: 0xFFFFFFFE, Y: 2}))
	assert.Equal(t, uint32(0), Expected(kernel.DotInput{A: []uint32{1, 1}, B: []uint32{0xFFFFFFFF, 1}}))
	assert.Equal(t, uint32(32), Expected(&kernel.DotInput{A: []uint32{1, 2, 3}, B: []uint32{4, 5, 6}}))
}
