// Package oracle computes the exact fixed-width result a kernel must
// produce. All arithmetic is done in 64 bits and explicitly reduced to
// 32 bits after every multiply and every add, which is what a 32-bit
// multiplier feeding a 32-bit accumulator does in hardware.
package oracle

import (
	"fmt"

	"kernelcheck/internal/kernel"
)

const mask32 = 1<<32 - 1

// Mul returns (x * y) mod 2^32.
func Mul(x, y uint32) uint32 {
	p := uint64(x) * uint64(y)
	return uint32(p & mask32)
}

// Add returns (x + y) mod 2^32.
func Add(x, y uint32) uint32 {
	s := uint64(x) + uint64(y)
	return uint32(s & mask32)
}

// Dot returns sum(a[i]*b[i]) mod 2^32, reducing each product and each
// partial sum. It panics if the lengths differ.
func Dot(a, b []uint32) uint32 {
	if len(a) != len(b) {
		panic(fmt.Sprintf("oracle: dot operands differ in length: %d != %d", len(a), len(b)))
	}
	var acc uint32
	for i := range a {
		acc = Add(acc, Mul(a[i], b[i]))
	}
	return acc
}

// Expected returns the reference result for inst.
func Expected(inst kernel.Instance) uint32 {
	switch in := inst.(type) {
	case kernel.MulInput:
		return Mul(in.X, in.Y)
	case *kernel.MulInput:
		return Mul(in.X, in.Y)
	case kernel.DotInput:
		return Dot(in.A, in.B)
	case *kernel.DotInput:
		return Dot(in.A, in.B)
	}
	panic(fmt.Sprintf("oracle: unsupported instance type %T", inst))
}
