package randomutils

import (
	"encoding/binary"
	"math/rand"
)

// ForkSeed draws a seed for a child random provider from the provided one. Each trial of a fuzzing campaign is seeded
// from its own fork so that trials stay reproducible regardless of which worker executes them.
func ForkSeed(randomProvider *rand.Rand) int64 {
	b := make([]byte, 8)
	_, err := randomProvider.Read(b)
	if err != nil {
		panic(err)
	}
	return int64(binary.LittleEndian.Uint64(b))
}

// RandomBytes returns a byte slice of a uniformly random length in [minLength, maxLength], filled with random data.
func RandomBytes(randomProvider *rand.Rand, minLength int, maxLength int) []byte {
	length := minLength
	if maxLength > minLength {
		length += randomProvider.Intn(maxLength - minLength + 1)
	}
	b := make([]byte, length)
	_, err := randomProvider.Read(b)
	if err != nil {
		panic(err)
	}
	return b
}

// SampleDistinct returns count distinct elements of x chosen uniformly at random, in random order. If count exceeds
// the length of x, every element is returned in a random order.
func SampleDistinct[T any](randomProvider *rand.Rand, x []T, count int) []T {
	if count > len(x) {
		count = len(x)
	}
	indices := randomProvider.Perm(len(x))
	r := make([]T, count)
	for i := 0; i < count; i++ {
		r[i] = x[indices[i]]
	}
	return r
}

// Choose returns a uniformly random element of x. x must not be empty.
func Choose[T any](randomProvider *rand.Rand, x []T) T {
	return x[randomProvider.Intn(len(x))]
}
