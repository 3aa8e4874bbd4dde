package zkp

import (
	"math/big"

	"github.com/consensys/gnark-crypto/ecc"
)

const (
	ElipticalCurveID = ecc.BN254
)

// Field returns the scalar field modulus circuits are compiled over.
func Field() *big.Int {
	return ElipticalCurveID.ScalarField()
}

func reduce(v *big.Int) *big.Int {
	return new(big.Int).Mod(v, Field())
}
