package zkp

import (
	"math/big"

	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
	frmimc "github.com/consensys/gnark-crypto/ecc/bn254/fr/mimc"
	"golang.org/x/crypto/sha3"
)

// HashToField maps arbitrary bytes to a scalar field element with Keccak-256.
func HashToField(parts ...[]byte) *big.Int {
	h := sha3.NewLegacyKeccak256()
	for _, part := range parts {
		h.Write(part)
	}
	return reduce(new(big.Int).SetBytes(h.Sum(nil)))
}

// Commit computes the MiMC digest of the inputs, matching the in-circuit hasher.
func Commit(inputs ...*big.Int) *big.Int {
	h := frmimc.NewMiMC()
	for _, x := range inputs {
		var fe fr.Element
		fe.SetBigInt(x)
		h.Write(fe.Marshal())
	}

	var out fr.Element
	out.SetBytes(h.Sum(nil))
	return out.BigInt(new(big.Int))
}
