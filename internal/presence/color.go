// Package presence assigns display colors to collaborators.
package presence

import (
	"crypto/md5"
	"math/big"
)

// Palette is the fixed set of collaborator colors.
var Palette = [...]string{
	"#FF6B6B", "#4ECDC4", "#45B7D1", "#96CEB4",
	"#FFEAA7", "#DDA0DD", "#98D8C8", "#F7DC6F",
	"#BB8FCE", "#85C1E9", "#F8C471", "#82E0AA",
}

var paletteSize = big.NewInt(int64(len(Palette)))

// ColorFor maps an identity to a palette color.
// The MD5 digest of the identity is read as a big-endian integer and reduced modulo the palette size,
// so every process computes the same color without shared state.
func ColorFor(identity string) string {
	sum := md5.Sum([]byte(identity))
	n := new(big.Int).SetBytes(sum[:])
	return Palette[new(big.Int).Mod(n, paletteSize).Int64()]
}
