// Package prg implements the session-seeded pseudorandom expansion
// used by Correlated OT Extension (spec §4.4) to turn a short base-OT
// key into many output rows, and by Random OT Extension (§4.5) to
// derive the consistency-check challenge field elements χ_i.
//
// Every expansion is keyed by a caller-supplied sid: reusing a sid
// across two extensions that share the same base-OT setup breaks the
// extension's security, which is why callers (internal/engine-driven
// protocols in pkg/ot) are required to pass a fresh sid per
// invocation (spec §9).
package prg

import (
	"encoding/binary"
	"io"

	"github.com/zeebo/blake3"
	"golang.org/x/crypto/chacha20"

	"github.com/sigmabit/threshold-ecdsa/internal/bitvec"
)

// stream returns a blake3 XOF keyed by (sid, label, key...), ready to
// be read for as many bytes as the caller needs.
func stream(sid []byte, label string, key []byte) io.Reader {
	h := blake3.NewDeriveKey("threshold-ecdsa/prg/v1/" + label)
	_, _ = h.Write(sid)
	_, _ = h.Write(key)
	return h.Digest()
}

// columnCipher derives a chacha20 keystream from (sid, key): blake3's
// XOF handles the short, collision-resistant key-derivation side, and
// chacha20 handles the bulk expansion itself, one output bit per
// extension row. Splitting "derive a key"
// from "expand a key into a long pseudorandom stream" the way this
// does is the idiomatic pairing of a KDF and a stream cipher.
func columnCipher(sid []byte, key bitvec.Elem) *chacha20.Cipher {
	var material [chacha20.KeySize + chacha20.NonceSize]byte
	if _, err := io.ReadFull(stream(sid, "column-key", key[:]), material[:]); err != nil {
		panic(err)
	}
	c, err := chacha20.NewUnauthenticatedCipher(material[:chacha20.KeySize], material[chacha20.KeySize:])
	if err != nil {
		panic(err)
	}
	return c
}

// ExpandColumnBits expands a single base-OT key into numBits
// pseudorandom bits, packed big-endian (bit 0 = MSB of byte 0). This
// realizes PRG_sid(K^b_{j•}) of §4.4 for one column j; callers
// transpose the per-column streams into rows (see ColumnsToRows).
func ExpandColumnBits(sid []byte, key bitvec.Elem, numBits int) []byte {
	numBytes := (numBits + 7) / 8
	zero := make([]byte, numBytes)
	out := make([]byte, numBytes)
	columnCipher(sid, key).XORKeyStream(out, zero)
	return out
}

// bitAt returns bit i (MSB-first) of a packed byte slice.
func bitAt(packed []byte, i int) bool {
	return packed[i/8]&(0x80>>uint(i%8)) != 0
}

// ColumnsToRows transposes λ per-column pseudorandom bitstrings
// (each numRows bits long) into numRows λ-bit rows, the PRG_sid(K)_i
// indexing of §4.4 rewritten row-major for the rest of the OT
// extension pipeline (see pkg/ot).
func ColumnsToRows(columns [bitvec.LambdaBits][]byte, numRows int) []bitvec.Elem {
	rows := make([]bitvec.Elem, numRows)
	for j := 0; j < bitvec.LambdaBits; j++ {
		col := columns[j]
		for i := 0; i < numRows; i++ {
			if bitAt(col, i) {
				rows[i].SetBit(j)
			}
		}
	}
	return rows
}

// ExpandChallenges derives count challenge field elements χ_i ∈
// GF(2^128) from a combined seed (sR ⊕ sS in §4.5(c)), one per
// extended-OT row including the 2λ statistical padding rows.
func ExpandChallenges(seed []byte, count int) []bitvec.Elem {
	out := make([]bitvec.Elem, count)
	for i := range out {
		var idx [8]byte
		binary.BigEndian.PutUint64(idx[:], uint64(i))
		h := blake3.NewDeriveKey("threshold-ecdsa/prg/v1/challenge-row")
		_, _ = h.Write(seed)
		_, _ = h.Write(idx[:])
		if _, err := io.ReadFull(h.Digest(), out[i][:]); err != nil {
			panic(err)
		}
	}
	return out
}
