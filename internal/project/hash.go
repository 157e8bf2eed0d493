package project

import "crypto/sha256"

// Digest is a SHA-256 content hash.
type Digest [32]byte

// HashContent hashes one schema file.
func HashContent(content []byte) Digest {
	return sha256.Sum256(content)
}

// Combine hashes content followed by each of parts, in order. The manifest
// cache keys entries by Combine(schema hash, tool version hash).
func Combine(content Digest, parts ...Digest) Digest {
	h := sha256.New()
	_, _ = h.Write(content[:])
	for _, d := range parts {
		_, _ = h.Write(d[:])
	}
	var out Digest
	copy(out[:], h.Sum(nil))
	return out
}
