package recording

import (
	"encoding/hex"

	"golang.org/x/crypto/blake2b"

	"slaunch/internal/event"
)

// Digest returns the BLAKE2b-256 hex digest of data.
func Digest(data []byte) string {
	sum := blake2b.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// BufferDigest digests the serialized form of buf.
func BufferDigest(buf event.Buffer) (string, error) {
	data, err := Serialize(buf)
	if err != nil {
		return "", err
	}
	return Digest(data), nil
}
