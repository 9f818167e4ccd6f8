package gateway

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"math"
	"time"

	"github.com/google/uuid"
)

// Sign computes the hex HMAC-SHA256 proving a submission comes from the
// holder of the player key on a known board. The message is the
// little-endian unix timestamp, the board secret, the player id, the
// score as little-endian float32 bits and the meta payload, in that
// order. Game clients sign the score at 32-bit precision, so the mac
// covers float32(value) even though submissions carry a float64.
func Sign(playerKey, boardSecret, playerID uuid.UUID, value float64, ts time.Time, meta string) string {
	mac := hmac.New(sha256.New, playerKey[:])

	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], uint64(ts.Unix()))
	mac.Write(buf[:])
	mac.Write(boardSecret[:])
	mac.Write(playerID[:])
	binary.LittleEndian.PutUint32(buf[:4], math.Float32bits(float32(value)))
	mac.Write(buf[:4])
	mac.Write([]byte(meta))

	return hex.EncodeToString(mac.Sum(nil))
}

// verifySignature checks a supplied hex mac in constant time.
func verifySignature(supplied string, playerKey, boardSecret, playerID uuid.UUID, value float64, ts time.Time, meta string) bool {
	suppliedMac, err := hex.DecodeString(supplied)
	if err != nil {
		return false
	}
	expected, err := hex.DecodeString(Sign(playerKey, boardSecret, playerID, value, ts, meta))
	if err != nil {
		return false
	}
	return hmac.Equal(suppliedMac, expected)
}
