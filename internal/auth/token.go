package auth

import (
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/google/uuid"
)

// MintToken はユーザーIDとランダムなUUIDと現在時刻からトークンを生成する。
// トークンはSHA-256の16進表現（64文字）。
func MintToken(userID string) string {
	seed := userID + uuid.New().String() + time.Now().Format(time.RFC3339Nano)
	sum := sha256.Sum256([]byte(seed))
	return hex.EncodeToString(sum[:])
}
