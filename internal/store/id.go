package store

import (
	"strings"

	"github.com/google/uuid"
)

// ID接頭辞
const (
	UserIDPrefix  = "u_"
	TeamIDPrefix  = "t_"
	BoardIDPrefix = "b_"
	TaskIDPrefix  = "task_"
)

const (
	idSuffixLen   = 6
	maxIDAttempts = 32
)

// NewID は接頭辞にランダムな16進6文字を付けたIDを生成する。
// takenが既存IDと判定した値は避けて再生成する。
func NewID(prefix string, taken func(id string) bool) string {
	var id string
	for i := 0; i < maxIDAttempts; i++ {
		id = prefix + randomSuffix(idSuffixLen)
		if taken == nil || !taken(id) {
			return id
		}
	}
	// 6文字の空間が埋まりかけている場合は長いサフィックスにする
	return prefix + randomSuffix(32)
}

func randomSuffix(n int) string {
	hex := strings.ReplaceAll(uuid.New().String(), "-", "")
	if n > len(hex) {
		n = len(hex)
	}
	return hex[:n]
}
