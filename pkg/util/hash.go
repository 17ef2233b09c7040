package util

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
)

// HashMap 返回 map 的稳定 hash，错误日志用它标识失败的行。
// 键值之间写入分隔符，避免 {"ab":"c"} 与 {"a":"bc"} 得到相同结果。
func HashMap(m map[string]any) string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	h := sha256.New()
	for _, k := range keys {
		fmt.Fprintf(h, "%s\x1f%v\x1e", k, m[k])
	}
	return hex.EncodeToString(h.Sum(nil))
}
