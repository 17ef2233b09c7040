package admin

import (
	"encoding/json"

	"github.com/gin-gonic/gin"
)

// FlashCookie 保存一次性提示消息。
const FlashCookie = "admin_flash"

// Flash 是一次性提示，Kind 为 success、error 或 info。
type Flash struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

func (h *Handler) setFlash(c *gin.Context, kind, message string) {
	data, err := json.Marshal(Flash{Kind: kind, Message: message})
	if err != nil {
		return
	}
	c.SetCookie(FlashCookie, string(data), 60, "/admin", "", h.opts.SecureCookie, true)
}

// popFlash 读取并清除提示消息。
func (h *Handler) popFlash(c *gin.Context) *Flash {
	raw, err := c.Cookie(FlashCookie)
	if err != nil || raw == "" {
		return nil
	}
	c.SetCookie(FlashCookie, "", -1, "/admin", "", h.opts.SecureCookie, true)
	var f Flash
	if err := json.Unmarshal([]byte(raw), &f); err != nil {
		return nil
	}
	return &f
}
