package admin

import (
	"net/http"
	"net/url"
	"path"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const sessionContextKey = "admin_session"

// SessionFrom 返回 Gate 放入上下文的会话。
func SessionFrom(c *gin.Context) (Session, bool) {
	v, ok := c.Get(sessionContextKey)
	if !ok {
		return Session{}, false
	}
	s, ok := v.(Session)
	return s, ok
}

// Gate 要求有效会话。页面请求重定向到登录页并带上 next，API 请求返回 401。
func (h *Handler) Gate() gin.HandlerFunc {
	return func(c *gin.Context) {
		sess, ok := h.currentSession(c)
		if !ok {
			if strings.HasPrefix(c.Request.URL.Path, "/admin/api/") {
				c.AbortWithStatusJSON(http.StatusUnauthorized, apiResponse{Success: false, Message: "No autorizado."})
				return
			}
			c.Redirect(http.StatusFound, "/admin/login?next="+url.QueryEscape(c.Request.URL.RequestURI()))
			c.Abort()
			return
		}
		c.Set(sessionContextKey, sess)
		c.Next()
	}
}

func (h *Handler) currentSession(c *gin.Context) (Session, bool) {
	token, err := c.Cookie(SessionCookie)
	if err != nil || token == "" {
		return Session{}, false
	}
	id, err := h.signer.Parse(token)
	if err != nil {
		return Session{}, false
	}
	sess, ok, err := h.sessions.Get(c.Request.Context(), id)
	if err != nil {
		h.logger.Warn("session lookup failed", zap.Error(err))
		return Session{}, false
	}
	return sess, ok
}

// safeNext 只接受 /admin 下的站内路径。
func safeNext(next string) string {
	const fallback = "/admin/"
	if next == "" || strings.HasPrefix(next, "//") || strings.Contains(next, "\\") {
		return fallback
	}
	u, err := url.Parse(next)
	if err != nil || u.Scheme != "" || u.Host != "" {
		return fallback
	}
	cleaned := path.Clean(u.Path)
	if cleaned != "/admin" && !strings.HasPrefix(cleaned, "/admin/") {
		return fallback
	}
	return u.RequestURI()
}
