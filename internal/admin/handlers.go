package admin

import (
	"embed"
	"fmt"
	"html/template"
	"io"
	"net/http"
	"strings"
	"time"

	"excel2dataverse/internal/configstore"
	"excel2dataverse/internal/metrics"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

//go:embed templates/*.html
var templateFS embed.FS

// 请求体上限，列表文件都很小。
const maxListBody = 1 << 20

// Options 控制会话有效期与 cookie 属性。
type Options struct {
	SessionTTL   time.Duration
	SecureCookie bool
}

// Handler 提供后台登录与列表维护页面。
type Handler struct {
	lists    *configstore.Store
	sessions SessionStore
	verifier Verifier
	signer   *Signer
	opts     Options
	logger   *zap.Logger
	tmpl     *template.Template
}

type apiResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// NewHandler 创建后台 Handler 并解析内嵌模板。
func NewHandler(lists *configstore.Store, sessions SessionStore, verifier Verifier, signer *Signer, opts Options, logger *zap.Logger) (*Handler, error) {
	if lists == nil || sessions == nil || verifier == nil || signer == nil {
		return nil, fmt.Errorf("admin handler 依赖未注入完整")
	}
	if opts.SessionTTL <= 0 {
		opts.SessionTTL = 12 * time.Hour
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	tmpl, err := template.ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("解析后台模板失败: %w", err)
	}
	return &Handler{
		lists:    lists,
		sessions: sessions,
		verifier: verifier,
		signer:   signer,
		opts:     opts,
		logger:   logger,
		tmpl:     tmpl,
	}, nil
}

// RegisterRoutes 在 /admin 下注册全部路由。
func (h *Handler) RegisterRoutes(engine *gin.Engine) {
	engine.SetHTMLTemplate(h.tmpl)

	g := engine.Group("/admin")
	g.GET("/login", h.loginPage)
	g.POST("/login", h.login)
	g.GET("/logout", h.logout)

	authed := g.Group("", h.Gate())
	authed.GET("/", h.dashboard)
	authed.GET("/listas", h.listIndex)
	authed.GET("/listas/editar/:name", h.editPage)
	authed.POST("/listas/editar/:name", h.editSubmit)
	authed.POST("/api/listas/:name", h.apiUpdate)
}

func (h *Handler) render(c *gin.Context, status int, name, title string, data gin.H) {
	if data == nil {
		data = gin.H{}
	}
	data["Title"] = title
	if _, ok := data["Flash"]; !ok {
		data["Flash"] = h.popFlash(c)
	}
	_, data["Authed"] = SessionFrom(c)
	c.HTML(status, name, data)
}

func (h *Handler) loginPage(c *gin.Context) {
	if _, ok := h.currentSession(c); ok {
		c.Redirect(http.StatusFound, "/admin/")
		return
	}
	h.render(c, http.StatusOK, "login.html", "Acceso", gin.H{"Next": c.Query("next")})
}

func (h *Handler) login(c *gin.Context) {
	next := c.Query("next")
	if next == "" {
		next = c.PostForm("next")
	}
	if !h.verifier.Verify(c.PostForm("password")) {
		metrics.AdminLogins.WithLabelValues("failure").Inc()
		h.logger.Warn("admin login rejected", zap.String("client_ip", c.ClientIP()))
		h.render(c, http.StatusUnauthorized, "login.html", "Acceso", gin.H{
			"Next":  next,
			"Flash": &Flash{Kind: "error", Message: "Contraseña incorrecta."},
		})
		return
	}

	sess, err := h.sessions.Create(c.Request.Context(), h.opts.SessionTTL)
	if err != nil {
		h.logger.Error("create session failed", zap.Error(err))
		c.AbortWithStatus(http.StatusInternalServerError)
		return
	}
	token, err := h.signer.Sign(sess)
	if err != nil {
		h.logger.Error("sign session failed", zap.Error(err))
		c.AbortWithStatus(http.StatusInternalServerError)
		return
	}
	metrics.AdminLogins.WithLabelValues("success").Inc()
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(SessionCookie, token, int(h.opts.SessionTTL.Seconds()), "/admin", "", h.opts.SecureCookie, true)
	h.setFlash(c, "success", "Inicio de sesión exitoso.")
	c.Redirect(http.StatusFound, safeNext(next))
}

func (h *Handler) logout(c *gin.Context) {
	if token, err := c.Cookie(SessionCookie); err == nil && token != "" {
		if id, err := h.signer.Parse(token); err == nil {
			if err := h.sessions.Delete(c.Request.Context(), id); err != nil {
				h.logger.Warn("delete session failed", zap.Error(err))
			}
		}
	}
	c.SetCookie(SessionCookie, "", -1, "/admin", "", h.opts.SecureCookie, true)
	h.setFlash(c, "info", "Has cerrado la sesión.")
	c.Redirect(http.StatusFound, "/admin/login")
}

func (h *Handler) dashboard(c *gin.Context) {
	h.render(c, http.StatusOK, "dashboard.html", "Panel", gin.H{"ListCount": len(h.lists.ListNames())})
}

func (h *Handler) listIndex(c *gin.Context) {
	h.render(c, http.StatusOK, "listas.html", "Listas", gin.H{"Names": h.lists.ListNames()})
}

func (h *Handler) editPage(c *gin.Context) {
	name := c.Param("name")
	if !configstore.ValidName(name) {
		c.String(http.StatusNotFound, "Lista no encontrada.")
		return
	}
	h.render(c, http.StatusOK, "editar_lista.html", "Editar lista", gin.H{"List": h.lists.ReadList(name)})
}

func (h *Handler) editSubmit(c *gin.Context) {
	name := c.Param("name")
	if !configstore.ValidName(name) {
		c.String(http.StatusNotFound, "Lista no encontrada.")
		return
	}
	target := "/admin/listas/editar/" + name

	list, err := listFromForm(c, name)
	if err != nil {
		h.setFlash(c, "error", err.Error())
		c.Redirect(http.StatusSeeOther, target)
		return
	}
	list.KeepExtras(h.lists.ReadList(name))
	if h.lists.WriteList(name, list) {
		h.setFlash(c, "success", fmt.Sprintf("Lista %q actualizada exitosamente.", name))
	} else {
		h.setFlash(c, "error", "Error al guardar la lista.")
	}
	c.Redirect(http.StatusSeeOther, target)
}

// listFromForm 解析编辑表单：records 为 name/commission 数组，strings 为每行一项的文本框。
func listFromForm(c *gin.Context, name string) (configstore.List, error) {
	if configstore.Kind(c.PostForm("kind")) == configstore.KindRecords {
		names := c.PostFormArray("name")
		commissions := c.PostFormArray("commission")
		records := make([]configstore.Record, 0, len(names))
		for i, n := range names {
			n = strings.TrimSpace(n)
			raw := ""
			if i < len(commissions) {
				raw = strings.TrimSpace(commissions[i])
			}
			if n == "" && raw == "" {
				continue
			}
			if n == "" {
				return configstore.List{}, fmt.Errorf("Fila %d: el nombre es obligatorio.", i+1)
			}
			commission := decimal.Zero
			if raw != "" {
				d, err := decimal.NewFromString(raw)
				if err != nil {
					return configstore.List{}, fmt.Errorf("Fila %d: comisión inválida %q.", i+1, raw)
				}
				commission = d
			}
			records = append(records, configstore.Record{Name: n, Commission: commission})
		}
		return configstore.List{Name: name, Kind: configstore.KindRecords, Records: records}, nil
	}

	values := []string{}
	for _, line := range strings.Split(c.PostForm("items"), "\n") {
		if v := strings.TrimSpace(line); v != "" {
			values = append(values, v)
		}
	}
	return configstore.List{Name: name, Kind: configstore.KindStrings, Strings: values}, nil
}

func (h *Handler) apiUpdate(c *gin.Context) {
	name := c.Param("name")
	if !configstore.ValidName(name) {
		c.JSON(http.StatusBadRequest, apiResponse{Success: false, Message: "Nombre de lista inválido."})
		return
	}
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxListBody))
	if err != nil {
		c.JSON(http.StatusBadRequest, apiResponse{Success: false, Message: "No se recibieron datos válidos."})
		return
	}
	list, err := configstore.ParseItems(name, body)
	if err != nil {
		c.JSON(http.StatusBadRequest, apiResponse{Success: false, Message: "No se recibieron datos válidos."})
		return
	}
	if !h.lists.WriteList(name, list) {
		c.JSON(http.StatusInternalServerError, apiResponse{Success: false, Message: "Error al guardar la lista."})
		return
	}
	c.JSON(http.StatusOK, apiResponse{Success: true, Message: fmt.Sprintf("Lista %q actualizada exitosamente.", name)})
}
