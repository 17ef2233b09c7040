package admin

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"excel2dataverse/internal/configstore"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

const testPassword = "clave-de-prueba"

type testEnv struct {
	engine   *gin.Engine
	store    *configstore.Store
	sessions *MemoryStore
}

func newTestEnv(t *testing.T, dir string) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)
	hash, err := bcrypt.GenerateFromPassword([]byte(testPassword), bcrypt.MinCost)
	require.NoError(t, err)
	verifier, err := NewBcryptVerifier(string(hash))
	require.NoError(t, err)
	signer, err := NewSigner("test-secret", nil)
	require.NoError(t, err)

	store := configstore.NewStore(dir, nil)
	sessions := NewMemoryStore(nil)
	h, err := NewHandler(store, sessions, verifier, signer, Options{SessionTTL: time.Hour}, nil)
	require.NoError(t, err)

	engine := gin.New()
	h.RegisterRoutes(engine)
	return &testEnv{engine: engine, store: store, sessions: sessions}
}

func (e *testEnv) do(req *http.Request, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	for _, c := range cookies {
		req.AddCookie(c)
	}
	w := httptest.NewRecorder()
	e.engine.ServeHTTP(w, req)
	return w
}

func cookieNamed(w *httptest.ResponseRecorder, name string) *http.Cookie {
	for _, c := range w.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}

func loginForm(password, next string) *http.Request {
	target := "/admin/login"
	if next != "" {
		target += "?next=" + url.QueryEscape(next)
	}
	req := httptest.NewRequest(http.MethodPost, target, strings.NewReader(url.Values{"password": {password}}.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return req
}

func (e *testEnv) login(t *testing.T) *http.Cookie {
	t.Helper()
	w := e.do(loginForm(testPassword, ""))
	require.Equal(t, http.StatusFound, w.Code)
	c := cookieNamed(w, SessionCookie)
	require.NotNil(t, c)
	return c
}

func TestGateRedirectsPagesToLogin(t *testing.T) {
	env := newTestEnv(t, t.TempDir())
	w := env.do(httptest.NewRequest(http.MethodGet, "/admin/listas", nil))

	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/admin/login?next=%2Fadmin%2Flistas", w.Header().Get("Location"))
}

func TestGateRejectsAPIWith401(t *testing.T) {
	env := newTestEnv(t, t.TempDir())
	w := env.do(httptest.NewRequest(http.MethodPost, "/admin/api/listas/ramos", strings.NewReader(`["a"]`)))

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	var resp apiResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.False(t, resp.Success)
}

func TestGateRejectsForgedCookie(t *testing.T) {
	env := newTestEnv(t, t.TempDir())
	w := env.do(httptest.NewRequest(http.MethodGet, "/admin/", nil), &http.Cookie{Name: SessionCookie, Value: "forged"})
	assert.Equal(t, http.StatusFound, w.Code)
}

func TestLoginWrongPassword(t *testing.T) {
	env := newTestEnv(t, t.TempDir())
	w := env.do(loginForm("nope", ""))

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "Contraseña incorrecta.")
	assert.Nil(t, cookieNamed(w, SessionCookie))
	assert.Zero(t, env.sessions.Len())
}

func TestLoginHonoursAdminNext(t *testing.T) {
	env := newTestEnv(t, t.TempDir())
	w := env.do(loginForm(testPassword, "/admin/listas"))
	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/admin/listas", w.Header().Get("Location"))
	assert.NotNil(t, cookieNamed(w, FlashCookie))

	w = env.do(loginForm(testPassword, "https://evil.example/"))
	assert.Equal(t, "/admin/", w.Header().Get("Location"))
}

func TestLoginThenBrowseThenLogout(t *testing.T) {
	dir := t.TempDir()
	env := newTestEnv(t, dir)
	require.True(t, env.store.WriteList("ramos", configstore.List{Name: "ramos", Kind: configstore.KindStrings, Strings: []string{"Autos"}}))
	session := env.login(t)

	w := env.do(httptest.NewRequest(http.MethodGet, "/admin/listas", nil), session)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "/admin/listas/editar/ramos")

	w = env.do(httptest.NewRequest(http.MethodGet, "/admin/", nil), session)
	assert.Equal(t, http.StatusOK, w.Code)

	w = env.do(httptest.NewRequest(http.MethodGet, "/admin/login", nil), session)
	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/admin/", w.Header().Get("Location"))

	w = env.do(httptest.NewRequest(http.MethodGet, "/admin/logout", nil), session)
	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/admin/login", w.Header().Get("Location"))
	assert.Zero(t, env.sessions.Len())

	w = env.do(httptest.NewRequest(http.MethodGet, "/admin/listas", nil), session)
	assert.Equal(t, http.StatusFound, w.Code)
}

func TestLoginPageShowsFlash(t *testing.T) {
	env := newTestEnv(t, t.TempDir())
	flash := &http.Cookie{Name: FlashCookie, Value: url.QueryEscape(`{"kind":"info","message":"Has cerrado la sesión."}`)}
	w := env.do(httptest.NewRequest(http.MethodGet, "/admin/login", nil), flash)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Has cerrado la sesión.")
	cleared := cookieNamed(w, FlashCookie)
	require.NotNil(t, cleared)
	assert.Less(t, cleared.MaxAge, 0)
}

func TestAPIUpdateList(t *testing.T) {
	dir := t.TempDir()
	env := newTestEnv(t, dir)
	session := env.login(t)

	req := httptest.NewRequest(http.MethodPost, "/admin/api/listas/vendedores", strings.NewReader(`[{"name":"Ana","commission":12.5}]`))
	req.Header.Set("Content-Type", "application/json")
	w := env.do(req, session)

	require.Equal(t, http.StatusOK, w.Code)
	var resp apiResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.Contains(t, resp.Message, "vendedores")

	list := env.store.ReadList("vendedores")
	require.Equal(t, configstore.KindRecords, list.Kind)
	require.Len(t, list.Records, 1)
	assert.Equal(t, "Ana", list.Records[0].Name)
	assert.Equal(t, "12.5", list.Records[0].Commission.String())
}

func TestAPIUpdateRejectsInvalidBody(t *testing.T) {
	env := newTestEnv(t, t.TempDir())
	session := env.login(t)

	for _, body := range []string{`{"not":"array"}`, `not json`, `["a", {"name":"b"}]`} {
		w := env.do(httptest.NewRequest(http.MethodPost, "/admin/api/listas/ramos", strings.NewReader(body)), session)
		assert.Equal(t, http.StatusBadRequest, w.Code, body)
	}
	w := env.do(httptest.NewRequest(http.MethodPost, "/admin/api/listas/bad.name", strings.NewReader(`[]`)), session)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAPIUpdateSaveFailure(t *testing.T) {
	parent := t.TempDir()
	blocker := filepath.Join(parent, "config")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o644))
	env := newTestEnv(t, blocker)
	session := env.login(t)

	w := env.do(httptest.NewRequest(http.MethodPost, "/admin/api/listas/ramos", strings.NewReader(`["a"]`)), session)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	var resp apiResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.False(t, resp.Success)
}

func postForm(target string, values url.Values) *http.Request {
	req := httptest.NewRequest(http.MethodPost, target, strings.NewReader(values.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return req
}

func TestEditFormRecords(t *testing.T) {
	env := newTestEnv(t, t.TempDir())
	session := env.login(t)

	w := env.do(postForm("/admin/listas/editar/vendedores", url.Values{
		"kind":       {"records"},
		"name":       {"Ana", " Luis ", ""},
		"commission": {"10", "7.25", ""},
	}), session)
	assert.Equal(t, http.StatusSeeOther, w.Code)
	assert.Equal(t, "/admin/listas/editar/vendedores", w.Header().Get("Location"))

	list := env.store.ReadList("vendedores")
	require.Len(t, list.Records, 2)
	assert.Equal(t, "Luis", list.Records[1].Name)
	assert.Equal(t, "7.25", list.Records[1].Commission.String())

	w = env.do(httptest.NewRequest(http.MethodGet, "/admin/listas/editar/vendedores", nil), session)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `value="Luis"`)
	assert.Contains(t, w.Body.String(), `value="7.25"`)
}

func TestEditFormKeepsUnknownRecordKeys(t *testing.T) {
	env := newTestEnv(t, t.TempDir())
	session := env.login(t)
	path := filepath.Join(env.store.Dir(), "vendedores.json")
	require.NoError(t, os.WriteFile(path, []byte(`[{"name":"Ana","commission":10,"zona":"Norte"}]`), 0o644))

	w := env.do(postForm("/admin/listas/editar/vendedores", url.Values{
		"kind":       {"records"},
		"name":       {"Ana"},
		"commission": {"12"},
	}), session)
	require.Equal(t, http.StatusSeeOther, w.Code)

	list, err := env.store.Load("vendedores")
	require.NoError(t, err)
	require.Len(t, list.Records, 1)
	assert.Equal(t, "12", list.Records[0].Commission.String())
	assert.JSONEq(t, `"Norte"`, string(list.Records[0].Extra["zona"]))
}

func TestAPIRejectsRecordWithoutCommission(t *testing.T) {
	env := newTestEnv(t, t.TempDir())
	session := env.login(t)
	require.True(t, env.store.WriteList("vendedores", configstore.List{Name: "vendedores", Kind: configstore.KindRecords, Records: []configstore.Record{{Name: "Ana", Commission: decimal.NewFromInt(5)}}}))

	req := httptest.NewRequest(http.MethodPost, "/admin/api/listas/vendedores", strings.NewReader(`[{"name":"Ana"}]`))
	req.Header.Set("Content-Type", "application/json")
	w := env.do(req, session)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "5", env.store.ReadList("vendedores").Records[0].Commission.String())
}

func TestEditFormInvalidCommissionKeepsList(t *testing.T) {
	env := newTestEnv(t, t.TempDir())
	session := env.login(t)
	require.True(t, env.store.WriteList("vendedores", configstore.List{Name: "vendedores", Kind: configstore.KindRecords, Records: []configstore.Record{{Name: "Ana"}}}))

	w := env.do(postForm("/admin/listas/editar/vendedores", url.Values{
		"kind":       {"records"},
		"name":       {"Ana"},
		"commission": {"diez"},
	}), session)
	assert.Equal(t, http.StatusSeeOther, w.Code)
	assert.NotNil(t, cookieNamed(w, FlashCookie))
	assert.Len(t, env.store.ReadList("vendedores").Records, 1)
	assert.True(t, env.store.ReadList("vendedores").Records[0].Commission.IsZero())
}

func TestEditFormStrings(t *testing.T) {
	env := newTestEnv(t, t.TempDir())
	session := env.login(t)

	w := env.do(postForm("/admin/listas/editar/ramos", url.Values{
		"kind":  {"strings"},
		"items": {"Autos\r\n\r\n Vida \nHogar"},
	}), session)
	assert.Equal(t, http.StatusSeeOther, w.Code)
	assert.Equal(t, []string{"Autos", "Vida", "Hogar"}, env.store.ReadList("ramos").Strings)
}

func TestEditPageInvalidName(t *testing.T) {
	env := newTestEnv(t, t.TempDir())
	session := env.login(t)
	w := env.do(httptest.NewRequest(http.MethodGet, "/admin/listas/editar/bad.name", nil), session)
	assert.Equal(t, http.StatusNotFound, w.Code)
}
