package dataverse

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time { return c.now }

func newTokenServer(t *testing.T, handler func(w http.ResponseWriter, n int32)) (*httptest.Server, *int32) {
	t.Helper()
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/tenant/oauth2/v2.0/token", r.URL.Path)
		assert.NoError(t, r.ParseForm())
		assert.Equal(t, "client_credentials", r.PostForm.Get("grant_type"))
		assert.Equal(t, "https://org.crm.dynamics.com/.default", r.PostForm.Get("scope"))
		assert.Equal(t, "cid", r.PostForm.Get("client_id"))
		n := atomic.AddInt32(&calls, 1)
		w.Header().Set("Content-Type", "application/json")
		handler(w, n)
	}))
	t.Cleanup(srv.Close)
	return srv, &calls
}

func newSource(t *testing.T, srv *httptest.Server, clock *fakeClock) *ClientCredentialsTokenSource {
	t.Helper()
	ts, err := NewClientCredentialsTokenSource(ClientCredentialsConfig{
		Authority:    srv.URL + "/tenant",
		ClientID:     "cid",
		ClientSecret: "secret",
		Resource:     "https://org.crm.dynamics.com/",
		HTTPClient:   srv.Client(),
		Now:          clock.Now,
	})
	require.NoError(t, err)
	return ts
}

func TestTokenCachedUntilExpiry(t *testing.T) {
	srv, calls := newTokenServer(t, func(w http.ResponseWriter, n int32) {
		fmt.Fprintf(w, `{"access_token":"tok-%d","token_type":"Bearer","expires_in":3600}`, n)
	})
	clock := &fakeClock{now: time.Now()}
	ts := newSource(t, srv, clock)
	ctx := context.Background()

	first, err := ts.Token(ctx)
	require.NoError(t, err)
	second, err := ts.Token(ctx)
	require.NoError(t, err)
	third, err := ts.Token(ctx)
	require.NoError(t, err)

	assert.Equal(t, "tok-1", first)
	assert.Equal(t, first, second)
	assert.Equal(t, first, third)
	assert.EqualValues(t, 1, atomic.LoadInt32(calls))

	clock.now = clock.now.Add(2 * time.Hour)
	renewed, err := ts.Token(ctx)
	require.NoError(t, err)
	assert.Equal(t, "tok-2", renewed)
	assert.EqualValues(t, 2, atomic.LoadInt32(calls))

	again, err := ts.Token(ctx)
	require.NoError(t, err)
	assert.Equal(t, "tok-2", again)
	assert.EqualValues(t, 2, atomic.LoadInt32(calls))
}

func TestTokenRefreshedInsideMargin(t *testing.T) {
	srv, calls := newTokenServer(t, func(w http.ResponseWriter, n int32) {
		fmt.Fprintf(w, `{"access_token":"tok-%d","token_type":"Bearer","expires_in":3600}`, n)
	})
	clock := &fakeClock{now: time.Now()}
	ts := newSource(t, srv, clock)

	_, err := ts.Token(context.Background())
	require.NoError(t, err)
	clock.now = clock.now.Add(3600*time.Second - 10*time.Second)
	tok, err := ts.Token(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "tok-2", tok)
	assert.EqualValues(t, 2, atomic.LoadInt32(calls))
}

func TestTokenMissingAccessTokenIsAuthError(t *testing.T) {
	srv, _ := newTokenServer(t, func(w http.ResponseWriter, n int32) {
		fmt.Fprint(w, `{"token_type":"Bearer","expires_in":3600}`)
	})
	ts := newSource(t, srv, &fakeClock{now: time.Now()})

	_, err := ts.Token(context.Background())
	var authErr *AuthError
	require.ErrorAs(t, err, &authErr)
}

func TestTokenProviderErrorIsAuthError(t *testing.T) {
	srv, _ := newTokenServer(t, func(w http.ResponseWriter, n int32) {
		w.WriteHeader(http.StatusUnauthorized)
		fmt.Fprint(w, `{"error":"invalid_client","error_description":"AADSTS7000215: Invalid client secret"}`)
	})
	ts := newSource(t, srv, &fakeClock{now: time.Now()})

	_, err := ts.Token(context.Background())
	var authErr *AuthError
	require.ErrorAs(t, err, &authErr)
	assert.Contains(t, authErr.Reason, "Invalid client secret")
}

func TestClientUsesCachedTokenAcrossCalls(t *testing.T) {
	tokenSrv, calls := newTokenServer(t, func(w http.ResponseWriter, n int32) {
		fmt.Fprintf(w, `{"access_token":"tok-%d","token_type":"Bearer","expires_in":3600}`, n)
	})
	clock := &fakeClock{now: time.Now()}
	ts := newSource(t, tokenSrv, clock)

	var seen []string
	api := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = append(seen, r.Header.Get("Authorization"))
		w.WriteHeader(http.StatusNoContent)
	}))
	defer api.Close()
	client, err := NewHTTPClient(HTTPConfig{Resource: api.URL, TokenSource: ts})
	require.NoError(t, err)

	ctx := context.Background()
	for i := 0; i < 3; i++ {
		_, err := client.Create(ctx, "t", nil)
		require.NoError(t, err)
	}
	clock.now = clock.now.Add(time.Hour)
	_, err = client.Create(ctx, "t", nil)
	require.NoError(t, err)

	assert.EqualValues(t, 2, atomic.LoadInt32(calls))
	assert.Equal(t, []string{"Bearer tok-1", "Bearer tok-1", "Bearer tok-1", "Bearer tok-2"}, seen)
}

func TestNewClientCredentialsTokenSourceValidates(t *testing.T) {
	_, err := NewClientCredentialsTokenSource(ClientCredentialsConfig{ClientID: "a", ClientSecret: "b", Resource: "r"})
	assert.Error(t, err)
	_, err = NewClientCredentialsTokenSource(ClientCredentialsConfig{Authority: "a", Resource: "r"})
	assert.Error(t, err)
	_, err = NewClientCredentialsTokenSource(ClientCredentialsConfig{Authority: "a", ClientID: "a", ClientSecret: "b"})
	assert.Error(t, err)
}
