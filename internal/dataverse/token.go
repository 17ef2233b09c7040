package dataverse

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

// TokenSource 用于提供调用 Dataverse 接口所需的 Token。
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// StaticTokenSource 返回固定 Token，适用于测试或简易场景。
type StaticTokenSource struct {
	Value string
}

// Token 返回固定值。
func (s *StaticTokenSource) Token(context.Context) (string, error) {
	return s.Value, nil
}

const expiryMargin = 30 * time.Second

// ClientCredentialsConfig 配置 OAuth client credentials 流程。
type ClientCredentialsConfig struct {
	Authority    string
	ClientID     string
	ClientSecret string
	Resource     string
	HTTPClient   *http.Client
	// Now 仅供测试注入时钟。
	Now func() time.Time
}

// ClientCredentialsTokenSource 通过 client credentials 换取 Token，并在进程内缓存到过期前。
type ClientCredentialsTokenSource struct {
	conf       *clientcredentials.Config
	httpClient *http.Client
	now        func() time.Time

	mu    sync.Mutex
	token *oauth2.Token
}

// NewClientCredentialsTokenSource 创建一个 ClientCredentialsTokenSource。
func NewClientCredentialsTokenSource(cfg ClientCredentialsConfig) (*ClientCredentialsTokenSource, error) {
	if strings.TrimSpace(cfg.Authority) == "" {
		return nil, errors.New("authority 不能为空")
	}
	if cfg.ClientID == "" || cfg.ClientSecret == "" {
		return nil, errors.New("client_id 和 client_secret 不能为空")
	}
	if strings.TrimSpace(cfg.Resource) == "" {
		return nil, errors.New("resource 不能为空")
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	resource := strings.TrimRight(cfg.Resource, "/")
	return &ClientCredentialsTokenSource{
		conf: &clientcredentials.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			TokenURL:     strings.TrimRight(cfg.Authority, "/") + "/oauth2/v2.0/token",
			Scopes:       []string{resource + "/.default"},
			AuthStyle:    oauth2.AuthStyleInParams,
		},
		httpClient: cfg.HTTPClient,
		now:        now,
	}, nil
}

// Token 实现 TokenSource 接口，缓存的 Token 距过期不足 30 秒时刷新。
func (s *ClientCredentialsTokenSource) Token(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.valid() {
		return s.token.AccessToken, nil
	}
	return s.refresh(ctx)
}

func (s *ClientCredentialsTokenSource) valid() bool {
	if s.token == nil || s.token.AccessToken == "" {
		return false
	}
	return s.now().Add(expiryMargin).Before(s.token.Expiry)
}

func (s *ClientCredentialsTokenSource) refresh(ctx context.Context) (string, error) {
	if s.httpClient != nil {
		ctx = context.WithValue(ctx, oauth2.HTTPClient, s.httpClient)
	}
	tok, err := s.conf.Token(ctx)
	if err != nil {
		reason := "token 请求失败"
		var re *oauth2.RetrieveError
		if errors.As(err, &re) && re.ErrorDescription != "" {
			reason = re.ErrorDescription
		}
		return "", &AuthError{Reason: reason, Err: err}
	}
	if tok == nil || tok.AccessToken == "" {
		return "", &AuthError{Reason: "token 响应中缺少 access_token"}
	}
	if tok.Expiry.IsZero() {
		tok.Expiry = s.now().Add(30 * time.Minute)
	} else {
		// oauth2 以 time.Now 计算 Expiry，这里换算到注入的时钟。
		tok.Expiry = s.now().Add(time.Until(tok.Expiry))
	}
	s.token = tok
	return tok.AccessToken, nil
}
