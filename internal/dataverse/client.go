package dataverse

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"excel2dataverse/internal/domain"
)

// Client 抽象 Dataverse Web API 的四种操作。
type Client interface {
	Create(ctx context.Context, table string, record domain.Row) (domain.Row, error)
	Query(ctx context.Context, table string, q Query) ([]domain.Row, error)
	Update(ctx context.Context, table, id string, patch domain.Row) (UpdateResult, error)
	Delete(ctx context.Context, table, id string) (bool, error)
}

// Query 对应 OData 查询参数，零值字段不发送。
type Query struct {
	Select  []string
	Filter  string
	OrderBy string
	Top     int
}

// Values 生成 $select/$filter/$orderby/$top 参数。
func (q Query) Values() url.Values {
	v := url.Values{}
	if len(q.Select) > 0 {
		v.Set("$select", strings.Join(q.Select, ","))
	}
	if q.Filter != "" {
		v.Set("$filter", q.Filter)
	}
	if q.OrderBy != "" {
		v.Set("$orderby", q.OrderBy)
	}
	if q.Top > 0 {
		v.Set("$top", strconv.Itoa(q.Top))
	}
	return v
}

// UpdateResult 表示 PATCH 的结果；204 时 Record 为空。
type UpdateResult struct {
	OK     bool
	Record domain.Row
}

// HTTPConfig 配置 HTTP 客户端。
type HTTPConfig struct {
	Resource     string
	APIVersion   string
	TokenSource  TokenSource
	Timeout      time.Duration
	CustomClient *http.Client
}

// HTTPClient 实现 Client，通过 HTTP 与 Dataverse 通信。
type HTTPClient struct {
	baseURL     string
	httpClient  *http.Client
	tokenSource TokenSource
}

// NewHTTPClient 根据配置创建 Dataverse HTTP 客户端。
func NewHTTPClient(cfg HTTPConfig) (*HTTPClient, error) {
	if strings.TrimSpace(cfg.Resource) == "" {
		return nil, errors.New("dataverse resource 不能为空")
	}
	if cfg.TokenSource == nil {
		return nil, errors.New("dataverse token source 不能为空")
	}
	client := cfg.CustomClient
	if client == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 30 * time.Second
		}
		client = &http.Client{Timeout: timeout}
	}
	version := cfg.APIVersion
	if version == "" {
		version = "v9.2"
	}
	return &HTTPClient{
		baseURL:     strings.TrimRight(cfg.Resource, "/") + "/api/data/" + version,
		httpClient:  client,
		tokenSource: cfg.TokenSource,
	}, nil
}

// Create 插入一条记录，返回服务端的表示（Prefer: return=representation）。
func (c *HTTPClient) Create(ctx context.Context, table string, record domain.Row) (domain.Row, error) {
	resp, err := c.do(ctx, "create", table, http.MethodPost, c.tableURL(table), record)
	if err != nil {
		return nil, err
	}
	if resp.status == http.StatusNoContent || len(resp.body) == 0 {
		return nil, nil
	}
	var out domain.Row
	if err := json.Unmarshal(resp.body, &out); err != nil {
		return nil, fmt.Errorf("解析 create 响应失败 table=%s: %w", table, err)
	}
	return out, nil
}

// Query 查询记录并返回响应中的 value 数组。
func (c *HTTPClient) Query(ctx context.Context, table string, q Query) ([]domain.Row, error) {
	endpoint := c.tableURL(table)
	if params := q.Values(); len(params) > 0 {
		endpoint += "?" + params.Encode()
	}
	resp, err := c.do(ctx, "query", table, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	var payload struct {
		Value []domain.Row `json:"value"`
	}
	if err := json.Unmarshal(resp.body, &payload); err != nil {
		return nil, fmt.Errorf("解析 query 响应失败 table=%s: %w", table, err)
	}
	if payload.Value == nil {
		payload.Value = []domain.Row{}
	}
	return payload.Value, nil
}

// Update 对记录做部分更新。
func (c *HTTPClient) Update(ctx context.Context, table, id string, patch domain.Row) (UpdateResult, error) {
	resp, err := c.do(ctx, "update", table, http.MethodPatch, c.recordURL(table, id), patch)
	if err != nil {
		return UpdateResult{}, err
	}
	if resp.status == http.StatusNoContent || len(resp.body) == 0 {
		return UpdateResult{OK: true}, nil
	}
	var out domain.Row
	if err := json.Unmarshal(resp.body, &out); err != nil {
		return UpdateResult{}, fmt.Errorf("解析 update 响应失败 table=%s: %w", table, err)
	}
	return UpdateResult{OK: true, Record: out}, nil
}

// Delete 删除记录，仅当响应为 204 时返回 true。
func (c *HTTPClient) Delete(ctx context.Context, table, id string) (bool, error) {
	resp, err := c.do(ctx, "delete", table, http.MethodDelete, c.recordURL(table, id), nil)
	if err != nil {
		return false, err
	}
	return resp.status == http.StatusNoContent, nil
}

func (c *HTTPClient) tableURL(table string) string {
	return c.baseURL + "/" + url.PathEscape(table)
}

func (c *HTTPClient) recordURL(table, id string) string {
	return c.tableURL(table) + "(" + url.PathEscape(id) + ")"
}

type response struct {
	status int
	body   []byte
}

func (c *HTTPClient) do(ctx context.Context, op, table, method, endpoint string, payload any) (response, error) {
	token, err := c.tokenSource.Token(ctx)
	if err != nil {
		return response{}, err
	}

	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return response{}, fmt.Errorf("编码 %s 请求失败 table=%s: %w", op, table, err)
		}
		body = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return response{}, fmt.Errorf("构建请求失败: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json; charset=utf-8")
	req.Header.Set("OData-MaxVersion", "4.0")
	req.Header.Set("OData-Version", "4.0")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Prefer", "return=representation")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return response{}, fmt.Errorf("请求 Dataverse 失败 op=%s table=%s: %w", op, table, err)
	}
	data, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	if err != nil {
		return response{}, fmt.Errorf("读取 Dataverse 响应失败: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return response{}, &RemoteServiceError{Op: op, Table: table, StatusCode: resp.StatusCode, Body: string(data)}
	}
	return response{status: resp.StatusCode, body: data}, nil
}
