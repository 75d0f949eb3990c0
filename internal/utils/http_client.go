package utils

import (
	"net/http"
	"time"
)

// NewHTTPClient 带连接池的HTTP客户端，超时在此统一兜底
func NewHTTPClient(timeout time.Duration) *http.Client {
	return &http.Client{
		Timeout: timeout,
		Transport: &http.Transport{
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 10,
			IdleConnTimeout:     90 * time.Second,
		},
	}
}
