package httpclient

import (
	"context"
	"net/http"
)

type BaseResponse struct {
	StatusCode int
	Body       []byte
	Headers    http.Header
}

func (r *BaseResponse) IsSuccess() bool {
	return r != nil && r.StatusCode >= 200 && r.StatusCode < 300
}

type HTTPClient interface {
	Get(ctx context.Context, endpoint string, queryParams map[string]string, headers map[string]string, result interface{}) (*BaseResponse, error)
}
