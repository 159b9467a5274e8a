package httpclient

import (
	"context"
	"time"

	"github.com/go-resty/resty/v2"
)

type RestyClient struct {
	client *resty.Client
}

// New builds a JSON client. headers are sent with every request; server errors
// are retried up to retryCount times.
func New(baseURL string, timeout time.Duration, retryCount int, headers map[string]string) HTTPClient {
	client := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(timeout).
		SetHeader("Accept", "application/json").
		SetHeaders(headers).
		SetRetryCount(retryCount).
		SetRetryWaitTime(500 * time.Millisecond).
		AddRetryCondition(func(r *resty.Response, err error) bool {
			return err != nil || r.StatusCode() >= 500 || r.StatusCode() == 429
		})

	return &RestyClient{client: client}
}

// GET request with optional query params
func (rc *RestyClient) Get(ctx context.Context, endpoint string, queryParams map[string]string, headers map[string]string, result interface{}) (*BaseResponse, error) {
	req := rc.client.R().SetContext(ctx).SetResult(result)

	if queryParams != nil {
		req.SetQueryParams(queryParams)
	}

	if headers != nil {
		req.SetHeaders(headers)
	}

	resp, err := req.Get(endpoint)
	if resp == nil {
		return &BaseResponse{}, err
	}
	return &BaseResponse{
		StatusCode: resp.StatusCode(),
		Body:       resp.Body(),
		Headers:    resp.Header(),
	}, err
}
