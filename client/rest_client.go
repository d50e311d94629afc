package client

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"github.com/go-resty/resty/v2"
)

type restClient struct {
	client  *resty.Client
	options *options
	logger  Logger
}

func newRestClient(baseURL string, logger Logger, options *options) (*restClient, error) {
	if baseURL == "" {
		return nil, errors.New("base URL must be set")
	}

	if logger == nil {
		return nil, errors.New("logger cannot be nil")
	}

	if options == nil {
		return nil, errors.New("client options cannot be nil")
	}

	restyLogger := &restyLogger{logger: logger}

	client := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(options.requestTimeout).
		SetRetryCount(options.retryCount).
		SetRetryWaitTime(options.retryWaitTime).
		SetRetryMaxWaitTime(options.retryMaxWaitTime).
		AddRetryCondition(retryPolicy).
		SetLogger(restyLogger)

	return &restClient{
		client:  client,
		options: options,
		logger:  logger,
	}, nil
}

// retryPolicy retries connection errors and 5xx responses. Coordinator
// outcomes like 403 or 409 are definitive and must not be retried: a retried
// lock attempt could double-acquire under a stale view of the pool. 429 is
// not retried either; the caller decides how to back off from rate limiting.
func retryPolicy(r *resty.Response, err error) bool {
	if err != nil {
		return true
	}

	return r.StatusCode() >= http.StatusInternalServerError
}

func (r *restClient) ping(ctx context.Context) error {
	_, err := r.get(ctx, "ping", nil)

	return err
}

func (r *restClient) get(ctx context.Context, path string, queryParams url.Values) ([]byte, error) {
	request := r.client.R().
		SetContext(ctx).
		SetHeader("Accept", "application/json")

	if queryParams != nil {
		request.SetQueryParamsFromValues(queryParams)
	}

	response, err := request.Get(path)
	if err != nil {
		return nil, fmt.Errorf("GET %s failed with error: %w", path, err)
	}

	if !response.IsSuccess() {
		return nil, fmt.Errorf("GET %s failed with status code %d: %w", response.Request.URL, response.StatusCode(), statusCodeError(response))
	}

	return response.Body(), nil
}

func (r *restClient) post(ctx context.Context, path string, queryParams url.Values, body interface{}) ([]byte, error) {
	request := r.client.R().
		SetContext(ctx).
		SetHeader("Accept", "application/json")

	if body != nil {
		request.SetHeader("Content-Type", "application/json").SetBody(body)
	}

	if queryParams != nil {
		request.SetQueryParamsFromValues(queryParams)
	}

	response, err := request.Post(path)
	if err != nil {
		return nil, fmt.Errorf("POST %s failed with error: %w", path, err)
	}

	if !response.IsSuccess() {
		return nil, fmt.Errorf("POST %s failed with status code %d: %w", response.Request.URL, response.StatusCode(), statusCodeError(response))
	}

	return response.Body(), nil
}

func (r *restClient) delete(ctx context.Context, path string) error {
	response, err := r.client.R().
		SetContext(ctx).
		Delete(path)
	if err != nil {
		return fmt.Errorf("DELETE %s failed with error: %w", path, err)
	}

	if !response.IsSuccess() {
		return fmt.Errorf("DELETE %s failed with status code %d: %w", response.Request.URL, response.StatusCode(), statusCodeError(response))
	}

	return nil
}

func statusCodeError(response *resty.Response) error {
	body := response.Body()

	if len(body) > 0 {
		return errors.New(string(body))
	}

	return errors.New("(empty error body)")
}
