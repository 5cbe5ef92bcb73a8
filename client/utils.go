package client

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"
)

type httpRequest struct {
	client      *http.Client
	method      string
	baseUrl     string
	endpoint    string
	headers     map[string]string
	queryParams map[string]string
	json        interface{}
	body        io.Reader
}

func newHttpRequest(client *http.Client, method, baseUrl, endpoint string) *httpRequest {
	return &httpRequest{
		client:   client,
		method:   method,
		baseUrl:  baseUrl,
		endpoint: endpoint,
	}
}

func (r *httpRequest) Header(key, value string) *httpRequest {
	if r.headers == nil {
		r.headers = make(map[string]string)
	}
	r.headers[key] = value
	return r
}

func (r *httpRequest) Auth(token string) *httpRequest {
	return r.Header("Authorization", fmt.Sprintf("Bearer %v", token))
}

func (r *httpRequest) Json(data interface{}) *httpRequest {
	r.json = data
	return r
}

func (r *httpRequest) Body(body io.Reader) *httpRequest {
	r.body = body
	return r
}

func (r *httpRequest) Param(key, value string) *httpRequest {
	if r.queryParams == nil {
		r.queryParams = make(map[string]string)
	}
	r.queryParams[key] = value
	return r
}

// Error for a response with a non 2xx status. Message is the error reported by
// the server, if the body contained one.
type ResponseError struct {
	Method     string
	Endpoint   string
	StatusCode int
	Message    string
}

func (e *ResponseError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%v request to endpoint %v returned status %d: %v", e.Method, e.Endpoint, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("%v request to endpoint %v returned status %d", e.Method, e.Endpoint, e.StatusCode)
}

func (r *httpRequest) Process(resultHandler func(*http.Response) error) error {
	fullEndpoint, err := url.JoinPath(r.baseUrl, r.endpoint)
	if err != nil {
		return fmt.Errorf("error formatting url for endpoint %v: %w", r.endpoint, err)
	}

	if r.json != nil {
		body := new(bytes.Buffer)
		err := json.NewEncoder(body).Encode(r.json)
		if err != nil {
			return fmt.Errorf("error encoding json body for endpoint %v: %w", r.endpoint, err)
		}
		r.body = body
		r.Header("Content-Type", "application/json")
	}

	req, err := http.NewRequest(r.method, fullEndpoint, r.body)
	if err != nil {
		return fmt.Errorf("error creating %v request for endpoint %v: %w", r.method, r.endpoint, err)
	}

	for k, v := range r.headers {
		req.Header.Set(k, v)
	}

	if r.queryParams != nil {
		query := req.URL.Query()
		for k, v := range r.queryParams {
			query.Add(k, v)
		}
		req.URL.RawQuery = query.Encode()
	}

	start := time.Now()

	res, err := r.client.Do(req)
	if err != nil {
		return fmt.Errorf("error sending %v request to endpoint %v: %w", r.method, r.endpoint, err)
	}
	defer res.Body.Close()

	slog.Debug("mossi client", "method", r.method, "endpoint", r.endpoint, "status", res.StatusCode, "duration", time.Since(start).String())

	if resultHandler != nil {
		err := resultHandler(res)
		if err != nil {
			return err
		}
	}

	return nil
}

// Parses the response into result, 2xx statuses other than expected are treated as errors.
func (r *httpRequest) do(expected int, result interface{}) (*http.Response, error) {
	var response *http.Response
	err := r.Process(func(res *http.Response) error {
		response = res
		if res.StatusCode != expected {
			resErr := &ResponseError{Method: r.method, Endpoint: r.endpoint, StatusCode: res.StatusCode}
			var body struct {
				Error string `json:"error"`
			}
			if content, err := io.ReadAll(res.Body); err == nil && json.Unmarshal(content, &body) == nil {
				resErr.Message = body.Error
			}
			return resErr
		}

		if result != nil {
			if err := json.NewDecoder(res.Body).Decode(result); err != nil {
				return fmt.Errorf("error parsing %v response from endpoint %v: %w", r.method, r.endpoint, err)
			}
		}
		return nil
	})
	return response, err
}

func (r *httpRequest) Do(result interface{}) error {
	_, err := r.do(http.StatusOK, result)
	return err
}

type BaseClient struct {
	baseUrl    string
	authToken  string
	httpClient *http.Client
}

func (c *BaseClient) addAuthHeaders(r *httpRequest) *httpRequest {
	if c.authToken != "" {
		return r.Auth(c.authToken)
	}
	return r
}

func (c *BaseClient) request(method, endpoint string) *httpRequest {
	client := c.httpClient
	if client == nil {
		client = http.DefaultClient
	}
	return c.addAuthHeaders(newHttpRequest(client, method, c.baseUrl, endpoint))
}

func (c *BaseClient) Get(endpoint string) *httpRequest {
	return c.request(http.MethodGet, endpoint)
}

func (c *BaseClient) Post(endpoint string) *httpRequest {
	return c.request(http.MethodPost, endpoint)
}

func (c *BaseClient) Put(endpoint string) *httpRequest {
	return c.request(http.MethodPut, endpoint)
}

func (c *BaseClient) Delete(endpoint string) *httpRequest {
	return c.request(http.MethodDelete, endpoint)
}
