package tests

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"mossi_registry/registry/auth"
	"mossi_registry/registry/services"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"net/url"

	"github.com/go-chi/chi/v5"
)

type httpTestRequest struct {
	api http.Handler

	method   string
	endpoint string
	headers  map[string]string
	cookies  []*http.Cookie
	json     interface{}
	body     io.Reader

	expectedStatus int
}

func newHttpTestRequest(api http.Handler, method, endpoint string) *httpTestRequest {
	return &httpTestRequest{
		api:            api,
		method:         method,
		endpoint:       endpoint,
		expectedStatus: http.StatusOK,
	}
}

func (r *httpTestRequest) Header(key, value string) *httpTestRequest {
	if r.headers == nil {
		r.headers = make(map[string]string)
	}
	r.headers[key] = value
	return r
}

func (r *httpTestRequest) Cookie(cookie *http.Cookie) *httpTestRequest {
	if cookie != nil {
		r.cookies = append(r.cookies, cookie)
	}
	return r
}

func (r *httpTestRequest) Json(data interface{}) *httpTestRequest {
	r.json = data
	return r
}

func (r *httpTestRequest) Body(body io.Reader) *httpTestRequest {
	r.body = body
	return r
}

func (r *httpTestRequest) Expect(status int) *httpTestRequest {
	r.expectedStatus = status
	return r
}

type statusError struct {
	status int
	body   string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("request returned status %d, content '%v'", e.status, e.body)
}

func (e *statusError) Is(target error) bool {
	return target == ErrUnauthorized && e.status == http.StatusUnauthorized
}

// Returns the status code of an error returned by Do, or 0 for other errors.
func statusOf(err error) int {
	var serr *statusError
	if errors.As(err, &serr) {
		return serr.status
	}
	return 0
}

func errorMessage(err error) string {
	var serr *statusError
	if !errors.As(err, &serr) {
		return ""
	}
	var body struct {
		Error string `json:"error"`
	}
	_ = json.Unmarshal([]byte(serr.body), &body)
	return body.Error
}

// response body will be parsed into result, passing nil indicates that no result is returned.
func (r *httpTestRequest) Do(result interface{}) (*http.Response, error) {
	if r.json != nil {
		body := new(bytes.Buffer)
		err := json.NewEncoder(body).Encode(r.json)
		if err != nil {
			return nil, fmt.Errorf("error encoding json body for endpoint %v: %w", r.endpoint, err)
		}
		r.body = body
		r.Header("Content-Type", "application/json")
	}

	req := httptest.NewRequest(r.method, r.endpoint, r.body)
	for k, v := range r.headers {
		req.Header.Set(k, v)
	}
	for _, cookie := range r.cookies {
		req.AddCookie(cookie)
	}

	w := httptest.NewRecorder()

	r.api.ServeHTTP(w, req)

	res := w.Result()
	defer res.Body.Close()

	if res.StatusCode != r.expectedStatus {
		return res, &statusError{status: res.StatusCode, body: w.Body.String()}
	}

	if result != nil {
		err := json.NewDecoder(res.Body).Decode(result)
		if err != nil {
			return res, fmt.Errorf("error parsing %v response from endpoint %v: %w", r.method, r.endpoint, err)
		}
	}

	return res, nil
}

var ErrUnauthorized = errors.New("unauthorized")

type loginInfo struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type client struct {
	api     chi.Router
	session *http.Cookie
}

func (c *client) request(method, endpoint string) *httpTestRequest {
	return newHttpTestRequest(c.api, method, endpoint).Cookie(c.session)
}

func (c *client) Get(endpoint string) *httpTestRequest {
	return c.request(http.MethodGet, endpoint)
}

func (c *client) Post(endpoint string) *httpTestRequest {
	return c.request(http.MethodPost, endpoint)
}

func (c *client) Put(endpoint string) *httpTestRequest {
	return c.request(http.MethodPut, endpoint)
}

func (c *client) Delete(endpoint string) *httpTestRequest {
	return c.request(http.MethodDelete, endpoint)
}

func sessionCookie(res *http.Response) *http.Cookie {
	for _, cookie := range res.Cookies() {
		if cookie.Name == auth.SessionCookieName {
			return cookie
		}
	}
	return nil
}

func (c *client) login(login loginInfo) error {
	var data services.LoginResponse
	res, err := c.Post("/api/auth/login").Json(login).Do(&data)
	if err != nil {
		return err
	}

	cookie := sessionCookie(res)
	if cookie == nil {
		return fmt.Errorf("login response did not set the session cookie")
	}
	c.session = cookie

	return nil
}

func (c *client) logout() (*http.Response, error) {
	return c.Post("/api/auth/logout").Do(nil)
}

func (c *client) me() (services.CurrentAdminResponse, error) {
	var data services.CurrentAdminResponse
	_, err := c.Get("/api/auth/me").Do(&data)
	return data, err
}

type artworkFields struct {
	Code           string `json:"code"`
	Name           string `json:"name"`
	Collection     string `json:"collection,omitempty"`
	Dimensions     string `json:"dimensions,omitempty"`
	Materials      string `json:"materials,omitempty"`
	Description    string `json:"description,omitempty"`
	ProductionDate string `json:"productionDate,omitempty"`
	ImageUrl       string `json:"imageUrl,omitempty"`
}

func (c *client) createArtwork(fields artworkFields) (services.ArtworkInfo, error) {
	var data services.ArtworkResponse
	_, err := c.Post("/api/artworks").Json(fields).Expect(http.StatusCreated).Do(&data)
	return data.Artwork, err
}

func (c *client) updateArtwork(id uint, fields artworkFields) (services.ArtworkInfo, error) {
	var data services.ArtworkResponse
	_, err := c.Put(fmt.Sprintf("/api/artworks/%d", id)).Json(fields).Do(&data)
	return data.Artwork, err
}

func (c *client) deleteArtwork(id uint) error {
	_, err := c.Delete(fmt.Sprintf("/api/artworks/%d", id)).Do(nil)
	return err
}

func (c *client) listArtworks(params map[string]string) (services.ArtworkListResponse, error) {
	query := url.Values{}
	for k, v := range params {
		query.Set(k, v)
	}
	var data services.ArtworkListResponse
	_, err := c.Get("/api/artworks?" + query.Encode()).Do(&data)
	return data, err
}

func (c *client) verify(code string) (services.VerifyResponse, error) {
	var data services.VerifyResponse
	_, err := c.Get("/api/verify?code=" + url.QueryEscape(code)).Do(&data)
	return data, err
}

type imageFile struct {
	filename    string
	contentType string
	data        []byte
}

func multipartBody(fields map[string]string, image *imageFile) (io.Reader, string, error) {
	body := new(bytes.Buffer)
	writer := multipart.NewWriter(body)

	for k, v := range fields {
		if err := writer.WriteField(k, v); err != nil {
			return nil, "", err
		}
	}

	if image != nil {
		header := make(textproto.MIMEHeader)
		header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="image"; filename="%s"`, image.filename))
		header.Set("Content-Type", image.contentType)
		part, err := writer.CreatePart(header)
		if err != nil {
			return nil, "", err
		}
		if _, err := part.Write(image.data); err != nil {
			return nil, "", err
		}
	}

	if err := writer.Close(); err != nil {
		return nil, "", err
	}
	return body, writer.FormDataContentType(), nil
}

func (c *client) createArtworkMultipart(fields map[string]string, image *imageFile) (services.ArtworkInfo, error) {
	body, contentType, err := multipartBody(fields, image)
	if err != nil {
		return services.ArtworkInfo{}, err
	}

	var data services.ArtworkResponse
	_, err = c.Post("/api/artworks").Body(body).Header("Content-Type", contentType).Expect(http.StatusCreated).Do(&data)
	return data.Artwork, err
}
