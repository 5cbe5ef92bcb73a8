package client

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

const sessionCookieName = "mossi_token"

type RegistryClient struct {
	BaseClient
}

func New(baseUrl string) *RegistryClient {
	return &RegistryClient{BaseClient: BaseClient{baseUrl: baseUrl, httpClient: &http.Client{Timeout: 30 * time.Second}}}
}

type Admin struct {
	Id        uint      `json:"id"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"createdAt,omitempty"`
}

type Artwork struct {
	Id             uint      `json:"id"`
	Code           string    `json:"code"`
	Name           string    `json:"name"`
	Collection     *string   `json:"collection"`
	Dimensions     *string   `json:"dimensions"`
	Materials      *string   `json:"materials"`
	Description    *string   `json:"description"`
	ProductionDate *string   `json:"productionDate"`
	ImageUrl       *string   `json:"imageUrl"`
	CreatedAt      time.Time `json:"createdAt,omitempty"`
	UpdatedAt      time.Time `json:"updatedAt,omitempty"`
}

type ArtworkFields struct {
	Code           string `json:"code"`
	Name           string `json:"name"`
	Collection     string `json:"collection,omitempty"`
	Dimensions     string `json:"dimensions,omitempty"`
	Materials      string `json:"materials,omitempty"`
	Description    string `json:"description,omitempty"`
	ProductionDate string `json:"productionDate,omitempty"`
	ImageUrl       string `json:"imageUrl,omitempty"`
}

type ArtworkPage struct {
	Artworks []Artwork `json:"artworks"`
	Total    int64     `json:"total"`
	Page     int       `json:"page"`
	Limit    int       `json:"limit"`
}

type VerifyResult struct {
	Valid   bool     `json:"valid"`
	Artwork *Artwork `json:"artwork"`
	Message string   `json:"message"`
}

// The session token is read from the cookie set by the server and sent as a
// bearer token on later requests.
func (c *RegistryClient) Login(email, password string) (Admin, error) {
	var data struct {
		User Admin `json:"user"`
	}
	res, err := c.Post("/api/auth/login").Json(map[string]string{"email": email, "password": password}).do(http.StatusOK, &data)
	if err != nil {
		return Admin{}, err
	}

	for _, cookie := range res.Cookies() {
		if cookie.Name == sessionCookieName {
			c.authToken = cookie.Value
		}
	}
	if c.authToken == "" {
		return Admin{}, fmt.Errorf("login response did not contain a session token")
	}

	return data.User, nil
}

func (c *RegistryClient) Logout() error {
	if err := c.Post("/api/auth/logout").Do(nil); err != nil {
		return err
	}
	c.authToken = ""
	return nil
}

func (c *RegistryClient) Me() (Admin, error) {
	var data struct {
		User Admin `json:"user"`
	}
	err := c.Get("/api/auth/me").Do(&data)
	return data.User, err
}

func (c *RegistryClient) Verify(code string) (VerifyResult, error) {
	var result VerifyResult
	err := c.Get("/api/verify").Param("code", code).Do(&result)
	return result, err
}

func (c *RegistryClient) ListArtworks(search string, page, limit int) (ArtworkPage, error) {
	req := c.Get("/api/artworks")
	if search != "" {
		req = req.Param("search", search)
	}
	if page > 0 {
		req = req.Param("page", strconv.Itoa(page))
	}
	if limit > 0 {
		req = req.Param("limit", strconv.Itoa(limit))
	}

	var result ArtworkPage
	err := req.Do(&result)
	return result, err
}

func (c *RegistryClient) CreateArtwork(fields ArtworkFields) (Artwork, error) {
	var data struct {
		Artwork Artwork `json:"artwork"`
	}
	_, err := c.Post("/api/artworks").Json(fields).do(http.StatusCreated, &data)
	return data.Artwork, err
}

func imageContentType(path string) (string, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".png":
		return "image/png", nil
	case ".jpg", ".jpeg":
		return "image/jpeg", nil
	default:
		return "", fmt.Errorf("unsupported image file %v, only png and jpg images can be uploaded", path)
	}
}

func (c *RegistryClient) CreateArtworkWithImage(fields ArtworkFields, imagePath string) (Artwork, error) {
	contentType, err := imageContentType(imagePath)
	if err != nil {
		return Artwork{}, err
	}

	file, err := os.Open(imagePath)
	if err != nil {
		return Artwork{}, fmt.Errorf("unable to open image %v: %w", imagePath, err)
	}
	defer file.Close()

	body := new(bytes.Buffer)
	writer := multipart.NewWriter(body)

	for k, v := range map[string]string{
		"code": fields.Code, "name": fields.Name, "collection": fields.Collection, "dimensions": fields.Dimensions,
		"materials": fields.Materials, "description": fields.Description, "productionDate": fields.ProductionDate,
	} {
		if v == "" {
			continue
		}
		if err := writer.WriteField(k, v); err != nil {
			return Artwork{}, fmt.Errorf("error creating request part: %w", err)
		}
	}

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="image"; filename="%s"`, filepath.Base(imagePath)))
	header.Set("Content-Type", contentType)
	part, err := writer.CreatePart(header)
	if err != nil {
		return Artwork{}, fmt.Errorf("error creating request part: %w", err)
	}
	if _, err := io.Copy(part, file); err != nil {
		return Artwork{}, fmt.Errorf("error writing to multipart request: %w", err)
	}

	if err := writer.Close(); err != nil {
		return Artwork{}, fmt.Errorf("error closing multipart request: %w", err)
	}

	var data struct {
		Artwork Artwork `json:"artwork"`
	}
	_, err = c.Post("/api/artworks").Body(body).Header("Content-Type", writer.FormDataContentType()).do(http.StatusCreated, &data)
	return data.Artwork, err
}

func (c *RegistryClient) UpdateArtwork(id uint, fields ArtworkFields) (Artwork, error) {
	var data struct {
		Artwork Artwork `json:"artwork"`
	}
	err := c.Put(fmt.Sprintf("/api/artworks/%d", id)).Json(fields).Do(&data)
	return data.Artwork, err
}

func (c *RegistryClient) DeleteArtwork(id uint) error {
	return c.Delete(fmt.Sprintf("/api/artworks/%d", id)).Do(nil)
}

func IsStatus(err error, status int) bool {
	var resErr *ResponseError
	return errors.As(err, &resErr) && resErr.StatusCode == status
}
