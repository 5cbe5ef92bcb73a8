package tests

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"strings"
	"testing"
)

var pngData = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n', 0, 0, 0, 0}

func TestCreateWithUpload(t *testing.T) {
	env := setupTestEnv(t)

	admin, err := env.adminClient()
	if err != nil {
		t.Fatal(err)
	}

	created, err := admin.createArtworkMultipart(
		map[string]string{"code": "moss-0001", "name": "Forest Harmony", "collection": "Nature Series"},
		&imageFile{filename: "forest.png", contentType: "image/png", data: pngData},
	)
	if err != nil {
		t.Fatal(err)
	}
	if created.Code != "MOSS-0001" || created.Collection == nil || *created.Collection != "Nature Series" {
		t.Fatalf("invalid created artwork %+v", created)
	}
	if created.ImageUrl == nil || !strings.HasPrefix(*created.ImageUrl, "/uploads/") || !strings.HasSuffix(*created.ImageUrl, ".png") {
		t.Fatalf("invalid image url %v", created.ImageUrl)
	}

	exists, err := env.blobs.Exists(*created.ImageUrl)
	if err != nil || !exists {
		t.Fatalf("uploaded image was not stored: %v", err)
	}

	anon := env.newClient()
	res, err := anon.Get(*created.ImageUrl).Do(nil)
	if err != nil {
		t.Fatal(err)
	}
	served, err := io.ReadAll(res.Body)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(served, pngData) {
		t.Fatal("served image does not match the upload")
	}
}

func TestCreateMultipartWithImageUrl(t *testing.T) {
	env := setupTestEnv(t)

	admin, err := env.adminClient()
	if err != nil {
		t.Fatal(err)
	}

	created, err := admin.createArtworkMultipart(
		map[string]string{"code": "MOSS-0001", "name": "Forest Harmony", "imageUrl": "https://cdn.example.com/forest.jpg"}, nil,
	)
	if err != nil {
		t.Fatal(err)
	}
	if created.ImageUrl == nil || *created.ImageUrl != "https://cdn.example.com/forest.jpg" {
		t.Fatalf("invalid image url %v", created.ImageUrl)
	}

	_, err = admin.createArtworkMultipart(
		map[string]string{"code": "MOSS-0002", "name": "Empty file"},
		&imageFile{filename: "", contentType: "application/octet-stream", data: nil},
	)
	if statusOf(err) != http.StatusBadRequest || errorMessage(err) != "Code, name, and image URL are required" {
		t.Fatalf("an empty file part should count as no image, got %v", err)
	}
}

func TestOversizedUploadIsRejected(t *testing.T) {
	env := setupTestEnv(t)

	admin, err := env.adminClient()
	if err != nil {
		t.Fatal(err)
	}

	for _, size := range []int{6 * 1024 * 1024, 5*1024*1024 + 512*1024} {
		_, err = admin.createArtworkMultipart(
			map[string]string{"code": fmt.Sprintf("MOSS-%d", size), "name": "Too Big"},
			&imageFile{filename: "big.png", contentType: "image/png", data: bytes.Repeat([]byte{1}, size)},
		)
		if statusOf(err) != http.StatusBadRequest || errorMessage(err) != "File size exceeds 5MB limit" {
			t.Fatalf("expected upload of %d bytes to be rejected, got %v", size, err)
		}
	}

	if count := env.artworkCount(); count != 0 {
		t.Fatalf("rejected upload should not create an artwork, found %d", count)
	}
}

func TestInvalidUploadTypeIsRejected(t *testing.T) {
	env := setupTestEnv(t)

	admin, err := env.adminClient()
	if err != nil {
		t.Fatal(err)
	}

	_, err = admin.createArtworkMultipart(
		map[string]string{"code": "MOSS-0001", "name": "Gif"},
		&imageFile{filename: "moss.gif", contentType: "image/gif", data: []byte("GIF89a")},
	)
	if statusOf(err) != http.StatusBadRequest || errorMessage(err) != "Invalid file type. Only PNG and JPG are allowed" {
		t.Fatalf("expected invalid type, got %v", err)
	}

	if count := env.artworkCount(); count != 0 {
		t.Fatalf("rejected upload should not create an artwork, found %d", count)
	}
}

func TestUpdateReplacesUploadedImage(t *testing.T) {
	env := setupTestEnv(t)

	admin, err := env.adminClient()
	if err != nil {
		t.Fatal(err)
	}

	created, err := admin.createArtwork(artworkFields{Code: "MOSS-0001", Name: "Forest Harmony", ImageUrl: "/uploads/demo.jpg"})
	if err != nil {
		t.Fatal(err)
	}

	body, contentType, err := multipartBody(
		map[string]string{"code": "MOSS-0001", "name": "Forest Harmony"},
		&imageFile{filename: "new.jpg", contentType: "image/jpeg", data: []byte("jpeg")},
	)
	if err != nil {
		t.Fatal(err)
	}

	var data struct {
		Artwork struct {
			ImageUrl *string `json:"imageUrl"`
		} `json:"artwork"`
	}
	if _, err := admin.Put(fmt.Sprintf("/api/artworks/%d", created.Id)).Body(body).Header("Content-Type", contentType).Do(&data); err != nil {
		t.Fatal(err)
	}
	if data.Artwork.ImageUrl == nil || *data.Artwork.ImageUrl == "/uploads/demo.jpg" || !strings.HasSuffix(*data.Artwork.ImageUrl, ".jpg") {
		t.Fatalf("image should be replaced, got %v", data.Artwork.ImageUrl)
	}
}

func TestUnsupportedContentType(t *testing.T) {
	env := setupTestEnv(t)

	admin, err := env.adminClient()
	if err != nil {
		t.Fatal(err)
	}

	_, err = admin.Post("/api/artworks").Body(strings.NewReader("code=MOSS-0001")).Header("Content-Type", "text/plain").Do(nil)
	if statusOf(err) != http.StatusUnsupportedMediaType {
		t.Fatalf("expected unsupported media type, got %v", err)
	}
}
