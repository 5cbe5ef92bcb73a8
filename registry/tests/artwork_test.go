package tests

import (
	"fmt"
	"net/http"
	"strings"
	"testing"
)

func TestCreateAndVerify(t *testing.T) {
	env := setupTestEnv(t)

	admin, err := env.adminClient()
	if err != nil {
		t.Fatal(err)
	}

	created, err := admin.createArtwork(artworkFields{
		Code:           " moss-0001 ",
		Name:           "Forest Harmony",
		Collection:     "Nature Series",
		Dimensions:     "100 × 57 cm",
		Materials:      "oak frame, stabilized moss, epoxy",
		ProductionDate: "2024-01-15",
		ImageUrl:       "/uploads/demo.jpg",
	})
	if err != nil {
		t.Fatal(err)
	}
	if created.Code != "MOSS-0001" || created.Id == 0 || created.CreatedAt.IsZero() {
		t.Fatalf("invalid created artwork %+v", created)
	}
	if created.Description != nil {
		t.Fatalf("missing description should be null, got %v", *created.Description)
	}

	anon := env.newClient()
	result, err := anon.verify("moss-0001")
	if err != nil {
		t.Fatal(err)
	}
	if !result.Valid || result.Artwork == nil || result.Artwork.Id != created.Id || result.Artwork.Name != "Forest Harmony" {
		t.Fatalf("invalid verify result %+v", result)
	}
	if result.Artwork.ImageUrl == nil || *result.Artwork.ImageUrl != "/uploads/demo.jpg" {
		t.Fatalf("invalid image url in verify result %+v", result.Artwork)
	}
}

func TestDuplicateCodeIsRejected(t *testing.T) {
	env := setupTestEnv(t)

	admin, err := env.adminClient()
	if err != nil {
		t.Fatal(err)
	}

	if _, err := admin.createArtwork(artworkFields{Code: "MOSS-0001", Name: "First", ImageUrl: "/uploads/a.jpg"}); err != nil {
		t.Fatal(err)
	}

	_, err = admin.createArtwork(artworkFields{Code: "moss-0001", Name: "Second", ImageUrl: "/uploads/b.jpg"})
	if statusOf(err) != http.StatusBadRequest || errorMessage(err) != "An artwork with this code already exists" {
		t.Fatalf("expected conflict, got %v", err)
	}

	if count := env.artworkCount(); count != 1 {
		t.Fatalf("expected 1 artwork, found %d", count)
	}
}

func TestCreateRequiresFields(t *testing.T) {
	env := setupTestEnv(t)

	admin, err := env.adminClient()
	if err != nil {
		t.Fatal(err)
	}

	for _, fields := range []artworkFields{
		{Code: "MOSS-0002", Name: "No Image"},
		{Code: "", Name: "No Code", ImageUrl: "/uploads/a.jpg"},
		{Code: "MOSS-0003", Name: "   ", ImageUrl: "/uploads/a.jpg"},
	} {
		_, err := admin.createArtwork(fields)
		if statusOf(err) != http.StatusBadRequest || errorMessage(err) != "Code, name, and image URL are required" {
			t.Fatalf("expected missing fields error for %+v, got %v", fields, err)
		}
	}

	if count := env.artworkCount(); count != 0 {
		t.Fatalf("expected no artworks, found %d", count)
	}

	optional := defaultTestVariables()
	optional.RequireImage = false
	env = setupTestEnvWithVariables(t, optional)
	admin, err = env.adminClient()
	if err != nil {
		t.Fatal(err)
	}

	created, err := admin.createArtwork(artworkFields{Code: "MOSS-0002", Name: "No Image"})
	if err != nil {
		t.Fatal(err)
	}
	if created.ImageUrl != nil {
		t.Fatalf("image url should be null, got %v", *created.ImageUrl)
	}
}

func TestUpdateArtwork(t *testing.T) {
	env := setupTestEnv(t)

	admin, err := env.adminClient()
	if err != nil {
		t.Fatal(err)
	}

	first, err := admin.createArtwork(artworkFields{Code: "MOSS-0001", Name: "Forest Harmony", Materials: "moss", ImageUrl: "/uploads/a.jpg"})
	if err != nil {
		t.Fatal(err)
	}
	second, err := admin.createArtwork(artworkFields{Code: "MOSS-0002", Name: "River Bed", ImageUrl: "/uploads/b.jpg"})
	if err != nil {
		t.Fatal(err)
	}

	updated, err := admin.updateArtwork(first.Id, artworkFields{Code: "moss-0001", Name: "Forest Harmony II"})
	if err != nil {
		t.Fatal(err)
	}
	if updated.Code != "MOSS-0001" || updated.Name != "Forest Harmony II" || updated.Id != first.Id {
		t.Fatalf("invalid updated artwork %+v", updated)
	}
	if updated.ImageUrl == nil || *updated.ImageUrl != "/uploads/a.jpg" {
		t.Fatal("update without an image should keep the existing image")
	}
	if updated.Materials != nil {
		t.Fatal("omitted optional fields should be cleared on update")
	}

	_, err = admin.updateArtwork(first.Id, artworkFields{Code: "MOSS-0002", Name: "Taken"})
	if statusOf(err) != http.StatusBadRequest || errorMessage(err) != "An artwork with this code already exists" {
		t.Fatalf("expected conflict, got %v", err)
	}

	_, err = admin.updateArtwork(second.Id+100, artworkFields{Code: "MOSS-0100", Name: "Missing"})
	if statusOf(err) != http.StatusNotFound || errorMessage(err) != "Artwork not found" {
		t.Fatalf("expected not found, got %v", err)
	}

	_, err = admin.Put("/api/artworks/abc").Json(artworkFields{Code: "MOSS-0100", Name: "x"}).Do(nil)
	if statusOf(err) != http.StatusBadRequest || errorMessage(err) != "Invalid artwork ID" {
		t.Fatalf("expected invalid id, got %v", err)
	}

	_, err = admin.updateArtwork(first.Id, artworkFields{Code: "", Name: "x"})
	if statusOf(err) != http.StatusBadRequest {
		t.Fatalf("expected bad request for missing code, got %v", err)
	}
}

func TestDeleteArtwork(t *testing.T) {
	env := setupTestEnv(t)

	admin, err := env.adminClient()
	if err != nil {
		t.Fatal(err)
	}

	created, err := admin.createArtwork(artworkFields{Code: "MOSS-0001", Name: "Forest Harmony", ImageUrl: "/uploads/a.jpg"})
	if err != nil {
		t.Fatal(err)
	}

	if err := admin.deleteArtwork(created.Id); err != nil {
		t.Fatal(err)
	}

	anon := env.newClient()
	result, err := anon.verify("MOSS-0001")
	if err != nil {
		t.Fatal(err)
	}
	if result.Valid {
		t.Fatal("deleted artwork should not verify")
	}

	if err := admin.deleteArtwork(created.Id); statusOf(err) != http.StatusNotFound {
		t.Fatalf("expected not found, got %v", err)
	}

	_, err = admin.Delete("/api/artworks/-1").Do(nil)
	if statusOf(err) != http.StatusBadRequest || errorMessage(err) != "Invalid artwork ID" {
		t.Fatalf("expected invalid id, got %v", err)
	}
}

func TestListPagination(t *testing.T) {
	env := setupTestEnv(t)

	admin, err := env.adminClient()
	if err != nil {
		t.Fatal(err)
	}

	for i := 1; i <= 25; i++ {
		_, err := admin.createArtwork(artworkFields{Code: fmt.Sprintf("MOSS-%04d", i), Name: fmt.Sprintf("Piece %d", i), ImageUrl: "/uploads/a.jpg"})
		if err != nil {
			t.Fatal(err)
		}
	}

	page, err := admin.listArtworks(map[string]string{"page": "3", "limit": "10"})
	if err != nil {
		t.Fatal(err)
	}
	if len(page.Artworks) != 5 || page.Total != 25 || page.Page != 3 || page.Limit != 10 {
		t.Fatalf("invalid page 3: %d artworks, total %d", len(page.Artworks), page.Total)
	}

	first, err := admin.listArtworks(nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(first.Artworks) != 10 || first.Page != 1 || first.Limit != 10 {
		t.Fatalf("invalid default page: %d artworks", len(first.Artworks))
	}
	if first.Artworks[0].Code != "MOSS-0025" {
		t.Fatalf("newest artwork should be first, got %v", first.Artworks[0].Code)
	}

	empty, err := admin.listArtworks(map[string]string{"page": "4"})
	if err != nil {
		t.Fatal(err)
	}
	if len(empty.Artworks) != 0 || empty.Total != 25 {
		t.Fatalf("page past the end should be empty, got %d", len(empty.Artworks))
	}

	for _, params := range []map[string]string{
		{"page": "0"}, {"page": "abc"}, {"limit": "0"}, {"limit": "101"},
	} {
		if _, err := admin.listArtworks(params); statusOf(err) != http.StatusBadRequest {
			t.Fatalf("expected bad request for %v, got %v", params, err)
		}
	}
}

func TestListSearch(t *testing.T) {
	env := setupTestEnv(t)

	admin, err := env.adminClient()
	if err != nil {
		t.Fatal(err)
	}

	for _, fields := range []artworkFields{
		{Code: "MOSS-0001", Name: "Forest Harmony", ImageUrl: "/uploads/a.jpg"},
		{Code: "MOSS-0002", Name: "River Bed", ImageUrl: "/uploads/b.jpg"},
		{Code: "LICHEN-01", Name: "Mossy Stone", ImageUrl: "/uploads/c.jpg"},
		{Code: "ÉCUME-01", Name: "Écume Boréale", ImageUrl: "/uploads/d.jpg"},
	} {
		if _, err := admin.createArtwork(fields); err != nil {
			t.Fatal(err)
		}
	}

	result, err := admin.listArtworks(map[string]string{"search": "MoSs"})
	if err != nil {
		t.Fatal(err)
	}
	if result.Total != 3 {
		t.Fatalf("search should match code or name, got %d", result.Total)
	}

	result, err = admin.listArtworks(map[string]string{"search": "river"})
	if err != nil {
		t.Fatal(err)
	}
	if result.Total != 1 || !strings.EqualFold(result.Artworks[0].Name, "river bed") {
		t.Fatalf("invalid search result %+v", result)
	}

	for _, term := range []string{"écume", "ÉCUME", "boréale"} {
		result, err = admin.listArtworks(map[string]string{"search": term})
		if err != nil {
			t.Fatal(err)
		}
		if result.Total != 1 || result.Artworks[0].Name != "Écume Boréale" {
			t.Fatalf("search %q should match the accented name, got %+v", term, result)
		}
	}

	result, err = admin.listArtworks(map[string]string{"search": "%"})
	if err != nil {
		t.Fatal(err)
	}
	if result.Total != 0 {
		t.Fatalf("wildcards should be matched literally, got %d", result.Total)
	}
}
