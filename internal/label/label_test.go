package label

import (
	"bytes"
	"context"
	"errors"
	"image/png"
	"io"
	"strings"
	"testing"

	"plantcare/internal/blob"
	"plantcare/internal/core"
)

type stubPlants map[int64]struct {
	plant   core.Plant
	species core.Species
}

func (s stubPlants) PlantWithSpecies(_ context.Context, id int64) (core.Plant, core.Species, error) {
	entry, ok := s[id]
	if !ok {
		return core.Plant{}, core.Species{}, core.ErrNotFound{Entity: core.EntityPlant, ID: id}
	}
	return entry.plant, entry.species, nil
}

func fixturePlants() stubPlants {
	return stubPlants{
		4: {plant: core.Plant{ID: 4, SpeciesID: 2, Nickname: "Mr Prickles"}, species: core.Species{ID: 2, Name: "Cactus"}},
		5: {plant: core.Plant{ID: 5, SpeciesID: 3, Nickname: "../Fern"}, species: core.Species{ID: 3, Name: "Aloe Vera"}},
	}
}

func TestSearchURL(t *testing.T) {
	if got := SearchQuery("Aloe Vera"); got != "Aloe Vera care and tips" {
		t.Fatalf("query %q", got)
	}
	want := "https://www.google.com/search?q=Aloe%20Vera%20care%20and%20tips"
	if got := SearchURL("Aloe Vera"); got != want {
		t.Fatalf("url %q want %q", got, want)
	}
	if got := SearchURL("Ficus & co"); !strings.Contains(got, "Ficus%20%26%20co") {
		t.Fatalf("reserved characters not escaped: %q", got)
	}
	want = "https://www.google.com/search?q=Ficus/Fig%20care%20and%20tips"
	if got := SearchURL("Ficus/Fig"); got != want {
		t.Fatalf("url %q want %q", got, want)
	}
}

func TestFilenameAndKey(t *testing.T) {
	if got := Filename("Mr Prickles"); got != "qr_Mr Prickles.png" {
		t.Fatalf("filename %q", got)
	}
	if got := ArchiveKey(4, "Mr Prickles"); got != "labels/4/qr_Mr_Prickles.png" {
		t.Fatalf("key %q", got)
	}
	if got := ArchiveKey(5, "../Fern"); got != "labels/5/qr_Fern.png" {
		t.Fatalf("traversal not stripped: %q", got)
	}
	if got := ArchiveKey(6, "???"); got != "labels/6/qr_plant.png" {
		t.Fatalf("empty fallback: %q", got)
	}
}

func TestRender(t *testing.T) {
	out, err := Render(SearchURL("Cactus"), "Mr Prickles")
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	img, err := png.Decode(bytes.NewReader(out))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	b := img.Bounds()
	if b.Dx() != qrSize || b.Dy() != qrSize+captionHeight {
		t.Fatalf("unexpected bounds %v", b)
	}
	dark := 0
	for y := qrSize; y < b.Max.Y; y++ {
		for x := 0; x < b.Max.X; x++ {
			if r, _, _, _ := img.At(x, y).RGBA(); r < 0x8000 {
				dark++
			}
		}
	}
	if dark == 0 {
		t.Fatalf("caption strip is blank")
	}
}

func TestRender_LongCaptionFits(t *testing.T) {
	if _, err := Render("https://example.com", strings.Repeat("W", 200)); err != nil {
		t.Fatalf("render: %v", err)
	}
}

func TestGenerate_ArchivesOnce(t *testing.T) {
	ctx := context.Background()
	archive := blob.NewMemory()
	gen := NewGenerator(fixturePlants(), archive)
	first, err := gen.Generate(ctx, 4)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if !first.Fresh || first.Archive.Key != "labels/4/qr_Mr_Prickles.png" {
		t.Fatalf("expected fresh archive, got %+v", first.Archive)
	}
	if first.Filename != "qr_Mr Prickles.png" || first.Species != "Cactus" {
		t.Fatalf("unexpected label %+v", first)
	}
	if first.Archive.Metadata["plant-id"] != "4" || first.Archive.ContentType != "image/png" {
		t.Fatalf("archive metadata %+v", first.Archive)
	}
	second, err := gen.Generate(ctx, 4)
	if err != nil {
		t.Fatalf("regenerate: %v", err)
	}
	if second.Fresh || second.Archive.ETag != first.Archive.ETag {
		t.Fatalf("expected existing archive reused, got %+v", second)
	}
	stored, err := gen.Archived(ctx, 4)
	if err != nil || len(stored) != 1 {
		t.Fatalf("archived %+v err=%v", stored, err)
	}
	other, err := gen.Archived(ctx, 5)
	if err != nil || len(other) != 0 {
		t.Fatalf("expected nothing for plant 5, got %+v", other)
	}
}

func TestGenerate_UnknownPlant(t *testing.T) {
	gen := NewGenerator(fixturePlants(), blob.NewMemory())
	_, err := gen.Generate(context.Background(), 99)
	var nf core.ErrNotFound
	if !errors.As(err, &nf) || nf.ID != 99 {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestGenerate_WithoutArchive(t *testing.T) {
	gen := NewGenerator(fixturePlants(), nil)
	lbl, err := gen.Generate(context.Background(), 5)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if lbl.Fresh || len(lbl.PNG) == 0 || lbl.Archive.Key != "" {
		t.Fatalf("unexpected label %+v", lbl.Archive)
	}
	if list, err := gen.Archived(context.Background(), 5); err != nil || list != nil {
		t.Fatalf("archived without store: %v %v", list, err)
	}
}

type failingStore struct{ blob.Store }

func (failingStore) Put(context.Context, string, io.Reader, blob.PutOptions) (blob.Info, error) {
	return blob.Info{}, errors.New("disk full")
}

func TestGenerate_ArchiveFailure(t *testing.T) {
	gen := NewGenerator(fixturePlants(), failingStore{Store: blob.NewMemory()})
	lbl, err := gen.Generate(context.Background(), 4)
	if err == nil || !strings.Contains(err.Error(), "disk full") {
		t.Fatalf("expected archive error, got %v", err)
	}
	if len(lbl.PNG) == 0 {
		t.Fatalf("rendered label should still be returned")
	}
}
