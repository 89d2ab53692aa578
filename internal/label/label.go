// Package label renders printable pot labels: a QR code pointing at a web
// search for the plant's species care tips, captioned with the nickname.
package label

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"net/url"
	"strings"

	qrcode "github.com/skip2/go-qrcode"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"plantcare/internal/blob"
	"plantcare/internal/core"
)

const (
	searchBase    = "https://www.google.com/search?q="
	querySuffix   = " care and tips"
	qrSize        = 256
	captionHeight = 28
	contentType   = "image/png"
	archivePrefix = "labels"
)

// PlantSource resolves a plant and its species.
type PlantSource interface {
	PlantWithSpecies(ctx context.Context, plantID int64) (core.Plant, core.Species, error)
}

// Label is a generated pot label.
type Label struct {
	PlantID  int64
	Nickname string
	Species  string
	Query    string
	URL      string
	Filename string
	PNG      []byte
	// Archive describes the stored copy; Fresh reports whether this call
	// wrote it.
	Archive blob.Info
	Fresh   bool
}

// Option configures a Generator.
type Option func(*Generator)

// WithLogger sets the generator logger.
func WithLogger(l core.Logger) Option {
	return func(g *Generator) {
		if l != nil {
			g.logger = l
		}
	}
}

// Generator builds labels and archives each one once in a blob store.
type Generator struct {
	plants  PlantSource
	archive blob.Store
	logger  core.Logger
}

// NewGenerator returns a generator. A nil archive disables archiving.
func NewGenerator(plants PlantSource, archive blob.Store, opts ...Option) *Generator {
	g := &Generator{plants: plants, archive: archive, logger: nopLogger{}}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// SearchQuery returns the search phrase for a species.
func SearchQuery(species string) string {
	return strings.TrimSpace(species) + querySuffix
}

// SearchURL returns the web search URL for a species. Spaces are encoded as
// %20 and "/" is left as is.
func SearchURL(species string) string {
	return searchBase + queryEncoder.Replace(url.QueryEscape(SearchQuery(species)))
}

var queryEncoder = strings.NewReplacer("+", "%20", "%2F", "/")

// Filename is the download name offered for a plant's label.
func Filename(nickname string) string {
	return "qr_" + nickname + ".png"
}

// ArchiveKey is the blob key a plant's label is stored under.
func ArchiveKey(plantID int64, nickname string) string {
	return fmt.Sprintf("%s/%d/%s", archivePrefix, plantID, Filename(safeName(nickname)))
}

// Generate renders the label for plantID and archives it unless a copy
// already exists under its key.
func (g *Generator) Generate(ctx context.Context, plantID int64) (Label, error) {
	plant, species, err := g.plants.PlantWithSpecies(ctx, plantID)
	if err != nil {
		return Label{}, err
	}
	link := SearchURL(species.Name)
	img, err := Render(link, plant.Nickname)
	if err != nil {
		return Label{}, fmt.Errorf("render label for plant %d: %w", plantID, err)
	}
	lbl := Label{
		PlantID:  plant.ID,
		Nickname: plant.Nickname,
		Species:  species.Name,
		Query:    SearchQuery(species.Name),
		URL:      link,
		Filename: Filename(plant.Nickname),
		PNG:      img,
	}
	if g.archive == nil {
		return lbl, nil
	}
	key := ArchiveKey(plant.ID, plant.Nickname)
	info, err := g.archive.Put(ctx, key, bytes.NewReader(img), blob.PutOptions{
		ContentType: contentType,
		Metadata:    map[string]string{"plant-id": fmt.Sprint(plant.ID), "species": species.Name},
	})
	switch {
	case err == nil:
		lbl.Archive, lbl.Fresh = info, true
		g.logger.Info("label archived", "plant_id", plant.ID, "key", key, "driver", g.archive.Driver())
	case errors.Is(err, blob.ErrExists):
		if lbl.Archive, err = g.archive.Head(ctx, key); err != nil {
			return lbl, fmt.Errorf("inspect archived label %s: %w", key, err)
		}
	default:
		return lbl, fmt.Errorf("archive label %s: %w", key, err)
	}
	return lbl, nil
}

// Archived lists the stored labels of a plant.
func (g *Generator) Archived(ctx context.Context, plantID int64) ([]blob.Info, error) {
	if g.archive == nil {
		return nil, nil
	}
	return g.archive.List(ctx, fmt.Sprintf("%s/%d/", archivePrefix, plantID))
}

// Render encodes link as a QR code and appends a caption strip.
func Render(link, caption string) ([]byte, error) {
	qr, err := qrcode.New(link, qrcode.Medium)
	if err != nil {
		return nil, err
	}
	code := qr.Image(qrSize)
	canvas := image.NewRGBA(image.Rect(0, 0, qrSize, qrSize+captionHeight))
	draw.Draw(canvas, canvas.Bounds(), image.White, image.Point{}, draw.Src)
	draw.Draw(canvas, image.Rect(0, 0, qrSize, qrSize), code, code.Bounds().Min, draw.Src)
	drawCaption(canvas, caption)
	var buf bytes.Buffer
	if err := png.Encode(&buf, canvas); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func drawCaption(dst *image.RGBA, caption string) {
	face := basicfont.Face7x13
	d := &font.Drawer{Dst: dst, Src: image.NewUniform(color.Black), Face: face}
	for len(caption) > 0 && d.MeasureString(caption).Ceil() > qrSize-8 {
		runes := []rune(caption)
		caption = string(runes[:len(runes)-1])
	}
	width := d.MeasureString(caption).Ceil()
	x := (qrSize - width) / 2
	y := qrSize + (captionHeight+face.Ascent)/2 - 2
	d.Dot = fixed.P(x, y)
	d.DrawString(caption)
}

// safeName keeps ASCII letters, digits, dash and underscore; spaces and dots
// become underscores.
func safeName(name string) string {
	var b strings.Builder
	for _, r := range strings.TrimSpace(name) {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '-', r == '_':
			b.WriteRune(r)
		case r == ' ' || r == '.':
			b.WriteByte('_')
		}
	}
	cleaned := strings.Trim(b.String(), "_-")
	if cleaned == "" {
		return "plant"
	}
	return cleaned
}

type nopLogger struct{}

func (nopLogger) Debug(string, ...any) {}
func (nopLogger) Info(string, ...any)  {}
func (nopLogger) Warn(string, ...any)  {}
func (nopLogger) Error(string, ...any) {}
