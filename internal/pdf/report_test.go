package pdf

import (
	"bytes"
	"encoding/base64"
	"image"
	"image/color"
	"image/jpeg"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sitevisit/report-server-go/internal/model"
)

func testDataURL(t *testing.T, w, h int) string {
	t.Helper()

	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			img.Set(x, y, color.RGBA{R: 180, G: 120, B: 60, A: 255})
		}
	}

	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, img, nil))
	return "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(buf.Bytes())
}

func TestGenerator_Generate(t *testing.T) {
	gen := NewGenerator(zerolog.Nop())

	out, err := gen.Generate(model.ReportData{
		ProjectName:  "North Tower",
		ReportNumber: "SVR-014",
		Subject:      "Weekly walkthrough",
		Description:  "# Summary\nConcrete pour on schedule.\n\n- rebar inspected\n- **formwork** signed off",
		Action:       "1. order anchors\n2. schedule crane",
		Images: []model.ReportImage{
			{DataURL: testDataURL(t, 640, 480), Caption: "East elevation, scaffolding in place"},
		},
	})
	require.NoError(t, err)

	assert.True(t, bytes.HasPrefix(out, []byte("%PDF")))
	assert.Greater(t, len(out), 1000)
}

func TestGenerator_GenerateMinimalReport(t *testing.T) {
	gen := NewGenerator(zerolog.Nop())

	out, err := gen.Generate(model.ReportData{ProjectName: "Depot"})
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(out, []byte("%PDF")))
}

func TestGenerator_BrokenImageDoesNotFailReport(t *testing.T) {
	gen := NewGenerator(zerolog.Nop())

	out, err := gen.Generate(model.ReportData{
		ProjectName: "Depot",
		Images: []model.ReportImage{
			{DataURL: "not a data url"},
			{DataURL: "data:image/jpeg;base64,!!!!"},
			{DataURL: testDataURL(t, 64, 64), Caption: "only valid photo"},
		},
	})
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(out, []byte("%PDF")))
}

func TestPrepareImage_DownscalesLargeInput(t *testing.T) {
	url := testDataURL(t, 2000, 1500)

	out, err := prepareImage(url)
	require.NoError(t, err)

	cfg, err := jpeg.DecodeConfig(bytes.NewReader(out))
	require.NoError(t, err)
	assert.LessOrEqual(t, cfg.Width, 482)
	assert.LessOrEqual(t, cfg.Height, 368)
}
