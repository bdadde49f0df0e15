package pdf

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"strings"
	"time"

	"github.com/disintegration/imaging"
	"github.com/go-pdf/fpdf"
	"github.com/rs/zerolog"

	"github.com/sitevisit/report-server-go/internal/model"
)

// Page geometry and palette, in mm and RGB.
const (
	marginLeft   = 20.0
	marginRight  = 20.0
	marginTop    = 20.0
	marginBottom = 25.0

	imageMaxWidthMM  = 170.0
	imageMaxHeightMM = 130.0
	imageBoxHeightMM = 120.0
)

var (
	headingColor    = [3]int{42, 86, 153}
	subheadingColor = [3]int{70, 130, 180}
	accentColor     = [3]int{220, 220, 220}
)

// asciiPunct folds typography that the built-in PDF fonts cannot encode
// down to ASCII equivalents.
var asciiPunct = strings.NewReplacer(
	"™", "(TM)",
	"–", "-",
	"—", "--",
	"‘", "'",
	"’", "'",
	"“", `"`,
	"”", `"`,
	"•", "*",
	"©", "(C)",
	"®", "(R)",
	"…", "...",
)

// Generator renders site visit reports to PDF.
type Generator struct {
	logger zerolog.Logger
	now    func() time.Time
}

func NewGenerator(logger zerolog.Logger) *Generator {
	return &Generator{
		logger: logger.With().Str("component", "pdf").Logger(),
		now:    time.Now,
	}
}

// Generate renders the report and returns the PDF bytes. A broken image
// degrades to an inline placeholder instead of failing the whole report.
func (g *Generator) Generate(data model.ReportData) ([]byte, error) {
	doc := newReportDoc(g.now())
	doc.addPage()

	doc.sectionTitle("Project Details", false)
	doc.field("Project:", data.ProjectName)
	doc.field("Report Number:", data.ReportNumber)
	doc.field("Subject:", data.Subject)
	doc.pdf.Ln(8)

	if data.Description != "" {
		doc.sectionTitle("Site Observations and Discussions", true)
		doc.formattedText(data.Description)
		doc.pdf.Ln(8)
	}

	if data.Action != "" {
		doc.sectionTitle("Action Items", true)
		doc.formattedText(data.Action)
		doc.pdf.Ln(8)
	}

	if len(data.Images) > 0 {
		doc.sectionTitle("Site Photos", true)
		doc.pdf.Ln(5)

		rendered := 0
		for idx, img := range data.Images {
			if err := doc.photo(idx, img, idx == len(data.Images)-1); err != nil {
				g.logger.Warn().Err(err).Int("photo", idx+1).Msg("photo skipped")
				doc.photoError(idx)
				continue
			}
			rendered++
		}
		g.logger.Info().Int("rendered", rendered).Int("total", len(data.Images)).Msg("report photos processed")
	}

	var buf bytes.Buffer
	if err := doc.pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}

	g.logger.Info().Str("project", data.ProjectName).Int("bytes", buf.Len()).Msg("report generated")
	return buf.Bytes(), nil
}

// reportDoc wraps the PDF handle with the report's layout vocabulary.
type reportDoc struct {
	pdf *fpdf.Fpdf
	tr  func(string) string
}

func newReportDoc(now time.Time) *reportDoc {
	pdf := fpdf.New("P", "mm", "A4", "")
	doc := &reportDoc{
		pdf: pdf,
		tr:  pdf.UnicodeTranslatorFromDescriptor(""),
	}

	pdf.SetMargins(marginLeft, marginTop, marginRight)
	pdf.SetAutoPageBreak(true, marginBottom)

	pageW, _ := pdf.GetPageSize()
	generated := now.Format("January 2, 2006")

	pdf.SetHeaderFunc(func() {
		top := pdf.GetY()

		pdf.SetFont("Arial", "B", 20)
		pdf.SetTextColor(headingColor[0], headingColor[1], headingColor[2])
		pdf.CellFormat(0, 12, "Site Visit Report", "", 1, "C", false, 0, "")

		pdf.SetLineWidth(0.8)
		pdf.SetDrawColor(headingColor[0], headingColor[1], headingColor[2])
		pdf.Line(marginLeft, top+14, pageW-marginRight, top+14)

		pdf.SetFont("Arial", "", 10)
		pdf.SetTextColor(100, 100, 100)
		pdf.CellFormat(0, 10, "Generated: "+generated, "", 1, "C", false, 0, "")
		pdf.Ln(5)

		pdf.SetTextColor(0, 0, 0)
	})

	pdf.SetFooterFunc(func() {
		pdf.SetY(-marginBottom)

		pdf.SetLineWidth(0.5)
		pdf.SetDrawColor(headingColor[0], headingColor[1], headingColor[2])
		pdf.Line(marginLeft, pdf.GetY()-2, pageW-marginRight, pdf.GetY()-2)

		pdf.SetFont("Arial", "I", 9)
		pdf.SetTextColor(100, 100, 100)
		pdf.CellFormat(0, 10, fmt.Sprintf("Page %d", pdf.PageNo()), "", 0, "C", false, 0, "")
	})

	return doc
}

func (d *reportDoc) addPage() {
	d.pdf.AddPage()
}

func (d *reportDoc) text(s string) string {
	return d.tr(asciiPunct.Replace(s))
}

func (d *reportDoc) sectionTitle(title string, newPage bool) {
	if newPage {
		d.pdf.AddPage()
	}

	d.pdf.SetFont("Arial", "B", 14)
	d.pdf.SetTextColor(headingColor[0], headingColor[1], headingColor[2])
	d.pdf.SetFillColor(accentColor[0], accentColor[1], accentColor[2])
	d.pdf.SetDrawColor(headingColor[0], headingColor[1], headingColor[2])
	d.pdf.SetLineWidth(0.3)

	d.pdf.CellFormat(0, 12, "  "+d.text(title), "B", 1, "L", true, 0, "")
	d.pdf.Ln(4)

	d.pdf.SetTextColor(0, 0, 0)
}

func (d *reportDoc) field(label, value string) {
	d.pdf.SetFont("Arial", "B", 11)
	d.pdf.SetTextColor(subheadingColor[0], subheadingColor[1], subheadingColor[2])
	d.pdf.CellFormat(45, 8, d.text(label), "", 0, "L", false, 0, "")

	d.pdf.SetTextColor(0, 0, 0)
	d.pdf.SetFont("Arial", "", 11)
	d.pdf.MultiCell(0, 8, d.text(value), "", "L", false)
	d.pdf.Ln(1)
}

// formattedText renders lightweight markup into the document.
func (d *reportDoc) formattedText(text string) {
	for _, block := range ParseBlocks(text) {
		d.renderBlock(block)
	}
}

func (d *reportDoc) renderBlock(block Block) {
	switch block.Kind {
	case BlockBlank:
		d.pdf.Ln(7)
	case BlockParagraphEnd:
		d.pdf.Ln(5)
	case BlockHeading:
		d.renderHeading(block)
	case BlockBullet:
		d.renderListItem("* ", block)
	case BlockNumbered:
		d.renderListItem(block.Marker+" ", block)
	case BlockParagraph:
		d.renderParagraph(block)
	}
}

func (d *reportDoc) renderHeading(block Block) {
	size := float64(16 - block.Level)
	switch block.Level {
	case 1:
		d.pdf.SetTextColor(headingColor[0], headingColor[1], headingColor[2])
	case 2:
		d.pdf.SetTextColor(subheadingColor[0], subheadingColor[1], subheadingColor[2])
	default:
		d.pdf.SetTextColor(80, 80, 80)
	}

	d.pdf.SetFont("Arial", "B", size)
	d.pdf.MultiCell(0, 8, d.text(block.Spans[0].Text), "", "L", false)
	d.pdf.SetTextColor(0, 0, 0)
	d.pdf.Ln(3)
}

func (d *reportDoc) renderListItem(marker string, block Block) {
	x := d.pdf.GetX()
	d.pdf.SetX(x + float64(block.Indent)*2.5 + 5)

	d.pdf.SetFont("Arial", "B", 11)
	d.pdf.SetTextColor(subheadingColor[0], subheadingColor[1], subheadingColor[2])
	d.pdf.Write(7, marker)

	d.pdf.SetTextColor(0, 0, 0)
	d.pdf.SetFont("Arial", "", 11)
	d.pdf.MultiCell(0, 7, d.text(block.Spans[0].Text), "", "L", false)
}

func (d *reportDoc) renderParagraph(block Block) {
	if len(block.Spans) == 1 && !block.Spans[0].Bold {
		d.pdf.SetFont("Arial", "", 11)
		d.pdf.MultiCell(0, 7, d.text(block.Spans[0].Text), "", "L", false)
		return
	}

	for _, span := range block.Spans {
		if span.Bold {
			d.pdf.SetFont("Arial", "B", 11)
			d.pdf.SetTextColor(subheadingColor[0], subheadingColor[1], subheadingColor[2])
			d.pdf.Write(7, d.text(span.Text))
			d.pdf.SetTextColor(0, 0, 0)
		} else {
			d.pdf.SetFont("Arial", "", 11)
			d.pdf.Write(7, d.text(span.Text))
		}
	}
	d.pdf.Ln(7)
}

// photo places one image centered with a framed background and an optional
// caption box beneath it.
func (d *reportDoc) photo(idx int, img model.ReportImage, last bool) error {
	jpeg, err := prepareImage(img.DataURL)
	if err != nil {
		return err
	}

	pageW, pageH := d.pdf.GetPageSize()

	captionHeight := 0.0
	if img.Caption != "" {
		lines := len(img.Caption)/35 + 1
		captionHeight = 5*float64(lines) + 10
	}
	sectionHeight := 10 + imageBoxHeightMM + 8 + captionHeight + 15

	if d.pdf.GetY()+sectionHeight > pageH-marginBottom {
		d.pdf.AddPage()
	}

	d.pdf.SetFont("Arial", "B", 12)
	d.pdf.SetTextColor(subheadingColor[0], subheadingColor[1], subheadingColor[2])
	d.pdf.CellFormat(0, 10, fmt.Sprintf("Photo %d", idx+1), "", 1, "L", false, 0, "")

	imageX := (pageW - imageMaxWidthMM) / 2
	y := d.pdf.GetY()

	d.pdf.SetFillColor(245, 245, 245)
	d.pdf.SetDrawColor(200, 200, 200)
	d.pdf.Rect(imageX-2, y-2, imageMaxWidthMM+4, imageBoxHeightMM+4, "DF")

	name := fmt.Sprintf("report-photo-%d", idx)
	opts := fpdf.ImageOptions{ImageType: "JPEG"}
	d.pdf.RegisterImageOptionsReader(name, opts, bytes.NewReader(jpeg))
	d.pdf.ImageOptions(name, imageX, y, imageMaxWidthMM, imageBoxHeightMM, false, opts, 0, "")
	if err := d.pdf.Error(); err != nil {
		return fmt.Errorf("place image: %w", err)
	}

	d.pdf.SetY(y + imageBoxHeightMM + 6)

	if img.Caption != "" {
		captionY := d.pdf.GetY()
		d.pdf.SetFillColor(240, 240, 245)
		d.pdf.SetDrawColor(200, 200, 220)
		d.pdf.Rect(imageX-2, captionY-2, imageMaxWidthMM+4, captionHeight, "DF")

		d.pdf.SetFont("Arial", "I", 10)
		d.pdf.SetTextColor(40, 40, 40)
		d.pdf.SetXY(imageX+4, captionY)
		d.pdf.MultiCell(imageMaxWidthMM-4, 5, d.text(img.Caption), "", "L", false)
		d.pdf.SetY(captionY + captionHeight + 2)
	}

	d.pdf.SetTextColor(0, 0, 0)

	if !last {
		nextFits := d.pdf.GetY()+15+sectionHeight <= pageH-marginBottom
		if nextFits {
			separatorY := d.pdf.GetY() + 5
			d.pdf.SetDrawColor(220, 220, 220)
			d.pdf.SetLineWidth(0.2)
			d.pdf.Line(marginLeft+20, separatorY, pageW-marginRight-20, separatorY)
			d.pdf.Ln(15)
		} else {
			d.pdf.AddPage()
		}
	} else {
		d.pdf.Ln(10)
	}

	return nil
}

func (d *reportDoc) photoError(idx int) {
	d.pdf.SetFont("Arial", "", 10)
	d.pdf.SetTextColor(200, 0, 0)
	d.pdf.CellFormat(0, 10, fmt.Sprintf("[Image %d could not be processed]", idx+1), "", 1, "L", false, 0, "")
	d.pdf.SetTextColor(0, 0, 0)
}

// prepareImage decodes a base64 data URL, scales the image down to fit the
// photo box, and re-encodes it as JPEG.
func prepareImage(dataURL string) ([]byte, error) {
	if !strings.HasPrefix(dataURL, "data:") {
		return nil, fmt.Errorf("not a data URL")
	}
	_, encoded, found := strings.Cut(dataURL, ",")
	if !found || encoded == "" {
		return nil, fmt.Errorf("data URL has no payload")
	}

	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("decode image data: %w", err)
	}

	src, err := imaging.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}

	// The photo box is sized in mm; fit at the PDF's 72 dpi mapping.
	pxPerMM := 72.0 / 25.4
	maxW := int(imageMaxWidthMM * pxPerMM)
	maxH := int(imageMaxHeightMM * pxPerMM)
	bounds := src.Bounds()
	if bounds.Dx() > maxW || bounds.Dy() > maxH {
		src = imaging.Fit(src, maxW, maxH, imaging.Lanczos)
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, src, imaging.JPEG, imaging.JPEGQuality(90)); err != nil {
		return nil, fmt.Errorf("encode image: %w", err)
	}
	return buf.Bytes(), nil
}
