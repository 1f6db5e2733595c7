// pkg/report/pdf.go
package report

import (
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"time"

	"github.com/go-pdf/fpdf"
	"go.uber.org/zap"

	"github.com/David-Botos/dni-validator/pkg/model"
)

const (
	// TimestampLayout is how the report date is printed
	TimestampLayout = "2006-01-02 15:04:05"

	title        = "Reporte de Validación de Registros"
	tableHeading = "Conteo por motivo de rechazo"

	pieRadius   = 30.0
	pieSegments = 180
)

type rgb struct{ r, g, b int }

var (
	colorValid    = rgb{31, 119, 180}
	colorRejected = rgb{255, 127, 14}
	colorHeader   = rgb{211, 211, 211}
	colorGrid     = rgb{128, 128, 128}
)

// PDFEmitter renders the run summary as a one page PDF
type PDFEmitter struct {
	logger *zap.Logger
	now    func() time.Time
}

// NewPDFEmitter creates a new PDFEmitter
func NewPDFEmitter(logger *zap.Logger) (*PDFEmitter, error) {
	if logger == nil {
		return nil, errors.New("logger cannot be nil")
	}
	return &PDFEmitter{
		logger: logger.Named("report"),
		now:    time.Now,
	}, nil
}

// WithClock returns a copy of the emitter that stamps reports using now
func (e *PDFEmitter) WithClock(now func() time.Time) *PDFEmitter {
	clone := *e
	clone.now = now
	return &clone
}

// Emit writes the report to path
func (e *PDFEmitter) Emit(summary model.RunSummary, path string) (err error) {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create report file: %w", err)
	}
	defer func() {
		if cerr := file.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("failed to close report file: %w", cerr)
		}
	}()

	if err := e.Render(file, summary); err != nil {
		return err
	}

	e.logger.Info("Wrote report", zap.String("path", path))
	return nil
}

// Render writes the report to w
func (e *PDFEmitter) Render(w io.Writer, summary model.RunSummary) error {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(10, 10, 10)
	pdf.SetAutoPageBreak(true, 6)
	pdf.SetTitle(title, true)
	pdf.SetCreationDate(e.now())
	pdf.SetModificationDate(e.now())
	pdf.AddPage()

	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pdf.SetFont("Helvetica", "B", 18)
	pdf.CellFormat(0, 10, tr(title), "", 1, "L", false, 0, "")
	pdf.Ln(3)

	pdf.SetFont("Helvetica", "", 11)
	pdf.CellFormat(0, 6, tr("Fecha: "+e.now().Format(TimestampLayout)), "", 1, "L", false, 0, "")
	countLine(pdf, tr("Total registros: "), summary.Total)
	countLine(pdf, tr("Válidos: "), summary.Valid)
	countLine(pdf, tr("Rechazados: "), summary.Rejected)
	pdf.Ln(4)

	drawPie(pdf, tr, summary.Valid, summary.Rejected)

	pdf.SetFont("Helvetica", "B", 14)
	pdf.CellFormat(0, 8, tr(tableHeading), "", 1, "L", false, 0, "")

	drawTally(pdf, tr, summary.Tally)

	if err := pdf.Error(); err != nil {
		return fmt.Errorf("failed to build report: %w", err)
	}
	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	return nil
}

func countLine(pdf *fpdf.Fpdf, label string, n int) {
	pdf.SetFont("Helvetica", "", 11)
	pdf.CellFormat(pdf.GetStringWidth(label), 6, label, "", 0, "L", false, 0, "")
	pdf.SetFont("Helvetica", "B", 11)
	pdf.CellFormat(0, 6, strconv.Itoa(n), "", 1, "L", false, 0, "")
}

// drawPie draws valid vs rejected starting at 12 o'clock, counter clockwise
func drawPie(pdf *fpdf.Fpdf, tr func(string) string, valid, rejected int) {
	_, top := pdf.GetXY()
	left, _, _, _ := pdf.GetMargins()
	cx := left + 10 + pieRadius
	cy := top + pieRadius

	slices := []struct {
		label string
		count int
		color rgb
	}{
		{tr("Válidos"), valid, colorValid},
		{tr("Rechazados"), rejected, colorRejected},
	}

	total := valid + rejected
	pdf.SetDrawColor(255, 255, 255)
	pdf.SetLineWidth(0.3)

	if total == 0 {
		pdf.SetDrawColor(colorGrid.r, colorGrid.g, colorGrid.b)
		pdf.Circle(cx, cy, pieRadius, "D")
	}

	start := 90.0
	for _, s := range slices {
		if total == 0 || s.count == 0 {
			continue
		}
		share := float64(s.count) / float64(total)
		sweep := share * 360
		pdf.SetFillColor(s.color.r, s.color.g, s.color.b)
		pdf.Polygon(sector(cx, cy, pieRadius, start, sweep), "F")

		mid := (start + sweep/2) * math.Pi / 180
		pdf.SetFont("Helvetica", "B", 9)
		pdf.SetTextColor(255, 255, 255)
		pct := fmt.Sprintf("%.1f%%", share*100)
		px := cx + 0.6*pieRadius*math.Cos(mid)
		py := cy - 0.6*pieRadius*math.Sin(mid)
		pdf.Text(px-pdf.GetStringWidth(pct)/2, py+1.5, pct)

		start += sweep
	}

	// Legend
	pdf.SetTextColor(0, 0, 0)
	pdf.SetFont("Helvetica", "", 10)
	lx := cx + pieRadius + 15
	ly := cy - 6
	for i, s := range slices {
		y := ly + float64(i)*8
		pdf.SetFillColor(s.color.r, s.color.g, s.color.b)
		pdf.Rect(lx, y-3.5, 4, 4, "F")
		pdf.Text(lx+6, y, s.label)
	}

	pdf.SetXY(left, cy+pieRadius+6)
}

// sector returns the outline of a pie slice as a polygon
func sector(cx, cy, r, startDeg, sweepDeg float64) []fpdf.PointType {
	steps := int(math.Ceil(sweepDeg / 360 * pieSegments))
	if steps < 1 {
		steps = 1
	}

	points := make([]fpdf.PointType, 0, steps+2)
	if sweepDeg < 360 {
		points = append(points, fpdf.PointType{X: cx, Y: cy})
	}
	for i := 0; i <= steps; i++ {
		a := (startDeg + sweepDeg*float64(i)/float64(steps)) * math.Pi / 180
		points = append(points, fpdf.PointType{X: cx + r*math.Cos(a), Y: cy - r*math.Sin(a)})
	}
	return points
}

func drawTally(pdf *fpdf.Fpdf, tr func(string) string, tally []model.ReasonCount) {
	const (
		reasonWidth = 88.0
		countWidth  = 28.0
		rowHeight   = 7.0
	)

	pdf.SetDrawColor(colorGrid.r, colorGrid.g, colorGrid.b)
	pdf.SetLineWidth(0.2)
	pdf.SetFillColor(colorHeader.r, colorHeader.g, colorHeader.b)
	pdf.SetFont("Helvetica", "B", 10)
	pdf.CellFormat(reasonWidth, rowHeight, "Motivo", "1", 0, "L", true, 0, "")
	pdf.CellFormat(countWidth, rowHeight, "Cantidad", "1", 1, "L", true, 0, "")

	pdf.SetFont("Helvetica", "", 10)
	for _, rc := range tally {
		pdf.CellFormat(reasonWidth, rowHeight, tr(string(rc.Reason)), "1", 0, "L", false, 0, "")
		pdf.CellFormat(countWidth, rowHeight, strconv.Itoa(rc.Count), "1", 1, "L", false, 0, "")
	}
}
