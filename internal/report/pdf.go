package report

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"io"
	"net/http"

	"github.com/jung-kurt/gofpdf"

	"fintrack/internal/core"
)

const (
	pageBottomMargin = 25.0
	rowHeight        = 7.0
)

// RenderPDF writes the report as an A4 PDF, one page per month section.
// Amounts are printed as "Rs." because the rupee sign is not in the
// built-in PDF fonts and renders as garbage.
func RenderPDF(w io.Writer, r Report) error {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetAutoPageBreak(true, pageBottomMargin)

	for _, section := range r.Sections {
		renderSection(pdf, r, section)
	}
	if len(r.Sections) == 0 {
		pdf.AddPage()
		pdf.SetFont("Helvetica", "", 12)
		pdf.CellFormat(0, 10, "No expenses recorded for the selected months.", "", 1, "L", false, 0, "")
	}

	return pdf.Output(w)
}

func renderSection(pdf *gofpdf.Fpdf, r Report, section MonthSection) {
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 18)
	pdf.CellFormat(0, 12, fmt.Sprintf("Expense Report - %s", section.Title), "", 1, "L", false, 0, "")

	pdf.SetFont("Helvetica", "", 10)
	pdf.SetTextColor(100, 100, 100)
	pdf.CellFormat(0, 6, fmt.Sprintf("%s / generated %s", r.UserName, r.GeneratedAt.Format("02 Jan 2006")), "", 1, "L", false, 0, "")
	pdf.SetTextColor(0, 0, 0)
	pdf.Ln(4)

	pdf.SetFont("Helvetica", "B", 12)
	pdf.CellFormat(90, rowHeight, "Transactions", "", 0, "L", false, 0, "")
	pdf.CellFormat(0, rowHeight, pdfMoney(section.TransactionSum), "", 1, "R", false, 0, "")
	pdf.CellFormat(90, rowHeight, "Recurring", "", 0, "L", false, 0, "")
	pdf.CellFormat(0, rowHeight, pdfMoney(section.RecurringSum), "", 1, "R", false, 0, "")
	pdf.SetDrawColor(180, 180, 180)
	pdf.Line(pdf.GetX(), pdf.GetY(), 200, pdf.GetY())
	pdf.CellFormat(90, rowHeight, "Total", "", 0, "L", false, 0, "")
	pdf.CellFormat(0, rowHeight, pdfMoney(section.GrandTotal), "", 1, "R", false, 0, "")
	pdf.Ln(4)

	if len(section.Breakdown) > 0 {
		pdf.SetFont("Helvetica", "B", 12)
		pdf.CellFormat(0, rowHeight, "By category", "", 1, "L", false, 0, "")
		pdf.SetFont("Helvetica", "", 10)
		for _, line := range section.Breakdown {
			pdf.CellFormat(90, 6, string(line.Category), "", 0, "L", false, 0, "")
			pdf.CellFormat(0, 6, pdfMoney(line.Total), "", 1, "R", false, 0, "")
		}
		pdf.Ln(4)
	}

	if len(section.Transactions) == 0 {
		pdf.SetFont("Helvetica", "I", 10)
		pdf.CellFormat(0, 6, "No transactions this month.", "", 1, "L", false, 0, "")
		return
	}

	transactionHeader(pdf)
	for _, e := range section.Transactions {
		_, pageHeight := pdf.GetPageSize()
		if pdf.GetY() > pageHeight-pageBottomMargin-rowHeight {
			pdf.AddPage()
			transactionHeader(pdf)
		}
		pdf.SetFont("Helvetica", "", 9)
		pdf.CellFormat(25, 6, e.Date.Format("02 Jan"), "B", 0, "L", false, 0, "")
		pdf.CellFormat(80, 6, truncate(e.Description, 48), "B", 0, "L", false, 0, "")
		pdf.CellFormat(45, 6, string(e.Category), "B", 0, "L", false, 0, "")
		pdf.CellFormat(0, 6, pdfMoney(e.Amount), "B", 1, "R", false, 0, "")
	}

	renderReceipts(pdf, section)
}

const receiptImageWidth = 80.0

// renderReceipts appends attached receipt images after the transaction
// table. Payloads that do not decode to a supported image format are
// skipped rather than failing the whole report.
func renderReceipts(pdf *gofpdf.Fpdf, section MonthSection) {
	headed := false
	for _, e := range section.Transactions {
		if e.Receipt == "" {
			continue
		}
		data, err := base64.StdEncoding.DecodeString(e.Receipt)
		if err != nil {
			continue
		}
		imageType := receiptImageType(data)
		if imageType == "" {
			continue
		}

		if !headed {
			pdf.Ln(4)
			pdf.SetFont("Helvetica", "B", 12)
			pdf.CellFormat(0, rowHeight, "Receipts", "", 1, "L", false, 0, "")
			headed = true
		}

		name := fmt.Sprintf("receipt-%s", e.ID)
		pdf.RegisterImageOptionsReader(name, gofpdf.ImageOptions{ImageType: imageType}, bytes.NewReader(data))
		if pdf.Err() {
			// unregister is not possible; clear the error and move on
			pdf.ClearError()
			continue
		}

		caption := e.Description
		if e.ReceiptName != "" {
			caption = fmt.Sprintf("%s (%s)", e.Description, e.ReceiptName)
		}
		pdf.SetFont("Helvetica", "I", 9)
		pdf.CellFormat(0, 6, fmt.Sprintf("%s - %s", e.Date.Format("02 Jan"), truncate(caption, 70)), "", 1, "L", false, 0, "")
		pdf.ImageOptions(name, pdf.GetX(), pdf.GetY(), receiptImageWidth, 0, true, gofpdf.ImageOptions{ImageType: imageType}, 0, "")
		pdf.Ln(2)
	}
}

// receiptImageType maps a decoded payload to a gofpdf image type, or ""
// when the payload is not an embeddable image.
func receiptImageType(data []byte) string {
	switch http.DetectContentType(data) {
	case "image/png":
		return "PNG"
	case "image/jpeg":
		return "JPG"
	case "image/gif":
		return "GIF"
	default:
		return ""
	}
}

func transactionHeader(pdf *gofpdf.Fpdf) {
	pdf.SetFont("Helvetica", "B", 10)
	pdf.CellFormat(25, 7, "Date", "B", 0, "L", false, 0, "")
	pdf.CellFormat(80, 7, "Description", "B", 0, "L", false, 0, "")
	pdf.CellFormat(45, 7, "Category", "B", 0, "L", false, 0, "")
	pdf.CellFormat(0, 7, "Amount", "B", 1, "R", false, 0, "")
}

func pdfMoney(m core.Money) string {
	return fmt.Sprintf("Rs. %.2f", m.Rupees())
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}
