package reports

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"net/http"
	"strings"

	"github.com/jung-kurt/gofpdf"
	"github.com/shopspring/decimal"

	"github.com/Aman-CU/gstbilling/models"
	"github.com/Aman-CU/gstbilling/utils"
)

// RenderInvoicePDF lays out a single tax invoice on A4 from the stored
// snapshots, so the document matches what the customer was billed even if the
// shop profile changed afterwards.
func RenderInvoicePDF(invoice *models.Invoice) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.AddPage()

	marginX := 15.0
	marginY := 15.0
	pdf.SetMargins(marginX, marginY, marginX)
	pdf.SetAutoPageBreak(true, marginY)

	pageWidth, _ := pdf.GetPageSize()
	contentWidth := pageWidth - 2*marginX

	// Shop header
	pdf.SetFont("Arial", "B", 16)
	pdf.CellFormat(contentWidth, 9, invoice.ShopDetails.Name, "", 1, "C", false, 0, "")
	pdf.SetFont("Arial", "", 10)
	if invoice.ShopDetails.Address != "" {
		pdf.CellFormat(contentWidth, 5, invoice.ShopDetails.Address, "", 1, "C", false, 0, "")
	}
	headerBits := make([]string, 0, 3)
	if invoice.ShopDetails.GstNumber != "" {
		headerBits = append(headerBits, "GSTIN: "+invoice.ShopDetails.GstNumber)
	}
	if invoice.ShopDetails.State != "" {
		headerBits = append(headerBits, "State: "+invoice.ShopDetails.State)
	}
	if invoice.ShopDetails.Phone != nil && *invoice.ShopDetails.Phone != "" {
		headerBits = append(headerBits, "Phone: "+*invoice.ShopDetails.Phone)
	}
	if len(headerBits) > 0 {
		pdf.CellFormat(contentWidth, 5, strings.Join(headerBits, "   "), "", 1, "C", false, 0, "")
	}
	pdf.Ln(3)

	pdf.SetFont("Arial", "B", 12)
	pdf.CellFormat(contentWidth, 7, "TAX INVOICE", "TB", 1, "C", false, 0, "")
	pdf.Ln(2)

	// Invoice meta
	pdf.SetFont("Arial", "", 10)
	number := "PENDING"
	if invoice.InvoiceNumber != nil && *invoice.InvoiceNumber != "" {
		number = *invoice.InvoiceNumber
	}
	pdf.CellFormat(contentWidth/2, 6, "Invoice No: "+number, "", 0, "L", false, 0, "")
	pdf.CellFormat(contentWidth/2, 6, "Date: "+invoice.CreatedAt.Format("02-01-2006"), "", 1, "R", false, 0, "")
	reverseCharge := "No"
	if invoice.ReverseCharge {
		reverseCharge = "Yes"
	}
	pdf.CellFormat(contentWidth, 6, "Reverse Charge: "+reverseCharge, "", 1, "L", false, 0, "")
	pdf.Ln(2)

	// Customer block
	pdf.SetFont("Arial", "B", 10)
	pdf.CellFormat(contentWidth, 6, "BILL TO:", "", 1, "L", false, 0, "")
	pdf.SetFont("Arial", "", 10)
	pdf.CellFormat(contentWidth, 5, invoice.CustomerDetails.Name, "", 1, "L", false, 0, "")
	pdf.CellFormat(contentWidth, 5, "Mobile: "+invoice.CustomerDetails.Mobile, "", 1, "L", false, 0, "")
	if invoice.CustomerDetails.Address != nil && *invoice.CustomerDetails.Address != "" {
		pdf.CellFormat(contentWidth, 5, *invoice.CustomerDetails.Address, "", 1, "L", false, 0, "")
	}
	if invoice.CustomerDetails.State != nil && *invoice.CustomerDetails.State != "" {
		pdf.CellFormat(contentWidth, 5, "State: "+*invoice.CustomerDetails.State, "", 1, "L", false, 0, "")
	}
	pdf.Ln(3)

	// Item table
	cols := []struct {
		title string
		width float64
		align string
	}{
		{"#", 8, "C"},
		{"Item", 46, "L"},
		{"Qty", 10, "C"},
		{"Rate", 18, "R"},
		{"Disc %", 12, "R"},
		{"GST %", 14, "R"},
		{"Taxable", 20, "R"},
		{"CGST", 16, "R"},
		{"SGST", 16, "R"},
		{"Amount", 20, "R"},
	}

	pdf.SetFont("Arial", "B", 9)
	pdf.SetFillColor(230, 230, 230)
	for _, col := range cols {
		pdf.CellFormat(col.width, 7, col.title, "1", 0, col.align, true, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Arial", "", 9)
	for i, item := range invoice.Products {
		line := utils.TaxableLine{
			Quantity:           item.Quantity,
			UnitRate:           item.UnitRate,
			DiscountPercentage: item.DiscountPercentage,
			GstRate:            item.GstRate,
		}
		amounts := utils.CalculateLineAmounts(line)
		lineTotal := amounts.TaxableValue.Add(amounts.CgstAmount).Add(amounts.SgstAmount).Round(2)

		cells := []string{
			fmt.Sprintf("%d", i+1),
			item.Name,
			fmt.Sprintf("%d", item.Quantity),
			item.UnitRate.StringFixed(2),
			item.DiscountPercentage.StringFixed(1),
			item.GstRate.StringFixed(0),
			amounts.TaxableValue.Round(2).StringFixed(2),
			amounts.CgstAmount.Round(2).StringFixed(2),
			amounts.SgstAmount.Round(2).StringFixed(2),
			lineTotal.StringFixed(2),
		}
		for j, col := range cols {
			pdf.CellFormat(col.width, 6, cells[j], "1", 0, col.align, false, 0, "")
		}
		pdf.Ln(-1)
	}
	pdf.Ln(3)

	// Totals block, right aligned
	totalsLabelWidth := contentWidth - 60
	writeTotal := func(label string, value decimal.Decimal, bold bool) {
		style := ""
		if bold {
			style = "B"
		}
		pdf.SetFont("Arial", style, 10)
		pdf.CellFormat(totalsLabelWidth, 6, label, "", 0, "R", false, 0, "")
		pdf.CellFormat(60, 6, value.StringFixed(2), "", 1, "R", false, 0, "")
	}
	writeTotal("Taxable Value:", invoice.TotalTaxableValue, false)
	writeTotal("CGST:", invoice.TotalCgst, false)
	writeTotal("SGST:", invoice.TotalSgst, false)
	writeTotal("Total Tax:", invoice.TotalTax, false)
	writeTotal("Round Off:", invoice.RoundOff, false)
	writeTotal("Final Amount:", invoice.FinalAmount, true)
	pdf.Ln(2)

	pdf.SetFont("Arial", "I", 10)
	pdf.CellFormat(contentWidth, 6, "Amount in words: "+invoice.AmountInWords, "", 1, "L", false, 0, "")
	pdf.Ln(4)

	if invoice.QrCodeBase64 != nil && *invoice.QrCodeBase64 != "" {
		if err := placeQrCode(pdf, *invoice.QrCodeBase64, marginX); err == nil {
			pdf.Ln(38)
		}
	}

	pdf.SetFont("Arial", "", 9)
	pdf.CellFormat(contentWidth, 6, "This is a computer generated invoice.", "T", 1, "C", false, 0, "")

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// placeQrCode decodes the stored base64 image and anchors it at the current
// cursor. A broken image never fails the whole document.
func placeQrCode(pdf *gofpdf.Fpdf, encoded string, marginX float64) error {
	if idx := strings.Index(encoded, ","); idx >= 0 && strings.Contains(encoded[:idx], "base64") {
		encoded = encoded[idx+1:]
	}
	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return err
	}
	var imageType string
	switch http.DetectContentType(raw) {
	case "image/png":
		imageType = "PNG"
	case "image/jpeg":
		imageType = "JPG"
	case "image/gif":
		imageType = "GIF"
	default:
		return fmt.Errorf("unsupported qr image type")
	}
	name := "invoice-qr"
	pdf.RegisterImageOptionsReader(name, gofpdf.ImageOptions{ImageType: imageType}, bytes.NewReader(raw))
	if pdf.Err() {
		return pdf.Error()
	}
	pdf.ImageOptions(name, marginX, pdf.GetY(), 35, 35, false, gofpdf.ImageOptions{ImageType: imageType}, 0, "")
	if pdf.Err() {
		return pdf.Error()
	}
	return nil
}
