package reports

import (
	"bytes"
	"fmt"

	"github.com/xuri/excelize/v2"

	"github.com/Aman-CU/gstbilling/models"
)

// ExportInvoiceRegister renders the invoice list as a spreadsheet, one row
// per invoice, newest first as the caller loaded them.
func ExportInvoiceRegister(invoices []*models.Invoice) ([]byte, error) {
	f := excelize.NewFile()
	sheetName := "Invoices"
	index, err := f.NewSheet(sheetName)
	if err != nil {
		return nil, err
	}
	f.SetActiveSheet(index)
	f.DeleteSheet("Sheet1")

	// Add headers
	headings := []string{
		"InvoiceNumber", "Date", "Customer", "Mobile",
		"TaxableValue", "CGST", "SGST", "TotalTax", "RoundOff", "FinalAmount",
	}
	col := 'A'
	for _, h := range headings {
		f.SetCellValue(sheetName, string(col)+"1", h)
		col++
	}

	// Add data
	for i, inv := range invoices {
		row := fmt.Sprint(i + 2)
		number := ""
		if inv.InvoiceNumber != nil {
			number = *inv.InvoiceNumber
		}
		taxable, _ := inv.TotalTaxableValue.Float64()
		cgst, _ := inv.TotalCgst.Float64()
		sgst, _ := inv.TotalSgst.Float64()
		totalTax, _ := inv.TotalTax.Float64()
		roundOff, _ := inv.RoundOff.Float64()
		final, _ := inv.FinalAmount.Float64()

		f.SetCellValue(sheetName, "A"+row, number)
		f.SetCellValue(sheetName, "B"+row, inv.CreatedAt.Format("02-01-2006"))
		f.SetCellValue(sheetName, "C"+row, inv.CustomerDetails.Name)
		f.SetCellValue(sheetName, "D"+row, inv.CustomerDetails.Mobile)
		f.SetCellValue(sheetName, "E"+row, taxable)
		f.SetCellValue(sheetName, "F"+row, cgst)
		f.SetCellValue(sheetName, "G"+row, sgst)
		f.SetCellValue(sheetName, "H"+row, totalTax)
		f.SetCellValue(sheetName, "I"+row, roundOff)
		f.SetCellValue(sheetName, "J"+row, final)
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
