package utils

import (
	"github.com/shopspring/decimal"
)

var decimalOneHundred = decimal.NewFromFloat(100)

// GstRates are the slabs a line item may carry. CGST and SGST each take half.
var GstRates = []int{5, 12, 18, 28}

func IsValidGstRate(rate decimal.Decimal) bool {
	for _, r := range GstRates {
		if rate.Equal(decimal.NewFromInt(int64(r))) {
			return true
		}
	}
	return false
}

// TaxableLine is the input shape for tax calculation: one invoice line before
// any amounts have been derived.
type TaxableLine struct {
	Quantity           int
	UnitRate           decimal.Decimal
	DiscountPercentage decimal.Decimal
	GstRate            decimal.Decimal
}

type LineAmounts struct {
	TaxableValue decimal.Decimal
	CgstAmount   decimal.Decimal
	SgstAmount   decimal.Decimal
}

type InvoiceTotals struct {
	TotalTaxableValue decimal.Decimal
	TotalCgst         decimal.Decimal
	TotalSgst         decimal.Decimal
	TotalTax          decimal.Decimal
	RoundOff          decimal.Decimal
	FinalAmount       decimal.Decimal
}

// CalculateLineAmounts derives the taxable value and the equal CGST/SGST halves
// for one line. GST splits evenly: each half is taxable * rate / 200.
func CalculateLineAmounts(line TaxableLine) LineAmounts {
	gross := decimal.NewFromInt(int64(line.Quantity)).Mul(line.UnitRate)
	discountAmount := gross.Mul(line.DiscountPercentage).DivRound(decimalOneHundred, 4)
	taxableValue := gross.Sub(discountAmount)

	halfRate := line.GstRate.DivRound(decimal.NewFromInt(2), 4)
	cgstAmount := taxableValue.Mul(halfRate).DivRound(decimalOneHundred, 4)

	return LineAmounts{
		TaxableValue: taxableValue,
		CgstAmount:   cgstAmount,
		SgstAmount:   cgstAmount,
	}
}

// CalculateInvoiceTotals sums the line amounts and settles the invoice to a
// whole-rupee final amount. RoundOff carries the difference so that
// FinalAmount = TotalTaxableValue + TotalTax + RoundOff always holds.
func CalculateInvoiceTotals(lines []TaxableLine) InvoiceTotals {
	totalTaxableValue := decimal.Zero
	totalCgst := decimal.Zero
	totalSgst := decimal.Zero

	for _, line := range lines {
		amounts := CalculateLineAmounts(line)
		totalTaxableValue = totalTaxableValue.Add(amounts.TaxableValue)
		totalCgst = totalCgst.Add(amounts.CgstAmount)
		totalSgst = totalSgst.Add(amounts.SgstAmount)
	}

	totalTax := totalCgst.Add(totalSgst)
	grossTotal := totalTaxableValue.Add(totalTax)
	finalAmount := grossTotal.Round(0)
	roundOff := finalAmount.Sub(grossTotal)

	return InvoiceTotals{
		TotalTaxableValue: totalTaxableValue.Round(2),
		TotalCgst:         totalCgst.Round(2),
		TotalSgst:         totalSgst.Round(2),
		TotalTax:          totalTax.Round(2),
		RoundOff:          roundOff.Round(2),
		FinalAmount:       finalAmount,
	}
}
