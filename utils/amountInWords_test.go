package utils_test

import (
	"testing"

	"github.com/Aman-CU/gstbilling/utils"
)

func TestAmountInWords(t *testing.T) {
	cases := []struct {
		amount string
		want   string
	}{
		{"0", "Zero Rupees Only"},
		{"7", "Seven Rupees Only"},
		{"42", "Forty Two Rupees Only"},
		{"100", "One Hundred Rupees Only"},
		{"1062", "One Thousand Sixty Two Rupees Only"},
		{"10000", "Ten Thousand Rupees Only"},
		{"99999", "Ninety Nine Thousand Nine Hundred Ninety Nine Rupees Only"},
		{"150000", "One Lakh Fifty Thousand Rupees Only"},
		{"100001", "One Lakh One Rupees Only"},
	}

	for _, tc := range cases {
		if got := utils.AmountInWords(dec(tc.amount)); got != tc.want {
			t.Fatalf("AmountInWords(%s) = %q, want %q", tc.amount, got, tc.want)
		}
	}
}

// Paise are not spelled out; the words describe the whole-rupee part.
func TestAmountInWords_TruncatesPaise(t *testing.T) {
	if got, want := utils.AmountInWords(dec("117.41")), "One Hundred Seventeen Rupees Only"; got != want {
		t.Fatalf("AmountInWords(117.41) = %q, want %q", got, want)
	}
}
