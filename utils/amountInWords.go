package utils

import (
	"strings"

	"github.com/shopspring/decimal"
)

var (
	wordsOnes = []string{"", "One", "Two", "Three", "Four", "Five", "Six", "Seven", "Eight", "Nine"}

	wordsTeens = []string{"Ten", "Eleven", "Twelve", "Thirteen", "Fourteen", "Fifteen",
		"Sixteen", "Seventeen", "Eighteen", "Nineteen"}

	wordsTens = []string{"", "", "Twenty", "Thirty", "Forty", "Fifty", "Sixty", "Seventy", "Eighty", "Ninety"}
)

func convertHundreds(n int64) string {
	var sb strings.Builder

	if n >= 100 {
		sb.WriteString(wordsOnes[n/100])
		sb.WriteString(" Hundred ")
		n %= 100
	}

	if n >= 20 {
		sb.WriteString(wordsTens[n/10])
		sb.WriteString(" ")
		n %= 10
	} else if n >= 10 {
		sb.WriteString(wordsTeens[n-10])
		sb.WriteString(" ")
		n = 0
	}

	if n > 0 {
		sb.WriteString(wordsOnes[n])
		sb.WriteString(" ")
	}

	return strings.TrimSpace(sb.String())
}

// AmountInWords renders a whole-rupee amount in the Indian numbering system
// ("One Lakh Fifty Thousand Rupees Only"). Fractions are dropped; the caller
// passes the already-rounded final amount.
func AmountInWords(amount decimal.Decimal) string {
	num := amount.IntPart()
	if num < 0 {
		num = -num
	}
	if num == 0 {
		return "Zero Rupees Only"
	}

	switch {
	case num < 1000:
		return convertHundreds(num) + " Rupees Only"
	case num < 100000:
		thousands := num / 1000
		remainder := num % 1000
		result := convertHundreds(thousands) + " Thousand "
		if remainder > 0 {
			result += convertHundreds(remainder) + " "
		}
		return strings.TrimSpace(result) + " Rupees Only"
	default:
		lakhs := num / 100000
		remainder := num % 100000
		result := convertHundreds(lakhs) + " Lakh "
		if remainder >= 1000 {
			result += convertHundreds(remainder/1000) + " Thousand "
			remainder %= 1000
		}
		if remainder > 0 {
			result += convertHundreds(remainder) + " "
		}
		return strings.TrimSpace(result) + " Rupees Only"
	}
}
