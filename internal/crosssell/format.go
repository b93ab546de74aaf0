package crosssell

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// FormatCurrency renders an amount as a US-locale dollar string with
// thousands separators, e.g. 12345.678 -> "$12,345.68".
func FormatCurrency(amount float64) string {
	sign := ""
	if amount < 0 {
		sign = "-"
		amount = -amount
	}

	rounded := math.Round(amount*100) / 100
	whole := int64(rounded)
	cents := int64(math.Round((rounded - float64(whole)) * 100))
	if cents == 100 {
		whole++
		cents = 0
	}

	return fmt.Sprintf("%s$%s.%02d", sign, groupThousands(whole), cents)
}

// FormatPercent renders a ratio as a US-locale percentage with one decimal,
// e.g. 0.35 -> "35.0%".
func FormatPercent(ratio float64) string {
	return strconv.FormatFloat(ratio*100, 'f', 1, 64) + "%"
}

func groupThousands(n int64) string {
	digits := strconv.FormatInt(n, 10)
	if len(digits) <= 3 {
		return digits
	}

	var b strings.Builder
	lead := len(digits) % 3
	if lead > 0 {
		b.WriteString(digits[:lead])
	}
	for i := lead; i < len(digits); i += 3 {
		if b.Len() > 0 {
			b.WriteByte(',')
		}
		b.WriteString(digits[i : i+3])
	}
	return b.String()
}
