package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"acp-proxy/internal/acp"
)

// zeroDecimalCurrencies have no minor unit: amounts are whole units.
var zeroDecimalCurrencies = map[string]bool{
	"JPY": true, "KRW": true, "VND": true, "CLP": true, "ISK": true, "UGX": true,
}

var currencySymbols = map[string]string{
	"USD": "$", "CAD": "$", "AUD": "$", "EUR": "€", "GBP": "£", "JPY": "¥",
}

// formatMoney renders a minor-unit amount in the session currency.
func formatMoney(amount int64, currency string) string {
	currency = strings.ToUpper(currency)
	places := int32(2)
	if zeroDecimalCurrencies[currency] {
		places = 0
	}

	value := decimal.New(amount, -places).StringFixed(places)
	if sym, ok := currencySymbols[currency]; ok {
		if strings.HasPrefix(value, "-") {
			return "-" + sym + value[1:]
		}
		return sym + value
	}
	if currency == "" {
		return value
	}
	return value + " " + currency
}

func printSummary(s *acp.Session) {
	fmt.Printf("  Status: %s%s%s\n", colorCyan, s.Status, colorReset)
	for _, item := range s.Items {
		fmt.Printf("  %s x%d  %s\n", item.Name, item.Quantity, formatMoney(item.TotalPrice, s.Currency))
	}
	fmt.Printf("  Subtotal: %s\n", formatMoney(s.Subtotal, s.Currency))
	if s.ShippingCost != nil {
		fmt.Printf("  Shipping: %s\n", formatMoney(*s.ShippingCost, s.Currency))
	}
	if s.Tax != nil {
		fmt.Printf("  Tax: %s\n", formatMoney(*s.Tax, s.Currency))
	}
	if s.Discount != nil && *s.Discount != 0 {
		fmt.Printf("  Discount: -%s\n", formatMoney(*s.Discount, s.Currency))
	}
	fmt.Printf("  Total: %s%s%s\n", colorGreen, formatMoney(s.Total, s.Currency), colorReset)
}

func printRequest(method, path string, body []byte) {
	fmt.Printf("\n%s▶ REQUEST%s %s%s %s%s\n", colorYellow, colorReset, colorBold, method, path, colorReset)
	if body != nil {
		printJSON(body, "  ")
	}
}

func printResponse(status int, body []byte, duration time.Duration) {
	statusColor := colorGreen
	if status >= 400 {
		statusColor = colorRed
	}
	fmt.Printf("\n%s◀ RESPONSE%s %s%d%s (%v)\n", colorCyan, colorReset, statusColor, status, colorReset, duration)
	printJSON(body, "  ")
}

func printJSON(data []byte, prefix string) {
	var pretty bytes.Buffer
	if err := json.Indent(&pretty, data, prefix, "  "); err != nil {
		fmt.Printf("%s%s\n", prefix, string(data))
		return
	}

	output := pretty.String()
	if !verbose {
		lines := strings.Split(output, "\n")
		if len(lines) > 30 {
			lines = append(lines[:25], fmt.Sprintf("%s  %s(%d more lines, use -v for full output)%s", prefix, colorGray, len(lines)-25, colorReset))
			output = strings.Join(lines, "\n")
		}
	}
	fmt.Println(output)
}

func printSuccess(format string, args ...any) {
	if !quiet {
		fmt.Printf("%s✓ %s%s\n", colorGreen, fmt.Sprintf(format, args...), colorReset)
	}
}

func printWarning(format string, args ...any) {
	fmt.Printf("%s⚠ %s%s\n", colorYellow, fmt.Sprintf(format, args...), colorReset)
}
