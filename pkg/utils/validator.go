package utils

import (
	"regexp"
	"strings"
)

// validator.go - валидация входных данных торгового ядра

// symbolPattern - допустимый формат торгового символа: заглавные латинские
// буквы и цифры, от 5 до 20 символов (BTCUSDT, 1000PEPEUSDT и т.п.)
var symbolPattern = regexp.MustCompile(`^[A-Z0-9]{5,20}$`)

// IsValidSymbol проверяет формат торгового символа
func IsValidSymbol(symbol string) bool {
	return symbolPattern.MatchString(symbol)
}

// NormalizeSymbol приводит символ к каноническому виду:
// верхний регистр, без пробелов и разделителей.
//
// Примеры:
//   - "btcusdt"  -> "BTCUSDT"
//   - "BTC/USDT" -> "BTCUSDT"
//   - "BTC-USDT" -> "BTCUSDT"
func NormalizeSymbol(symbol string) string {
	s := strings.ToUpper(strings.TrimSpace(symbol))
	s = strings.ReplaceAll(s, "/", "")
	s = strings.ReplaceAll(s, "-", "")
	s = strings.ReplaceAll(s, "_", "")
	return s
}

// IsValidSide проверяет сторону ордера
func IsValidSide(side string) bool {
	return side == "buy" || side == "sell"
}

// IsPositiveQty проверяет что количество положительное и конечное
func IsPositiveQty(qty float64) bool {
	return qty > 0 && qty == qty && qty < 1e15 // qty == qty отсекает NaN
}
