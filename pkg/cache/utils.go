package cache

import (
	"fmt"
	"strings"
)

const (
	fundamentalsPrefix = "fund"
	historyPrefix      = "hist"
	edgePrefix         = "api:edge"
	cooldownPrefix     = "alert"
)

// GenerateKey joins prefix and id with a colon.
func GenerateKey(prefix string, id string) string {
	return fmt.Sprintf("%s:%s", prefix, id)
}

// GenerateKeyWithParams appends each param to prefix, colon separated.
func GenerateKeyWithParams(prefix string, params ...interface{}) string {
	var b strings.Builder
	b.WriteString(prefix)
	for _, param := range params {
		fmt.Fprintf(&b, ":%v", param)
	}
	return b.String()
}

// FundamentalsKey holds a symbol's share structure.
func FundamentalsKey(symbol string) string {
	return GenerateKey(fundamentalsPrefix, strings.ToUpper(symbol))
}

// HistoryKey holds historical gap stats computed over a lookback of days.
func HistoryKey(symbol string, days int) string {
	return GenerateKeyWithParams(historyPrefix, strings.ToUpper(symbol), days)
}

// EdgeKey holds a single-symbol API analysis.
func EdgeKey(symbol string, force bool) string {
	return GenerateKeyWithParams(edgePrefix, strings.ToUpper(symbol), force)
}

// CooldownKey is locked while a symbol's alert cooldown runs.
func CooldownKey(symbol string) string {
	return GenerateKey(cooldownPrefix, strings.ToUpper(symbol))
}
