package aras

import (
	"strings"
	"unicode"

	"github.com/sunucuics/ICS-APP-BACK/internal/domain"
)

// classifierRule maps a keyword in the carrier's status text to an order
// status. Rules are checked in order; the first match wins, so the more
// specific delivery keywords sit above the generic movement ones.
type classifierRule struct {
	keyword string
	status  domain.OrderStatus
}

var classifierRules = []classifierRule{
	{"teslim", domain.StatusDelivered},
	{"dağıtım", domain.StatusOutForDelivery},
	{"yolda", domain.StatusInTransit},
	{"transfer", domain.StatusInTransit},
	{"çıkış", domain.StatusHandedToCarrier},
	{"kabul", domain.StatusHandedToCarrier},
	{"şube", domain.StatusHandedToCarrier},
	{"hub", domain.StatusHandedToCarrier},
	{"alındı", domain.StatusOrderReceived},
}

// Classify turns a carrier status into the next order status. The delivered
// flag always wins. Unmapped texts keep the previous status, and a mapped
// text that would regress the progression is ignored as a stale scan.
func Classify(statusText string, delivered bool, previous domain.OrderStatus) domain.OrderStatus {
	if delivered {
		if previous.CanTransitionTo(domain.StatusDelivered) {
			return domain.StatusDelivered
		}
		return previous
	}

	text := toLowerTurkish(statusText)
	for _, rule := range classifierRules {
		if !strings.Contains(text, toLowerTurkish(rule.keyword)) {
			continue
		}
		if rule.status == previous {
			return previous
		}
		if previous.CanTransitionTo(rule.status) {
			return rule.status
		}
		return previous
	}
	return previous
}

// toLowerTurkish lowercases with Turkish casing so dotted and dotless I
// fold correctly (İ->i, I->ı).
func toLowerTurkish(s string) string {
	return strings.ToLowerSpecial(unicode.TurkishCase, s)
}
