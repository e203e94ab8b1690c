// Package detect implements the purchase-intent scoring engine: pure
// functions that estimate, from a page snapshot, how likely the user is in
// the middle of a checkout.
package detect

import (
	"regexp"
	"strings"

	"github.com/pausewise/pausewise/internal/page"
)

// Sub-score caps. The total is always the sum of the three and never
// exceeds 100.
const (
	URLScoreMax    = 30
	ButtonScoreMax = 40
	DOMScoreMax    = 30
)

// AutoTriggerThreshold gates automatic interception from background
// scans. PolicyThreshold gates whether the coordinator honors an
// already-triggered event. The asymmetry is intentional: broad auto-detection
// is held to a stricter bar than a click the user actually made.
const (
	AutoTriggerThreshold = 60
	PolicyThreshold      = 50
)

// DirectClickConfidence is reported for a click on a shielded button. The
// click itself is explicit intent, so no heuristic applies.
const DirectClickConfidence = 100

// checkoutPathPattern matches checkout/cart/payment/order URL paths.
var checkoutPathPattern = regexp.MustCompile(
	`(?i)/(checkout|cart|basket|payment|pay|order|orders|purchase|buy|billing)([/?#.]|$)|placeorder|buy-now`)

// purchasePhrases are the visible labels that mark a purchase action.
// Matching is case-insensitive substring.
var purchasePhrases = []string{
	"buy now",
	"place order",
	"place your order",
	"checkout",
	"check out",
	"pay now",
	"complete purchase",
	"complete order",
	"submit order",
	"proceed to checkout",
	"confirm order",
	"confirm purchase",
}

// priceSignals mark classes/attributes that suggest a price or total display.
var priceSignals = []string{"price", "total", "subtotal", "amount", "grand-total"}

// cardSignals mark payment-card input fields.
var cardSignals = []string{"card-number", "cardnumber", "card_number", "cc-number", "ccnumber", "cvv", "cvc", "card-expiry", "expiry", "expiration"}

// summarySignals mark order/cart summary containers.
var summarySignals = []string{"order-summary", "cart-summary", "basket-summary", "checkout-summary", "order_summary", "ordersummary"}

// Breakdown is a score split by signal class, mostly for logging.
type Breakdown struct {
	URL    int
	Button int
	DOM    int
}

// Total sums the sub-scores. Each is independently capped, so the total is
// always in [0, 100].
func (b Breakdown) Total() int {
	return b.URL + b.Button + b.DOM
}

// Score computes the purchase-intent confidence for a snapshot.
func Score(doc *page.Document) int {
	return ScoreBreakdown(doc).Total()
}

// ScoreBreakdown computes the three sub-scores separately.
func ScoreBreakdown(doc *page.Document) Breakdown {
	return Breakdown{
		URL:    URLScore(doc),
		Button: ButtonScore(doc),
		DOM:    DOMScore(doc),
	}
}

// URLScore awards the full 30 points when the URL path looks like a
// checkout flow, else 0. Binary, not cumulative.
func URLScore(doc *page.Document) int {
	if checkoutPathPattern.MatchString(doc.Path()) {
		return URLScoreMax
	}
	return 0
}

// ButtonScore awards the full 40 points when any interactive element carries
// a purchase-action label, else 0.
func ButtonScore(doc *page.Document) int {
	if doc.First(IsPurchaseButton) != nil {
		return ButtonScoreMax
	}
	return 0
}

// DOMScore is additive: +10 for a price/total display, +15 for a
// payment-card field, +5 for an order/cart summary container. Capped at 30.
func DOMScore(doc *page.Document) int {
	score := 0
	if doc.First(hasPriceSignal) != nil {
		score += 10
	}
	if doc.First(isCardField) != nil {
		score += 15
	}
	if doc.First(isSummaryContainer) != nil {
		score += 5
	}
	if score > DOMScoreMax {
		score = DOMScoreMax
	}
	return score
}

// IsPurchaseButton is the button-matching predicate shared with the shield
// manager: a clickable element whose label names a purchase action.
func IsPurchaseButton(e *page.Element) bool {
	if !e.Clickable() {
		return false
	}
	return MatchesPurchasePhrase(e.Label())
}

// MatchesPurchasePhrase reports whether the label contains any of the fixed
// purchase-action phrases.
func MatchesPurchasePhrase(label string) bool {
	label = strings.ToLower(label)
	if label == "" {
		return false
	}
	for _, phrase := range purchasePhrases {
		if strings.Contains(label, phrase) {
			return true
		}
	}
	return false
}

func hasPriceSignal(e *page.Element) bool {
	for _, sig := range priceSignals {
		if e.HasClass(sig) {
			return true
		}
	}
	return strings.EqualFold(e.Attr("itemprop"), "price")
}

func isCardField(e *page.Element) bool {
	if e.Tag != "input" {
		return false
	}
	if ac := strings.ToLower(e.Attr("autocomplete")); strings.HasPrefix(ac, "cc-") {
		return true
	}
	haystack := strings.ToLower(e.ID + " " + e.Attr("name") + " " + e.Attr("placeholder") + " " + strings.Join(e.Classes, " "))
	for _, sig := range cardSignals {
		if strings.Contains(haystack, sig) {
			return true
		}
	}
	return false
}

func isSummaryContainer(e *page.Element) bool {
	haystack := strings.ToLower(e.ID + " " + strings.Join(e.Classes, " "))
	for _, sig := range summarySignals {
		if strings.Contains(haystack, sig) {
			return true
		}
	}
	return false
}
