package detect

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/pausewise/pausewise/internal/page"
)

func buyButton(label string) *page.Element {
	return &page.Element{
		Tag:  "button",
		Text: label,
		Rect: page.Rect{X: 10, Y: 10, Width: 120, Height: 40},
	}
}

func TestURLScore(t *testing.T) {
	tests := []struct {
		name string
		url  string
		want int
	}{
		{name: "checkout path", url: "https://shop.example.com/checkout", want: URLScoreMax},
		{name: "cart path", url: "https://shop.example.com/cart?step=2", want: URLScoreMax},
		{name: "nested order path", url: "https://shop.example.com/gp/buy/spc/handlers/display.html", want: URLScoreMax},
		{name: "placeorder anywhere", url: "https://shop.example.com/gp/placeorder", want: URLScoreMax},
		{name: "buy-now suffix", url: "https://shop.example.com/item/123/buy-now", want: URLScoreMax},
		{name: "product page", url: "https://shop.example.com/products/widget", want: 0},
		{name: "cartoon is not cart", url: "https://example.com/cartoons", want: 0},
		{name: "host never matches", url: "https://checkout.example.com/about", want: 0},
		{name: "empty url", url: "", want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := &page.Document{URL: tt.url}
			assert.Equal(t, tt.want, URLScore(doc))
		})
	}
}

func TestButtonScore(t *testing.T) {
	tests := []struct {
		name     string
		elements []*page.Element
		want     int
	}{
		{
			name:     "buy now button",
			elements: []*page.Element{buyButton("Buy Now")},
			want:     ButtonScoreMax,
		},
		{
			name: "submit input with value",
			elements: []*page.Element{{
				Tag:   "input",
				Attrs: map[string]string{"type": "submit", "value": "Place your order"},
				Rect:  page.Rect{Width: 100, Height: 30},
			}},
			want: ButtonScoreMax,
		},
		{
			name: "aria role button",
			elements: []*page.Element{{
				Tag:   "div",
				Attrs: map[string]string{"role": "button", "aria-label": "Proceed to checkout"},
			}},
			want: ButtonScoreMax,
		},
		{
			name:     "multiple buttons score once",
			elements: []*page.Element{buyButton("Buy Now"), buyButton("Checkout")},
			want:     ButtonScoreMax,
		},
		{
			name:     "phrase on non-clickable element",
			elements: []*page.Element{{Tag: "span", Text: "Buy Now"}},
			want:     0,
		},
		{
			name:     "unrelated button",
			elements: []*page.Element{buyButton("Add to wishlist")},
			want:     0,
		},
		{
			name: "text input is not clickable",
			elements: []*page.Element{{
				Tag:   "input",
				Attrs: map[string]string{"type": "text", "value": "buy now"},
			}},
			want: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := &page.Document{URL: "https://example.com/", Elements: tt.elements}
			assert.Equal(t, tt.want, ButtonScore(doc))
		})
	}
}

func TestDOMScore(t *testing.T) {
	price := &page.Element{Tag: "span", Classes: []string{"grand-total"}}
	card := &page.Element{Tag: "input", Attrs: map[string]string{"autocomplete": "cc-number"}}
	summary := &page.Element{Tag: "div", ID: "order-summary"}

	tests := []struct {
		name     string
		elements []*page.Element
		want     int
	}{
		{name: "nothing", elements: nil, want: 0},
		{name: "price only", elements: []*page.Element{price}, want: 10},
		{name: "card only", elements: []*page.Element{card}, want: 15},
		{name: "summary only", elements: []*page.Element{summary}, want: 5},
		{name: "all three", elements: []*page.Element{price, card, summary}, want: 30},
		{
			name: "duplicate signals count once",
			elements: []*page.Element{
				price,
				{Tag: "span", Classes: []string{"price"}},
				{Tag: "div", Attrs: map[string]string{"itemprop": "price"}},
			},
			want: 10,
		},
		{
			name: "card signal via field name",
			elements: []*page.Element{{
				Tag:   "input",
				Attrs: map[string]string{"name": "billing_cc_number_cvv"},
			}},
			want: 15,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := &page.Document{URL: "https://example.com/", Elements: tt.elements}
			assert.Equal(t, tt.want, DOMScore(doc))
		})
	}
}

func TestScoreComposition(t *testing.T) {
	full := &page.Document{
		URL: "https://shop.example.com/checkout/payment",
		Elements: []*page.Element{
			buyButton("Place Order"),
			{Tag: "span", Classes: []string{"order-total", "price"}},
			{Tag: "input", Attrs: map[string]string{"autocomplete": "cc-number"}},
			{Tag: "div", Classes: []string{"order-summary"}},
		},
	}
	assert.Equal(t, 100, Score(full), "a real checkout page maxes out")

	empty := &page.Document{URL: "https://example.com/blog/post"}
	assert.Equal(t, 0, Score(empty))

	breakdown := ScoreBreakdown(full)
	assert.Equal(t, URLScoreMax, breakdown.URL)
	assert.Equal(t, ButtonScoreMax, breakdown.Button)
	assert.Equal(t, DOMScoreMax, breakdown.DOM)
	assert.Equal(t, breakdown.Total(), Score(full))
}

func TestScoreThresholdBoundary(t *testing.T) {
	// Button plus price and summary lands exactly on 55: high signals but
	// below the auto-trigger bar.
	doc := &page.Document{
		URL: "https://shop.example.com/item/42",
		Elements: []*page.Element{
			buyButton("Buy Now"),
			{Tag: "span", Classes: []string{"price"}},
			{Tag: "div", ID: "order-summary"},
		},
	}
	got := Score(doc)
	assert.Equal(t, 55, got)
	assert.Less(t, got, AutoTriggerThreshold)
	assert.GreaterOrEqual(t, got, PolicyThreshold)

	// Adding a card field crosses the auto-trigger bar.
	doc.Elements = append(doc.Elements, &page.Element{
		Tag: "input", Attrs: map[string]string{"autocomplete": "cc-exp"},
	})
	assert.GreaterOrEqual(t, Score(doc), AutoTriggerThreshold)
}

func TestMatchesPurchasePhrase(t *testing.T) {
	tests := []struct {
		label string
		want  bool
	}{
		{"Buy Now", true},
		{"BUY NOW", true},
		{"Complete purchase →", true},
		{"Check out", true},
		{"Checkout", true},
		{"Add to cart", false},
		{"Learn more", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.label, func(t *testing.T) {
			assert.Equal(t, tt.want, MatchesPurchasePhrase(tt.label))
		})
	}
}
