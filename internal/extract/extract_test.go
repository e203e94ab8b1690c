package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/pausewise/pausewise/internal/model"
	"github.com/pausewise/pausewise/internal/page"
)

func TestParsePrice(t *testing.T) {
	tests := []struct {
		in     string
		want   float64
		wantOK bool
	}{
		{"$19.99", 19.99, true},
		{"USD 1,299.00", 1299, true},
		{"€ 45", 45, true},
		{"19,99", 1999, true}, // comma as decimal separator is not supported
		{"Now only $5!", 5, true},
		{"free", 0, false},
		{"", 0, false},
		{"$0.00", 0, false},
		{"0", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := ParsePrice(tt.in)
			assert.Equal(t, tt.wantOK, ok)
			if tt.wantOK {
				assert.InDelta(t, tt.want, got, 0.0001)
			}
		})
	}
}

func TestExtractGeneric(t *testing.T) {
	doc := &page.Document{
		URL:   "https://shop.example.com/products/widget",
		Title: "Widget Deluxe | Example Shop",
		Elements: []*page.Element{
			{Tag: "h1", Classes: []string{"product-title"}, Text: "Widget Deluxe 3000"},
			{Tag: "span", Attrs: map[string]string{"itemprop": "price", "content": "59.99"}},
			{Tag: "meta", Attrs: map[string]string{"property": "og:image", "content": "/img/widget.jpg"}},
		},
	}

	info := Extract(doc)

	assert.Equal(t, "Widget Deluxe 3000", info.Name)
	assert.InDelta(t, 59.99, info.Price, 0.0001)
	assert.Equal(t, "https://shop.example.com/img/widget.jpg", info.ImageURL)
	assert.Equal(t, model.DefaultCategory, info.Category)
	assert.Equal(t, doc.URL, info.URL)
}

func TestExtractAmazonStrategy(t *testing.T) {
	doc := &page.Document{
		URL: "https://www.amazon.com/dp/B000TEST",
		Elements: []*page.Element{
			// Site selector must win over the page h1.
			{Tag: "h1", Text: "Customer reviews"},
			{Tag: "span", ID: "productTitle", Text: " Noise Cancelling Headphones "},
			{Tag: "span", Classes: []string{"a-offscreen"}, Text: "$249.00"},
		},
	}

	info := Extract(doc)

	assert.Equal(t, "Noise Cancelling Headphones", info.Name)
	assert.InDelta(t, 249.0, info.Price, 0.0001)
}

func TestExtractFallsBackToTitle(t *testing.T) {
	tests := []struct {
		name  string
		title string
		want  string
	}{
		{name: "suffix stripped", title: "Nice Lamp | MegaStore", want: "Nice Lamp"},
		{name: "dash suffix stripped", title: "Nice Lamp - MegaStore", want: "Nice Lamp"},
		{name: "store prefix stripped", title: "Amazon.com: Nice Lamp", want: "Nice Lamp"},
		{name: "plain title", title: "Nice Lamp", want: "Nice Lamp"},
		{name: "empty title", title: "", want: model.UnknownProductName},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := &page.Document{URL: "https://shop.example.com/x", Title: tt.title}
			assert.Equal(t, tt.want, Extract(doc).Name)
		})
	}
}

func TestExtractNeverFails(t *testing.T) {
	info := Extract(&page.Document{URL: "https://shop.example.com/empty"})

	assert.Equal(t, model.UnknownProductName, info.Name)
	assert.Zero(t, info.Price, "unknown price is zero, not an error")
	assert.Empty(t, info.ImageURL)
	assert.Equal(t, model.DefaultCategory, info.Category)
}

func TestExtractImageSchemes(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want string
	}{
		{name: "relative resolved", src: "/img/a.jpg", want: "https://shop.example.com/img/a.jpg"},
		{name: "absolute kept", src: "https://cdn.example.com/a.jpg", want: "https://cdn.example.com/a.jpg"},
		{name: "data uri rejected", src: "data:image/png;base64,AAAA", want: ""},
		{name: "javascript rejected", src: "javascript:void(0)", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := &page.Document{
				URL: "https://shop.example.com/p",
				Elements: []*page.Element{
					{Tag: "img", Classes: []string{"product-image"}, Attrs: map[string]string{"src": tt.src}},
				},
			}
			assert.Equal(t, tt.want, Extract(doc).ImageURL)
		})
	}
}

func TestStrategyFor(t *testing.T) {
	assert.Equal(t, "amazon", strategyFor("www.amazon.co.uk").name)
	assert.Equal(t, "ebay", strategyFor("www.ebay.com").name)
	assert.Equal(t, "etsy", strategyFor("www.etsy.com").name)
	assert.Equal(t, "walmart", strategyFor("www.walmart.com").name)
	assert.Equal(t, "generic", strategyFor("shop.example.com").name)
}
