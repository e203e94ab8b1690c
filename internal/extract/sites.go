package extract

import "strings"

// strategy is one entry in the site registry: a hostname predicate plus
// ordered selector lists. Strategies are pure data; Extract walks them in
// order and falls back to the generic selectors.
type strategy struct {
	match          func(hostname string) bool
	name           string
	nameSelectors  []string
	priceSelectors []string
	imageSelectors []string
}

func hostContains(substr string) func(string) bool {
	return func(hostname string) bool {
		return strings.Contains(hostname, substr)
	}
}

// registry is ordered: first match wins. The generic strategy is applied as
// a suffix to every lookup rather than listed here.
var registry = []strategy{
	{
		name:  "amazon",
		match: hostContains("amazon."),
		nameSelectors: []string{
			"#productTitle",
			"#title",
		},
		priceSelectors: []string{
			"span.a-price-whole",
			"#priceblock_ourprice",
			"#priceblock_dealprice",
			"span.a-offscreen",
		},
		imageSelectors: []string{
			"#landingImage",
			"#imgBlkFront",
		},
	},
	{
		name:  "ebay",
		match: hostContains("ebay."),
		nameSelectors: []string{
			"h1.x-item-title__mainTitle",
			"#itemTitle",
		},
		priceSelectors: []string{
			"div.x-price-primary",
			"#prcIsum",
		},
		imageSelectors: []string{
			"img#icImg",
		},
	},
	{
		name:  "etsy",
		match: hostContains("etsy."),
		nameSelectors: []string{
			"h1[data-buy-box-listing-title]",
		},
		priceSelectors: []string{
			"p.wt-text-title-larger",
			"div[data-buy-box-region=price]",
		},
		imageSelectors: []string{
			"img.carousel-image",
		},
	},
	{
		name:  "walmart",
		match: hostContains("walmart."),
		nameSelectors: []string{
			"h1[itemprop=name]",
		},
		priceSelectors: []string{
			"span[itemprop=price]",
		},
		imageSelectors: []string{
			"img[data-testid=hero-image]",
		},
	},
}

// Generic selectors tried after any site-specific ones.
var (
	genericNameSelectors = []string{
		"h1[itemprop=name]",
		"[itemprop=name]",
		"h1.product-title",
		"h1.product-name",
		".product-title",
		".product-name",
		"h1",
	}
	genericPriceSelectors = []string{
		"[itemprop=price]",
		"meta[property=product:price:amount]",
		".product-price",
		".price-current",
		".sales-price",
		".price",
	}
	genericImageSelectors = []string{
		"meta[property=og:image]",
		"img[itemprop=image]",
		".product-image",
		"img.primary-image",
	}
)

func strategyFor(hostname string) strategy {
	for _, s := range registry {
		if s.match(hostname) {
			return s
		}
	}
	return strategy{name: "generic"}
}
