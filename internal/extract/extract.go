// Package extract scrapes best-effort product information from a page
// snapshot. Extraction never fails: every field degrades to a sentinel when
// nothing usable is found.
package extract

import (
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/pausewise/pausewise/internal/model"
	"github.com/pausewise/pausewise/internal/page"
)

var priceValuePattern = regexp.MustCompile(`\d[\d,]*(?:\.\d+)?`)

// Extract scrapes name, price, and image from the snapshot using the first
// matching site strategy, then the generic one. Callers must treat a price
// of 0 as "unknown", not "free".
func Extract(doc *page.Document) model.ProductInfo {
	strat := strategyFor(doc.Hostname())

	info := model.ProductInfo{
		Name:     extractName(doc, strat),
		Price:    extractPrice(doc, strat),
		Category: model.DefaultCategory,
		URL:      doc.URL,
	}
	info.ImageURL = extractImage(doc, strat)
	return info
}

func extractName(doc *page.Document, strat strategy) string {
	for _, sel := range append(strat.nameSelectors, genericNameSelectors...) {
		if e := doc.SelectFirst(sel); e != nil {
			if name := model.TruncateName(e.Label()); name != "" {
				return name
			}
		}
	}
	if title := cleanTitle(doc.Title); title != "" {
		return model.TruncateName(title)
	}
	return model.UnknownProductName
}

func extractPrice(doc *page.Document, strat strategy) float64 {
	for _, sel := range append(strat.priceSelectors, genericPriceSelectors...) {
		for _, e := range doc.Select(sel) {
			if price, ok := ParsePrice(e.Label()); ok {
				return price
			}
			if price, ok := ParsePrice(e.Attr("content")); ok {
				return price
			}
		}
	}
	return 0
}

func extractImage(doc *page.Document, strat strategy) string {
	for _, sel := range append(strat.imageSelectors, genericImageSelectors...) {
		for _, e := range doc.Select(sel) {
			for _, attr := range []string{"src", "content", "href"} {
				if img := resolveURL(doc.URL, e.Attr(attr)); img != "" {
					return img
				}
			}
		}
	}
	return ""
}

// ParsePrice extracts the first positive decimal from a price string,
// tolerating currency symbols and thousands separators.
func ParsePrice(s string) (float64, bool) {
	match := priceValuePattern.FindString(s)
	if match == "" {
		return 0, false
	}
	match = strings.ReplaceAll(match, ",", "")
	v, err := strconv.ParseFloat(match, 64)
	if err != nil || v <= 0 {
		return 0, false
	}
	return v, true
}

// cleanTitle strips store-name suffixes and prefixes from a page title.
func cleanTitle(title string) string {
	title = strings.TrimSpace(title)
	for _, sep := range []string{" | ", " - ", " – ", " : "} {
		if i := strings.Index(title, sep); i > 0 {
			title = title[:i]
		}
	}
	// "Amazon.com: Product" style prefixes.
	if i := strings.Index(title, ": "); i > 0 && i < 20 {
		title = title[i+2:]
	}
	return strings.TrimSpace(title)
}

func resolveURL(base, ref string) string {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return ""
	}
	refURL, err := url.Parse(ref)
	if err != nil {
		return ""
	}
	resolved := refURL
	if !refURL.IsAbs() {
		baseURL, err := url.Parse(base)
		if err != nil {
			return ""
		}
		resolved = baseURL.ResolveReference(refURL)
	}
	if resolved.Scheme != "http" && resolved.Scheme != "https" {
		return ""
	}
	return resolved.String()
}
