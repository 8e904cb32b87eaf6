// Package extract obtains structured data from rendered pages for the
// reference ("traditional") benchmark phase.
//
// A PageSource turns a URL into HTML: HTTPSource performs a plain GET through
// fetch.Client, RodSource renders the page in headless Chromium via go-rod.
// HTMLExtractor then reads JSON-LD script blocks (selected with cascadia) and
// microdata items (walked with goquery) in document order.
package extract
