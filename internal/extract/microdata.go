package extract

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/langshake/shake-proof/internal/model"
	"golang.org/x/net/html"
)

// microdata converts every top-level itemscope element into a record shaped
// like its JSON-LD equivalent.
func microdata(doc *html.Node) []model.Record {
	root := goquery.NewDocumentFromNode(doc)

	var records []model.Record
	root.Find("[itemscope]").Not("[itemprop]").Each(func(_ int, item *goquery.Selection) {
		records = append(records, microdataItem(item))
	})
	return records
}

func microdataItem(item *goquery.Selection) model.Record {
	rec := model.Record{}
	if itemType, ok := item.Attr("itemtype"); ok {
		vocab, typ := splitItemType(itemType)
		if vocab != "" {
			rec["@context"] = vocab
		}
		rec["@type"] = typ
	}
	if id, ok := item.Attr("itemid"); ok {
		rec["@id"] = strings.TrimSpace(id)
	}

	owner := item.Get(0)
	item.Find("[itemprop]").Each(func(_ int, prop *goquery.Selection) {
		// Properties of nested items belong to those items.
		if prop.Parent().Closest("[itemscope]").Get(0) != owner {
			return
		}

		var value any
		if _, nested := prop.Attr("itemscope"); nested {
			value = microdataItem(prop)
		} else {
			value = propertyValue(prop)
		}

		for _, name := range strings.Fields(prop.AttrOr("itemprop", "")) {
			addProperty(rec, name, value)
		}
	})
	return rec
}

// addProperty appends a repeated property as a list.
func addProperty(rec model.Record, name string, value any) {
	existing, ok := rec[name]
	if !ok {
		rec[name] = value
		return
	}
	if list, ok := existing.([]any); ok {
		rec[name] = append(list, value)
		return
	}
	rec[name] = []any{existing, value}
}

// propertyValue reads a property the way the microdata algorithm does.
func propertyValue(prop *goquery.Selection) string {
	if v, ok := prop.Attr("content"); ok {
		return strings.TrimSpace(v)
	}

	switch goquery.NodeName(prop) {
	case "a", "area", "link":
		return prop.AttrOr("href", "")
	case "img", "audio", "video", "source", "embed", "iframe", "track":
		return prop.AttrOr("src", "")
	case "object":
		return prop.AttrOr("data", "")
	case "data", "meter":
		return prop.AttrOr("value", "")
	case "time":
		if v, ok := prop.Attr("datetime"); ok {
			return v
		}
	}
	return strings.Join(strings.Fields(prop.Text()), " ")
}

// splitItemType splits "https://schema.org/Article" into its vocabulary and
// type name. Only the first of several space-separated types is used.
func splitItemType(itemType string) (vocab, name string) {
	fields := strings.Fields(itemType)
	if len(fields) == 0 {
		return "", ""
	}
	t := fields[0]
	i := strings.LastIndexAny(t, "/#")
	if i < 0 || i == len(t)-1 {
		return "", t
	}
	return t[:i], t[i+1:]
}
