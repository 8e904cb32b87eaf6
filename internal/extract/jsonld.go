package extract

import (
	"log/slog"
	"maps"
	"strings"

	"github.com/andybalholm/cascadia"
	"github.com/langshake/shake-proof/internal/model"
	"golang.org/x/net/html"
)

var jsonLDSelector = cascadia.MustCompile(`script[type="application/ld+json"]`)

// parseDocument parses rawHTML into a node tree.
func parseDocument(rawHTML string) (*html.Node, error) {
	return html.Parse(strings.NewReader(rawHTML))
}

// jsonLD returns the objects of every JSON-LD block in document order. An
// array block contributes each element and an "@graph" block each graph
// node, which inherits the block's "@context" unless it declares its own.
// Blocks that are not valid JSON are skipped.
func jsonLD(doc *html.Node, logger *slog.Logger) []model.Record {
	var records []model.Record
	for i, script := range cascadia.QueryAll(doc, jsonLDSelector) {
		text := strings.TrimSpace(nodeText(script))
		if text == "" {
			continue
		}

		v, err := model.DecodeJSON([]byte(text))
		if err != nil {
			logger.Debug("skipping invalid JSON-LD block", "block", i, "error", err)
			continue
		}
		records = append(records, flattenJSONLD(v)...)
	}
	return records
}

func flattenJSONLD(v any) []model.Record {
	switch t := v.(type) {
	case map[string]any:
		if graph, ok := t["@graph"].([]any); ok {
			nodes := flattenJSONLD(graph)
			if ctx, ok := t["@context"]; ok {
				for i, node := range nodes {
					if _, has := node["@context"]; !has {
						node = maps.Clone(node)
						node["@context"] = ctx
						nodes[i] = node
					}
				}
			}
			return nodes
		}
		return []model.Record{t}
	case []any:
		var out []model.Record
		for _, item := range t {
			out = append(out, flattenJSONLD(item)...)
		}
		return out
	default:
		return nil
	}
}

// nodeText concatenates the text children of n.
func nodeText(n *html.Node) string {
	var sb strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.TextNode {
			sb.WriteString(c.Data)
		}
	}
	return sb.String()
}
