package loader

import (
	"bytes"
	"strings"

	"golang.org/x/net/html"

	"github.com/geogli/chatbot/internal/core/domain"
)

// extractHTML walks the parsed tree and collects text nodes, skipping
// script and style subtrees.
func extractHTML(raw []byte) (string, error) {
	root, err := html.Parse(bytes.NewReader(raw))
	if err != nil {
		return "", domain.WrapError(domain.ErrExtractionFailure, "extract html", err)
	}

	var sb strings.Builder
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.Data {
			case "script", "style", "noscript":
				return
			}
		}
		if n.Type == html.TextNode {
			if t := strings.TrimSpace(n.Data); t != "" {
				sb.WriteString(t)
				sb.WriteByte(' ')
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(root)
	return sb.String(), nil
}
