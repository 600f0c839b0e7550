package processing

import (
	"strings"

	"golang.org/x/net/html"
)

// extractText walks an HTML fragment's node tree and returns its
// visible text content, one line per block-level element. It does not
// attempt layout or styling, only text recovery.
func extractText(markup string) ([]string, error) {
	doc, err := html.Parse(strings.NewReader(markup))
	if err != nil {
		return nil, err
	}

	var lines []string
	var walk func(n *html.Node, sb *strings.Builder)
	walk = func(n *html.Node, sb *strings.Builder) {
		if n.Type == html.TextNode {
			if text := strings.TrimSpace(n.Data); text != "" {
				sb.WriteString(text)
				sb.WriteByte(' ')
			}
		}

		if isBlockElement(n) && sb.Len() > 0 {
			lines = append(lines, strings.TrimSpace(sb.String()))
			sb.Reset()
		}

		for child := n.FirstChild; child != nil; child = child.NextSibling {
			walk(child, sb)
		}

		if isBlockElement(n) && sb.Len() > 0 {
			lines = append(lines, strings.TrimSpace(sb.String()))
			sb.Reset()
		}
	}

	var sb strings.Builder
	walk(doc, &sb)
	if sb.Len() > 0 {
		lines = append(lines, strings.TrimSpace(sb.String()))
	}
	return lines, nil
}

func isBlockElement(n *html.Node) bool {
	if n.Type != html.ElementNode {
		return false
	}
	switch n.Data {
	case "p", "div", "br", "li", "h1", "h2", "h3", "h4", "h5", "h6", "tr":
		return true
	default:
		return false
	}
}
