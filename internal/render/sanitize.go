// Package render converts provider-supplied issue content into markup that
// is safe to embed in API responses without further escaping.
package render

import (
	"net/url"
	"strings"

	"golang.org/x/net/html"
)

// Tags providers such as Jira emit when rendering descriptions and comments.
var allowedTags = map[string]bool{
	"a":          true,
	"b":          true,
	"blockquote": true,
	"br":         true,
	"code":       true,
	"div":        true,
	"em":         true,
	"hr":         true,
	"i":          true,
	"li":         true,
	"ol":         true,
	"p":          true,
	"pre":        true,
	"span":       true,
	"strong":     true,
	"table":      true,
	"tbody":      true,
	"td":         true,
	"th":         true,
	"thead":      true,
	"tr":         true,
	"u":          true,
	"ul":         true,
}

// Void elements serialize as a single canonical tag.
var voidTags = map[string]bool{
	"br": true,
	"hr": true,
}

// Elements whose entire subtree is discarded, text included.
var strippedContentTags = map[string]bool{
	"script": true,
	"style":  true,
}

var allowedAttributes = map[string]map[string]bool{
	"a":     {"href": true, "rel": true, "target": true, "title": true},
	"code":  {"class": true},
	"div":   {"class": true},
	"span":  {"class": true},
	"table": {"class": true},
	"td":    {"colspan": true},
	"th":    {"colspan": true},
}

var safeURLSchemes = map[string]bool{
	"http":   true,
	"https":  true,
	"mailto": true,
	"tel":    true,
}

// HrefRewriter transforms anchor href values during sanitization. It runs
// before URL safety validation, so rewritten values still have to pass the
// scheme/path checks to survive.
type HrefRewriter func(string) string

// Sanitize reduces arbitrary HTML to the allowlisted fragment grammar. It
// never fails: malformed and adversarial input degrade to whatever safe
// subset can be salvaged, possibly the empty string.
func Sanitize(markup string) string {
	return SanitizeLinks(markup, nil)
}

// SanitizeLinks sanitizes like Sanitize while passing every candidate href
// value through rewrite first.
func SanitizeLinks(markup string, rewrite HrefRewriter) string {
	tokenizer := html.NewTokenizer(strings.NewReader(markup))
	var output strings.Builder
	var openTags []string
	suppressDepth := 0

	for {
		switch tokenizer.Next() {
		case html.ErrorToken:
			// Tokenizer errors terminate the stream; EOF and malformed
			// input are treated identically.
			for index := len(openTags) - 1; index >= 0; index-- {
				output.WriteString("</" + openTags[index] + ">")
			}
			return output.String()

		case html.TextToken:
			if suppressDepth > 0 {
				continue
			}
			// Character references were decoded by the tokenizer; escaping
			// here happens exactly once.
			output.WriteString(html.EscapeString(string(tokenizer.Text())))

		case html.StartTagToken:
			tag, attrs := readTag(tokenizer)
			if strippedContentTags[tag] {
				suppressDepth++
				continue
			}
			if suppressDepth > 0 || !allowedTags[tag] {
				continue
			}
			output.WriteString("<" + tag + serializeAttributes(tag, attrs, rewrite) + ">")
			if !voidTags[tag] {
				openTags = append(openTags, tag)
			}

		case html.SelfClosingTagToken:
			tag, attrs := readTag(tokenizer)
			if suppressDepth > 0 || strippedContentTags[tag] || !allowedTags[tag] {
				continue
			}
			serialized := serializeAttributes(tag, attrs, rewrite)
			if voidTags[tag] {
				output.WriteString("<" + tag + serialized + ">")
				continue
			}
			output.WriteString("<" + tag + serialized + "></" + tag + ">")

		case html.EndTagToken:
			tag, _ := readTag(tokenizer)
			if strippedContentTags[tag] {
				if suppressDepth > 0 {
					suppressDepth--
				}
				continue
			}
			if suppressDepth > 0 || !allowedTags[tag] || voidTags[tag] {
				continue
			}
			openTags = closeThrough(&output, openTags, tag)
		}
	}
}

type attribute struct {
	name  string
	value string
}

func readTag(tokenizer *html.Tokenizer) (string, []attribute) {
	name, hasAttributes := tokenizer.TagName()
	tag := strings.ToLower(string(name))
	if !hasAttributes {
		return tag, nil
	}
	var attrs []attribute
	for {
		key, value, more := tokenizer.TagAttr()
		attrs = append(attrs, attribute{name: strings.ToLower(string(key)), value: string(value)})
		if !more {
			break
		}
	}
	return tag, attrs
}

func serializeAttributes(tag string, attrs []attribute, rewrite HrefRewriter) string {
	allowed := allowedAttributes[tag]
	if len(allowed) == 0 || len(attrs) == 0 {
		return ""
	}
	var serialized strings.Builder
	for _, attr := range attrs {
		if !allowed[attr.name] {
			continue
		}
		value, keep := sanitizeAttribute(attr.name, attr.value, rewrite)
		if !keep {
			continue
		}
		serialized.WriteString(" " + attr.name + `="` + html.EscapeString(value) + `"`)
	}
	return serialized.String()
}

func sanitizeAttribute(name, value string, rewrite HrefRewriter) (string, bool) {
	switch name {
	case "href":
		if rewrite != nil {
			value = rewrite(value)
		}
		if !isSafeURL(value) {
			return "", false
		}
		return value, true
	case "target":
		if value != "_blank" && value != "_self" {
			return "", false
		}
		return value, true
	default:
		return value, true
	}
}

func isSafeURL(value string) bool {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return false
	}
	parsed, err := url.Parse(trimmed)
	if err != nil {
		return false
	}
	if parsed.Scheme != "" {
		return safeURLSchemes[strings.ToLower(parsed.Scheme)]
	}
	// Fragment and root-relative links stay within the tracker detail view.
	return strings.HasPrefix(trimmed, "/") || strings.HasPrefix(trimmed, "#")
}

// closeThrough emits close tags down to and including the most recent open
// occurrence of tag. End tags with no matching open tag are ignored.
func closeThrough(output *strings.Builder, openTags []string, tag string) []string {
	for index := len(openTags) - 1; index >= 0; index-- {
		if openTags[index] != tag {
			continue
		}
		for inner := len(openTags) - 1; inner >= index; inner-- {
			output.WriteString("</" + openTags[inner] + ">")
		}
		return openTags[:index]
	}
	return openTags
}
