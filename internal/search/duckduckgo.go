package search

import (
	"errors"
	"net/url"
	"strings"

	"github.com/tidwall/gjson"
)

// Instant Answer response fields. Every one of them is optional.
const (
	keyAbstractText   = "AbstractText"
	keyAbstractURL    = "AbstractURL"
	keyAbstractSource = "AbstractSource"
	keyRelatedTopics  = "RelatedTopics"
	keyText           = "Text"
	keyFirstURL       = "FirstURL"
	keyResults        = "Results"

	defaultSource  = "Source"
	titleSeparator = " - "
)

// parseResponse decodes an Instant Answer body. Only a body that is not a
// JSON object is an error; missing or mistyped fields just contribute nothing.
func parseResponse(body []byte) ([]Result, error) {
	if !gjson.ValidBytes(body) {
		return nil, &Error{Kind: KindParsing, Err: errors.New("response is not valid json")}
	}
	doc := gjson.ParseBytes(body)
	if !doc.IsObject() {
		return nil, &Error{Kind: KindParsing, Err: errors.New("response is not a json object")}
	}
	return extractResults(doc), nil
}

// extractResults returns the featured snippet, if any, followed by related
// topics in provider order.
func extractResults(doc gjson.Result) []Result {
	var out []Result
	if r, ok := featuredSnippet(doc); ok {
		out = append(out, r)
	}
	topics := field(doc, keyRelatedTopics)
	if !isObjectArray(topics) {
		return out
	}
	for _, topic := range topics.Array() {
		if r, ok := relatedTopic(topic); ok {
			out = append(out, r)
		}
	}
	return out
}

func featuredSnippet(doc gjson.Result) (Result, bool) {
	text, ok := stringField(doc, keyAbstractText)
	if !ok || text == "" {
		return Result{}, false
	}
	raw, ok := stringField(doc, keyAbstractURL)
	if !ok {
		return Result{}, false
	}
	u, ok := validURL(raw)
	if !ok {
		return Result{}, false
	}
	title, ok := stringField(doc, keyAbstractSource)
	if !ok {
		title = defaultSource
	}
	return Result{Title: title, Description: text, URL: u}, true
}

// relatedTopic maps one RelatedTopics entry. A FirstURL that is present but
// invalid skips the entry; only a missing one falls back to Results[0].
func relatedTopic(topic gjson.Result) (Result, bool) {
	text, ok := stringField(topic, keyText)
	if !ok {
		return Result{}, false
	}
	raw, ok := stringField(topic, keyFirstURL)
	if !ok {
		nested := field(topic, keyResults)
		if !isObjectArray(nested) {
			return Result{}, false
		}
		items := nested.Array()
		if len(items) == 0 {
			return Result{}, false
		}
		if raw, ok = stringField(items[0], keyFirstURL); !ok {
			return Result{}, false
		}
	}
	u, ok := validURL(raw)
	if !ok {
		return Result{}, false
	}
	title, description := text, ""
	if before, after, found := strings.Cut(text, titleSeparator); found {
		title, description = before, after
	}
	return Result{Title: title, Description: description, URL: u}, true
}

// field returns the member key of object v. Duplicate keys resolve to the
// last occurrence, as encoding/json does; gjson's Get would take the first.
func field(v gjson.Result, key string) gjson.Result {
	var out gjson.Result
	v.ForEach(func(k, item gjson.Result) bool {
		if k.Str == key {
			out = item
		}
		return true
	})
	return out
}

func stringField(v gjson.Result, key string) (string, bool) {
	f := field(v, key)
	if f.Type != gjson.String {
		return "", false
	}
	return f.Str, true
}

// isObjectArray reports whether v is an array holding only objects. A single
// non-object element disqualifies the whole array.
func isObjectArray(v gjson.Result) bool {
	if !v.IsArray() {
		return false
	}
	all := true
	v.ForEach(func(_, item gjson.Result) bool {
		all = item.IsObject()
		return all
	})
	return all
}

// validURL accepts absolute URLs only: a scheme plus a host or opaque part,
// with no whitespace.
func validURL(raw string) (string, bool) {
	if raw == "" || strings.ContainsAny(raw, " \t\r\n") {
		return "", false
	}
	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" {
		return "", false
	}
	if u.Host == "" && u.Opaque == "" {
		return "", false
	}
	return raw, true
}
