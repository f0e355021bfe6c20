package providers

import (
	"github.com/tidwall/gjson"
)

const snippetLimit = 200

// snippet truncates a response body for inclusion in error messages.
func snippet(body []byte) string {
	if len(body) > snippetLimit {
		return string(body[:snippetLimit]) + "..."
	}
	return string(body)
}

// extractPath walks a dotted path into a JSON body. An empty path means
// the whole document. An absent path, or a non-terminal segment that is
// not a traversable container, yields an ExtractionError carrying the
// attempted path and a body snippet.
func extractPath(body []byte, path string) (gjson.Result, error) {
	if path == "" {
		return gjson.ParseBytes(body), nil
	}
	res := gjson.GetBytes(body, path)
	if !res.Exists() {
		return gjson.Result{}, &ExtractionError{Path: path, Snippet: snippet(body)}
	}
	return res, nil
}

// ExtractString extracts the value at path and stringifies it. An empty
// path stringifies the whole document, for backends whose response body
// is the answer itself. Numbers,
// booleans and null get a stable textual representation (gjson renders
// numbers without exponent notation and null as the empty string);
// downstream consumers treat the result as text.
func ExtractString(body []byte, path string) (string, error) {
	res, err := extractPath(body, path)
	if err != nil {
		return "", err
	}
	return res.String(), nil
}

// ExtractList retrieves the sequence at listPath and maps each element
// through itemIDPath, preserving source order. An empty listPath treats
// the whole document as the sequence. Elements missing the item path are
// skipped. An empty itemIDPath stringifies elements directly.
func ExtractList(body []byte, listPath, itemIDPath string) ([]string, error) {
	items, err := extractPath(body, listPath)
	if err != nil {
		return nil, err
	}
	if !items.IsArray() {
		return nil, &ExtractionError{Path: listPath, Snippet: snippet(body)}
	}

	result := make([]string, 0, len(items.Array()))
	for _, item := range items.Array() {
		if itemIDPath == "" {
			result = append(result, item.String())
			continue
		}
		id := item.Get(itemIDPath)
		if id.Exists() && id.Type != gjson.Null {
			result = append(result, id.String())
		}
	}
	return result, nil
}
