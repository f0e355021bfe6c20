package providers

import (
	"regexp"
	"strconv"
)

// Context carries the per-call values available to placeholder
// substitution. Values holds the context vocabulary (session_id, content,
// model, messages, name). UserField resolves [[[name]]] placeholders from
// whatever store the caller owns; scope handling lives with the caller.
type Context struct {
	Values    map[string]any
	UserField func(key string) (string, error)
}

// Value returns the string form of a context value, or "" when absent or
// not a scalar.
func (c *Context) Value(key string) string {
	if c == nil || c.Values == nil {
		return ""
	}
	s, ok := scalarString(c.Values[key])
	if !ok {
		return ""
	}
	return s
}

var (
	wholeContextRe   = regexp.MustCompile(`^\{\{([^{}]+)\}\}$`)
	wholeUserFieldRe = regexp.MustCompile(`^\[\[\[([^\[\]]+)\]\]\]$`)
	contextRe        = regexp.MustCompile(`\{\{([^{}]+)\}\}`)
	userFieldRe      = regexp.MustCompile(`\[\[\[([^\[\]]+)\]\]\]`)
)

// Resolve substitutes placeholders into a template value, recursing into
// object values and array elements (never keys). A string that is exactly
// one {{name}} placeholder preserves the structured type of the context
// value, so a messages array lands in the body verbatim. Missing context
// placeholders resolve to the empty string; unknown or unset user fields
// are errors, since the caller must collect those before retrying.
func Resolve(value any, rctx *Context) (any, error) {
	switch v := value.(type) {
	case string:
		return resolveString(v, rctx)
	case []any:
		out := make([]any, len(v))
		for i, item := range v {
			resolved, err := Resolve(item, rctx)
			if err != nil {
				return nil, err
			}
			out[i] = resolved
		}
		return out, nil
	case map[string]any:
		out := make(map[string]any, len(v))
		for key, item := range v {
			resolved, err := Resolve(item, rctx)
			if err != nil {
				return nil, err
			}
			out[key] = resolved
		}
		return out, nil
	default:
		return value, nil
	}
}

func resolveString(s string, rctx *Context) (any, error) {
	if m := wholeUserFieldRe.FindStringSubmatch(s); m != nil {
		return resolveUserField(m[1], rctx)
	}
	if m := wholeContextRe.FindStringSubmatch(s); m != nil {
		if rctx != nil && rctx.Values != nil {
			if v, ok := rctx.Values[m[1]]; ok {
				if str, scalar := scalarString(v); scalar {
					return str, nil
				}
				// Structured context value embedded verbatim.
				return v, nil
			}
		}
		return "", nil
	}

	var fieldErr error
	result := userFieldRe.ReplaceAllStringFunc(s, func(match string) string {
		if fieldErr != nil {
			return match
		}
		key := userFieldRe.FindStringSubmatch(match)[1]
		value, err := resolveUserField(key, rctx)
		if err != nil {
			fieldErr = err
			return match
		}
		return value
	})
	if fieldErr != nil {
		return nil, fieldErr
	}

	result = contextRe.ReplaceAllStringFunc(result, func(match string) string {
		key := contextRe.FindStringSubmatch(match)[1]
		if rctx == nil || rctx.Values == nil {
			return ""
		}
		str, ok := scalarString(rctx.Values[key])
		if !ok {
			return ""
		}
		return str
	})
	return result, nil
}

func resolveUserField(key string, rctx *Context) (string, error) {
	if rctx == nil || rctx.UserField == nil {
		return "", &UnknownUserFieldError{Field: key}
	}
	return rctx.UserField(key)
}

// scalarString formats a scalar context value for inline substitution.
// Structured values (maps, slices) report ok=false.
func scalarString(v any) (string, bool) {
	switch s := v.(type) {
	case string:
		return s, true
	case int:
		return strconv.Itoa(s), true
	case int64:
		return strconv.FormatInt(s, 10), true
	case float64:
		return strconv.FormatFloat(s, 'f', -1, 64), true
	case bool:
		return strconv.FormatBool(s), true
	default:
		return "", false
	}
}
