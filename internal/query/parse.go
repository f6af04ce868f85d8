package query

import (
	"fmt"
	"math"
	"reflect"
	"sort"
	"strings"
	"time"

	"blogdex/internal/search"
	"blogdex/internal/slug"
)

// Parse validates a filter mapping assembled from request input. Unknown
// keys are ignored; recognized keys with a bad shape become Invalid filters
// rather than errors.
func Parse(raw map[string]any) Spec {
	keys := make([]string, 0, len(raw))
	for k := range raw {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var spec Spec
	for _, k := range keys {
		if f, ok := ParseFilter(Kind(k), raw[k]); ok {
			spec.Filters = append(spec.Filters, f)
		}
	}
	return spec
}

// ParseFilter validates a single value for kind. The boolean is false when
// kind is not a recognized filter key.
func ParseFilter(kind Kind, v any) (Filter, bool) {
	switch kind {
	case KindCategories:
		return parseCategories(v), true
	case KindTags:
		return parseKey(kind, v, func(k string) Filter { return Tag{Key: k} }), true
	case KindAuthors:
		return parseKey(kind, v, func(k string) Filter { return Author{Key: k} }), true
	case KindArchives:
		return parseArchive(v), true
	case KindSearch:
		return parseSearch(v), true
	case KindPosts:
		return parsePosts(v), true
	default:
		return nil, false
	}
}

func invalid(kind Kind, format string, args ...any) Invalid {
	return Invalid{For: kind, Reason: fmt.Sprintf(format, args...)}
}

func parseCategories(v any) Filter {
	if s, ok := v.(string); ok {
		v = []any{s}
	}
	items, ok := asList(v)
	if !ok {
		return invalid(KindCategories, "want a path or a list of paths, got %T", v)
	}
	if len(items) < 1 || len(items) > 2 {
		return invalid(KindCategories, "want 1 or 2 categories, got %d", len(items))
	}

	paths := make([]string, 0, len(items))
	for _, item := range items {
		s, ok := item.(string)
		if !ok {
			return invalid(KindCategories, "category must be a string, got %T", item)
		}
		p := slug.Path(s)
		if p == "" {
			return invalid(KindCategories, "malformed category path %q", s)
		}
		paths = append(paths, p)
	}
	return Categories{Paths: paths}
}

func parseKey(kind Kind, v any, build func(string) Filter) Filter {
	s, ok := v.(string)
	if !ok {
		return invalid(kind, "want a single key, got %T", v)
	}
	key := slug.Make(s)
	if key == "" {
		return invalid(kind, "malformed key %q", s)
	}
	return build(key)
}

func parseArchive(v any) Filter {
	items, ok := asList(v)
	if !ok {
		return invalid(KindArchives, "want [from, to], got %T", v)
	}
	if len(items) != 2 {
		return invalid(KindArchives, "want exactly 2 boundaries, got %d", len(items))
	}
	from, ok := asTime(items[0])
	if !ok {
		return invalid(KindArchives, "bad lower boundary %v", items[0])
	}
	to, ok := asTime(items[1])
	if !ok {
		return invalid(KindArchives, "bad upper boundary %v", items[1])
	}
	if from.After(to) {
		return invalid(KindArchives, "lower boundary after upper boundary")
	}
	return Archive{From: from, To: to}
}

func parseSearch(v any) Filter {
	s, ok := v.(string)
	if !ok {
		return invalid(KindSearch, "want a string, got %T", v)
	}
	q, err := search.ParseQuery(s)
	if err != nil {
		return invalid(KindSearch, "%v", err)
	}
	return Search{Query: q}
}

func parsePosts(v any) Filter {
	if s, ok := v.(string); ok {
		v = []any{s}
	}
	items, ok := asList(v)
	if !ok {
		return invalid(KindPosts, "want a list of paths, got %T", v)
	}

	var paths []string
	for _, item := range items {
		s, ok := item.(string)
		if !ok {
			return invalid(KindPosts, "path must be a string, got %T", item)
		}
		// Unknown paths are dropped silently, malformed ones are unknown.
		if p := slug.Path(strings.TrimSuffix(s, ".html")); p != "" {
			paths = append(paths, p)
		}
	}
	if len(paths) == 0 {
		return invalid(KindPosts, "no usable paths")
	}
	return Posts{Paths: paths}
}

// asList accepts any slice or array value.
func asList(v any) ([]any, bool) {
	if v == nil {
		return nil, false
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil, false
	}
	out := make([]any, rv.Len())
	for i := range out {
		out[i] = rv.Index(i).Interface()
	}
	return out, true
}

// asTime accepts unix seconds as an integer or integral float, or a time.Time.
func asTime(v any) (time.Time, bool) {
	switch x := v.(type) {
	case time.Time:
		return x, true
	case int:
		return time.Unix(int64(x), 0).UTC(), true
	case int32:
		return time.Unix(int64(x), 0).UTC(), true
	case int64:
		return time.Unix(x, 0).UTC(), true
	case float64:
		if x != math.Trunc(x) || math.IsInf(x, 0) {
			return time.Time{}, false
		}
		return time.Unix(int64(x), 0).UTC(), true
	default:
		return time.Time{}, false
	}
}
