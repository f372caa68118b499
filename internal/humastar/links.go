package humastar

import (
	"fmt"
	"path"
	"strings"
	"sync"

	"github.com/danielgtaylor/huma/v2"
)

// Links holds the RFC 8288 Link headers of each operation path. Create it
// before the API so its Transformer can go into the huma config, then call
// Discover once every route is registered.
type Links struct {
	mu    sync.RWMutex
	byOp  map[string][]string
	entry string
	skip  string
}

// NewLinks returns an empty link set. entry is the path that links to
// every collection; operations tagged skip (e.g. streams) get no links.
func NewLinks(entry, skip string) *Links {
	return &Links{byOp: map[string][]string{}, entry: entry, skip: skip}
}

type pathInfo struct {
	path string
	tags []string
}

// Discover walks the OpenAPI spec and derives the links between its paths:
// item to collection, collection to item template, collections sharing a
// tag, and the entry point to everything.
func (l *Links) Discover(api huma.API) {
	oapi := api.OpenAPI()
	l.mu.Lock()
	defer l.mu.Unlock()
	l.byOp = map[string][]string{}

	var collections, items []pathInfo
	for p, pi := range oapi.Paths {
		tags := primaryTags(pi)
		if l.skip != "" && hasTag(tags, l.skip) {
			continue
		}
		info := pathInfo{path: p, tags: tags}
		if strings.Contains(p, "{") {
			items = append(items, info)
		} else {
			collections = append(collections, info)
		}
	}

	for _, item := range items {
		parent := path.Dir(item.path)
		if _, ok := oapi.Paths[parent]; ok {
			l.add(item.path, parent, "collection")
		}
		pi := oapi.Paths[item.path]
		if pi.Put != nil {
			l.add(item.path, item.path, "edit")
		}
	}

	for _, coll := range collections {
		for _, item := range items {
			if path.Dir(item.path) == coll.path {
				l.add(coll.path, item.path, "item")
			}
		}
		if coll.path != l.entry {
			l.add(coll.path, l.entry, "up")
		}
	}

	for i, a := range collections {
		for j, b := range collections {
			if i != j && sharedTag(a.tags, b.tags) {
				l.add(a.path, b.path, lastSegment(b.path))
			}
		}
	}

	for _, coll := range collections {
		if coll.path != l.entry {
			l.add(l.entry, coll.path, lastSegment(coll.path))
		}
	}
	l.add(l.entry, "/openapi.json", "service-desc")
	l.add(l.entry, "/docs", "service-doc")
}

// For returns the links of an operation path.
func (l *Links) For(opPath string) []string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return append([]string(nil), l.byOp[opPath]...)
}

// Transformer returns a Huma Transformer that writes the discovered links,
// a self link on item paths, and the pagination and action links of
// response bodies.
func (l *Links) Transformer() huma.Transformer {
	return func(ctx huma.Context, status string, v any) (any, error) {
		op := ctx.Operation()
		if op == nil {
			return v, nil
		}

		for _, link := range l.For(op.Path) {
			ctx.AppendHeader("Link", link)
		}
		if strings.Contains(op.Path, "{") {
			ctx.AppendHeader("Link", fmt.Sprintf(`<%s>; rel="self"`, ctx.URL().Path))
		}
		if p, ok := v.(Pager); ok {
			for _, link := range p.PaginationLinks(ctx.URL().Path) {
				ctx.AppendHeader("Link", link)
			}
		}
		if a, ok := v.(Actor); ok {
			for _, action := range a.Actions() {
				ctx.AppendHeader("Link", action.LinkHeader())
			}
		}
		return v, nil
	}
}

func (l *Links) add(from, to, rel string) {
	val := fmt.Sprintf(`<%s>; rel="%s"`, to, rel)
	for _, existing := range l.byOp[from] {
		if existing == val {
			return
		}
	}
	l.byOp[from] = append(l.byOp[from], val)
}

func primaryTags(pi *huma.PathItem) []string {
	for _, op := range []*huma.Operation{pi.Get, pi.Post, pi.Put, pi.Patch, pi.Delete} {
		if op != nil && len(op.Tags) > 0 {
			return op.Tags
		}
	}
	return nil
}

func hasTag(tags []string, tag string) bool {
	for _, t := range tags {
		if t == tag {
			return true
		}
	}
	return false
}

func sharedTag(a, b []string) bool {
	for _, at := range a {
		if hasTag(b, at) {
			return true
		}
	}
	return false
}

func lastSegment(p string) string {
	parts := strings.Split(strings.TrimRight(p, "/"), "/")
	return parts[len(parts)-1]
}
