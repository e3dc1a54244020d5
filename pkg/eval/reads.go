package eval

import (
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/cuemby/meerkat/pkg/basis"
)

// readsCache memoizes EvalReads by expression node identity: an expression
// tree is immutable once built, and the same expression node is walked again
// by its cell's Reconfigure, by coordinators collecting a command's reads,
// and by graph rendering, so the cache turns a repeated O(tree size) walk
// into an O(1) hit.
var readsCache, _ = lru.New[cacheKey, map[basis.ReactiveRef]struct{}](4096)

type cacheKey struct {
	expr    Expr
	service string
}

// EvalReads walks expr under an empty local-binding stack and returns every
// free identifier, as a ReactiveRef against service. It performs no
// evaluation.
func EvalReads(expr Expr, service string) map[basis.ReactiveRef]struct{} {
	key := cacheKey{expr: expr, service: service}
	if cached, ok := readsCache.Get(key); ok {
		return cached
	}
	out := make(map[basis.ReactiveRef]struct{})
	walkReads(expr, service, nil, out)
	readsCache.Add(key, out)
	return out
}

func walkReads(e Expr, service string, sc *scope, out map[basis.ReactiveRef]struct{}) {
	switch n := e.(type) {
	case *Int, *Bool:
		// no reads
	case *Ident:
		if sc.has(n.Name) {
			return
		}
		out[basis.ReactiveRef{Service: service, Name: n.Name}] = struct{}{}
	case *Unary:
		walkReads(n.X, service, sc, out)
	case *Binary:
		walkReads(n.X, service, sc, out)
		walkReads(n.Y, service, sc, out)
	case *If:
		walkReads(n.Cond, service, sc, out)
		walkReads(n.Then, service, sc, out)
		walkReads(n.Else, service, sc, out)
	case *Lambda:
		walkReads(n.Body, service, sc.push(n.Params...), out)
	case *Action:
		for _, a := range n.Assignments {
			walkReads(a.Value, service, sc, out)
		}
	case *Application:
		walkReads(n.Fn, service, sc, out)
		for _, a := range n.Args {
			walkReads(a, service, sc, out)
		}
	}
}
