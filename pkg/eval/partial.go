package eval

// PartialResult is the outcome of PartialEval: either a fully-reduced Value,
// or a NotReady signal carrying the Residual expression to retry once more
// reads are available, plus the set of identifier Names that blocked
// progress.
type PartialResult struct {
	Done     bool
	Value    Expr
	Residual Expr
	Needed   map[string]struct{}
}

func done(v Expr) PartialResult {
	return PartialResult{Done: true, Value: v}
}

func notReady(residual Expr, needed map[string]struct{}) PartialResult {
	return PartialResult{Done: false, Residual: residual, Needed: needed}
}

func mergeNeeded(a, b map[string]struct{}) map[string]struct{} {
	out := make(map[string]struct{}, len(a)+len(b))
	for k := range a {
		out[k] = struct{}{}
	}
	for k := range b {
		out[k] = struct{}{}
	}
	return out
}

// PartialEval reduces expr as far as possible under env, treating a read
// miss as a suspension rather than a fatal error. On NotReady, the returned
// Residual expression can be fed back into PartialEval (with the same env)
// once the reads in Needed are satisfied, and is guaranteed to produce the
// same final value as a hypothetical single pass that had every read
// available up front.
func PartialEval(expr Expr, env *Env, read ReadFunc) (PartialResult, error) {
	switch n := expr.(type) {
	case *Int, *Bool:
		return done(expr), nil
	case *Ident:
		if env != nil {
			if v, ok := env.Lookup(n.Name); ok {
				return done(v), nil
			}
		}
		if v, ok := read(n.Name); ok {
			return done(v), nil
		}
		return notReady(n, map[string]struct{}{n.Name: {}}), nil
	case *Unary:
		x, err := PartialEval(n.X, env, read)
		if err != nil {
			return PartialResult{}, err
		}
		if !x.Done {
			return notReady(&Unary{Op: n.Op, X: x.Residual}, x.Needed), nil
		}
		v, err := applyUnary(n.Op, x.Value)
		if err != nil {
			return PartialResult{}, err
		}
		return done(v), nil
	case *Binary:
		x, err := PartialEval(n.X, env, read)
		if err != nil {
			return PartialResult{}, err
		}
		y, err := PartialEval(n.Y, env, read)
		if err != nil {
			return PartialResult{}, err
		}
		if !x.Done || !y.Done {
			var xr, yr Expr
			if x.Done {
				xr = x.Value
			} else {
				xr = x.Residual
			}
			if y.Done {
				yr = y.Value
			} else {
				yr = y.Residual
			}
			return notReady(&Binary{Op: n.Op, X: xr, Y: yr}, mergeNeeded(x.Needed, y.Needed)), nil
		}
		v, err := applyBinary(n.Op, x.Value, y.Value)
		if err != nil {
			return PartialResult{}, err
		}
		return done(v), nil
	case *If:
		c, err := PartialEval(n.Cond, env, read)
		if err != nil {
			return PartialResult{}, err
		}
		if !c.Done {
			return notReady(&If{Cond: c.Residual, Then: n.Then, Else: n.Else}, c.Needed), nil
		}
		cb, ok := c.Value.(*Bool)
		if !ok {
			return PartialResult{}, &EvalError{Kind: Other, Message: "if condition is not boolean"}
		}
		if cb.Value {
			return PartialEval(n.Then, env, read)
		}
		return PartialEval(n.Else, env, read)
	case *Lambda:
		return done(captureEnv(n, env)), nil
	case *Action:
		return done(captureActionEnv(n, env)), nil
	case *Application:
		return partialApply(n, env, read)
	default:
		return PartialResult{}, &EvalError{Kind: Other, Message: "unrecognized expression node"}
	}
}

func partialApply(n *Application, env *Env, read ReadFunc) (PartialResult, error) {
	fn, err := PartialEval(n.Fn, env, read)
	if err != nil {
		return PartialResult{}, err
	}
	if !fn.Done {
		return notReady(&Application{Fn: fn.Residual, Args: n.Args}, fn.Needed), nil
	}
	lam, ok := fn.Value.(*Lambda)
	if !ok {
		return PartialResult{}, &EvalError{Kind: Other, Message: "application target is not a function"}
	}
	if len(n.Args) != len(lam.Params) {
		return PartialResult{}, &EvalError{Kind: Other, Message: "function applied to the wrong number of arguments"}
	}

	args := make([]PartialResult, len(n.Args))
	anyNotReady := false
	for i, a := range n.Args {
		r, err := PartialEval(a, env, read)
		if err != nil {
			return PartialResult{}, err
		}
		args[i] = r
		if !r.Done {
			anyNotReady = true
		}
	}
	if anyNotReady {
		residualArgs := make([]Expr, len(args))
		var needed map[string]struct{}
		for i, r := range args {
			if r.Done {
				residualArgs[i] = r.Value
			} else {
				residualArgs[i] = r.Residual
				needed = mergeNeeded(needed, r.Needed)
			}
		}
		return notReady(&Application{Fn: lam, Args: residualArgs}, needed), nil
	}

	argValues := make([]Expr, len(args))
	for i, r := range args {
		argValues[i] = r.Value
	}
	callEnv := pushFrame(lam, argValues)

	body, err := PartialEval(lam.Body, callEnv, read)
	if err != nil {
		return PartialResult{}, err
	}
	if body.Done {
		return done(body.Value), nil
	}

	// Substitution has already happened (callEnv binds every parameter);
	// wrap the residual body in a freshly-closured zero-arg application so
	// a retry resumes exactly where this attempt left off, without
	// re-evaluating n.Fn or n.Args. This is the language-neutral analog of
	// introducing a `let`.
	thunk := &Lambda{Params: nil, Body: body.Residual, Env: callEnv}
	return notReady(&Application{Fn: thunk, Args: nil}, body.Needed), nil
}
