package eval

// ReadFunc resolves a free identifier to its current reactive value. It
// returns ok=false when the reactive has no value yet (e.g. a definition
// still awaiting its first batch).
type ReadFunc func(name string) (Expr, bool)

// Eval fully reduces expr, given service-local name resolution through
// read. It fails with UnknownVariable if read reports no value for a free
// identifier, or Other on a structural mismatch (wrong arity, non-boolean
// `if` condition, applying a non-function, bad operand types).
func Eval(expr Expr, read ReadFunc) (Expr, error) {
	return evalIn(expr, nil, read)
}

func evalIn(e Expr, env *Env, read ReadFunc) (Expr, error) {
	switch n := e.(type) {
	case *Int, *Bool:
		return e, nil
	case *Ident:
		if env != nil {
			if v, ok := env.Lookup(n.Name); ok {
				return v, nil
			}
		}
		v, ok := read(n.Name)
		if !ok {
			return nil, &EvalError{Kind: UnknownVariable, Name: n.Name}
		}
		return v, nil
	case *Unary:
		x, err := evalIn(n.X, env, read)
		if err != nil {
			return nil, err
		}
		return applyUnary(n.Op, x)
	case *Binary:
		x, err := evalIn(n.X, env, read)
		if err != nil {
			return nil, err
		}
		y, err := evalIn(n.Y, env, read)
		if err != nil {
			return nil, err
		}
		return applyBinary(n.Op, x, y)
	case *If:
		c, err := evalIn(n.Cond, env, read)
		if err != nil {
			return nil, err
		}
		cb, ok := c.(*Bool)
		if !ok {
			return nil, &EvalError{Kind: Other, Message: "if condition is not boolean"}
		}
		if cb.Value {
			return evalIn(n.Then, env, read)
		}
		return evalIn(n.Else, env, read)
	case *Lambda:
		return captureEnv(n, env), nil
	case *Action:
		return captureActionEnv(n, env), nil
	case *Application:
		fnv, err := evalIn(n.Fn, env, read)
		if err != nil {
			return nil, err
		}
		lam, ok := fnv.(*Lambda)
		if !ok {
			return nil, &EvalError{Kind: Other, Message: "application target is not a function"}
		}
		if len(n.Args) != len(lam.Params) {
			return nil, &EvalError{Kind: Other, Message: "function applied to the wrong number of arguments"}
		}
		args := make([]Expr, len(n.Args))
		for i, a := range n.Args {
			v, err := evalIn(a, env, read)
			if err != nil {
				return nil, err
			}
			args[i] = v
		}
		callEnv := pushFrame(lam, args)
		return evalIn(lam.Body, callEnv, read)
	default:
		return nil, &EvalError{Kind: Other, Message: "unrecognized expression node"}
	}
}

// captureEnv attaches env to lam if it does not already carry a captured
// environment; the original node is left untouched (Env is set-once).
func captureEnv(lam *Lambda, env *Env) *Lambda {
	if lam.Env != nil || env == nil {
		return lam
	}
	captured := *lam
	captured.Env = env
	return &captured
}

func captureActionEnv(act *Action, env *Env) *Action {
	if act.Env != nil || env == nil {
		return act
	}
	captured := *act
	captured.Env = env
	return &captured
}

// pushFrame builds the call environment for applying lam to args: a new
// frame binding Params to args, chained to lam's captured environment so
// that any captured binding not shadowed by a parameter remains visible.
func pushFrame(lam *Lambda, args []Expr) *Env {
	frame := make(map[string]Expr, len(lam.Params))
	for i, p := range lam.Params {
		frame[p] = args[i]
	}
	return &Env{Parent: lam.Env, Bindings: frame}
}
