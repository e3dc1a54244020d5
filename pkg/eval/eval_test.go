package eval

import "testing"

func constRead(vals map[string]Expr) ReadFunc {
	return func(name string) (Expr, bool) {
		v, ok := vals[name]
		return v, ok
	}
}

func TestEvalArithmetic(t *testing.T) {
	tests := []struct {
		name string
		expr Expr
		want int64
	}{
		{"add", &Binary{Op: OpAdd, X: &Int{Value: 2}, Y: &Int{Value: 3}}, 5},
		{"sub", &Binary{Op: OpSub, X: &Int{Value: 10}, Y: &Int{Value: 4}}, 6},
		{"mul", &Binary{Op: OpMul, X: &Int{Value: 3}, Y: &Int{Value: 4}}, 12},
		{"nested", &Binary{Op: OpAdd, X: &Int{Value: 1}, Y: &Binary{Op: OpMul, X: &Int{Value: 2}, Y: &Int{Value: 3}}}, 7},
		{"neg", &Unary{Op: OpNeg, X: &Int{Value: 5}}, -5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, err := Eval(tt.expr, constRead(nil))
			if err != nil {
				t.Fatalf("Eval() error = %v", err)
			}
			iv, ok := v.(*Int)
			if !ok {
				t.Fatalf("Eval() = %v (%T), want *Int", v, v)
			}
			if iv.Value != tt.want {
				t.Errorf("Eval() = %d, want %d", iv.Value, tt.want)
			}
		})
	}
}

func TestEvalUnknownVariable(t *testing.T) {
	_, err := Eval(&Ident{Name: "x"}, constRead(nil))
	if err == nil {
		t.Fatal("expected error, got nil")
	}
	ee, ok := err.(*EvalError)
	if !ok || ee.Kind != UnknownVariable {
		t.Fatalf("error = %v, want UnknownVariable", err)
	}
}

func TestEvalIfNonBoolCondition(t *testing.T) {
	_, err := Eval(&If{Cond: &Int{Value: 1}, Then: &Int{Value: 2}, Else: &Int{Value: 3}}, constRead(nil))
	ee, ok := err.(*EvalError)
	if !ok || ee.Kind != Other {
		t.Fatalf("error = %v, want Other", err)
	}
}

func TestEvalIfBranches(t *testing.T) {
	trueExpr := &If{Cond: &Bool{Value: true}, Then: &Int{Value: 1}, Else: &Int{Value: 2}}
	v, err := Eval(trueExpr, constRead(nil))
	if err != nil || v.(*Int).Value != 1 {
		t.Fatalf("got %v, %v", v, err)
	}
	falseExpr := &If{Cond: &Bool{Value: false}, Then: &Int{Value: 1}, Else: &Int{Value: 2}}
	v, err = Eval(falseExpr, constRead(nil))
	if err != nil || v.(*Int).Value != 2 {
		t.Fatalf("got %v, %v", v, err)
	}
}

func TestEvalReads(t *testing.T) {
	expr := &Binary{Op: OpAdd, X: &Ident{Name: "x"}, Y: &Ident{Name: "y"}}
	refs := EvalReads(expr, "main")
	if len(refs) != 2 {
		t.Fatalf("EvalReads() = %v, want 2 entries", refs)
	}
}

func TestEvalReadsShadowedByLambdaParam(t *testing.T) {
	lam := &Lambda{Params: []string{"x"}, Body: &Binary{Op: OpAdd, X: &Ident{Name: "x"}, Y: &Ident{Name: "y"}}}
	refs := EvalReads(lam, "main")
	if len(refs) != 1 {
		t.Fatalf("EvalReads() = %v, want only y", refs)
	}
}

func TestEvalApplication(t *testing.T) {
	lam := &Lambda{Params: []string{"a", "b"}, Body: &Binary{Op: OpAdd, X: &Ident{Name: "a"}, Y: &Ident{Name: "b"}}}
	app := &Application{Fn: lam, Args: []Expr{&Int{Value: 2}, &Int{Value: 3}}}
	v, err := Eval(app, constRead(nil))
	if err != nil {
		t.Fatalf("Eval() error = %v", err)
	}
	if v.(*Int).Value != 5 {
		t.Fatalf("Eval() = %v, want 5", v)
	}
}

func TestEvalCapturedEnvironment(t *testing.T) {
	// Evaluates `(fn(x) => (fn() => x)())(10)`: the inner lambda captures x=10.
	outer := &Lambda{Params: []string{"x"}, Body: &Application{
		Fn:   &Lambda{Params: nil, Body: &Ident{Name: "x"}},
		Args: nil,
	}}
	app := &Application{Fn: outer, Args: []Expr{&Int{Value: 10}}}
	v, err := Eval(app, constRead(nil))
	if err != nil {
		t.Fatalf("Eval() error = %v", err)
	}
	if v.(*Int).Value != 10 {
		t.Fatalf("Eval() = %v, want 10 (captured x)", v)
	}
}

func TestPartialEvalNotReadyThenRetry(t *testing.T) {
	expr := &Binary{Op: OpAdd, X: &Ident{Name: "x"}, Y: &Ident{Name: "y"}}

	r1, err := PartialEval(expr, nil, constRead(map[string]Expr{"x": &Int{Value: 2}}))
	if err != nil {
		t.Fatalf("PartialEval() error = %v", err)
	}
	if r1.Done {
		t.Fatalf("PartialEval() = done, want NotReady (y missing)")
	}
	if _, ok := r1.Needed["y"]; !ok {
		t.Fatalf("Needed = %v, want to include y", r1.Needed)
	}

	r2, err := PartialEval(r1.Residual, nil, constRead(map[string]Expr{"x": &Int{Value: 2}, "y": &Int{Value: 3}}))
	if err != nil {
		t.Fatalf("PartialEval() retry error = %v", err)
	}
	if !r2.Done {
		t.Fatalf("PartialEval() retry = NotReady, want Done")
	}
	if r2.Value.(*Int).Value != 5 {
		t.Fatalf("PartialEval() retry = %v, want 5", r2.Value)
	}
}

func TestPartialEvalApplicationPreservesSubstitution(t *testing.T) {
	// fn(a) => a + y, applied to 10; y arrives on retry.
	lam := &Lambda{Params: []string{"a"}, Body: &Binary{Op: OpAdd, X: &Ident{Name: "a"}, Y: &Ident{Name: "y"}}}
	app := &Application{Fn: lam, Args: []Expr{&Int{Value: 10}}}

	r1, err := PartialEval(app, nil, constRead(nil))
	if err != nil {
		t.Fatalf("PartialEval() error = %v", err)
	}
	if r1.Done {
		t.Fatal("PartialEval() = done, want NotReady (y missing)")
	}

	r2, err := PartialEval(r1.Residual, nil, constRead(map[string]Expr{"y": &Int{Value: 5}}))
	if err != nil {
		t.Fatalf("PartialEval() retry error = %v", err)
	}
	if !r2.Done || r2.Value.(*Int).Value != 15 {
		t.Fatalf("PartialEval() retry = %+v, want done 15", r2)
	}
}

func TestPartialEvalActionAssignmentsAreSelfEvaluating(t *testing.T) {
	act := &Action{Assignments: []Assignment{{Dest: "x", Value: &Int{Value: 1}}}}
	r, err := PartialEval(act, nil, constRead(nil))
	if err != nil {
		t.Fatalf("PartialEval() error = %v", err)
	}
	if !r.Done {
		t.Fatal("PartialEval(Action) should be immediately done; the Doer evaluates each RHS separately")
	}
}
