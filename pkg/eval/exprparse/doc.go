/*
Package exprparse is the minimal recursive-descent reader that turns the
expression strings inside a Meerkat program description (see pkg/driver)
into pkg/eval.Expr trees.

Meerkat's engine never looks at expression text, only at the Expr tree
this package builds from it. The grammar is deliberately small — just
enough to write test programs and the driver's test suite — and carries
none of the engine's behavior.

	expr    := ifExpr
	ifExpr  := "if" expr "then" expr "else" expr | orExpr
	orExpr  := andExpr ("||" andExpr)*
	andExpr := cmpExpr ("&&" cmpExpr)*
	cmpExpr := addExpr (("==" | "!=" | "<" | "<=" | ">" | ">=") addExpr)?
	addExpr := mulExpr (("+" | "-") mulExpr)*
	mulExpr := unary (("*" | "/") unary)*
	unary   := ("-" | "!") unary | postfix
	postfix := primary ("(" args ")")*
	primary := int | "true" | "false" | ident | "(" expr ")"
	        |  "fn" "(" params ")" "=>" expr
	        |  "{" [assign ("," assign)*] "}"
	assign  := ident "<-" expr
*/
package exprparse
