// Package condition evaluates the boolean conditions attached to optional
// sub-workflows, such as "complexity_score >= 7 and not light_mode".
//
// The grammar is closed:
//
//	expr    := or
//	or      := and ("or" and)*
//	and     := unary ("and" unary)*
//	unary   := "not" unary | cmp
//	cmp     := operand (("==" | "!=" | "<" | "<=" | ">" | ">=") operand)?
//	operand := IDENT | NUMBER | "true" | "false" | "(" expr ")"
//
// Identifiers must belong to an explicit whitelist given to Compile. Anything
// outside the grammar or the whitelist is rejected at compile time; there is
// no function call, attribute access or string literal.
package condition
