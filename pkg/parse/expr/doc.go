// Package expr evaluates arithmetic expressions found in chat messages.
//
// The evaluator handles the four basic operators with standard precedence,
// parentheses, and a leading unary minus. Evaluation is performed end-to-end
// in exact decimal arithmetic to avoid binary floating-point drift in
// monetary results; the committed result is always quantized to two decimal
// places.
//
// # Pipeline
//
//	input string -> lexer (token stream) -> parser (typed AST) -> evaluation
//
// # Grammar
//
//	expression := ["-"] term { ("+" | "-") term }
//	term       := factor { ("*" | "/") factor }
//	factor     := NUMBER | "(" expression ")"
//
// A unary minus is recognized only at the very start of an expression or
// sub-expression (the content of a parenthesized group). "(-5+8)*2" is
// valid; "2*-3" is not.
//
// # Failure Modes
//
// All failures are returned as errors, never panics:
//
//   - characters outside [0-9+-*/.()] (after space removal)
//   - unbalanced parentheses
//   - malformed numeric literals (e.g. "1.2.3")
//   - division by zero
//
// Callers treat any error as "this candidate is not a price expression" and
// move on; nothing here is fatal.
package expr
