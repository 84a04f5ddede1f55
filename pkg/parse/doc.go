// Package parse turns free-form chat text into validated monetary amounts.
//
// The package has two stages. Normalize strips every character outside a
// small allow-list (CJK ideographs, digits, arithmetic operators, basic
// punctuation, whitespace), canonicalizes the multiplication glyph, and
// collapses whitespace. Extractor then scans the normalized text for anchor
// keywords (总, 合计, 总价, 总计, 金额) and tries three patterns per keyword
// in priority order:
//
//  1. Stated result:  keyword <expr> = <number>  (the stated number wins)
//  2. Bare expression: keyword <expr>            (evaluated via parse/expr)
//  3. Bare number:     keyword <number>          (unless an operator follows)
//
// The first pattern of the first keyword that yields a structurally valid,
// non-negative amount wins. Negative candidates abandon the current keyword;
// evaluation failures fall through to the next pattern. When nothing
// matches, the result carries ErrNoPrice.
//
// Both stages are pure functions with no shared state and are safe for
// unlimited concurrent use.
package parse
