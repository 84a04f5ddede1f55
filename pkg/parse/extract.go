package parse

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"

	"tally-hq/tally/pkg/parse/expr"
)

// ErrNoPrice indicates that no keyword produced a valid, non-negative
// amount. It is reported through Result.Err, never returned as a hard error.
var ErrNoPrice = errors.New("no price found")

// DefaultKeywords are the anchor keywords tried in priority order. Shorter
// keywords come first; longer synonyms still win when the shorter prefix
// fails to produce a valid candidate.
var DefaultKeywords = []string{"总", "合计", "总价", "总计", "金额"}

// Result is the outcome of one extraction attempt.
type Result struct {
	// OK reports whether a valid non-negative amount was found.
	OK bool

	// Amount is the extracted monetary value, quantized to two decimal
	// places. Only meaningful when OK is true.
	Amount decimal.Decimal

	// Expression is the arithmetic expression the amount was stated with or
	// derived from. Empty when the amount was a bare literal.
	Expression string

	// StatedMismatch is set when a stated-result form ("<expr> = <number>")
	// carried an expression that evaluates to a different value than the
	// stated number. The stated number is still trusted; callers may warn.
	StatedMismatch bool

	// Err describes why extraction failed. Empty when OK is true.
	Err string
}

// keywordPatterns holds the three compiled candidate patterns for one
// anchor keyword.
type keywordPatterns struct {
	keyword string

	// stated matches "keyword <expr> = <number>".
	stated *regexp.Regexp

	// expression matches "keyword <expr>" up to end of line or text.
	expression *regexp.Regexp

	// bare matches "keyword <number>".
	bare *regexp.Regexp
}

// Extractor scans normalized chat text for monetary amounts anchored by
// keywords. It is immutable after construction and safe for concurrent use.
type Extractor struct {
	patterns []keywordPatterns
}

// NewExtractor builds an extractor for the given anchor keywords, or
// DefaultKeywords when none are given. All patterns are compiled once here.
func NewExtractor(keywords ...string) *Extractor {
	if len(keywords) == 0 {
		keywords = DefaultKeywords
	}

	patterns := make([]keywordPatterns, 0, len(keywords))
	for _, keyword := range keywords {
		kw := regexp.QuoteMeta(keyword)
		patterns = append(patterns, keywordPatterns{
			keyword:    keyword,
			stated:     regexp.MustCompile(kw + `\s*([^=\n]+?)\s*=\s*(-?\d+(?:\.\d+)?)`),
			expression: regexp.MustCompile(`(?m)` + kw + `\s*([^=\n]+?)(?:\s*$|\s*\n)`),
			bare:       regexp.MustCompile(kw + `\s*(\d+(?:\.\d+)?)`),
		})
	}

	return &Extractor{patterns: patterns}
}

// ContainsKeyword reports whether any anchor keyword appears in the text.
// Cheap pre-filter so callers can skip full extraction for ordinary chatter.
func (e *Extractor) ContainsKeyword(text string) bool {
	for _, kp := range e.patterns {
		if strings.Contains(text, kp.keyword) {
			return true
		}
	}
	return false
}

// Extract normalizes text and scans it for a monetary amount. Keywords are
// tried in priority order; the first pattern of the first keyword producing
// a structurally valid, non-negative amount wins. Extraction never fails
// hard: every outcome, including evaluator failures, folds into the Result.
func (e *Extractor) Extract(text string) Result {
	text = Normalize(text)
	if text == "" {
		return Result{Err: "empty message"}
	}

	for _, kp := range e.patterns {
		// Pattern 1: stated result. The number after "=" is authoritative;
		// the expression before it is evaluated only to flag mismatches.
		if m := kp.stated.FindStringSubmatch(text); m != nil {
			expression := strings.TrimSpace(m[1])
			stated, err := decimal.NewFromString(m[2])
			if err == nil {
				if stated.IsNegative() {
					continue // negative amounts abandon this keyword
				}
				result := Result{
					OK:         true,
					Amount:     stated.Round(2),
					Expression: expression,
				}
				if evaluated, evalErr := expr.Evaluate(expression); evalErr == nil && !evaluated.Equal(stated) {
					result.StatedMismatch = true
				}
				return result
			}
			// Unparsable stated number: try the next pattern.
		}

		// Pattern 2: bare expression ending at end of line or text. Only
		// candidates containing an operator qualify; a pure number is left
		// for pattern 3.
		if m := kp.expression.FindStringSubmatch(text); m != nil {
			expression := strings.TrimSpace(m[1])
			if strings.ContainsAny(expression, "+-*/") {
				evaluated, err := expr.Evaluate(expression)
				if err == nil {
					if evaluated.IsNegative() {
						continue
					}
					return Result{OK: true, Amount: evaluated, Expression: expression}
				}
				// Evaluation failed: this candidate is invalid, not a hard
				// error. Pattern 3 may still match a simpler form.
			}
		}

		// Pattern 3: bare number directly after the keyword. Skipped when an
		// operator follows within the lookahead window, so a longer
		// expression is never truncated to its first operand.
		if loc := kp.bare.FindStringSubmatchIndex(text); loc != nil {
			if operatorFollows(text, loc[1]) {
				continue
			}
			amount, err := decimal.NewFromString(text[loc[2]:loc[3]])
			if err == nil {
				return Result{OK: true, Amount: amount.Round(2)}
			}
		}
	}

	return Result{Err: ErrNoPrice.Error()}
}

// operatorFollows reports whether an arithmetic operator appears right
// after position end, ignoring leading spaces, within a 3-byte window.
func operatorFollows(text string, end int) bool {
	window := text[end:min(end+3, len(text))]
	window = strings.TrimLeft(window, " ")
	return window != "" && strings.IndexByte("+-*/", window[0]) >= 0
}

// String implements fmt.Stringer for log output.
func (r Result) String() string {
	if !r.OK {
		return fmt.Sprintf("parse failed: %s", r.Err)
	}
	if r.Expression != "" {
		return fmt.Sprintf("amount=%s expression=%q", r.Amount.StringFixed(2), r.Expression)
	}
	return fmt.Sprintf("amount=%s", r.Amount.StringFixed(2))
}
