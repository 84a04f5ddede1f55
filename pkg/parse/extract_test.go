package parse

import (
	"strconv"
	"testing"
)

func TestExtract_BareNumber(t *testing.T) {
	e := NewExtractor()

	for _, amount := range []string{"0", "1", "186", "10.50", "9999.99"} {
		result := e.Extract("总" + amount)
		if !result.OK {
			t.Errorf("Extract(总%s): failed: %s", amount, result.Err)
			continue
		}
		want, _ := strconv.ParseFloat(amount, 64)
		got, _ := result.Amount.Float64()
		if got != want {
			t.Errorf("Extract(总%s): amount = %s", amount, result.Amount)
		}
		if result.Expression != "" {
			t.Errorf("Extract(总%s): unexpected expression %q", amount, result.Expression)
		}
	}
}

func TestExtract_OperatorPrecedence(t *testing.T) {
	e := NewExtractor()

	result := e.Extract("总2+3*4")
	if !result.OK {
		t.Fatalf("extraction failed: %s", result.Err)
	}
	if result.Amount.StringFixed(2) != "14.00" {
		t.Errorf("amount = %s, want 14.00", result.Amount.StringFixed(2))
	}
	if result.Expression != "2+3*4" {
		t.Errorf("expression = %q, want %q", result.Expression, "2+3*4")
	}
}

func TestExtract_StatedResultTrusted(t *testing.T) {
	e := NewExtractor()

	result := e.Extract("总60*2+60+6=186")
	if !result.OK {
		t.Fatalf("extraction failed: %s", result.Err)
	}
	if result.Amount.StringFixed(2) != "186.00" {
		t.Errorf("amount = %s, want 186.00", result.Amount.StringFixed(2))
	}
	if result.Expression != "60*2+60+6" {
		t.Errorf("expression = %q, want %q", result.Expression, "60*2+60+6")
	}
	if result.StatedMismatch {
		t.Error("StatedMismatch set for a matching expression")
	}
}

func TestExtract_StatedMismatchFlagged(t *testing.T) {
	e := NewExtractor()

	// The stated number wins even when the expression disagrees, but the
	// disagreement is flagged.
	result := e.Extract("总60*2+60+6=200")
	if !result.OK {
		t.Fatalf("extraction failed: %s", result.Err)
	}
	if result.Amount.StringFixed(2) != "200.00" {
		t.Errorf("amount = %s, want 200.00", result.Amount.StringFixed(2))
	}
	if !result.StatedMismatch {
		t.Error("StatedMismatch not set for a non-matching expression")
	}
}

func TestExtract_NegativeRejected(t *testing.T) {
	e := NewExtractor()

	for _, text := range []string{"总-50", "总10-60", "合计-1.5"} {
		if result := e.Extract(text); result.OK {
			t.Errorf("Extract(%q): expected failure, got amount %s", text, result.Amount)
		}
	}
}

func TestExtract_DivisionByZeroContained(t *testing.T) {
	e := NewExtractor()

	result := e.Extract("总10/0")
	if result.OK {
		t.Fatalf("expected failure, got amount %s", result.Amount)
	}

	// The extractor keeps serving after an evaluation failure.
	result = e.Extract("总186")
	if !result.OK {
		t.Fatalf("subsequent extraction failed: %s", result.Err)
	}
}

func TestExtract_ResultScale(t *testing.T) {
	e := NewExtractor()

	tests := []struct {
		text string
		want string
	}{
		{"总10.5+2", "12.50"},
		{"总186", "186.00"},
		{"总10/4", "2.50"},
		{"总1+2=3", "3.00"},
	}

	for _, tt := range tests {
		result := e.Extract(tt.text)
		if !result.OK {
			t.Errorf("Extract(%q): failed: %s", tt.text, result.Err)
			continue
		}
		if got := result.Amount.StringFixed(2); got != tt.want {
			t.Errorf("Extract(%q): amount = %s, want %s", tt.text, got, tt.want)
		}
	}
}

func TestExtract_KeywordPriority(t *testing.T) {
	e := NewExtractor()

	// 总 itself yields nothing valid here; the longer synonym 总计 does.
	result := e.Extract("总计60*2")
	if !result.OK {
		t.Fatalf("extraction failed: %s", result.Err)
	}
	if result.Amount.StringFixed(2) != "120.00" {
		t.Errorf("amount = %s, want 120.00", result.Amount.StringFixed(2))
	}

	// 合计 works standalone.
	result = e.Extract("合计88")
	if !result.OK || result.Amount.StringFixed(2) != "88.00" {
		t.Errorf("Extract(合计88) = %+v, want 88.00", result)
	}
}

func TestExtract_BareNumberDefersToExpression(t *testing.T) {
	e := NewExtractor()

	// "总60*2" must evaluate the whole expression, never truncate to 60.
	result := e.Extract("总60*2")
	if !result.OK {
		t.Fatalf("extraction failed: %s", result.Err)
	}
	if result.Amount.StringFixed(2) != "120.00" {
		t.Errorf("amount = %s, want 120.00", result.Amount.StringFixed(2))
	}
}

func TestExtract_NoKeyword(t *testing.T) {
	e := NewExtractor()

	result := e.Extract("今天天气不错 123")
	if result.OK {
		t.Fatalf("expected failure, got amount %s", result.Amount)
	}
	if result.Err != ErrNoPrice.Error() {
		t.Errorf("err = %q, want %q", result.Err, ErrNoPrice.Error())
	}
}

func TestExtract_NoisyMessage(t *testing.T) {
	e := NewExtractor()

	result := e.Extract("🍔 下单啦！总 55*2+6=116 谢谢")
	if !result.OK {
		t.Fatalf("extraction failed: %s", result.Err)
	}
	if result.Amount.StringFixed(2) != "116.00" {
		t.Errorf("amount = %s, want 116.00", result.Amount.StringFixed(2))
	}
	if result.Expression != "55*2+6" {
		t.Errorf("expression = %q, want %q", result.Expression, "55*2+6")
	}
}

func TestExtract_CustomKeywords(t *testing.T) {
	e := NewExtractor("应付")

	result := e.Extract("应付 42")
	if !result.OK || result.Amount.StringFixed(2) != "42.00" {
		t.Errorf("Extract(应付 42) = %+v, want 42.00", result)
	}

	// Default keywords are not recognized by a custom extractor.
	if result := e.Extract("总42"); result.OK {
		t.Errorf("custom extractor matched a default keyword: %+v", result)
	}
}
