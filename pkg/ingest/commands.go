package ingest

import (
	"regexp"

	"github.com/shopspring/decimal"

	"tally-hq/tally/pkg/ledger"
	"tally-hq/tally/pkg/parse"
)

// adjustPattern matches a whole-message manual adjustment: a sign followed
// by a plain decimal number and nothing else.
var adjustPattern = regexp.MustCompile(`^([+-])\s*(\d+(?:\.\d+)?)$`)

// clearCommands are the accepted spellings of the ledger reset command.
var clearCommands = map[string]struct{}{
	"清账": {},
	"清帐": {},
}

// ParseAdjustCommand recognizes admin adjustment messages of the form "+N"
// or "-N". The amount must be strictly positive; "+0" is not a command.
// Matching runs on normalized text, so emoji and other decorations do not
// hide an otherwise well-formed command.
func ParseAdjustCommand(text string) (ledger.TransactionType, decimal.Decimal, bool) {
	m := adjustPattern.FindStringSubmatch(parse.Normalize(text))
	if m == nil {
		return "", decimal.Zero, false
	}

	amount, err := decimal.NewFromString(m[2])
	if err != nil || amount.IsZero() {
		return "", decimal.Zero, false
	}

	if m[1] == "-" {
		return ledger.TypeReduce, amount, true
	}
	return ledger.TypeAdd, amount, true
}

// IsClearCommand reports whether the message is a ledger reset command,
// after the same normalization as ParseAdjustCommand.
func IsClearCommand(text string) bool {
	_, ok := clearCommands[parse.Normalize(text)]
	return ok
}
