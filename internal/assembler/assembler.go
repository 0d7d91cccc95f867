// Package assembler lexes a line-oriented instruction listing into typed
// Instructions resolved against an ISA table (spec §4.4).
package assembler

import (
	"strings"

	"github.com/abhandari/pipesim/internal/capability"
)

// Instruction is one parsed program line.
type Instruction struct {
	Index       int
	Mnemonic    string
	Destination string
	Sources     []string
	RequiredCap capability.Capability
}

// Program is the ordered instruction stream produced by Assemble.
type Program struct {
	Instructions []Instruction
}

// Assemble lexes lines (whitespace- and comma-tokenized, one instruction per
// non-blank line) into a Program, resolving each mnemonic against isa.
// Blank lines and lines beginning with "#" are ignored.
func Assemble(lines []string, isa *capability.ISA) (*Program, error) {
	prog := &Program{}

	for lineNo, raw := range lines {
		line := strings.TrimSpace(raw)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		tokens := tokenize(line)
		if len(tokens) == 0 {
			return nil, &EmptyInstructionError{Line: lineNo + 1}
		}

		mnemonic := tokens[0]
		operands := tokens[1:]

		cap, ok := isa.Lookup(mnemonic)
		if !ok {
			return nil, &UnknownMnemonicError{Mnemonic: mnemonic, Line: lineNo + 1}
		}

		if len(operands) == 0 {
			return nil, &MissingDestinationError{Mnemonic: mnemonic, Line: lineNo + 1}
		}

		inst := Instruction{
			Index:       len(prog.Instructions),
			Mnemonic:    mnemonic,
			Destination: operands[0],
			Sources:     append([]string{}, operands[1:]...),
			RequiredCap: cap,
		}
		prog.Instructions = append(prog.Instructions, inst)
	}

	return prog, nil
}

// tokenize splits a line on whitespace and commas, then strips the
// parentheses off memory-addressing operands like "(R2)".
func tokenize(line string) []string {
	fields := strings.FieldsFunc(line, func(r rune) bool {
		return r == ',' || r == ' ' || r == '\t'
	})

	tokens := make([]string, 0, len(fields))
	for _, f := range fields {
		f = strings.TrimPrefix(f, "(")
		f = strings.TrimSuffix(f, ")")
		if f != "" {
			tokens = append(tokens, f)
		}
	}
	return tokens
}
