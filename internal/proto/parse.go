package proto

import (
	"fmt"
	"strconv"
	"strings"
)

// ParseLine decodes one trace line into an Instruction: two whitespace-
// separated tokens, an opcode in {0,1,2,3,4} and a hexadecimal operand.
// Opcode 3 and 4 are reserved and rejected as
// unknown; any other malformed input is also an error. The caller is
// expected to attach file/line context to the returned error (see
// trace.FileSource).
func ParseLine(line string) (Instruction, error) {
	fields := strings.Fields(line)
	if len(fields) != 2 {
		return Instruction{}, fmt.Errorf("expected 2 fields, got %d", len(fields))
	}

	opVal, err := strconv.ParseUint(fields[0], 10, 8)
	if err != nil {
		return Instruction{}, fmt.Errorf("invalid opcode %q: %w", fields[0], err)
	}

	operand, err := strconv.ParseUint(fields[1], 16, 64)
	if err != nil {
		return Instruction{}, fmt.Errorf("invalid hex operand %q: %w", fields[1], err)
	}

	switch Op(opVal) {
	case OpLoad:
		return Instruction{Kind: InstrLoad, Address: operand}, nil
	case OpStore:
		return Instruction{Kind: InstrStore, Address: operand}, nil
	case OpOther:
		if operand == 0 {
			return Instruction{}, fmt.Errorf("Other instruction requires cycles > 0, got 0")
		}
		return Instruction{Kind: InstrOther, Cycles: int(operand)}, nil
	default:
		return Instruction{}, fmt.Errorf("unknown opcode %d", opVal)
	}
}
