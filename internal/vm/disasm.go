package vm

import (
	"fmt"
	"strings"
)

// Disassemble returns a human-readable listing of a chunk's bytecode.
func Disassemble(chunk *Chunk, name string) string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("== %s ==\n", name))

	offset := 0
	for offset < len(chunk.Code) {
		offset = disassembleInstruction(&sb, chunk, offset)
	}

	return sb.String()
}

// DisassembleInstruction renders the instruction at offset without a
// trailing newline, and returns the offset of the next instruction.
func DisassembleInstruction(chunk *Chunk, offset int) (string, int) {
	var sb strings.Builder
	next := disassembleInstruction(&sb, chunk, offset)
	return strings.TrimRight(sb.String(), "\n"), next
}

func disassembleInstruction(sb *strings.Builder, chunk *Chunk, offset int) int {
	sb.WriteString(fmt.Sprintf("%04d ", offset))

	// Print line number
	if offset > 0 && chunk.Lines[offset] == chunk.Lines[offset-1] {
		sb.WriteString("   | ")
	} else {
		sb.WriteString(fmt.Sprintf("%4d ", chunk.Lines[offset]))
	}

	op := Opcode(chunk.Code[offset])

	switch op {
	case OP_CONSTANT, OP_GET_GLOBAL, OP_DEFINE_GLOBAL, OP_SET_GLOBAL,
		OP_GET_PROPERTY, OP_SET_PROPERTY, OP_CLASS, OP_METHOD:
		return constantInstruction(sb, op.String(), chunk, offset)

	case OP_GET_LOCAL, OP_SET_LOCAL, OP_GET_UPVALUE, OP_SET_UPVALUE, OP_CALL:
		return byteInstruction(sb, op.String(), chunk, offset)

	case OP_JUMP, OP_JUMP_IF_FALSE:
		return jumpInstruction(sb, op.String(), 1, chunk, offset)
	case OP_LOOP:
		return jumpInstruction(sb, op.String(), -1, chunk, offset)

	case OP_CLOSURE:
		return closureInstruction(sb, op.String(), chunk, offset)

	case OP_NIL, OP_TRUE, OP_FALSE, OP_POP,
		OP_EQUAL, OP_GREATER, OP_LESS,
		OP_ADD, OP_SUBTRACT, OP_MULTIPLY, OP_DIVIDE, OP_NOT, OP_NEGATE,
		OP_PRINT, OP_CLOSE_UPVALUE, OP_RETURN:
		return simpleInstruction(sb, op.String(), offset)

	default:
		sb.WriteString(fmt.Sprintf("Unknown opcode %d\n", op))
		return offset + 1
	}
}

func simpleInstruction(sb *strings.Builder, name string, offset int) int {
	sb.WriteString(fmt.Sprintf("%s\n", name))
	return offset + 1
}

func constantInstruction(sb *strings.Builder, name string, chunk *Chunk, offset int) int {
	if offset+1 >= len(chunk.Code) {
		sb.WriteString(fmt.Sprintf("%-16s (truncated)\n", name))
		return len(chunk.Code)
	}
	idx := int(chunk.Code[offset+1])

	if idx < len(chunk.Constants) {
		sb.WriteString(fmt.Sprintf("%-16s %4d '%s'\n", name, idx, chunk.Constants[idx]))
	} else {
		sb.WriteString(fmt.Sprintf("%-16s %4d (invalid)\n", name, idx))
	}

	return offset + 2
}

func byteInstruction(sb *strings.Builder, name string, chunk *Chunk, offset int) int {
	if offset+1 >= len(chunk.Code) {
		sb.WriteString(fmt.Sprintf("%-16s (truncated)\n", name))
		return len(chunk.Code)
	}
	slot := chunk.Code[offset+1]
	sb.WriteString(fmt.Sprintf("%-16s %4d\n", name, slot))
	return offset + 2
}

func jumpInstruction(sb *strings.Builder, name string, sign int, chunk *Chunk, offset int) int {
	if offset+2 >= len(chunk.Code) {
		sb.WriteString(fmt.Sprintf("%-16s (truncated)\n", name))
		return len(chunk.Code)
	}
	jump := chunk.ReadShort(offset + 1)
	target := offset + 3 + sign*jump
	sb.WriteString(fmt.Sprintf("%-16s %4d -> %d\n", name, offset, target))
	return offset + 3
}

// closureInstruction lists the upvalue pairs that follow the function
// constant. Nested bodies are listed on their own when they finish compiling.
func closureInstruction(sb *strings.Builder, name string, chunk *Chunk, offset int) int {
	idx := int(chunk.Code[offset+1])
	offset += 2

	if idx >= len(chunk.Constants) {
		sb.WriteString(fmt.Sprintf("%-16s %4d (invalid)\n", name, idx))
		return offset
	}

	fn, ok := chunk.Constants[idx].Obj.(*ObjFunction)
	if !ok {
		sb.WriteString(fmt.Sprintf("%-16s %4d (not a function)\n", name, idx))
		return offset
	}

	sb.WriteString(fmt.Sprintf("%-16s %4d %s\n", name, idx, fn))

	for i := 0; i < fn.UpvalueCount && offset+1 < len(chunk.Code); i++ {
		isLocal := chunk.Code[offset]
		index := chunk.Code[offset+1]

		localStr := "upvalue"
		if isLocal == 1 {
			localStr = "local"
		}
		sb.WriteString(fmt.Sprintf("%04d    |                     %s %d\n", offset, localStr, index))
		offset += 2
	}

	return offset
}
