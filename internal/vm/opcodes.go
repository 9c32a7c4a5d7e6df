// Package vm implements the Lox single-pass compiler and the stack-based
// bytecode virtual machine that runs its output.
package vm

// Opcode represents a single VM instruction
type Opcode byte

const (
	// Stack manipulation
	OP_CONSTANT Opcode = iota // Push constant: [index]
	OP_NIL                    // Push nil
	OP_TRUE                   // Push true
	OP_FALSE                  // Push false
	OP_POP                    // Discard top of stack

	// Variables
	OP_GET_LOCAL     // Push frame slot: [slot]
	OP_SET_LOCAL     // Store top into frame slot, keep it: [slot]
	OP_GET_GLOBAL    // Push global: [name constant]
	OP_DEFINE_GLOBAL // Pop into a new or existing global: [name constant]
	OP_SET_GLOBAL    // Store top into an existing global, keep it: [name constant]
	OP_GET_UPVALUE   // Push captured variable: [upvalue index]
	OP_SET_UPVALUE   // Store top into captured variable: [upvalue index]

	// Properties
	OP_GET_PROPERTY // Replace instance with its field: [name constant]
	OP_SET_PROPERTY // [instance, value] -> [value]: [name constant]

	// Comparison
	OP_EQUAL   // ==
	OP_GREATER // >
	OP_LESS    // <

	// Arithmetic
	OP_ADD      // + (numbers or strings)
	OP_SUBTRACT // -
	OP_MULTIPLY // *
	OP_DIVIDE   // /
	OP_NOT      // !
	OP_NEGATE   // Unary minus

	OP_PRINT // Pop and print

	// Control flow
	OP_JUMP          // Unconditional forward jump: [hi, lo]
	OP_JUMP_IF_FALSE // Forward jump if top is falsey, top stays: [hi, lo]
	OP_LOOP          // Backward jump: [hi, lo]

	// Functions
	OP_CALL          // Call callee below N args: [argc]
	OP_CLOSURE       // Wrap function constant: [index] then (isLocal, index) per upvalue
	OP_CLOSE_UPVALUE // Close the upvalue for the top slot and pop it
	OP_RETURN        // Return from current frame

	// Classes
	OP_CLASS  // Push new class: [name constant]
	OP_METHOD // Pop closure into class below it: [name constant]
)

// OpcodeNames maps opcodes to their string names (for debugging)
var OpcodeNames = map[Opcode]string{
	OP_CONSTANT: "OP_CONSTANT",
	OP_NIL:      "OP_NIL",
	OP_TRUE:     "OP_TRUE",
	OP_FALSE:    "OP_FALSE",
	OP_POP:      "OP_POP",

	OP_GET_LOCAL:     "OP_GET_LOCAL",
	OP_SET_LOCAL:     "OP_SET_LOCAL",
	OP_GET_GLOBAL:    "OP_GET_GLOBAL",
	OP_DEFINE_GLOBAL: "OP_DEFINE_GLOBAL",
	OP_SET_GLOBAL:    "OP_SET_GLOBAL",
	OP_GET_UPVALUE:   "OP_GET_UPVALUE",
	OP_SET_UPVALUE:   "OP_SET_UPVALUE",

	OP_GET_PROPERTY: "OP_GET_PROPERTY",
	OP_SET_PROPERTY: "OP_SET_PROPERTY",

	OP_EQUAL:   "OP_EQUAL",
	OP_GREATER: "OP_GREATER",
	OP_LESS:    "OP_LESS",

	OP_ADD:      "OP_ADD",
	OP_SUBTRACT: "OP_SUBTRACT",
	OP_MULTIPLY: "OP_MULTIPLY",
	OP_DIVIDE:   "OP_DIVIDE",
	OP_NOT:      "OP_NOT",
	OP_NEGATE:   "OP_NEGATE",

	OP_PRINT: "OP_PRINT",

	OP_JUMP:          "OP_JUMP",
	OP_JUMP_IF_FALSE: "OP_JUMP_IF_FALSE",
	OP_LOOP:          "OP_LOOP",

	OP_CALL:          "OP_CALL",
	OP_CLOSURE:       "OP_CLOSURE",
	OP_CLOSE_UPVALUE: "OP_CLOSE_UPVALUE",
	OP_RETURN:        "OP_RETURN",

	OP_CLASS:  "OP_CLASS",
	OP_METHOD: "OP_METHOD",
}

func (op Opcode) String() string {
	if name, ok := OpcodeNames[op]; ok {
		return name
	}
	return "OP_UNKNOWN"
}
