package ast

import "fmt"

// Kind identifies a node. The set is closed: the binary format has no way to
// introduce new kinds, and every switch over Kind in sketchvm is exhaustive.
// The numeric values are the wire bytes.
type Kind uint8

const (
	KindProgram Kind = 0x01
	KindError   Kind = 0x02
	KindComment Kind = 0x03

	KindCompound       Kind = 0x10
	KindExpressionStmt Kind = 0x11
	KindIf             Kind = 0x12
	KindWhile          Kind = 0x13
	KindDoWhile        Kind = 0x14
	KindFor            Kind = 0x15
	KindRangeFor       Kind = 0x16
	KindSwitch         Kind = 0x17
	KindCase           Kind = 0x18
	KindReturn         Kind = 0x19
	KindBreak          Kind = 0x1A
	KindContinue       Kind = 0x1B
	KindEmpty          Kind = 0x1C

	KindVarDecl    Kind = 0x20
	KindFuncDef    Kind = 0x21
	KindFuncDecl   Kind = 0x22
	KindStructDecl Kind = 0x23
	KindTypedef    Kind = 0x26

	KindBinary       Kind = 0x30
	KindUnary        Kind = 0x31
	KindAssignment   Kind = 0x32
	KindCall         Kind = 0x33
	KindMemberAccess Kind = 0x34
	KindArrayAccess  Kind = 0x35
	KindCast         Kind = 0x36
	KindSizeof       Kind = 0x37
	KindTernary      Kind = 0x38

	KindNumber     Kind = 0x40
	KindString     Kind = 0x41
	KindChar       Kind = 0x42
	KindIdentifier Kind = 0x43
	KindConstant   Kind = 0x44
	KindArrayInit  Kind = 0x45

	KindType              Kind = 0x50
	KindDeclarator        Kind = 0x51
	KindParam             Kind = 0x52
	KindPostfix           Kind = 0x53
	KindStructType        Kind = 0x54
	KindComma             Kind = 0x56
	KindArrayDeclarator   Kind = 0x57
	KindPointerDeclarator Kind = 0x58
)

var kindNames = map[Kind]string{
	KindProgram:           "Program",
	KindError:             "Error",
	KindComment:           "Comment",
	KindCompound:          "Compound",
	KindExpressionStmt:    "ExpressionStmt",
	KindIf:                "If",
	KindWhile:             "While",
	KindDoWhile:           "DoWhile",
	KindFor:               "For",
	KindRangeFor:          "RangeFor",
	KindSwitch:            "Switch",
	KindCase:              "Case",
	KindReturn:            "Return",
	KindBreak:             "Break",
	KindContinue:          "Continue",
	KindEmpty:             "Empty",
	KindVarDecl:           "VarDecl",
	KindFuncDef:           "FuncDef",
	KindFuncDecl:          "FuncDecl",
	KindStructDecl:        "StructDecl",
	KindTypedef:           "Typedef",
	KindBinary:            "Binary",
	KindUnary:             "Unary",
	KindAssignment:        "Assignment",
	KindCall:              "Call",
	KindMemberAccess:      "MemberAccess",
	KindArrayAccess:       "ArrayAccess",
	KindCast:              "Cast",
	KindSizeof:            "Sizeof",
	KindTernary:           "Ternary",
	KindNumber:            "Number",
	KindString:            "String",
	KindChar:              "Char",
	KindIdentifier:        "Identifier",
	KindConstant:          "Constant",
	KindArrayInit:         "ArrayInit",
	KindType:              "Type",
	KindDeclarator:        "Declarator",
	KindParam:             "Param",
	KindPostfix:           "Postfix",
	KindStructType:        "StructType",
	KindComma:             "Comma",
	KindArrayDeclarator:   "ArrayDeclarator",
	KindPointerDeclarator: "PointerDeclarator",
}

// Valid reports whether k is one of the defined kinds.
func (k Kind) Valid() bool {
	_, ok := kindNames[k]
	return ok
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("Kind(0x%02x)", uint8(k))
}

// IsTypeKind reports whether k names a type (Type or StructType).
func (k Kind) IsTypeKind() bool {
	return k == KindType || k == KindStructType
}

// IsDeclaratorKind reports whether k is one of the declarator kinds.
func (k Kind) IsDeclaratorKind() bool {
	return k == KindDeclarator || k == KindArrayDeclarator || k == KindPointerDeclarator
}

// Flags is the per-node flag byte.
type Flags uint8

const (
	FlagHasChildren Flags = 1 << 0
	FlagHasValue    Flags = 1 << 1
	FlagDefaultCase Flags = 1 << 2 // Case node is the default: label
	FlagPointer     Flags = 1 << 3 // Declarator or Type names a pointer
	FlagReference   Flags = 1 << 4 // Declarator or Type names a reference

	// wireFlags are recomputed by the encoder from the node contents.
	wireFlags = FlagHasChildren | FlagHasValue
)

// Semantic strips the structural bits that only describe the wire layout.
func (f Flags) Semantic() Flags {
	return f &^ wireFlags
}
