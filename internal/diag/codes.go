package diag

import (
	"fmt"
)

type Code uint16

const (
	UnknownCode Code = 0

	// Schema document loading
	SchInfo             Code = 1000
	SchSyntax           Code = 1001
	SchUnknownKind      Code = 1002
	SchBadTypeRef       Code = 1003
	SchMissingField     Code = 1004
	SchDuplicateKey     Code = 1005
	SchBadMemberShape   Code = 1006
	SchBadEnumValue     Code = 1007
	SchBadGenericParams Code = 1008

	// Project configuration
	PrjInfo            Code = 2000
	PrjManifestInvalid Code = 2001
	PrjNoSchemas       Code = 2002

	// Name and generic resolution
	SemInfo                  Code = 3000
	SemDuplicateSymbol       Code = 3001
	SemUnresolvedSymbol      Code = 3002
	SemArityMismatch         Code = 3003
	SemUnknownParamKind      Code = 3004
	SemGenericNeedsArgs      Code = 3005
	SemUnresolvedForwardDecl Code = 3006
	SemNullableValueMember   Code = 3007
	SemBadArrayLength        Code = 3008
	SemEnumValueOverflow     Code = 3009
	SemDuplicateEnumValue    Code = 3010
	SemDuplicateMember       Code = 3011
	SemEmptyUnion            Code = 3012
	SemBadEnumBase           Code = 3013
	SemNotAType              Code = 3014
	SemArgKindMismatch       Code = 3015
	SemShadowBuiltin         Code = 3016
	SemScopeMismatch         Code = 3017
	SemInstantiationDepth    Code = 3018
	SemBadBase               Code = 3019

	// Layout
	LayInfo                Code = 4000
	LayRecursiveUnsized    Code = 4001
	LayArrayElementNotReg  Code = 4002
	LayDuplicateMember     Code = 4003
	LayReferencePassNotRun Code = 4004
	LayTooLarge            Code = 4005

	// Codec
	CodInfo            Code = 5000
	CodUnknownEnum     Code = 5001
	CodUnionActive     Code = 5002
	CodOutOfBounds     Code = 5003
	CodValueMismatch   Code = 5004
	CodPointerOverflow Code = 5005

	// IO
	IOInfo          Code = 6000
	IOLoadFileError Code = 6001
)

var (
	codeDescription = map[Code]string{
		UnknownCode: "Unknown error",

		SchInfo:             "Schema information",
		SchSyntax:           "Malformed schema document",
		SchUnknownKind:      "Unknown declaration kind",
		SchBadTypeRef:       "Malformed type reference",
		SchMissingField:     "Missing required field",
		SchDuplicateKey:     "Duplicate key",
		SchBadMemberShape:   "Member must be a type string or a mapping",
		SchBadEnumValue:     "Enum value must be an integer",
		SchBadGenericParams: "Malformed generic parameter list",

		PrjInfo:            "Project information",
		PrjManifestInvalid: "Invalid wirec.toml",
		PrjNoSchemas:       "No schema files matched",

		SemInfo:                  "Resolution information",
		SemDuplicateSymbol:       "Duplicate symbol",
		SemUnresolvedSymbol:      "Unresolved symbol",
		SemArityMismatch:         "Generic arity mismatch",
		SemUnknownParamKind:      "Unknown generic parameter kind",
		SemGenericNeedsArgs:      "Generic used without arguments",
		SemUnresolvedForwardDecl: "Unresolved forward declaration",
		SemNullableValueMember:   "Only reference members can be nullable",
		SemBadArrayLength:        "Array length must be a positive integer",
		SemEnumValueOverflow:     "Enum value does not fit the underlying type",
		SemDuplicateEnumValue:    "Duplicate enum value",
		SemDuplicateMember:       "Duplicate member",
		SemEmptyUnion:            "Union must have at least one member",
		SemBadEnumBase:           "Enum underlying type must be integral",
		SemNotAType:              "Name does not denote a type",
		SemArgKindMismatch:       "Generic argument has the wrong kind",
		SemShadowBuiltin:         "Declaration shadows a built-in",
		SemScopeMismatch:         "Scope stack mismatch",
		SemInstantiationDepth:    "Generic instantiation nests too deeply",
		SemBadBase:               "Invalid base declaration",

		LayInfo:                "Layout information",
		LayRecursiveUnsized:    "Recursive type has infinite size",
		LayArrayElementNotReg:  "Array element type must be regular",
		LayDuplicateMember:     "Duplicate member in layout",
		LayReferencePassNotRun: "Layout requested before the reference pass",
		LayTooLarge:            "Layout exceeds the addressable range",

		CodInfo:            "Codec information",
		CodUnknownEnum:     "Unknown enum value",
		CodUnionActive:     "Union must have exactly one active member",
		CodOutOfBounds:     "Read or write out of bounds",
		CodValueMismatch:   "Value does not match the type",
		CodPointerOverflow: "Pointer distance exceeds 16 bits",

		IOInfo:          "IO information",
		IOLoadFileError: "Failed to load file",
	}
)

func (c Code) ID() string {
	switch ic := int(c); {
	case ic >= 1000 && ic < 2000:
		return fmt.Sprintf("SCH%04d", ic)
	case ic >= 2000 && ic < 3000:
		return fmt.Sprintf("PRJ%04d", ic)
	case ic >= 3000 && ic < 4000:
		return fmt.Sprintf("SEM%04d", ic)
	case ic >= 4000 && ic < 5000:
		return fmt.Sprintf("LAY%04d", ic)
	case ic >= 5000 && ic < 6000:
		return fmt.Sprintf("COD%04d", ic)
	case ic >= 6000 && ic < 7000:
		return fmt.Sprintf("IO%04d", ic)
	}
	return "E0000"
}

func (c Code) Title() string {
	desc, ok := codeDescription[c]
	if !ok {
		return codeDescription[UnknownCode]
	}
	return desc
}

func (c Code) String() string {
	return fmt.Sprintf("[%s]: %s", c.ID(), c.Title())
}
