package fonts

import (
	"bytes"
	"strings"
)

// ProgramType is the container format of an embedded font program.
type ProgramType string

const (
	TrueType ProgramType = "TrueType"
	OpenType ProgramType = "OpenType"
	Type1    ProgramType = "Type1"
	CFF      ProgramType = "CFF"
	Unknown  ProgramType = "Unknown"
)

// declaredOrder is checked by substring, first match wins. "Type1C" is
// therefore reported as Type1.
var declaredOrder = []ProgramType{TrueType, OpenType, Type1, CFF}

// FromDeclared maps a declared /Subtype to a program type by substring.
func FromDeclared(subtype string) ProgramType {
	for _, t := range declaredOrder {
		if strings.Contains(subtype, string(t)) {
			return t
		}
	}
	return Unknown
}

// DetectType sniffs the leading bytes of a font program.
func DetectType(data []byte) ProgramType {
	if len(data) < 4 {
		return Unknown
	}
	sig := data[:4]
	switch {
	case bytes.Equal(sig, []byte{0x00, 0x01, 0x00, 0x00}),
		bytes.Equal(sig, []byte("true")),
		bytes.Equal(sig, []byte("typ1")):
		return TrueType
	case bytes.Equal(sig, []byte("OTTO")):
		return OpenType
	case bytes.HasPrefix(sig, []byte("%!")), sig[0] == 0x80 && sig[1] == 0x01:
		return Type1
	case sig[0] == 0x01 && sig[1] == 0x00:
		return CFF
	}
	return Unknown
}

// Classify prefers the declared subtype and falls back to sniffing.
func Classify(declared string, data []byte) ProgramType {
	if t := FromDeclared(declared); t != Unknown {
		return t
	}
	if len(data) == 0 {
		return Unknown
	}
	return DetectType(data)
}
