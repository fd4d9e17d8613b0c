package pdfa

import (
	"encoding/hex"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"
	"golang.org/x/text/encoding/unicode"
)

var literalEscaper = strings.NewReplacer(
	`\`, `\\`,
	"(", `\(`,
	")", `\)`,
	"\r", `\r`,
	"\n", `\n`,
)

var literalUnescaper = strings.NewReplacer(
	`\\`, `\`,
	`\(`, "(",
	`\)`, ")",
	`\r`, "\r",
	`\n`, "\n",
)

// textString encodes s as a PDF text string. ASCII stays a literal string;
// anything else becomes UTF-16BE with a byte order mark, written as hex.
func textString(s string) types.Object {
	if isASCII(s) {
		return types.StringLiteral(literalEscaper.Replace(s))
	}
	enc := unicode.UTF16(unicode.BigEndian, unicode.UseBOM).NewEncoder()
	b, err := enc.Bytes([]byte(s))
	if err != nil {
		return types.StringLiteral(literalEscaper.Replace(s))
	}
	return types.HexLiteral(hex.EncodeToString(b))
}

// decodeText is the inverse of textString for string objects read back
// from a document. Other object kinds decode to "".
func decodeText(o types.Object) string {
	switch v := o.(type) {
	case types.StringLiteral:
		return literalUnescaper.Replace(string(v))
	case types.HexLiteral:
		b, err := hex.DecodeString(string(v))
		if err != nil {
			return ""
		}
		if len(b) >= 2 && b[0] == 0xFE && b[1] == 0xFF {
			dec := unicode.UTF16(unicode.BigEndian, unicode.ExpectBOM).NewDecoder()
			if s, err := dec.Bytes(b); err == nil {
				return string(s)
			}
		}
		return string(b)
	case types.Name:
		return string(v)
	}
	return ""
}

func isASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] >= 0x80 {
			return false
		}
	}
	return true
}
