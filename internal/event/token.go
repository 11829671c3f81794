package event

import (
	"strconv"
	"strings"
	"unicode/utf8"

	"slaunch/internal/keys"
)

// TokenKind discriminates KeyToken variants.
type TokenKind uint8

// Token variants.
const (
	TokenUnknown TokenKind = iota
	TokenSpecial
	TokenChar
	TokenCode
)

func (k TokenKind) String() string {
	switch k {
	case TokenSpecial:
		return "special"
	case TokenChar:
		return "char"
	case TokenCode:
		return "code"
	default:
		return "unknown"
	}
}

// KeyToken is the serialized identity of a key as it appears in a recording.
//
//	Special  "Key.shift_r"
//	Char     "'a'"  (an apostrophe is written "\"'\"")
//	Code     "<65437>"
//	Unknown  anything else, kept verbatim in Raw
//
// KeyToken is comparable and is used directly as a map key when tracking
// held keys. Whether a token maps to a real key is decided at replay time.
type KeyToken struct {
	Kind TokenKind
	Name string
	Char rune
	Code int
	Raw  string
}

const specialPrefix = "Key."

// SpecialToken returns the token for a named special key.
func SpecialToken(name string) KeyToken {
	return KeyToken{Kind: TokenSpecial, Name: name}
}

// CharToken returns the token for a character key.
func CharToken(r rune) KeyToken {
	return KeyToken{Kind: TokenChar, Char: r}
}

// CodeToken returns the token for a raw virtual key code.
func CodeToken(code int) KeyToken {
	return KeyToken{Kind: TokenCode, Code: code}
}

// TokenFor returns the token that records k.
func TokenFor(k keys.Key) KeyToken {
	if k.IsRune() {
		return CharToken(k.Rune())
	}
	return SpecialToken(k.Name())
}

// ParseToken decodes the textual token form. It never fails: input that
// matches no known form yields a TokenUnknown carrying the raw text.
func ParseToken(s string) KeyToken {
	if strings.HasPrefix(s, specialPrefix) && len(s) > len(specialPrefix) {
		return SpecialToken(s[len(specialPrefix):])
	}
	if r, ok := parseQuoted(s); ok {
		return CharToken(r)
	}
	if len(s) > 2 && s[0] == '<' && s[len(s)-1] == '>' {
		if n, err := strconv.Atoi(s[1 : len(s)-1]); err == nil {
			return CodeToken(n)
		}
	}
	if utf8.RuneCountInString(s) == 1 {
		r, _ := utf8.DecodeRuneInString(s)
		if r != utf8.RuneError {
			return CharToken(r)
		}
	}
	return KeyToken{Kind: TokenUnknown, Raw: s}
}

// parseQuoted accepts 'c', "c" and escaped forms such as '\\'.
func parseQuoted(s string) (rune, bool) {
	if len(s) < 3 {
		return 0, false
	}
	q := s[0]
	if (q != '\'' && q != '"') || s[len(s)-1] != q {
		return 0, false
	}
	inner := s[1 : len(s)-1]
	if strings.HasPrefix(inner, `\`) {
		unq, err := strconv.Unquote(`"` + inner + `"`)
		if err != nil {
			return 0, false
		}
		inner = unq
	}
	if utf8.RuneCountInString(inner) != 1 {
		return 0, false
	}
	r, _ := utf8.DecodeRuneInString(inner)
	return r, r != utf8.RuneError
}

// Format returns the textual form of t. ParseToken(t.Format()) == t.
func (t KeyToken) Format() string {
	switch t.Kind {
	case TokenSpecial:
		return specialPrefix + t.Name
	case TokenChar:
		switch t.Char {
		case '\'':
			return `"'"`
		case '\\':
			return `'\\'`
		}
		if t.Char < 0x20 || t.Char == 0x7f {
			return strconv.QuoteRune(t.Char)
		}
		return "'" + string(t.Char) + "'"
	case TokenCode:
		return "<" + strconv.Itoa(t.Code) + ">"
	default:
		return t.Raw
	}
}

// IsZero reports whether t is the zero token.
func (t KeyToken) IsZero() bool {
	return t == KeyToken{}
}

func (t KeyToken) String() string {
	return t.Format()
}
