package binlog

import (
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/japanese"
	"golang.org/x/text/encoding/korean"
	"golang.org/x/text/encoding/simplifiedchinese"
	"golang.org/x/text/encoding/traditionalchinese"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/encoding/unicode/utf32"
	errors "gopkg.in/src-d/go-errors.v1"
)

var (
	ErrUnsupportedCharset = errors.NewKind("binlog: unsupported charset %q")
	ErrBinaryColumn       = errors.NewKind("binlog: column %q holds binary data")
	ErrNotText            = errors.NewKind("binlog: %s value is not text")
)

// collations maps collation ids to charset names for the collations that
// are not part of a contiguous range below.
//
// https://dev.mysql.com/doc/refman/8.0/en/information-schema-collations-table.html
var collations = map[uint64]string{
	1: "big5", 84: "big5",
	4: "cp850", 80: "cp850",
	5: "latin1", 8: "latin1", 15: "latin1", 31: "latin1", 47: "latin1", 48: "latin1", 49: "latin1", 94: "latin1",
	2: "latin2", 9: "latin2", 21: "latin2", 27: "latin2", 77: "latin2",
	7: "koi8r", 74: "koi8r",
	11: "ascii", 65: "ascii",
	12: "ujis", 91: "ujis",
	13: "sjis", 88: "sjis",
	19: "euckr", 85: "euckr",
	24: "gb2312", 86: "gb2312",
	25: "greek", 70: "greek",
	26: "cp1250", 34: "cp1250", 44: "cp1250", 66: "cp1250", 99: "cp1250",
	28: "gbk", 87: "gbk",
	30: "latin5", 78: "latin5",
	33: "utf8mb3", 76: "utf8mb3", 83: "utf8mb3",
	35: "ucs2", 90: "ucs2",
	45: "utf8mb4", 46: "utf8mb4",
	14: "cp1251", 23: "cp1251", 50: "cp1251", 51: "cp1251", 52: "cp1251",
	54: "utf16", 55: "utf16",
	56: "utf16le", 62: "utf16le",
	60: "utf32", 61: "utf32",
	63: "binary",
}

// charsetForCollation returns the charset name of a collation id, or ""
// if it is not known.
func charsetForCollation(id uint64) string {
	if cs, ok := collations[id]; ok {
		return cs
	}
	switch {
	case id >= 101 && id <= 124:
		return "utf16"
	case id >= 128 && id <= 151:
		return "ucs2"
	case id >= 160 && id <= 183:
		return "utf32"
	case id >= 192 && id <= 215:
		return "utf8mb3"
	case id >= 224 && id <= 247:
		return "utf8mb4"
	case id >= 248 && id <= 250:
		return "gb18030"
	case id >= 255 && id <= 323:
		return "utf8mb4"
	}
	return ""
}

var charsetEncodings = map[string]encoding.Encoding{
	// MySQL's latin1 is the same as the Windows cp1252 character set.
	"latin1":  charmap.Windows1252,
	"latin2":  charmap.ISO8859_2,
	"latin5":  charmap.ISO8859_9,
	"greek":   charmap.ISO8859_7,
	"koi8r":   charmap.KOI8R,
	"cp850":   charmap.CodePage850,
	"cp1250":  charmap.Windows1250,
	"cp1251":  charmap.Windows1251,
	"ucs2":    unicode.UTF16(unicode.BigEndian, unicode.IgnoreBOM),
	"utf16":   unicode.UTF16(unicode.BigEndian, unicode.IgnoreBOM),
	"utf16le": unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM),
	"utf32":   utf32.UTF32(utf32.BigEndian, utf32.IgnoreBOM),
	"gb2312":  simplifiedchinese.GBK,
	"gbk":     simplifiedchinese.GBK,
	"gb18030": simplifiedchinese.GB18030,
	"big5":    traditionalchinese.Big5,
	"sjis":    japanese.ShiftJIS,
	"ujis":    japanese.EUCJP,
	"euckr":   korean.EUCKR,
}

// DecodeText converts b from the named MySQL charset to UTF-8.
func DecodeText(charset string, b []byte) (string, error) {
	switch charset {
	case "utf8", "utf8mb3", "utf8mb4", "ascii":
		return string(b), nil
	case "binary":
		return "", ErrBinaryColumn.New(charset)
	}
	enc, ok := charsetEncodings[charset]
	if !ok {
		return "", ErrUnsupportedCharset.New(charset)
	}
	return enc.NewDecoder().String(string(b))
}

// Text returns a string value of this column as UTF-8. A column with
// unknown charset is returned as is if it is valid UTF-8.
func (c *Column) Text(v Value) (string, error) {
	b, ok := v.(Bytes)
	if !ok {
		kind := "NULL"
		if v != nil {
			kind = v.Kind().String()
		}
		return "", ErrNotText.New(kind)
	}
	switch c.Charset {
	case "":
		if !utf8.Valid(b.Val) {
			return "", ErrUnsupportedCharset.New(c.Charset)
		}
		return string(b.Val), nil
	case "binary":
		return "", ErrBinaryColumn.New(c.Name)
	}
	return DecodeText(c.Charset, b.Val)
}
