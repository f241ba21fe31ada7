package binlog

import (
	"math/big"

	"github.com/shopspring/decimal"
)

// NEWDECIMAL stores digits in groups of nine, each group a big-endian
// integer of four bytes. Leading and trailing partial groups use the
// minimal number of bytes for their digit count.
//
// https://dev.mysql.com/doc/refman/8.0/en/precision-math-decimal-characteristics.html

const digitsPerGroup = 9

var dig2bytes = [digitsPerGroup + 1]int{0, 1, 1, 2, 2, 3, 3, 4, 4, 4}

var pow10 = [digitsPerGroup + 1]uint64{1, 10, 100, 1000, 10000, 100000, 1000000, 10000000, 100000000, 1000000000}

func decimalSize(precision, scale int) int {
	intg := precision - scale
	return intg/digitsPerGroup*4 + dig2bytes[intg%digitsPerGroup] +
		scale/digitsPerGroup*4 + dig2bytes[scale%digitsPerGroup]
}

func decodeDecimal(r *reader, precision, scale int) (Decimal, error) {
	if precision <= 0 || precision > 65 || scale < 0 || scale > 30 || scale > precision {
		return Decimal{}, r.fail("invalid decimal(%d,%d)", precision, scale)
	}
	b := r.bytesInternal(decimalSize(precision, scale))
	if r.err != nil {
		return Decimal{}, r.err
	}
	buf := append([]byte{}, b...)
	neg := buf[0]&0x80 == 0
	buf[0] ^= 0x80
	if neg {
		for i := range buf {
			buf[i] ^= 0xff
		}
	}

	coeff := new(big.Int)
	digit := new(big.Int)
	group := func(digits int) error {
		n := dig2bytes[digits]
		var v uint64
		for _, c := range buf[:n] {
			v = v<<8 | uint64(c)
		}
		buf = buf[n:]
		if v >= pow10[digits] {
			return r.fail("decimal group %d exceeds %d digits", v, digits)
		}
		coeff.Mul(coeff, digit.SetUint64(pow10[digits]))
		coeff.Add(coeff, digit.SetUint64(v))
		return nil
	}

	intg := precision - scale
	counts := make([]int, 0, precision/digitsPerGroup+2)
	if lead := intg % digitsPerGroup; lead > 0 {
		counts = append(counts, lead)
	}
	for i := 0; i < intg/digitsPerGroup; i++ {
		counts = append(counts, digitsPerGroup)
	}
	for i := 0; i < scale/digitsPerGroup; i++ {
		counts = append(counts, digitsPerGroup)
	}
	if trail := scale % digitsPerGroup; trail > 0 {
		counts = append(counts, trail)
	}
	for _, digits := range counts {
		if err := group(digits); err != nil {
			return Decimal{}, err
		}
	}
	if neg {
		coeff.Neg(coeff)
	}
	return Decimal{Val: decimal.NewFromBigInt(coeff, -int32(scale)), Scale: int32(scale)}, nil
}
