package numeric

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math/big"
	"strings"
)

// BigInt is an immutable arbitrary-precision integer. The zero value is 0.
// It marshals to JSON as a base-10 string so values above 2^53 survive clients.
type BigInt struct {
	v *big.Int
}

// NewBigInt returns a BigInt holding n.
func NewBigInt(n int64) BigInt {
	return BigInt{v: big.NewInt(n)}
}

// NewBigIntFromUint64 returns a BigInt holding n.
func NewBigIntFromUint64(n uint64) BigInt {
	return BigInt{v: new(big.Int).SetUint64(n)}
}

// ParseBigInt parses a base-10 or 0x-prefixed hex integer.
func ParseBigInt(s string) (BigInt, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return BigInt{}, fmt.Errorf("empty integer")
	}
	v, ok := new(big.Int).SetString(s, 0)
	if !ok {
		return BigInt{}, fmt.Errorf("invalid integer %q", s)
	}
	return BigInt{v: v}, nil
}

// MustBigInt is ParseBigInt for constants and tests.
func MustBigInt(s string) BigInt {
	b, err := ParseBigInt(s)
	if err != nil {
		panic(err)
	}
	return b
}

func (b BigInt) int() *big.Int {
	if b.v == nil {
		return new(big.Int)
	}
	return b.v
}

// Big returns a copy of the underlying value.
func (b BigInt) Big() *big.Int {
	return new(big.Int).Set(b.int())
}

func (b BigInt) Add(o BigInt) BigInt {
	return BigInt{v: new(big.Int).Add(b.int(), o.int())}
}

func (b BigInt) Sub(o BigInt) BigInt {
	return BigInt{v: new(big.Int).Sub(b.int(), o.int())}
}

func (b BigInt) MulUint64(n uint64) BigInt {
	return BigInt{v: new(big.Int).Mul(b.int(), new(big.Int).SetUint64(n))}
}

// DivUint64 truncates toward zero. Division by zero yields 0.
func (b BigInt) DivUint64(n uint64) BigInt {
	if n == 0 {
		return BigInt{}
	}
	return BigInt{v: new(big.Int).Quo(b.int(), new(big.Int).SetUint64(n))}
}

func (b BigInt) Cmp(o BigInt) int {
	return b.int().Cmp(o.int())
}

func (b BigInt) Sign() int {
	return b.int().Sign()
}

func (b BigInt) IsZero() bool {
	return b.Sign() == 0
}

func (b BigInt) String() string {
	return b.int().String()
}

// MarshalJSON implements json.Marshaler.
func (b BigInt) MarshalJSON() ([]byte, error) {
	return json.Marshal(b.String())
}

// UnmarshalJSON accepts a quoted decimal/hex string or a bare JSON number.
func (b *BigInt) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*b = BigInt{}
		return nil
	}
	s := string(data)
	if len(data) > 0 && data[0] == '"' {
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
	}
	v, err := ParseBigInt(s)
	if err != nil {
		return err
	}
	*b = v
	return nil
}
