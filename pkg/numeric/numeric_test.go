package numeric

import (
	"encoding/json"
	"math/rand"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBigIntJSON(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "quoted decimal", in: `"20000000000000000000"`, want: "20000000000000000000"},
		{name: "bare number", in: `42`, want: "42"},
		{name: "quoted hex", in: `"0x10"`, want: "16"},
		{name: "null", in: `null`, want: "0"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var b BigInt
			require.NoError(t, json.Unmarshal([]byte(tt.in), &b))
			assert.Equal(t, tt.want, b.String())
		})
	}

	out, err := json.Marshal(struct {
		V BigInt `json:"v"`
	}{V: MustBigInt("123456789012345678901234567890")})
	require.NoError(t, err)
	assert.JSONEq(t, `{"v":"123456789012345678901234567890"}`, string(out))
}

func TestBigIntRejectsGarbage(t *testing.T) {
	var b BigInt
	assert.Error(t, json.Unmarshal([]byte(`"12abc"`), &b))
	assert.Error(t, json.Unmarshal([]byte(`true`), &b))
	_, err := ParseBigInt("")
	assert.Error(t, err)
}

func TestBigIntImmutable(t *testing.T) {
	a := NewBigInt(5)
	b := a.Add(NewBigInt(3))
	assert.Equal(t, "5", a.String())
	assert.Equal(t, "8", b.String())
	assert.True(t, BigInt{}.IsZero())
	assert.Equal(t, "0", NewBigInt(7).DivUint64(0).String())
}

func TestToEther(t *testing.T) {
	assert.True(t, decimal.NewFromInt(20).Equal(ToEther(MustBigInt("20000000000000000000"))))
	assert.Equal(t, "0.000000000000000001", ToEther(NewBigInt(1)).String())
	assert.True(t, ToEther(BigInt{}).IsZero())
}

func TestRatio(t *testing.T) {
	assert.True(t, Ratio(0, 0).IsZero())
	assert.True(t, Ratio(1, 1).Equal(decimal.NewFromInt(1)))
	assert.Equal(t, "0.333333333333333333", Ratio(1, 3).String())
	assert.Equal(t, "0.666666666666666667", Ratio(2, 3).String())
	assert.True(t, Percent(1, 4).Equal(decimal.NewFromInt(25)))
}

func TestSplitRevenue(t *testing.T) {
	fee, creator := SplitRevenue(NewBigInt(20), 10)
	assert.Equal(t, "2", fee.String())
	assert.Equal(t, "18", creator.String())

	fee, creator = SplitRevenue(NewBigInt(7), 150)
	assert.Equal(t, "7", fee.String())
	assert.True(t, creator.IsZero())
}

func TestSplitRevenueSumsToAmount(t *testing.T) {
	rng := rand.New(rand.NewSource(67))
	for i := 0; i < 2000; i++ {
		amount := NewBigIntFromUint64(rng.Uint64()).MulUint64(uint64(rng.Intn(1_000_000) + 1))
		percent := uint64(rng.Intn(101))

		fee, creator := SplitRevenue(amount, percent)

		require.Zero(t, fee.Add(creator).Cmp(amount), "amount=%s percent=%d", amount, percent)
		require.True(t, fee.Sign() >= 0 && creator.Sign() >= 0)
		require.True(t, ToEther(fee).Add(ToEther(creator)).Equal(ToEther(amount)))
	}
}
