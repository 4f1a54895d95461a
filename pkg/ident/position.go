package ident

import "fmt"

// Position orders events exactly as the source chain does.
type Position struct {
	BlockNumber      uint64 `json:"blockNumber"`
	TransactionIndex uint32 `json:"transactionIndex"`
	LogIndex         uint32 `json:"logIndex"`
}

// Compare returns -1, 0 or +1.
func (p Position) Compare(o Position) int {
	switch {
	case p.BlockNumber != o.BlockNumber:
		return cmp(p.BlockNumber, o.BlockNumber)
	case p.TransactionIndex != o.TransactionIndex:
		return cmp(uint64(p.TransactionIndex), uint64(o.TransactionIndex))
	default:
		return cmp(uint64(p.LogIndex), uint64(o.LogIndex))
	}
}

// After reports whether p comes strictly after o.
func (p Position) After(o Position) bool {
	return p.Compare(o) > 0
}

func (p Position) String() string {
	return fmt.Sprintf("%d:%d:%d", p.BlockNumber, p.TransactionIndex, p.LogIndex)
}

func cmp(a, b uint64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}
