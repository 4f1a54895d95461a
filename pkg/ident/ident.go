// Package ident builds the deterministic identifiers of the entity graph.
// Every id is a pure function of event coordinates or domain keys, so replaying
// the same event log always addresses the same rows.
package ident

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

// Singleton ids for the aggregate rows.
const (
	NetworkStatsID  = "network"
	PlatformStatsID = "platform"
)

// NormalizeAddress validates a 20-byte hex address and returns it lower-cased.
func NormalizeAddress(s string) (string, error) {
	if !common.IsHexAddress(s) {
		return "", fmt.Errorf("invalid address %q", s)
	}
	return strings.ToLower(common.HexToAddress(s).Hex()), nil
}

// NormalizeHash validates a 0x-prefixed 32-byte hash and returns it lower-cased.
func NormalizeHash(s string) (string, error) {
	b, err := hexutil.Decode(s)
	if err != nil {
		return "", fmt.Errorf("invalid hash %q: %w", s, err)
	}
	if len(b) != common.HashLength {
		return "", fmt.Errorf("invalid hash %q: want %d bytes, got %d", s, common.HashLength, len(b))
	}
	return common.BytesToHash(b).Hex(), nil
}

// EventID is the canonical per-event identifier: "{txHash}-{logIndex}".
func EventID(txHash string, logIndex uint32) string {
	return txHash + "-" + strconv.FormatUint(uint64(logIndex), 10)
}

// ParseEventID splits an id produced by EventID.
func ParseEventID(id string) (txHash string, logIndex uint32, err error) {
	i := strings.LastIndexByte(id, '-')
	if i <= 0 {
		return "", 0, errors.New("invalid event ID format: expected txHash-logIndex")
	}
	n, err := strconv.ParseUint(id[i+1:], 10, 32)
	if err != nil {
		return "", 0, fmt.Errorf("invalid log index: %w", err)
	}
	return id[:i], uint32(n), nil
}

// CourseID formats an on-chain course id.
func CourseID(courseID uint64) string {
	return strconv.FormatUint(courseID, 10)
}

// TokenID formats an on-chain token id.
func TokenID(tokenID uint64) string {
	return strconv.FormatUint(tokenID, 10)
}

// SectionID is "{courseId}-{sectionId}".
func SectionID(courseID, sectionID uint64) string {
	return CourseID(courseID) + "-" + strconv.FormatUint(sectionID, 10)
}

// EnrollmentID is "{student}-{courseId}".
func EnrollmentID(student string, courseID uint64) string {
	return student + "-" + CourseID(courseID)
}

// SectionCompletionID is "{enrollmentId}-{sectionId}".
func SectionCompletionID(enrollmentID string, sectionID uint64) string {
	return enrollmentID + "-" + strconv.FormatUint(sectionID, 10)
}

// CertificateCourseID is "{certificateId}-{courseId}".
func CertificateCourseID(certificateID string, courseID uint64) string {
	return certificateID + "-" + CourseID(courseID)
}

// RatingID is "{courseId}-{user}".
func RatingID(courseID uint64, user string) string {
	return CourseID(courseID) + "-" + user
}

// DayID keys DailyNetworkStats by UTC calendar day.
func DayID(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}

// MonthKey keys the rolling monthly counters of a profile.
func MonthKey(t time.Time) string {
	return t.UTC().Format("2006-01")
}
