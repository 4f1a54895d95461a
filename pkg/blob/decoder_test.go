package blob

import (
	"errors"
	"testing"
	"time"

	"github.com/canopy-network/course-indexer/pkg/numeric"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testTxHash  = "0x00000000000000000000000000000000000000000000000000000000000000AA"
	testStudent = "0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed"
)

func envelope(kind Kind, payload string) []byte {
	return []byte(`{
		"kind": "` + string(kind) + `",
		"blockNumber": 12,
		"blockTimestamp": 1700000000,
		"transactionHash": "` + testTxHash + `",
		"transactionIndex": 3,
		"logIndex": 5,
		"payload": ` + payload + `
	}`)
}

func TestDecodeLicenseMinted(t *testing.T) {
	ev, err := Decode(envelope(KindLicenseMinted, `{
		"courseId": 7, "student": "`+testStudent+`", "tokenId": 7,
		"durationMonths": 1, "expiryTimestamp": 1702592000, "pricePaid": "20000000000000000000"
	}`))
	require.NoError(t, err)

	assert.Equal(t, "0x00000000000000000000000000000000000000000000000000000000000000aa-5", ev.ID)
	assert.Equal(t, ContractCourseLicense, ev.Contract)
	assert.Equal(t, uint64(12), ev.Position.BlockNumber)
	assert.Equal(t, uint32(3), ev.Position.TransactionIndex)
	assert.Equal(t, time.Unix(1700000000, 0).UTC(), ev.Timestamp)
	assert.False(t, ev.Ignored())

	p, ok := ev.Payload.(*LicenseMinted)
	require.True(t, ok)
	assert.Equal(t, "0x5aaeb6053f3e94c9b9a09f33669435e7ef1beaed", p.Student)
	assert.Equal(t, "20000000000000000000", p.PricePaid.String())
}

func TestDecodeMalformed(t *testing.T) {
	tests := []struct {
		name string
		data []byte
	}{
		{name: "not json", data: []byte(`{`)},
		{name: "unknown envelope field", data: []byte(`{"kind":"CourseDeleted","extra":1}`)},
		{name: "bad tx hash", data: []byte(`{"kind":"CourseDeleted","transactionHash":"0x12","payload":{}}`)},
		{name: "missing payload field", data: envelope(KindCourseDeleted, `{"courseId": 1}`)},
		{name: "extra payload field", data: envelope(KindCourseDeleted, `{"courseId": 1, "creator": "`+testStudent+`", "bonus": true}`)},
		{name: "wrong type", data: envelope(KindCourseDeleted, `{"courseId": "one", "creator": "`+testStudent+`"}`)},
		{name: "null field", data: envelope(KindCourseDeleted, `{"courseId": null, "creator": "`+testStudent+`"}`)},
		{name: "bad address", data: envelope(KindCourseDeleted, `{"courseId": 1, "creator": "0x1234"}`)},
		{name: "rating out of range", data: envelope(KindCourseRated, `{"courseId": 1, "user": "`+testStudent+`", "rating": 6}`)},
		{name: "fee above 100", data: envelope(KindPlatformFeeUpdated, `{"previousPercent": 2, "newPercent": 101}`)},
		{name: "negative price", data: envelope(KindLicenseRenewed, `{"courseId": 1, "student": "`+testStudent+`", "tokenId": 1, "durationMonths": 1, "expiryTimestamp": 5, "pricePaid": "-1"}`)},
		{name: "payload array", data: envelope(KindCourseDeleted, `[]`)},
		{name: "wrong contract", data: []byte(`{"kind":"CourseDeleted","contract":"CourseLicense","transactionHash":"` + testTxHash + `","payload":{"courseId":1,"creator":"` + testStudent + `"}}`)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode(tt.data)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrMalformedEvent), "got %v", err)
		})
	}
}

func TestDecodeUnknownAndIgnored(t *testing.T) {
	_, err := Decode(envelope("CourseTeleported", `{}`))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnknownKind))
	assert.False(t, errors.Is(err, ErrMalformedEvent))

	ev, err := Decode(envelope("Paused", `{"account": "`+testStudent+`"}`))
	require.NoError(t, err)
	assert.True(t, ev.Ignored())
	assert.Equal(t, Kind("Paused"), ev.Payload.Kind())
}

func TestEveryKindHasAContract(t *testing.T) {
	for _, k := range Kinds() {
		c, ok := ContractOf(k)
		require.True(t, ok)
		assert.NotEmpty(t, c)
		assert.False(t, IgnoredKinds[k], "kind %s is both handled and ignored", k)
		assert.Equal(t, k, kinds[k].new().Kind())
	}
	_, ok := ContractOf("Paused")
	assert.False(t, ok)
	assert.Equal(t, "0", numeric.BigInt{}.String())
}
