package blob

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"
	"time"

	"github.com/canopy-network/course-indexer/pkg/ident"
	"github.com/go-playground/validator/v10"
)

var (
	// ErrMalformedEvent marks an envelope or payload that does not match its declared kind.
	ErrMalformedEvent = errors.New("malformed event")

	// ErrUnknownKind marks a kind that is neither handled nor ignore-listed.
	ErrUnknownKind = errors.New("unknown event kind")
)

type kindSpec struct {
	contract Contract
	new      func() Payload
}

var kinds = map[Kind]kindSpec{
	KindCourseCreated:              {ContractCourseFactory, func() Payload { return new(CourseCreated) }},
	KindCourseUpdated:              {ContractCourseFactory, func() Payload { return new(CourseUpdated) }},
	KindCourseDeleted:              {ContractCourseFactory, func() Payload { return new(CourseDeleted) }},
	KindCourseEmergencyDeactivated: {ContractCourseFactory, func() Payload { return new(CourseEmergencyDeactivated) }},
	KindSectionAdded:               {ContractCourseFactory, func() Payload { return new(SectionAdded) }},
	KindSectionUpdated:             {ContractCourseFactory, func() Payload { return new(SectionUpdated) }},
	KindSectionDeleted:             {ContractCourseFactory, func() Payload { return new(SectionDeleted) }},
	KindSectionMoved:               {ContractCourseFactory, func() Payload { return new(SectionMoved) }},
	KindCourseRated:                {ContractCourseFactory, func() Payload { return new(CourseRated) }},
	KindRatingUpdated:              {ContractCourseFactory, func() Payload { return new(RatingUpdated) }},
	KindRatingDeleted:              {ContractCourseFactory, func() Payload { return new(RatingDeleted) }},
	KindLicenseMinted:              {ContractCourseLicense, func() Payload { return new(LicenseMinted) }},
	KindLicenseRenewed:             {ContractCourseLicense, func() Payload { return new(LicenseRenewed) }},
	KindLicenseExpired:             {ContractCourseLicense, func() Payload { return new(LicenseExpired) }},
	KindPlatformFeeUpdated:         {ContractCourseLicense, func() Payload { return new(PlatformFeeUpdated) }},
	KindPlatformWalletUpdated:      {ContractCourseLicense, func() Payload { return new(PlatformWalletUpdated) }},
	KindBaseURIUpdated:             {ContractCourseLicense, func() Payload { return new(BaseURIUpdated) }},
	KindSectionStarted:             {ContractProgressTracker, func() Payload { return new(SectionStarted) }},
	KindSectionCompleted:           {ContractProgressTracker, func() Payload { return new(SectionCompleted) }},
	KindCourseCompleted:            {ContractProgressTracker, func() Payload { return new(CourseCompleted) }},
	KindProgressReset:              {ContractProgressTracker, func() Payload { return new(ProgressReset) }},
	KindCertificateMinted:          {ContractCertificateManager, func() Payload { return new(CertificateMinted) }},
	KindCourseAddedToCertificate:   {ContractCertificateManager, func() Payload { return new(CourseAddedToCertificate) }},
	KindCertificateUpdated:         {ContractCertificateManager, func() Payload { return new(CertificateUpdated) }},
	KindCertificateRevoked:         {ContractCertificateManager, func() Payload { return new(CertificateRevoked) }},
	KindCertificateFeeUpdated:      {ContractCertificateManager, func() Payload { return new(CertificateFeeUpdated) }},
	KindDefaultBaseRouteUpdated:    {ContractCertificateManager, func() Payload { return new(DefaultBaseRouteUpdated) }},
	KindPlatformNameUpdated:        {ContractCertificateManager, func() Payload { return new(PlatformNameUpdated) }},
}

// ContractOf returns the contract area that emits kind.
func ContractOf(kind Kind) (Contract, bool) {
	spec, ok := kinds[kind]
	return spec.contract, ok
}

// Kinds returns every handled kind.
func Kinds() []Kind {
	out := make([]Kind, 0, len(kinds))
	for k := range kinds {
		out = append(out, k)
	}
	return out
}

// NewPayload returns an empty payload of a handled kind.
func NewPayload(kind Kind) (Payload, bool) {
	spec, ok := kinds[kind]
	if !ok {
		return nil, false
	}
	return spec.new(), true
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Decode parses one wire envelope and its payload. Any deviation from the
// declared kind's schema (missing, extra or mistyped fields) is ErrMalformedEvent.
func Decode(data []byte) (*Event, error) {
	var env Envelope
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&env); err != nil {
		return nil, fmt.Errorf("%w: envelope: %v", ErrMalformedEvent, err)
	}
	return FromEnvelope(&env)
}

// FromEnvelope validates an already-parsed envelope.
func FromEnvelope(env *Envelope) (*Event, error) {
	if env.Kind == "" {
		return nil, fmt.Errorf("%w: missing kind", ErrMalformedEvent)
	}

	txHash, err := ident.NormalizeHash(env.TransactionHash)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedEvent, err)
	}

	ev := &Event{
		ID:   ident.EventID(txHash, env.LogIndex),
		Kind: env.Kind,
		Position: ident.Position{
			BlockNumber:      env.BlockNumber,
			TransactionIndex: env.TransactionIndex,
			LogIndex:         env.LogIndex,
		},
		Timestamp: time.Unix(env.BlockTimestamp, 0).UTC(),
		TxHash:    txHash,
		Contract:  env.Contract,
	}

	if env.From != "" {
		if ev.From, err = ident.NormalizeAddress(env.From); err != nil {
			return nil, fmt.Errorf("%w: event %s: from: %v", ErrMalformedEvent, ev.ID, err)
		}
	}

	if IgnoredKinds[env.Kind] {
		ev.Payload = &Ignored{Name: env.Kind, Raw: env.Payload}
		return ev, nil
	}

	spec, ok := kinds[env.Kind]
	if !ok {
		return nil, fmt.Errorf("%w: %q (event %s)", ErrUnknownKind, env.Kind, ev.ID)
	}
	if env.Contract != "" && env.Contract != spec.contract {
		return nil, fmt.Errorf("%w: event %s: kind %s is emitted by %s, not %s",
			ErrMalformedEvent, ev.ID, env.Kind, spec.contract, env.Contract)
	}
	ev.Contract = spec.contract

	p := spec.new()
	if err := decodePayload(env.Payload, p); err != nil {
		return nil, fmt.Errorf("%w: event %s (%s): %v", ErrMalformedEvent, ev.ID, env.Kind, err)
	}
	if err := validate.Struct(p); err != nil {
		return nil, fmt.Errorf("%w: event %s (%s): %v", ErrMalformedEvent, ev.ID, env.Kind, err)
	}
	if err := p.normalize(); err != nil {
		return nil, fmt.Errorf("%w: event %s (%s): %v", ErrMalformedEvent, ev.ID, env.Kind, err)
	}
	ev.Payload = p
	return ev, nil
}

// decodePayload requires every declared field to be present and non-null,
// and rejects fields the kind does not declare.
func decodePayload(raw json.RawMessage, p Payload) error {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil || fields == nil {
		return fmt.Errorf("payload is not an object")
	}
	for _, name := range fieldNames(p) {
		v, ok := fields[name]
		if !ok {
			return fmt.Errorf("missing field %q", name)
		}
		if bytes.Equal(bytes.TrimSpace(v), []byte("null")) {
			return fmt.Errorf("field %q is null", name)
		}
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	return dec.Decode(p)
}

var fieldCache sync.Map // reflect.Type -> []string

func fieldNames(p Payload) []string {
	t := reflect.TypeOf(p).Elem()
	if v, ok := fieldCache.Load(t); ok {
		return v.([]string)
	}
	names := make([]string, 0, t.NumField())
	for i := 0; i < t.NumField(); i++ {
		tag := t.Field(i).Tag.Get("json")
		name, _, _ := strings.Cut(tag, ",")
		if name == "" || name == "-" {
			continue
		}
		names = append(names, name)
	}
	fieldCache.Store(t, names)
	return names
}
