package models

import "strings"

// AccessState is the closed set of outcomes of a permission audit.
type AccessState int

const (
	// AccessUnchecked means no audit has been recorded yet.
	AccessUnchecked AccessState = iota
	AccessOK
	AccessFixed
	AccessError
	AccessAPIError
)

// ErrorKindIncompatibleDomain marks a grant the storage provider refuses
// for the identity's domain. It needs external remediation.
const ErrorKindIncompatibleDomain = "incompatible domain"

const (
	accessOKText       = "OK"
	accessFixedText    = "Fixed(Added Member)"
	accessErrorPrefix  = "Error: "
	accessAPIErrorText = "API Access Error"
)

// AccessStatus is the persisted result of the Permission Auditor.
// Kind is only meaningful for AccessError.
type AccessStatus struct {
	State AccessState
	Kind  string
}

func StatusOK() AccessStatus       { return AccessStatus{State: AccessOK} }
func StatusFixed() AccessStatus    { return AccessStatus{State: AccessFixed} }
func StatusAPIError() AccessStatus { return AccessStatus{State: AccessAPIError} }

func StatusError(kind string) AccessStatus {
	return AccessStatus{State: AccessError, Kind: kind}
}

// NeedsRepair reports whether the status puts an entry in the repair tier.
func (s AccessStatus) NeedsRepair() bool {
	switch s.State {
	case AccessUnchecked, AccessError, AccessAPIError:
		return true
	default:
		return false
	}
}

func (s AccessStatus) String() string {
	switch s.State {
	case AccessOK:
		return accessOKText
	case AccessFixed:
		return accessFixedText
	case AccessError:
		return accessErrorPrefix + s.Kind
	case AccessAPIError:
		return accessAPIErrorText
	default:
		return ""
	}
}

// ParseAccessStatus is the inverse of String. Unrecognised non-empty text
// is kept as an error kind so it still sorts into the repair tier.
func ParseAccessStatus(raw string) AccessStatus {
	raw = strings.TrimSpace(raw)
	switch {
	case raw == "":
		return AccessStatus{}
	case raw == accessOKText:
		return StatusOK()
	case raw == accessFixedText:
		return StatusFixed()
	case raw == accessAPIErrorText:
		return StatusAPIError()
	case strings.HasPrefix(raw, accessErrorPrefix):
		return StatusError(strings.TrimPrefix(raw, accessErrorPrefix))
	default:
		return StatusError(raw)
	}
}
