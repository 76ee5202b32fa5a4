package protocol

import "fmt"

// Status is the two-byte status word trailing every device response.
type Status uint16

// Generic statuses shared by every application on the secure element.
const (
	StatusU2FUnknown              Status = 0x0001
	StatusU2FBadRequest           Status = 0x0002
	StatusU2FConfigUnsupported    Status = 0x0003
	StatusU2FDeviceIneligible     Status = 0x0004
	StatusU2FTimeout              Status = 0x0005
	StatusTimeout                 Status = 0x000e
	StatusGpAuthFailed            Status = 0x6300
	StatusPinRemainingAttempts    Status = 0x63c0
	StatusExecutionError          Status = 0x6400
	StatusWrongLength             Status = 0x6700
	StatusEmptyBuffer             Status = 0x6982
	StatusOutputBufferTooSmall    Status = 0x6983
	StatusDataIsInvalid           Status = 0x6984
	StatusConditionsNotSatisfied  Status = 0x6985
	StatusTransactionRejected     Status = 0x6986
	StatusBadKeyHandle            Status = 0x6a80
	StatusInvalidP1P2             Status = 0x6b00
	StatusInstructionNotSupported Status = 0x6d00
	StatusAppDoesNotSeemToBeOpen  Status = 0x6e00
	StatusUnknownError            Status = 0x6f00
	StatusSignVerifyError         Status = 0x6f01
	StatusDeviceLocked            Status = 0x5515
	StatusOK                      Status = 0x9000
	StatusDeviceBusy              Status = 0x9001
	StatusErrorDerivingKeys       Status = 0x6802
)

// Application statuses in the vendor range.
const (
	StatusAddrDisplayFail         Status = 0xb002
	StatusTxWrongLength           Status = 0xb004
	StatusTxParsingFail           Status = 0xb005
	StatusTxSignFail              Status = 0xb008
	StatusKeyDeriveFail           Status = 0xb009
	StatusVersionParsingFail      Status = 0xb00a
	StatusDkgRound2Fail           Status = 0xb00b
	StatusDkgRound3Fail           Status = 0xb00c
	StatusInvalidKeyType          Status = 0xb00d
	StatusInvalidIdentity         Status = 0xb00e
	StatusInvalidPayload          Status = 0xb00f
	StatusBufferOutOfBounds       Status = 0xb010
	StatusInvalidSigningPackage   Status = 0xb011
	StatusInvalidRandomizer       Status = 0xb012
	StatusInvalidSigningNonces    Status = 0xb013
	StatusInvalidIdentityIndex    Status = 0xb014
	StatusInvalidKeyPackage       Status = 0xb015
	StatusInvalidPublicPackage    Status = 0xb016
	StatusInvalidGroupSecretKey   Status = 0xb017
	StatusInvalidScalar           Status = 0xb018
	StatusDecryptionFail          Status = 0xb019
	StatusEncryptionFail          Status = 0xb020
	StatusInvalidNVMWrite         Status = 0xb021
	StatusInvalidDkgStatus        Status = 0xb022
	StatusInvalidDkgKeysVersion   Status = 0xb023
	StatusTooManyParticipants     Status = 0xb024
	StatusInvalidTxHash           Status = 0xb025
	StatusInvalidToken            Status = 0xb026
	StatusExpertModeMustBeEnabled Status = 0xb027
)

// UnknownDescription is returned for any status outside the table.
const UnknownDescription = "Unknown device error"

var descriptions = map[Status]string{
	StatusU2FUnknown:              "U2F: Unknown",
	StatusU2FBadRequest:           "U2F: Bad request",
	StatusU2FConfigUnsupported:    "U2F: Configuration unsupported",
	StatusU2FDeviceIneligible:     "U2F: Device Ineligible",
	StatusU2FTimeout:              "U2F: Timeout",
	StatusTimeout:                 "Timeout",
	StatusGpAuthFailed:            "GP Authentication Failed",
	StatusPinRemainingAttempts:    "PIN remaining attempts",
	StatusExecutionError:          "Execution Error",
	StatusWrongLength:             "Wrong Length",
	StatusEmptyBuffer:             "Empty Buffer",
	StatusOutputBufferTooSmall:    "Output buffer too small",
	StatusDataIsInvalid:           "Data is invalid",
	StatusConditionsNotSatisfied:  "Conditions not satisfied",
	StatusTransactionRejected:     "Transaction rejected",
	StatusBadKeyHandle:            "Bad key handle",
	StatusInvalidP1P2:             "Invalid P1/P2",
	StatusInstructionNotSupported: "Instruction not supported",
	StatusAppDoesNotSeemToBeOpen:  "App does not seem to be open",
	StatusUnknownError:            "Unknown error",
	StatusSignVerifyError:         "Sign/verify error",
	StatusDeviceLocked:            "Device is locked",
	StatusOK:                      "No errors",
	StatusDeviceBusy:              "Device is busy",
	StatusErrorDerivingKeys:       "Error deriving keys",

	StatusAddrDisplayFail:         "Invalid address",
	StatusTxWrongLength:           "Tx too long",
	StatusTxParsingFail:           "Tx parsing failed",
	StatusTxSignFail:              "Tx signing failed",
	StatusKeyDeriveFail:           "Invalid signing key",
	StatusVersionParsingFail:      "Invalid tx version",
	StatusDkgRound2Fail:           "Round 2 has failed",
	StatusDkgRound3Fail:           "Round 3 has failed",
	StatusInvalidKeyType:          "Invalid key type",
	StatusInvalidIdentity:         "Invalid identity",
	StatusInvalidPayload:          "Invalid payload",
	StatusBufferOutOfBounds:       "Buffer out of bounds",
	StatusInvalidSigningPackage:   "Invalid signing package",
	StatusInvalidRandomizer:       "Invalid tx randomizer",
	StatusInvalidSigningNonces:    "Invalid signing nonces",
	StatusInvalidIdentityIndex:    "Invalid identity index",
	StatusInvalidKeyPackage:       "Invalid key package",
	StatusInvalidPublicPackage:    "Invalid public package",
	StatusInvalidGroupSecretKey:   "Invalid group secret key",
	StatusInvalidScalar:           "Invalid scalar",
	StatusDecryptionFail:          "Keys decryption failed",
	StatusEncryptionFail:          "Keys encryption failed",
	StatusInvalidNVMWrite:         "Invalid flash write",
	StatusInvalidDkgStatus:        "Invalid dkg process status",
	StatusInvalidDkgKeysVersion:   "Invalid keys version",
	StatusTooManyParticipants:     "Too many participants for DKG",
	StatusInvalidTxHash:           "Invalid tx hash",
	StatusInvalidToken:            "Invalid asset",
	StatusExpertModeMustBeEnabled: "Expert mode is required",
}

// Description maps a status to its short human-readable form.
func Description(s Status) string {
	if d, ok := descriptions[s]; ok {
		return d
	}
	return UnknownDescription
}

// Known reports whether s is in the status table.
func (s Status) Known() bool {
	_, ok := descriptions[s]
	return ok
}

func (s Status) String() string {
	return fmt.Sprintf("0x%04x (%s)", uint16(s), Description(s))
}

// carriesDiagnostic marks the statuses whose response body is ASCII text
// describing what was wrong with the submitted payload.
func (s Status) carriesDiagnostic() bool {
	switch s {
	case StatusDataIsInvalid, StatusBadKeyHandle, StatusSignVerifyError:
		return true
	default:
		return false
	}
}
