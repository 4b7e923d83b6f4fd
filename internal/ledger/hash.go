package ledger

import (
	"crypto/sha256"
	"encoding/hex"
	"strconv"
)

// Domain prefixes for content-addressed identity and signatures.
// Version suffix enables future algorithm migration.
const (
	DomainTransaction = "tradefin/transaction/v1"
	DomainEndorsement = "tradefin/endorsement/v1"
	DomainAdmission   = "tradefin/admission/v1"
)

// hashWithDomain computes SHA-256 with domain separation.
// Format: SHA256(domain + 0x00 + data)
// The null byte separator prevents domain/data boundary ambiguity.
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// EndorsementMessage is the byte string an endorser signs.
func EndorsementMessage(txID string) []byte {
	return []byte(hashWithDomain(DomainEndorsement, []byte(txID)))
}

// AdmissionMessage is the byte string the ordering authority signs.
func AdmissionMessage(txID string, seq int64) []byte {
	return []byte(hashWithDomain(DomainAdmission, []byte(txID+"\x00"+strconv.FormatInt(seq, 10))))
}
