package helpers

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// Entry passes are encoded as "booking:<id>;ticket:<id>;signature:<hmac>" and
// rendered as a QR code. The signature covers booking, ticket and buyer so a
// pass cannot be replayed against another booking.

func PassData(bookingID, ticketID uuid.UUID, userEmail, secretKey string) string {
	signature := PassSignature(bookingID, ticketID, userEmail, secretKey)
	return fmt.Sprintf("booking:%s;ticket:%s;signature:%s",
		bookingID.String(), ticketID.String(), signature)
}

func PassSignature(bookingID, ticketID uuid.UUID, userEmail, secretKey string) string {
	data := fmt.Sprintf("%s:%s:%s", bookingID.String(), ticketID.String(), userEmail)
	h := hmac.New(sha256.New, []byte(secretKey))
	h.Write([]byte(data))
	return hex.EncodeToString(h.Sum(nil))
}

func ExtractBookingIDFromPass(passData string) (uuid.UUID, error) {
	parts := strings.Split(passData, ";")
	if len(parts) != 3 || !strings.HasPrefix(parts[0], "booking:") || !strings.HasPrefix(parts[2], "signature:") {
		return uuid.Nil, fmt.Errorf("invalid pass format")
	}
	return uuid.Parse(strings.TrimPrefix(parts[0], "booking:"))
}

func ValidatePassSignature(bookingID, ticketID uuid.UUID, userEmail, secretKey, passData string) bool {
	parts := strings.Split(passData, ";")
	if len(parts) != 3 || !strings.HasPrefix(parts[2], "signature:") {
		return false
	}

	signature := strings.TrimPrefix(parts[2], "signature:")
	expected := PassSignature(bookingID, ticketID, userEmail, secretKey)
	return hmac.Equal([]byte(expected), []byte(signature))
}
