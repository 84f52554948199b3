package payment

import (
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/spacehub/rental-api/internal/domain"
)

// intentKey identifies an intent by who pays for which slot of which listing, so a retried
// request reuses the intent the processor already created. Update intents also carry the booking.
// Metadata without that identity falls back to a random key.
func intentKey(metadata map[string]string) string {
	user, listing := metadata[domain.MetaUserID], metadata[domain.MetaListingID]
	start := slotEdge(metadata[domain.MetaStartDate], metadata[domain.MetaStartTime])
	end := slotEdge(metadata[domain.MetaEndDate], metadata[domain.MetaEndTime])

	if user == "" || listing == "" || start == "" || end == "" {
		return "intent-" + uuid.NewString()
	}

	key := strings.Join([]string{"intent", user, listing, start, end}, "-")
	if booking := metadata[domain.MetaBookingID]; booking != "" {
		key += "-booking" + booking
	}

	return key
}

// refundKey identifies a refund by booking, original payment and amount in minor units.
func refundKey(metadata map[string]string, minor int64) string {
	booking, payment := metadata[domain.MetaBookingID], metadata[domain.MetaOriginalPaymentID]
	if booking == "" || payment == "" {
		return "refund-" + uuid.NewString()
	}

	return strings.Join([]string{"refund", booking, payment, strconv.FormatInt(minor, 10)}, "-")
}

func slotEdge(date, clock string) string {
	if clock == "" {
		return date
	}
	return date + "T" + clock
}
