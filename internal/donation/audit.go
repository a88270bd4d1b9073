package donation

import (
	"encoding/json"
	"strconv"

	"github.com/kodpazar/backend-api/internal/ledger"
	"github.com/kodpazar/backend-api/internal/repo"
)

func donationEntityID(id int64) string {
	return strconv.FormatInt(id, 10)
}

func auditDetail(d repo.ProjectDonation, split ledger.DonationSplit) []byte {
	detail, err := json.Marshal(map[string]any{
		"amount":         d.Amount,
		"platform_share": split.Platform,
		"owner_share":    split.Owner,
		"method":         d.PaymentMethod,
	})
	if err != nil {
		return []byte(`{}`)
	}
	return detail
}
