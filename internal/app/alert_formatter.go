package app

import (
	"fmt"
	"html"

	"license_notification_bot/internal/domain/license"
)

// RenderAlert builds the chat message for one expiring license. The result is
// Telegram HTML; source values are escaped so they never form markup.
func RenderAlert(rec license.Record, daysLeft int) string {
	return fmt.Sprintf("🔔 <b>License Expiring Alert</b>\n"+
		"🏦 Bank: <b>%s</b>\n"+
		"🔐 License: <b>%s</b>\n"+
		"📅 Expired: %s (H-%d)\n"+
		"🕓 Last Renewed: %s",
		orDefault(rec.BankName, "Unknown"),
		orDefault(rec.LicenseID, "Unknown"),
		orDefault(rec.ExpiredDate, "N/A"),
		daysLeft,
		orDefault(rec.LastRenewedDate, "N/A"),
	)
}

func orDefault(value, fallback string) string {
	if value == "" {
		return fallback
	}
	return html.EscapeString(value)
}
