package notify

import (
	"fmt"
	"strings"

	"leadscout/pkg/models"
)

// FormatLeadMessage renders the message for a qualified post
func FormatLeadMessage(item models.ContentItem) string {
	return "🎯 New Lead Found!\n\n" +
		fmt.Sprintf("👤 Username: %s\n", item.AuthorName) +
		fmt.Sprintf("🔗 Post URL: %s\n", item.URL)
}

// FormatUserMessage renders the message for an active user. pitch names
// the product to suggest in outreach.
func FormatUserMessage(user models.RankedUser, pitch string) string {
	if pitch == "" {
		pitch = "our product"
	}
	return "🎯 Potential Lead Found!\n\n" +
		fmt.Sprintf("👤 Username: %s\n", user.Username) +
		fmt.Sprintf("🔗 Profile: %s\n", user.ProfileURL()) +
		"📊 Activity:\n" +
		fmt.Sprintf("   • Posts: %d\n", user.Posts) +
		fmt.Sprintf("   • Comments: %d\n", user.Comments) +
		fmt.Sprintf("   • Total Actions: %d\n", user.TotalActivity) +
		fmt.Sprintf("🎯 Active in: %s\n\n", strings.Join(user.Subreddits, ", ")) +
		fmt.Sprintf("💡 Consider reaching out manually about %s!", pitch)
}

// FormatSummaryMessage renders the end-of-run report for the active users job
func FormatSummaryMessage(users, subreddits, top int, reportPath string) string {
	return "📊 Daily Active Users Summary\n\n" +
		fmt.Sprintf("Found %d active users across %d subreddits.\n", users, subreddits) +
		fmt.Sprintf("Top %d users have been sent as individual messages.\n", top) +
		fmt.Sprintf("Full report saved to %s", reportPath)
}
