package service

import (
	"fmt"
	"strings"

	"github.com/oalbalushi/tendering-system/internal/model"
)

// Тексты исходящих WhatsApp-сообщений. Разметка со звёздочками — жирный шрифт WhatsApp.

const msgAccessDenied = "❌ Access denied. Admin privileges required."

const msgAdminError = "❌ Error processing admin command."

const msgTextError = "❌ Sorry, there was an error processing your message. Please try again."

const msgVoiceError = "❌ Sorry, there was an error processing your voice message. Please try again."

const msgNoTenders = "📋 No tenders found."

const msgNoBids = "📋 No bids found."

const msgBidOrTenderNotFound = "❌ Bid or tender not found."

const msgTextHelp = `💬 *How to submit a bid*

Reply with your price and delivery time, for example:
• "25 OMR, ready in 2 days"
• "30 OMR, available next week"
• "20 OMR, can deliver tomorrow"

You can also send a voice message with your bid details.`

const msgVoiceHelp = `🎤 *Voice Message Received*

We couldn't extract bid information from your voice message. Please try again with:
• Clear price (e.g., "25 OMR")
• Delivery time (e.g., "2 days", "next week")
• Or send a text message instead`

const msgAdminHelp = `📋 *Admin Commands*

/newtender [details] - Create new tender
/listtenders - List all tenders
/listbids [tender_id] - List bids for tender
/winner [tender_id] [bid_id] - Mark bid as winner

Example: /newtender "100 A4 Paper Packs" "Stationery" "100" "packs" "2026-06-25"`

func msgInvalidFormat(usage string) string {
	return "❌ Invalid format. Use: " + usage
}

const dateLayout = "2006-01-02"

func tenderAlertMessage(t *model.Tender) string {
	return fmt.Sprintf(`🚨 *New Tender Alert* 🚨

📌 *Item*: %d %s %s
💰 *Category*: %s
⏳ *Tender closing date*: %s
📝 *Description*: %s

💬 *Reply with your price & availability (text/voice)*

Tender ID: %s`,
		t.Quantity, t.Unit, t.Title, t.Category, t.ClosingDate.Format(dateLayout), t.Description, t.TenderID)
}

func tenderCreatedMessage(t *model.Tender) string {
	return fmt.Sprintf(`✅ *Tender Created*

📋 *ID*: %s
📌 *Title*: %s
💰 *Category*: %s
📊 *Quantity*: %d %s
⏳ *Closing*: %s

Tender alert sent to all suppliers.`,
		t.TenderID, t.Title, t.Category, t.Quantity, t.Unit, t.ClosingDate.Format(dateLayout))
}

func bidConfirmationMessage(b *model.Bid, t *model.Tender) string {
	return fmt.Sprintf(`✅ *Bid Received*

💰 *Price*: %s
⏰ *Delivery*: %s
📋 *Tender*: %s

We'll review your bid and get back to you soon.

Tender ID: %s`,
		formatPrice(b), orNotSpecified(b.DeliveryTime), t.Title, t.TenderID)
}

func voiceBidConfirmationMessage(b *model.Bid, t *model.Tender) string {
	return fmt.Sprintf(`✅ *Voice Bid Received*

🎤 *Transcribed*: "%s"
💰 *Price*: %s
⏰ *Delivery*: %s
📋 *Tender*: %s

We'll review your bid and get back to you soon.

Tender ID: %s`,
		b.TranslatedText, formatPrice(b), orNotSpecified(b.DeliveryTime), t.Title, t.TenderID)
}

func bidReceivedMessage(b *model.Bid, t *model.Tender) string {
	return fmt.Sprintf(`🔔 *New Bid Received*

📋 *Tender*: %s
💰 *Price*: %s
⏰ *Delivery*: %s
📞 *Supplier*: %s
🌐 *Language*: %s

Reply "/winner %s %s" to select this bid as the winner.`,
		t.Title, formatPrice(b), orNotSpecified(b.DeliveryTime), b.SupplierPhone,
		orUnknown(b.Language), b.TenderID, b.BidID)
}

func winningBidMessage(b *model.Bid, t *model.Tender) string {
	return fmt.Sprintf(`🎉 *Congratulations! Your Bid Won*

📋 *Tender*: %s
💰 *Your Price*: %s
📅 *Closing Date*: %s

Please contact us for further details.

Tender ID: %s`,
		t.Title, formatPrice(b), t.ClosingDate.Format(dateLayout), b.TenderID)
}

func winnerSelectedMessage(b *model.Bid, t *model.Tender) string {
	return fmt.Sprintf(`✅ *Winner Selected*

📞 Supplier: %s
💰 Price: %s
📋 Tender: %s

Winner notification sent to supplier.`,
		b.SupplierPhone, formatPrice(b), t.Title)
}

func tendersDigest(tenders []model.Tender) string {
	var sb strings.Builder
	sb.WriteString("📋 *Recent Tenders*\n\n")
	for _, t := range tenders {
		fmt.Fprintf(&sb, "📌 *%s*\n📝 %s\n💰 %s\n📅 %s\n📊 %s\n\n",
			t.TenderID, t.Title, t.Category, t.ClosingDate.Format(dateLayout), t.Status)
	}
	return strings.TrimRight(sb.String(), "\n")
}

func bidsDigest(bids []model.Bid) string {
	var sb strings.Builder
	sb.WriteString("📋 *Recent Bids*\n\n")
	for _, b := range bids {
		fmt.Fprintf(&sb, "📞 *%s*\n📝 %s\n🆔 %s\n💰 %s\n⏰ %s\n🌐 %s\n\n",
			b.SupplierPhone, b.TenderID, b.BidID, formatPrice(&b),
			orNotSpecified(b.DeliveryTime), orUnknown(b.Language))
	}
	return strings.TrimRight(sb.String(), "\n")
}

func formatPrice(b *model.Bid) string {
	return fmt.Sprintf("%s %s", trimDecimal(b.Price), b.Currency)
}

// trimDecimal печатает цену без хвостовых нулей: 25 вместо 25.000.
func trimDecimal(v float64) string {
	s := fmt.Sprintf("%.3f", v)
	s = strings.TrimRight(s, "0")
	return strings.TrimRight(s, ".")
}

func orNotSpecified(s string) string {
	if s == "" {
		return "Not specified"
	}
	return s
}

func orUnknown(s string) string {
	if s == "" {
		return "Unknown"
	}
	return s
}
