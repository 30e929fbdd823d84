// Package training builds training sets, trains ensemble snapshots and
// manages their promotion and rollback.
package training

import (
	"fmt"

	"github.com/mikey/mail-triage/internal/core"
	"github.com/mikey/mail-triage/internal/features"
)

// Sample is one labelled message summary. Corrected samples always train
// and are never held out for validation.
type Sample struct {
	MessageID string
	Category  core.Category
	Summary   core.MessageSummary
	Corrected bool
}

type seed struct {
	sender  string
	subject string
	snippet string
}

var consolidatedSeeds = map[core.Category][]seed{
	core.CategoryFinanceBills: {
		{"alerts@hdfcbank.net", "Your credit card statement is ready", "Your statement for the billing period is attached. Total amount due and minimum amount due are shown below."},
		{"noreply@icicibank.com", "Transaction alert: account debited", "Your account has been debited by INR 4,500 via UPI. Available account balance is shown in the app."},
		{"statements@zerodha.com", "Contract note for today's trades", "Please find attached the contract note for your equity trades executed on NSE today."},
		{"billing@cred.club", "Electricity bill payment due", "Your electricity bill is due in three days. Pay now to avoid late fees."},
		{"service@axisbank.com", "Loan EMI reminder", "Your home loan EMI will be auto debited from your savings account on the due date."},
		{"invest@groww.in", "Your SIP has been processed", "Your monthly SIP instalment in the mutual fund has been processed and units allotted."},
	},
	core.CategoryPurchasesReceipts: {
		{"auto-confirm@amazon.in", "Your order has been shipped", "Your package with 2 items has shipped and will arrive on Thursday. Track your order."},
		{"noreply@flipkart.com", "Order confirmed: wireless headphones", "Thank you for your order. Your order id and delivery estimate are below."},
		{"orders@myntra.com", "Your order is out for delivery", "Your order will be delivered today. Keep your phone handy for the delivery agent."},
		{"receipts@swiggy.in", "Your Swiggy order receipt", "Thanks for ordering. Here is the receipt for your food order including taxes and delivery fee."},
		{"no-reply@apple.com", "Your receipt from Apple", "Receipt for your purchase. Order total and invoice details are listed below."},
		{"support@nykaa.com", "Refund processed for your return", "The refund for your returned order has been initiated to the original payment method."},
	},
	core.CategoryServicesSubs: {
		{"info@netflix.com", "Your membership renews soon", "Your subscription plan renews next week. Update your payment details to keep watching."},
		{"no-reply@spotify.com", "Your premium subscription receipt", "Thanks for your subscription. Your premium plan has been renewed for another month."},
		{"bookings@makemytrip.com", "Flight booking confirmed", "Your flight booking is confirmed. Your e-ticket and itinerary are attached with PNR details."},
		{"noreply@uber.com", "Your trip with Uber", "Thanks for riding with Uber. Your trip receipt and route map are below."},
		{"policy@acko.com", "Your insurance policy renewal", "Your car insurance policy is due for renewal. Renew now to keep your coverage."},
		{"tickets@irctc.co.in", "Train ticket booking confirmation", "Your train ticket is booked. Coach and berth details are in the attached reservation slip."},
	},
	core.CategorySecurityAlerts: {
		{"no-reply@accounts.google.com", "Security alert: new sign-in on Windows", "A new sign-in to your account was detected. If this was you, you can ignore this message."},
		{"security@paypal.com", "Suspicious activity on your account", "We noticed suspicious activity and temporarily limited your account. Verify your identity."},
		{"noreply@github.com", "Your verification code", "Use this verification code to complete your sign in. The code expires in ten minutes."},
		{"alerts@hdfcbank.net", "Password changed successfully", "The password for your net banking login was changed. Contact us if you did not make this change."},
		{"security@microsoft.com", "Unusual login attempt blocked", "We blocked a login attempt from an unrecognized device and location."},
		{"no-reply@amazon.com", "2FA enabled on your account", "Two factor authentication is now enabled. You will need a verification code to sign in."},
	},
	core.CategoryPromotionsMarketing: {
		{"offers@ajio.com", "Flat 60% off end of season sale", "Biggest sale of the season. Limited time offer on top brands, shop now before stocks run out."},
		{"newsletter@medium.com", "Your weekly newsletter digest", "Top stories picked for you this week. Read the latest articles from writers you follow."},
		{"deals@flipkart.com", "Exclusive deal just for you", "Grab this exclusive discount on electronics. Offer valid till midnight only."},
		{"marketing@zomato.com", "Free delivery weekend", "Enjoy free delivery on all orders this weekend. Use the promo code at checkout."},
		{"news@substack.com", "New issue of the tech newsletter", "This week in technology: product launches, funding rounds and a deep dive."},
		{"promo@nykaa.com", "Clearance sale starts today", "Clearance sale with discounts up to 70 percent. Unsubscribe from promotional emails anytime."},
	},
	core.CategoryPersonalSocial: {
		{"priya.sharma@gmail.com", "Dinner on Saturday?", "Hey, are you free for dinner on Saturday evening? Let me know and I will book a table."},
		{"messages-noreply@linkedin.com", "You have a new connection request", "Rahul wants to connect with you on LinkedIn. Accept the invitation to grow your network."},
		{"mom@yahoo.com", "Photos from the trip", "Sharing the photos from our family trip last week. Call me when you get time."},
		{"notification@facebookmail.com", "Your friend tagged you in a post", "You were tagged in a post. See what your friends are saying."},
		{"arjun@company.com", "Re: project meeting notes", "Thanks for the notes. Can we move the meeting to Monday morning?"},
		{"neha.k@outlook.com", "Happy birthday!", "Wishing you a very happy birthday. Have a wonderful year ahead."},
	},
}

var extendedSeeds = map[core.Category][]seed{
	core.CategoryBankingFinance: {
		{"alerts@hdfcbank.net", "Your credit card statement is ready", "Your statement for the billing period is attached. Total amount due and minimum amount due are shown below."},
		{"noreply@icicibank.com", "Transaction alert: account debited", "Your account has been debited by INR 4,500 via UPI. Available account balance is shown in the app."},
		{"service@axisbank.com", "Loan EMI reminder", "Your home loan EMI will be auto debited from your savings account on the due date."},
		{"billing@cred.club", "Credit card bill payment received", "We received your credit card bill payment. Thank you for paying on time."},
		{"service@paypal.com", "You sent a payment", "You sent a payment to a merchant. The transaction details are below."},
	},
	core.CategoryInvestments: {
		{"statements@zerodha.com", "Contract note for today's trades", "Please find attached the contract note for your equity trades executed on NSE today."},
		{"invest@groww.in", "Your SIP has been processed", "Your monthly SIP instalment in the mutual fund has been processed and units allotted."},
		{"reports@kuvera.in", "Your portfolio summary", "Your portfolio value changed this month. See your returns across mutual funds and stocks."},
		{"noreply@camsonline.com", "Consolidated account statement", "Your consolidated mutual fund account statement with holdings and NAV is attached."},
		{"alerts@upstox.com", "Dividend credited to your demat account", "A dividend has been credited for your equity holdings in the demat account."},
	},
	core.CategoryAlertsSecurity: {
		{"no-reply@accounts.google.com", "Security alert: new sign-in on Windows", "A new sign-in to your account was detected. If this was you, you can ignore this message."},
		{"security@paypal.com", "Suspicious activity on your account", "We noticed suspicious activity and temporarily limited your account. Verify your identity."},
		{"noreply@github.com", "Your verification code", "Use this verification code to complete your sign in. The code expires in ten minutes."},
		{"security@microsoft.com", "Unusual login attempt blocked", "We blocked a login attempt from an unrecognized device and location."},
		{"alerts@hdfcbank.net", "Password changed successfully", "The password for your net banking login was changed. Contact us if you did not make this change."},
	},
	core.CategoryShoppingOrders: {
		{"auto-confirm@amazon.in", "Your order has been shipped", "Your package with 2 items has shipped and will arrive on Thursday. Track your order."},
		{"noreply@flipkart.com", "Order confirmed: wireless headphones", "Thank you for your order. Your order id and delivery estimate are below."},
		{"orders@myntra.com", "Your order is out for delivery", "Your order will be delivered today. Keep your phone handy for the delivery agent."},
		{"support@nykaa.com", "Your return pickup is scheduled", "The courier will pick up your return tomorrow. Keep the package ready."},
		{"orders@ajio.com", "Order delivered", "Your order has been delivered. Rate your shopping experience."},
	},
	core.CategoryPersonalWork: {
		{"priya.sharma@gmail.com", "Dinner on Saturday?", "Hey, are you free for dinner on Saturday evening? Let me know and I will book a table."},
		{"arjun@company.com", "Re: project meeting notes", "Thanks for the notes. Can we move the meeting to Monday morning?"},
		{"mom@yahoo.com", "Photos from the trip", "Sharing the photos from our family trip last week. Call me when you get time."},
		{"messages-noreply@linkedin.com", "You have a new connection request", "Rahul wants to connect with you on LinkedIn. Accept the invitation to grow your network."},
		{"manager@company.com", "Quarterly planning agenda", "Please review the agenda for the quarterly planning session and add your topics."},
	},
	core.CategoryMarketingNews: {
		{"offers@ajio.com", "Flat 60% off end of season sale", "Biggest sale of the season. Limited time offer on top brands, shop now before stocks run out."},
		{"newsletter@medium.com", "Your weekly newsletter digest", "Top stories picked for you this week. Read the latest articles from writers you follow."},
		{"deals@flipkart.com", "Exclusive deal just for you", "Grab this exclusive discount on electronics. Offer valid till midnight only."},
		{"news@substack.com", "New issue of the tech newsletter", "This week in technology: product launches, funding rounds and a deep dive."},
		{"promo@nykaa.com", "Clearance sale starts today", "Clearance sale with discounts up to 70 percent. Unsubscribe from promotional emails anytime."},
	},
	core.CategoryActionRequired: {
		{"kyc@zerodha.com", "Action required: update your KYC", "Your KYC documents have expired. Complete the verification before the deadline to avoid restrictions."},
		{"noreply@incometax.gov.in", "Reminder: file your income tax return", "The deadline to file your return is approaching. Submit before the due date to avoid penalty."},
		{"support@icicibank.com", "Please verify your email address", "Confirm your email address to continue receiving account updates. This link expires soon."},
		{"hr@company.com", "Please sign the updated policy", "Review and sign the updated policy document by Friday. Your response is required."},
		{"admin@uidai.gov.in", "Link your Aadhaar with PAN", "Linking is mandatory. Complete the process before the deadline."},
	},
	core.CategoryReceiptsArchive: {
		{"receipts@swiggy.in", "Your Swiggy order receipt", "Thanks for ordering. Here is the receipt for your food order including taxes and delivery fee."},
		{"no-reply@apple.com", "Your receipt from Apple", "Receipt for your purchase. Order total and invoice details are listed below."},
		{"info@netflix.com", "Your Netflix invoice", "Your invoice for this month's membership is available. Amount charged to your card."},
		{"no-reply@spotify.com", "Your premium subscription receipt", "Thanks for your subscription. Your premium plan has been renewed for another month."},
		{"noreply@zomato.com", "Your Zomato order summary", "Here is the summary and invoice for your recent order."},
	},
	core.CategoryInsuranceServices: {
		{"policy@acko.com", "Your insurance policy renewal", "Your car insurance policy is due for renewal. Renew now to keep your coverage."},
		{"care@starhealth.in", "Health insurance claim update", "Your claim has been approved. The settlement amount will be paid to the hospital."},
		{"service@policybazaar.com", "Premium payment reminder", "Your premium for the term insurance policy is due next week."},
		{"support@hdfcergo.com", "Policy document attached", "Please find your insurance policy document and coverage details attached."},
		{"billing@airtel.in", "Your broadband bill is ready", "Your broadband service bill for this month is ready. Pay before the due date."},
	},
	core.CategoryTravelTransport: {
		{"bookings@makemytrip.com", "Flight booking confirmed", "Your flight booking is confirmed. Your e-ticket and itinerary are attached with PNR details."},
		{"noreply@uber.com", "Your trip with Uber", "Thanks for riding with Uber. Your trip receipt and route map are below."},
		{"tickets@irctc.co.in", "Train ticket booking confirmation", "Your train ticket is booked. Coach and berth details are in the attached reservation slip."},
		{"reservations@booking.com", "Your hotel reservation", "Your hotel stay is confirmed. Check-in and check-out details are below."},
		{"noreply@olacabs.com", "Ride invoice", "Thanks for travelling with Ola. Your ride invoice and fare breakdown are attached."},
	},
}

// Bootstrap returns the built-in labelled corpus for a taxonomy, in
// taxonomy order
func Bootstrap(taxonomy *core.Taxonomy) ([]Sample, error) {
	var seeds map[core.Category][]seed
	switch taxonomy.Variant() {
	case core.TaxonomyConsolidated:
		seeds = consolidatedSeeds
	case core.TaxonomyExtended:
		seeds = extendedSeeds
	default:
		return nil, fmt.Errorf("no bootstrap corpus for taxonomy %q", taxonomy.Variant())
	}

	var samples []Sample
	for _, category := range taxonomy.Categories() {
		for i, s := range seeds[category] {
			samples = append(samples, Sample{
				MessageID: fmt.Sprintf("bootstrap-%s-%d", slug(category), i),
				Category:  category,
				Summary: core.MessageSummary{
					Sender:  s.sender,
					Domain:  features.DomainOf(s.sender),
					Subject: s.subject,
					Snippet: s.snippet,
				},
			})
		}
	}
	return samples, nil
}

func slug(c core.Category) string {
	out := make([]rune, 0, len(c))
	for _, r := range string(c) {
		switch {
		case r >= 'A' && r <= 'Z':
			out = append(out, r+'a'-'A')
		case r >= 'a' && r <= 'z':
			out = append(out, r)
		case len(out) > 0 && out[len(out)-1] != '-':
			out = append(out, '-')
		}
	}
	for len(out) > 0 && out[len(out)-1] == '-' {
		out = out[:len(out)-1]
	}
	return string(out)
}
