package rules

import (
	"fmt"

	"github.com/mikey/mail-triage/internal/core"
)

// DefaultVersion is the version of the built-in tables
const DefaultVersion = "builtin-1"

// Default returns the built-in rule table for a taxonomy variant
func Default(variant core.TaxonomyVariant) (*Table, error) {
	var categories []CategoryRules
	switch variant {
	case core.TaxonomyConsolidated:
		categories = consolidatedCategories()
	case core.TaxonomyExtended:
		categories = extendedCategories()
	default:
		return nil, fmt.Errorf("no built-in rule table for taxonomy %q", variant)
	}
	table := &Table{
		Version:    fmt.Sprintf("%s-%s", DefaultVersion, variant),
		Settings:   DefaultSettings(),
		Weights:    DefaultWeights(),
		Categories: categories,
	}
	return table.Clone(), nil
}

var (
	bankDomains       = []string{"hdfcbank.com", "hdfcbank.net", "icicibank.com", "axisbank.com", "sbi.co.in", "kotak.com", "americanexpress.com"}
	paymentDomains    = []string{"cred.club", "paytm.com", "phonepe.com", "razorpay.com", "paypal.com"}
	investDomains     = []string{"zerodha.com", "groww.in", "upstox.com", "kuvera.in", "camsonline.com"}
	shopDomains       = []string{"amazon.in", "amazon.com", "flipkart.com", "myntra.com", "ajio.com", "nykaa.com"}
	travelDomains     = []string{"makemytrip.com", "irctc.co.in", "booking.com", "goibibo.com", "uber.com", "olacabs.com"}
	insuranceDomains  = []string{"policybazaar.com", "acko.com", "hdfcergo.com", "starhealth.in"}
	receiptDomains    = []string{"netflix.com", "spotify.com", "swiggy.in", "zomato.com", "apple.com"}
	socialDomains     = []string{"linkedin.com", "facebookmail.com", "instagram.com", "twitter.com", "x.com"}
	securityKeywords  = []string{"security alert", "suspicious activity", "login attempt", "password", "2fa", "verification code", "new sign-in"}
	marketingKeywords = []string{"newsletter", "offer", "sale", "discount", "deal", "clearance", "limited time"}
)

func consolidatedCategories() []CategoryRules {
	return []CategoryRules{
		{
			Name:     string(core.CategoryFinanceBills),
			Priority: 1,
			Domains:  DomainTiers{High: append(append([]string(nil), bankDomains...), investDomains...), Medium: paymentDomains},
			Keywords: KeywordTiers{
				SubjectHigh:   []string{"statement", "transaction", "credit card", "emi", "loan", "contract note", "mutual fund"},
				SubjectMedium: []string{"payment", "bill", "due", "portfolio", "sip"},
				ContentHigh:   []string{"account balance", "debited", "credited", "demat"},
				ContentMedium: []string{"amount", "upi", "neft"},
			},
			Exclusions: []string{"webinar"},
		},
		{
			Name:     string(core.CategoryPurchasesReceipts),
			Priority: 3,
			Domains:  DomainTiers{High: shopDomains, Medium: []string{"swiggy.in", "zomato.com"}},
			Keywords: KeywordTiers{
				SubjectHigh:   []string{"order", "shipped", "delivered", "receipt", "invoice"},
				SubjectMedium: []string{"delivery", "tracking", "refund"},
				ContentHigh:   []string{"order id", "order number", "out for delivery"},
				ContentMedium: []string{"cart", "return"},
			},
			NegativeKeywords: []string{"abandoned cart"},
		},
		{
			Name:     string(core.CategoryServicesSubs),
			Priority: 4,
			Domains:  DomainTiers{High: append(append([]string(nil), travelDomains...), insuranceDomains...), Medium: receiptDomains},
			Keywords: KeywordTiers{
				SubjectHigh:   []string{"subscription", "renewal", "ticket", "pnr", "itinerary", "policy", "premium"},
				SubjectMedium: []string{"booking", "flight", "claim", "plan"},
				ContentHigh:   []string{"booking confirmed", "policy number"},
				ContentMedium: []string{"membership", "trip"},
			},
		},
		{
			Name:     string(core.CategorySecurityAlerts),
			Priority: 2,
			Keywords: KeywordTiers{
				SubjectHigh:   securityKeywords,
				SubjectMedium: []string{"otp", "alert", "verify"},
				ContentHigh:   []string{"if this wasn't you", "unauthorized"},
				ContentMedium: []string{"device", "sign in"},
			},
		},
		{
			Name:     string(core.CategoryPromotionsMarketing),
			Priority: 8,
			Keywords: KeywordTiers{
				SubjectHigh:   marketingKeywords,
				SubjectMedium: []string{"new arrivals", "exclusive", "save"},
				ContentHigh:   []string{"unsubscribe"},
				ContentMedium: []string{"shop now", "promo code"},
			},
			Exclusions: []string{"order id"},
		},
		{
			Name:     string(core.CategoryPersonalSocial),
			Priority: 6,
			Domains:  DomainTiers{Medium: socialDomains},
			Keywords: KeywordTiers{
				SubjectHigh:   []string{"meeting", "invitation", "birthday"},
				SubjectMedium: []string{"project", "deadline", "catch up", "connection"},
				ContentMedium: []string{"regards", "see you"},
			},
		},
	}
}

func extendedCategories() []CategoryRules {
	return []CategoryRules{
		{
			Name:     string(core.CategoryBankingFinance),
			Priority: 1,
			Domains:  DomainTiers{High: bankDomains, Medium: paymentDomains},
			Keywords: KeywordTiers{
				SubjectHigh:   []string{"statement", "transaction", "credit card", "emi", "loan"},
				SubjectMedium: []string{"payment", "bill", "due"},
				ContentHigh:   []string{"account balance", "debited", "credited"},
				ContentMedium: []string{"upi", "neft", "amount"},
			},
		},
		{
			Name:     string(core.CategoryInvestments),
			Priority: 2,
			Domains:  DomainTiers{High: investDomains},
			Keywords: KeywordTiers{
				SubjectHigh:   []string{"contract note", "mutual fund", "demat", "sip", "portfolio"},
				SubjectMedium: []string{"dividend", "nav", "holdings"},
				ContentHigh:   []string{"units allotted", "trade executed"},
				ContentMedium: []string{"equity", "folio"},
			},
		},
		{
			Name:     string(core.CategoryAlertsSecurity),
			Priority: 2,
			Keywords: KeywordTiers{
				SubjectHigh:   securityKeywords,
				SubjectMedium: []string{"otp", "alert", "verify"},
				ContentHigh:   []string{"if this wasn't you", "unauthorized"},
			},
		},
		{
			Name:     string(core.CategoryShoppingOrders),
			Priority: 3,
			Domains:  DomainTiers{High: shopDomains},
			Keywords: KeywordTiers{
				SubjectHigh:   []string{"order", "shipped", "delivered"},
				SubjectMedium: []string{"delivery", "tracking", "refund"},
				ContentHigh:   []string{"order id", "out for delivery"},
			},
			NegativeKeywords: []string{"abandoned cart"},
		},
		{
			Name:     string(core.CategoryPersonalWork),
			Priority: 5,
			Domains:  DomainTiers{Medium: socialDomains},
			Keywords: KeywordTiers{
				SubjectHigh:   []string{"meeting", "project", "deadline"},
				SubjectMedium: []string{"invitation", "review", "sync"},
			},
		},
		{
			Name:     string(core.CategoryMarketingNews),
			Priority: 9,
			Keywords: KeywordTiers{
				SubjectHigh:   marketingKeywords,
				SubjectMedium: []string{"digest", "weekly", "exclusive"},
				ContentHigh:   []string{"unsubscribe"},
			},
			Exclusions: []string{"order id"},
		},
		{
			Name:     string(core.CategoryActionRequired),
			Priority: 1,
			Keywords: KeywordTiers{
				SubjectHigh:   []string{"action required", "urgent", "kyc", "expiring"},
				SubjectMedium: []string{"reminder", "pending", "update your"},
			},
		},
		{
			Name:     string(core.CategoryReceiptsArchive),
			Priority: 6,
			Domains:  DomainTiers{High: receiptDomains},
			Keywords: KeywordTiers{
				SubjectHigh:   []string{"receipt", "invoice", "subscription"},
				SubjectMedium: []string{"renewal", "your plan"},
			},
		},
		{
			Name:     string(core.CategoryInsuranceServices),
			Priority: 4,
			Domains:  DomainTiers{High: insuranceDomains},
			Keywords: KeywordTiers{
				SubjectHigh:   []string{"policy", "premium", "claim"},
				SubjectMedium: []string{"renewal", "coverage"},
				ContentHigh:   []string{"policy number", "sum insured"},
			},
		},
		{
			Name:     string(core.CategoryTravelTransport),
			Priority: 4,
			Domains:  DomainTiers{High: travelDomains},
			Keywords: KeywordTiers{
				SubjectHigh:   []string{"ticket", "pnr", "flight", "itinerary"},
				SubjectMedium: []string{"booking", "trip", "boarding"},
				ContentHigh:   []string{"booking confirmed", "boarding pass"},
			},
		},
	}
}
