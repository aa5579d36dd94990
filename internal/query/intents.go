package query

// Intent is a classification label describing what kind of answer the
// user likely wants. Used downstream to select fusion weights and
// web query phrasing.
type Intent string

const (
	IntentPrice     Intent = "price"
	IntentLatest    Intent = "latest"
	IntentParts     Intent = "parts"
	IntentShop      Intent = "shop"
	IntentReview    Intent = "review"
	IntentRepair    Intent = "repair"
	IntentDiagnosis Intent = "diagnosis"
	IntentDIY       Intent = "diy"
	IntentUrgent    Intent = "urgent"
	IntentDefault   Intent = "default"
)

// IntentPrecedence orders intents from highest to lowest priority.
// The fusion engine picks its weight triple from the highest-priority
// intent present on a query.
var IntentPrecedence = []Intent{
	IntentUrgent,
	IntentPrice,
	IntentLatest,
	IntentRepair,
	IntentDiagnosis,
	IntentShop,
	IntentReview,
	IntentParts,
	IntentDIY,
	IntentDefault,
}

// intentKeywords maps each text-derived intent to its trigger terms.
// Matching is case-insensitive substring matching against the raw query.
// IntentUrgent is driven by a caller-supplied flag, never by text.
var intentKeywords = map[Intent][]string{
	IntentPrice: {
		"price", "cost", "quote", "estimate", "how much", "fee",
		"cheap", "expensive", "budget",
	},
	IntentLatest: {
		"latest", "new", "newest", "recent", "2024", "2025",
		"this year", "current model",
	},
	IntentParts: {
		"parts", "part number", "component", "replacement", "oem",
		"aftermarket", "accessory",
	},
	IntentShop: {
		"shop", "garage", "mechanic", "dealer", "dealership",
		"near me", "nearby", "where can i",
	},
	IntentReview: {
		"review", "rating", "reputation", "recommend", "best",
		"comparison", "vs", "versus",
	},
	IntentRepair: {
		"repair", "fix", "broken", "not working", "won't start",
		"not charging", "replace", "restore",
	},
	IntentDiagnosis: {
		"diagnosis", "diagnose", "symptom", "cause", "why does",
		"warning light", "noise", "smell", "leak",
	},
	IntentDIY: {
		"diy", "myself", "at home", "by hand", "own", "self",
		"step by step", "tutorial",
	},
}
