package flow

// Typed results for each flow. The contract output schemas are derived
// from these structs, so the wire contract and the Go type cannot
// drift apart.

type FeedbackAnalysis struct {
	Category  string `json:"category" jsonschema:"enum=Bug Report,enum=Feature Request,enum=Praise,enum=General Feedback"`
	Summary   string `json:"summary"`
	Sentiment string `json:"sentiment" jsonschema:"enum=Positive,enum=Negative,enum=Neutral"`
}

type PlatformRecommendation struct {
	PlatformName string `json:"platformName"`
	MarketingTip string `json:"marketingTip"`
}

type MarketingCopy struct {
	TargetAudience          string                   `json:"targetAudience"`
	SocialMediaPost         string                   `json:"socialMediaPost"`
	EmailCopy               string                   `json:"emailCopy"`
	Headline                string                   `json:"headline"`
	Body                    string                   `json:"body"`
	CTA                     string                   `json:"cta"`
	PlatformRecommendations []PlatformRecommendation `json:"platformRecommendations"`
}

type ProductImage struct {
	ImageDataURI string `json:"imageDataUri"`
}

type ProductSuggestions struct {
	ProductVariations       []string `json:"productVariations"`
	NewDesignConcepts       []string `json:"newDesignConcepts"`
	TargetAudienceExpansion []string `json:"targetAudienceExpansion"`
}

type RefinedStory struct {
	RefinedStory string `json:"refinedStory"`
}

type PriceRange struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

type PriceSuggestion struct {
	SuggestedPriceRange PriceRange `json:"suggestedPriceRange"`
	Reasoning           string     `json:"reasoning"`
}

type QueryAnswer struct {
	Answer string `json:"answer"`
}
