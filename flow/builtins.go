package flow

import (
	"github.com/artisanhub/craft-ai-bridge/prompt"
	"github.com/artisanhub/craft-ai-bridge/safety"
	"github.com/artisanhub/craft-ai-bridge/schema"
)

// Flow names. Each equals its contract name and its HTTP route segment.
const (
	AnalyzeFeedback            = "analyzeFeedback"
	GenerateMarketingCopy      = "generateMarketingCopy"
	GenerateProductImage       = "generateProductImage"
	GenerateProductSuggestions = "generateProductSuggestions"
	RefineProductStory         = "refineProductStory"
	SuggestPrice               = "suggestPrice"
	AnswerQuery                = "answerQuery"
)

// RegisterBuiltins registers the marketplace flows: contracts, prompt
// templates, and flow definitions. Silently skips anything already
// registered so deployments can pre-register overrides.
func RegisterBuiltins() {
	registerContracts()
	registerTemplates()
	registerDefinitions()
}

func registerContracts() {
	_ = schema.Register(&schema.Contract{
		Name:        AnalyzeFeedback,
		Description: "Classifies a piece of customer feedback by category and sentiment and summarizes it.",
		Input: []schema.FieldSpec{
			{Name: "feedback", Type: schema.FieldString, Required: true, MinLength: 10, Description: "The customer feedback text to analyze."},
		},
		Output: schema.OutputSchemaOf(&FeedbackAnalysis{}),
	})
	_ = schema.Register(&schema.Contract{
		Name:        GenerateMarketingCopy,
		Description: "Drafts marketing copy for a product: audience, social post, email, headline, body, call to action, and per-platform tips.",
		Input: []schema.FieldSpec{
			{Name: "productName", Type: schema.FieldString, Required: true, Description: "The product's display name."},
			{Name: "productDescription", Type: schema.FieldString, Required: true, Description: "What the product is, its materials, and how it is made."},
		},
		Output: schema.OutputSchemaOf(&MarketingCopy{}),
	})
	_ = schema.Register(&schema.Contract{
		Name:        GenerateProductImage,
		Description: "Synthesizes a product photograph from a text description.",
		Input: []schema.FieldSpec{
			{Name: "description", Type: schema.FieldString, Required: true, Description: "A description of the product to photograph."},
		},
		Output: schema.OutputSchemaOf(&ProductImage{}),
	})
	_ = schema.Register(&schema.Contract{
		Name:        GenerateProductSuggestions,
		Description: "Suggests product variations, new design concepts, and audience expansion ideas.",
		Input: []schema.FieldSpec{
			{Name: "productName", Type: schema.FieldString, Required: true, Description: "The product's display name."},
			{Name: "productDescription", Type: schema.FieldString, Required: true, Description: "What the product is and how it is made."},
			{Name: "productCategory", Type: schema.FieldString, Required: true, Description: "The product's marketplace category."},
		},
		Output: schema.OutputSchemaOf(&ProductSuggestions{}),
	})
	_ = schema.Register(&schema.Contract{
		Name:        RefineProductStory,
		Description: "Turns an artisan's spoken or rough notes into a polished product story.",
		Input: []schema.FieldSpec{
			{Name: "voiceInput", Type: schema.FieldString, Required: true, Description: "The artisan's rough story, as transcribed."},
		},
		Output: schema.OutputSchemaOf(&RefinedStory{}),
	})
	_ = schema.Register(&schema.Contract{
		Name:        SuggestPrice,
		Description: "Suggests a fair retail price range for a product with reasoning. Use when a question involves what to charge for an item.",
		Input: []schema.FieldSpec{
			{Name: "productName", Type: schema.FieldString, Required: true, Description: "The product's display name."},
			{Name: "productDescription", Type: schema.FieldString, Required: true, Description: "What the product is, its materials, and how it is made."},
		},
		Output: schema.OutputSchemaOf(&PriceSuggestion{}),
	})
	_ = schema.Register(&schema.Contract{
		Name:        AnswerQuery,
		Description: "Answers a seller's free-form question, consulting pricing and marketing tools as needed.",
		Input: []schema.FieldSpec{
			{Name: "query", Type: schema.FieldString, Required: true, Description: "The seller's question."},
		},
		Output: schema.OutputSchemaOf(&QueryAnswer{}),
	})
}

func registerTemplates() {
	_ = prompt.Register(prompt.Template{
		Contract:    AnalyzeFeedback,
		Description: "Feedback triage for the seller dashboard.",
		Text: `You are the feedback analyst for an artisan marketplace. Analyze the
customer feedback below and classify it for the seller's dashboard.

Feedback:
{{feedback}}

Produce:
1. category: exactly one of "Bug Report", "Feature Request", "Praise", "General Feedback".
2. summary: one or two sentences capturing the substance of the feedback.
3. sentiment: exactly one of "Positive", "Negative", "Neutral".

Respond with a single JSON object matching the requested schema.`,
	})
	_ = prompt.Register(prompt.Template{
		Contract:    GenerateMarketingCopy,
		Description: "Full marketing kit for one product.",
		Text: `You are a marketing copywriter for handmade and artisan goods. Write
marketing copy for the product below. Celebrate the craft and the maker;
avoid generic e-commerce filler.

Product name: {{productName}}
Product description: {{productDescription}}

Produce:
1. targetAudience: who this product is for, in one sentence.
2. socialMediaPost: a short post with relevant hashtags.
3. emailCopy: a warm announcement email body.
4. headline: a punchy product headline.
5. body: two short paragraphs of product page copy.
6. cta: a call to action of at most six words.
7. platformRecommendations: for each of Instagram, Pinterest, and Etsy,
   the platform name and one concrete marketing tip for this product.

Respond with a single JSON object matching the requested schema.`,
	})
	_ = prompt.Register(prompt.Template{
		Contract:    GenerateProductImage,
		Description: "Studio photograph directive for the image model.",
		Text: `A professional studio photograph of the following handmade artisan
product, on a neutral background with soft natural lighting, shallow
depth of field, no text or watermarks: {{description}}`,
	})
	_ = prompt.Register(prompt.Template{
		Contract:    GenerateProductSuggestions,
		Description: "Catalog growth ideas for one product.",
		Text: `You advise artisans on growing their catalog. Based on the product
below, suggest how the maker could extend their range.

Product name: {{productName}}
Description: {{productDescription}}
Category: {{productCategory}}

Produce:
1. productVariations: three to five variations of this exact product
   (colors, sizes, materials) the maker could offer.
2. newDesignConcepts: three to five new products in the same craft that
   would sit well beside this one.
3. targetAudienceExpansion: two to four buyer groups beyond the current
   audience, each with a reason they would buy.

Respond with a single JSON object matching the requested schema.`,
	})
	_ = prompt.Register(prompt.Template{
		Contract:    RefineProductStory,
		Description: "Polishes a spoken product story.",
		Text: `An artisan described the story behind their product in their own
words, possibly transcribed from speech. Rewrite it as a polished
first-person story for their product page. Keep every factual detail,
keep the maker's voice, fix grammar and flow, and stay under 150 words.

Their words:
{{voiceInput}}

Respond with a single JSON object matching the requested schema, with
the rewritten story in refinedStory.`,
	})
	_ = prompt.Register(prompt.Template{
		Contract:    SuggestPrice,
		Description: "Pricing guidance for one product.",
		Text: `You are a pricing analyst for handmade and artisan goods. Suggest a
fair retail price range for the product below, considering materials,
labor, comparable handmade listings, and perceived value.

Product name: {{productName}}
Product description: {{productDescription}}

Produce:
1. suggestedPriceRange: min and max as positive whole amounts in the
   marketplace currency, with min strictly less than max.
2. reasoning: a short paragraph explaining the range.

Respond with a single JSON object matching the requested schema.`,
	})
	_ = prompt.Register(prompt.Template{
		Contract:    AnswerQuery,
		Description: "Seller support question, verbatim.",
		Text:        `{{query}}`,
	})
}

func registerDefinitions() {
	_ = Register(&Definition{
		Name:         AnalyzeFeedback,
		Kind:         KindText,
		Contract:     mustContract(AnalyzeFeedback),
		Policy:       safety.Default(),
		EmptyMessage: "We could not analyze this feedback. Please try again.",
	})
	_ = Register(&Definition{
		Name:         GenerateMarketingCopy,
		Kind:         KindText,
		Contract:     mustContract(GenerateMarketingCopy),
		Policy:       safety.Default(),
		EmptyMessage: "We could not generate marketing copy for this product. Please try again.",
	})
	_ = Register(&Definition{
		Name:         GenerateProductImage,
		Kind:         KindImage,
		Contract:     mustContract(GenerateProductImage),
		Policy:       safety.Default(),
		EmptyMessage: "We could not generate an image for this description. Please try again.",
	})
	_ = Register(&Definition{
		Name:         GenerateProductSuggestions,
		Kind:         KindText,
		Contract:     mustContract(GenerateProductSuggestions),
		Policy:       safety.Default(),
		EmptyMessage: "We could not generate suggestions for this product. Please try again.",
	})
	_ = Register(&Definition{
		Name:         RefineProductStory,
		Kind:         KindText,
		Contract:     mustContract(RefineProductStory),
		Policy:       safety.Default(),
		EmptyMessage: "We could not refine this story. Please try again.",
	})
	_ = Register(&Definition{
		Name:         SuggestPrice,
		Kind:         KindText,
		Contract:     mustContract(SuggestPrice),
		Policy:       safety.Default(),
		EmptyMessage: "We could not suggest a price for this product. Please try again.",
	})
	_ = Register(&Definition{
		Name:         AnswerQuery,
		Kind:         KindDialogue,
		Contract:     mustContract(AnswerQuery),
		Policy:       safety.Default(),
		EmptyMessage: "We could not answer this question. Please try again.",
		SystemPrompt: `You are the seller assistant for an artisan marketplace. You help
makers price their work, market it, and grow their shop. When a question
involves pricing, call the suggestPrice tool; when it involves marketing
copy, call the generateMarketingCopy tool. Fold tool results into a
concise, practical answer in plain text.`,
		Tools: []Name{SuggestPrice, GenerateMarketingCopy},
	})
}

func mustContract(name string) *schema.Contract {
	c, ok := schema.Get(name)
	if !ok {
		panic("contract not registered: " + name)
	}
	return c
}
