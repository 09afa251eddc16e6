// Package safety defines the content-filtering policy applied to every
// generative call. A policy is a fixed set of (harm category, blocking
// threshold) pairs, declared statically per flow and never mutated at
// runtime. Provider clients translate the settings into their own
// filter configuration.
package safety

import "github.com/artisanhub/craft-ai-bridge/types"

type Category string

const (
	CategoryHateSpeech       Category = "hate_speech"
	CategoryDangerousContent Category = "dangerous_content"
	CategoryHarassment       Category = "harassment"
	CategorySexualContent    Category = "sexual_content"
)

type Threshold string

const (
	// ThresholdBlockLowAndAbove blocks content with low probability of
	// harm or higher (strictest).
	ThresholdBlockLowAndAbove Threshold = "block_low_and_above"
	// ThresholdBlockMediumAndAbove blocks medium probability and higher.
	ThresholdBlockMediumAndAbove Threshold = "block_medium_and_above"
	// ThresholdBlockOnlyHigh blocks only high-probability harm.
	ThresholdBlockOnlyHigh Threshold = "block_only_high"
	// ThresholdBlockNone disables blocking for the category.
	ThresholdBlockNone Threshold = "block_none"
)

type Setting struct {
	Category  Category
	Threshold Threshold
}

// Policy is an immutable set of settings applied uniformly to one
// flow's invocations.
type Policy struct {
	settings []Setting
}

func NewPolicy(settings ...Setting) Policy {
	return Policy{settings: append([]Setting(nil), settings...)}
}

// Default blocks medium-and-above probability for all four harm
// categories, except dangerous content which blocks only high. This is
// deliberately permissive about craft-adjacent content (knives, kilns,
// dyes) that stricter thresholds misfire on.
func Default() Policy {
	return NewPolicy(
		Setting{CategoryHateSpeech, ThresholdBlockMediumAndAbove},
		Setting{CategoryDangerousContent, ThresholdBlockOnlyHigh},
		Setting{CategoryHarassment, ThresholdBlockMediumAndAbove},
		Setting{CategorySexualContent, ThresholdBlockMediumAndAbove},
	)
}

// Settings returns the policy in the wire-neutral representation
// carried on types.Request.
func (p Policy) Settings() []types.SafetySetting {
	out := make([]types.SafetySetting, 0, len(p.settings))
	for _, s := range p.settings {
		out = append(out, types.SafetySetting{
			Category:  string(s.Category),
			Threshold: string(s.Threshold),
		})
	}
	return out
}

func (p Policy) Len() int { return len(p.settings) }
