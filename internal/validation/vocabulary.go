package validation

// DefaultConfig returns the built-in vocabularies.
func DefaultConfig() Config {
	return Config{
		MatureAudienceTerms: []string{
			"senior", "seniors", "elderly", "older adults", "older people", "retiree", "retirees",
			"retirement", "aging", "ageing", "menopause", "mature", "over 50", "over 60", "50+", "60+",
			"65+", "boomers", "grandparents",
		},
		ChildTerms: []string{
			"child", "children", "kid", "kids", "toddler", "toddlers", "baby", "babies", "infant",
			"infants", "newborn", "teen", "teens", "teenager", "teenagers", "adolescent", "adolescents",
			"youth", "schoolchild", "schoolchildren", "little girl", "little boy", "preschool",
		},
		FemaleTerms: []string{
			"women", "woman", "female", "females", "ladies", "lady", "girl", "girls", "mother",
			"mothers", "mom", "moms", "wife", "bride", "businesswoman",
		},
		MaleTerms: []string{
			"men", "man", "male", "males", "gentleman", "gentlemen", "guy", "guys", "boy", "boys",
			"father", "fathers", "dad", "dads", "husband", "groom", "businessman", "beard", "bearded",
		},
		NeutralTerms: []string{
			"nature", "landscape", "forest", "mountain", "ocean", "beach", "sky", "sunset", "flower",
			"flowers", "plant", "plants", "garden", "abstract", "texture", "pattern", "background",
			"gradient", "wellness", "candle", "yoga mat", "essential oil", "tea", "supplement",
			"bottle", "product", "still life", "food", "fruit",
		},
		NegativeTerms: []string{
			"violence", "violent", "blood", "bloody", "gore", "gun", "guns", "rifle", "weapon",
			"weapons", "knife", "fight", "fighting", "drugs", "cocaine", "heroin", "syringe",
			"overdose", "alcohol", "beer", "vodka", "whiskey", "drunk", "gambling", "casino", "nude",
			"nudity", "nsfw", "explicit", "lingerie", "corpse", "war",
		},
		ContextRules: []ContextRule{
			{
				Name:     "weight",
				Triggers: []string{"weight", "scale", "weight loss", "diet", "overweight", "obesity"},
				Banned:   []string{"smoking", "smoke", "cigarette", "cigarettes", "cigar", "vape", "vaping", "tobacco"},
			},
			{
				Name:     "frustration",
				Triggers: []string{"frustration", "frustrated", "stress", "stressed", "anxiety", "angry", "overwhelmed"},
				Banned:   []string{"smoking", "smoke", "cigarette", "cigarettes", "cigar", "vape", "vaping", "tobacco", "pills"},
			},
		},
	}
}
