package segment

import "github.com/hyperjump/kubun/internal/heading"

// Built-in thresholds.
const (
	MethodsAnchorThreshold             = 0.65
	MethodsFallbackThreshold           = 0.5
	MethodsStopwordThreshold           = 0.65
	ResultsDiscussionAnchorThreshold   = 0.8
	ResultsDiscussionStopwordThreshold = 0.65

	// DefaultThreshold is the whole-heading threshold for abstract alternates.
	DefaultThreshold = 0.9
)

var (
	methodsAnchors = []string{
		"materials and methods",
		"methods and materials",
		"methods",
		"methodology",
		"experimental procedures",
		"experimental section",
		"laboratory methods",
		"investigational methods",
		"study design",
		"research design",
		"methodological framework",
		"study protocol",
		"clinical protocol",
		"protocol",
		"materials",
		"materials, subjects and methods",
	}

	methodsStopwords = []string{
		"results",
		"discussion",
		"conclusion",
		"conclusions",
		"references",
		"introduction",
		"acknowledgements",
		"supplementary material",
		"supporting information",
		"appendix",
		"data availability",
		"conflict of interest",
		"author contributions",
	}

	// laboratory and analytical vocabulary for token-level fallback
	methodKeywords = []string{
		// lab actions
		"purified", "purification", "clone", "cloning", "plasmid", "vector",
		"transfect", "transfection", "incubate", "centrifuge", "lysis",
		"assay", "culture", "strain", "buffer", "elution", "protein",
		"expression", "construct", "sequence", "inoculation", "growth media",
		"induction", "extraction", "quantification", "optimization", "reagent",
		// expression and purification
		"expressed", "induced", "cleaved", "filtration", "folding", "refolding",
		"inclusion bodies", "polishing", "promoter", "column",
		"tag", "fusion", "media", "od600",
		// analytical and structural biology
		"analysis", "mass spectrometry", "spectrometry", "ms analysis",
		"protein purification", "affinity purification", "chromatography",
		"gel filtration", "western blot", "immunoblot", "sds-page",
		"pcr amplification", "rt-pcr", "qpcr", "sequencing",
		"next-generation sequencing", "rna-seq", "microscopy",
		"electron microscopy", "confocal microscopy", "crystallization",
		"x-ray crystallography", "reagents",
		// bioanalytical techniques
		"maldi-tof", "esi-ms", "lc-ms", "ms/ms", "uv-vis", "cd spectroscopy",
		"fluorescence spectroscopy", "ftir", "raman spectroscopy", "nmr spectroscopy",
		"sec", "hplc", "hic", "sec-mals", "dls", "auc", "dsf",
		// functional assays
		"enzyme activity assay", "cell proliferation", "cytotoxicity",
		"reporter assay", "inhibition assay", "ligand binding", "elisa",
		"flow cytometry", "immunoprecipitation",
	}

	methodTypeHints = []string{"method", "material"}

	mergedResultsDiscussionAnchors = []string{
		"results and discussion",
		"discussion and results",
		"results/discussion",
		"results & discussion",
	}
	resultsAnchors = []string{
		"results",
		"findings",
		"experimental results",
		"observations",
		"experimental findings",
		"research results",
	}
	discussionAnchors = []string{
		"discussion",
		"interpretation",
		"implications",
	}

	resultsDiscussionStopwords = []string{
		"conclusion",
		"conclusions",
		"references",
		"acknowledgements",
		"acknowledgments",
	}

	abstractAlternates = []string{"introduction", "background", "overview", "summary"}
)

// MethodsSpec returns the built-in Methods configuration input.
func MethodsSpec() ConfigSpec {
	return ConfigSpec{
		Name:              "methods",
		Anchors:           methodsAnchors,
		Stopwords:         methodsStopwords,
		FallbackKeywords:  methodKeywords,
		TypeHintMarkers:   methodTypeHints,
		AnchorThreshold:   MethodsAnchorThreshold,
		FallbackThreshold: MethodsFallbackThreshold,
		StopwordThreshold: MethodsStopwordThreshold,
	}
}

// ResultsDiscussionSpec returns the built-in merged Results/Discussion configuration input.
// "results" and "discussion" are anchors here, not stopwords, so they can appear as
// subheadings once capture has begun.
func ResultsDiscussionSpec() ConfigSpec {
	anchors := make([]string, 0, len(mergedResultsDiscussionAnchors)+len(resultsAnchors)+len(discussionAnchors))
	anchors = append(anchors, mergedResultsDiscussionAnchors...)
	anchors = append(anchors, resultsAnchors...)
	anchors = append(anchors, discussionAnchors...)
	return ConfigSpec{
		Name:              "results_discussion",
		Anchors:           anchors,
		Stopwords:         resultsDiscussionStopwords,
		AnchorThreshold:   ResultsDiscussionAnchorThreshold,
		StopwordThreshold: ResultsDiscussionStopwordThreshold,
	}
}

// Built-in configurations shared by every engine run.
var (
	Methods            = MustSectionMatchConfig(MethodsSpec())
	ResultsDiscussion  = MustSectionMatchConfig(ResultsDiscussionSpec())
	AbstractAlternates = heading.MustPhraseSet("abstract/alternates", abstractAlternates...)
)
