package embedded

import (
	_ "embed"
)

// Embed all prompt data files
//
//go:embed data/prompts/requirements_extraction.txt
var RequirementsExtractionPromptTxt []byte

//go:embed data/prompts/revit_query.txt
var RevitQueryPromptTxt []byte
