package image

import (
	"fmt"
	"strings"

	"studio/internal/domain"
)

// DefaultNegativePrompt captures undesirable artefacts we want the model to avoid.
const DefaultNegativePrompt = "low quality, blurry, distorted, washed out, incorrect anatomy, extra limbs, text artefacts, watermark"

// BuildScenePrompt converts a scene request into a natural language
// instruction for text-to-image models.
func BuildScenePrompt(req domain.GenerationRequest) string {
	var lines []string
	direction := strings.TrimSpace(req.Prompt)
	if direction == "" {
		direction = strings.TrimSpace(req.Query)
	}
	if direction != "" {
		lines = append(lines, fmt.Sprintf("Create a cinematic still for a promotional video: %s.", strings.TrimSuffix(direction, ".")))
	} else {
		lines = append(lines, "Create a cinematic still for a promotional video.")
	}
	if mood := strings.TrimSpace(req.Mood); mood != "" {
		lines = append(lines, fmt.Sprintf("Mood: %s.", mood))
	}
	if aspect := strings.TrimSpace(req.AspectRatio); aspect != "" {
		lines = append(lines, fmt.Sprintf("Compose for a %s frame with room for on-screen text.", aspect))
	}
	lines = append(lines, "Photorealistic lighting, sharp focus, no text, no logos, no watermark.")
	return strings.Join(lines, "\n")
}

// AspectRatioSize maps an aspect ratio string to a DashScope size token.
func AspectRatioSize(aspect string) string {
	switch strings.TrimSpace(aspect) {
	case "16:9":
		return "1280*720"
	case "4:3":
		return "1152*864"
	case "3:4":
		return "864*1152"
	case "9:16":
		return "720*1280"
	default:
		return "1024*1024"
	}
}
