package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ImageGenerator produces image bytes for a prompt. Satisfied by the OpenAI
// provider client.
type ImageGenerator interface {
	GenerateImage(ctx context.Context, prompt string) ([]byte, error)
}

// DestinationImageTool renders a travel poster for an Indian destination
// city and writes it next to the working directory.
type DestinationImageTool struct {
	generator ImageGenerator
	outDir    string
}

// NewDestinationImageTool creates the tool. outDir is where generated
// posters are written; empty means the current directory.
func NewDestinationImageTool(generator ImageGenerator, outDir string) *DestinationImageTool {
	return &DestinationImageTool{generator: generator, outDir: outDir}
}

func (t *DestinationImageTool) Name() string { return "get_destination_image" }
func (t *DestinationImageTool) Description() string {
	return "Generate a beautiful travel image of an Indian destination city. Use this when a customer wants to see what a destination looks like."
}
func (t *DestinationImageTool) Parameters() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {
			"city": {
				"type": "string",
				"description": "The Indian city to generate an image for"
			}
		},
		"required": ["city"],
		"additionalProperties": false
	}`)
}

func (t *DestinationImageTool) Execute(ctx context.Context, params map[string]any) (string, error) {
	city, _ := params["city"].(string)
	if strings.TrimSpace(city) == "" {
		return "Error: city is required", nil
	}

	prompt := fmt.Sprintf("A beautiful vibrant travel poster showcasing %s, India as a travel destination, featuring iconic landmarks, local culture, temples, markets, and atmosphere. High quality, inspiring wanderlust, colorful Indian aesthetic.", city)

	data, err := t.generator.GenerateImage(ctx, prompt)
	if err != nil {
		return fmt.Sprintf("Sorry, I couldn't generate an image for %s: %v", city, err), nil
	}

	filename := fmt.Sprintf("destination_%s.png", strings.ReplaceAll(strings.ToLower(city), " ", "_"))
	path := filepath.Join(t.outDir, filename)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Sprintf("Sorry, I couldn't generate an image for %s: %v", city, err), nil
	}

	return fmt.Sprintf("I've generated a beautiful travel image of %s for you! The image showcases the iconic landmarks and vibrant culture of this amazing Indian destination.", city), nil
}
