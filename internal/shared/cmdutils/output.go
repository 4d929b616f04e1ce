package cmdutils

import (
	"fmt"
	"strings"
)

const logo = "✈️"

// PrintResponse prints an assistant reply with the SkyDesk banner. When the
// reply carries attribution a provenance line names the backend that answered
// and any tools that ran, mirroring the fields the HTTP API returns. Canned
// replies pass backend "" and print without one.
func PrintResponse(text, backend string, toolsUsed []string) {
	if text == "" {
		return
	}

	fmt.Printf("\n%s SkyDesk\n%s\n", logo, text)
	if backend != "" {
		prov := "backend: " + backend
		if len(toolsUsed) > 0 {
			prov += ", tools: " + strings.Join(toolsUsed, ", ")
		}
		fmt.Printf("[%s]\n", prov)
	}
	fmt.Println()
}
