package knowledge

import (
	"context"
	"encoding/json"
	"fmt"
)

// SearchTool exposes the retrieval engine as a model-callable capability.
type SearchTool struct {
	store *Store
}

func NewSearchTool(store *Store) *SearchTool {
	return &SearchTool{store: store}
}

func (t *SearchTool) Name() string { return "search_airline_policies" }

func (t *SearchTool) Description() string {
	return "Search ERWIQ Airlines knowledge base for policies, FAQs, and procedures. " +
		"Use this when a customer asks about baggage rules, check-in procedures, refund policies, " +
		"pet travel, wheelchair assistance, loyalty programs, ID requirements, or any airline policy."
}

func (t *SearchTool) Parameters() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {
			"query": {
				"type": "string",
				"description": "The topic or question to search for in the knowledge base"
			}
		},
		"required": ["query"],
		"additionalProperties": false
	}`)
}

// Execute answers the query from the corpus. Lookup failures come back as
// tool text, not errors, so the model can still close out the exchange.
func (t *SearchTool) Execute(ctx context.Context, params map[string]any) (string, error) {
	query, _ := params["query"].(string)
	if query == "" {
		return "Error: query is required", nil
	}
	answer, err := t.store.Answer(ctx, query)
	if err != nil {
		return fmt.Sprintf("Error searching policies: %v", err), nil
	}
	return answer, nil
}
