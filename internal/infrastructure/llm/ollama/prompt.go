package ollama

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/kirillkom/project-brain/internal/core/domain"
)

const answerSystemPrompt = `You are an expert assistant for construction project management.
Answer questions about construction documents accurately and concisely.

Guidelines:
- Base answers ONLY on the provided context.
- If the information is not in the context, say so clearly.
- Cite the file and page when making claims.
- Be precise about materials, dimensions and ratings.
- If sources disagree, point out the discrepancy.`

const extractionSystemPrompt = `You are a precise data extraction assistant.
Extract information exactly as specified and return valid JSON only.`

func buildContext(chunks []domain.ScoredChunk) string {
	parts := make([]string, 0, len(chunks))
	for _, c := range chunks {
		parts = append(parts, fmt.Sprintf("[%s, Page %d]\n%s", c.Chunk.Filename, c.Chunk.PageNumber, c.Chunk.Text))
	}
	return strings.Join(parts, "\n\n")
}

func buildHistory(history []domain.ConversationTurn) string {
	if len(history) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString("Conversation so far:\n")
	for _, turn := range history {
		speaker := "User"
		if turn.Role == domain.RoleAssistant {
			speaker = "Assistant"
		}
		fmt.Fprintf(&b, "%s: %s\n", speaker, strings.TrimSpace(turn.Content))
	}
	b.WriteString("\n")
	return b.String()
}

func buildAnswerPrompt(question string, history []domain.ConversationTurn, chunks []domain.ScoredChunk) string {
	return fmt.Sprintf(`%sContext from project documents:

%s

Question: %s

Answer based on the context above.`, buildHistory(history), buildContext(chunks), question)
}

type recordSchema struct {
	noun   string
	fields string
	shape  string
}

var recordSchemas = map[domain.EntityType]recordSchema{
	domain.EntityDoorSchedule: {
		noun: "doors",
		fields: `- mark: door identifier (e.g. "D-101")
- location: where the door is located
- width_mm: width in millimeters (convert if needed)
- height_mm: height in millimeters (convert if needed)
- fire_rating: fire rating (e.g. "1 HR", "90 MIN", "NONE")
- material: door material (e.g. "Hollow Metal", "Wood")`,
		shape: `{"mark": "string", "location": "string", "width_mm": number, "height_mm": number, "fire_rating": "string", "material": "string"}`,
	},
	domain.EntityRoomSummary: {
		noun: "rooms",
		fields: `- name: room name or number
- area_sqm: floor area in square meters (convert if needed)
- floor_finish: floor finish material
- ceiling_height_m: ceiling height in meters, or null
- occupancy_type: type of occupancy, or null`,
		shape: `{"name": "string", "area_sqm": number, "floor_finish": "string", "ceiling_height_m": number or null, "occupancy_type": "string or null"}`,
	},
	domain.EntityEquipmentList: {
		noun: "MEP equipment items",
		fields: `- type: equipment type (e.g. "HVAC", "Electrical", "Plumbing")
- description: equipment description
- model: model number, or null
- location: installation location
- specifications: key specifications`,
		shape: `{"type": "string", "description": "string", "model": "string or null", "location": "string", "specifications": "string"}`,
	},
}

func buildRecordPrompt(entityType domain.EntityType, chunks []domain.ScoredChunk) (string, error) {
	schema, ok := recordSchemas[entityType]
	if !ok {
		return "", domain.WrapError(domain.ErrInvalidInput, "build extraction prompt", fmt.Errorf("unsupported extraction type %q", entityType))
	}
	return fmt.Sprintf(`Extract ALL %s from the following construction documents.

For each item extract:
%s

Context:
%s

Return a JSON object {"data": [...]} where every element has this structure:
%s

If nothing is found, return {"data": []}.`, schema.noun, schema.fields, buildContext(chunks), schema.shape), nil
}

var recordArrayKeys = []string{"data", "items", "results", "doors", "rooms", "equipment"}

// parseRecords accepts a bare JSON array or an object wrapping one under a
// well-known key. Non-object array elements are skipped.
func parseRecords(raw string) ([]map[string]any, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return []map[string]any{}, nil
	}

	var payload any
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		start := strings.Index(raw, "[")
		end := strings.LastIndex(raw, "]")
		if start < 0 || end <= start {
			return nil, fmt.Errorf("parse extraction json: %w", err)
		}
		if err := json.Unmarshal([]byte(raw[start:end+1]), &payload); err != nil {
			return nil, fmt.Errorf("parse extraction json: %w", err)
		}
	}

	var items []any
	switch v := payload.(type) {
	case []any:
		items = v
	case map[string]any:
		for _, key := range recordArrayKeys {
			if arr, ok := v[key].([]any); ok {
				items = arr
				break
			}
		}
	}

	out := make([]map[string]any, 0, len(items))
	for _, item := range items {
		if obj, ok := item.(map[string]any); ok {
			out = append(out, obj)
		}
	}
	return out, nil
}
