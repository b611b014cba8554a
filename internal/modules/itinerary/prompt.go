package itinerary

import (
	"encoding/json"
	"strings"
)

const systemInstruction = `You are a professional travel planning assistant. Produce a detailed trip plan for the user's request and return it as JSON.

1. The response must be one valid JSON object with these fields:
   - title: trip title
   - description: trip summary
   - startDate: start date (ISO 8601)
   - endDate: end date (ISO 8601)
   - budget: total budget in CNY
   - participants: number of travellers
   - preferences: object with food, activities and accommodation preferences
   - activities: array of scheduled activities

2. Every activity must contain:
   - title: activity title
   - description: what happens there
   - location: concrete place name or address
   - city: city name
   - countryCode: ISO 3166-1 alpha-2 country code, upper case
   - startTime: start time (ISO 8601)
   - endTime: end time (ISO 8601)
   - estimatedCost: estimated cost in CNY
   - notes: practical notes

3. Keep the schedule consistent in time and keep costs within the budget.

4. Field names are English; write descriptions in the language of the request.`

// BuildPrompt renders the single prompt sent for every attempt of a request.
func BuildPrompt(req Request) string {
	var b strings.Builder
	b.WriteString(systemInstruction)

	if req.Existing != nil {
		existing, err := json.MarshalIndent(req.Existing, "", "  ")
		if err == nil {
			b.WriteString("\n\nExisting activities:\n")
			b.Write(existing)
			b.WriteString("\nModify the existing plan instead of creating a completely new one.")
		}
	}

	b.WriteString("\n\nUser request: ")
	b.WriteString(req.Prompt)
	b.WriteString("\n\nReturn only the JSON trip plan with no other text:")
	return b.String()
}
