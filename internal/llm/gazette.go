// Gazette generation turns the day's city state and feed into a
// short newspaper issue. Falls back to a plain-text digest when the
// advisory service is unavailable.
package llm

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// GazetteData holds the raw material for one issue.
type GazetteData struct {
	Day        int
	Population int
	Money      float64
	Happiness  float64
	TaxRate    float64
	Weather    string
	Disaster   string
	Goal       string
	Headlines  []string // recent feed items, newest last
}

// Gazette is a generated issue.
type Gazette struct {
	GeneratedAt time.Time `json:"generated_at"`
	Day         int       `json:"day"`
	Content     string    `json:"content"`
}

const gazetteSystemPrompt = `You are the editor of "The Gridside Gazette", the daily paper of a small simulated city. Write a short, lively issue (under 400 words) from the facts provided: a headline story, a word on the economy, the weather, and anything odd from the feed. Stay in-world; never mention the simulation.`

// GenerateGazette creates a daily issue, falling back to a plain
// digest on any advisory failure.
func GenerateGazette(ctx context.Context, client *Client, data *GazetteData) *Gazette {
	issue := &Gazette{GeneratedAt: time.Now(), Day: data.Day}

	if client.Enabled() {
		content, err := client.Complete(ctx, gazetteSystemPrompt, buildGazettePrompt(data), 800)
		if err == nil {
			issue.Content = content
			return issue
		}
	}

	issue.Content = fallbackGazette(data)
	return issue
}

func buildGazettePrompt(data *GazetteData) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Write today's edition for day %d.\n\n", data.Day)
	fmt.Fprintf(&b, "CITY: %d residents, treasury %.0f, happiness %.0f/100, tax rate %.0f%%.\n",
		data.Population, data.Money, data.Happiness, data.TaxRate*100)
	fmt.Fprintf(&b, "WEATHER: %s\n", data.Weather)
	if data.Disaster != "" {
		fmt.Fprintf(&b, "ONGOING CRISIS: %s\n", data.Disaster)
	}
	if data.Goal != "" {
		fmt.Fprintf(&b, "CITY HALL OBJECTIVE: %s\n", data.Goal)
	}
	if len(data.Headlines) > 0 {
		b.WriteString("\nRECENT FEED:\n")
		for _, h := range data.Headlines {
			fmt.Fprintf(&b, "- %s\n", h)
		}
	}
	return b.String()
}

func fallbackGazette(data *GazetteData) string {
	var b strings.Builder

	fmt.Fprintf(&b, "THE GRIDSIDE GAZETTE\n")
	fmt.Fprintf(&b, "====================\n")
	fmt.Fprintf(&b, "Day %d\n\n", data.Day)

	fmt.Fprintf(&b, "CITY REPORT\n")
	fmt.Fprintf(&b, "The city counts %d residents. Treasury: %.0f. Public mood: %.0f/100.\n\n",
		data.Population, data.Money, data.Happiness)

	fmt.Fprintf(&b, "WEATHER\n%s\n\n", data.Weather)

	if data.Disaster != "" {
		fmt.Fprintf(&b, "CRISIS DESK\n%s\n\n", data.Disaster)
	}
	if data.Goal != "" {
		fmt.Fprintf(&b, "FROM CITY HALL\n%s\n\n", data.Goal)
	}
	if len(data.Headlines) > 0 {
		fmt.Fprintf(&b, "IN BRIEF\n")
		for _, h := range data.Headlines {
			fmt.Fprintf(&b, "- %s\n", h)
		}
	}
	return b.String()
}
