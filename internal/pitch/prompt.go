package pitch

import (
	"fmt"
	"strings"

	"leadsniper.app/internal/lead"
	"leadsniper.app/internal/profile"
)

const maxDescriptionChars = 1500

// buildUserPrompt assembles the deterministic context block handed to the
// model. Field order is fixed so identical inputs produce identical prompts.
func buildUserPrompt(l lead.Lead, p profile.Profile, instructions string, tone Tone, length Length) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Job Title: %s\n", orDefault(l.Title, "Untitled"))
	fmt.Fprintf(&b, "Company: %s\n", orDefault(l.Company, "Unknown"))
	fmt.Fprintf(&b, "Location: %s\n", orDefault(l.Location, "Remote / Not specified"))
	fmt.Fprintf(&b, "Requirements: %s\n", formatRequirements(l.Requirements))
	fmt.Fprintf(&b, "Description: %s\n", orDefault(truncate(l.Description, maxDescriptionChars), "No description provided."))
	fmt.Fprintf(&b, "User Instructions: %s\n", orDefault(instructions, "None"))
	fmt.Fprintf(&b, "Desired Tone: %s\n", tone)
	fmt.Fprintf(&b, "Desired Length: %s\n", length)
	fmt.Fprintf(&b, "User's Skills: %s", formatSkills(p.Skills))
	return b.String()
}

// buildSystemPrompt frames the model as a pitch copywriter with a fixed
// structure and the length target for the requested size.
func buildSystemPrompt(tone Tone, length Length) string {
	return fmt.Sprintf(`You are an elite career coach and copywriter specializing in high-conversion job applications. Your task is to craft a personalized pitch that makes the reader feel the candidate is the perfect fit.

Guidelines:
- Use the desired tone (%s) but always maintain authenticity.
- Seamlessly weave the candidate's skills (provided) into the requirements of the job.
- Show deep understanding of the company's mission or industry (infer from job description).
- Include a specific, compelling example that demonstrates impact.
- End with a confident call-to-action.

Structure:
1. Opening hook: grab attention by addressing a challenge or goal mentioned in the description.
2. Value proposition: align the candidate's strongest skills with 2-3 key requirements.
3. Proof of success: briefly mention a past achievement relevant to the role.
4. Cultural fit: express genuine enthusiasm for the company's work.
5. Closing: clear, polite call-to-action.

Length: approx. %d words.`, tone, length.wordTarget())
}

func formatRequirements(reqs []string) string {
	if len(reqs) == 0 {
		return "Not specified"
	}
	return strings.Join(reqs, ", ")
}

func formatSkills(skills []string) string {
	if len(skills) == 0 {
		return "your skills"
	}
	return strings.Join(skills, ", ")
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max]
}

func orDefault(s, def string) string {
	if strings.TrimSpace(s) == "" {
		return def
	}
	return s
}
