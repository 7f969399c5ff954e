package story

import (
	"fmt"
	"strings"

	"taleweaver/types"
	"taleweaver/utils"
)

type Mode string

const (
	ModeInit     Mode = "init"
	ModeContinue Mode = "continue"
	ModeImprove  Mode = "improve"
)

const (
	// payloadHistoryEntries is how many history entries a continue payload carries
	payloadHistoryEntries = 8
	// promptStorySegments is how many story segments a continue prompt quotes
	promptStorySegments = 2
)

// Payload is everything a prompt is built from. Which fields matter depends on Mode.
type Payload struct {
	Mode  Mode
	Story types.StoryData

	OpeningScene string               // init
	History      []types.HistoryEntry // continue
	LatestChoice string               // continue

	CurrentContent     string // improve
	ImprovementRequest string // improve
}

func InitPayload(story types.StoryData, openingScene string) Payload {
	return Payload{Mode: ModeInit, Story: story, OpeningScene: openingScene}
}

// ContinuePayload keeps only the most recent history entries
func ContinuePayload(story types.StoryData, history []types.HistoryEntry, latestChoice string) Payload {
	return Payload{
		Mode:         ModeContinue,
		Story:        story,
		History:      utils.LastN(history, payloadHistoryEntries),
		LatestChoice: latestChoice,
	}
}

func ImprovementPayload(story types.StoryData, currentContent, request string) Payload {
	return Payload{Mode: ModeImprove, Story: story, CurrentContent: currentContent, ImprovementRequest: request}
}

// BuildPrompt renders the prompt text for a payload
func BuildPrompt(p Payload) (string, error) {
	switch p.Mode {
	case ModeInit:
		return buildInitPrompt(p), nil
	case ModeContinue:
		return buildContinuePrompt(p), nil
	case ModeImprove:
		return buildImprovePrompt(p), nil
	default:
		return "", fmt.Errorf("unknown payload mode: %q", p.Mode)
	}
}

func genreList(story types.StoryData) string {
	if len(story.Genres) == 0 {
		return "adventure"
	}
	return strings.Join(story.Genres, ", ")
}

func characterList(story types.StoryData) string {
	if len(story.Characters) == 0 {
		return "The protagonist"
	}
	names := make([]string, 0, len(story.Characters))
	for _, c := range story.Characters {
		if c.Role != "" {
			names = append(names, fmt.Sprintf("%s (%s)", c.Name, c.Role))
		} else {
			names = append(names, c.Name)
		}
	}
	return strings.Join(names, ", ")
}

// writeContext writes the optional themes/setting lines followed by characters
func writeContext(b *strings.Builder, story types.StoryData) {
	if len(story.Themes) > 0 {
		fmt.Fprintf(b, "- Themes: %s\n", strings.Join(story.Themes, ", "))
	}
	if story.Setting != "" {
		fmt.Fprintf(b, "- Setting: %s\n", story.Setting)
	}
	fmt.Fprintf(b, "- Characters: %s\n", characterList(story))
}

func buildInitPrompt(p Payload) string {
	var b strings.Builder
	b.WriteString("You are an accomplished novelist. Write the opening of a story that pulls the reader in from the first sentence.\n\n")
	b.WriteString("STORY ELEMENTS:\n")
	fmt.Fprintf(&b, "- Genre: %s\n", genreList(p.Story))
	writeContext(&b, p.Story)
	fmt.Fprintf(&b, "- Opening scene: %s\n\n", p.OpeningScene)
	b.WriteString("Write 3-4 paragraphs of third person, past tense prose. ")
	b.WriteString("Open on action, dialogue or an intriguing moment, build atmosphere through concrete sensory detail, ")
	b.WriteString("introduce the protagonist through behavior and leave the reader with a reason to keep going.\n")
	b.WriteString("Return only the narrative: no headings, no character lists, no choices for the reader.")
	return b.String()
}

func buildContinuePrompt(p Payload) string {
	var segments []types.HistoryEntry
	for _, entry := range p.History {
		if entry.Kind == types.HistoryStory {
			segments = append(segments, entry)
		}
	}
	segments = utils.LastN(segments, promptStorySegments)

	recent := make([]string, 0, len(segments))
	for _, s := range segments {
		recent = append(recent, s.Content)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "You are an accomplished novelist continuing a %s story.\n\n", genreList(p.Story))
	b.WriteString("STORY CONTEXT:\n")
	writeContext(&b, p.Story)
	b.WriteString("\nPREVIOUS NARRATIVE:\n")
	b.WriteString(strings.Join(recent, "\n\n"))
	fmt.Fprintf(&b, "\n\nREADER'S DIRECTION: %s\n\n", p.LatestChoice)
	b.WriteString("Write the next 3-4 paragraphs. Follow on naturally from the previous scene, respond to the reader's direction ")
	b.WriteString("and move the plot forward. Keep the established voice and tone.\n")
	b.WriteString("Return only the narrative: no options, no commentary.")
	return b.String()
}

func buildImprovePrompt(p Payload) string {
	var b strings.Builder
	b.WriteString("You are a professional fiction editor. Rewrite the story below into polished, publishable prose.\n\n")
	b.WriteString("CURRENT STORY:\n")
	b.WriteString(p.CurrentContent)
	fmt.Fprintf(&b, "\n\nIMPROVEMENT REQUEST: %s\n\n", p.ImprovementRequest)
	b.WriteString("STORY CONTEXT:\n")
	fmt.Fprintf(&b, "- Genre: %s\n", genreList(p.Story))
	writeContext(&b, p.Story)
	b.WriteString("\nRewrite the whole story, addressing the request. Keep paragraph breaks where the story has them ")
	b.WriteString("so the revision can be compared line by line with the original.\n")
	b.WriteString("Return only the rewritten story.")
	return b.String()
}
