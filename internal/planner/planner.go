package planner

import (
	"context"
	"fmt"
	"time"

	"github.com/ivlev/text2video/internal/config"
)

type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

type ChatMessage struct {
	Role    Role
	Content string
}

// ChatRequest is one chat completion call. When Schema is set the service
// is asked for a JSON object matching it.
type ChatRequest struct {
	Model       string
	Temperature float64
	MaxTokens   int
	Messages    []ChatMessage
	SchemaName  string
	Schema      interface{}
}

// ChatCompleter returns the message content of the first completion choice.
type ChatCompleter interface {
	Complete(ctx context.Context, req ChatRequest) (string, error)
}

// DefaultInstruction is the planning instruction of the reference recipe.
const DefaultInstruction = "You are generating prompts to a text-to-video model that takes a prompt and generates a video. " +
	"Generate a 4 step description. " +
	"Each step should be an input to the video generation model. " +
	"All the 4 steps should describe a scene independent of each other. " +
	"The model cannot take previous prompt for context. " +
	"The model is not good at generating complex scenes, " +
	"so the prompts should be very simple, with simple colors and plain background. " +
	"Also, the prompts should be very short, at a maximum of 8 words each. " +
	"Do not use words like 'steep'."

// DefaultQuery is the user request of the reference recipe.
const DefaultQuery = "how to make tea?"

// Planner turns a query into an ordered list of scene descriptions.
type Planner struct {
	Chat           ChatCompleter
	Model          string
	SystemRole     string
	Temperature    float64
	MaxTokens      int
	Format         string
	StripNumbering bool
}

func NewPlanner(chat ChatCompleter, cfg *config.Config) *Planner {
	return &Planner{
		Chat:           chat,
		Model:          cfg.ChatModel,
		SystemRole:     cfg.SystemRole,
		Temperature:    cfg.Temperature,
		MaxTokens:      cfg.MaxTokens,
		Format:         cfg.PlanFormat,
		StripNumbering: cfg.StripNumbering,
	}
}

// BuildUserPrompt embeds the formatting constraints and the back-ticked
// query into the planning instruction.
func BuildUserPrompt(instruction, query, format string) string {
	if format == config.PlanFormatJSON {
		return fmt.Sprintf("%s\n"+
			"Only generate a JSON object with a \"scenes\" array holding one string per step, "+
			"without any numbering or - at the beginning of each step, "+
			"for the query delimited by back ticks "+
			"NOTE: do not include a summary step at the beginning saying 'follow these steps'\n"+
			"```%s```\n", instruction, query)
	}
	return fmt.Sprintf("%s\n"+
		"Only generate a list of steps delimited by a new line character "+
		"without any numbering or - at the beginning of each line, "+
		"for the query delimited by back ticks "+
		"NOTE: do not include a summary line at the beginning saying 'follow these steps'\n"+
		"```%s```\n", instruction, query)
}

// Plan issues a single chat completion and parses its content into scenes.
func (p *Planner) Plan(ctx context.Context, instruction, query string) (*Plan, error) {
	req := ChatRequest{
		Model:       p.Model,
		Temperature: p.Temperature,
		MaxTokens:   p.MaxTokens,
		Messages: []ChatMessage{
			{Role: RoleSystem, Content: p.SystemRole},
			{Role: RoleUser, Content: BuildUserPrompt(instruction, query, p.Format)},
		},
	}
	if p.Format == config.PlanFormatJSON {
		req.SchemaName = "scene_list"
		req.Schema = sceneListSchema
	}

	content, err := p.Chat.Complete(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("scene planning: %w", err)
	}

	opts := ParseOptions{StripNumbering: p.StripNumbering}
	var scenes []string
	if p.Format == config.PlanFormatJSON {
		scenes, err = ParseJSONScenes(content, opts)
	} else {
		scenes, err = ParseScenes(content, opts)
	}
	if err != nil {
		return nil, fmt.Errorf("scene planning: %w", err)
	}

	return &Plan{
		Version:   PlanVersion,
		Query:     query,
		Model:     p.Model,
		Scenes:    scenes,
		CreatedAt: time.Now().UTC(),
	}, nil
}
