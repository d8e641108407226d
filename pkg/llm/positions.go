package llm

import (
	"context"
	"fmt"
	"strings"
)

// Prompt templates for the two stances. The noble stance argues from
// principles, the adversary stance from outcomes.
const noblePrompt = `You are the Noble Engine in the Moralogy framework.
Your role is to argue from a deontological, principle-based perspective.

Core principles:
- Preserve human agency and dignity
- Apply categorical imperatives
- Prioritize moral principles over outcomes
- Consider long-term implications for moral frameworks

Analyze this dilemma and provide your position in 2-3 concise sentences:

Dilemma: %s

Focus on principles, rights, and duties.`

const adversaryPrompt = `You are the Adversary Engine in the Moralogy framework.
Your role is to argue from a consequentialist, outcome-focused perspective.

Core principles:
- Maximize overall wellbeing
- Consider practical outcomes
- Apply utilitarian calculations
- Focus on real-world effectiveness

Analyze this dilemma and provide your position in 2-3 concise sentences:

Dilemma: %s

Focus on outcomes, utility, and consequences.`

// Positions are the two independently prompted stances on one dilemma.
type Positions struct {
	Noble     string `json:"noble_position"`
	Adversary string `json:"adversary_position"`
}

// PositionProvider produces the two stances for a dilemma text.
type PositionProvider interface {
	Positions(ctx context.Context, dilemma string) (Positions, error)
}

// ChatPositionProvider obtains both stances from a chat client with two
// independent prompts.
type ChatPositionProvider struct {
	client Client
}

// NewChatPositionProvider wraps a chat client.
func NewChatPositionProvider(client Client) *ChatPositionProvider {
	return &ChatPositionProvider{client: client}
}

func (p *ChatPositionProvider) Positions(ctx context.Context, dilemma string) (Positions, error) {
	noble, err := p.ask(ctx, noblePrompt, dilemma)
	if err != nil {
		return Positions{}, fmt.Errorf("noble position: %w", err)
	}
	adversary, err := p.ask(ctx, adversaryPrompt, dilemma)
	if err != nil {
		return Positions{}, fmt.Errorf("adversary position: %w", err)
	}
	return Positions{Noble: noble, Adversary: adversary}, nil
}

func (p *ChatPositionProvider) ask(ctx context.Context, template, dilemma string) (string, error) {
	content, err := p.client.Chat(ctx, []Message{
		{Role: "user", Content: fmt.Sprintf(template, dilemma)},
	})
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(content), nil
}

// StaticPositionProvider returns fixed stance texts. Used offline and in
// tests, where the model collaborator is unavailable.
type StaticPositionProvider struct{}

func (StaticPositionProvider) Positions(_ context.Context, _ string) (Positions, error) {
	return Positions{
		Noble:     "Agency must be preserved; intervention justified only under clear loss.",
		Adversary: "Early intervention reduces catastrophic future collapse.",
	}, nil
}
