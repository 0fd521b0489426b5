package storage

import (
	"unicode/utf8"

	"GoEstateAI/app/domain"
)

// WindowPolicy bounds the history sent to the model. Message count is the
// primary budget; MaxTokens adds an estimated token cap when positive.
type WindowPolicy struct {
	MaxMessages   int
	MaxTokens     int
	IncludeSystem bool
}

// EstimateTokens approximates a token count as four characters per token.
func EstimateTokens(s string) int {
	return (utf8.RuneCountInString(s) + 3) / 4
}

func estimateAll(msgs []domain.Message) int {
	total := 0
	for _, m := range msgs {
		total += EstimateTokens(m.Content)
	}
	return total
}

// TrimWindow keeps the trailing non-system messages that fit the policy and
// drops leading messages until the window starts on a user turn. System
// messages are prepended when the policy includes them.
func TrimWindow(history []domain.Message, p WindowPolicy) []domain.Message {
	var system, convo []domain.Message
	for _, m := range history {
		if m.Role == domain.RoleSystem {
			system = append(system, m)
			continue
		}
		convo = append(convo, m)
	}

	if p.MaxMessages > 0 && len(convo) > p.MaxMessages {
		convo = convo[len(convo)-p.MaxMessages:]
	}
	if p.MaxTokens > 0 {
		budget := p.MaxTokens
		if p.IncludeSystem {
			budget -= estimateAll(system)
		}
		for len(convo) > 1 && estimateAll(convo) > budget {
			convo = convo[1:]
		}
	}
	for len(convo) > 0 && convo[0].Role != domain.RoleUser {
		convo = convo[1:]
	}

	out := make([]domain.Message, 0, len(system)+len(convo))
	if p.IncludeSystem {
		out = append(out, system...)
	}
	return append(out, convo...)
}
