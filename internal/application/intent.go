package application

import "voicelab/internal/domain"

type CommandMatcher interface {
	Match(text string) (domain.Endpoint, bool)
}
