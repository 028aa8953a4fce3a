package domain

import "fmt"

type OutcomeKind int

const (
	// OutcomeUnintelligible covers silence and audio the recognizer could not make out.
	OutcomeUnintelligible OutcomeKind = iota
	OutcomeHeard
	OutcomeServiceError
)

func (k OutcomeKind) String() string {
	switch k {
	case OutcomeHeard:
		return "heard"
	case OutcomeServiceError:
		return "service_error"
	default:
		return "unintelligible"
	}
}

// Outcome is the result of one listen cycle.
type Outcome struct {
	Kind   OutcomeKind
	Text   string
	Detail string
}

func Heard(text string) Outcome {
	return Outcome{Kind: OutcomeHeard, Text: text}
}

func Unintelligible() Outcome {
	return Outcome{Kind: OutcomeUnintelligible}
}

func ServiceError(err error) Outcome {
	detail := "unknown error"
	if err != nil {
		detail = err.Error()
	}
	return Outcome{Kind: OutcomeServiceError, Detail: detail}
}

func (o Outcome) String() string {
	switch o.Kind {
	case OutcomeHeard:
		return fmt.Sprintf("heard(%q)", o.Text)
	case OutcomeServiceError:
		return fmt.Sprintf("service_error(%s)", o.Detail)
	default:
		return "unintelligible"
	}
}

// Clip is one captured utterance as 16-bit mono PCM.
type Clip struct {
	Samples    []int16
	SampleRate int
}

func (c Clip) Empty() bool {
	return len(c.Samples) == 0
}
