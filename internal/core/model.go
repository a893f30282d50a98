package core

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Defaults used when the message view lacks a field
const (
	DefaultSender      = "Unknown Sender"
	DefaultSenderEmail = "unknown@example.com"
	DefaultSubject     = "No Subject"
	DefaultBody        = "No Body"
)

// ExtractedFields holds the structured content of one displayed message
type ExtractedFields struct {
	Sender      string
	SenderEmail string
	Subject     string
	Body        string
	FullText    string
}

// NewExtractedFields builds the classification payload from field values as
// found. Defaults for missing elements are the extractor's concern; an
// element that is present but empty gives an empty value.
func NewExtractedFields(sender, senderEmail, subject, body string) ExtractedFields {
	f := ExtractedFields{
		Sender:      sender,
		SenderEmail: senderEmail,
		Subject:     subject,
		Body:        body,
	}
	f.FullText = fmt.Sprintf("Sender: %s (%s)\nSubject: %s\nBody: %s", f.Sender, f.SenderEmail, f.Subject, f.Body)
	return f
}

// Label is the verdict of the classification service
type Label int

const (
	LabelBenign Label = iota
	LabelSuspicious
)

// ParseLabel maps a wire label to a Label. Only "LABEL_1" and "SUSPICIOUS"
// mean suspicious; anything else is benign.
func ParseLabel(raw string) Label {
	switch strings.ToUpper(strings.TrimSpace(raw)) {
	case "LABEL_1", "SUSPICIOUS":
		return LabelSuspicious
	default:
		return LabelBenign
	}
}

func (l Label) String() string {
	if l == LabelSuspicious {
		return "SUSPICIOUS"
	}
	return "BENIGN"
}

// Classification is the result of a successful classification round-trip
type Classification struct {
	Label       Label
	RawLabel    string
	Score       float64
	Explanation string
}

// FormatScore renders a score with exactly two decimals, rounding halves up
func FormatScore(score float64) string {
	return strconv.FormatFloat(math.Floor(score*100+0.5)/100, 'f', 2, 64)
}

// State is a step of the per-node processing state machine. A node that
// was never submitted has no state.
type State string

const (
	StateClaimed              State = "claimed"
	StateExtracted            State = "extracted"
	StateClassified           State = "classified"
	StateClassificationFailed State = "classification_failed"
	StateAnnotated            State = "annotated"
	StateBlocklistChecked     State = "blocklist_checked"
	StateDone                 State = "done"
)
