package generate

import (
	"fmt"
	"strings"

	"examgen-server/internal/model"
)

// systemPrompt primes the model for machine-readable output. Raw JSON only;
// fences and prose are repaired downstream but cost retries.
const systemPrompt = "You are a JSON-only API. You must return RAW JSON. No markdown formatting."

// PromptInput carries everything the prompt builder needs. Building is a
// pure function of this struct: no I/O, no clock, no randomness.
type PromptInput struct {
	Subject         string
	Topic           string
	BloomLevel      model.BloomLevel
	QuestionType    model.QuestionType
	Count           int
	MarksEach       int
	LearningOutcome model.LearningOutcome
	Instructions    string
	Context         []string
}

// BuildPrompt renders the generation instruction: role and task framing,
// the strict per-task structure, the exact output schema, and retrieved
// context appended verbatim.
func BuildPrompt(in PromptInput) string {
	var b strings.Builder

	b.WriteString("Role: Senior Academic Expert.\n")
	fmt.Fprintf(&b, "Subject: %s\n", in.Subject)
	fmt.Fprintf(&b, "Topic: %s\n", in.Topic)
	fmt.Fprintf(&b, "Bloom's Level: %s\n", in.BloomLevel)
	b.WriteString("Constraints:\n")
	b.WriteString(structureText(in))
	if in.Instructions != "" {
		fmt.Fprintf(&b, "Additional instructions: %s\n", in.Instructions)
	}

	b.WriteString("\nOUTPUT FORMAT (JSON ARRAY ONLY):\n")
	b.WriteString(outputSchema(in.QuestionType, in.BloomLevel))
	b.WriteString("\nReturn only the JSON array. No prose before or after it.\n")

	b.WriteString("\nContext for generation:\n")
	b.WriteString(strings.Join(in.Context, "\n"))
	b.WriteString("\n")

	return b.String()
}

func structureText(in PromptInput) string {
	var b strings.Builder
	if in.QuestionType == "" {
		// Ad-hoc runs leave the type to the model.
		fmt.Fprintf(&b, "Generate %d high-quality exam questions.\n", in.Count)
		fmt.Fprintf(&b, "- Each question is worth %d mark(s).\n", in.MarksEach)
		return b.String()
	}
	b.WriteString("STRICT STRUCTURE REQUIRED:\n")
	fmt.Fprintf(&b, "- Exactly %d %s question(s).\n", in.Count, typeLabel(in.QuestionType))
	fmt.Fprintf(&b, "- Each question is worth %d mark(s).\n", in.MarksEach)
	if in.LearningOutcome != "" {
		fmt.Fprintf(&b, "- Every question must assess learning outcome %s.\n", in.LearningOutcome)
	}
	return b.String()
}

func typeLabel(t model.QuestionType) string {
	switch t {
	case model.TypeMCQ:
		return "Multiple Choice (MCQ)"
	case model.TypeShort:
		return "Short Answer"
	case model.TypeEssay:
		return "Essay"
	default:
		return string(t)
	}
}

// outputSchema renders the example array the model must mirror. An
// unconstrained type shows the MCQ shape, options included.
func outputSchema(t model.QuestionType, level model.BloomLevel) string {
	if t == model.TypeMCQ || t == "" {
		return fmt.Sprintf(`[
  {
    "question": "Question text?",
    "question_type": "MCQ",
    "options": ["A. Choice 1", "B. Choice 2", "C. Choice 3", "D. Choice 4"],
    "correct_answer": "A",
    "explanation": "Logic for the answer.",
    "marks": 5,
    "bloom_level": "%s",
    "course_outcome": "CO1"
  }
]
`, level)
	}
	return fmt.Sprintf(`[
  {
    "question": "Question text?",
    "question_type": "%s",
    "correct_answer": "Model answer or key points.",
    "explanation": "Marking guidance.",
    "marks": 5,
    "bloom_level": "%s",
    "course_outcome": "CO1"
  }
]
`, t, level)
}
