package usecase

import "fmt"

const answerSystemPrompt = "You are an AI assistant like Perplexity.ai. Always be clear, concise, and cite sources when relevant."

const suggestionSystemPrompt = "You are a helpful assistant."

func buildAnswerPrompt(query, kbContext, webContext string) string {
	if kbContext == "" {
		kbContext = "No KB results."
	}
	if webContext == "" {
		webContext = "No web results."
	}

	return fmt.Sprintf(`Question: %s

Knowledge Base Context:
%s

Web Context:
%s

Answer naturally and comprehensively.
`, query, kbContext, webContext)
}

func buildSuggestionPrompt(query, answer string) string {
	return fmt.Sprintf(`The user asked: %q
You answered: %q

Now suggest 3-5 related follow-up questions the user might naturally ask next,
short and conversational, without answers.
`, query, answer)
}
