package llm

import "fmt"

const summarySystemPrompt = "You are a helpful financial analysis assistant."

const answerSystemPrompt = "You are a financial analyst assistant. You have been provided with an article's content. " +
	"Answer the user's question based ONLY on the information in the article. " +
	"If the answer is not in the article, say you do not know. " +
	"Think step-by-step and provide a clear, concise answer."

func summaryPrompt(title, article string) string {
	return fmt.Sprintf(`You are an expert financial analyst.
Read the following news article about a company and provide a concise summary in bullet points.
Focus on key facts, any stock impact, sentiment, and risks mentioned.

Title: %s
Article: %s

Summary (bullet points):`, title, article)
}

func summaryMessages(title, article string) []Message {
	return []Message{
		SystemMessage(summarySystemPrompt),
		UserMessage(summaryPrompt(title, article)),
	}
}

func answerMessages(article, question string) []Message {
	return []Message{
		SystemMessage(answerSystemPrompt),
		AssistantMessage("Article:\n" + article),
		UserMessage(question),
	}
}
