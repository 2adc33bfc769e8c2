package models

const (
	ContextSeparator = "\n\n"
	YearAnchorFormat = "Current year is %d."

	DefaultRoleStatement = "You are a helpful personal-information assistant. " +
		"Provide gentle, informative, and respectful answers based on available data."
)

var (
	// QAPromptTemplate is rendered with role, year_anchor, context and question
	QAPromptTemplate = `{{.role}}
{{.year_anchor}}
Context: {{.context}}
Question: {{.question}}
Answer:`

	// CondensePromptTemplate rewrites a follow up into a standalone question
	CondensePromptTemplate = `Given the following conversation and a follow up question, rephrase the follow up question to be a standalone question, in its original language.

Chat History:
{{.chat_history}}
Follow Up Input: {{.question}}
Standalone question:`

	// DefaultQuestions is the sample list run by batch mode
	DefaultQuestions = []string{
		"How old are you?",
		"What is your highest level of education?",
		"What major or field of study did you pursue during your education?",
		"How many years of work experience do you have?",
		"What type of work or industry have you been involved in?",
		"Can you describe your current role or job responsibilities?",
		"What are your core beliefs regarding the role of technology in shaping society?",
		"How do you think cultural values should influence technological advancements?",
		"As a master's student, what is the most challenging aspect of your studies so far?",
		"What specific research interests or academic goals do you hope to achieve during your time as a master's student?",
	}
)
