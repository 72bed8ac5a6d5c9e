package extract

import "github.com/antoniostano/maistro/internal/llm"

// ProfileTool is the document tool used when extracting user profile records.
func ProfileTool() llm.Tool {
	return llm.Tool{
		Name:        "Profile",
		Description: "Record facts about the user: name, location, job, connections and interests.",
		InputSchema: documentSchema[Profile](),
	}
}

// TodoTool is the document tool used when extracting task list records.
func TodoTool() llm.Tool {
	return llm.Tool{
		Name:        "ToDo",
		Description: "Record a task the user wants tracked, with deadline, estimate, solutions and status.",
		InputSchema: documentSchema[ToDo](),
	}
}
