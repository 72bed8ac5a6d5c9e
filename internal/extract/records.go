package extract

import "time"

// Profile is the structured user profile record kept in the profile namespace.
// Multiple profile records can coexist per user, one per distinct fact set.
type Profile struct {
	Name        string   `json:"name,omitempty" jsonschema_description:"The user's preferred name"`
	Location    string   `json:"location,omitempty" jsonschema_description:"Where the user lives"`
	Job         string   `json:"job,omitempty" jsonschema_description:"The user's occupation"`
	Connections []string `json:"connections,omitempty" jsonschema_description:"People the user is connected to, such as family and friends"`
	Interests   []string `json:"interests,omitempty" jsonschema_description:"Interests the user has mentioned"`
}

// TodoStatus tracks where a task item stands.
type TodoStatus string

const (
	TodoStatusNotStarted TodoStatus = "not started"
	TodoStatusInProgress TodoStatus = "in progress"
	TodoStatusDone       TodoStatus = "done"
	TodoStatusArchived   TodoStatus = "archived"
)

// ToDo is a single task item kept in the todo namespace.
type ToDo struct {
	Task                  string     `json:"task" jsonschema_description:"Short description of the task"`
	TimeToCompleteMinutes int        `json:"time_to_complete_minutes,omitempty" jsonschema_description:"Estimated time to complete the task, in minutes"`
	Deadline              *time.Time `json:"deadline,omitempty" jsonschema_description:"Deadline for the task if one exists, in ISO 8601 format"`
	Solutions             []string   `json:"solutions,omitempty" jsonschema_description:"Concrete, actionable ways to complete the task"`
	Status                TodoStatus `json:"status" jsonschema_description:"Current status: not started, in progress, done or archived"`
}

// Instructions is the single free-text record kept in the instructions
// namespace, always overwritten wholesale.
type Instructions struct {
	Memory string `json:"memory"`
}
