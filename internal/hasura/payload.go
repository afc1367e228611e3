// Package hasura holds the wire envelopes the GraphQL engine uses when it
// calls action and event-trigger webhooks.
package hasura

// ActionPayload is the body posted to an action webhook. The action argument
// is declared as a single object named "input", hence the nested field.
type ActionPayload[T any] struct {
	Action struct {
		Name string `json:"name"`
	} `json:"action"`
	Input struct {
		Input T `json:"input"`
	} `json:"input"`
	SessionVariables map[string]string `json:"session_variables"`
	RequestQuery     string            `json:"request_query"`
}

// EventPayload is the body posted by an event trigger: metadata plus the old
// and new row images for the affected table.
type EventPayload[T any] struct {
	ID        string `json:"id"`
	CreatedAt string `json:"created_at"`
	Trigger   struct {
		Name string `json:"name"`
	} `json:"trigger"`
	Table struct {
		Schema string `json:"schema"`
		Name   string `json:"name"`
	} `json:"table"`
	Event struct {
		SessionVariables map[string]string `json:"session_variables"`
		Op               string            `json:"op"`
		Data             struct {
			Old *T `json:"old"`
			New *T `json:"new"`
		} `json:"data"`
	} `json:"event"`
}
