package types

import "fmt"

// Person is a single row read from the persons table.
// It is immutable once read and is discarded after transformation.
type Person struct {
	ID        int64  `json:"id" bigquery:"id"`
	FirstName string `json:"firstName" bigquery:"first_name"`
	LastName  string `json:"lastName" bigquery:"last_name"`
	Email     string `json:"email" bigquery:"email"`
}

func (p Person) String() string {
	return fmt.Sprintf("id: %d, firstName: %s, lastName: %s, email: %s", p.ID, p.FirstName, p.LastName, p.Email)
}

// Message is the notification published for every Person.
// Once handed to a writer it is owned by that writer.
type Message struct {
	To   string `json:"to"`
	From string `json:"from"`
	Body string `json:"body"`
}

func (m Message) String() string {
	return fmt.Sprintf("to: %s, from: %s, body: %s", m.To, m.From, m.Body)
}

// BatchConfig is the static configuration read by the person transformer.
// It is loaded once at startup and only ever read afterwards.
type BatchConfig struct {
	// Email is the sender address placed in Message.From.
	Email string `yaml:"email"`
	// Message is the body placed in Message.Body.
	Message string `yaml:"message"`
}
